package domain

import "slices"

// Predicate reports whether an incident satisfies one filter condition.
type Predicate struct {
	Name  string
	Match func(Incident) bool
}

// Predicates builds the independent predicates implied by criteria for the
// given dataset. Conditions that impose no constraint are omitted, so the
// result may be empty.
func Predicates(ds Dataset, c FilterCriteria) []Predicate {
	var preds []Predicate

	if !isAll(c.Neighborhood) {
		name := c.Neighborhood
		preds = append(preds, Predicate{Name: "neighborhood", Match: func(i Incident) bool {
			return i.Neighborhood == name
		}})
	}

	if len(c.Categories) > 0 && !(len(c.Categories) == 1 && isAll(c.Categories[0])) {
		cats := slices.Clone(c.Categories)
		preds = append(preds, Predicate{Name: "category", Match: func(i Incident) bool {
			return slices.Contains(cats, i.Category)
		}})
	}

	if !isAll(c.Sex) {
		sex := c.Sex
		preds = append(preds, Predicate{Name: "sex", Match: func(i Incident) bool {
			return i.Sex == sex
		}})
	}

	// The date predicate always applies: an unparseable date never lies in range.
	dates := c.Dates
	preds = append(preds, Predicate{Name: "date", Match: func(i Incident) bool {
		return i.HasDate() && dates.Contains(i.Date)
	}})

	if ds.HasTimeOfDay {
		hours := c.HourRange()
		preds = append(preds, Predicate{Name: "hour", Match: func(i Incident) bool {
			h, ok := i.Hour()
			return ok && hours.Contains(h)
		}})
	}

	for _, f := range c.RequiredFlags {
		if !ds.HasFlagColumn(f) {
			continue
		}
		flag := f
		preds = append(preds, Predicate{Name: "flag:" + string(flag), Match: func(i Incident) bool {
			return i.Flag(flag)
		}})
	}

	return preds
}

// Apply returns the incidents that satisfy every predicate implied by criteria.
// The input is never modified and the result is a fresh slice.
func Apply(ds Dataset, c FilterCriteria) []Incident {
	return Filter(ds.Incidents, Predicates(ds, c))
}

// Filter keeps incidents matching all preds. Because each predicate inspects
// only the incident it is given, the order of preds does not affect the result.
func Filter(incidents []Incident, preds []Predicate) []Incident {
	out := make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if matchAll(inc, preds) {
			out = append(out, inc)
		}
	}
	return out
}

func matchAll(inc Incident, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(inc) {
			return false
		}
	}
	return true
}
