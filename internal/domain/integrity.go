package domain

import (
	"fmt"
	"slices"
)

// IntegrityReport summarizes records that will not behave as expected in a
// render pass. None of these conditions prevent loading.
type IntegrityReport struct {
	Incidents     int `json:"incidents"`
	Neighborhoods int `json:"neighborhoods"`

	MissingLocation []string `json:"missing_location,omitempty"`
	InvalidDates    []string `json:"invalid_dates,omitempty"`
	InvalidHours    []string `json:"invalid_hours,omitempty"`
	DuplicateIDs    []string `json:"duplicate_ids,omitempty"`

	// UnmatchedNeighborhoods counts incidents per barrio name that has no polygon.
	UnmatchedNeighborhoods map[string]int `json:"unmatched_neighborhoods,omitempty"`

	// EmptyNeighborhoods lists polygons with no incident at all.
	EmptyNeighborhoods []string `json:"empty_neighborhoods,omitempty"`
}

// Clean reports whether no record-level issue was found. Empty neighborhoods
// are informational and do not count.
func (r IntegrityReport) Clean() bool {
	return len(r.MissingLocation) == 0 &&
		len(r.InvalidDates) == 0 &&
		len(r.InvalidHours) == 0 &&
		len(r.DuplicateIDs) == 0 &&
		len(r.UnmatchedNeighborhoods) == 0
}

// Issues renders the report as one line per problem category.
func (r IntegrityReport) Issues() []string {
	var out []string
	if n := len(r.MissingLocation); n > 0 {
		out = append(out, fmt.Sprintf("%d incidents without a usable location", n))
	}
	if n := len(r.InvalidDates); n > 0 {
		out = append(out, fmt.Sprintf("%d incidents with an unparseable date", n))
	}
	if n := len(r.InvalidHours); n > 0 {
		out = append(out, fmt.Sprintf("%d incidents with an unparseable hour", n))
	}
	if n := len(r.DuplicateIDs); n > 0 {
		out = append(out, fmt.Sprintf("%d duplicate incident ids", n))
	}
	names := make([]string, 0, len(r.UnmatchedNeighborhoods))
	for name := range r.UnmatchedNeighborhoods {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		out = append(out, fmt.Sprintf("barrio %q has %d incidents but no polygon", name, r.UnmatchedNeighborhoods[name]))
	}
	return out
}

// CheckIntegrity inspects a dataset against the neighborhood collection.
func CheckIntegrity(ds Dataset, neighborhoods []Neighborhood) IntegrityReport {
	r := IntegrityReport{
		Incidents:              len(ds.Incidents),
		Neighborhoods:          len(neighborhoods),
		UnmatchedNeighborhoods: make(map[string]int),
	}

	known := make(map[string]int, len(neighborhoods))
	for _, n := range neighborhoods {
		known[n.Name] = 0
	}
	seen := make(map[string]int, len(ds.Incidents))

	for _, inc := range ds.Incidents {
		if !inc.HasLocation {
			r.MissingLocation = append(r.MissingLocation, inc.ID)
		}
		if !inc.HasDate() {
			r.InvalidDates = append(r.InvalidDates, inc.ID)
		}
		if ds.HasTimeOfDay {
			if _, ok := inc.Hour(); !ok {
				r.InvalidHours = append(r.InvalidHours, inc.ID)
			}
		}
		if inc.ID != "" {
			seen[inc.ID]++
			if seen[inc.ID] == 2 {
				r.DuplicateIDs = append(r.DuplicateIDs, inc.ID)
			}
		}
		if _, ok := known[inc.Neighborhood]; ok {
			known[inc.Neighborhood]++
		} else if inc.Neighborhood != "" {
			r.UnmatchedNeighborhoods[inc.Neighborhood]++
		}
	}

	for _, n := range neighborhoods {
		if known[n.Name] == 0 {
			r.EmptyNeighborhoods = append(r.EmptyNeighborhoods, n.Name)
		}
	}
	if len(r.UnmatchedNeighborhoods) == 0 {
		r.UnmatchedNeighborhoods = nil
	}
	return r
}
