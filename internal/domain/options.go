package domain

import (
	"slices"
	"time"
)

// Options lists the selectable values for each filter control.
type Options struct {
	Neighborhoods []string     `json:"neighborhoods"`
	Categories    []string     `json:"categories"`
	Sexes         []string     `json:"sexes"`
	DateMin       time.Time    `json:"date_min,omitzero"`
	DateMax       time.Time    `json:"date_max,omitzero"`
	HasTimeOfDay  bool         `json:"has_time_of_day"`
	Flags         []SocialFlag `json:"flags"`
}

// BuildOptions derives filter choices from the loaded data. The date bounds
// span the parseable incident dates and default the date range control.
func BuildOptions(ds Dataset, neighborhoods []Neighborhood) Options {
	opts := Options{
		Categories:   Categories(ds.Incidents),
		Sexes:        []string{SexMale, SexFemale},
		HasTimeOfDay: ds.HasTimeOfDay,
	}

	for _, n := range neighborhoods {
		if n.Name != "" {
			opts.Neighborhoods = append(opts.Neighborhoods, n.Name)
		}
	}
	slices.Sort(opts.Neighborhoods)
	opts.Neighborhoods = slices.Compact(opts.Neighborhoods)

	for _, inc := range ds.Incidents {
		if !inc.HasDate() {
			continue
		}
		if opts.DateMin.IsZero() || inc.Date.Before(opts.DateMin) {
			opts.DateMin = inc.Date
		}
		if opts.DateMax.IsZero() || inc.Date.After(opts.DateMax) {
			opts.DateMax = inc.Date
		}
	}

	for _, f := range SocialFlags {
		if ds.HasFlagColumn(f) {
			opts.Flags = append(opts.Flags, f)
		}
	}
	return opts
}
