package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AllOption is the selector value meaning "no restriction" for single-choice filters.
const AllOption = "Todos"

// ErrInvalidCriteria is returned when a FilterCriteria cannot be satisfied by construction.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// Contains reports whether day falls within the range, comparing calendar days only.
func (r DateRange) Contains(day time.Time) bool {
	day = truncateDay(day)
	if !r.From.IsZero() && day.Before(truncateDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To)) {
		return false
	}
	return true
}

// HourRange is an inclusive range of hours of day.
type HourRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// AllDay covers every hour.
var AllDay = HourRange{Min: 0, Max: 23}

// Contains reports whether hour lies within the range, inclusive at both ends.
func (r HourRange) Contains(hour int) bool {
	return hour >= r.Min && hour <= r.Max
}

// FilterCriteria is the filter state for one render pass. It is built fresh for
// every request and never mutated while a filter is applied.
type FilterCriteria struct {
	// Neighborhood selects a single barrio; empty or AllOption passes everything.
	Neighborhood string `json:"neighborhood,omitempty"`

	// Categories restricts to any of the listed crime types; empty passes everything.
	Categories []string `json:"categories,omitempty"`

	// Sex selects a victim sex; empty or AllOption passes everything.
	Sex string `json:"sex,omitempty"`

	Dates DateRange `json:"dates"`

	// Hours restricts the time of day. Nil means AllDay, which still excludes
	// incidents whose hour does not parse when the dataset has an hour column.
	Hours *HourRange `json:"hours,omitempty"`

	// RequiredFlags lists social flags that must all be true.
	RequiredFlags []SocialFlag `json:"required_flags,omitempty"`
}

// HourRange returns the effective hour range.
func (c FilterCriteria) HourRange() HourRange {
	if c.Hours == nil {
		return AllDay
	}
	return *c.Hours
}

// Validate checks range bounds.
func (c FilterCriteria) Validate() error {
	h := c.HourRange()
	if h.Min < 0 || h.Max > 23 || h.Min > h.Max {
		return fmt.Errorf("%w: hour range [%d, %d]", ErrInvalidCriteria, h.Min, h.Max)
	}
	if !c.Dates.From.IsZero() && !c.Dates.To.IsZero() && c.Dates.From.After(c.Dates.To) {
		return fmt.Errorf("%w: date range %s after %s", ErrInvalidCriteria,
			c.Dates.From.Format(time.DateOnly), c.Dates.To.Format(time.DateOnly))
	}
	return nil
}

func isAll(v string) bool {
	return v == "" || v == AllOption || strings.EqualFold(v, "all")
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
