package domain

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// SocialFlag names a boolean social-context column on an incident.
type SocialFlag string

const (
	FlagStreetDweller SocialFlag = "habitante_calle"
	FlagSexWork       SocialFlag = "prostitucion"
	FlagLGBTI         SocialFlag = "lgtbi"
	FlagEthnicGroup   SocialFlag = "grupo_etnico"
)

// SocialFlags lists every known flag in display order.
var SocialFlags = []SocialFlag{FlagStreetDweller, FlagSexWork, FlagLGBTI, FlagEthnicGroup}

// Label returns a human-readable title for the flag, e.g. "Habitante Calle".
func (f SocialFlag) Label() string {
	words := strings.Split(string(f), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseSocialFlag returns the flag with the given column name.
func ParseSocialFlag(s string) (SocialFlag, bool) {
	for _, f := range SocialFlags {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Victim sex values. Anything else is treated as unknown.
const (
	SexMale   = "M"
	SexFemale = "F"
)

// Incident is one reported crime event.
type Incident struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	RawDate      string `json:"date"`
	TimeOfDay    string `json:"time_of_day,omitempty"`
	Neighborhood string `json:"neighborhood"`
	Sex          string `json:"sex"`
	Age          *int   `json:"age,omitempty"`

	// Flags holds the social-context attributes that were present on the record.
	Flags map[SocialFlag]bool `json:"flags,omitempty"`

	Location    orb.Point `json:"location"` // [lon, lat]
	HasLocation bool      `json:"has_location"`

	// Date is the parsed calendar day in UTC; zero when RawDate did not parse.
	Date time.Time `json:"-"`
}

// HasDate reports whether the incident date parsed.
func (i Incident) HasDate() bool {
	return !i.Date.IsZero()
}

// Flag returns the value of a social flag, false when the attribute is missing.
func (i Incident) Flag(f SocialFlag) bool {
	return i.Flags[f]
}

// Hour parses TimeOfDay into an hour of day (0–23).
func (i Incident) Hour() (int, bool) {
	return ParseHour(i.TimeOfDay)
}

// ParseHour truncates s to "HH:MM" and returns its hour. It reports false for
// empty or malformed values.
func ParseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		s = s[:5]
	}
	if s == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour(), true
}

// dateLayouts are tried in order when parsing incident dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2",
	"01/02/2006",
}

// ParseDate parses an incident date and truncates it to the calendar day in
// UTC. It reports false when no known layout matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Dataset is an immutable incident collection plus the optional columns it carries.
type Dataset struct {
	Incidents []Incident

	// HasTimeOfDay is true when the source exposed an hour column.
	HasTimeOfDay bool

	// Columns records which social flag columns the source exposed.
	Columns map[SocialFlag]bool
}

// HasFlagColumn reports whether the dataset carries the given social flag column.
func (d Dataset) HasFlagColumn(f SocialFlag) bool {
	return d.Columns[f]
}

// Merge returns a new dataset holding d's incidents followed by other's. The
// optional column sets are unioned. Neither input is modified.
func (d Dataset) Merge(other Dataset) Dataset {
	out := Dataset{
		Incidents:    make([]Incident, 0, len(d.Incidents)+len(other.Incidents)),
		HasTimeOfDay: d.HasTimeOfDay || other.HasTimeOfDay,
		Columns:      make(map[SocialFlag]bool, len(SocialFlags)),
	}
	out.Incidents = append(out.Incidents, d.Incidents...)
	out.Incidents = append(out.Incidents, other.Incidents...)
	for f, ok := range d.Columns {
		out.Columns[f] = out.Columns[f] || ok
	}
	for f, ok := range other.Columns {
		out.Columns[f] = out.Columns[f] || ok
	}
	return out
}

// Neighborhood is a named polygon boundary.
type Neighborhood struct {
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}

// Bound returns the neighborhood's bounding box.
func (n Neighborhood) Bound() orb.Bound {
	if n.Geometry == nil {
		return orb.Bound{}
	}
	return n.Geometry.Bound()
}
