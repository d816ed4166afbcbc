package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Week is the spacing between consecutive WeeklySeries points.
const Week = 7 * 24 * time.Hour

// WeeklyPoint is the incident count for the week starting at WeekStart.
// A NaN Count marks a missing observation.
type WeeklyPoint struct {
	WeekStart time.Time `json:"week_start"`
	Count     float64   `json:"count"`
}

// MarshalJSON encodes a missing count as null.
func (p WeeklyPoint) MarshalJSON() ([]byte, error) {
	var count *float64
	if !math.IsNaN(p.Count) {
		count = &p.Count
	}
	return json.Marshal(struct {
		WeekStart time.Time `json:"week_start"`
		Count     *float64  `json:"count"`
	}{p.WeekStart, count})
}

// UnmarshalJSON decodes a null count as NaN.
func (p *WeeklyPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		WeekStart time.Time `json:"week_start"`
		Count     *float64  `json:"count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.WeekStart = raw.WeekStart
	p.Count = math.NaN()
	if raw.Count != nil {
		p.Count = *raw.Count
	}
	return nil
}

// WeeklySeries is an ordered, gap-free sequence of weekly counts.
type WeeklySeries []WeeklyPoint

// NonNull returns the number of points with a usable count.
func (s WeeklySeries) NonNull() int {
	n := 0
	for _, p := range s {
		if !math.IsNaN(p.Count) {
			n++
		}
	}
	return n
}

// Last returns the final point's week start, zero for an empty series.
func (s WeeklySeries) Last() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].WeekStart
}

// WeekStart returns the Monday 00:00 UTC on or before t.
func WeekStart(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// WeeklyCounts resamples incidents into consecutive Monday-start weeks between
// the earliest and latest parseable dates. Weeks without incidents count 0.
// Incidents without a parseable date are ignored.
func WeeklyCounts(incidents []Incident) WeeklySeries {
	counts := make(map[time.Time]int)
	var first, last time.Time
	for _, inc := range incidents {
		if !inc.HasDate() {
			continue
		}
		w := WeekStart(inc.Date)
		counts[w]++
		if first.IsZero() || w.Before(first) {
			first = w
		}
		if last.IsZero() || w.After(last) {
			last = w
		}
	}
	if first.IsZero() {
		return WeeklySeries{}
	}

	var series WeeklySeries
	for w := first; !w.After(last); w = w.AddDate(0, 0, 7) {
		series = append(series, WeeklyPoint{WeekStart: w, Count: float64(counts[w])})
	}
	return series
}
