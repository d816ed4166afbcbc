package domain

import (
	"cmp"
	"slices"
)

// NeighborhoodStat is a neighborhood annotated with its filtered incident count.
type NeighborhoodStat struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	Severity   Severity `json:"severity"`
	Color      string   `json:"color"`
	Normalized float64  `json:"normalized"`
	Rank       int      `json:"rank,omitempty"`
}

// Classify counts filtered incidents per neighborhood and colors each one with
// scheme. Every input neighborhood appears exactly once, in input order, even
// when no incident matches it.
func Classify(filtered []Incident, neighborhoods []Neighborhood, scheme ColorScheme) []NeighborhoodStat {
	if scheme == nil {
		scheme = FixedScheme{}
	}

	byName := make(map[string]int, len(neighborhoods))
	for _, inc := range filtered {
		byName[inc.Neighborhood]++
	}

	counts := make([]int, len(neighborhoods))
	for i, n := range neighborhoods {
		counts[i] = byName[n.Name]
	}
	shades := scheme.Colors(counts)

	stats := make([]NeighborhoodStat, len(neighborhoods))
	for i, n := range neighborhoods {
		stats[i] = NeighborhoodStat{
			Name:       n.Name,
			Count:      counts[i],
			Severity:   ClassifyCount(counts[i]),
			Color:      shades[i].Color,
			Normalized: shades[i].Normalized,
		}
	}
	return stats
}

// Rank returns a copy of stats ordered by count descending then name, with
// Rank set from 1.
func Rank(stats []NeighborhoodStat) []NeighborhoodStat {
	ranked := slices.Clone(stats)
	slices.SortStableFunc(ranked, func(a, b NeighborhoodStat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
