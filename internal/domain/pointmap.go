package domain

import (
	"image/color"
	"slices"

	"github.com/paulmach/orb"
)

// CategoryPalette is the marker palette, sampled as a listed colormap.
var CategoryPalette = []color.RGBA{
	{R: 0x98, G: 0xcf, B: 0xe0, A: 0xff},
	{R: 0x2c, G: 0xa6, B: 0xc5, A: 0xff},
	{R: 0x03, G: 0x2f, B: 0x45, A: 0xff},
	{R: 0xf8, G: 0xb9, B: 0x09, A: 0xff},
	{R: 0xf3, G: 0x8e, B: 0x1a, A: 0xff},
}

// DefaultMarkerColor is used for categories missing from the color table.
const DefaultMarkerColor = "#ffffff"

// CategoryColors assigns each distinct non-empty category a palette color.
// Categories are sorted and spread over the palette at i / max(1, n-1), with
// each value binned into one of the palette's discrete entries.
func CategoryColors(incidents []Incident) map[string]string {
	cats := Categories(incidents)
	out := make(map[string]string, len(cats))
	denom := float64(max(1, len(cats)-1))
	for i, c := range cats {
		out[c] = ToHex(listedColor(CategoryPalette, float64(i)/denom))
	}
	return out
}

func listedColor(palette []color.RGBA, v float64) color.RGBA {
	idx := int(v * float64(len(palette)))
	idx = max(0, min(idx, len(palette)-1))
	return palette[idx]
}

// Categories returns the sorted distinct non-empty categories.
func Categories(incidents []Incident) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, inc := range incidents {
		if inc.Category == "" {
			continue
		}
		if _, ok := seen[inc.Category]; ok {
			continue
		}
		seen[inc.Category] = struct{}{}
		cats = append(cats, inc.Category)
	}
	slices.Sort(cats)
	return cats
}

// Marker is one incident rendered on the point map.
type Marker struct {
	Incident Incident `json:"incident"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Color    string   `json:"color"`
}

// PointMap is the point-map view of a filtered incident set.
type PointMap struct {
	// Empty signals that there is nothing to draw; Center and Bounds are unset.
	Empty   bool              `json:"empty"`
	Center  *Geo              `json:"center,omitempty"`
	Bounds  *orb.Bound        `json:"bounds,omitempty"`
	Markers []Marker          `json:"markers"`
	Legend  map[string]string `json:"legend"`
}

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BuildPointMap places every located incident on the map. The center is the
// mean coordinate of the markers and is only computed when there is at least one.
func BuildPointMap(filtered []Incident) PointMap {
	legend := CategoryColors(filtered)
	pm := PointMap{Markers: make([]Marker, 0, len(filtered)), Legend: legend}

	var sumLat, sumLon float64
	points := make(orb.MultiPoint, 0, len(filtered))
	for _, inc := range filtered {
		if !inc.HasLocation {
			continue
		}
		c, ok := legend[inc.Category]
		if !ok {
			c = DefaultMarkerColor
		}
		pm.Markers = append(pm.Markers, Marker{
			Incident: inc,
			Lat:      inc.Location.Lat(),
			Lon:      inc.Location.Lon(),
			Color:    c,
		})
		sumLat += inc.Location.Lat()
		sumLon += inc.Location.Lon()
		points = append(points, inc.Location)
	}

	if len(pm.Markers) == 0 {
		pm.Empty = true
		return pm
	}

	n := float64(len(pm.Markers))
	pm.Center = &Geo{Lat: sumLat / n, Lon: sumLon / n}
	b := points.Bound()
	pm.Bounds = &b
	return pm
}
