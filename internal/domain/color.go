package domain

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Severity is a fixed-bucket classification of a neighborhood's incident count.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityOrange Severity = "orange"
	SeverityRed    Severity = "red"
)

// ClassifyCount maps a count to its traffic-light bucket. Boundary values
// belong to the lower bucket: 0 green, 1–5 yellow, 6–15 orange, >15 red.
func ClassifyCount(count int) Severity {
	switch {
	case count <= 0:
		return SeverityGreen
	case count <= 5:
		return SeverityYellow
	case count <= 15:
		return SeverityOrange
	default:
		return SeverityRed
	}
}

// ColorScheme assigns a display color to each neighborhood count. The whole
// count set is passed at once because some schemes normalize across it.
type ColorScheme interface {
	Name() string
	Colors(counts []int) []Shade
}

// Shade is one color assignment.
type Shade struct {
	Color string `json:"color"`
	// Normalized is the count scaled to [0,1]; fixed schemes leave it 0.
	Normalized float64 `json:"normalized"`
}

// Scheme names accepted by ParseColorScheme.
const (
	SchemeFixed      = "fixed"
	SchemeContinuous = "continuous"
)

// ParseColorScheme returns the scheme with the given name.
func ParseColorScheme(name string) (ColorScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemeFixed:
		return FixedScheme{}, nil
	case SchemeContinuous:
		return ContinuousScheme{Map: YlOrRd}, nil
	default:
		return nil, fmt.Errorf("unknown color scheme %q", name)
	}
}

// FixedScheme colors counts by traffic-light bucket.
type FixedScheme struct{}

func (FixedScheme) Name() string { return SchemeFixed }

func (FixedScheme) Colors(counts []int) []Shade {
	out := make([]Shade, len(counts))
	for i, c := range counts {
		out[i] = Shade{Color: string(ClassifyCount(c))}
	}
	return out
}

// ContinuousScheme normalizes counts across the set and samples a colormap.
type ContinuousScheme struct {
	Map Colormap
}

func (ContinuousScheme) Name() string { return SchemeContinuous }

func (s ContinuousScheme) Colors(counts []int) []Shade {
	out := make([]Shade, len(counts))
	if len(counts) == 0 {
		return out
	}
	lo, hi := counts[0], counts[0]
	for _, c := range counts[1:] {
		lo = min(lo, c)
		hi = max(hi, c)
	}
	span := float64(hi - lo)
	for i, c := range counts {
		var v float64
		if span > 0 {
			v = float64(c-lo) / span
		}
		out[i] = Shade{Color: s.Map.Hex(v), Normalized: v}
	}
	return out
}

// Colormap is a piecewise-linear sequential colormap over [0,1].
type Colormap struct {
	Stops []color.RGBA
}

// YlOrRd approximates the yellow-orange-red sequential palette.
var YlOrRd = Colormap{Stops: []color.RGBA{
	{R: 0xff, G: 0xff, B: 0xcc, A: 0xff},
	{R: 0xfe, G: 0xd9, B: 0x76, A: 0xff},
	{R: 0xfd, G: 0x8d, B: 0x3c, A: 0xff},
	{R: 0xe3, G: 0x1a, B: 0x1c, A: 0xff},
	{R: 0x80, G: 0x00, B: 0x26, A: 0xff},
}}

// At samples the colormap at v, clamped to [0,1].
func (m Colormap) At(v float64) color.RGBA {
	if len(m.Stops) == 0 {
		return color.RGBA{}
	}
	if len(m.Stops) == 1 || math.IsNaN(v) || v <= 0 {
		return m.Stops[0]
	}
	if v >= 1 {
		return m.Stops[len(m.Stops)-1]
	}
	pos := v * float64(len(m.Stops)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := m.Stops[i], m.Stops[i+1]
	return color.RGBA{
		R: lerp(a.R, b.R, frac),
		G: lerp(a.G, b.G, frac),
		B: lerp(a.B, b.B, frac),
		A: 0xff,
	}
}

// Hex samples the colormap at v and formats it as "#rrggbb".
func (m Colormap) Hex(v float64) string {
	return ToHex(m.At(v))
}

// ToHex formats c as "#rrggbb".
func ToHex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}
