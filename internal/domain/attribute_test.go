package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func square(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}
}

func TestAttributeByLocation(t *testing.T) {
	boundaries := []Neighborhood{
		{Name: "Oeste", Geometry: square(0, 0, 1)},
		{Name: "Este", Geometry: orb.MultiPolygon{square(5, 5, 1), square(1, 0, 1)}},
	}
	located := func(id, barrio string, p orb.Point, has bool) Incident {
		return Incident{ID: id, Neighborhood: barrio, Location: p, HasLocation: has}
	}
	ds := Dataset{Incidents: []Incident{
		located("1", "", orb.Point{0.5, 0.5}, true),
		located("2", "  ", orb.Point{1.5, 0.5}, true),
		located("3", "Centro", orb.Point{0.5, 0.5}, true),
		located("4", "", orb.Point{9, 9}, true),
		located("5", "", orb.Point{0.5, 0.5}, false),
	}}

	out, n := AttributeByLocation(ds, boundaries)

	assert.Equal(t, 2, n)
	assert.Equal(t, "Oeste", out.Incidents[0].Neighborhood)
	assert.Equal(t, "Este", out.Incidents[1].Neighborhood)
	assert.Equal(t, "Centro", out.Incidents[2].Neighborhood, "named incidents are left alone")
	assert.Empty(t, out.Incidents[3].Neighborhood)
	assert.Empty(t, out.Incidents[4].Neighborhood, "incidents without a location are skipped")

	assert.Empty(t, ds.Incidents[0].Neighborhood, "input dataset is not modified")
}
