package domain

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AttributeByLocation fills the neighborhood of incidents that have a location
// but no neighborhood name, using the first boundary that contains the point.
// It returns a new dataset and the number of incidents attributed; ds is not
// modified.
func AttributeByLocation(ds Dataset, hoods []Neighborhood) (Dataset, int) {
	bounds := make([]orb.Bound, len(hoods))
	for i, h := range hoods {
		bounds[i] = h.Bound()
	}

	out := ds
	out.Incidents = make([]Incident, len(ds.Incidents))
	copy(out.Incidents, ds.Incidents)

	attributed := 0
	for i := range out.Incidents {
		inc := &out.Incidents[i]
		if strings.TrimSpace(inc.Neighborhood) != "" || !inc.HasLocation {
			continue
		}
		for j, h := range hoods {
			if !bounds[j].Contains(inc.Location) {
				continue
			}
			if contains(h.Geometry, inc.Location) {
				inc.Neighborhood = h.Name
				attributed++
				break
			}
		}
	}
	return out, attributed
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
