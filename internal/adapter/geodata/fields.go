package geodata

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// Incident column names as exported by the source datasets.
const (
	ColID           = "id"
	ColCategory     = "tipo_crimen"
	ColDate         = "fecha"
	ColTime         = "hora"
	ColNeighborhood = "barrio"
	ColAge          = "edad"
	ColSex          = "sexo"
	ColLon          = "longitud"
	ColLat          = "latitud"
)

// DefaultNameProperty is the neighborhood name attribute in the boundary file.
const DefaultNameProperty = "NOMBRE"

// record is one row of incident attributes keyed by column name. Missing and
// empty cells are absent from the map.
type record map[string]any

func (r record) str(col string) string {
	s, _ := asString(r[col])
	return s
}

// buildIncident converts a row into an Incident. geom is the feature geometry
// for GeoJSON sources and nil for tabular ones.
func buildIncident(r record, geom orb.Geometry) domain.Incident {
	inc := domain.Incident{
		ID:           r.str(ColID),
		Category:     r.str(ColCategory),
		RawDate:      r.str(ColDate),
		TimeOfDay:    r.str(ColTime),
		Neighborhood: r.str(ColNeighborhood),
		Sex:          strings.ToUpper(strings.TrimSpace(r.str(ColSex))),
		Age:          asInt(r[ColAge]),
	}
	if d, ok := domain.ParseDate(inc.RawDate); ok {
		inc.Date = d
	}

	for _, f := range domain.SocialFlags {
		v, ok := r[string(f)]
		if !ok {
			continue
		}
		if inc.Flags == nil {
			inc.Flags = make(map[domain.SocialFlag]bool, len(domain.SocialFlags))
		}
		inc.Flags[f] = asBool(v)
	}

	if p, ok := geom.(orb.Point); ok && validCoord(p) {
		inc.Location, inc.HasLocation = p, true
		return inc
	}
	lon, okLon := asFloat(r[ColLon])
	lat, okLat := asFloat(r[ColLat])
	if okLon && okLat {
		p := orb.Point{lon, lat}
		if validCoord(p) {
			inc.Location, inc.HasLocation = p, true
		}
	}
	return inc
}

func validCoord(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		if math.IsNaN(t) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asInt(v any) *int {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

// asBool follows the source convention that a flag is set only when it equals 1.
func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "1.0", "true", "t", "si", "sí", "yes":
			return true
		}
		return false
	default:
		f, ok := asFloat(v)
		return ok && f == 1
	}
}
