package geodata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

var (
	// ErrDuplicateNeighborhood is returned when two boundary features share a name.
	ErrDuplicateNeighborhood = errors.New("duplicate neighborhood name")

	// ErrNotPolygon is returned when a boundary feature is not a polygon or multipolygon.
	ErrNotPolygon = errors.New("neighborhood geometry is not a polygon")
)

// ReadNeighborhoods decodes a GeoJSON FeatureCollection of neighborhood
// boundaries. Features without a name are skipped; names must be unique.
func ReadNeighborhoods(r io.Reader, nameProperty string) ([]domain.Neighborhood, error) {
	if nameProperty == "" {
		nameProperty = DefaultNameProperty
	}
	fc, err := readFeatureCollection(r)
	if err != nil {
		return nil, fmt.Errorf("read neighborhoods: %w", err)
	}

	out := make([]domain.Neighborhood, 0, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	for i, f := range fc.Features {
		name, _ := asString(f.Properties[nameProperty])
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			return nil, fmt.Errorf("feature %d (%s): %w", i, name, ErrNotPolygon)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNeighborhood, name)
		}
		seen[name] = struct{}{}
		out = append(out, domain.Neighborhood{Name: name, Geometry: f.Geometry})
	}
	return out, nil
}

// readIncidentsGeoJSON decodes a FeatureCollection of incident points.
func readIncidentsGeoJSON(r io.Reader) (domain.Dataset, error) {
	fc, err := readFeatureCollection(r)
	if err != nil {
		return domain.Dataset{}, err
	}
	return featuresToDataset(fc.Features), nil
}

// DecodeIncidentMessage decodes one stream message holding either a single
// GeoJSON Feature or a FeatureCollection of incidents.
func DecodeIncidentMessage(data []byte) (domain.Dataset, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Dataset{}, fmt.Errorf("decode incident message: %w", err)
	}

	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("decode incident feature: %w", err)
		}
		return featuresToDataset([]*geojson.Feature{f}), nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("decode incident collection: %w", err)
		}
		return featuresToDataset(fc.Features), nil
	default:
		return domain.Dataset{}, fmt.Errorf("%w: geojson type %q", ErrUnsupportedFormat, probe.Type)
	}
}

func featuresToDataset(features []*geojson.Feature) domain.Dataset {
	ds := domain.Dataset{
		Incidents: make([]domain.Incident, 0, len(features)),
		Columns:   make(map[domain.SocialFlag]bool),
	}
	for _, f := range features {
		rec := make(record, len(f.Properties))
		for k, v := range f.Properties {
			if v == nil {
				continue
			}
			rec[k] = v
		}
		if _, ok := f.Properties[ColTime]; ok {
			ds.HasTimeOfDay = true
		}
		for _, flag := range domain.SocialFlags {
			if _, ok := f.Properties[string(flag)]; ok {
				ds.Columns[flag] = true
			}
		}
		if _, ok := rec[ColID]; !ok && f.ID != nil {
			rec[ColID] = f.ID
		}
		ds.Incidents = append(ds.Incidents, buildIncident(rec, f.Geometry))
	}
	return ds
}

func readFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return fc, nil
}
