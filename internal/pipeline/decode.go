package pipeline

import (
	"github.com/couchcryptid/crime-dashboard/internal/adapter/geodata"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// IncidentDecoder reads GeoJSON incident features from message values.
type IncidentDecoder struct{}

// NewDecoder returns the GeoJSON incident decoder.
func NewDecoder() IncidentDecoder {
	return IncidentDecoder{}
}

// Decode parses raw.Value. A single feature without an id takes the message key.
func (IncidentDecoder) Decode(raw domain.RawMessage) (domain.Dataset, error) {
	ds, err := geodata.DecodeIncidentMessage(raw.Value)
	if err != nil {
		return domain.Dataset{}, err
	}
	if len(ds.Incidents) == 1 && ds.Incidents[0].ID == "" && len(raw.Key) > 0 {
		ds.Incidents[0].ID = string(raw.Key)
	}
	return ds, nil
}
