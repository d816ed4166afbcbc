// Package geodata loads neighborhood boundaries and incident collections from
// GeoJSON and CSV sources.
package geodata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// ErrUnsupportedFormat is returned for incident files that are neither GeoJSON nor CSV.
var ErrUnsupportedFormat = errors.New("unsupported incident file format")

// ReadIncidents decodes an incident collection, choosing the format from the
// file name extension.
func ReadIncidents(filename string, r io.Reader) (domain.Dataset, error) {
	var (
		ds  domain.Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		ds, err = readIncidentsGeoJSON(r)
	case ".csv":
		ds, err = readIncidentsCSV(r)
	default:
		return domain.Dataset{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read incidents %s: %w", filepath.Base(filename), err)
	}
	return ds, nil
}

// LoadIncidents reads an incident collection from disk.
func LoadIncidents(path string) (domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, err
	}
	defer f.Close()
	return ReadIncidents(path, f)
}

// LoadNeighborhoods reads a neighborhood boundary collection from disk.
func LoadNeighborhoods(path, nameProperty string) ([]domain.Neighborhood, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNeighborhoods(f, nameProperty)
}
