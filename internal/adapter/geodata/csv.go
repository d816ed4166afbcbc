package geodata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// ErrMissingColumn is returned when a tabular source lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// readIncidentsCSV reads a tabular incident export. Points are built from the
// explicit longitud/latitud columns, which must be present in the header.
func readIncidentsCSV(r io.Reader) (domain.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	for _, required := range []string{ColLon, ColLat} {
		if _, ok := cols[required]; !ok {
			return domain.Dataset{}, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	ds := domain.Dataset{Columns: make(map[domain.SocialFlag]bool)}
	_, ds.HasTimeOfDay = cols[ColTime]
	for _, f := range domain.SocialFlags {
		if _, ok := cols[string(f)]; ok {
			ds.Columns[f] = true
		}
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := make(record, len(header))
		for i, v := range row {
			if i >= len(header) {
				break
			}
			if v = strings.TrimSpace(v); v != "" {
				rec[header[i]] = v
			}
		}
		ds.Incidents = append(ds.Incidents, buildIncident(rec, nil))
	}
	return ds, nil
}
