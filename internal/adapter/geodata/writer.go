package geodata

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// WriteIncidents encodes ds in the format named by the file extension, using
// the same column names the readers expect.
func WriteIncidents(filename string, w io.Writer, ds domain.Dataset) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		return writeIncidentsGeoJSON(w, ds)
	case ".csv":
		return writeIncidentsCSV(w, ds)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

func writeIncidentsGeoJSON(w io.Writer, ds domain.Dataset) error {
	fc := geojson.NewFeatureCollection()
	for _, inc := range ds.Incidents {
		var geom orb.Geometry
		if inc.HasLocation {
			geom = inc.Location
		}
		f := geojson.NewFeature(geom)
		f.Properties[ColID] = inc.ID
		f.Properties[ColCategory] = inc.Category
		f.Properties[ColDate] = inc.RawDate
		f.Properties[ColNeighborhood] = inc.Neighborhood
		f.Properties[ColSex] = inc.Sex
		if ds.HasTimeOfDay {
			f.Properties[ColTime] = inc.TimeOfDay
		}
		if inc.Age != nil {
			f.Properties[ColAge] = *inc.Age
		}
		for _, flag := range domain.SocialFlags {
			if !ds.HasFlagColumn(flag) {
				continue
			}
			v := 0
			if inc.Flag(flag) {
				v = 1
			}
			f.Properties[string(flag)] = v
		}
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeIncidentsCSV(w io.Writer, ds domain.Dataset) error {
	cw := csv.NewWriter(w)
	header := append(attributeColumns(ds), ColAge, ColLon, ColLat)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, inc := range ds.Incidents {
		row := attributes(ds, inc)
		age, lon, lat := "", "", ""
		if inc.Age != nil {
			age = strconv.Itoa(*inc.Age)
		}
		if inc.HasLocation {
			lon = strconv.FormatFloat(inc.Location.Lon(), 'f', -1, 64)
			lat = strconv.FormatFloat(inc.Location.Lat(), 'f', -1, 64)
		}
		if err := cw.Write(append(row, age, lon, lat)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// attributeColumns lists the string-valued columns written for ds. The hour
// and flag columns only appear when the dataset carries them.
func attributeColumns(ds domain.Dataset) []string {
	cols := []string{ColID, ColCategory, ColDate}
	if ds.HasTimeOfDay {
		cols = append(cols, ColTime)
	}
	cols = append(cols, ColNeighborhood, ColSex)
	for _, f := range domain.SocialFlags {
		if ds.HasFlagColumn(f) {
			cols = append(cols, string(f))
		}
	}
	return cols
}

func attributes(ds domain.Dataset, inc domain.Incident) []string {
	row := []string{inc.ID, inc.Category, inc.RawDate}
	if ds.HasTimeOfDay {
		row = append(row, inc.TimeOfDay)
	}
	row = append(row, inc.Neighborhood, inc.Sex)
	for _, f := range domain.SocialFlags {
		if !ds.HasFlagColumn(f) {
			continue
		}
		v := "0"
		if inc.Flag(f) {
			v = "1"
		}
		row = append(row, v)
	}
	return row
}
