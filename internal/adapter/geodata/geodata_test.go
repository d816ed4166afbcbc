package geodata

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

const neighborhoodsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NOMBRE": "Centro"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"NOMBRE": "Norte"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[0,1],[1,1],[1,2],[0,2],[0,1]]]]}},
    {"type": "Feature", "properties": {"NOMBRE": ""},
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[6,5],[6,6],[5,5]]]}}
  ]
}`

const incidentsJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 7,
     "properties": {"tipo_crimen": "Hurto", "fecha": "2024-03-05", "hora": "22:15:00",
                    "barrio": "Centro", "sexo": "m", "edad": 31, "lgtbi": 1, "prostitucion": 0},
     "geometry": {"type": "Point", "coordinates": [-75.5, 6.25]}},
    {"type": "Feature",
     "properties": {"id": "b", "tipo_crimen": "Homicidio", "fecha": "2024-03-06", "hora": null,
                    "barrio": "Norte", "sexo": "F", "lgtbi": 0, "prostitucion": null},
     "geometry": null}
  ]
}`

func TestReadNeighborhoods(t *testing.T) {
	hoods, err := ReadNeighborhoods(strings.NewReader(neighborhoodsJSON), "")
	require.NoError(t, err)

	require.Len(t, hoods, 2, "unnamed features are skipped")
	assert.Equal(t, "Centro", hoods[0].Name)
	assert.IsType(t, orb.Polygon{}, hoods[0].Geometry)
	assert.Equal(t, "Norte", hoods[1].Name)
	assert.IsType(t, orb.MultiPolygon{}, hoods[1].Geometry)
}

func TestReadNeighborhoods_CustomProperty(t *testing.T) {
	doc := strings.ReplaceAll(neighborhoodsJSON, "NOMBRE", "name")

	hoods, err := ReadNeighborhoods(strings.NewReader(doc), "name")
	require.NoError(t, err)
	assert.Len(t, hoods, 2)
}

func TestReadNeighborhoods_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected error
	}{
		{
			name: "duplicate name",
			doc: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"NOMBRE":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
				{"type":"Feature","properties":{"NOMBRE":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
			expected: ErrDuplicateNeighborhood,
		},
		{
			name: "point geometry",
			doc: `{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{"NOMBRE":"A"},"geometry":{"type":"Point","coordinates":[0,0]}}]}`,
			expected: ErrNotPolygon,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadNeighborhoods(strings.NewReader(tt.doc), "")
			require.ErrorIs(t, err, tt.expected)
		})
	}

	_, err := ReadNeighborhoods(strings.NewReader("not json"), "")
	require.Error(t, err)
}

func TestReadIncidents_GeoJSON(t *testing.T) {
	ds, err := ReadIncidents("incidents.geojson", strings.NewReader(incidentsJSON))
	require.NoError(t, err)
	require.Len(t, ds.Incidents, 2)

	assert.True(t, ds.HasTimeOfDay)
	assert.True(t, ds.HasFlagColumn(domain.FlagLGBTI))
	assert.True(t, ds.HasFlagColumn(domain.FlagSexWork))
	assert.False(t, ds.HasFlagColumn(domain.FlagEthnicGroup))

	first := ds.Incidents[0]
	assert.Equal(t, "7", first.ID, "feature id fills a missing id property")
	assert.Equal(t, "Hurto", first.Category)
	assert.Equal(t, "M", first.Sex)
	require.NotNil(t, first.Age)
	assert.Equal(t, 31, *first.Age)
	assert.True(t, first.Flag(domain.FlagLGBTI))
	assert.False(t, first.Flag(domain.FlagSexWork))
	assert.True(t, first.HasLocation)
	assert.Equal(t, orb.Point{-75.5, 6.25}, first.Location)
	hour, ok := first.Hour()
	require.True(t, ok)
	assert.Equal(t, 22, hour)

	second := ds.Incidents[1]
	assert.Equal(t, "b", second.ID)
	assert.False(t, second.HasLocation)
	assert.Empty(t, second.TimeOfDay)
	_, present := second.Flags[domain.FlagSexWork]
	assert.False(t, present, "null attributes are treated as missing")
}

func TestReadIncidents_CSV(t *testing.T) {
	doc := "\ufeffid,tipo_crimen,fecha,barrio,sexo,longitud,latitud,grupo_etnico\n" +
		"1,Hurto,2024-01-02,Centro,F,-75.57,6.24,1\n" +
		"2,Riña,2024-01-03,Norte,M,,,0\n" +
		"3,Hurto,bad-date,Centro,M,-75.50,6.20,\n"

	ds, err := ReadIncidents("upload.CSV", strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, ds.Incidents, 3)

	assert.False(t, ds.HasTimeOfDay)
	assert.True(t, ds.HasFlagColumn(domain.FlagEthnicGroup))
	assert.False(t, ds.HasFlagColumn(domain.FlagLGBTI))

	assert.Equal(t, "1", ds.Incidents[0].ID)
	assert.True(t, ds.Incidents[0].HasLocation)
	assert.Equal(t, orb.Point{-75.57, 6.24}, ds.Incidents[0].Location)
	assert.True(t, ds.Incidents[0].Flag(domain.FlagEthnicGroup))
	assert.True(t, ds.Incidents[0].HasDate())

	assert.False(t, ds.Incidents[1].HasLocation)
	assert.False(t, ds.Incidents[2].HasDate())
	_, present := ds.Incidents[2].Flags[domain.FlagEthnicGroup]
	assert.False(t, present)
}

func TestReadIncidents_CSVMissingCoordinates(t *testing.T) {
	_, err := ReadIncidents("x.csv", strings.NewReader("id,tipo_crimen,longitud\n1,Hurto,-75\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadIncidents_UnsupportedFormat(t *testing.T) {
	_, err := ReadIncidents("incidents.xlsx", strings.NewReader(""))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeIncidentMessage_Feature(t *testing.T) {
	msg := `{"type": "Feature", "id": "k-1",
	  "properties": {"tipo_crimen": "Hurto", "fecha": "2024-03-05", "barrio": "Centro", "habitante_calle": 1},
	  "geometry": {"type": "Point", "coordinates": [-75.5, 6.25]}}`

	ds, err := DecodeIncidentMessage([]byte(msg))
	require.NoError(t, err)

	require.Len(t, ds.Incidents, 1)
	inc := ds.Incidents[0]
	assert.Equal(t, "k-1", inc.ID)
	assert.Equal(t, "Hurto", inc.Category)
	assert.True(t, inc.HasLocation)
	assert.True(t, inc.Flag(domain.FlagStreetDweller))
	assert.True(t, ds.HasFlagColumn(domain.FlagStreetDweller))
	assert.False(t, ds.HasTimeOfDay)
}

func TestDecodeIncidentMessage_Collection(t *testing.T) {
	ds, err := DecodeIncidentMessage([]byte(incidentsJSON))
	require.NoError(t, err)
	assert.Len(t, ds.Incidents, 2)
	assert.True(t, ds.HasTimeOfDay)
}

func TestDecodeIncidentMessage_Errors(t *testing.T) {
	_, err := DecodeIncidentMessage([]byte("not json"))
	require.Error(t, err)

	_, err = DecodeIncidentMessage([]byte(`{"type": "Point", "coordinates": [0, 0]}`))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWriteIncidents_ReadBack(t *testing.T) {
	age := 40
	ds := domain.Dataset{
		Incidents: []domain.Incident{{
			ID: "9", Category: "Hurto", RawDate: "2024-02-01", TimeOfDay: "08:30",
			Neighborhood: "Centro", Sex: domain.SexFemale, Age: &age,
			Flags:    map[domain.SocialFlag]bool{domain.FlagLGBTI: true},
			Location: orb.Point{-75.5, 6.2}, HasLocation: true,
		}},
		HasTimeOfDay: true,
		Columns:      map[domain.SocialFlag]bool{domain.FlagLGBTI: true},
	}

	for _, name := range []string{"out.csv", "out.geojson"} {
		t.Run(name, func(t *testing.T) {
			var buf strings.Builder
			require.NoError(t, WriteIncidents(name, &buf, ds))

			got, err := ReadIncidents(name, strings.NewReader(buf.String()))
			require.NoError(t, err)
			require.Len(t, got.Incidents, 1)

			inc := got.Incidents[0]
			assert.Equal(t, "9", inc.ID)
			assert.Equal(t, "08:30", inc.TimeOfDay)
			assert.Equal(t, orb.Point{-75.5, 6.2}, inc.Location)
			require.NotNil(t, inc.Age)
			assert.Equal(t, 40, *inc.Age)
			assert.True(t, inc.Flag(domain.FlagLGBTI))
			assert.True(t, got.HasTimeOfDay)
			assert.False(t, got.HasFlagColumn(domain.FlagSexWork))
		})
	}
}

func TestWriteIncidents_UnsupportedFormat(t *testing.T) {
	err := WriteIncidents("out.parquet", io.Discard, domain.Dataset{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	hoodPath := filepath.Join(dir, "barrios.geojson")
	incPath := filepath.Join(dir, "incidents.json")
	require.NoError(t, os.WriteFile(hoodPath, []byte(neighborhoodsJSON), 0o600))
	require.NoError(t, os.WriteFile(incPath, []byte(incidentsJSON), 0o600))

	hoods, err := LoadNeighborhoods(hoodPath, DefaultNameProperty)
	require.NoError(t, err)
	assert.Len(t, hoods, 2)

	ds, err := LoadIncidents(incPath)
	require.NoError(t, err)
	assert.Len(t, ds.Incidents, 2)

	_, err = LoadIncidents(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		in       any
		expected bool
	}{
		{float64(1), true},
		{float64(0), false},
		{float64(2), false},
		{"1", true},
		{"0", false},
		{"true", true},
		{true, true},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, asBool(tt.in), "%v", tt.in)
	}
}
