package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

const (
	testNeighborhoods = "testdata/barrios.geojson"
	testIncidents     = "testdata/incidents.csv"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("NEIGHBORHOODS_PATH", testNeighborhoods)
	t.Setenv("INCIDENTS_PATH", testIncidents)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testNeighborhoods, cfg.NeighborhoodsPath)
	assert.Equal(t, testIncidents, cfg.IncidentsPath)
	assert.Equal(t, "NOMBRE", cfg.NameProperty)
	assert.False(t, cfg.AttributeByLocation)
	assert.Equal(t, domain.FixedScheme{}, cfg.ColorScheme)
	assert.Equal(t, forecast.Request{Window: 52, Horizon: 12, Model: forecast.KindDecomposition}, cfg.Forecast)
	assert.Equal(t, 64, cfg.ForecastCacheSize)
	assert.Equal(t, int64(32<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "crime-dashboard-reports", cfg.KafkaReportTopic)
	assert.Empty(t, cfg.KafkaIncidentTopic)
	assert.Equal(t, "crime-dashboard", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("NEIGHBORHOOD_NAME_PROPERTY", "name")
	t.Setenv("ATTRIBUTE_BY_LOCATION", "true")
	t.Setenv("COLOR_SCHEME", "continuous")
	t.Setenv("FORECAST_WINDOW", "26")
	t.Setenv("FORECAST_HORIZON", "4")
	t.Setenv("FORECAST_MODEL", "tree")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_REPORT_TOPIC", "reports")
	t.Setenv("KAFKA_INCIDENT_TOPIC", "incidents")
	t.Setenv("KAFKA_GROUP_ID", "dash-1")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "name", cfg.NameProperty)
	assert.True(t, cfg.AttributeByLocation)
	assert.Equal(t, domain.SchemeContinuous, cfg.ColorScheme.Name())
	assert.Equal(t, forecast.Request{Window: 26, Horizon: 4, Model: forecast.KindTree}, cfg.Forecast)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "reports", cfg.KafkaReportTopic)
	assert.Equal(t, "incidents", cfg.KafkaIncidentTopic)
	assert.Equal(t, "dash-1", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchFlushInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"COLOR_SCHEME", "rainbow"},
		{"FORECAST_MODEL", "lstm"},
		{"FORECAST_WINDOW", "0"},
		{"FORECAST_HORIZON", "soon"},
		{"FORECAST_CACHE_SIZE", "-1"},
		{"MAX_UPLOAD_BYTES", "-5"},
		{"ATTRIBUTE_BY_LOCATION", "maybe"},
		{"KAFKA_ENABLED", "yes please"},
		{"BATCH_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_MissingDatasets(t *testing.T) {
	t.Setenv("NEIGHBORHOODS_PATH", "")
	t.Setenv("INCIDENTS_PATH", testIncidents)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEIGHBORHOODS_PATH")

	t.Setenv("NEIGHBORHOODS_PATH", testNeighborhoods)
	t.Setenv("INCIDENTS_PATH", "")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INCIDENTS_PATH")
}
