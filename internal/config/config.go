package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Input datasets.
	NeighborhoodsPath   string
	IncidentsPath       string
	NameProperty        string
	AttributeByLocation bool

	ColorScheme domain.ColorScheme

	// Default forecast request when the caller does not supply one.
	Forecast          forecast.Request
	ForecastCacheSize int

	MaxUploadBytes int64
	CORSOrigins    []string

	// Report publishing and incident stream ingestion.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaReportTopic   string
	KafkaIncidentTopic string // empty disables ingestion
	KafkaGroupID       string

	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	scheme, err := domain.ParseColorScheme(sharedcfg.EnvOrDefault("COLOR_SCHEME", "fixed"))
	if err != nil {
		return nil, fmt.Errorf("invalid COLOR_SCHEME: %w", err)
	}

	model, err := forecast.ParseKind(sharedcfg.EnvOrDefault("FORECAST_MODEL", string(forecast.KindDecomposition)))
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_MODEL: %w", err)
	}
	window, err := parsePositiveInt("FORECAST_WINDOW", 52)
	if err != nil {
		return nil, err
	}
	horizon, err := parsePositiveInt("FORECAST_HORIZON", 12)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("FORECAST_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	maxUpload, err := parsePositiveInt("MAX_UPLOAD_BYTES", 32<<20)
	if err != nil {
		return nil, err
	}

	attribute, err := parseBool("ATTRIBUTE_BY_LOCATION", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NeighborhoodsPath:   os.Getenv("NEIGHBORHOODS_PATH"),
		IncidentsPath:       os.Getenv("INCIDENTS_PATH"),
		NameProperty:        sharedcfg.EnvOrDefault("NEIGHBORHOOD_NAME_PROPERTY", "NOMBRE"),
		AttributeByLocation: attribute,

		ColorScheme: scheme,
		Forecast: forecast.Request{
			Window:  window,
			Horizon: horizon,
			Model:   model,
		},
		ForecastCacheSize: cacheSize,

		MaxUploadBytes: int64(maxUpload),
		CORSOrigins:    splitList(sharedcfg.EnvOrDefault("CORS_ORIGINS", "*")),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "crime-dashboard-reports"),
		KafkaIncidentTopic: os.Getenv("KAFKA_INCIDENT_TOPIC"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crime-dashboard"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.NeighborhoodsPath == "" {
		return nil, errors.New("NEIGHBORHOODS_PATH is required")
	}
	if cfg.IncidentsPath == "" {
		return nil, errors.New("INCIDENTS_PATH is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaReportTopic == "" {
			return nil, errors.New("KAFKA_REPORT_TOPIC is required")
		}
		if cfg.KafkaIncidentTopic != "" && cfg.KafkaGroupID == "" {
			return nil, errors.New("KAFKA_GROUP_ID is required when KAFKA_INCIDENT_TOPIC is set")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
