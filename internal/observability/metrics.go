package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crime_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	Renders           *prometheus.CounterVec   // labels: view={options,points,choropleth,ranking,forecast,chart,export}
	RenderErrors      *prometheus.CounterVec   // labels: view
	RenderDuration    *prometheus.HistogramVec // labels: view
	FilteredIncidents prometheus.Histogram

	// Forecast metrics.
	ForecastDuration *prometheus.HistogramVec // labels: model
	ForecastErrors   *prometheus.CounterVec   // labels: model, reason={insufficient_data,invalid_window,invalid_horizon,unknown_model,other}
	ForecastCache    *prometheus.CounterVec   // labels: result={hit,miss}

	// Dataset metrics.
	DatasetIncidents     prometheus.Gauge
	DatasetNeighborhoods prometheus.Gauge
	Uploads              *prometheus.CounterVec // labels: outcome={success,error}
	ReportsPublished     *prometheus.CounterVec // labels: outcome={success,error}

	// Incident stream ingestion.
	MessagesConsumed        prometheus.Counter
	IncidentsIngested       prometheus.Counter
	DecodeErrors            prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the dashboard metrics and registers them with reg.
// One-shot commands pass a private registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.Renders,
		m.RenderErrors,
		m.RenderDuration,
		m.FilteredIncidents,
		m.ForecastDuration,
		m.ForecastErrors,
		m.ForecastCache,
		m.DatasetIncidents,
		m.DatasetNeighborhoods,
		m.Uploads,
		m.ReportsPublished,
		m.MessagesConsumed,
		m.IncidentsIngested,
		m.DecodeErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Dashboard views rendered, by view.",
		}, []string{"view"}),
		RenderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Dashboard views that failed to render, by view.",
		}, []string{"view"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete render pass, by view.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"view"}),
		FilteredIncidents: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filtered_incidents",
			Help:      "Incidents remaining after the filter engine per render.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		ForecastDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Model fit and predict duration, by model.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"model"}),
		ForecastErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_errors_total",
			Help:      "Forecast requests that failed, by model and reason.",
		}, []string{"model", "reason"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		DatasetIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_incidents",
			Help:      "Incidents in the active dataset.",
		}),
		DatasetNeighborhoods: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_neighborhoods",
			Help:      "Neighborhood boundaries loaded.",
		}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Incident dataset uploads, by outcome.",
		}, []string{"outcome"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Dashboard reports written to Kafka, by outcome.",
		}, []string{"outcome"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total messages read from the incident topic.",
		}),
		IncidentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_ingested_total",
			Help:      "Total incidents appended to the active dataset from the stream.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total incident messages that could not be decoded.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-decode-append cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
