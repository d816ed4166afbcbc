// Package dashboard holds the active datasets and runs every render pass
// against an immutable snapshot of them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

// ErrNotLoaded is returned by render passes before any dataset has been loaded.
var ErrNotLoaded = errors.New("dataset not loaded")

// Render pass names used for logging and metric labels.
const (
	ViewOptions    = "options"
	ViewPoints     = "points"
	ViewChoropleth = "choropleth"
	ViewRanking    = "ranking"
	ViewForecast   = "forecast"
	ViewDashboard  = "dashboard"
	ViewIntegrity  = "integrity"
	ViewReport     = "report"
)

// Snapshot is one immutable pairing of incidents and boundaries. The weekly
// series is computed once per snapshot over the unfiltered incidents.
type Snapshot struct {
	Version       uint64
	Dataset       domain.Dataset
	Neighborhoods []domain.Neighborhood
	Series        domain.WeeklySeries
	Source        string
	LoadedAt      time.Time
}

// Settings are the session defaults applied when a request leaves them unset.
type Settings struct {
	Scheme              domain.ColorScheme
	Forecast            forecast.Request
	AttributeByLocation bool

	// ForecastCacheSize bounds the forecast results kept per session; zero disables caching.
	ForecastCacheSize int
}

// Session serves render passes over the current snapshot. Loading a new
// dataset swaps the snapshot atomically; passes already running keep the one
// they started with.
type Session struct {
	current  atomic.Pointer[Snapshot]
	versions atomic.Uint64
	settings Settings
	cache    *lruCache[forecast.Result]
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewSession creates an empty session. Every render pass returns ErrNotLoaded
// until Load succeeds.
func NewSession(settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Session {
	if settings.Scheme == nil {
		settings.Scheme = domain.FixedScheme{}
	}
	return &Session{
		settings: settings,
		cache:    newLRUCache[forecast.Result](settings.ForecastCacheSize),
		logger:   logger,
		metrics:  metrics,
	}
}

// Settings returns the session defaults.
func (s *Session) Settings() Settings {
	return s.settings
}

// Load installs a new snapshot built from ds and neighborhoods.
func (s *Session) Load(ds domain.Dataset, neighborhoods []domain.Neighborhood, source string) *Snapshot {
	snap := s.newSnapshot(s.attribute(ds, neighborhoods), neighborhoods, source)
	s.current.Store(snap)

	s.record(snap)
	s.logger.Info("dataset loaded",
		"source", source,
		"incidents", len(snap.Dataset.Incidents),
		"neighborhoods", len(neighborhoods),
		"weeks", len(snap.Series),
	)
	return snap
}

// AppendIncidents adds ds to the current dataset and keeps the boundaries.
// A concurrent reload or append makes it retry against the newer snapshot,
// so no update is lost.
func (s *Session) AppendIncidents(ds domain.Dataset, source string) error {
	for {
		cur := s.current.Load()
		if cur == nil {
			return ErrNotLoaded
		}
		added := s.attribute(ds, cur.Neighborhoods)
		next := s.newSnapshot(cur.Dataset.Merge(added), cur.Neighborhoods, source)
		if s.current.CompareAndSwap(cur, next) {
			s.record(next)
			s.logger.Debug("incidents appended",
				"source", source,
				"added", len(added.Incidents),
				"total", len(next.Dataset.Incidents),
			)
			return nil
		}
	}
}

func (s *Session) newSnapshot(ds domain.Dataset, neighborhoods []domain.Neighborhood, source string) *Snapshot {
	return &Snapshot{
		Version:       s.versions.Add(1),
		Dataset:       ds,
		Neighborhoods: neighborhoods,
		Series:        domain.WeeklyCounts(ds.Incidents),
		Source:        source,
		LoadedAt:      domain.Now(),
	}
}

func (s *Session) attribute(ds domain.Dataset, neighborhoods []domain.Neighborhood) domain.Dataset {
	if !s.settings.AttributeByLocation {
		return ds
	}
	out, n := domain.AttributeByLocation(ds, neighborhoods)
	if n > 0 {
		s.logger.Info("attributed incidents by location", "count", n)
	}
	return out
}

func (s *Session) record(snap *Snapshot) {
	s.metrics.DatasetIncidents.Set(float64(len(snap.Dataset.Incidents)))
	s.metrics.DatasetNeighborhoods.Set(float64(len(snap.Neighborhoods)))
}

// ReplaceIncidents swaps in a new incident dataset and keeps the current boundaries.
func (s *Session) ReplaceIncidents(ds domain.Dataset, source string) error {
	snap := s.current.Load()
	if snap == nil {
		s.metrics.Uploads.WithLabelValues("error").Inc()
		return ErrNotLoaded
	}
	s.Load(ds, snap.Neighborhoods, source)
	s.metrics.Uploads.WithLabelValues("success").Inc()
	return nil
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// CheckReadiness returns nil once a dataset has been loaded.
func (s *Session) CheckReadiness(_ context.Context) error {
	if s.current.Load() == nil {
		return errors.New("no dataset loaded yet")
	}
	return nil
}

// Options returns the selectable filter values for the current dataset.
func (s *Session) Options() (domain.Options, error) {
	snap, err := s.begin(ViewOptions)
	if err != nil {
		return domain.Options{}, err
	}
	defer s.observe(ViewOptions, time.Now())
	return domain.BuildOptions(snap.Dataset, snap.Neighborhoods), nil
}

// Filter runs the filter engine against the current dataset.
func (s *Session) Filter(c domain.FilterCriteria) ([]domain.Incident, error) {
	snap, err := s.begin(ViewPoints)
	if err != nil {
		return nil, err
	}
	return s.filter(snap, ViewPoints, c)
}

// PointMap renders the filtered incidents as map markers.
func (s *Session) PointMap(c domain.FilterCriteria) (domain.PointMap, []domain.Incident, error) {
	snap, err := s.begin(ViewPoints)
	if err != nil {
		return domain.PointMap{}, nil, err
	}
	defer s.observe(ViewPoints, time.Now())

	filtered, err := s.filter(snap, ViewPoints, c)
	if err != nil {
		return domain.PointMap{}, nil, err
	}
	return domain.BuildPointMap(filtered), filtered, nil
}

// Choropleth classifies every neighborhood by its filtered incident count.
// A nil scheme uses the session default.
func (s *Session) Choropleth(c domain.FilterCriteria, scheme domain.ColorScheme) ([]domain.NeighborhoodStat, error) {
	snap, err := s.begin(ViewChoropleth)
	if err != nil {
		return nil, err
	}
	defer s.observe(ViewChoropleth, time.Now())

	filtered, err := s.filter(snap, ViewChoropleth, c)
	if err != nil {
		return nil, err
	}
	return domain.Classify(filtered, snap.Neighborhoods, s.scheme(scheme)), nil
}

// Ranking returns the neighborhood statistics table ordered by count.
func (s *Session) Ranking(c domain.FilterCriteria, scheme domain.ColorScheme) ([]domain.NeighborhoodStat, error) {
	snap, err := s.begin(ViewRanking)
	if err != nil {
		return nil, err
	}
	defer s.observe(ViewRanking, time.Now())

	filtered, err := s.filter(snap, ViewRanking, c)
	if err != nil {
		return nil, err
	}
	return domain.Rank(domain.Classify(filtered, snap.Neighborhoods, s.scheme(scheme))), nil
}

// Forecast fits the requested model on the unfiltered weekly series. Zero
// request fields take the session defaults.
func (s *Session) Forecast(req forecast.Request) (forecast.Result, error) {
	snap, err := s.begin(ViewForecast)
	if err != nil {
		return forecast.Result{}, err
	}
	return s.forecast(snap, s.withDefaults(req))
}

// Integrity audits the current snapshot.
func (s *Session) Integrity() (domain.IntegrityReport, error) {
	snap, err := s.begin(ViewIntegrity)
	if err != nil {
		return domain.IntegrityReport{}, err
	}
	defer s.observe(ViewIntegrity, time.Now())
	return domain.CheckIntegrity(snap.Dataset, snap.Neighborhoods), nil
}

func (s *Session) begin(view string) (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		s.metrics.RenderErrors.WithLabelValues(view).Inc()
		return nil, ErrNotLoaded
	}
	s.metrics.Renders.WithLabelValues(view).Inc()
	return snap, nil
}

func (s *Session) observe(view string, start time.Time) {
	s.metrics.RenderDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

func (s *Session) filter(snap *Snapshot, view string, c domain.FilterCriteria) ([]domain.Incident, error) {
	if err := c.Validate(); err != nil {
		s.metrics.RenderErrors.WithLabelValues(view).Inc()
		return nil, err
	}
	filtered := domain.Apply(snap.Dataset, c)
	s.metrics.FilteredIncidents.Observe(float64(len(filtered)))
	s.logger.Debug("filter applied", "view", view, "matched", len(filtered), "total", len(snap.Dataset.Incidents))
	return filtered, nil
}

// forecast serves repeated requests against the same snapshot from the cache.
// Failures are not cached.
func (s *Session) forecast(snap *Snapshot, req forecast.Request) (forecast.Result, error) {
	key := fmt.Sprintf("%d|%s|%d|%d", snap.Version, req.Model, req.Window, req.Horizon)
	if res, ok := s.cache.get(key); ok {
		s.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return res, nil
	}
	s.metrics.ForecastCache.WithLabelValues("miss").Inc()

	start := time.Now()
	res, err := forecast.Forecast(snap.Series, req)
	if err != nil {
		s.metrics.ForecastErrors.WithLabelValues(string(req.Model), forecastErrorReason(err)).Inc()
		s.logger.Warn("forecast failed",
			"model", req.Model,
			"window", req.Window,
			"horizon", req.Horizon,
			"error", err,
		)
		return forecast.Result{}, fmt.Errorf("forecast %s: %w", req.Model, err)
	}
	s.metrics.ForecastDuration.WithLabelValues(string(req.Model)).Observe(time.Since(start).Seconds())
	s.cache.put(key, res)
	return res, nil
}

func (s *Session) scheme(override domain.ColorScheme) domain.ColorScheme {
	if override != nil {
		return override
	}
	return s.settings.Scheme
}

func (s *Session) withDefaults(req forecast.Request) forecast.Request {
	if req.Window == 0 {
		req.Window = s.settings.Forecast.Window
	}
	if req.Horizon == 0 {
		req.Horizon = s.settings.Forecast.Horizon
	}
	if req.Model == "" {
		req.Model = s.settings.Forecast.Model
	}
	return req
}

func forecastErrorReason(err error) string {
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, forecast.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return "invalid_horizon"
	case errors.Is(err, forecast.ErrUnknownModel):
		return "unknown_model"
	default:
		return "other"
	}
}
