package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

// View is one full dashboard render for a set of criteria. A forecast failure
// does not fail the render; it is reported in ForecastError and Forecast is nil.
type View struct {
	Criteria      domain.FilterCriteria     `json:"criteria"`
	Matched       int                       `json:"matched"`
	Incidents     []domain.Incident         `json:"incidents"`
	Points        domain.PointMap           `json:"points"`
	Choropleth    []domain.NeighborhoodStat `json:"choropleth"`
	Ranking       []domain.NeighborhoodStat `json:"ranking"`
	Forecast      *forecast.Result          `json:"forecast,omitempty"`
	ForecastError string                    `json:"forecast_error,omitempty"`
}

// Render runs every pass against a single snapshot so all parts of the view
// agree on the data they describe.
func (s *Session) Render(c domain.FilterCriteria, scheme domain.ColorScheme, req forecast.Request) (View, error) {
	snap, err := s.begin(ViewDashboard)
	if err != nil {
		return View{}, err
	}
	defer s.observe(ViewDashboard, time.Now())
	return s.render(snap, ViewDashboard, c, scheme, req)
}

func (s *Session) render(snap *Snapshot, view string, c domain.FilterCriteria, scheme domain.ColorScheme, req forecast.Request) (View, error) {
	filtered, err := s.filter(snap, view, c)
	if err != nil {
		return View{}, err
	}

	stats := domain.Classify(filtered, snap.Neighborhoods, s.scheme(scheme))
	v := View{
		Criteria:   c,
		Matched:    len(filtered),
		Incidents:  filtered,
		Points:     domain.BuildPointMap(filtered),
		Choropleth: stats,
		Ranking:    domain.Rank(stats),
	}

	res, err := s.forecast(snap, s.withDefaults(req))
	if err != nil {
		v.ForecastError = err.Error()
	} else {
		v.Forecast = &res
	}
	return v, nil
}

// Report is a publishable summary of one render: the ranking table plus the
// forecast, stamped with an ID and generation time.
type Report struct {
	ID            uuid.UUID                 `json:"id"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Source        string                    `json:"source"`
	Criteria      domain.FilterCriteria     `json:"criteria"`
	Matched       int                       `json:"matched"`
	Ranking       []domain.NeighborhoodStat `json:"ranking"`
	Forecast      *forecast.Result          `json:"forecast,omitempty"`
	ForecastError string                    `json:"forecast_error,omitempty"`
}

// ReportPublisher delivers reports to an external sink.
type ReportPublisher interface {
	Publish(ctx context.Context, reports []Report) error
}

// Report builds a report for the given criteria and forecast request.
func (s *Session) Report(c domain.FilterCriteria, req forecast.Request) (Report, error) {
	snap, err := s.begin(ViewReport)
	if err != nil {
		return Report{}, err
	}
	defer s.observe(ViewReport, time.Now())

	v, err := s.render(snap, ViewReport, c, nil, req)
	if err != nil {
		return Report{}, err
	}
	return Report{
		ID:            uuid.New(),
		GeneratedAt:   domain.Now(),
		Source:        snap.Source,
		Criteria:      v.Criteria,
		Matched:       v.Matched,
		Ranking:       v.Ranking,
		Forecast:      v.Forecast,
		ForecastError: v.ForecastError,
	}, nil
}

// PublishReport builds a report and hands it to pub.
func (s *Session) PublishReport(ctx context.Context, pub ReportPublisher, c domain.FilterCriteria, req forecast.Request) (Report, error) {
	r, err := s.Report(c, req)
	if err != nil {
		return Report{}, err
	}
	if err := pub.Publish(ctx, []Report{r}); err != nil {
		s.metrics.ReportsPublished.WithLabelValues("error").Inc()
		s.logger.Error("publish report failed", "report_id", r.ID, "error", err)
		return Report{}, err
	}
	s.metrics.ReportsPublished.WithLabelValues("success").Inc()
	s.logger.Info("report published", "report_id", r.ID, "matched", r.Matched)
	return r, nil
}
