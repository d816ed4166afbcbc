package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/crime-dashboard/internal/adapter/geodata"
	"github.com/couchcryptid/crime-dashboard/internal/chart"
	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/export"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	uploadField     = "file"
)

type incidentsResponse struct {
	Matched   int               `json:"matched"`
	Points    domain.PointMap   `json:"points"`
	Incidents []domain.Incident `json:"incidents"`
}

type uploadResponse struct {
	Source       string `json:"source"`
	Incidents    int    `json:"incidents"`
	HasTimeOfDay bool   `json:"has_time_of_day"`
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	opts, err := s.session.Options()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	scheme, err := parseScheme(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req, err := parseForecastRequest(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	v, err := s.session.Render(c, scheme, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}
	pm, filtered, err := s.session.PointMap(c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incidentsResponse{Matched: len(filtered), Points: pm, Incidents: filtered})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, uploadError(err))
		return
	}
	defer file.Close()

	ds, err := geodata.ReadIncidents(header.Filename, file)
	if err != nil {
		s.writeError(w, uploadError(err))
		return
	}
	if err := s.session.ReplaceIncidents(ds, header.Filename); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Source:       header.Filename,
		Incidents:    len(ds.Incidents),
		HasTimeOfDay: ds.HasTimeOfDay,
	})
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	scheme, err := parseScheme(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.session.Choropleth(c, scheme)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	scheme, err := parseScheme(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	stats, err := s.session.Ranking(c, scheme)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	res, ok := s.forecast(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForecastChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.forecast(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.Forecast(&buf, res, chart.Size{}); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client disconnects are not actionable
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) (forecast.Result, bool) {
	req, err := parseForecastRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return forecast.Result{}, false
	}
	res, err := s.session.Forecast(req)
	if err != nil {
		s.writeError(w, err)
		return forecast.Result{}, false
	}
	return res, true
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	scheme, err := parseScheme(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req, err := parseForecastRequest(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	v, err := s.session.Render(c, scheme, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.Workbook{Incidents: v.Incidents, Ranking: v.Ranking, Forecast: v.Forecast}); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="crime-dashboard.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client disconnects are not actionable
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req, err := parseForecastRequest(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.session.PublishReport(r.Context(), s.publisher, c, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}

func (s *Server) handleIntegrity(w http.ResponseWriter, _ *http.Request) {
	report, err := s.session.Integrity()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clean":  report.Clean(),
		"issues": report.Issues(),
		"report": report,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidCriteria),
		errors.Is(err, forecast.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrInvalidWindow),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, chart.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
