package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
)

// Options configures the HTTP server.
type Options struct {
	Addr           string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Publisher enables POST /api/v1/reports when set.
	Publisher dashboard.ReportPublisher
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	session    *dashboard.Session
	publisher  dashboard.ReportPublisher
	maxUpload  int64
	logger     *slog.Logger
}

// NewServer creates an HTTP server routing /healthz, /readyz, /metrics, and /api/v1.
func NewServer(opts Options, session *dashboard.Session, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session:   session,
		publisher: opts.Publisher,
		maxUpload: opts.MaxUploadBytes,
		logger:    logger,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", sharedobs.LivenessHandler())
	router.Get("/readyz", sharedobs.ReadinessHandler(session))
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/incidents", s.handleIncidents)
		r.Post("/incidents", s.handleUpload)
		r.Get("/choropleth", s.handleChoropleth)
		r.Get("/ranking", s.handleRanking)
		r.Get("/forecast", s.handleForecast)
		r.Get("/forecast/chart.png", s.handleForecastChart)
		r.Get("/export.xlsx", s.handleExport)
		r.Get("/integrity", s.handleIntegrity)
		if s.publisher != nil {
			r.Post("/reports", s.handlePublish)
		}
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
