package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/crime-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crime-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
	"github.com/couchcryptid/crime-dashboard/internal/pipeline"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, logger := a.cfg, a.logger
	metrics := observability.NewMetrics()

	session, err := a.newSession(metrics)
	if err != nil {
		return err
	}

	opts := httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	// Report publishing and stream ingestion are feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	var reader *kafkaadapter.Reader
	var ingest *pipeline.Pipeline
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("report publishing enabled", "topic", cfg.KafkaReportTopic)

		if cfg.KafkaIncidentTopic != "" {
			reader = kafkaadapter.NewReader(cfg, logger)
			ingest = pipeline.New(reader, pipeline.NewDecoder(), session, logger, metrics, cfg.BatchSize)
			logger.Info("incident ingestion enabled", "topic", cfg.KafkaIncidentTopic, "group_id", cfg.KafkaGroupID)
		}
	} else {
		logger.Info("kafka disabled")
	}

	srv := httpadapter.NewServer(opts, session, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start ingest pipeline.
	if ingest != nil {
		go func() {
			if err := ingest.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
