package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/adapter/geodata"
	"github.com/couchcryptid/crime-dashboard/internal/config"
	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

// app carries the configuration and logger initialized before every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

type rootOptions struct {
	envFile       string
	neighborhoods string
	incidents     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "crimemap",
		Short: "Filter, classify, and forecast crime incidents by neighborhood",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init(opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&opts.neighborhoods, "neighborhoods", "", "neighborhood GeoJSON (overrides NEIGHBORHOODS_PATH)")
	pf.StringVar(&opts.incidents, "incidents", "", "incident GeoJSON or CSV (overrides INCIDENTS_PATH)")

	cmd.AddCommand(
		newServeCmd(a),
		newForecastCmd(a),
		newExportCmd(a),
		newPublishCmd(a),
		newValidateCmd(a),
		newGenmockCmd(opts),
	)
	return cmd
}

func (a *app) init(opts *rootOptions) error {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}
	overrides := map[string]string{
		"NEIGHBORHOODS_PATH": opts.neighborhoods,
		"INCIDENTS_PATH":     opts.incidents,
	}
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := os.Setenv(key, v); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	return nil
}

// newSession loads both datasets from disk into a fresh session.
func (a *app) newSession(metrics *observability.Metrics) (*dashboard.Session, error) {
	hoods, err := geodata.LoadNeighborhoods(a.cfg.NeighborhoodsPath, a.cfg.NameProperty)
	if err != nil {
		return nil, fmt.Errorf("load neighborhoods: %w", err)
	}
	ds, err := geodata.LoadIncidents(a.cfg.IncidentsPath)
	if err != nil {
		return nil, fmt.Errorf("load incidents: %w", err)
	}

	session := dashboard.NewSession(dashboard.Settings{
		Scheme:              a.cfg.ColorScheme,
		Forecast:            a.cfg.Forecast,
		AttributeByLocation: a.cfg.AttributeByLocation,
		ForecastCacheSize:   a.cfg.ForecastCacheSize,
	}, a.logger, metrics)
	session.Load(ds, hoods, filepath.Base(a.cfg.IncidentsPath))
	return session, nil
}
