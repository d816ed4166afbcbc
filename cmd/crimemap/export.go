package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/export"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

type exportOptions struct {
	criteriaFlags
	forecastFlags
	out    string
	scheme string
}

func newExportCmd(a *app) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered incidents, ranking, and forecast to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.export(cmd, opts)
		},
	}
	opts.criteriaFlags.bind(cmd)
	opts.forecastFlags.bind(cmd)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "dashboard.xlsx", "output workbook path")
	cmd.Flags().StringVar(&opts.scheme, "scheme", "", "fixed or continuous (default COLOR_SCHEME)")
	return cmd
}

func (a *app) export(cmd *cobra.Command, opts *exportOptions) error {
	c, err := opts.criteria(cmd)
	if err != nil {
		return err
	}
	req, err := opts.request()
	if err != nil {
		return err
	}
	scheme, err := parseSchemeFlag(opts.scheme)
	if err != nil {
		return err
	}

	session, err := a.newSession(observability.NewMetricsWith(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	view, err := session.Render(c, scheme, req)
	if err != nil {
		return err
	}
	if view.ForecastError != "" {
		a.logger.Warn("forecast sheet omitted", "error", view.ForecastError)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	wb := export.Workbook{Incidents: view.Incidents, Ranking: view.Ranking, Forecast: view.Forecast}
	if err := export.Write(f, wb); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d incidents, %d neighborhoods\n", opts.out, view.Matched, len(view.Ranking))
	return nil
}
