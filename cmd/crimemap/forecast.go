package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/chart"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

type forecastOptions struct {
	forecastFlags
	asJSON bool
	chart  string
}

func newForecastCmd(a *app) *cobra.Command {
	opts := &forecastOptions{}
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast weekly incident counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.forecast(cmd.OutOrStdout(), opts)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "also write the forecast chart to this PNG file")
	return cmd
}

func (a *app) forecast(w io.Writer, opts *forecastOptions) error {
	req, err := opts.request()
	if err != nil {
		return err
	}
	session, err := a.newSession(observability.NewMetricsWith(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	res, err := session.Forecast(req)
	if err != nil {
		return err
	}

	if opts.chart != "" {
		if err := writeChart(opts.chart, res); err != nil {
			return err
		}
		a.logger.Info("chart written", "path", opts.chart)
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printForecast(w, res)
}

func writeChart(path string, res forecast.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.Forecast(f, res, chart.DefaultSize); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printForecast renders the training summary and one row per predicted week.
func printForecast(w io.Writer, res forecast.Result) error {
	fmt.Fprintf(w, "model %s, window %d weeks (%s to %s)\n\n",
		res.Model, res.Window,
		res.TrainingStart.Format(time.DateOnly), res.TrainingEnd.Format(time.DateOnly))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "week\tpredicted\t")
	for _, p := range res.Predicted {
		fmt.Fprintf(tw, "%s\t%.1f\t\n", p.Date.Format(time.DateOnly), p.Value)
	}
	return tw.Flush()
}
