package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

// maxListed caps the record ids printed per failing phase.
const maxListed = 10

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(a *app) *cobra.Command {
	var skipForecast bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configured datasets for records that will not render as expected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.newSession(observability.NewMetricsWith(prometheus.NewRegistry()))
			if err != nil {
				return err
			}
			return validate(cmd.OutOrStdout(), session, !skipForecast)
		},
	}
	cmd.Flags().BoolVar(&skipForecast, "skip-forecast", false, "do not check the default forecast")
	return cmd
}

func validate(w io.Writer, session *dashboard.Session, checkForecast bool) error {
	report, err := session.Integrity()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "=== Crime Dataset Integrity Validation ===")
	fmt.Fprintln(w)

	phases := []*phase{
		idPhase("Incident locations", "without a usable location", report.MissingLocation),
		idPhase("Incident dates", "with an unparseable date", report.InvalidDates),
		idPhase("Incident hours", "with an unparseable hour", report.InvalidHours),
		idPhase("Incident ids", "duplicated", report.DuplicateIDs),
		neighborhoodPhase(report),
	}
	if checkForecast {
		phases = append(phases, forecastPhase(session))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d incidents, %d neighborhoods\n", report.Incidents, report.Neighborhoods)
	if n := len(report.EmptyNeighborhoods); n > 0 {
		fmt.Fprintf(w, "Neighborhoods without incidents: %d (%s)\n", n, listed(report.EmptyNeighborhoods))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return errors.New("dataset validation failed")
}

func idPhase(name, problem string, ids []string) *phase {
	p := &phase{name: name}
	if len(ids) > 0 {
		p.errorf("%d incidents %s: %s", len(ids), problem, listed(ids))
	}
	return p
}

func neighborhoodPhase(r domain.IntegrityReport) *phase {
	p := &phase{name: "Neighborhood names match boundaries"}
	names := slices.Sorted(maps.Keys(r.UnmatchedNeighborhoods))
	for _, name := range names {
		p.errorf("barrio %q has %d incidents but no polygon", name, r.UnmatchedNeighborhoods[name])
	}
	return p
}

func forecastPhase(session *dashboard.Session) *phase {
	req := session.Settings().Forecast
	p := &phase{name: fmt.Sprintf("Forecast (%s, window %d)", req.Model, req.Window)}
	if _, err := session.Forecast(forecast.Request{}); err != nil {
		p.errorf("%v", err)
	}
	return p
}

func listed(ids []string) string {
	if len(ids) <= maxListed {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, and %d more", strings.Join(ids[:maxListed], ", "), len(ids)-maxListed)
}
