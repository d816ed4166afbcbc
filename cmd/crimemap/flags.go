package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

// criteriaFlags binds the filter controls to command-line flags.
type criteriaFlags struct {
	neighborhood string
	categories   []string
	sex          string
	from, to     string
	hourMin      int
	hourMax      int
	flags        []string
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.neighborhood, "neighborhood", domain.AllOption, "neighborhood name")
	fs.StringSliceVar(&f.categories, "category", nil, "crime categories (repeatable)")
	fs.StringVar(&f.sex, "sex", domain.AllOption, "victim sex (M or F)")
	fs.StringVar(&f.from, "from", "", "first day, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "last day, YYYY-MM-DD")
	fs.IntVar(&f.hourMin, "hour-min", domain.AllDay.Min, "first hour of day")
	fs.IntVar(&f.hourMax, "hour-max", domain.AllDay.Max, "last hour of day")
	fs.StringSliceVar(&f.flags, "flag", nil, "required social flags: habitante_calle, prostitucion, lgtbi, grupo_etnico")
}

func (f *criteriaFlags) criteria(cmd *cobra.Command) (domain.FilterCriteria, error) {
	c := domain.FilterCriteria{
		Neighborhood: f.neighborhood,
		Categories:   f.categories,
		Sex:          strings.ToUpper(f.sex),
	}
	if c.Sex == strings.ToUpper(domain.AllOption) {
		c.Sex = domain.AllOption
	}

	var err error
	if c.Dates.From, err = parseDay("from", f.from); err != nil {
		return domain.FilterCriteria{}, err
	}
	if c.Dates.To, err = parseDay("to", f.to); err != nil {
		return domain.FilterCriteria{}, err
	}
	if cmd.Flags().Changed("hour-min") || cmd.Flags().Changed("hour-max") {
		c.Hours = &domain.HourRange{Min: f.hourMin, Max: f.hourMax}
	}
	for _, name := range f.flags {
		flag, ok := domain.ParseSocialFlag(strings.TrimSpace(name))
		if !ok {
			return domain.FilterCriteria{}, fmt.Errorf("unknown flag %q", name)
		}
		c.RequiredFlags = append(c.RequiredFlags, flag)
	}
	return c, c.Validate()
}

func parseDay(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}

// forecastFlags binds the forecast controls. Zero values defer to the configuration.
type forecastFlags struct {
	window  int
	horizon int
	model   string
}

func (f *forecastFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.window, "window", 0, "training window in weeks (default FORECAST_WINDOW)")
	fs.IntVar(&f.horizon, "horizon", 0, "weeks to forecast (default FORECAST_HORIZON)")
	fs.StringVar(&f.model, "model", "", "decomposition, linear, or tree (default FORECAST_MODEL)")
}

func (f *forecastFlags) request() (forecast.Request, error) {
	req := forecast.Request{Window: f.window, Horizon: f.horizon}
	if f.model != "" {
		kind, err := forecast.ParseKind(f.model)
		if err != nil {
			return forecast.Request{}, err
		}
		req.Model = kind
	}
	return req, nil
}

// parseSchemeFlag returns nil for an empty name so the session default applies.
func parseSchemeFlag(name string) (domain.ColorScheme, error) {
	if name == "" {
		return nil, nil
	}
	return domain.ParseColorScheme(name)
}
