package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

var errBadRequest = errors.New("bad request")

// parseCriteria builds filter criteria from query parameters. category and
// flag may repeat or hold comma-separated values.
func parseCriteria(q url.Values) (domain.FilterCriteria, error) {
	c := domain.FilterCriteria{
		Neighborhood: strings.TrimSpace(q.Get("neighborhood")),
		Categories:   listParam(q, "category"),
		Sex:          strings.ToUpper(strings.TrimSpace(q.Get("sex"))),
	}

	var err error
	if c.Dates.From, err = dateParam(q, "from"); err != nil {
		return domain.FilterCriteria{}, err
	}
	if c.Dates.To, err = dateParam(q, "to"); err != nil {
		return domain.FilterCriteria{}, err
	}

	if q.Has("hour_min") || q.Has("hour_max") {
		h := domain.AllDay
		if h.Min, err = intParam(q, "hour_min", h.Min); err != nil {
			return domain.FilterCriteria{}, err
		}
		if h.Max, err = intParam(q, "hour_max", h.Max); err != nil {
			return domain.FilterCriteria{}, err
		}
		c.Hours = &h
	}

	for _, name := range listParam(q, "flag") {
		f, ok := domain.ParseSocialFlag(name)
		if !ok {
			return domain.FilterCriteria{}, fmt.Errorf("%w: unknown flag %q", errBadRequest, name)
		}
		c.RequiredFlags = append(c.RequiredFlags, f)
	}

	if err := c.Validate(); err != nil {
		return domain.FilterCriteria{}, err
	}
	return c, nil
}

// parseScheme returns nil when no scheme is requested.
func parseScheme(q url.Values) (domain.ColorScheme, error) {
	name := q.Get("scheme")
	if name == "" {
		return nil, nil
	}
	scheme, err := domain.ParseColorScheme(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return scheme, nil
}

// parseForecastRequest leaves absent fields zero so the session defaults apply.
func parseForecastRequest(q url.Values) (forecast.Request, error) {
	var (
		req forecast.Request
		err error
	)
	if req.Window, err = intParam(q, "window", 0); err != nil {
		return forecast.Request{}, err
	}
	if req.Horizon, err = intParam(q, "horizon", 0); err != nil {
		return forecast.Request{}, err
	}
	if m := q.Get("model"); m != "" {
		if req.Model, err = forecast.ParseKind(m); err != nil {
			return forecast.Request{}, err
		}
	}
	return req, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dateParam(q url.Values, key string) (time.Time, error) {
	s := q.Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, key)
	}
	return t, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

// uploadError marks malformed uploads as client errors.
func uploadError(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}
