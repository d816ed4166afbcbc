// Package forecast predicts weekly incident counts with interchangeable models.
//
// Every model is fitted on the trailing training window of a weekly series and
// emits exactly horizon predictions dated one week apart, starting the week
// after the last training point.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

var (
	// ErrInsufficientData is returned when fewer than two non-null points are available.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidWindow is returned when the training window is < 1 or not shorter than the series.
	ErrInvalidWindow = errors.New("invalid training window")

	// ErrInvalidHorizon is returned when fewer than one week is requested.
	ErrInvalidHorizon = errors.New("invalid horizon")

	// ErrUnknownModel is returned for an unrecognized model kind.
	ErrUnknownModel = errors.New("unknown model")
)

// Kind names a forecasting strategy.
type Kind string

const (
	KindDecomposition Kind = "decomposition"
	KindLinear        Kind = "linear"
	KindTree          Kind = "tree"
)

// Kinds lists every available strategy.
var Kinds = []Kind{KindDecomposition, KindLinear, KindTree}

// ParseKind resolves a model name, accepting a few aliases used by the UI.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decomposition", "prophet", "seasonal":
		return KindDecomposition, nil
	case "linear", "linear_regression", "regression":
		return KindLinear, nil
	case "tree", "decision_tree":
		return KindTree, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// Model fits a strategy to a training series.
type Model interface {
	Fit(training domain.WeeklySeries) (Fitted, error)
}

// Fitted produces point forecasts for the weeks after its training series.
type Fitted interface {
	Predict(horizon int) []Prediction
}

// Prediction is one forecast week.
type Prediction struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// New returns the model for kind with default options.
func New(kind Kind) (Model, error) {
	switch kind {
	case KindDecomposition:
		return NewDecomposition(DecompositionOptions{}), nil
	case KindLinear:
		return Linear{}, nil
	case KindTree:
		return NewTree(TreeOptions{}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
	}
}

// Request selects the training window, horizon, and model for one forecast.
type Request struct {
	Window  int  `json:"window"`
	Horizon int  `json:"horizon"`
	Model   Kind `json:"model"`
}

// Result holds the observed series and the forecast continuing it.
type Result struct {
	Model         Kind                `json:"model"`
	Window        int                 `json:"window"`
	TrainingStart time.Time           `json:"training_start"`
	TrainingEnd   time.Time           `json:"training_end"`
	Actual        domain.WeeklySeries `json:"actual"`
	Predicted     []Prediction        `json:"predicted"`
}

// Forecast fits req.Model on the trailing req.Window weeks of series and
// predicts req.Horizon weeks ahead. series is the full weekly count series.
func Forecast(series domain.WeeklySeries, req Request) (Result, error) {
	if req.Horizon < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidHorizon, req.Horizon)
	}
	model, err := New(req.Model)
	if err != nil {
		return Result{}, err
	}
	if n := series.NonNull(); n < 2 {
		return Result{}, fmt.Errorf("%w: series has %d non-null points", ErrInsufficientData, n)
	}
	if req.Window < 1 || req.Window >= len(series) {
		return Result{}, fmt.Errorf("%w: window %d for series of length %d", ErrInvalidWindow, req.Window, len(series))
	}

	training := series[len(series)-req.Window:]
	fitted, err := model.Fit(training)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Model:         req.Model,
		Window:        req.Window,
		TrainingStart: training[0].WeekStart,
		TrainingEnd:   training.Last(),
		Actual:        series,
		Predicted:     fitted.Predict(req.Horizon),
	}, nil
}

// observations extracts the zero-based index and count of each non-null point.
func observations(training domain.WeeklySeries) (xs, ys []float64, err error) {
	for i, p := range training {
		if math.IsNaN(p.Count) {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, p.Count)
	}
	if len(ys) < 2 {
		return nil, nil, fmt.Errorf("%w: training window has %d non-null points", ErrInsufficientData, len(ys))
	}
	return xs, ys, nil
}

// futureDates returns horizon weekly dates after last.
func futureDates(last time.Time, horizon int) []time.Time {
	if horizon < 0 {
		horizon = 0
	}
	out := make([]time.Time, horizon)
	for h := range out {
		out[h] = last.AddDate(0, 0, 7*(h+1))
	}
	return out
}
