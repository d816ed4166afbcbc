package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// Linear fits count = slope*index + intercept by ordinary least squares, with
// index the zero-based week position inside the training window.
type Linear struct{}

// LinearFit is a fitted linear trend.
type LinearFit struct {
	Intercept float64
	Slope     float64

	lastIndex int
	lastDate  time.Time
}

func (Linear) Fit(training domain.WeeklySeries) (Fitted, error) {
	xs, ys, err := observations(training)
	if err != nil {
		return nil, err
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return &LinearFit{
		Intercept: alpha,
		Slope:     beta,
		lastIndex: len(training) - 1,
		lastDate:  training.Last(),
	}, nil
}

// Predict extrapolates the trend to indices lastIndex+1 .. lastIndex+horizon.
func (f *LinearFit) Predict(horizon int) []Prediction {
	dates := futureDates(f.lastDate, horizon)
	out := make([]Prediction, len(dates))
	for h, d := range dates {
		x := float64(f.lastIndex + h + 1)
		out[h] = Prediction{Date: d, Value: f.Intercept + f.Slope*x}
	}
	return out
}
