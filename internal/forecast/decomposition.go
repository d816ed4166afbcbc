package forecast

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

const daysPerYear = 365.25

// DecompositionOptions tunes the additive trend + seasonality model.
type DecompositionOptions struct {
	// YearlyOrder is the number of Fourier pairs for yearly seasonality. Default 10.
	YearlyOrder int

	// MinSeasonalSpan is the training span required before yearly seasonality
	// is fitted at all. Default two years.
	MinSeasonalSpan time.Duration

	// PriorScale bounds the seasonal coefficients through a ridge penalty of
	// 1/PriorScale² on the scaled series. Default 10.
	PriorScale float64
}

// Decomposition fits y(t) = trend(t) + seasonal(day of year) by penalized
// least squares. The trend is linear in the week index; seasonality is a
// yearly Fourier series and is only fitted when the training window spans at
// least MinSeasonalSpan.
type Decomposition struct {
	opts DecompositionOptions
}

// NewDecomposition returns a decomposition model with opts, filling defaults.
func NewDecomposition(opts DecompositionOptions) Decomposition {
	if opts.YearlyOrder <= 0 {
		opts.YearlyOrder = 10
	}
	if opts.MinSeasonalSpan <= 0 {
		opts.MinSeasonalSpan = 2 * 365 * 24 * time.Hour
	}
	if opts.PriorScale <= 0 {
		opts.PriorScale = 10
	}
	return Decomposition{opts: opts}
}

// DecompositionFit is a fitted additive model.
type DecompositionFit struct {
	coef   []float64 // intercept, slope, then cos/sin pairs
	order  int       // Fourier pairs actually fitted
	tScale float64
	yScale float64

	lastIndex int
	lastDate  time.Time
}

var errSingular = errors.New("decomposition: normal equations are singular")

func (d Decomposition) Fit(training domain.WeeklySeries) (Fitted, error) {
	if _, _, err := observations(training); err != nil {
		return nil, err
	}

	order := 0
	if training.Last().Sub(training[0].WeekStart) >= d.opts.MinSeasonalSpan {
		order = d.opts.YearlyOrder
	}

	fit := &DecompositionFit{
		order:     order,
		tScale:    float64(max(1, len(training)-1)),
		lastIndex: len(training) - 1,
		lastDate:  training.Last(),
	}

	var idx []int
	var ys []float64
	for i, p := range training {
		if !math.IsNaN(p.Count) {
			idx = append(idx, i)
			ys = append(ys, p.Count)
		}
	}
	fit.yScale = floats.Max(absAll(ys))
	if fit.yScale == 0 {
		fit.yScale = 1
	}

	p := fit.columns()
	x := mat.NewDense(len(ys), p, nil)
	y := mat.NewVecDense(len(ys), nil)
	for r, i := range idx {
		x.SetRow(r, fit.features(float64(i), training[i].WeekStart))
		y.SetVec(r, ys[r]/fit.yScale)
	}

	a := mat.NewSymDense(p, nil)
	a.SymOuterK(1, x.T())
	lambda := 1 / (d.opts.PriorScale * d.opts.PriorScale)
	for j := 2; j < p; j++ {
		a.SetSym(j, j, a.At(j, j)+lambda)
	}

	b := mat.NewVecDense(p, nil)
	b.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errSingular
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, b); err != nil {
		return nil, err
	}
	fit.coef = make([]float64, p)
	for j := range fit.coef {
		fit.coef[j] = coef.AtVec(j) * fit.yScale
	}
	return fit, nil
}

func (f *DecompositionFit) columns() int {
	return 2 + 2*f.order
}

// features returns the design row for week index i dated at date.
func (f *DecompositionFit) features(i float64, date time.Time) []float64 {
	row := make([]float64, f.columns())
	row[0] = 1
	row[1] = i / f.tScale
	days := float64(date.Unix()) / 86400
	for j := 1; j <= f.order; j++ {
		angle := 2 * math.Pi * float64(j) * days / daysPerYear
		row[2*j] = math.Cos(angle)
		row[2*j+1] = math.Sin(angle)
	}
	return row
}

// Components returns the trend and seasonal parts at week index i.
func (f *DecompositionFit) Components(i float64, date time.Time) (trend, seasonal float64) {
	row := f.features(i, date)
	trend = f.coef[0] + f.coef[1]*row[1]
	for j := 2; j < len(row); j++ {
		seasonal += f.coef[j] * row[j]
	}
	return trend, seasonal
}

// Seasonal reports whether yearly seasonality was fitted.
func (f *DecompositionFit) Seasonal() bool {
	return f.order > 0
}

// Predict emits horizon weekly forecasts following the training window.
func (f *DecompositionFit) Predict(horizon int) []Prediction {
	dates := futureDates(f.lastDate, horizon)
	out := make([]Prediction, len(dates))
	for h, d := range dates {
		trend, seasonal := f.Components(float64(f.lastIndex+h+1), d)
		out[h] = Prediction{Date: d, Value: trend + seasonal}
	}
	return out
}

func absAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}
