// Package chart renders forecast results as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/crime-dashboard/internal/forecast"
)

// ErrNoData is returned when a result has neither actual nor predicted points.
var ErrNoData = errors.New("nothing to plot")

// Size is the rendered image size.
type Size struct {
	Width, Height vg.Length
}

// DefaultSize is used when a zero Size is passed to Forecast.
var DefaultSize = Size{Width: 10 * vg.Inch, Height: 4 * vg.Inch}

var (
	actualColor    = color.RGBA{R: 0x03, G: 0x2f, B: 0x45, A: 0xff}
	predictedColor = color.RGBA{R: 0xf3, G: 0x8e, B: 0x1a, A: 0xff}
)

// Forecast draws the actual weekly series and the predicted continuation and
// writes the PNG to w. Null weeks break the actual line.
func Forecast(w io.Writer, res forecast.Result, size Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}

	actual := actualSegments(res)
	predicted := make(plotter.XYs, 0, len(res.Predicted)+1)
	if n := len(res.Actual); n > 0 && !math.IsNaN(res.Actual[n-1].Count) && len(res.Predicted) > 0 {
		last := res.Actual[n-1]
		predicted = append(predicted, plotter.XY{X: float64(last.WeekStart.Unix()), Y: last.Count})
	}
	for _, p := range res.Predicted {
		predicted = append(predicted, plotter.XY{X: float64(p.Date.Unix()), Y: p.Value})
	}
	if len(actual) == 0 && len(res.Predicted) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Weekly incidents: %s forecast", res.Model)
	p.Y.Label.Text = "Incidents"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, seg := range actual {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("actual series: %w", err)
		}
		line.Color = actualColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		if i == 0 {
			p.Legend.Add("actual", line)
		}
	}

	if len(res.Predicted) > 0 {
		line, points, err := plotter.NewLinePoints(predicted)
		if err != nil {
			return fmt.Errorf("predicted series: %w", err)
		}
		line.Color = predictedColor
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Color = predictedColor
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add("predicted", line, points)
	}

	wt, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// actualSegments splits the observed series at null weeks.
func actualSegments(res forecast.Result) []plotter.XYs {
	var (
		segs []plotter.XYs
		cur  plotter.XYs
	)
	for _, pt := range res.Actual {
		if math.IsNaN(pt.Count) {
			if len(cur) > 0 {
				segs = append(segs, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(pt.WeekStart.Unix()), Y: pt.Count})
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}
