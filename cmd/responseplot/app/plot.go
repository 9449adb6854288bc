package app

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/roman-kulish/bbl-analyzer/internal/storage"
)

var axisColors = map[string]color.RGBA{
	"roll":  {R: 214, G: 39, B: 40, A: 255},
	"pitch": {R: 44, G: 160, B: 44, A: 255},
	"yaw":   {R: 31, G: 119, B: 180, A: 255},
}

var errNoResults = errors.New("no axis results to plot")

func axisColor(axis string) color.RGBA {
	if c, ok := axisColors[axis]; ok {
		return c
	}
	return color.RGBA{A: 255}
}

// NewResponsePlot draws the low input step response of every axis with its
// spread, and the high input response where one exists.
func NewResponsePlot(session *storage.Session, results []*storage.AxisResult) (*plot.Plot, error) {
	if len(results) == 0 {
		return nil, errNoResults
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Step response, session %d", session.Index)
	p.X.Label.Text = "time (ms)"
	p.Y.Label.Text = "response"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	var tMax float64
	for _, res := range results {
		sr := res.Result.StepResponse
		if len(sr.Time) == 0 {
			continue
		}
		tMax = max(tMax, sr.Time[len(sr.Time)-1]*1000)

		c := axisColor(res.Axis)
		if band, err := spreadBand(sr.Time, sr.Low.Values, sr.Low.Spread); err == nil {
			band.Color = color.RGBA{R: c.R, G: c.G, B: c.B, A: 48}
			band.LineStyle.Width = 0
			p.Add(band)
		}

		low, err := plotter.NewLine(curvePoints(sr.Time, sr.Low.Values))
		if err != nil {
			return nil, fmt.Errorf("creating %s response line: %w", res.Axis, err)
		}
		low.Color = c
		low.Width = vg.Points(1.5)
		p.Add(low)
		p.Legend.Add(fmt.Sprintf("%s (P %g, %d windows)", res.Axis, res.P, sr.Low.Windows), low)

		if sr.High == nil {
			continue
		}
		high, err := plotter.NewLine(curvePoints(sr.Time, sr.High.Values))
		if err != nil {
			return nil, fmt.Errorf("creating %s high input line: %w", res.Axis, err)
		}
		high.Color = c
		high.Width = vg.Points(1)
		high.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}
		p.Add(high)
		p.Legend.Add(fmt.Sprintf("%s high input", res.Axis), high)
	}

	if tMax > 0 {
		target, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 1}, {X: tMax, Y: 1}})
		if err != nil {
			return nil, fmt.Errorf("creating target line: %w", err)
		}
		target.Color = color.Gray{Y: 128}
		target.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(target)
	}

	p.X.Min = 0
	return p, nil
}

// NewThrottlePlot draws the share of flight time spent at each throttle.
func NewThrottlePlot(session *storage.Session, results []*storage.AxisResult) (*plot.Plot, error) {
	if len(results) == 0 {
		return nil, errNoResults
	}

	usage := results[0].Result.ThrottleUsage
	if len(usage.Edges) != len(usage.Probability)+1 || len(usage.Probability) == 0 {
		return nil, errors.New("throttle usage is empty")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Throttle usage, session %d", session.Index)
	p.X.Label.Text = "throttle (%)"
	p.Y.Label.Text = "time (%)"
	p.Add(plotter.NewGrid())

	h := &plotter.Histogram{
		Bins:      make([]plotter.HistogramBin, len(usage.Probability)),
		FillColor: color.RGBA{R: 31, G: 119, B: 180, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, v := range usage.Probability {
		h.Bins[i] = plotter.HistogramBin{Min: usage.Edges[i], Max: usage.Edges[i+1], Weight: v * 100}
	}
	h.Width = usage.Edges[1] - usage.Edges[0]
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	p.X.Min = usage.Edges[0]
	p.X.Max = usage.Edges[len(usage.Edges)-1]
	p.Y.Min = 0
	return p, nil
}

func curvePoints(t, v []float64) plotter.XYs {
	n := min(len(t), len(v))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i] = plotter.XY{X: t[i] * 1000, Y: v[i]}
	}
	return pts
}

// spreadBand outlines v plus and minus its spread.
func spreadBand(t, v, spread []float64) (*plotter.Polygon, error) {
	n := min(len(t), len(v), len(spread))
	if n < 2 {
		return nil, errors.New("curve too short")
	}

	pts := make(plotter.XYs, 0, 2*n)
	for i := 0; i < n; i++ {
		pts = append(pts, plotter.XY{X: t[i] * 1000, Y: v[i] + spread[i]})
	}
	for i := n - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: t[i] * 1000, Y: v[i] - spread[i]})
	}
	return plotter.NewPolygon(pts)
}
