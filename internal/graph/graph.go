// Package graph renders target functions and convergence histories as PNG plots.
package graph

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/cwbudde/robustsolve/internal/roots"
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

// Mark is a labelled point on the x axis, e.g. a root or a domain boundary.
type Mark struct {
	X     float64
	Label string
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Function plots f on [left, right] sampled at the given number of points.
// The curve is interrupted wherever f is undefined or infinite.
func Function(f roots.Func, left, right float64, samples int, marks ...Mark) (*plot.Plot, error) {
	if samples < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", samples)
	}

	p := plot.New()
	p.X.Label.Text = "x"
	p.Y.Label.Text = "f(x)"
	p.Add(plotter.NewGrid())

	var segment plotter.XYs
	flush := func() error {
		defer func() { segment = nil }()
		if len(segment) < 2 {
			return nil
		}
		line, err := plotter.NewLine(segment)
		if err != nil {
			return fmt.Errorf("failed to create line: %w", err)
		}
		line.Color = plotutil.Color(0)
		p.Add(line)
		return nil
	}

	for _, x := range floats.Span(make([]float64, samples), left, right) {
		y, ok := f(x)
		if !ok || !finite(y) {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		segment = append(segment, plotter.XY{X: x, Y: y})
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(marks) == 0 {
		return p, nil
	}

	points := plotter.XYLabels{XYs: make(plotter.XYs, 0, len(marks))}
	for _, m := range marks {
		if !finite(m.X) {
			continue
		}
		y, ok := f(m.X)
		if !ok || !finite(y) {
			y = 0
		}
		points.XYs = append(points.XYs, plotter.XY{X: m.X, Y: y})
		points.Labels = append(points.Labels, m.Label)
	}
	if len(points.XYs) == 0 {
		return p, nil
	}

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("failed to create marks: %w", err)
	}
	scatter.GlyphStyle.Color = plotutil.Color(1)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)

	labels, err := plotter.NewLabels(points)
	if err != nil {
		return nil, fmt.Errorf("failed to create labels: %w", err)
	}
	p.Add(scatter, labels)
	return p, nil
}

// Convergence plots a positive history (bracket widths, step sizes) on a log scale.
// Values that are not positive and finite are skipped.
func Convergence(values []float64, label string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = label
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		if !(v > 0) || math.IsInf(v, 1) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if len(pts) == 0 {
		return p, nil
	}

	if err := plotutil.AddLinePoints(p, label, pts); err != nil {
		return nil, fmt.Errorf("failed to add history: %w", err)
	}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Min, p.Y.Max = lo/2, hi*2
	return p, nil
}

// WritePNG encodes p as a PNG image to w.
func WritePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// SavePNG writes p as a PNG image to path.
func SavePNG(p *plot.Plot, path string) error {
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
