// Package render draws a characteristic and annotated operating points to a
// PNG chart.
package render

import (
	"fmt"
	"io"
	"iter"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

// Curve is what the renderer needs from a characteristic.
type Curve interface {
	SampleCurve(steps int) (iter.Seq[characteristic.Point], error)
	Breakpoints() [4]characteristic.Point
	Cutoff() float64
}

// Marker is an operating point to plot on top of the characteristic.
type Marker struct {
	Label string
	Point characteristic.Point
	Note  string // Optional callout
}

type Options struct {
	Title  string
	Width  int
	Height int
	Steps  int
	XMin   float64
	XMax   float64
	YMax   float64
}

var (
	colorCurve    = drawing.Color{R: 0, G: 0, B: 255, A: 255}
	colorCutoff   = drawing.Color{R: 255, G: 0, B: 0, A: 255}
	// Region fills are opaque: the restrain fill must hide the operate fill
	// beneath the curve. These are 20% red and green over white.
	colorOperate  = drawing.Color{R: 255, G: 204, B: 204, A: 255}
	colorRestrain = drawing.Color{R: 204, G: 230, B: 204, A: 255}
	colorVertex   = drawing.Color{R: 0, G: 0, B: 0, A: 255}
	colorMarker   = drawing.Color{R: 139, G: 0, B: 0, A: 255}
)

// pointStyle returns a style that renders points only (no connecting line)
func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    width,
		DotColor:    col,
	}
}

// Chart builds the chart without rendering it.
func Chart(c Curve, markers []Marker, opts Options) (*chart.Chart, error) {
	seq, err := c.SampleCurve(opts.Steps)
	if err != nil {
		return nil, err
	}
	var xs, ys []float64
	for p := range seq {
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("curve has %d points, need at least 2", len(xs))
	}

	yMax := opts.YMax
	if yMax <= c.Cutoff() {
		yMax = c.Cutoff() * 1.2
	}
	xMin, xMax := opts.XMin, opts.XMax
	if xMax <= xs[len(xs)-1] {
		xMax = xs[len(xs)-1] * 1.05
	}

	top := make([]float64, len(xs))
	for i := range top {
		top[i] = yMax
	}

	// go-chart fills down to the axis floor, so the operate fill spans the
	// whole plot and the restrain fill covers it below the characteristic.
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Operate region",
			Style:   chart.Style{StrokeWidth: chart.Disabled, FillColor: colorOperate},
			XValues: xs,
			YValues: top,
		},
		chart.ContinuousSeries{
			Name:    "Restrain region",
			Style:   chart.Style{StrokeWidth: chart.Disabled, FillColor: colorRestrain},
			XValues: xs,
			YValues: ys,
		},
		chart.ContinuousSeries{
			Name:    "Restraint characteristic",
			Style:   chart.Style{StrokeColor: colorCurve, StrokeWidth: 2.5},
			XValues: xs,
			YValues: ys,
		},
		chart.ContinuousSeries{
			Name:    "Differential cutoff",
			Style:   chart.Style{StrokeColor: colorCutoff, StrokeWidth: 2, StrokeDashArray: []float64{5, 5}},
			XValues: []float64{xMin, xMax},
			YValues: []float64{c.Cutoff(), c.Cutoff()},
		},
	}

	bps := c.Breakpoints()
	var bx, by []float64
	var notes []chart.Value2
	for i, p := range bps {
		bx = append(bx, p.X)
		by = append(by, p.Y)
		notes = append(notes, chart.Value2{XValue: p.X, YValue: p.Y, Label: string(rune('A' + i))})
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "Breakpoints",
		Style:   pointStyle(colorVertex, 5),
		XValues: bx,
		YValues: by,
	})

	for _, m := range markers {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (Id=%.4f)", m.Label, m.Point.Y),
			Style:   pointStyle(colorMarker, 7),
			XValues: []float64{m.Point.X},
			YValues: []float64{m.Point.Y},
		})
		if m.Note != "" {
			notes = append(notes, chart.Value2{XValue: m.Point.X, YValue: m.Point.Y, Label: m.Note})
		}
	}
	series = append(series, chart.AnnotationSeries{Annotations: notes})

	ch := &chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Restraint current Ir (pu)",
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "Differential current Id (pu)",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.LegendLeft(ch)}
	return ch, nil
}

// Render writes the chart as PNG.
func Render(w io.Writer, c Curve, markers []Marker, opts Options) error {
	ch, err := Chart(c, markers, opts)
	if err != nil {
		return err
	}
	return ch.Render(chart.PNG, w)
}

// RenderFile writes the chart as PNG to path.
func RenderFile(path string, c Curve, markers []Marker, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Render(f, c, markers, opts); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
