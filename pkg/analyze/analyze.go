package analyze

import (
	"math"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

// Point is a (restraint, differential) sample.
type Point = characteristic.Point

// Detector finds the vertices of a piecewise-linear curve.
type Detector struct {
	SlopeTolerance float64 // Absolute slope change that counts as a vertex (e.g. 0.05)
}

// DetectBreakpoints walks an X-sorted curve and returns every interior point
// where the slope changes by more than the tolerance. On a sampled
// characteristic these are B and C.
func (d *Detector) DetectBreakpoints(points []Point) []Point {
	if len(points) < 3 {
		return nil
	}

	var vertices []Point
	prevSlope := math.NaN()

	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		if dx <= 0 {
			continue
		}
		slope := (points[i].Y - points[i-1].Y) / dx

		if !math.IsNaN(prevSlope) && math.Abs(slope-prevSlope) > d.SlopeTolerance {
			vertices = append(vertices, points[i-1])
		}
		prevSlope = slope
	}
	return vertices
}
