package analyze

import (
	"fmt"
	"math"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

// Tolerance bounds how far injection test results may stray from the
// settings.
type Tolerance struct {
	Level float64 // Relative trip level error, e.g. 0.05 for 5%
	Slope float64 // Absolute slope error, e.g. 0.02 for 2 percentage points
}

// PointCheck compares one measured trip point against the setting.
type PointCheck struct {
	Point     Point
	Expected  float64 // ThresholdAt(Point.X)
	Deviation float64 // (measured - expected) / expected
	OK        bool
}

// SegmentCheck compares a fitted section slope against the setting.
type SegmentCheck struct {
	Fit      LinearResult
	Expected float64
	OK       bool // Also true when the section had too few points to fit
}

type Report struct {
	Points   []PointCheck
	Segments [3]SegmentCheck
	Passed   bool
}

// Verify checks measured trip points from a secondary injection test against
// the model. Trip points are assumed to lie below the cutoff; points on or
// above it are rejected.
func Verify(m *characteristic.Model, points []Point, tol Tolerance) (Report, error) {
	rep := Report{Passed: true}
	cfg := m.Config()

	for _, p := range points {
		expected, err := m.ThresholdAt(p.X)
		if err != nil {
			return Report{}, err
		}
		if p.Y >= m.Cutoff() {
			return Report{}, fmt.Errorf("trip point (%g, %g) is at or above the cutoff %g", p.X, p.Y, m.Cutoff())
		}
		dev := (p.Y - expected) / expected
		ok := math.Abs(dev) <= tol.Level
		rep.Points = append(rep.Points, PointCheck{Point: p, Expected: expected, Deviation: dev, OK: ok})
		rep.Passed = rep.Passed && ok
	}

	fits := FitSegments(points, cfg.Breakpoint1, cfg.Breakpoint2)
	expected := [3]float64{0, cfg.Slope1, cfg.Slope2}
	for i, f := range fits {
		ok := !f.Valid || math.Abs(f.Slope-expected[i]) <= tol.Slope
		rep.Segments[i] = SegmentCheck{Fit: f, Expected: expected[i], OK: ok}
		rep.Passed = rep.Passed && ok
	}
	return rep, nil
}
