package analyze

import (
	"math"
)

type LinearResult struct {
	Slope     float64
	Intercept float64
	StartX    float64
	EndX      float64
	Count     int
	RMS       float64 // Root mean square residual
	Valid     bool    // False when fewer than two distinct X values were available
}

// At evaluates the fitted line.
func (r LinearResult) At(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// FitSegments splits trip points at the two breakpoints and fits a line to
// each section: [0, bp1], [bp1, bp2] and [bp2, ∞). A point lying exactly on
// a breakpoint belongs to both neighbouring sections.
func FitSegments(points []Point, bp1, bp2 float64) [3]LinearResult {
	var sections [3][]Point
	for _, p := range points {
		if p.X <= bp1 {
			sections[0] = append(sections[0], p)
		}
		if p.X >= bp1 && p.X <= bp2 {
			sections[1] = append(sections[1], p)
		}
		if p.X >= bp2 {
			sections[2] = append(sections[2], p)
		}
	}

	var out [3]LinearResult
	for i, s := range sections {
		out[i] = fit(s)
	}
	return out
}

func fit(points []Point) LinearResult {
	res := LinearResult{Count: len(points)}
	if len(points) == 0 {
		return res
	}

	res.StartX, res.EndX = points[0].X, points[0].X
	for _, p := range points {
		res.StartX = math.Min(res.StartX, p.X)
		res.EndX = math.Max(res.EndX, p.X)
	}

	m, c, ok := leastSquares(points)
	if !ok {
		return res
	}
	res.Slope, res.Intercept, res.Valid = m, c, true

	var ss float64
	for _, p := range points {
		r := p.Y - res.At(p.X)
		ss += r * r
	}
	res.RMS = math.Sqrt(ss / float64(len(points)))
	return res
}

// leastSquares performs simple linear regression on a set of points
func leastSquares(points []Point) (m, c float64, ok bool) {
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))

	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}

	den := n*sumXX - sumX*sumX
	// All X equal (or a single point): the line is vertical or undefined.
	if len(points) < 2 || math.Abs(den) < 1e-12 {
		return 0, 0, false
	}
	m = (n*sumXY - sumX*sumY) / den
	c = (sumY - m*sumX) / n
	return m, c, true
}
