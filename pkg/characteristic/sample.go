package characteristic

import (
	"fmt"
	"iter"
)

// SampleCurve returns the characteristic over [0, MaxRestraint] as a uniform
// grid of steps intervals with the breakpoints A..D spliced in exactly.
// X values strictly increase. The sequence is evaluated lazily and can be
// ranged over any number of times.
func (m *Model) SampleCurve(steps int) (iter.Seq[Point], error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStepCount, steps)
	}

	hi := m.cfg.MaxRestraint
	// Grid points within eps of a breakpoint are dropped.
	eps := hi / float64(steps) * 1e-6

	return func(yield func(Point) bool) {
		knots := []Point{m.b, m.c}
		next := 0

		if !yield(m.a) {
			return
		}
		for i := 1; i < steps; i++ {
			x := hi * float64(i) / float64(steps)

			for next < len(knots) && knots[next].X <= x+eps {
				if !yield(knots[next]) {
					return
				}
				next++
			}
			if next > 0 && x-knots[next-1].X <= eps {
				continue
			}
			if !yield(Point{X: x, Y: m.thresholdAt(x)}) {
				return
			}
		}
		for ; next < len(knots); next++ {
			if !yield(knots[next]) {
				return
			}
		}
		yield(m.d)
	}, nil
}
