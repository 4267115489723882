// Package characteristic models the restraint/operate characteristic of a
// transformer biased differential element: a flat section, two slopes and an
// unrestrained high-set cutoff.
package characteristic

import (
	"fmt"
	"math"
)

// Model is an immutable characteristic built from a validated Config.
// It is safe for concurrent use.
type Model struct {
	cfg        Config
	a, b, c, d Point
}

// New validates cfg and derives the breakpoints A..D.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Model{cfg: cfg}
	m.a = Point{X: 0, Y: cfg.MinThreshold}
	m.b = Point{X: cfg.Breakpoint1, Y: cfg.MinThreshold}
	m.c = Point{X: cfg.Breakpoint2, Y: cfg.MinThreshold + cfg.Slope1*(cfg.Breakpoint2-cfg.Breakpoint1)}
	m.d = Point{X: cfg.MaxRestraint, Y: m.c.Y + cfg.Slope2*(cfg.MaxRestraint-cfg.Breakpoint2)}
	return m, nil
}

// Validate checks the ordering and positivity rules and names the first one
// violated.
func (c Config) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"min_threshold", c.MinThreshold},
		{"breakpoint1", c.Breakpoint1},
		{"breakpoint2", c.Breakpoint2},
		{"max_restraint", c.MaxRestraint},
		{"slope1", c.Slope1},
		{"slope2", c.Slope2},
		{"cutoff", c.Cutoff},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidConfiguration, f.name, f.v)
		}
	}

	switch {
	case c.MinThreshold <= 0:
		return fmt.Errorf("%w: min_threshold must be > 0, got %g", ErrInvalidConfiguration, c.MinThreshold)
	case c.Breakpoint1 <= 0:
		return fmt.Errorf("%w: breakpoint1 must be > 0, got %g", ErrInvalidConfiguration, c.Breakpoint1)
	case c.Breakpoint1 >= c.Breakpoint2:
		return fmt.Errorf("%w: breakpoint1 (%g) must be < breakpoint2 (%g)", ErrInvalidConfiguration, c.Breakpoint1, c.Breakpoint2)
	case c.Breakpoint2 >= c.MaxRestraint:
		return fmt.Errorf("%w: breakpoint2 (%g) must be < max_restraint (%g)", ErrInvalidConfiguration, c.Breakpoint2, c.MaxRestraint)
	case c.Slope1 < 0:
		return fmt.Errorf("%w: slope1 must be >= 0, got %g", ErrInvalidConfiguration, c.Slope1)
	case c.Slope2 < 0:
		return fmt.Errorf("%w: slope2 must be >= 0, got %g", ErrInvalidConfiguration, c.Slope2)
	case c.Cutoff <= 0:
		return fmt.Errorf("%w: cutoff must be > 0, got %g", ErrInvalidConfiguration, c.Cutoff)
	}
	return nil
}

func (m *Model) Config() Config { return m.cfg }
func (m *Model) Cutoff() float64 { return m.cfg.Cutoff }

// A is the start of the flat section, (0, MinThreshold).
func (m *Model) A() Point { return m.a }

// B is the end of the flat section, (Breakpoint1, MinThreshold).
func (m *Model) B() Point { return m.b }

// C is the end of the first slope, at Breakpoint2.
func (m *Model) C() Point { return m.c }

// D is the end of the second slope, at MaxRestraint.
func (m *Model) D() Point { return m.d }

// Breakpoints returns A, B, C and D in order.
func (m *Model) Breakpoints() [4]Point {
	return [4]Point{m.a, m.b, m.c, m.d}
}

// ThresholdAt returns the minimum differential current that operates the
// sloped element at restraint current ir. Past MaxRestraint the second slope
// is extrapolated.
func (m *Model) ThresholdAt(ir float64) (float64, error) {
	if ir < 0 || math.IsNaN(ir) {
		return 0, fmt.Errorf("%w: %g", ErrOutOfDomain, ir)
	}
	return m.thresholdAt(ir), nil
}

func (m *Model) thresholdAt(ir float64) float64 {
	cfg := m.cfg
	switch {
	case ir <= cfg.Breakpoint1:
		return cfg.MinThreshold
	case ir <= cfg.Breakpoint2:
		return cfg.MinThreshold + cfg.Slope1*(ir-cfg.Breakpoint1)
	case ir <= cfg.MaxRestraint:
		return m.c.Y + cfg.Slope2*(ir-cfg.Breakpoint2)
	default:
		return m.d.Y + cfg.Slope2*(ir-cfg.MaxRestraint)
	}
}

// Classify decides whether a measurement operates. The cutoff is checked
// first and bypasses the restraint entirely. Points on a boundary operate.
func (m *Model) Classify(meas Measurement) (Classification, error) {
	threshold, err := m.thresholdFor(meas)
	if err != nil {
		return Classification{}, err
	}

	switch {
	case meas.Differential >= m.cfg.Cutoff:
		return Classification{Decision: OperateCutoff, Threshold: m.cfg.Cutoff}, nil
	case meas.Differential >= threshold:
		return Classification{Decision: OperateSlope, Threshold: threshold}, nil
	default:
		return Classification{Decision: Restrain, Threshold: threshold}, nil
	}
}

// Margin is the signed distance from the sloped characteristic to the
// measurement along the differential axis. Positive values lie on the
// operate side.
func (m *Model) Margin(meas Measurement) (float64, error) {
	threshold, err := m.thresholdFor(meas)
	if err != nil {
		return 0, err
	}
	return meas.Differential - threshold, nil
}

// thresholdFor checks both coordinates of meas and returns the sloped
// threshold at its restraint current.
func (m *Model) thresholdFor(meas Measurement) (float64, error) {
	if math.IsNaN(meas.Differential) {
		return 0, fmt.Errorf("%w: differential current is NaN", ErrOutOfDomain)
	}
	return m.ThresholdAt(meas.Restraint)
}
