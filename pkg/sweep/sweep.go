package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/config"
)

var ErrInvalidPlan = errors.New("invalid sweep plan")

const (
	// MaxRestraints bounds the number of restraint currents in one sweep.
	MaxRestraints = 10000
	// maxBisections bounds the probes of one trip search.
	maxBisections = 64
)

// Tripper reports whether a relay operates for a measurement.
type Tripper interface {
	Trips(ctx context.Context, m characteristic.Measurement) (bool, error)
}

// ModelTripper trips according to a characteristic model.
type ModelTripper struct {
	Model *characteristic.Model
}

func (t ModelTripper) Trips(_ context.Context, m characteristic.Measurement) (bool, error) {
	c, err := t.Model.Classify(m)
	if err != nil {
		return false, err
	}
	return c.Decision.Operates(), nil
}

// Result is the trip point found at one restraint current.
type Result struct {
	Restraint float64
	Trip      float64 // Lowest differential seen to trip, within the resolution
	Found     bool    // False when the relay did not trip at MaxDifferential
	Probes    int
}

type Sweeper struct {
	t    Tripper
	plan config.Sweep
	log  *slog.Logger
}

func New(t Tripper, plan config.Sweep, log *slog.Logger) (*Sweeper, error) {
	fields := []struct {
		name string
		v    float64
	}{
		{"from", plan.From},
		{"to", plan.To},
		{"step", plan.Step},
		{"max_differential", plan.MaxDifferential},
		{"resolution", plan.Resolution},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return nil, fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidPlan, f.name, f.v)
		}
	}

	switch {
	case plan.From < 0 || plan.To < plan.From:
		return nil, fmt.Errorf("%w: restraint range [%g, %g]", ErrInvalidPlan, plan.From, plan.To)
	case !(plan.Step > 0):
		return nil, fmt.Errorf("%w: step must be > 0, got %g", ErrInvalidPlan, plan.Step)
	case !(plan.MaxDifferential > 0):
		return nil, fmt.Errorf("%w: max_differential must be > 0, got %g", ErrInvalidPlan, plan.MaxDifferential)
	case !(plan.Resolution > 0):
		return nil, fmt.Errorf("%w: resolution must be > 0, got %g", ErrInvalidPlan, plan.Resolution)
	case (plan.To-plan.From)/plan.Step >= MaxRestraints:
		return nil, fmt.Errorf("%w: more than %d restraint steps in [%g, %g] by %g", ErrInvalidPlan, MaxRestraints, plan.From, plan.To, plan.Step)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{t: t, plan: plan, log: log}, nil
}

// Restraints lists the restraint currents the sweep visits, From and To
// included.
func (s *Sweeper) Restraints() []float64 {
	n := int(math.Floor((s.plan.To-s.plan.From)/s.plan.Step + 1e-9))
	xs := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		xs = append(xs, s.plan.From+float64(i)*s.plan.Step)
	}
	if last := xs[len(xs)-1]; s.plan.To-last > 1e-9 {
		xs = append(xs, s.plan.To)
	}
	return xs
}

// Run searches for the trip point at every restraint current in turn.
func (s *Sweeper) Run(ctx context.Context) ([]Result, error) {
	xs := s.Restraints()
	results := make([]Result, 0, len(xs))
	for i, ir := range xs {
		res, err := s.search(ctx, ir)
		if err != nil {
			return results, fmt.Errorf("restraint %g: %w", ir, err)
		}
		s.log.Debug("sweep step", "step", i+1, "of", len(xs), "restraint", ir, "trip", res.Trip, "found", res.Found, "probes", res.Probes)
		results = append(results, res)
	}
	return results, nil
}

// search bisects the differential current between 0 and MaxDifferential. It
// stops at the resolution or when the bracket spans adjacent floats.
func (s *Sweeper) search(ctx context.Context, ir float64) (Result, error) {
	res := Result{Restraint: ir}
	probe := func(id float64) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		res.Probes++
		return s.t.Trips(ctx, characteristic.Measurement{Restraint: ir, Differential: id})
	}

	lo, hi := 0.0, s.plan.MaxDifferential
	trips, err := probe(hi)
	if err != nil || !trips {
		return res, err
	}
	for i := 0; i < maxBisections && hi-lo > s.plan.Resolution; i++ {
		mid := lo + (hi-lo)/2
		if mid <= lo || mid >= hi {
			break
		}
		trips, err := probe(mid)
		if err != nil {
			return res, err
		}
		if trips {
			hi = mid
		} else {
			lo = mid
		}
	}
	res.Trip = hi
	res.Found = true
	return res, nil
}

// Points returns the found trip points as (restraint, differential) pairs.
func Points(results []Result) []characteristic.Point {
	var out []characteristic.Point
	for _, r := range results {
		if r.Found {
			out = append(out, characteristic.Point{X: r.Restraint, Y: r.Trip})
		}
	}
	return out
}
