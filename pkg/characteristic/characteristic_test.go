package characteristic

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

const eps = 1e-9

func mustNew(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v) failed: %v", cfg, err)
	}
	return m
}

func mustThreshold(t *testing.T, m *Model, x float64) float64 {
	t.Helper()
	y, err := m.ThresholdAt(x)
	if err != nil {
		t.Fatalf("ThresholdAt(%g) failed: %v", x, err)
	}
	return y
}

// configs exercised by the property tests.
func testConfigs() []Config {
	flat := Reference()
	flat.Slope1, flat.Slope2 = 0, 0
	steep := Config{MinThreshold: 0.1, Breakpoint1: 0.2, Breakpoint2: 0.9, MaxRestraint: 10, Slope1: 0.8, Slope2: 1.5, Cutoff: 2}
	return []Config{Reference(), flat, steep}
}

func TestNew_Breakpoints(t *testing.T) {
	m := mustNew(t, Reference())

	want := [4]Point{
		{X: 0, Y: 0.27},
		{X: 0.5, Y: 0.27},
		{X: 1.5, Y: 0.52},
		{X: 3, Y: 1.27},
	}
	got := m.Breakpoints()
	for i := range want {
		if math.Abs(got[i].X-want[i].X) > eps || math.Abs(got[i].Y-want[i].Y) > eps {
			t.Errorf("breakpoint %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if m.A() != got[0] || m.B() != got[1] || m.C() != got[2] || m.D() != got[3] {
		t.Error("accessors disagree with Breakpoints()")
	}
	if m.Cutoff() != 4.5 {
		t.Errorf("Cutoff() = %g, want 4.5", m.Cutoff())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"Breakpoints Swapped", func(c *Config) { c.Breakpoint1, c.Breakpoint2 = 2, 1 }, "breakpoint1"},
		{"Breakpoints Equal", func(c *Config) { c.Breakpoint2 = c.Breakpoint1 }, "breakpoint1"},
		{"Breakpoint1 Zero", func(c *Config) { c.Breakpoint1 = 0 }, "breakpoint1"},
		{"Breakpoint2 Past Max", func(c *Config) { c.Breakpoint2 = 3 }, "max_restraint"},
		{"Zero Min Threshold", func(c *Config) { c.MinThreshold = 0 }, "min_threshold"},
		{"Negative Slope1", func(c *Config) { c.Slope1 = -0.1 }, "slope1"},
		{"Negative Slope2", func(c *Config) { c.Slope2 = -0.1 }, "slope2"},
		{"Zero Cutoff", func(c *Config) { c.Cutoff = 0 }, "cutoff"},
		{"NaN Slope", func(c *Config) { c.Slope1 = math.NaN() }, "finite"},
		{"Infinite Max", func(c *Config) { c.MaxRestraint = math.Inf(1) }, "finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Reference()
			tt.mutate(&cfg)
			m, err := New(cfg)
			if err == nil {
				t.Fatalf("New() = %+v, want error", m)
			}
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("error %v does not wrap ErrInvalidConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %q", err, tt.want)
			}
		})
	}
}

func TestThresholdAt_Reference(t *testing.T) {
	m := mustNew(t, Reference())

	tests := []struct {
		x, want float64
	}{
		{0, 0.27},
		{0.25, 0.27},
		{0.5, 0.27},
		{1.0, 0.395},
		{1.5, 0.52},
		{2.6287, 1.08435},
		{3, 1.27},
		{4, 1.77}, // extrapolated along slope2
	}
	for _, tt := range tests {
		if got := mustThreshold(t, m, tt.x); math.Abs(got-tt.want) > eps {
			t.Errorf("ThresholdAt(%g) = %g, want %g", tt.x, got, tt.want)
		}
	}
}

func TestThresholdAt_OutOfDomain(t *testing.T) {
	m := mustNew(t, Reference())
	for _, x := range []float64{-0.001, -5, math.NaN()} {
		if _, err := m.ThresholdAt(x); !errors.Is(err, ErrOutOfDomain) {
			t.Errorf("ThresholdAt(%g) error = %v, want ErrOutOfDomain", x, err)
		}
	}
	if _, err := m.Classify(Measurement{Restraint: -1, Differential: 1}); !errors.Is(err, ErrOutOfDomain) {
		t.Errorf("Classify with negative restraint error = %v, want ErrOutOfDomain", err)
	}
}

func TestClassify_NaNDifferential(t *testing.T) {
	m := mustNew(t, Reference())
	for _, ir := range []float64{0, 1, 2.6287, 5} {
		meas := Measurement{Restraint: ir, Differential: math.NaN()}
		if c, err := m.Classify(meas); !errors.Is(err, ErrOutOfDomain) {
			t.Errorf("Classify(Ir=%g, Id=NaN) = %v, %v; want ErrOutOfDomain", ir, c.Decision, err)
		}
		if _, err := m.Margin(meas); !errors.Is(err, ErrOutOfDomain) {
			t.Errorf("Margin(Ir=%g, Id=NaN) error = %v, want ErrOutOfDomain", ir, err)
		}
	}
}

func TestThresholdAt_Continuity(t *testing.T) {
	for _, cfg := range testConfigs() {
		m := mustNew(t, cfg)
		for _, bp := range []float64{cfg.Breakpoint1, cfg.Breakpoint2, cfg.MaxRestraint} {
			left := mustThreshold(t, m, bp)
			right := mustThreshold(t, m, math.Nextafter(bp, math.Inf(1)))
			if math.Abs(left-right) > 1e-9 {
				t.Errorf("%+v: jump at %g: %g -> %g", cfg, bp, left, right)
			}
		}
	}
}

func TestThresholdAt_Monotonic(t *testing.T) {
	for _, cfg := range testConfigs() {
		m := mustNew(t, cfg)
		prev := mustThreshold(t, m, 0)
		for x := 0.0; x <= cfg.MaxRestraint*1.5; x += cfg.MaxRestraint / 997 {
			y := mustThreshold(t, m, x)
			if y < prev {
				t.Fatalf("%+v: ThresholdAt(%g) = %g < previous %g", cfg, x, y, prev)
			}
			prev = y
		}
	}
}

func TestClassify_Reference(t *testing.T) {
	m := mustNew(t, Reference())

	tests := []struct {
		name string
		meas Measurement
		want Decision
	}{
		{"LV Substitution Point", Measurement{Restraint: 2.6287, Differential: 1.3144}, OperateSlope},
		{"Above Cutoff", Measurement{Restraint: 1.0, Differential: 5.0}, OperateCutoff},
		{"Exactly Cutoff", Measurement{Restraint: 10, Differential: 4.5}, OperateCutoff},
		{"Below Flat Section", Measurement{Restraint: 0.3, Differential: 0.2}, Restrain},
		{"On Flat Section", Measurement{Restraint: 0.3, Differential: 0.27}, OperateSlope},
		{"Heavy Through Fault", Measurement{Restraint: 8, Differential: 3}, Restrain},
		{"Zero Restraint", Measurement{Restraint: 0, Differential: 0.5}, OperateSlope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Classify(tt.meas)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if got.Decision != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.meas, got.Decision, tt.want)
			}
		})
	}
}

func TestClassify_ConsistentWithThreshold(t *testing.T) {
	for _, cfg := range testConfigs() {
		m := mustNew(t, cfg)
		for x := 0.0; x <= cfg.MaxRestraint*4; x += cfg.MaxRestraint / 113 {
			th := mustThreshold(t, m, x)

			got, err := m.Classify(Measurement{Restraint: x, Differential: th})
			if err != nil {
				t.Fatal(err)
			}
			want := OperateSlope
			if th >= cfg.Cutoff {
				want = OperateCutoff
			}
			if got.Decision != want {
				t.Errorf("%+v: Classify(%g, %g) = %v, want %v", cfg, x, th, got.Decision, want)
			}

			below := math.Min(th, cfg.Cutoff) - 1e-6
			got, err = m.Classify(Measurement{Restraint: x, Differential: below})
			if err != nil {
				t.Fatal(err)
			}
			if got.Decision != Restrain {
				t.Errorf("%+v: Classify(%g, %g) = %v, want restrain", cfg, x, below, got.Decision)
			}
		}
	}
}

func TestMargin(t *testing.T) {
	m := mustNew(t, Reference())
	got, err := m.Margin(Measurement{Restraint: 1.5, Differential: 0.62})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-0.1) > eps {
		t.Errorf("Margin = %g, want 0.1", got)
	}
}

func TestDecision_Text(t *testing.T) {
	for _, d := range []Decision{Restrain, OperateSlope, OperateCutoff} {
		b, err := d.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Decision
		if err := back.UnmarshalText(b); err != nil {
			t.Fatal(err)
		}
		if back != d {
			t.Errorf("%v round-tripped to %v", d, back)
		}
	}
	if Restrain.Operates() || !OperateSlope.Operates() || !OperateCutoff.Operates() {
		t.Error("Operates() mismatch")
	}
	if _, err := Decision(42).MarshalText(); err == nil {
		t.Error("expected error for unknown decision")
	}
}

func TestModel_ConcurrentReads(t *testing.T) {
	m := mustNew(t, Reference())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				x := float64(i*1000+j) / 2000
				if _, err := m.Classify(Measurement{Restraint: x, Differential: x}); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
