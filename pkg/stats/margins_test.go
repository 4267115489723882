package stats

import (
	"math"
	"testing"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

func classify(t *testing.T, m *characteristic.Model, ms *Margins, ir, id float64) {
	t.Helper()
	meas := characteristic.Measurement{Restraint: ir, Differential: id}
	c, err := m.Classify(meas)
	if err != nil {
		t.Fatal(err)
	}
	ms.Record(meas, c)
}

func near(got, want float64) bool {
	return math.Abs(got-want) <= 1e-3*math.Max(1, math.Abs(want))
}

func TestMargins(t *testing.T) {
	m, err := characteristic.New(characteristic.Reference())
	if err != nil {
		t.Fatal(err)
	}
	ms := NewMargins()

	classify(t, m, ms, 0.2, 0.17)  // restrain, 0.10 below
	classify(t, m, ms, 0.2, 0.07)  // restrain, 0.20 below
	classify(t, m, ms, 0.2, -0.03) // restrain, 0.30 below
	classify(t, m, ms, 1.5, 0.62)  // slope, 0.10 above
	classify(t, m, ms, 1.0, 6.5)   // cutoff, 2.0 above

	if ms.Total() != 5 {
		t.Errorf("Total() = %d, want 5", ms.Total())
	}
	if got := ms.Count(characteristic.Restrain); got != 3 {
		t.Errorf("Count(restrain) = %d, want 3", got)
	}
	if got := ms.Min(characteristic.Restrain); !near(got, 0.10) {
		t.Errorf("Min(restrain) = %g, want 0.10", got)
	}
	if got := ms.Quantile(characteristic.Restrain, 1.0); !near(got, 0.30) {
		t.Errorf("Quantile(restrain, 1) = %g, want 0.30", got)
	}
	if got := ms.Quantile(characteristic.OperateCutoff, 0.5); !near(got, 2.0) {
		t.Errorf("Quantile(cutoff, 0.5) = %g, want 2.0", got)
	}

	sum := ms.Summary()
	if len(sum) != 3 {
		t.Fatalf("Summary() has %d entries, want 3: %+v", len(sum), sum)
	}
	if s := sum["operate-slope"]; s.Count != 1 || !near(s.P50, 0.10) {
		t.Errorf("operate-slope summary = %+v", s)
	}
}

func TestMargins_EmptyAndMerge(t *testing.T) {
	m, err := characteristic.New(characteristic.Reference())
	if err != nil {
		t.Fatal(err)
	}

	a, b := NewMargins(), NewMargins()
	if a.Quantile(characteristic.Restrain, 0.5) != 0 || a.Min(characteristic.Restrain) != 0 {
		t.Error("empty histogram should report zero")
	}
	if len(a.Summary()) != 0 {
		t.Errorf("Summary() of empty = %+v", a.Summary())
	}

	classify(t, m, a, 0.1, 0.1)
	classify(t, m, b, 0.1, 0.2)
	classify(t, m, b, 2.0, 3.0)
	a.Merge(b)

	if a.Total() != 3 {
		t.Errorf("Total() after merge = %d, want 3", a.Total())
	}
	if a.Count(characteristic.OperateSlope) != 1 {
		t.Errorf("Count(slope) after merge = %d, want 1", a.Count(characteristic.OperateSlope))
	}
}

func TestMargins_Clamp(t *testing.T) {
	ms := NewMargins()
	ms.Record(
		characteristic.Measurement{Restraint: 1, Differential: 5000},
		characteristic.Classification{Decision: characteristic.OperateCutoff, Threshold: 4.5},
	)
	if ms.Count(characteristic.OperateCutoff) != 1 {
		t.Fatal("clamped value not recorded")
	}
	if got := ms.Quantile(characteristic.OperateCutoff, 1); !near(got, 1000) {
		t.Errorf("Quantile = %g, want 1000 (clamped)", got)
	}
}
