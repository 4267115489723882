package analyze

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

func referenceModel(t *testing.T) *characteristic.Model {
	t.Helper()
	m, err := characteristic.New(characteristic.Reference())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// tripPoints returns points exactly on the characteristic, scaled by gain.
func tripPoints(t *testing.T, m *characteristic.Model, gain float64, xs ...float64) []Point {
	t.Helper()
	pts := make([]Point, 0, len(xs))
	for _, x := range xs {
		y, err := m.ThresholdAt(x)
		if err != nil {
			t.Fatal(err)
		}
		pts = append(pts, Point{X: x, Y: y * gain})
	}
	return pts
}

func TestDetectBreakpoints(t *testing.T) {
	m := referenceModel(t)
	seq, err := m.SampleCurve(60)
	if err != nil {
		t.Fatal(err)
	}

	d := &Detector{SlopeTolerance: 0.05}
	got := d.DetectBreakpoints(slices.Collect(seq))
	if len(got) != 2 {
		t.Fatalf("DetectBreakpoints() = %v, want 2 vertices", got)
	}
	if got[0] != m.B() || got[1] != m.C() {
		t.Errorf("DetectBreakpoints() = %v, want [%v %v]", got, m.B(), m.C())
	}
}

func TestDetectBreakpoints_Short(t *testing.T) {
	d := &Detector{SlopeTolerance: 0.05}
	if got := d.DetectBreakpoints([]Point{{X: 0, Y: 1}, {X: 1, Y: 2}}); got != nil {
		t.Errorf("DetectBreakpoints() = %v, want nil", got)
	}
}

func TestFitSegments(t *testing.T) {
	m := referenceModel(t)
	pts := tripPoints(t, m, 1, 0, 0.25, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 4.0)

	fits := FitSegments(pts, 0.5, 1.5)
	want := []struct {
		slope float64
		count int
	}{
		{0, 3},
		{0.25, 3},
		{0.5, 5},
	}
	for i, w := range want {
		f := fits[i]
		if !f.Valid {
			t.Fatalf("segment %d not fitted: %+v", i, f)
		}
		if math.Abs(f.Slope-w.slope) > 1e-9 {
			t.Errorf("segment %d slope = %g, want %g", i, f.Slope, w.slope)
		}
		if f.Count != w.count {
			t.Errorf("segment %d count = %d, want %d", i, f.Count, w.count)
		}
		if f.RMS > 1e-9 {
			t.Errorf("segment %d RMS = %g, want 0", i, f.RMS)
		}
	}
	if math.Abs(fits[2].At(3)-m.D().Y) > 1e-9 {
		t.Errorf("segment 2 at 3 = %g, want %g", fits[2].At(3), m.D().Y)
	}
}

func TestFitSegments_Sparse(t *testing.T) {
	fits := FitSegments([]Point{{X: 2, Y: 1}}, 0.5, 1.5)
	if fits[0].Valid || fits[1].Valid || fits[2].Valid {
		t.Errorf("expected no valid fits, got %+v", fits)
	}
	if fits[2].Count != 1 {
		t.Errorf("segment 2 count = %d, want 1", fits[2].Count)
	}
}

func TestVerify(t *testing.T) {
	m := referenceModel(t)
	xs := []float64{0.2, 0.5, 1.0, 1.5, 2.0, 3.0}
	tol := Tolerance{Level: 0.05, Slope: 0.02}

	tests := []struct {
		name   string
		points []Point
		passed bool
	}{
		{"Exact", tripPoints(t, m, 1, xs...), true},
		{"Within Level Tolerance", tripPoints(t, m, 1.02, xs...), true},
		{"Relay Trips Late", tripPoints(t, m, 1.10, xs...), false},
		{
			"Wrong Second Slope",
			append(tripPoints(t, m, 1, 0.2, 1.5), Point{X: 2.5, Y: 1.02}, Point{X: 3.5, Y: 1.62}),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Verify(m, tt.points, tol)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if rep.Passed != tt.passed {
				t.Errorf("Passed = %v, want %v (report %+v)", rep.Passed, tt.passed, rep)
			}
			if len(rep.Points) != len(tt.points) {
				t.Errorf("checked %d points, want %d", len(rep.Points), len(tt.points))
			}
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	m := referenceModel(t)
	if _, err := Verify(m, []Point{{X: -1, Y: 0.3}}, Tolerance{}); err == nil {
		t.Error("expected error for negative restraint")
	}
	if _, err := Verify(m, []Point{{X: 1, Y: 5}}, Tolerance{}); err == nil {
		t.Error("expected error for point above cutoff")
	}
}

func TestReadCSV(t *testing.T) {
	in := `restraint,differential,label
# injection test, phase A
0.2, 0.27, A1
1.0,0.40
2.6287,1.3144,LV x2
`
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	want := []Sample{
		{Label: "A1", Point: Point{X: 0.2, Y: 0.27}},
		{Point: Point{X: 1.0, Y: 0.40}},
		{Label: "LV x2", Point: Point{X: 2.6287, Y: 1.3144}},
	}
	if !slices.Equal(got, want) {
		t.Errorf("ReadCSV() = %+v, want %+v", got, want)
	}
	if pts := Points(got); len(pts) != 3 || pts[2] != want[2].Point {
		t.Errorf("Points() = %v", pts)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"Bad Row", "1,2\nx,3\n"},
		{"Single Field", "1,2\n3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
