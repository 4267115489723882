package stats

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

const (
	// Margins are tracked in micro-pu.
	scale = 1e6

	minTracked = 1
	maxTracked = 1000 * scale // 1000 pu
	sigFigs    = 3
)

var decisions = []characteristic.Decision{
	characteristic.Restrain,
	characteristic.OperateSlope,
	characteristic.OperateCutoff,
}

// Margins accumulates, per decision, how far measurements sat from the
// level that decided them. It is not safe for concurrent use.
type Margins struct {
	hist map[characteristic.Decision]*hdrhistogram.Histogram
}

func NewMargins() *Margins {
	m := &Margins{hist: make(map[characteristic.Decision]*hdrhistogram.Histogram, len(decisions))}
	for _, d := range decisions {
		m.hist[d] = hdrhistogram.New(minTracked, maxTracked, sigFigs)
	}
	return m
}

// Record adds a classified measurement. The margin is the absolute distance
// between the differential current and the classification's threshold.
func (m *Margins) Record(meas characteristic.Measurement, c characteristic.Classification) {
	h, ok := m.hist[c.Decision]
	if !ok {
		return
	}
	v := int64(math.Round(math.Abs(meas.Differential-c.Threshold) * scale))
	if v > maxTracked {
		v = maxTracked
	}
	// Cannot fail: v is clamped to the trackable range.
	_ = h.RecordValue(v)
}

func (m *Margins) Count(d characteristic.Decision) int64 {
	if h, ok := m.hist[d]; ok {
		return h.TotalCount()
	}
	return 0
}

func (m *Margins) Total() int64 {
	var n int64
	for _, h := range m.hist {
		n += h.TotalCount()
	}
	return n
}

// Quantile returns the margin (pu) at quantile q in [0, 1] for decision d.
func (m *Margins) Quantile(d characteristic.Decision, q float64) float64 {
	h, ok := m.hist[d]
	if !ok || h.TotalCount() == 0 {
		return 0
	}
	return float64(h.ValueAtQuantile(q*100)) / scale
}

// Min returns the smallest margin seen for d, i.e. the closest call.
func (m *Margins) Min(d characteristic.Decision) float64 {
	h, ok := m.hist[d]
	if !ok || h.TotalCount() == 0 {
		return 0
	}
	return float64(h.Min()) / scale
}

func (m *Margins) Merge(other *Margins) {
	for d, h := range other.hist {
		m.hist[d].Merge(h)
	}
}

// DecisionSummary is the JSON form of one decision's margin distribution.
type DecisionSummary struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min_margin"`
	P50   float64 `json:"p50_margin"`
	P90   float64 `json:"p90_margin"`
}

// Summary reports every decision that was recorded at least once, keyed by
// its text form.
func (m *Margins) Summary() map[string]DecisionSummary {
	out := make(map[string]DecisionSummary)
	for _, d := range decisions {
		if m.Count(d) == 0 {
			continue
		}
		out[d.String()] = DecisionSummary{
			Count: m.Count(d),
			Min:   m.Min(d),
			P50:   m.Quantile(d, 0.5),
			P90:   m.Quantile(d, 0.9),
		}
	}
	return out
}
