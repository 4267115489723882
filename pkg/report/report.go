// Package report prints plain-text summaries of a characteristic and of
// classified measurements.
package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/stats"
)

// Row is one classified measurement.
type Row struct {
	Label          string
	Measurement    characteristic.Measurement
	Classification characteristic.Classification
	Margin         float64 // Signed distance to the sloped characteristic
}

// Summary prints the breakpoints and the cutoff.
func Summary(w io.Writer, m *characteristic.Model) {
	fmt.Fprintln(w, "Characteristic breakpoints:")
	for i, p := range m.Breakpoints() {
		fmt.Fprintf(w, "Point %c: Ir = %.2f pu, Id = %.2f pu\n", 'A'+i, p.X, p.Y)
	}
	fmt.Fprintf(w, "\nDifferential cutoff: %.2f pu\n", m.Cutoff())
}

// Classify evaluates labelled measurements against m. It stops at the first
// out-of-domain measurement.
func Classify(m *characteristic.Model, labels []string, ms []characteristic.Measurement) ([]Row, error) {
	rows := make([]Row, 0, len(ms))
	for i, meas := range ms {
		c, err := m.Classify(meas)
		if err != nil {
			return nil, fmt.Errorf("measurement %d: %w", i+1, err)
		}
		margin, err := m.Margin(meas)
		if err != nil {
			return nil, err
		}
		row := Row{Measurement: meas, Classification: c, Margin: margin}
		if i < len(labels) {
			row.Label = labels[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Decisions prints one line per row.
func Decisions(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tIr (pu)\tId (pu)\tTHRESHOLD\tMARGIN\tDECISION")
	for _, r := range rows {
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%+.4f\t%s\n",
			label, r.Measurement.Restraint, r.Measurement.Differential,
			r.Classification.Threshold, r.Margin, r.Classification.Decision)
	}
	return tw.Flush()
}

// Margins prints the per-decision margin distribution.
func Margins(w io.Writer, ms *stats.Margins) {
	fmt.Fprintf(w, "Classified %d measurements\n", ms.Total())
	sum := ms.Summary()
	for _, name := range slices.Sorted(maps.Keys(sum)) {
		s := sum[name]
		fmt.Fprintf(w, "  %-15s n=%-5d closest=%.4f p50=%.4f p90=%.4f\n", name, s.Count, s.Min, s.P50, s.P90)
	}
}
