package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/runningwild/tripcurve/pkg/analyze"
	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/journal"
	"github.com/runningwild/tripcurve/pkg/report"
	"github.com/runningwild/tripcurve/pkg/stats"
)

func readSamples(path string) ([]analyze.Sample, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer fh.Close()
		r = fh
	}
	return analyze.ReadCSV(r)
}

// runBatchCmd handles "tripcurve batch -csv points.csv"
func runBatchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	f := SetupFlags(fs)
	csvFlag := fs.String("csv", "-", "CSV file of restraint,differential[,label] rows ('-' for stdin)")
	journalFlag := fs.String("journal", "", "SQLite journal to record results in (overrides journal.path)")
	cfg, model := f.Setup(args)

	samples, err := readSamples(*csvFlag)
	if err != nil {
		fmt.Printf("Error reading points: %v\n", err)
		os.Exit(1)
	}

	labels := make([]string, len(samples))
	ms := make([]characteristic.Measurement, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
		ms[i] = characteristic.Measurement{Restraint: s.Point.X, Differential: s.Point.Y}
	}
	rows, err := report.Classify(model, labels, ms)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	margins := stats.NewMargins()
	for _, r := range rows {
		margins.Record(r.Measurement, r.Classification)
	}
	report.Decisions(os.Stdout, rows)
	fmt.Println()
	report.Margins(os.Stdout, margins)

	path := cfg.Journal.Path
	if *journalFlag != "" {
		path = *journalFlag
	}
	if path == "" {
		return
	}
	j, err := journal.Open(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer j.Close()

	entries := make([]journal.Entry, len(rows))
	for i, r := range rows {
		entries[i] = journal.Entry{Label: r.Label, Measurement: r.Measurement, Classification: r.Classification}
	}
	if _, err := j.Record(context.Background(), entries...); err != nil {
		slog.Error("failed to journal results", "path", path, "error", err)
		return
	}
	slog.Info("results journaled", "path", path, "count", len(entries))
}

// runVerifyCmd handles "tripcurve verify -csv injection.csv"
func runVerifyCmd(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	f := SetupFlags(fs)
	csvFlag := fs.String("csv", "-", "CSV file of measured trip points ('-' for stdin)")
	levelTol := fs.Float64("level-tol", 0.05, "Relative trip level tolerance, e.g. 0.05 for 5%")
	slopeTol := fs.Float64("slope-tol", 0.02, "Absolute slope tolerance, e.g. 0.02 for 2 percentage points")
	_, model := f.Setup(args)

	samples, err := readSamples(*csvFlag)
	if err != nil {
		fmt.Printf("Error reading points: %v\n", err)
		os.Exit(1)
	}
	points := analyze.Points(samples)

	rep, err := analyze.Verify(model, points, analyze.Tolerance{Level: *levelTol, Slope: *slopeTol})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(">>> Trip Points <<<")
	for _, pc := range rep.Points {
		fmt.Printf("Ir=%.4f  Id=%.4f  expected=%.4f  deviation=%+.2f%%  %s\n",
			pc.Point.X, pc.Point.Y, pc.Expected, pc.Deviation*100, verdict(pc.OK))
	}

	fmt.Println("\n>>> Sections <<<")
	names := []string{"flat", "slope 1", "slope 2"}
	for i, sc := range rep.Segments {
		if !sc.Fit.Valid {
			fmt.Printf("%-8s not enough points (%d)\n", names[i], sc.Fit.Count)
			continue
		}
		fmt.Printf("%-8s measured=%.2f%%  set=%.2f%%  rms=%.4f  n=%d  %s\n",
			names[i], sc.Fit.Slope*100, sc.Expected*100, sc.Fit.RMS, sc.Fit.Count, verdict(sc.OK))
	}

	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b characteristic.Point) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	d := &analyze.Detector{SlopeTolerance: *slopeTol * 2}
	if vs := d.DetectBreakpoints(sorted); len(vs) > 0 {
		var parts []string
		for _, v := range vs {
			parts = append(parts, fmt.Sprintf("%.3f", v.X))
		}
		fmt.Printf("\nSlope changes observed at Ir = %s pu\n", strings.Join(parts, ", "))
	}

	if !rep.Passed {
		fmt.Println("\nVERIFY FAILED")
		os.Exit(1)
	}
	fmt.Println("\nVERIFY PASSED")
}

func verdict(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
