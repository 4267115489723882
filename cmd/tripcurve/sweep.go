package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/runningwild/tripcurve/pkg/agent"
	"github.com/runningwild/tripcurve/pkg/analyze"
	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/client"
	"github.com/runningwild/tripcurve/pkg/sweep"
)

// agentTripper asks a remote agent whether a measurement operates.
type agentTripper struct {
	c *client.Client
}

func (t agentTripper) Trips(ctx context.Context, m characteristic.Measurement) (bool, error) {
	res := t.c.Classify(ctx, []agent.LabeledMeasurement{{Restraint: m.Restraint, Differential: m.Differential}})
	if res[0].Err != nil {
		return false, res[0].Err
	}
	return res[0].Response.Results[0].Decision.Operates(), nil
}

// runSweepCmd handles "tripcurve sweep [-node host:9000] [-verify]"
func runSweepCmd(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	f := SetupFlags(fs)
	node := fs.String("node", "", "Search against a remote agent instead of the local settings")
	from := fs.Float64("from", -1, "First restraint current (overrides sweep.from)")
	to := fs.Float64("to", -1, "Last restraint current (overrides sweep.to)")
	step := fs.Float64("step", 0, "Restraint step (overrides sweep.step)")
	verify := fs.Bool("verify", false, "Verify the found trip points against the local settings")
	cfg, model := f.Setup(args)

	plan := cfg.Sweep
	if *from >= 0 {
		plan.From = *from
	}
	if *to >= 0 {
		plan.To = *to
	}
	if *step > 0 {
		plan.Step = *step
	}

	var t sweep.Tripper = sweep.ModelTripper{Model: model}
	if *node != "" {
		t = agentTripper{c: client.New([]string{*node})}
		slog.Info("sweeping remote agent", "node", *node)
	}
	s, err := sweep.New(t, plan, slog.Default())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	results, err := s.Run(context.Background())
	if err != nil {
		fmt.Printf("Sweep failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %-10s %s\n", "Ir (pu)", "Id (pu)", "Probes")
	for _, r := range results {
		if !r.Found {
			fmt.Printf("%-10.4f %-10s %d\n", r.Restraint, "no trip", r.Probes)
			continue
		}
		fmt.Printf("%-10.4f %-10.4f %d\n", r.Restraint, r.Trip, r.Probes)
	}

	if !*verify {
		return
	}
	var points []characteristic.Point
	for _, p := range sweep.Points(results) {
		// Trips at the cutoff say nothing about the restrained characteristic.
		if p.Y < model.Cutoff() {
			points = append(points, p)
		}
	}
	tol := analyze.Tolerance{Level: 0.05, Slope: 0.02}
	rep, err := analyze.Verify(model, points, tol)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !rep.Passed {
		fmt.Println("\nVERIFY FAILED")
		os.Exit(1)
	}
	fmt.Println("\nVERIFY PASSED")
}
