package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/runningwild/tripcurve/pkg/agent"
	"github.com/runningwild/tripcurve/pkg/client"
	"github.com/runningwild/tripcurve/pkg/journal"
)

// runServeCmd handles "tripcurve serve [flags]"
func runServeCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	f := SetupFlags(fs)
	listen := fs.String("listen", "", "Address to listen on (overrides server.listen)")
	cfg, model := f.Setup(args)

	addr := cfg.Server.Listen
	if *listen != "" {
		addr = *listen
	}

	var rec agent.Recorder
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			fmt.Printf("Agent Startup Error: %v\n", err)
			os.Exit(1)
		}
		defer j.Close()
		rec = j
		slog.Info("journal enabled", "path", cfg.Journal.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := agent.NewServer(model, rec, slog.Default())
	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("Agent failed: %v\n", err)
		os.Exit(1)
	}
}

// remoteFlags are the flags of the remote command. The characteristic lives
// on the agents, so none of the settings flags apply.
type remoteFlags struct {
	Verbose      *bool
	Nodes        *string
	CSV          *string
	Restraint    *float64
	Differential *float64
}

func setupRemoteFlags(fs *flag.FlagSet) *remoteFlags {
	return &remoteFlags{
		Verbose:      fs.Bool("v", false, "Enable debug logging"),
		Nodes:        fs.String("nodes", "", "Comma-separated list of tripcurve agents (e.g. relay1:9000)"),
		CSV:          fs.String("csv", "", "CSV file of points to classify"),
		Restraint:    fs.Float64("restraint", -1, "Restraint current Ir (pu)"),
		Differential: fs.Float64("differential", -1, "Differential current Id (pu)"),
	}
}

// runRemoteCmd handles "tripcurve remote -nodes host1:9000,host2:9000 [-csv file | -restraint x -differential y]"
func runRemoteCmd(args []string) {
	fs := flag.NewFlagSet("remote", flag.ExitOnError)
	rf := setupRemoteFlags(fs)
	fs.Parse(args)
	setupLogging(*rf.Verbose)

	if *rf.Nodes == "" {
		fmt.Println("Error: -nodes is required")
		os.Exit(2)
	}
	nodes := strings.Split(*rf.Nodes, ",")

	var batch []agent.LabeledMeasurement
	switch {
	case *rf.CSV != "":
		samples, err := readSamples(*rf.CSV)
		if err != nil {
			fmt.Printf("Error reading points: %v\n", err)
			os.Exit(1)
		}
		for _, s := range samples {
			batch = append(batch, agent.LabeledMeasurement{Label: s.Label, Restraint: s.Point.X, Differential: s.Point.Y})
		}
	case *rf.Restraint >= 0 && *rf.Differential >= 0:
		batch = append(batch, agent.LabeledMeasurement{Restraint: *rf.Restraint, Differential: *rf.Differential})
	default:
		fmt.Println("Error: give either -csv or -restraint and -differential")
		os.Exit(2)
	}

	fmt.Printf("Classifying %d points on %d agents...\n", len(batch), len(nodes))
	c := client.New(nodes)
	failed := false
	for _, res := range c.Classify(context.Background(), batch) {
		if res.Err != nil {
			fmt.Printf("\n[%s] error: %v\n", res.Node, res.Err)
			failed = true
			continue
		}
		fmt.Printf("\n[%s]\n", res.Node)
		for _, r := range res.Response.Results {
			label := r.Label
			if label == "" {
				label = "-"
			}
			fmt.Printf("  %-16s Ir=%.4f Id=%.4f threshold=%.4f margin=%+.4f %s\n",
				label, r.Restraint, r.Differential, r.Threshold, r.Margin, r.Decision)
		}
	}
	if failed {
		os.Exit(1)
	}
}
