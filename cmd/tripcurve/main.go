package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/config"
	"github.com/runningwild/tripcurve/pkg/render"
	"github.com/runningwild/tripcurve/pkg/report"
)

func main() {
	// Dispatch subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "plot":
			runPlotCmd(os.Args[2:])
			return
		case "classify":
			runClassifyCmd(os.Args[2:])
			return
		case "batch":
			runBatchCmd(os.Args[2:])
			return
		case "verify":
			runVerifyCmd(os.Args[2:])
			return
		case "sweep":
			runSweepCmd(os.Args[2:])
			return
		case "serve":
			runServeCmd(os.Args[2:])
			return
		case "remote":
			runRemoteCmd(os.Args[2:])
			return
		case "help", "-h", "-help", "--help":
			usage()
			return
		}
	}

	// Default behavior (flags -> plot)
	runPlotCmd(os.Args[1:])
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: tripcurve <command> [flags]

Commands:
  plot      Print breakpoints, classify configured points and render the chart (default)
  classify  Classify a single (restraint, differential) point
  batch     Classify points from a CSV file
  verify    Check injection test trip points against the settings
  sweep     Search for trip points across the restraint range
  serve     Run the HTTP agent
  remote    Classify points on one or more remote agents

Run 'tripcurve <command> -h' for command flags.`)
}

// Flags holds pointers to the flags shared by every command.
type Flags struct {
	fs *flag.FlagSet

	ConfigFile  *string
	WriteConfig *string
	Verbose     *bool

	// Characteristic overrides
	MinThreshold *float64
	Breakpoint1  *float64
	Breakpoint2  *float64
	MaxRestraint *float64
	Slope1Pct    *float64
	Slope2Pct    *float64
	Cutoff       *float64
}

func SetupFlags(fs *flag.FlagSet) *Flags {
	def := config.Default().Characteristic
	f := &Flags{fs: fs}
	f.ConfigFile = fs.String("config", "", "Path to YAML configuration file")
	f.WriteConfig = fs.String("write-config", "", "Save the effective configuration to this YAML file")
	f.Verbose = fs.Bool("v", false, "Enable debug logging")

	f.MinThreshold = fs.Float64("min", def.MinThreshold, "Minimum differential pickup (pu)")
	f.Breakpoint1 = fs.Float64("bp1", def.Breakpoint1, "Restraint current where slope 1 starts (pu)")
	f.Breakpoint2 = fs.Float64("bp2", def.Breakpoint2, "Restraint current where slope 2 starts (pu)")
	f.MaxRestraint = fs.Float64("max", def.MaxRestraint, "Upper end of the modeled restraint range (pu)")
	f.Slope1Pct = fs.Float64("slope1", def.Slope1Pct, "Slope 1 (%)")
	f.Slope2Pct = fs.Float64("slope2", def.Slope2Pct, "Slope 2 (%)")
	f.Cutoff = fs.Float64("cutoff", def.Cutoff, "Unrestrained differential cutoff (pu)")
	return f
}

// LoadConfig reads -config if given, then applies any characteristic flag
// that was set explicitly on the command line.
func (f *Flags) LoadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *f.ConfigFile != "" {
		var err error
		cfg, err = config.Load(*f.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	c := &cfg.Characteristic
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "min":
			c.MinThreshold = *f.MinThreshold
		case "bp1":
			c.Breakpoint1 = *f.Breakpoint1
		case "bp2":
			c.Breakpoint2 = *f.Breakpoint2
		case "max":
			c.MaxRestraint = *f.MaxRestraint
		case "slope1":
			c.Slope1Pct = *f.Slope1Pct
		case "slope2":
			c.Slope2Pct = *f.Slope2Pct
		case "cutoff":
			c.Cutoff = *f.Cutoff
		}
	})
	return cfg, nil
}

func (f *Flags) MaybeWriteConfig(cfg *config.Config) {
	if *f.WriteConfig == "" {
		return
	}
	if err := config.Save(*f.WriteConfig, cfg); err != nil {
		slog.Warn("failed to write config file", "path", *f.WriteConfig, "error", err)
		return
	}
	fmt.Printf("Configuration written to %s\n", *f.WriteConfig)
}

func (f *Flags) SetupLogging() {
	setupLogging(*f.Verbose)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// Setup parses args and returns the effective configuration and model,
// exiting on any error.
func (f *Flags) Setup(args []string) (*config.Config, *characteristic.Model) {
	f.fs.Parse(args)
	f.SetupLogging()

	cfg, err := f.LoadConfig()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	model, err := cfg.Characteristic.Model()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	f.MaybeWriteConfig(cfg)
	slog.Debug("characteristic loaded", "config", fmt.Sprintf("%+v", model.Config()))
	return cfg, model
}

// runPlotCmd handles "tripcurve plot [flags]"
func runPlotCmd(args []string) {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	f := SetupFlags(fs)
	outFlag := fs.String("output", "", "Output PNG file (overrides plot.output)")
	noChart := fs.Bool("no-chart", false, "Skip rendering the chart")
	cfg, model := f.Setup(args)

	report.Summary(os.Stdout, model)

	labels := make([]string, len(cfg.Measurements))
	ms := make([]characteristic.Measurement, len(cfg.Measurements))
	markers := make([]render.Marker, len(cfg.Measurements))
	for i, m := range cfg.Measurements {
		labels[i] = m.Label
		ms[i] = m.Point()
		markers[i] = render.Marker{
			Label: m.Label,
			Point: characteristic.Point{X: m.Restraint, Y: m.Differential},
			Note:  m.Note,
		}
	}
	if len(ms) > 0 {
		rows, err := report.Classify(model, labels, ms)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		report.Decisions(os.Stdout, rows)
	}

	if *noChart {
		return
	}
	out := cfg.Plot.Output
	if *outFlag != "" {
		out = *outFlag
	}
	opts := render.Options{
		Title:  cfg.Plot.Title,
		Width:  cfg.Plot.Width,
		Height: cfg.Plot.Height,
		Steps:  cfg.Plot.Steps,
		XMin:   cfg.Plot.XMin,
		XMax:   cfg.Plot.XMax,
		YMax:   cfg.Plot.YMax,
	}
	if err := render.RenderFile(out, model, markers, opts); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nChart written to %s\n", out)
}

// runClassifyCmd handles "tripcurve classify -restraint x -differential y"
func runClassifyCmd(args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	f := SetupFlags(fs)
	ir := fs.Float64("restraint", -1, "Restraint current Ir (pu)")
	id := fs.Float64("differential", -1, "Differential current Id (pu)")
	label := fs.String("label", "", "Label for the point")
	_, model := f.Setup(args)

	if *ir < 0 || *id < 0 {
		fmt.Fprintln(os.Stderr, "error: -restraint and -differential are required and must be >= 0")
		fs.Usage()
		os.Exit(2)
	}

	rows, err := report.Classify(model, []string{*label}, []characteristic.Measurement{{Restraint: *ir, Differential: *id}})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	report.Decisions(os.Stdout, rows)
}
