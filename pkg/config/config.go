package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

// Config represents the top-level configuration for a characteristic study.
type Config struct {
	Characteristic Characteristic `yaml:"characteristic"`
	Measurements   []Measurement  `yaml:"measurements,omitempty"`
	Plot           Plot           `yaml:"plot"`
	Server         Server         `yaml:"server"`
	Journal        Journal        `yaml:"journal"`
	Sweep          Sweep          `yaml:"sweep"`
}

// Characteristic holds the relay settings. Slopes are given in percent, the
// way they appear on relay setting sheets.
type Characteristic struct {
	MinThreshold float64 `yaml:"min_threshold"` // pu
	Breakpoint1  float64 `yaml:"breakpoint1"`   // pu restraint
	Breakpoint2  float64 `yaml:"breakpoint2"`   // pu restraint
	MaxRestraint float64 `yaml:"max_restraint"` // pu restraint
	Slope1Pct    float64 `yaml:"slope1_pct"`
	Slope2Pct    float64 `yaml:"slope2_pct"`
	Cutoff       float64 `yaml:"cutoff"` // pu differential
}

// Measurement is an annotated operating point to classify and plot.
type Measurement struct {
	Label        string  `yaml:"label"`
	Restraint    float64 `yaml:"restraint"`
	Differential float64 `yaml:"differential"`
	Note         string  `yaml:"note,omitempty"` // Callout text on the chart
}

type Plot struct {
	Output string  `yaml:"output"`
	Title  string  `yaml:"title"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Steps  int     `yaml:"steps"` // Sample intervals over [0, max_restraint]
	XMin   float64 `yaml:"x_min"`
	XMax   float64 `yaml:"x_max"`
	YMax   float64 `yaml:"y_max"` // Top of the chart and of the operate region fill
}

type Server struct {
	Listen string `yaml:"listen"`
}

// Journal configures the classification journal. An empty path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Sweep describes a trip search across the restraint range, the way a
// secondary injection test set walks the characteristic.
type Sweep struct {
	From            float64 `yaml:"from"` // pu restraint
	To              float64 `yaml:"to"`   // pu restraint
	Step            float64 `yaml:"step"`
	MaxDifferential float64 `yaml:"max_differential"` // Search ceiling (pu)
	Resolution      float64 `yaml:"resolution"`       // Stop when the trip bracket is narrower than this (pu)
}

// Default returns the reference characteristic with the LV current
// substitution point and default chart settings.
func Default() *Config {
	ref := characteristic.Reference()
	return &Config{
		Characteristic: Characteristic{
			MinThreshold: ref.MinThreshold,
			Breakpoint1:  ref.Breakpoint1,
			Breakpoint2:  ref.Breakpoint2,
			MaxRestraint: ref.MaxRestraint,
			Slope1Pct:    ref.Slope1 * 100,
			Slope2Pct:    ref.Slope2 * 100,
			Cutoff:       ref.Cutoff,
		},
		Measurements: []Measurement{
			{Label: "LV x2", Restraint: 2.6287, Differential: 1.3144, Note: "LV-side current substitution"},
		},
		Plot: Plot{
			Output: "differential_protection_characteristic.png",
			Title:  "Transformer differential protection characteristic",
			Width:  1000,
			Height: 800,
			Steps:  100,
			XMin:   -0.05,
			XMax:   3.15,
			YMax:   5.5,
		},
		Server: Server{Listen: ":9000"},
		Sweep: Sweep{
			From:            0,
			To:              ref.MaxRestraint,
			Step:            0.25,
			MaxDifferential: ref.Cutoff,
			Resolution:      0.001,
		},
	}
}

// Load reads a YAML file on top of Default(), so keys missing from the file
// keep their default values while explicit zeros are honoured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Set defaults for settings that make no sense at zero
	def := Default()
	if cfg.Plot.Steps <= 0 {
		cfg.Plot.Steps = def.Plot.Steps
	}
	if cfg.Plot.Width <= 0 {
		cfg.Plot.Width = def.Plot.Width
	}
	if cfg.Plot.Height <= 0 {
		cfg.Plot.Height = def.Plot.Height
	}
	if cfg.Plot.Output == "" {
		cfg.Plot.Output = def.Plot.Output
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if cfg.Sweep.Step <= 0 {
		cfg.Sweep.Step = def.Sweep.Step
	}
	if cfg.Sweep.Resolution <= 0 {
		cfg.Sweep.Resolution = def.Sweep.Resolution
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Model converts the settings into a characteristic model, converting the
// slopes from percent to fractions.
func (c Characteristic) Model() (*characteristic.Model, error) {
	return characteristic.New(characteristic.Config{
		MinThreshold: c.MinThreshold,
		Breakpoint1:  c.Breakpoint1,
		Breakpoint2:  c.Breakpoint2,
		MaxRestraint: c.MaxRestraint,
		Slope1:       c.Slope1Pct / 100,
		Slope2:       c.Slope2Pct / 100,
		Cutoff:       c.Cutoff,
	})
}

func (m Measurement) Point() characteristic.Measurement {
	return characteristic.Measurement{Restraint: m.Restraint, Differential: m.Differential}
}
