package characteristic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned by New when a Config breaks one of
	// the ordering or positivity rules.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrOutOfDomain is returned for negative restraint currents.
	ErrOutOfDomain = errors.New("restraint current out of domain")
	// ErrInvalidStepCount is returned by SampleCurve for a step count < 1.
	ErrInvalidStepCount = errors.New("step count must be positive")
)

// Config holds the settings of a dual-slope biased differential element.
// All currents are per-unit of the rated current.
type Config struct {
	MinThreshold float64 // Differential floor of the flat section
	Breakpoint1  float64 // Restraint current where slope1 starts
	Breakpoint2  float64 // Restraint current where slope2 starts
	MaxRestraint float64 // Upper end of the modeled restraint range
	Slope1       float64 // Fraction, e.g. 0.25 for 25%
	Slope2       float64
	Cutoff       float64 // Unrestrained high-set differential threshold
}

// Reference returns the 0.27 pu / 25% / 50% characteristic with a 4.5 pu
// high-set element.
func Reference() Config {
	return Config{
		MinThreshold: 0.27,
		Breakpoint1:  0.5,
		Breakpoint2:  1.5,
		MaxRestraint: 3,
		Slope1:       0.25,
		Slope2:       0.50,
		Cutoff:       4.5,
	}
}

// Point is a (restraint, differential) coordinate on the characteristic plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Measurement is a single operating point to classify.
type Measurement struct {
	Restraint    float64 `json:"restraint" yaml:"restraint"`
	Differential float64 `json:"differential" yaml:"differential"`
}

// Decision is the protection outcome for a measurement.
type Decision int

const (
	Restrain Decision = iota
	OperateSlope
	OperateCutoff
)

var decisionNames = map[Decision]string{
	Restrain:      "restrain",
	OperateSlope:  "operate-slope",
	OperateCutoff: "operate-cutoff",
}

func (d Decision) String() string {
	if s, ok := decisionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Operates reports whether the decision trips the protection.
func (d Decision) Operates() bool {
	return d == OperateSlope || d == OperateCutoff
}

func (d Decision) MarshalText() ([]byte, error) {
	if _, ok := decisionNames[d]; !ok {
		return nil, fmt.Errorf("unknown decision %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	for k, v := range decisionNames {
		if v == string(text) {
			*d = k
			return nil
		}
	}
	return fmt.Errorf("unknown decision %q", string(text))
}

// Classification is the result of Classify. Threshold is the level the
// differential current was compared against: the cutoff for OperateCutoff,
// the sloped characteristic otherwise.
type Classification struct {
	Decision  Decision `json:"decision"`
	Threshold float64  `json:"threshold"`
}
