package agent

import (
	"github.com/runningwild/tripcurve/pkg/characteristic"
	"github.com/runningwild/tripcurve/pkg/stats"
)

// LabeledMeasurement is a measurement as sent over the wire.
type LabeledMeasurement struct {
	Label        string  `json:"label,omitempty"`
	Restraint    float64 `json:"restraint"`
	Differential float64 `json:"differential"`
}

func (m LabeledMeasurement) Measurement() characteristic.Measurement {
	return characteristic.Measurement{Restraint: m.Restraint, Differential: m.Differential}
}

type ClassifyRequest struct {
	Measurements []LabeledMeasurement `json:"measurements"`
}

// Result is the classification of one measurement.
type Result struct {
	LabeledMeasurement
	Decision  characteristic.Decision `json:"decision"`
	Threshold float64                 `json:"threshold"`
	Margin    float64                 `json:"margin"`
}

type ClassifyResponse struct {
	Results []Result                         `json:"results"`
	Summary map[string]stats.DecisionSummary `json:"summary"`
}

type CharacteristicResponse struct {
	Breakpoints [4]characteristic.Point `json:"breakpoints"`
	Cutoff      float64                 `json:"cutoff"`
	Slope1      float64                 `json:"slope1"`
	Slope2      float64                 `json:"slope2"`
}

type ThresholdResponse struct {
	Restraint float64 `json:"restraint"`
	Threshold float64 `json:"threshold"`
}

type errorResponse struct {
	Error string `json:"error"`
}
