package domain

import "slices"

// DecisionKind is AUTO when a runway was selected, MANUAL when a human must choose.
type DecisionKind string

const (
	Auto   DecisionKind = "AUTO"
	Manual DecisionKind = "MANUAL"
)

// Reasons produced outside the airport's override rules.
const (
	ReasonCrosswindLimit    = "crosswind_limit"
	ReasonTailwindLimit     = "tailwind_limit"
	ReasonNoRunways         = "no_runways"
	ReasonMalformedReport   = "malformed_report"
	ReasonReportUnavailable = "report_unavailable"
)

// RunwayEvaluation records the worst-case components computed for one runway.
type RunwayEvaluation struct {
	Designator  string  `json:"designator"`
	HeadingDeg  float64 `json:"heading"`
	HeadwindKt  float64 `json:"headwind_kt"`
	CrosswindKt float64 `json:"crosswind_kt"`
}

// Decision is the outcome of evaluating one airport. An AUTO decision has a
// Runway and no Reasons; a MANUAL decision has Reasons and no Runway.
type Decision struct {
	ICAO        string             `json:"icao"`
	Kind        DecisionKind       `json:"kind"`
	Runway      string             `json:"runway,omitempty"`
	Reasons     []string           `json:"reasons,omitempty"`
	Evaluations []RunwayEvaluation `json:"evaluations,omitempty"`
}

// AutoDecision selects a runway.
func AutoDecision(icao, runway string, evals []RunwayEvaluation) Decision {
	return Decision{ICAO: icao, Kind: Auto, Runway: runway, Evaluations: evals}
}

// ManualDecision defers to a human for the given reasons.
func ManualDecision(icao string, evals []RunwayEvaluation, reasons ...string) Decision {
	return Decision{ICAO: icao, Kind: Manual, Reasons: slices.Clone(reasons), Evaluations: evals}
}

// IsAuto reports whether a runway was selected.
func (d Decision) IsAuto() bool {
	return d.Kind == Auto
}
