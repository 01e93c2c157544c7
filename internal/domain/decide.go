package domain

import (
	"math"
	"slices"
)

// componentEpsilon absorbs floating error when comparing wind components.
const componentEpsilon = 1e-6

// Decide selects a runway for the airport under the observed weather.
//
// Every override rule is evaluated; if any fires the decision is MANUAL with
// all firing rule names in declared order. Otherwise the first priority rule
// whose best crosswind is below its threshold picks from its runway set, and
// failing that all runways are ranked. The airport should have passed
// Validate.
func Decide(obs Observation, ap AirportConfig) Decision {
	if len(ap.Runways) == 0 {
		return ManualDecision(ap.ICAO, nil, ReasonNoRunways)
	}

	evals := evaluateRunways(obs.Wind, ap.Runways)

	if reasons := firedOverrides(obs, ap.Overrides); len(reasons) > 0 {
		return ManualDecision(ap.ICAO, evals, reasons...)
	}

	chosen, ok := applyPriority(evals, ap.Priority)
	if !ok {
		chosen = slices.MinFunc(evals, compareEvaluations)
	}

	var limits []string
	if ap.CrosswindLimitKt != nil && chosen.CrosswindKt > *ap.CrosswindLimitKt+componentEpsilon {
		limits = append(limits, ReasonCrosswindLimit)
	}
	if ap.TailwindLimitKt != nil && -chosen.HeadwindKt > *ap.TailwindLimitKt+componentEpsilon {
		limits = append(limits, ReasonTailwindLimit)
	}
	if len(limits) > 0 {
		return ManualDecision(ap.ICAO, evals, limits...)
	}

	return AutoDecision(ap.ICAO, chosen.Designator, evals)
}

func evaluateRunways(w *Wind, runways []RunwayConfig) []RunwayEvaluation {
	evals := make([]RunwayEvaluation, len(runways))
	for i, r := range runways {
		var c Components
		if w != nil {
			c = w.WorstCase(r.HeadingDeg)
		}
		evals[i] = RunwayEvaluation{
			Designator:  r.Designator,
			HeadingDeg:  r.HeadingDeg,
			HeadwindKt:  c.HeadwindKt,
			CrosswindKt: c.CrosswindKt,
		}
	}
	return evals
}

func firedOverrides(obs Observation, rules []OverrideRule) []string {
	var reasons []string
	for _, r := range rules {
		if overrideFires(obs, r) && !slices.Contains(reasons, r.Reason()) {
			reasons = append(reasons, r.Reason())
		}
	}
	return reasons
}

func overrideFires(obs Observation, r OverrideRule) bool {
	threshold := r.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold(r.Kind)
	}

	switch r.Kind {
	case OverrideVariableWind:
		return obs.Wind != nil && obs.Wind.Direction.Kind == VariableDirection
	case OverrideFog:
		return obs.HasPhenomenon("FG")
	case OverrideSnow:
		return obs.HasPhenomenon("SN", "SG")
	case OverrideRVR:
		return len(obs.RVR) > 0
	case OverrideLowVisibility:
		return obs.Visibility != nil && !obs.Visibility.CAVOK && float64(obs.Visibility.Meters) < threshold
	case OverrideLowTemperature:
		return obs.TemperatureC != nil && float64(*obs.TemperatureC) < threshold
	case OverrideLowCeiling:
		c, ok := obs.Ceiling()
		return ok && float64(c.BaseFt) < threshold
	}
	return false
}

// applyPriority returns the pick of the first rule whose best crosswind is
// below its threshold.
func applyPriority(evals []RunwayEvaluation, rules []PriorityRule) (RunwayEvaluation, bool) {
	for _, rule := range rules {
		var set []RunwayEvaluation
		for _, e := range evals {
			if slices.Contains(rule.Runways, e.Designator) {
				set = append(set, e)
			}
		}
		if len(set) == 0 {
			continue
		}
		best := slices.MinFunc(set, compareEvaluations)
		if best.CrosswindKt < rule.ThresholdKt {
			return best, true
		}
	}
	return RunwayEvaluation{}, false
}

// compareEvaluations ranks by crosswind ascending, headwind descending, then designator.
func compareEvaluations(a, b RunwayEvaluation) int {
	if d := a.CrosswindKt - b.CrosswindKt; math.Abs(d) > componentEpsilon {
		if d < 0 {
			return -1
		}
		return 1
	}
	if d := a.HeadwindKt - b.HeadwindKt; math.Abs(d) > componentEpsilon {
		if d > 0 {
			return -1
		}
		return 1
	}
	return CompareDesignators(a.Designator, b.Designator)
}
