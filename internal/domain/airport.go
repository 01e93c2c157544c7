package domain

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// OverrideKind names a built-in "ask the human" condition.
type OverrideKind string

const (
	OverrideVariableWind   OverrideKind = "variable_wind"
	OverrideFog            OverrideKind = "fog"
	OverrideLowVisibility  OverrideKind = "low_visibility"
	OverrideRVR            OverrideKind = "rvr"
	OverrideLowTemperature OverrideKind = "low_temperature"
	OverrideSnow           OverrideKind = "snow"
	OverrideLowCeiling     OverrideKind = "low_ceiling"
)

// Default thresholds for override kinds that compare against a value.
const (
	DefaultMinVisibilityM   = 2001 // fires at 2000 m and below
	DefaultMinTemperatureC  = 5    // fires at 4 °C and below
	DefaultMinCeilingFt     = 300  // fires at 200 ft and below
	DefaultPriorityMaxXwind = 15
)

// OverrideRule is one named predicate. Threshold applies to the low_* kinds;
// the predicate fires when the observed value is strictly below it. Zero
// means DefaultThreshold for the kind.
type OverrideRule struct {
	Name      string       `mapstructure:"name" json:"name,omitempty"`
	Kind      OverrideKind `mapstructure:"kind" json:"kind"`
	Threshold float64      `mapstructure:"threshold" json:"threshold,omitempty"`
}

// Reason returns the name reported when the rule fires.
func (r OverrideRule) Reason() string {
	if r.Name != "" {
		return r.Name
	}
	return string(r.Kind)
}

// PriorityRule prefers a set of runways while their best crosswind stays
// below ThresholdKt.
type PriorityRule struct {
	Runways     []string `mapstructure:"runways" json:"runways"`
	ThresholdKt float64  `mapstructure:"threshold_kt" json:"threshold_kt"`
}

// RunwayMode is a named combination of departure and arrival runways offered
// to the controller when the decision is MANUAL.
type RunwayMode struct {
	Name      string   `mapstructure:"name" json:"name"`
	Departure []string `mapstructure:"departure" json:"departure"`
	Arrival   []string `mapstructure:"arrival" json:"arrival"`
}

// RunwayConfig is one runway end.
type RunwayConfig struct {
	Designator string  `mapstructure:"designator" json:"designator"`
	HeadingDeg float64 `mapstructure:"heading" json:"heading"`
}

// AirportConfig holds the static rules for one airport. It is read-only once
// validated. Nil limits are not enforced.
type AirportConfig struct {
	ICAO             string         `mapstructure:"icao" json:"icao"`
	Runways          []RunwayConfig `mapstructure:"runways" json:"runways"`
	CrosswindLimitKt *float64       `mapstructure:"crosswind_limit_kt" json:"crosswind_limit_kt,omitempty"`
	TailwindLimitKt  *float64       `mapstructure:"tailwind_limit_kt" json:"tailwind_limit_kt,omitempty"`
	Overrides        []OverrideRule `mapstructure:"overrides" json:"overrides,omitempty"`
	Priority         []PriorityRule `mapstructure:"priority" json:"priority,omitempty"`
	PreferredRunway  string         `mapstructure:"preferred_runway" json:"preferred_runway,omitempty"`
	Modes            []RunwayMode   `mapstructure:"modes" json:"modes,omitempty"`
}

var icaoRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)

// Validate checks the configuration and returns a *ConfigurationError for the
// first problem found.
func (a AirportConfig) Validate() error {
	if !icaoRe.MatchString(a.ICAO) {
		return configErrorf(a.ICAO, "invalid ICAO code %q", a.ICAO)
	}
	if len(a.Runways) == 0 {
		return configErrorf(a.ICAO, "no runways configured")
	}

	seen := make(map[string]bool, len(a.Runways))
	for _, r := range a.Runways {
		if strings.TrimSpace(r.Designator) == "" {
			return configErrorf(a.ICAO, "runway with empty designator")
		}
		if seen[r.Designator] {
			return configErrorf(a.ICAO, "duplicate runway designator %q", r.Designator)
		}
		seen[r.Designator] = true
		if r.HeadingDeg < 0 || r.HeadingDeg >= 360 {
			return configErrorf(a.ICAO, "runway %s heading %g outside [0,360)", r.Designator, r.HeadingDeg)
		}
	}

	for _, o := range a.Overrides {
		if !knownOverride(o.Kind) {
			return configErrorf(a.ICAO, "unknown override kind %q", o.Kind)
		}
		if o.Threshold < 0 {
			return configErrorf(a.ICAO, "override %s has negative threshold", o.Reason())
		}
	}

	for i, p := range a.Priority {
		if len(p.Runways) == 0 {
			return configErrorf(a.ICAO, "priority rule %d has no runways", i)
		}
		if p.ThresholdKt <= 0 {
			return configErrorf(a.ICAO, "priority rule %d threshold must be positive", i)
		}
		for _, d := range p.Runways {
			if !seen[d] {
				return configErrorf(a.ICAO, "priority rule %d references unknown runway %q", i, d)
			}
		}
	}

	if a.PreferredRunway != "" && !seen[a.PreferredRunway] {
		return configErrorf(a.ICAO, "preferred runway %q is not configured", a.PreferredRunway)
	}

	for _, m := range a.Modes {
		if m.Name == "" {
			return configErrorf(a.ICAO, "runway mode without a name")
		}
		for _, d := range slices.Concat(m.Departure, m.Arrival) {
			if !seen[d] {
				return configErrorf(a.ICAO, "mode %s references unknown runway %q", m.Name, d)
			}
		}
	}

	if a.CrosswindLimitKt != nil && *a.CrosswindLimitKt < 0 {
		return configErrorf(a.ICAO, "negative crosswind limit")
	}
	if a.TailwindLimitKt != nil && *a.TailwindLimitKt < 0 {
		return configErrorf(a.ICAO, "negative tailwind limit")
	}
	return nil
}

// Runway returns the runway with the given designator.
func (a AirportConfig) Runway(designator string) (RunwayConfig, bool) {
	for _, r := range a.Runways {
		if r.Designator == designator {
			return r, true
		}
	}
	return RunwayConfig{}, false
}

func knownOverride(k OverrideKind) bool {
	switch k {
	case OverrideVariableWind, OverrideFog, OverrideLowVisibility, OverrideRVR,
		OverrideLowTemperature, OverrideSnow, OverrideLowCeiling:
		return true
	}
	return false
}

// DefaultThreshold returns the documented default for kinds that take one.
func DefaultThreshold(k OverrideKind) float64 {
	switch k {
	case OverrideLowVisibility:
		return DefaultMinVisibilityM
	case OverrideLowTemperature:
		return DefaultMinTemperatureC
	case OverrideLowCeiling:
		return DefaultMinCeilingFt
	}
	return 0
}

// CompareDesignators orders designators by runway number, then by suffix.
// Designators without a leading number sort after numbered ones.
func CompareDesignators(a, b string) int {
	na, sa, oka := splitDesignator(a)
	nb, sb, okb := splitDesignator(b)
	switch {
	case oka && okb:
		if na != nb {
			return na - nb
		}
		return strings.Compare(sa, sb)
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}

func splitDesignator(d string) (int, string, bool) {
	end := 0
	for end < len(d) && d[end] >= '0' && d[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, d, false
	}
	n, err := strconv.Atoi(d[:end])
	if err != nil {
		return 0, d, false
	}
	return n, d[end:], true
}
