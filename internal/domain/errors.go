package domain

import "fmt"

// MalformedReportError reports a METAR missing a mandatory group. No
// Observation is produced alongside it.
type MalformedReportError struct {
	Report  string
	Missing string // "report marker" or "wind"
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed report: missing %s group: %q", e.Missing, e.Report)
}

// ConfigurationError reports an invalid airport configuration. The airport
// must not be evaluated.
type ConfigurationError struct {
	ICAO   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.ICAO == "" {
		return "airport configuration: " + e.Reason
	}
	return fmt.Sprintf("airport %s: %s", e.ICAO, e.Reason)
}

func configErrorf(icao, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{ICAO: icao, Reason: fmt.Sprintf(format, args...)}
}
