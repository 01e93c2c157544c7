package domain

// Assignment is the set of active runways written for one airport.
type Assignment struct {
	ICAO      string   `json:"icao"`
	Departure []string `json:"departure"`
	Arrival   []string `json:"arrival"`
	Source    string   `json:"source"` // "auto", "atis" or "manual"
}

// Assignment sources.
const (
	SourceAuto   = "auto"
	SourceATIS   = "atis"
	SourceManual = "manual"
)

// SingleRunway assigns one runway for both departures and arrivals.
func SingleRunway(icao, runway, source string) Assignment {
	return Assignment{ICAO: icao, Departure: []string{runway}, Arrival: []string{runway}, Source: source}
}

// ModeAssignment assigns the runway sets of a named mode.
func ModeAssignment(icao string, m RunwayMode) Assignment {
	return Assignment{ICAO: icao, Departure: m.Departure, Arrival: m.Arrival, Source: SourceManual}
}
