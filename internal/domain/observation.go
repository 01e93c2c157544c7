package domain

import (
	"regexp"
	"time"
)

// Observation is the parsed snapshot of one METAR. Optional groups the report
// omits stay nil; a nil field is never the same as a zero reading.
type Observation struct {
	Station      string
	Time         time.Time
	Wind         *Wind // nil when the wind was not measured
	Visibility   *Visibility
	Clouds       []CloudLayer
	TemperatureC *int
	DewpointC    *int
	PressureHPa  *int
	Weather      []string // present-weather groups as reported, e.g. "-SHSN", "BCFG"
	RVR          []RunwayVisualRange
	Raw          string
}

// DirectionKind tells a fixed wind direction apart from a variable one.
type DirectionKind int

const (
	FixedDirection DirectionKind = iota
	VariableDirection
)

func (k DirectionKind) String() string {
	if k == VariableDirection {
		return "variable"
	}
	return "fixed"
}

// Direction is the direction the wind blows from.
//
// A fixed direction carries Degrees. A variable direction carries the
// clockwise arc From..To when Bounded is set; otherwise it is the bare VRB
// group and the wind may come from anywhere. A variable direction that was
// reported alongside a mean direction ("27010KT 240V300") also sets HasMean.
type Direction struct {
	Kind    DirectionKind
	Degrees int
	HasMean bool
	From    int
	To      int
	Bounded bool
}

// Fixed returns a steady wind direction.
func Fixed(deg int) Direction {
	return Direction{Kind: FixedDirection, Degrees: deg}
}

// Variable returns a wind varying clockwise from one direction to another.
func Variable(from, to int) Direction {
	return Direction{Kind: VariableDirection, From: from, To: to, Bounded: true}
}

// VariableAround returns a variable range reported together with its mean direction.
func VariableAround(mean, from, to int) Direction {
	d := Variable(from, to)
	d.Degrees = mean
	d.HasMean = true
	return d
}

// Unbounded returns the bare VRB direction.
func Unbounded() Direction {
	return Direction{Kind: VariableDirection}
}

// Wind is the reported surface wind in knots.
type Wind struct {
	Direction Direction
	SpeedKt   int
	GustKt    *int
}

// Visibility is the prevailing visibility. CAVOK implies at least 10 km.
type Visibility struct {
	Meters int
	CAVOK  bool
}

// CloudLayer is one reported cloud group.
type CloudLayer struct {
	Amount string // FEW, SCT, BKN, OVC or VV
	BaseFt int
}

// RunwayVisualRange is the lowest RVR reported for one runway.
type RunwayVisualRange struct {
	Runway string
	Meters int
}

// weatherGroupRe splits a present-weather group into intensity or proximity,
// descriptor and phenomena.
var weatherGroupRe = regexp.MustCompile(
	`^([+-]|VC)?(MI|PR|BC|DR|BL|SH|TS|FZ)?((?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)*)$`)

// HasPhenomenon reports whether any present-weather group contains one of the
// given two-letter phenomenon codes. Groups in the vicinity (VC) count.
func (o Observation) HasPhenomenon(codes ...string) bool {
	for _, group := range o.Weather {
		m := weatherGroupRe.FindStringSubmatch(group)
		if m == nil {
			continue
		}
		phenomena := m[3]
		for i := 0; i+2 <= len(phenomena); i += 2 {
			for _, code := range codes {
				if phenomena[i:i+2] == code {
					return true
				}
			}
		}
	}
	return false
}

// Ceiling returns the lowest broken, overcast or vertical-visibility layer.
func (o Observation) Ceiling() (CloudLayer, bool) {
	var lowest CloudLayer
	found := false
	for _, c := range o.Clouds {
		switch c.Amount {
		case "BKN", "OVC", "VV":
		default:
			continue
		}
		if !found || c.BaseFt < lowest.BaseFt {
			lowest = c
			found = true
		}
	}
	return lowest, found
}

func isWeatherGroup(token string) bool {
	m := weatherGroupRe.FindStringSubmatch(token)
	return m != nil && m[2]+m[3] != ""
}
