package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	metersPerStatuteMile = 1609.344
	metersPerFoot        = 0.3048
	knotsPerMPS          = 1.943844
	knotsPerKMH          = 0.539957
	hPaPerInHg           = 33.8639
)

var (
	stationRe    = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)
	reportTimeRe = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)

	// windRe matches "27010KT", "VRB03KT", "24015G28KT", "09005MPS".
	windRe        = regexp.MustCompile(`^(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?(KT|MPS|KMH)$`)
	windMissingRe = regexp.MustCompile(`^/{3}(?:\d{2,3}|/{2,3})(?:G\d{2,3})?(KT|MPS|KMH)$`)
	windRangeRe   = regexp.MustCompile(`^(\d{3})V(\d{3})$`)

	visibilityRe  = regexp.MustCompile(`^(\d{4})(NDV)?$`)
	statuteMileRe = regexp.MustCompile(`^([MP])?(?:(\d+)|(\d+)/(\d+))SM$`)
	rvrRe         = regexp.MustCompile(`^R(\d{2}[LCR]?)/([PM])?(\d{4})(?:V([PM])?(\d{4}))?(FT)?/?[UDN]?$`)
	cloudRe       = regexp.MustCompile(`^(FEW|SCT|BKN|OVC|VV)(\d{3}|///)(?:CB|TCU|///)?$`)
	tempRe        = regexp.MustCompile(`^(M?\d{2})/(M?\d{2}|//)?$`)
	pressureRe    = regexp.MustCompile(`^([QA])(\d{4})$`)
)

// ParseMETAR parses a raw METAR into an Observation. It fails with
// *MalformedReportError when the report marker (station and time group) or
// the wind group cannot be located.
func ParseMETAR(raw string) (Observation, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "="))
	tokens := strings.Fields(raw)

	i := 0
	for i < len(tokens) && (tokens[i] == "METAR" || tokens[i] == "SPECI" || tokens[i] == "COR") {
		i++
	}
	if i+1 >= len(tokens) || !stationRe.MatchString(tokens[i]) {
		return Observation{}, &MalformedReportError{Report: raw, Missing: "report marker"}
	}
	tm := reportTimeRe.FindStringSubmatch(tokens[i+1])
	if tm == nil {
		return Observation{}, &MalformedReportError{Report: raw, Missing: "report marker"}
	}

	obs := Observation{Station: tokens[i], Raw: raw}
	day, hour, minute := atoi(tm[1]), atoi(tm[2]), atoi(tm[3])
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return Observation{}, &MalformedReportError{Report: raw, Missing: "report marker"}
	}
	obs.Time = resolveReportTime(day, hour, minute)
	i += 2

	for i < len(tokens) && (tokens[i] == "AUTO" || tokens[i] == "COR") {
		i++
	}
	if i >= len(tokens) {
		return Observation{}, &MalformedReportError{Report: raw, Missing: "wind"}
	}
	wind, ok := parseWind(tokens[i])
	if !ok {
		return Observation{}, &MalformedReportError{Report: raw, Missing: "wind"}
	}
	obs.Wind = wind
	i++

	parseBody(&obs, tokens[i:])
	return obs, nil
}

// parseWind returns (nil, true) for a present but unmeasured wind group.
func parseWind(token string) (*Wind, bool) {
	if windMissingRe.MatchString(token) {
		return nil, true
	}
	m := windRe.FindStringSubmatch(token)
	if m == nil {
		return nil, false
	}
	w := &Wind{SpeedKt: toKnots(atoi(m[2]), m[4])}
	if m[1] == "VRB" {
		w.Direction = Unbounded()
	} else {
		w.Direction = Fixed(atoi(m[1]))
	}
	if m[3] != "" {
		g := toKnots(atoi(m[3]), m[4])
		w.GustKt = &g
	}
	return w, true
}

func parseBody(obs *Observation, tokens []string) {
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "RMK", "TEMPO", "BECMG", "NOSIG":
			return
		case "CAVOK":
			obs.Visibility = &Visibility{Meters: 9999, CAVOK: true}
			continue
		case "NSC", "SKC", "CLR", "NCD", "NSW":
			continue
		}

		if m := windRangeRe.FindStringSubmatch(tok); m != nil {
			applyWindRange(obs.Wind, atoi(m[1]), atoi(m[2]))
			continue
		}
		if m := visibilityRe.FindStringSubmatch(tok); m != nil {
			if obs.Visibility == nil {
				obs.Visibility = &Visibility{Meters: atoi(m[1])}
			}
			continue
		}
		// "1 1/2SM" arrives as two tokens.
		if i+1 < len(tokens) && len(tok) == 1 && tok[0] >= '0' && tok[0] <= '9' {
			if m := statuteMileRe.FindStringSubmatch(tokens[i+1]); m != nil && m[3] != "" {
				if obs.Visibility == nil {
					miles := float64(atoi(tok)) + fraction(m[3], m[4])
					obs.Visibility = &Visibility{Meters: milesToMeters(miles)}
				}
				i++
				continue
			}
		}
		if m := statuteMileRe.FindStringSubmatch(tok); m != nil {
			if obs.Visibility == nil {
				miles := float64(atoi(m[2]))
				if m[3] != "" {
					miles = fraction(m[3], m[4])
				}
				obs.Visibility = &Visibility{Meters: milesToMeters(miles)}
			}
			continue
		}
		if m := rvrRe.FindStringSubmatch(tok); m != nil {
			obs.RVR = append(obs.RVR, parseRVR(m))
			continue
		}
		if m := cloudRe.FindStringSubmatch(tok); m != nil {
			if layer, ok := parseCloud(m[1], m[2]); ok {
				obs.Clouds = append(obs.Clouds, layer)
			}
			continue
		}
		if m := tempRe.FindStringSubmatch(tok); m != nil {
			t := signedTemp(m[1])
			obs.TemperatureC = &t
			if m[2] != "" && m[2] != "//" {
				d := signedTemp(m[2])
				obs.DewpointC = &d
			}
			continue
		}
		if m := pressureRe.FindStringSubmatch(tok); m != nil {
			p := atoi(m[2])
			if m[1] == "A" {
				p = int(math.Round(float64(p) / 100 * hPaPerInHg))
			}
			obs.PressureHPa = &p
			continue
		}
		if isWeatherGroup(tok) {
			obs.Weather = append(obs.Weather, tok)
		}
	}
}

func applyWindRange(w *Wind, from, to int) {
	if w == nil || w.Direction.Bounded {
		return
	}
	if w.Direction.Kind == FixedDirection {
		w.Direction = VariableAround(w.Direction.Degrees, from, to)
		return
	}
	w.Direction = Variable(from, to)
}

func parseRVR(m []string) RunwayVisualRange {
	value := atoi(m[3])
	if m[5] != "" && atoi(m[5]) < value {
		value = atoi(m[5])
	}
	if m[6] == "FT" {
		value = int(math.Round(float64(value) * metersPerFoot))
	}
	return RunwayVisualRange{Runway: m[1], Meters: value}
}

func parseCloud(amount, base string) (CloudLayer, bool) {
	if base == "///" {
		switch amount {
		case "BKN", "OVC", "VV":
			return CloudLayer{Amount: amount, BaseFt: 0}, true
		default:
			return CloudLayer{}, false
		}
	}
	return CloudLayer{Amount: amount, BaseFt: atoi(base) * 100}, true
}

func toKnots(v int, unit string) int {
	switch unit {
	case "MPS":
		return int(math.Round(float64(v) * knotsPerMPS))
	case "KMH":
		return int(math.Round(float64(v) * knotsPerKMH))
	default:
		return v
	}
}

func milesToMeters(miles float64) int {
	return int(math.Round(miles * metersPerStatuteMile))
}

func fraction(num, den string) float64 {
	d := atoi(den)
	if d == 0 {
		return 0
	}
	return float64(atoi(num)) / float64(d)
}

func signedTemp(s string) int {
	if strings.HasPrefix(s, "M") {
		return -atoi(s[1:])
	}
	return atoi(s)
}

// atoi is only called on regexp-validated digit strings.
func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
