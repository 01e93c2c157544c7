package airportcfg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vatnor/runway-selector/internal/domain"
)

// Sector runway file columns: rwy1 rwy2 hdg1 hdg2 lat1 lon1 lat2 lon2 ICAO [name...]
const (
	colRwy1 = iota
	colRwy2
	colHdg1
	colHdg2
	colICAO = 8
)

// ParseRunwayFile reads runway ends per airport from a sector runway file.
// Each line describes one physical runway with both of its ends. Blank
// lines, comments (";" or "#") and a header line are skipped. Repeated ends
// with the same heading are listed once.
func ParseRunwayFile(r io.Reader) (map[string][]domain.RunwayConfig, error) {
	out := make(map[string][]domain.RunwayConfig)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) <= colICAO {
			if lineNo == 1 {
				continue
			}
			return nil, fmt.Errorf("runway file line %d: expected at least %d fields, got %d", lineNo, colICAO+1, len(fields))
		}

		hdg1, err1 := strconv.Atoi(fields[colHdg1])
		hdg2, err2 := strconv.Atoi(fields[colHdg2])
		if err1 != nil || err2 != nil {
			if lineNo == 1 {
				continue
			}
			return nil, fmt.Errorf("runway file line %d: invalid heading", lineNo)
		}

		icao := strings.ToUpper(fields[colICAO])
		out[icao] = addEnd(out[icao], fields[colRwy1], hdg1)
		out[icao] = addEnd(out[icao], fields[colRwy2], hdg2)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read runway file: %w", err)
	}
	return out, nil
}

func addEnd(runways []domain.RunwayConfig, designator string, heading int) []domain.RunwayConfig {
	rc := domain.RunwayConfig{Designator: designator, HeadingDeg: domain.NormalizeHeading(float64(heading))}
	for _, r := range runways {
		if r == rc {
			return runways
		}
	}
	return append(runways, rc)
}
