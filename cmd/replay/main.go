// Command replay evaluates archived METARs against the airport configuration
// and prints one JSON decision per report. Nothing is written or published.
//
// Usage:
//
//	go run ./cmd/replay -airports airports.yaml -runways runway.txt \
//	  -in metars.txt -now 2026-03-15T12:00:00Z
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vatnor/runway-selector/internal/adapter/airportcfg"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
	"github.com/vatnor/runway-selector/internal/pipeline"
)

type options struct {
	airports string
	runways  string
	now      time.Time
}

// replayed is one output line. Decision is absent when the report's station
// could not be matched to a configured airport.
type replayed struct {
	Report   string           `json:"report"`
	Decision *domain.Decision `json:"decision,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func main() {
	airports := flag.String("airports", "airports.yaml", "airport rules file")
	runways := flag.String("runways", "runway.txt", "sector runway file")
	in := flag.String("in", "-", "file of METAR lines, - for stdin")
	now := flag.String("now", "", "reference time (RFC3339) for resolving report days, default current time")
	flag.Parse()

	opts := options{airports: *airports, runways: *runways}
	if *now != "" {
		t, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			log.Fatalf("invalid -now: %v", err)
		}
		opts.now = t
	}

	r := io.ReadCloser(os.Stdin)
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			log.Fatal(err)
		}
		r = f
	}

	err := run(opts, r, os.Stdout, log.Printf)
	r.Close()
	if err != nil {
		log.Fatal(err)
	}
}

func run(opts options, r io.Reader, w io.Writer, logf func(string, ...any)) error {
	if !opts.now.IsZero() {
		domain.SetClock(clockwork.NewFakeClockAt(opts.now))
		defer domain.SetClock(nil)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := airportcfg.Load(opts.airports, opts.runways, quiet)
	if err != nil {
		return err
	}
	selector := pipeline.NewSelector(nil, quiet, observability.NewMetricsForTesting())

	enc := json.NewEncoder(w)
	sc := bufio.NewScanner(r)
	counts := map[domain.DecisionKind]int{}
	skipped := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		out := replayed{Report: line}
		icao, err := stationOf(line)
		if err == nil {
			ap, ok := catalog.Lookup(icao)
			if ok {
				d := selector.Evaluate(line, ap)
				out.Decision = &d
				counts[d.Kind]++
			} else {
				err = fmt.Errorf("airport %s is not configured", icao)
			}
		}
		if err != nil {
			out.Error = err.Error()
			skipped++
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read reports: %w", err)
	}

	logf("replayed: %d AUTO, %d MANUAL, %d skipped", counts[domain.Auto], counts[domain.Manual], skipped)
	return nil
}

// stationOf returns the station of a report. Reports too broken to name a
// station are returned as errors; all others are left for the selector.
func stationOf(report string) (string, error) {
	obs, err := domain.ParseMETAR(report)
	if err == nil {
		return obs.Station, nil
	}
	var malformed *domain.MalformedReportError
	if !errors.As(err, &malformed) || malformed.Missing != "wind" {
		return "", err
	}
	for _, tok := range strings.Fields(report) {
		switch tok {
		case "METAR", "SPECI", "COR":
			continue
		}
		return tok, nil
	}
	return "", err
}
