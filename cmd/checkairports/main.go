// Command checkairports validates the airport rules file against the sector
// runway file and reports, per airport, whether it will be evaluated.
//
// Usage:
//
//	go run ./cmd/checkairports -airports airports.yaml -runways runway.txt
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/labstack/gommon/color"
	"github.com/vatnor/runway-selector/internal/adapter/airportcfg"
	"github.com/vatnor/runway-selector/internal/domain"
)

func main() {
	airports := flag.String("airports", "airports.yaml", "airport rules file")
	runways := flag.String("runways", "runway.txt", "sector runway file")
	verbose := flag.Bool("v", false, "list runways and rules of valid airports")
	flag.Parse()

	os.Exit(run(*airports, *runways, *verbose, os.Stdout))
}

func run(airportsPath, runwaysPath string, verbose bool, out io.Writer) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := color.New()
	c.SetOutput(out)

	catalog, err := airportcfg.Load(airportsPath, runwaysPath, logger)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "=== Airport Configuration Check ===")
	fmt.Fprintln(out)

	for _, ap := range catalog.Airports {
		fmt.Fprintf(out, "  %-6s %s\n", ap.ICAO, c.Green("PASS"))
		if verbose {
			printAirport(out, ap)
		}
	}
	for _, err := range catalog.Rejected {
		icao, reason := "?", err.Error()
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			icao, reason = cfgErr.ICAO, cfgErr.Reason
		}
		fmt.Fprintf(out, "  %-6s %s %s\n", icao, c.Red("FAIL"), reason)
	}
	for _, icao := range catalog.Ignored {
		fmt.Fprintf(out, "  %-6s %s\n", icao, c.Grey("IGNORED"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Airports: %d valid, %d rejected, %d ignored\n",
		len(catalog.Airports), len(catalog.Rejected), len(catalog.Ignored))

	if len(catalog.Rejected) > 0 {
		fmt.Fprintln(out, "\nCheck FAILED.")
		return 1
	}
	fmt.Fprintln(out, "\nAll airports valid.")
	return 0
}

func printAirport(out io.Writer, ap domain.AirportConfig) {
	ends := make([]string, len(ap.Runways))
	for i, r := range ap.Runways {
		ends[i] = fmt.Sprintf("%s/%03.0f", r.Designator, r.HeadingDeg)
	}
	fmt.Fprintf(out, "         runways:   %s\n", strings.Join(ends, " "))

	if len(ap.Overrides) > 0 {
		names := make([]string, len(ap.Overrides))
		for i, o := range ap.Overrides {
			names[i] = o.Reason()
		}
		fmt.Fprintf(out, "         overrides: %s\n", strings.Join(names, ", "))
	}
	for _, pr := range ap.Priority {
		fmt.Fprintf(out, "         priority:  %s below %g kt crosswind\n", strings.Join(pr.Runways, "/"), pr.ThresholdKt)
	}
	if ap.CrosswindLimitKt != nil {
		fmt.Fprintf(out, "         crosswind limit: %g kt\n", *ap.CrosswindLimitKt)
	}
	if ap.TailwindLimitKt != nil {
		fmt.Fprintf(out, "         tailwind limit:  %g kt\n", *ap.TailwindLimitKt)
	}
}
