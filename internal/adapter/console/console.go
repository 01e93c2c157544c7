// Package console prints decisions to a terminal and asks the operator to
// choose runways for airports the engine left MANUAL.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/gommon/color"
	"github.com/mattn/go-isatty"
	"github.com/vatnor/runway-selector/internal/domain"
)

// Console writes decision summaries and reads operator choices.
type Console struct {
	in          *bufio.Reader
	out         io.Writer
	color       *color.Color
	interactive bool
}

// New creates a Console. Colour escapes are emitted only when colored is true.
func New(in io.Reader, out io.Writer, colored, interactive bool) *Console {
	c := color.New()
	c.SetOutput(out)
	if colored {
		c.Enable()
	} else {
		c.Disable()
	}
	return &Console{in: bufio.NewReader(in), out: out, color: c, interactive: interactive}
}

// ForTerminal binds the Console to stdin and stdout. Colour and prompting
// are enabled only when the respective stream is a terminal.
func ForTerminal() *Console {
	return New(os.Stdin, os.Stdout, isTerminal(os.Stdout), isTerminal(os.Stdin))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether the operator can be prompted.
func (c *Console) Interactive() bool { return c.interactive }

// Report prints a one-line summary of d.
func (c *Console) Report(d domain.Decision) {
	if d.IsAuto() {
		fmt.Fprintf(c.out, "%s: runway %s\n", c.color.Bold(d.ICAO), c.color.Green(d.Runway))
		return
	}
	fmt.Fprintf(c.out, "%s: %s (%s)\n", c.color.Bold(d.ICAO), c.color.Yellow("MANUAL"),
		c.color.Red(strings.Join(d.Reasons, ", ")))
}

// ReportAssignment prints a runway assignment that did not come from the
// engine's own AUTO choice.
func (c *Console) ReportAssignment(a domain.Assignment) {
	fmt.Fprintf(c.out, "%s: departure %s, arrival %s %s\n", c.color.Bold(a.ICAO),
		c.color.Green(strings.Join(a.Departure, "/")), c.color.Green(strings.Join(a.Arrival, "/")),
		c.color.Grey("("+a.Source+")"))
}

// option is one numbered choice offered to the operator.
type option struct {
	label      string
	assignment domain.Assignment
}

// Resolve shows the evaluations of a MANUAL decision and asks the operator
// for a runway or mode. It returns false when the operator skips the
// airport or input ends.
func (c *Console) Resolve(ctx context.Context, d domain.Decision, ap domain.AirportConfig) (domain.Assignment, bool, error) {
	opts := options(ap)
	def := defaultOption(opts, ap.PreferredRunway)

	c.Report(d)
	for _, e := range d.Evaluations {
		fmt.Fprintf(c.out, "    %-4s headwind %5.1f kt  crosswind %5.1f kt\n", e.Designator, e.HeadwindKt, e.CrosswindKt)
	}
	for i, o := range opts {
		marker := " "
		if i == def {
			marker = "*"
		}
		fmt.Fprintf(c.out, "  %s%d. %s\n", marker, i+1, c.color.Cyan(o.label))
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.Assignment{}, false, err
		}
		prompt := fmt.Sprintf("Select 1-%d, s to skip", len(opts))
		if def >= 0 {
			prompt += fmt.Sprintf(", enter for %d", def+1)
		}
		fmt.Fprint(c.out, prompt+": ")

		line, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return domain.Assignment{}, false, fmt.Errorf("read choice: %w", err)
		}
		eof := errors.Is(err, io.EOF)
		answer := strings.TrimSpace(line)

		switch {
		case answer == "" && eof:
			fmt.Fprintln(c.out)
			return domain.Assignment{}, false, nil
		case answer == "" && def >= 0:
			return opts[def].assignment, true, nil
		case strings.EqualFold(answer, "s"):
			return domain.Assignment{}, false, nil
		}

		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(opts) {
			return opts[n-1].assignment, true, nil
		}
		if o, ok := byDesignator(opts, answer); ok {
			return o.assignment, true, nil
		}
		fmt.Fprintln(c.out, c.color.Red("invalid choice"))
		if eof {
			return domain.Assignment{}, false, nil
		}
	}
}

// options lists the airport's named modes followed by every single runway.
func options(ap domain.AirportConfig) []option {
	opts := make([]option, 0, len(ap.Modes)+len(ap.Runways))
	for _, m := range ap.Modes {
		opts = append(opts, option{
			label:      fmt.Sprintf("%s (dep %s, arr %s)", m.Name, strings.Join(m.Departure, "/"), strings.Join(m.Arrival, "/")),
			assignment: domain.ModeAssignment(ap.ICAO, m),
		})
	}
	for _, r := range ap.Runways {
		opts = append(opts, option{
			label:      "Runway " + r.Designator,
			assignment: domain.SingleRunway(ap.ICAO, r.Designator, domain.SourceManual),
		})
	}
	return opts
}

func defaultOption(opts []option, preferred string) int {
	if preferred == "" {
		return -1
	}
	for i, o := range opts {
		if o.label == "Runway "+preferred {
			return i
		}
	}
	return -1
}

func byDesignator(opts []option, answer string) (option, bool) {
	for _, o := range opts {
		if strings.EqualFold(o.label, "Runway "+answer) {
			return o, true
		}
	}
	return option{}, false
}
