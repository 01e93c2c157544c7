package vatsim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vatnor/runway-selector/internal/observability"
)

// ErrNoReport is returned when the service has no report for a station.
var ErrNoReport = errors.New("no report for station")

// Client fetches METARs from the VATSIM METAR service. A query is either a
// station ("ENGM") or a prefix ("EN") that returns every matching station.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a METAR client for baseURL, e.g. https://metar.vatsim.net.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// Report returns the raw METAR for one station.
func (c *Client) Report(ctx context.Context, icao string) (string, error) {
	reports, err := c.FetchReports(ctx, icao)
	if err != nil {
		return "", err
	}
	raw, ok := reports[icao]
	if !ok {
		return "", fmt.Errorf("%s: %w", icao, ErrNoReport)
	}
	return raw, nil
}

// FetchReports returns the reports matching query keyed by station.
func (c *Client) FetchReports(ctx context.Context, query string) (map[string]string, error) {
	start := time.Now()
	reports, err := c.doRequest(ctx, c.baseURL+"/"+url.PathEscape(query))
	c.metrics.FetchDuration.WithLabelValues("metar").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("metar", "error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues("metar", "success").Inc()
	c.logger.Debug("fetched reports", "query", query, "count", len(reports))
	return reports, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metar API error: status %d: %s", resp.StatusCode, body)
	}

	return parseReportLines(resp.Body)
}

// parseReportLines keys each non-empty line by its station. Lines without a
// plausible station are skipped; the parser reports them later if they matter.
func parseReportLines(r io.Reader) (map[string]string, error) {
	reports := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if station := stationOf(line); station != "" {
			reports[station] = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}
	return reports, nil
}

func stationOf(line string) string {
	for _, tok := range strings.Fields(line) {
		switch tok {
		case "METAR", "SPECI", "COR":
			continue
		}
		if len(tok) == 4 {
			return tok
		}
		return ""
	}
	return ""
}
