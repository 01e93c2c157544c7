package vatsim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
)

const atisCacheKey = "atis"

// ATISRunways are the runways an online ATIS announces.
type ATISRunways struct {
	Departure []string
	Arrival   []string
}

// Complete reports whether both departure and arrival runways are known.
func (r ATISRunways) Complete() bool {
	return len(r.Departure) > 0 && len(r.Arrival) > 0
}

// ATISClient reads ATIS broadcasts from the VATSIM data feed. The feed is
// large and shared by every airport, so one copy is cached for ttl.
type ATISClient struct {
	httpClient *http.Client
	dataURL    string
	cache      *expirable.LRU[string, map[string]string]
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewATISClient creates a client for the VATSIM v3 data feed.
func NewATISClient(dataURL string, timeout, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *ATISClient {
	return &ATISClient{
		httpClient: &http.Client{Timeout: timeout},
		dataURL:    dataURL,
		cache:      expirable.NewLRU[string, map[string]string](1, nil, ttl),
		metrics:    metrics,
		logger:     logger,
	}
}

// Runways returns the runways announced by the online ATIS for icao. ok is
// false when no ATIS for the airport is online or it names no runway.
func (c *ATISClient) Runways(ctx context.Context, icao string) (ATISRunways, bool, error) {
	texts, err := c.texts(ctx)
	if err != nil {
		return ATISRunways{}, false, err
	}

	var out ATISRunways
	for callsign, text := range texts {
		if !strings.HasPrefix(callsign, icao) {
			continue
		}
		r := ParseATISRunways(text)
		out.Departure = appendUnique(out.Departure, r.Departure...)
		out.Arrival = appendUnique(out.Arrival, r.Arrival...)
	}
	if !out.Complete() {
		return ATISRunways{}, false, nil
	}
	slices.Sort(out.Departure)
	slices.Sort(out.Arrival)
	return out, true, nil
}

// Assignment returns the ATIS runways for icao as a runway assignment.
// It implements pipeline.ATISSource.
func (c *ATISClient) Assignment(ctx context.Context, icao string) (domain.Assignment, bool, error) {
	r, ok, err := c.Runways(ctx, icao)
	if err != nil || !ok {
		return domain.Assignment{}, false, err
	}
	return domain.Assignment{ICAO: icao, Departure: r.Departure, Arrival: r.Arrival, Source: domain.SourceATIS}, true, nil
}

func (c *ATISClient) texts(ctx context.Context) (map[string]string, error) {
	if texts, ok := c.cache.Get(atisCacheKey); ok {
		c.metrics.FetchCache.WithLabelValues("atis", "hit").Inc()
		return texts, nil
	}
	c.metrics.FetchCache.WithLabelValues("atis", "miss").Inc()

	start := time.Now()
	texts, err := c.doRequest(ctx)
	c.metrics.FetchDuration.WithLabelValues("atis").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("atis", "error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues("atis", "success").Inc()
	c.cache.Add(atisCacheKey, texts)
	c.logger.Debug("fetched atis feed", "stations", len(texts))
	return texts, nil
}

func (c *ATISClient) doRequest(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("atis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vatsim data API error: status %d: %s", resp.StatusCode, body)
	}

	var feed dataFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	texts := make(map[string]string, len(feed.ATIS))
	for _, a := range feed.ATIS {
		texts[a.Callsign] = strings.Join(a.TextATIS, " ")
	}
	return texts, nil
}

var (
	singleRunwayRe    = regexp.MustCompile(`RUNWAY IN USE ([0-9]{2}[LRC]?)`)
	arrivalRunwayRe   = regexp.MustCompile(`APPROACH RUNWAY ([0-9]{2}[LRC]?)`)
	departureRunwayRe = regexp.MustCompile(`DEPARTURE RUNWAY ([0-9]{2}[LRC]?)`)
	multiRunwayRe     = regexp.MustCompile(`RUNWAYS ([0-9]{2}[LRC]?) AND ([0-9]{2}[LRC]?) IN USE`)
)

// ParseATISRunways extracts announced runways from ATIS text.
func ParseATISRunways(text string) ATISRunways {
	text = strings.ToUpper(text)
	var r ATISRunways

	if m := singleRunwayRe.FindStringSubmatch(text); m != nil {
		r.Arrival = appendUnique(r.Arrival, m[1])
		r.Departure = appendUnique(r.Departure, m[1])
	}
	if m := arrivalRunwayRe.FindStringSubmatch(text); m != nil {
		r.Arrival = appendUnique(r.Arrival, m[1])
	}
	if m := departureRunwayRe.FindStringSubmatch(text); m != nil {
		r.Departure = appendUnique(r.Departure, m[1])
	}
	if m := multiRunwayRe.FindStringSubmatch(text); m != nil {
		r.Arrival = appendUnique(r.Arrival, m[1], m[2])
		r.Departure = appendUnique(r.Departure, m[1], m[2])
	}
	return r
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// VATSIM v3 data feed, reduced to the fields used here.

type dataFeed struct {
	ATIS []atisEntry `json:"atis"`
}

type atisEntry struct {
	Callsign string   `json:"callsign"`
	TextATIS []string `json:"text_atis"`
}
