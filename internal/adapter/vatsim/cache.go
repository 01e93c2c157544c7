package vatsim

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/vatnor/runway-selector/internal/observability"
	"golang.org/x/sync/singleflight"
)

// ReportFetcher fetches the reports matching a station or prefix query.
type ReportFetcher interface {
	FetchReports(ctx context.Context, query string) (map[string]string, error)
}

// CachedSource serves per-station reports from an expiring cache of query
// results. Stations whose two-letter prefix is registered as bulk are
// fetched together, so one request covers every airport in a region.
type CachedSource struct {
	inner   ReportFetcher
	cache   *expirable.LRU[string, map[string]string]
	group   singleflight.Group
	bulk    map[string]bool
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a fetcher.
func NewCachedSource(inner ReportFetcher, maxEntries int, ttl time.Duration, bulkPrefixes []string, metrics *observability.Metrics) *CachedSource {
	bulk := make(map[string]bool, len(bulkPrefixes))
	for _, p := range bulkPrefixes {
		bulk[p] = true
	}
	return &CachedSource{
		inner:   inner,
		cache:   expirable.NewLRU[string, map[string]string](maxEntries, nil, ttl),
		bulk:    bulk,
		metrics: metrics,
	}
}

// Report returns the raw METAR for one station.
func (c *CachedSource) Report(ctx context.Context, icao string) (string, error) {
	reports, err := c.reports(ctx, c.queryFor(icao))
	if err != nil {
		return "", err
	}
	raw, ok := reports[icao]
	if !ok {
		return "", fmt.Errorf("%s: %w", icao, ErrNoReport)
	}
	return raw, nil
}

func (c *CachedSource) queryFor(icao string) string {
	if len(icao) == 4 && c.bulk[icao[:2]] {
		return icao[:2]
	}
	return icao
}

func (c *CachedSource) reports(ctx context.Context, query string) (map[string]string, error) {
	if reports, ok := c.cache.Get(query); ok {
		c.metrics.FetchCache.WithLabelValues("metar", "hit").Inc()
		return reports, nil
	}
	c.metrics.FetchCache.WithLabelValues("metar", "miss").Inc()

	v, err, _ := c.group.Do(query, func() (any, error) {
		reports, err := c.inner.FetchReports(ctx, query)
		if err != nil {
			return nil, err
		}
		// Empty answers are not cached so a station coming online is picked up.
		if len(reports) > 0 {
			c.cache.Add(query, reports)
		}
		return reports, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// BulkPrefixes returns the two-letter prefixes shared by at least two stations.
func BulkPrefixes(icaos []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, icao := range icaos {
		if len(icao) != 4 {
			continue
		}
		p := icao[:2]
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	var out []string
	for _, p := range order {
		if counts[p] > 1 {
			out = append(out, p)
		}
	}
	return out
}
