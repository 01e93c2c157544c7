package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ReportSource returns the latest raw METAR for an airport.
type ReportSource interface {
	Report(ctx context.Context, icao string) (string, error)
}

// ATISSource returns the runways an online ATIS announces for an airport.
type ATISSource interface {
	Assignment(ctx context.Context, icao string) (domain.Assignment, bool, error)
}

// Resolver asks an operator to pick runways for a MANUAL decision.
type Resolver interface {
	Resolve(ctx context.Context, d domain.Decision, ap domain.AirportConfig) (domain.Assignment, bool, error)
}

// RunwaySink writes active runway assignments.
type RunwaySink interface {
	WriteAssignments(ctx context.Context, assignments []domain.Assignment) error
}

// DecisionSink publishes decisions downstream.
type DecisionSink interface {
	PublishDecisions(ctx context.Context, decisions []domain.Decision) error
}

// Result is the outcome of one airport in a cycle. Assignment is nil when
// nothing was written for the airport.
type Result struct {
	Decision   domain.Decision
	Assignment *domain.Assignment
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the fetch-decide-write cycle over all airports.
type Pipeline struct {
	airports    []domain.AirportConfig
	selector    *Selector
	atis        ATISSource
	resolver    Resolver
	runways     RunwaySink
	decisions   DecisionSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	concurrency int

	ready  atomic.Bool
	mu     sync.RWMutex
	latest map[string]domain.Decision
}

// New creates a Pipeline. Either sink may be nil.
func New(airports []domain.AirportConfig, reports ReportSource, runways RunwaySink, decisions DecisionSink, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		airports:    airports,
		selector:    NewSelector(reports, logger, metrics),
		runways:     runways,
		decisions:   decisions,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		concurrency: concurrency,
		latest:      make(map[string]domain.Decision),
	}
}

// WithATIS makes announced ATIS runways take precedence over computed ones.
func (p *Pipeline) WithATIS(a ATISSource) *Pipeline {
	p.atis = a
	return p
}

// WithResolver lets an operator resolve MANUAL decisions.
func (p *Pipeline) WithResolver(r Resolver) *Pipeline {
	p.resolver = r
	return p
}

// WithClock replaces the clock driving the run interval.
func (p *Pipeline) WithClock(c clockwork.Clock) *Pipeline {
	p.clock = c
	return p
}

// CheckReadiness returns nil once a cycle has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no evaluation cycle has completed yet")
	}
	return nil
}

// Latest returns the most recent decision per airport, ordered by ICAO.
func (p *Pipeline) Latest() []domain.Decision {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Decision, 0, len(p.latest))
	for _, d := range p.latest {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b domain.Decision) int { return strings.Compare(a.ICAO, b.ICAO) })
	return out
}

// LatestFor returns the most recent decision for icao.
func (p *Pipeline) LatestFor(icao string) (domain.Decision, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.latest[icao]
	return d, ok
}

// Run evaluates all airports every interval until the context is cancelled.
// A failed cycle is retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid run interval %s", interval)
	}
	p.logger.Info("pipeline started", "airports", len(p.airports), "interval", interval, "concurrency", p.concurrency)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	backoff := initialBackoff
	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("evaluation cycle failed", "error", err)
			if !retry.SleepWithContext(ctx, backoff) {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce evaluates every airport once, writes the resulting assignments and
// publishes the decisions. Results are in airport order.
func (p *Pipeline) RunOnce(ctx context.Context) ([]Result, error) {
	start := p.clock.Now()

	decisions, err := p.decide(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(decisions))
	var assignments []domain.Assignment
	for i, d := range decisions {
		p.logDecision(d)
		a, err := p.assign(ctx, d, p.airports[i])
		if err != nil {
			return nil, err
		}
		results[i] = Result{Decision: d}
		if a != nil {
			results[i].Assignment = a
			assignments = append(assignments, *a)
		}
	}

	var sinkErrs []error
	if p.runways != nil && len(assignments) > 0 {
		if err := p.runways.WriteAssignments(ctx, assignments); err != nil {
			sinkErrs = append(sinkErrs, fmt.Errorf("write runways: %w", err))
		}
	}
	if p.decisions != nil && len(decisions) > 0 {
		if err := p.decisions.PublishDecisions(ctx, decisions); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}

	p.mu.Lock()
	for _, d := range decisions {
		p.latest[d.ICAO] = d
	}
	p.mu.Unlock()

	if len(sinkErrs) > 0 {
		return results, errors.Join(sinkErrs...)
	}

	p.count(decisions)
	p.metrics.AirportsEvaluated.Observe(float64(len(decisions)))
	p.metrics.CycleDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("evaluation cycle complete", "airports", len(decisions), "assigned", len(assignments))
	return results, nil
}

// decide evaluates all airports concurrently, bounded by p.concurrency.
func (p *Pipeline) decide(ctx context.Context) ([]domain.Decision, error) {
	decisions := make([]domain.Decision, len(p.airports))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, ap := range p.airports {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = p.selector.Select(gctx, ap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// assign picks what gets written for one airport: an online ATIS first,
// then an AUTO runway, then the operator's choice.
func (p *Pipeline) assign(ctx context.Context, d domain.Decision, ap domain.AirportConfig) (*domain.Assignment, error) {
	if p.atis != nil {
		a, ok, err := p.atis.Assignment(ctx, ap.ICAO)
		switch {
		case err != nil:
			p.logger.Warn("atis lookup failed", "icao", ap.ICAO, "error", err)
		case ok:
			p.logger.Info("using atis runways", "icao", ap.ICAO,
				"departure", a.Departure, "arrival", a.Arrival, "computed", d.Runway)
			return &a, nil
		}
	}

	if d.IsAuto() {
		a := domain.SingleRunway(d.ICAO, d.Runway, domain.SourceAuto)
		return &a, nil
	}

	if p.resolver == nil {
		return nil, nil
	}
	a, ok, err := p.resolver.Resolve(ctx, d, ap)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ap.ICAO, err)
	}
	if !ok {
		p.logger.Info("manual airport skipped", "icao", ap.ICAO)
		return nil, nil
	}
	return &a, nil
}

func (p *Pipeline) logDecision(d domain.Decision) {
	if d.IsAuto() {
		p.logger.Info("runway selected", "icao", d.ICAO, "kind", d.Kind, "runway", d.Runway)
		return
	}
	p.logger.Info("manual selection required", "icao", d.ICAO, "kind", d.Kind, "reasons", d.Reasons)
}

// count records decisions once per completed cycle, so a retried cycle is
// not counted twice.
func (p *Pipeline) count(decisions []domain.Decision) {
	for _, d := range decisions {
		p.metrics.Decisions.WithLabelValues(string(d.Kind)).Inc()
		for _, r := range d.Reasons {
			p.metrics.ManualReasons.WithLabelValues(r).Inc()
		}
	}
}
