package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
	"github.com/vatnor/runway-selector/internal/pipeline"
)

// --- mocks ---

type mockReports struct {
	mu       sync.Mutex
	reports  map[string]string
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration
}

func (m *mockReports) Report(_ context.Context, icao string) (string, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.reports[icao]
	if !ok {
		return "", errors.New("no report for station")
	}
	return raw, nil
}

type mockRunwaySink struct {
	mu      sync.Mutex
	written [][]domain.Assignment
	err     error
}

func (m *mockRunwaySink) WriteAssignments(_ context.Context, a []domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, a)
	return nil
}

type mockDecisionSink struct {
	mu        sync.Mutex
	published []domain.Decision
}

func (m *mockDecisionSink) PublishDecisions(_ context.Context, d []domain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, d...)
	return nil
}

type mockATIS struct {
	assignments map[string]domain.Assignment
	err         error
}

func (m *mockATIS) Assignment(_ context.Context, icao string) (domain.Assignment, bool, error) {
	if m.err != nil {
		return domain.Assignment{}, false, m.err
	}
	a, ok := m.assignments[icao]
	return a, ok, nil
}

type mockResolver struct {
	choice *domain.Assignment
	asked  []string
}

func (m *mockResolver) Resolve(_ context.Context, d domain.Decision, _ domain.AirportConfig) (domain.Assignment, bool, error) {
	m.asked = append(m.asked, d.ICAO)
	if m.choice == nil {
		return domain.Assignment{}, false, nil
	}
	return *m.choice, true, nil
}

// --- helpers ---

const (
	enzvReport = "ENZV 151150Z 18012KT 9999 FEW030 10/04 Q1013"
	engmReport = "ENGM 151150Z 01005KT 0300 FG VV001 02/02 Q1013"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func airports() []domain.AirportConfig {
	return []domain.AirportConfig{
		{
			ICAO: "ENGM",
			Runways: []domain.RunwayConfig{
				{Designator: "01L", HeadingDeg: 14},
				{Designator: "19R", HeadingDeg: 194},
			},
			Overrides: []domain.OverrideRule{{Kind: domain.OverrideFog}},
		},
		{
			ICAO: "ENZV",
			Runways: []domain.RunwayConfig{
				{Designator: "18", HeadingDeg: 180},
				{Designator: "36", HeadingDeg: 0},
			},
		},
	}
}

func defaultReports() *mockReports {
	return &mockReports{reports: map[string]string{"ENZV": enzvReport, "ENGM": engmReport}}
}

// --- tests ---

func TestPipeline_RunOnce(t *testing.T) {
	runways := &mockRunwaySink{}
	decisions := &mockDecisionSink{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(airports(), defaultReports(), runways, decisions, discardLogger(), metrics, 2)

	require.Error(t, p.CheckReadiness(context.Background()))

	results, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.Manual, results[0].Decision.Kind)
	assert.Equal(t, []string{"fog"}, results[0].Decision.Reasons)
	assert.Nil(t, results[0].Assignment)

	assert.Equal(t, domain.Auto, results[1].Decision.Kind)
	assert.Equal(t, "18", results[1].Decision.Runway)
	require.NotNil(t, results[1].Assignment)

	want := [][]domain.Assignment{{domain.SingleRunway("ENZV", "18", domain.SourceAuto)}}
	if diff := cmp.Diff(want, runways.written); diff != "" {
		t.Fatalf("written assignments mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, decisions.published, 2)

	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("AUTO")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("MANUAL")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ManualReasons.WithLabelValues("fog")), 0)

	latest := p.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "ENGM", latest[0].ICAO)
	d, ok := p.LatestFor("ENZV")
	require.True(t, ok)
	assert.Equal(t, "18", d.Runway)
}

func TestPipeline_RunOnce_ReportFailures(t *testing.T) {
	reports := &mockReports{reports: map[string]string{"ENZV": "ENZV 151150Z CAVOK"}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(airports(), reports, nil, nil, discardLogger(), metrics, 1)

	results, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{domain.ReasonReportUnavailable}, results[0].Decision.Reasons)
	assert.Equal(t, []string{domain.ReasonMalformedReport}, results[1].Decision.Reasons)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReportErrors.WithLabelValues(domain.ReasonReportUnavailable)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReportErrors.WithLabelValues(domain.ReasonMalformedReport)), 0)
}

func TestPipeline_RunOnce_ATISPrecedence(t *testing.T) {
	atisGM := domain.Assignment{ICAO: "ENGM", Departure: []string{"19R"}, Arrival: []string{"19R"}, Source: domain.SourceATIS}
	atisZV := domain.Assignment{ICAO: "ENZV", Departure: []string{"36"}, Arrival: []string{"36"}, Source: domain.SourceATIS}
	runways := &mockRunwaySink{}
	p := pipeline.New(airports(), defaultReports(), runways, nil, discardLogger(), observability.NewMetricsForTesting(), 2).
		WithATIS(&mockATIS{assignments: map[string]domain.Assignment{"ENGM": atisGM, "ENZV": atisZV}})

	results, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "18", results[1].Decision.Runway, "computed decision is kept")
	require.Len(t, runways.written, 1)
	assert.Equal(t, []domain.Assignment{atisGM, atisZV}, runways.written[0])
}

func TestPipeline_RunOnce_ATISErrorFallsBack(t *testing.T) {
	runways := &mockRunwaySink{}
	p := pipeline.New(airports(), defaultReports(), runways, nil, discardLogger(), observability.NewMetricsForTesting(), 2).
		WithATIS(&mockATIS{err: errors.New("feed down")})

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, runways.written, 1)
	assert.Equal(t, []domain.Assignment{domain.SingleRunway("ENZV", "18", domain.SourceAuto)}, runways.written[0])
}

func TestPipeline_RunOnce_Resolver(t *testing.T) {
	choice := domain.SingleRunway("ENGM", "01L", domain.SourceManual)
	resolver := &mockResolver{choice: &choice}
	runways := &mockRunwaySink{}
	p := pipeline.New(airports(), defaultReports(), runways, nil, discardLogger(), observability.NewMetricsForTesting(), 2).
		WithResolver(resolver)

	results, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ENGM"}, resolver.asked)
	assert.Equal(t, &choice, results[0].Assignment)
	require.Len(t, runways.written, 1)
	assert.Len(t, runways.written[0], 2)

	resolver.choice = nil
	results, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, results[0].Assignment)
	assert.Len(t, runways.written[1], 1)
}

func TestPipeline_RunOnce_SinkError(t *testing.T) {
	runways := &mockRunwaySink{err: errors.New("disk full")}
	p := pipeline.New(airports(), defaultReports(), runways, nil, discardLogger(), observability.NewMetricsForTesting(), 2)

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Error(t, p.CheckReadiness(context.Background()))

	_, ok := p.LatestFor("ENZV")
	assert.True(t, ok, "decisions are recorded even when a sink fails")
}

func TestPipeline_RunOnce_RetriedCycleCountedOnce(t *testing.T) {
	runways := &mockRunwaySink{err: errors.New("disk full")}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(airports(), defaultReports(), runways, nil, discardLogger(), metrics, 2)

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("AUTO")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.ManualReasons.WithLabelValues("fog")), 0)

	runways.mu.Lock()
	runways.err = nil
	runways.mu.Unlock()

	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("AUTO")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("MANUAL")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ManualReasons.WithLabelValues("fog")), 0)
}

func TestPipeline_RunOnce_Concurrency(t *testing.T) {
	var aps []domain.AirportConfig
	reports := &mockReports{reports: map[string]string{}, delay: 20 * time.Millisecond}
	for _, icao := range []string{"ENAA", "ENBB", "ENCC", "ENDD", "ENEE", "ENFF"} {
		aps = append(aps, domain.AirportConfig{ICAO: icao, Runways: []domain.RunwayConfig{{Designator: "18", HeadingDeg: 180}}})
		reports.reports[icao] = icao + " 151150Z 18005KT 9999 10/04 Q1013"
	}
	p := pipeline.New(aps, reports, nil, nil, discardLogger(), observability.NewMetricsForTesting(), 3)

	results, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 6)
	for i, r := range results {
		assert.Equal(t, aps[i].ICAO, r.Decision.ICAO)
		assert.True(t, r.Decision.IsAuto())
	}
	assert.LessOrEqual(t, reports.maxSeen.Load(), int64(3))
}

func TestPipeline_RunOnce_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New(airports(), defaultReports(), nil, nil, discardLogger(), observability.NewMetricsForTesting(), 2)
	_, err := p.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_Interval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reports := defaultReports()
	decisions := &mockDecisionSink{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(airports(), reports, nil, decisions, discardLogger(), metrics, 2).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Minute) }()

	assert.Eventually(t, func() bool { return reports.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PipelineRunning), 0)

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return reports.calls.Load() == 4 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 0)

	decisions.mu.Lock()
	defer decisions.mu.Unlock()
	assert.Len(t, decisions.published, 4)
}

func TestPipeline_Run_InvalidInterval(t *testing.T) {
	p := pipeline.New(airports(), defaultReports(), nil, nil, discardLogger(), observability.NewMetricsForTesting(), 1)
	require.Error(t, p.Run(context.Background(), 0))
}

func TestSelector_Evaluate(t *testing.T) {
	s := pipeline.NewSelector(nil, discardLogger(), observability.NewMetricsForTesting())
	ap := airports()[1]

	d := s.Evaluate("METAR "+enzvReport+"=", ap)
	assert.Equal(t, domain.AutoDecision("ENZV", "18", d.Evaluations), d)

	d = s.Evaluate("", ap)
	assert.Equal(t, []string{domain.ReasonMalformedReport}, d.Reasons)
}
