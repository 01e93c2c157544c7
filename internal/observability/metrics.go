package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "runway_select"

// Metrics holds the Prometheus counters, histograms, and gauges for the selector.
type Metrics struct {
	Decisions       *prometheus.CounterVec // labels: kind={AUTO,MANUAL}
	ManualReasons   *prometheus.CounterVec // labels: reason
	ReportErrors    *prometheus.CounterVec // labels: reason={report_unavailable,malformed_report}
	PipelineRunning prometheus.Gauge

	// Evaluation cycle metrics.
	AirportsEvaluated prometheus.Histogram
	CycleDuration     prometheus.Histogram

	// Upstream fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: source={metar,atis}, outcome={success,error}
	FetchCache    *prometheus.CounterVec   // labels: source={metar,atis}, result={hit,miss}
	FetchDuration *prometheus.HistogramVec // labels: source={metar,atis}

	// Sinks.
	RwyFilesWritten    prometheus.Counter
	DecisionsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.Decisions,
		m.ManualReasons,
		m.ReportErrors,
		m.PipelineRunning,
		m.AirportsEvaluated,
		m.CycleDuration,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.RwyFilesWritten,
		m.DecisionsPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      help("Runway decisions by kind."),
		}, []string{"kind"}),
		ManualReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_reasons_total",
			Help:      help("Reasons attached to MANUAL decisions."),
		}, []string{"reason"}),
		ReportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      help("Airports that could not be evaluated from a report."),
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the selector loop is active, 0 when shut down."),
		}),
		AirportsEvaluated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "airports_evaluated",
			Help:      help("Number of airports evaluated per cycle."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      help("Duration of a complete fetch-decide-write cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      help("Upstream requests by source and outcome."),
		}, []string{"source", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      help("Report cache lookups by source and result."),
		}, []string{"source", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Upstream request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		RwyFilesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rwy_files_written_total",
			Help:      help("Runway files rewritten with active runways."),
		}),
		DecisionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_published_total",
			Help:      help("Decisions written to the Kafka topic."),
		}),
	}
}
