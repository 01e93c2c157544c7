package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
)

// Selector turns an airport's latest report into a Decision. Reports that
// cannot be fetched or parsed degrade to MANUAL instead of failing.
type Selector struct {
	reports ReportSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSelector creates a Selector. reports may be nil when only Evaluate is used.
func NewSelector(reports ReportSource, logger *slog.Logger, metrics *observability.Metrics) *Selector {
	return &Selector{reports: reports, logger: logger, metrics: metrics}
}

// Select fetches the report for ap and decides its runway.
func (s *Selector) Select(ctx context.Context, ap domain.AirportConfig) domain.Decision {
	raw, err := s.reports.Report(ctx, ap.ICAO)
	if err != nil {
		s.logger.Warn("report unavailable", "icao", ap.ICAO, "error", err)
		s.metrics.ReportErrors.WithLabelValues(domain.ReasonReportUnavailable).Inc()
		return domain.ManualDecision(ap.ICAO, nil, domain.ReasonReportUnavailable)
	}
	return s.Evaluate(raw, ap)
}

// Evaluate decides ap's runway from a raw report.
func (s *Selector) Evaluate(raw string, ap domain.AirportConfig) domain.Decision {
	obs, err := domain.ParseMETAR(raw)
	if err != nil {
		var malformed *domain.MalformedReportError
		if errors.As(err, &malformed) {
			s.logger.Warn("malformed report", "icao", ap.ICAO, "missing", malformed.Missing, "report", raw)
		} else {
			s.logger.Warn("report parse failed", "icao", ap.ICAO, "error", err)
		}
		s.metrics.ReportErrors.WithLabelValues(domain.ReasonMalformedReport).Inc()
		return domain.ManualDecision(ap.ICAO, nil, domain.ReasonMalformedReport)
	}
	if obs.Station != ap.ICAO {
		s.logger.Debug("report station differs from airport", "icao", ap.ICAO, "station", obs.Station)
	}
	return domain.Decide(obs, ap)
}
