// Command rwyselect picks active runways from current METARs and writes them
// to the controller client's .rwy files.
//
// With INTERVAL unset it evaluates every configured airport once and exits.
// With INTERVAL set it runs as a service, re-evaluating on that interval and
// serving /healthz, /readyz, /metrics and /decisions on HTTP_ADDR.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vatnor/runway-selector/internal/adapter/airportcfg"
	"github.com/vatnor/runway-selector/internal/adapter/console"
	httpadapter "github.com/vatnor/runway-selector/internal/adapter/http"
	kafkaadapter "github.com/vatnor/runway-selector/internal/adapter/kafka"
	"github.com/vatnor/runway-selector/internal/adapter/rwyfile"
	"github.com/vatnor/runway-selector/internal/adapter/vatsim"
	"github.com/vatnor/runway-selector/internal/config"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
	"github.com/vatnor/runway-selector/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	catalog, err := airportcfg.Load(cfg.AirportsFile, cfg.RunwayFile, logger)
	if err != nil {
		logger.Error("failed to load airports", "error", err)
		os.Exit(1)
	}
	if len(catalog.Airports) == 0 {
		logger.Error("no valid airports configured", "file", cfg.AirportsFile, "rejected", len(catalog.Rejected))
		os.Exit(1)
	}

	client := vatsim.NewClient(cfg.METARURL, cfg.FetchTimeout, metrics, logger)
	reports := vatsim.NewCachedSource(client, cfg.CacheSize, cfg.CacheTTL, vatsim.BulkPrefixes(catalog.ICAOs()), metrics)
	writer := rwyfile.NewWriter(cfg.RwyDir, metrics, logger)

	var publisher *kafkaadapter.Publisher
	var decisions pipeline.DecisionSink
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		decisions = publisher
		logger.Info("decision publishing enabled", "topic", cfg.KafkaDecisionTopic)
	} else {
		logger.Info("decision publishing disabled")
	}

	p := pipeline.New(catalog.Airports, reports, writer, decisions, logger, metrics, cfg.Concurrency)

	if cfg.ATISEnabled {
		p.WithATIS(vatsim.NewATISClient(cfg.VatsimDataURL, cfg.FetchTimeout, cfg.CacheTTL, metrics, logger))
		logger.Info("atis runways enabled")
	}

	con := console.ForTerminal()
	if cfg.PromptManual {
		if con.Interactive() {
			p.WithResolver(con)
		} else {
			logger.Warn("PROMPT_MANUAL set but stdin is not a terminal, manual airports are left unchanged")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if cfg.Interval == 0 {
		code = runOnce(ctx, p, con, logger)
	} else {
		runService(ctx, cfg, p, logger)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	stop()
	os.Exit(code)
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, con *console.Console, logger *slog.Logger) int {
	results, err := p.RunOnce(ctx)
	for _, r := range results {
		if r.Assignment != nil && r.Assignment.Source != domain.SourceAuto {
			con.ReportAssignment(*r.Assignment)
			continue
		}
		con.Report(r.Decision)
	}
	if err != nil {
		logger.Error("evaluation failed", "error", err)
		return 1
	}
	return 0
}

func runService(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) {
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx, cfg.Interval); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
