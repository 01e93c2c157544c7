package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vatnor/runway-selector/internal/domain"
)

// DecisionStore exposes the most recent decision per airport.
type DecisionStore interface {
	sharedobs.ReadinessChecker
	Latest() []domain.Decision
	LatestFor(icao string) (domain.Decision, bool)
}

// Server exposes health, readiness, metrics, and decision endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /decisions and /decisions/{icao} routes.
func NewServer(addr string, store DecisionStore, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(store))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /decisions", handleDecisions(store))
	mux.HandleFunc("GET /decisions/{icao}", handleDecision(store))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleDecisions(store DecisionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decisions := store.Latest()
		if kind := strings.ToUpper(r.URL.Query().Get("kind")); kind != "" {
			filtered := decisions[:0:0]
			for _, d := range decisions {
				if string(d.Kind) == kind {
					filtered = append(filtered, d)
				}
			}
			decisions = filtered
		}
		if decisions == nil {
			decisions = []domain.Decision{}
		}
		sharedobs.WriteJSON(w, http.StatusOK, decisions)
	}
}

func handleDecision(store DecisionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		icao := strings.ToUpper(r.PathValue("icao"))
		d, ok := store.LatestFor(icao)
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
				"error": "no decision for " + icao,
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, d)
	}
}
