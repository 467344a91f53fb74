package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunSource exposes the most recent pipeline run.
type RunSource interface {
	LastRun() (pipeline.RunReport, bool)
}

// Trigger starts a pipeline run outside the schedule.
type Trigger interface {
	RunNow()
}

// Checks combines readiness checkers; every one must pass.
type Checks []sharedobs.ReadinessChecker

func (c Checks) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, checker := range c {
		if err := checker.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Server exposes health, readiness, metrics and run status HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// GET /runs/last and, when trigger is non-nil, POST /runs.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runs RunSource, trigger Trigger, logger *slog.Logger) *Server {
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
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/last", handleLastRun(runs))
	if trigger != nil {
		mux.HandleFunc("POST /runs", s.handleTrigger(trigger))
	}

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

func handleLastRun(runs RunSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report, ok := runs.LastRun()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no runs yet"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleTrigger(trigger Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("manual run requested", "remote_addr", r.RemoteAddr)
		trigger.RunNow()
		sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
