// Package server is the optional status listener: liveness, operational
// status, and Prometheus metrics. It is read-only; the agent has no
// remote control surface.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/scheduler"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

const shutdownTimeout = 10 * time.Second

// Deps are the read surfaces the endpoints expose.
type Deps struct {
	Version   string
	Scheduler *scheduler.Scheduler
	Store     *state.Store

	// LastStats returns the most recent pass statistics, nil before the
	// first pass.
	LastStats func() *transfer.Statistics

	// Metrics serves the Prometheus registry; nil disables /metrics.
	Metrics http.Handler
}

// Server wraps the HTTP listener.
type Server struct {
	addr   string
	router chi.Router
	log    *zap.Logger
}

type statusResponse struct {
	Version   string               `json:"version"`
	State     string               `json:"state"`
	LastRun   *scheduler.LastRun   `json:"last_run,omitempty"`
	LastStats *transfer.Statistics `json:"last_stats,omitempty"`
	Ledger    statusLedgerResponse `json:"state_store"`
}

type statusLedgerResponse struct {
	Files      int       `json:"files"`
	TotalBytes int64     `json:"total_bytes"`
	LastSync   time.Time `json:"last_sync"`
}

// New builds the server and its routes.
func New(addr string, deps Deps, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		resp := statusResponse{Version: deps.Version}
		if deps.Scheduler != nil {
			resp.State = deps.Scheduler.State().String()
			resp.LastRun = deps.Scheduler.LastRun()
		}
		if deps.LastStats != nil {
			resp.LastStats = deps.LastStats()
		}
		if deps.Store != nil {
			stats := deps.Store.Stats()
			resp.Ledger = statusLedgerResponse{
				Files:      stats.Files,
				TotalBytes: stats.TotalBytes,
				LastSync:   stats.LastSync,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return &Server{addr: addr, router: r, log: log}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status listener started", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("status listener stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
