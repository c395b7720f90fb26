// Package health exposes the daemon's liveness endpoints.
//
// /healthz and /readyz answer Docker and systemd watchdog checks. The flag
// behind them tracks the assistant itself: main flips it on once the speech
// backends are wired, and the turn loop flips it off while the microphone
// pipeline is failing.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Server serves /healthz and /readyz backed by a single readiness flag.
type Server struct {
	port   int
	ready  atomic.Bool
	server *http.Server
}

// New creates a health check server. It starts not ready.
func New(port int) *Server {
	return &Server{port: port}
}

// SetReady flips the readiness flag. The turn loop calls this on listen
// failures, so it must be safe from any goroutine.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the mux behind ListenAndServe, split out so the endpoints
// can be exercised without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.status)
	mux.HandleFunc("GET /readyz", s.status)
	return mux
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
