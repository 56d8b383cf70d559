// Package httpapi serves the bot's operational endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Status reports the live state of the bot for /healthz.
type Status interface {
	Channels() map[string]bool
	Providers() []string
	PendingReminders(ctx context.Context) (int, error)
}

type Server struct {
	status  Status
	metrics http.Handler
	started time.Time
}

func New(status Status, metrics http.Handler) *Server {
	return &Server{status: status, metrics: metrics, started: time.Now()}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	}
	if s.status != nil {
		body["channels"] = s.status.Channels()
		body["providers"] = s.status.Providers()
		if n, err := s.status.PendingReminders(r.Context()); err == nil {
			body["pending_reminders"] = n
		} else {
			body["pending_reminders_error"] = err.Error()
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// handleReady is 200 once at least one channel is running.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.status != nil {
		for _, running := range s.status.Channels() {
			if running {
				respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
				return
			}
		}
	}
	respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
}

// ListenAndServe runs the server on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[http] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
