package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/curator/internal/metrics"
)

func newMonitor(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           monitorHandler(m, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func monitorHandler(m *metrics.Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		stats := m.Stats()
		status, code := "ok", http.StatusOK
		if !m.Healthy() {
			status, code = "error", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		}, logger)
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Stats(), logger)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write monitoring response", "error", err)
	}
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("monitoring server shutdown", "error", err)
	}
}

// withMonitor runs fn while the monitoring server, when configured, is up.
func withMonitor(ctx context.Context, fn func(context.Context) error) error {
	if cfg.MonitorAddr == "" {
		return fn(ctx)
	}
	srv := newMonitor(cfg.MonitorAddr, stats, logr)
	go func() {
		logr.Info("starting monitoring server", "addr", cfg.MonitorAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("monitoring server failed", "error", err)
		}
	}()
	defer shutdown(srv, logr)
	return fn(ctx)
}
