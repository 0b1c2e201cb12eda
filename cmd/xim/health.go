package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xim"
)

type healthSource interface {
	Health(ctx context.Context) xim.HealthStatus
	GetMetrics() xim.Metrics
}

// newRouter exposes /healthz and /metrics for probes.
func newRouter(src healthSource, logger *xlog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		h := src.Health(req.Context())
		code := http.StatusOK
		if h.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":    h.Status,
			"message":   h.Message,
			"timestamp": h.Timestamp,
		}, logger)
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, src.GetMetrics(), logger)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *xlog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("health: write response failed")
	}
}

// serveHealth runs the probe server until ctx is done.
func serveHealth(ctx context.Context, addr string, src healthSource, logger *xlog.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(src, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info().Str("addr", addr).Msg("health endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("addr", addr).Msg("health endpoint stopped")
	}
}
