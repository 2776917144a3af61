package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable
type Pinger func(ctx context.Context) error

const readyTimeout = 2 * time.Second

// HandleHealth reports liveness
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// HandleReady reports whether the database answers. A nil ping is always ready.
func HandleReady(ping Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				respondError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
