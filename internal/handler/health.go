package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HandleHealth is the liveness probe. It never touches the database, so a
// slow database cannot get the process restarted.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pinger reports whether a backing store is reachable. *sqlstore.DB
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readyTimeout bounds the database ping of one readiness check.
const readyTimeout = 2 * time.Second

// HandleReady returns the readiness probe: 200 {"status":"ready"} when db
// answers a ping, 503 {"status":"unavailable"} otherwise.
//
// HTTP: GET /ready
func HandleReady(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
