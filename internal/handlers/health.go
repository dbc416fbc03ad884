package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"guidebook/internal/respond"
)

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health serves the liveness endpoint.
type Health struct {
	db         Pinger
	env        string
	apiBaseURL string
	now        func() time.Time
}

// NewHealth creates the health handler.
func NewHealth(db Pinger, env, apiBaseURL string) *Health {
	return &Health{db: db, env: env, apiBaseURL: apiBaseURL, now: time.Now}
}

// Check reports process liveness and database reachability. It always
// answers 200; an unreachable database shows up as status "degraded".
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	database := "connected"
	status := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
		database = "unavailable"
		status = "degraded"
	}

	respond.OK(w, http.StatusOK, map[string]any{
		"status":       status,
		"message":      "Guidebook API is running",
		"environment":  h.env,
		"api_base_url": h.apiBaseURL,
		"timestamp":    h.now().UTC().Format(time.RFC3339),
		"database":     database,
	}, "Guidebook API is running")
}
