package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker reports whether a dependency is reachable
type Checker func(ctx context.Context) error

// Health serves liveness, readiness and dependency status
type Health struct {
	database Checker
	optional map[string]Checker
	timeout  time.Duration
}

// NewHealth builds health handlers. database gates readiness; optional
// checks only degrade /api/health.
func NewHealth(database Checker, optional map[string]Checker) *Health {
	return &Health{database: database, optional: optional, timeout: 2 * time.Second}
}

func (h *Health) Routes(r chi.Router) {
	r.Get("/api/health", h.Status)
	r.Get("/healthz", h.Live)
	r.Get("/readyz", h.Ready)
}

// Status reports every dependency; any failure answers 503
func (h *Health) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := map[string]map[string]string{}
	run := func(name string, check Checker) {
		if check == nil {
			checks[name] = map[string]string{"status": "not_configured"}
			return
		}
		if err := check(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			checks[name] = map[string]string{"status": "unhealthy", "error": err.Error()}
			return
		}
		checks[name] = map[string]string{"status": "healthy"}
	}

	run("database", h.database)
	for name, check := range h.optional {
		run(name, check)
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Live answers 200 while the process is running
func (h *Health) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive", "timestamp": time.Now().Unix()})
}

// Ready answers 503 until the database responds
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.database != nil {
		if err := h.database(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"reason": "database unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "timestamp": time.Now().Unix()})
}
