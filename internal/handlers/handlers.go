// Package handlers exposes the draft store over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/Billy-Davies-2/esccup-draft/internal/auth"
	"github.com/Billy-Davies-2/esccup-draft/internal/bracket"
	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// APIHandlers serves the draft, admin, match and tournament endpoints
type APIHandlers struct {
	store     dal.Store
	bracket   *bracket.Service
	events    *pubsub.Hub
	validate  *validator.Validate
	upgrader  websocket.Upgrader
	keepalive time.Duration
}

func NewAPIHandlers(store dal.Store, events *pubsub.Hub) *APIHandlers {
	return &APIHandlers{
		store:    store,
		bracket:  bracket.NewService(store),
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		keepalive: 30 * time.Second,
	}
}

// Routes mounts every endpoint on r. Reads are public and writes require an admin.
func (h *APIHandlers) Routes(r chi.Router) {
	r.Route("/api/draft", func(r chi.Router) {
		r.Get("/teams", h.ListDraftTeams)
		r.Get("/standby", h.ListStandby)
		r.With(auth.RequireAdmin).Post("/assign", h.Assign)
		r.With(auth.RequireAdmin).Post("/assign/all", h.AssignAll)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Post("/", h.AddPlayer)
			r.Delete("/", h.DeleteAllPlayers)
			r.Put("/{id}", h.UpdatePlayer)
			r.Delete("/{id}", h.DeletePlayer)
		})
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.ListDraftTeams)
			r.Post("/", h.AddTeam)
			r.Delete("/", h.DeleteAllTeams)
			r.Put("/{id}", h.RenameTeam)
			r.Delete("/{id}", h.DeleteTeam)
		})
	})

	r.Route("/api/matches", func(r chi.Router) {
		r.Get("/", h.ListMatches)
		r.Get("/{id}", h.GetMatch)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/", h.CreateMatch)
			r.Put("/{id}", h.UpdateMatch)
			r.Delete("/{id}", h.DeleteMatch)
			r.Patch("/{id}/teams", h.SetMatchTeams)
		})
	})

	r.Route("/api/tournament", func(r chi.Router) {
		r.Get("/", h.ListBracket)
		r.With(auth.RequireAdmin).Post("/create-empty", h.CreateEmptyBracket)
		r.With(auth.RequireAdmin).Put("/{id}", h.UpdateBracketMatch)
	})

	r.Get("/api/auth/me", auth.Me)
	r.Get("/api/events", h.EventsSSE)
	r.Get("/api/ws", h.EventsWS)
}

func (h *APIHandlers) publish(eventType string, payload any) {
	if h.events == nil {
		return
	}
	h.events.Publish(pubsub.NewEvent(eventType, payload))
}

// decode reads a JSON body into v and validates it
func (h *APIHandlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.Mark(errors.Wrap(err, "invalid JSON body"), errBadRequest)
	}
	if err := h.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// v is not a struct; callers validate those themselves
			return nil
		}
		return errors.Mark(err, errBadRequest)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Mark(errors.Newf("invalid id %q", raw), errBadRequest)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeError maps err to a status code and a JSON error body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dal.ErrTeamFull):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.IsAny(err,
		errBadRequest,
		dal.ErrInvalidInput,
		dal.ErrInvalidBatch,
		bracket.ErrInvalidTeamCount,
		bracket.ErrInvalidWinner,
		bracket.ErrNotBracketMatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
