package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

// ListDraftTeams returns teams by display order with players in slot order
func (h *APIHandlers) ListDraftTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.ListTeams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// ListStandby returns the players not on any team
func (h *APIHandlers) ListStandby(w http.ResponseWriter, r *http.Request) {
	players, err := h.store.ListStandby(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// Assign moves one player to a team, or to standby for a null teamId
func (h *APIHandlers) Assign(w http.ResponseWriter, r *http.Request) {
	var req models.AssignRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.AssignPlayer(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(pubsub.TypeDraftAssign, req)
	writeOK(w)
}

// AssignAll applies a whole roster batch atomically
func (h *APIHandlers) AssignAll(w http.ResponseWriter, r *http.Request) {
	var batch []models.AssignRequest
	if err := h.decode(w, r, &batch); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Var(batch, "dive"); err != nil {
		writeError(w, r, errors.Mark(err, errBadRequest))
		return
	}

	if err := h.store.AssignAll(r.Context(), batch); err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("Applied assignment batch", "assignments", len(batch))
	h.publish(pubsub.TypeDraftAssignAll, map[string]int{"assignments": len(batch)})
	writeOK(w)
}
