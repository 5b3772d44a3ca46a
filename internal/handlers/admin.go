package handlers

import (
	"net/http"

	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

type playerRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Position    string `json:"position" validate:"required"`
	Tier        string `json:"tier" validate:"max=32"`
	HighestTier string `json:"highestTier" validate:"max=32"`
	OpggURL     string `json:"opggUrl" validate:"omitempty,url"`
}

func (p playerRequest) toModel(id int64) *models.Player {
	return &models.Player{
		ID:          id,
		Name:        p.Name,
		Position:    models.Position(p.Position),
		Tier:        p.Tier,
		HighestTier: p.HighestTier,
		OpggURL:     p.OpggURL,
	}
}

func (h *APIHandlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.store.ListPlayers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *APIHandlers) AddPlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	player, err := h.store.AddPlayer(r.Context(), req.toModel(0))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(pubsub.TypePlayerAdded, player)
	writeJSON(w, http.StatusCreated, player)
}

func (h *APIHandlers) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req playerRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	player, err := h.store.UpdatePlayer(r.Context(), req.toModel(id))
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(pubsub.TypePlayerUpdated, player)
	writeJSON(w, http.StatusOK, player)
}

func (h *APIHandlers) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeletePlayer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(pubsub.TypePlayerDeleted, map[string]int64{"id": id})
	writeOK(w)
}

func (h *APIHandlers) DeleteAllPlayers(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAllPlayers(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypePlayersCleared, nil)
	writeOK(w)
}

// AddTeam creates "Team N" at the end of the display order
func (h *APIHandlers) AddTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.store.AddTeam(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeTeamAdded, team)
	writeJSON(w, http.StatusCreated, team)
}

func (h *APIHandlers) RenameTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Name string `json:"name" validate:"required,max=64"`
	}
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	team, err := h.store.RenameTeam(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeTeamUpdated, team)
	writeJSON(w, http.StatusOK, team)
}

// DeleteTeam releases the team's players to standby before removing it
func (h *APIHandlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteTeam(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeTeamDeleted, map[string]int64{"id": id})
	writeOK(w)
}

func (h *APIHandlers) DeleteAllTeams(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAllTeams(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeTeamsCleared, nil)
	writeOK(w)
}
