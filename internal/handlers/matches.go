package handlers

import (
	"net/http"

	"github.com/Billy-Davies-2/esccup-draft/internal/bracket"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

type matchRequest struct {
	Stage        string             `json:"stage" validate:"required,max=64"`
	BlueTeamID   *int64             `json:"blueTeamId" validate:"omitempty,gt=0"`
	RedTeamID    *int64             `json:"redTeamId" validate:"omitempty,gt=0"`
	WinnerTeamID *int64             `json:"winnerTeamId" validate:"omitempty,gt=0"`
	Score        string             `json:"score" validate:"max=32"`
	Status       models.MatchStatus `json:"status" validate:"omitempty,oneof=SCHEDULED FINISHED"`
}

func (m matchRequest) apply(match *models.Match) {
	match.Stage = m.Stage
	match.BlueTeamID = m.BlueTeamID
	match.RedTeamID = m.RedTeamID
	match.WinnerTeamID = m.WinnerTeamID
	match.Score = m.Score
	if m.Status != "" {
		match.Status = m.Status
	}
}

func (h *APIHandlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.store.ListMatches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *APIHandlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	match, err := h.store.GetMatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *APIHandlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var match models.Match
	req.apply(&match)
	created, err := h.store.CreateMatch(r.Context(), &match)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeMatchCreated, created)
	writeJSON(w, http.StatusCreated, created)
}

// UpdateMatch replaces the editable fields; bracket links are kept
func (h *APIHandlers) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req matchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	match, err := h.store.GetMatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(match)
	saved, err := h.store.SaveMatch(r.Context(), match)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeMatchUpdated, saved)
	writeJSON(w, http.StatusOK, saved)
}

func (h *APIHandlers) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteMatch(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeMatchDeleted, map[string]int64{"id": id})
	writeOK(w)
}

// SetMatchTeams sets the blue and red teams; null clears a side
func (h *APIHandlers) SetMatchTeams(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		BlueTeamID *int64 `json:"blueTeamId" validate:"omitempty,gt=0"`
		RedTeamID  *int64 `json:"redTeamId" validate:"omitempty,gt=0"`
	}
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	match, err := h.store.GetMatch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	match.BlueTeamID = req.BlueTeamID
	match.RedTeamID = req.RedTeamID
	saved, err := h.store.SaveMatch(r.Context(), match)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeMatchUpdated, saved)
	writeJSON(w, http.StatusOK, saved)
}

// ListBracket returns only matches that belong to the bracket
func (h *APIHandlers) ListBracket(w http.ResponseWriter, r *http.Request) {
	matches, err := h.store.ListMatches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.InBracket() {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) CreateEmptyBracket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamCount int `json:"teamCount" validate:"required"`
	}
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	matches, err := h.bracket.CreateEmpty(r.Context(), req.TeamCount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publish(pubsub.TypeBracketCreated, map[string]int{"teamCount": req.TeamCount})
	writeJSON(w, http.StatusCreated, matches)
}

// UpdateBracketMatch records a result and advances the winner
func (h *APIHandlers) UpdateBracketMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd bracket.Update
	if err := h.decode(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	saved, next, err := h.bracket.UpdateMatch(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.publish(pubsub.TypeBracketAdvanced, map[string]any{"match": saved, "next": next})
	writeJSON(w, http.StatusOK, map[string]any{"match": saved, "next": next})
}
