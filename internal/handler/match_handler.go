package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaguesync/internal/container"
	"leaguesync/internal/service/result"
)

// MatchHandler serves the team-facing result lifecycle
type MatchHandler struct {
	container *container.Container
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(container *container.Container) *MatchHandler {
	return &MatchHandler{
		container: container,
	}
}

// SubmitResult handles POST /api/matches/{matchId}/result
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger

	var in result.SubmitInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err, log)
		return
	}
	in.MatchID = chi.URLParam(r, "matchId")

	match, err := h.container.Services.Result.Submit(r.Context(), in)
	if err != nil {
		respondError(w, r, err, log)
		return
	}

	respondJSON(w, http.StatusOK, match, "Result submitted", log)
}

// ConfirmResult handles POST /api/matches/{matchId}/confirmation.
// A body with "confirm": false rejects the pending submission; the field is required.
func (h *MatchHandler) ConfirmResult(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger

	var in result.ConfirmInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err, log)
		return
	}
	in.MatchID = chi.URLParam(r, "matchId")

	match, err := h.container.Services.Result.Confirm(r.Context(), in)
	if err != nil {
		respondError(w, r, err, log)
		return
	}

	message := "Result confirmed"
	if !in.Accepts() {
		message = "Result rejected"
	}
	respondJSON(w, http.StatusOK, match, message, log)
}
