package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"leaguesync/internal/container"
	"leaguesync/internal/service/reconcile"
	"leaguesync/pkg/errors"
)

// AdminHandler exposes manual sync, tracking reset and delivery triggers
type AdminHandler struct {
	container *container.Container
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(container *container.Container) *AdminHandler {
	return &AdminHandler{
		container: container,
	}
}

// SyncResponse is the outcome of one manual category sync
type SyncResponse struct {
	Category string `json:"category"`
	*reconcile.Result
}

// SyncCategory handles POST /api/admin/categories/{category}/sync
func (h *AdminHandler) SyncCategory(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger

	target, err := h.target(r)
	if err != nil {
		respondError(w, r, err, log)
		return
	}

	res, err := h.container.Services.Reconcile.Sync(r.Context(), target)
	if err != nil {
		respondError(w, r, err, log)
		return
	}

	log.WithFields(map[string]interface{}{
		"category": target.Category,
		"changed":  res.Changed,
		"matches":  res.MatchesCount,
	}).Info("Manual sync completed")

	respondJSON(w, http.StatusOK, SyncResponse{Category: target.Category, Result: res}, "Category synchronized", log)
}

// ResetTracking handles DELETE /api/admin/categories/{category}/tracking.
// The next sync then reprocesses the category in full.
func (h *AdminHandler) ResetTracking(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger

	target, err := h.target(r)
	if err != nil {
		respondError(w, r, err, log)
		return
	}

	if err := h.container.Services.Tracking.Reset(r.Context(), target.SpreadsheetID, target.Category); err != nil {
		respondError(w, r, errors.NewInternalError("Failed to reset tracking", err), log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"category": target.Category}, "Tracking reset", log)
}

// ProcessNotifications handles POST /api/admin/notifications/process
func (h *AdminHandler) ProcessNotifications(w http.ResponseWriter, r *http.Request) {
	log := h.container.Logger

	stats, err := h.container.Services.Notification.ProcessPendingNotifications(r.Context())
	if err != nil {
		respondError(w, r, errors.NewInternalError("Failed to process notifications", err), log)
		return
	}

	respondJSON(w, http.StatusOK, stats, "Pending notifications processed", log)
}

func (h *AdminHandler) target(r *http.Request) (reconcile.Target, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "category"))
	if err != nil || name == "" {
		return reconcile.Target{}, errors.NewValidationError("Category is required", map[string]interface{}{
			"field": "category",
		})
	}

	target, ok := h.container.Category(name)
	if !ok {
		return reconcile.Target{}, errors.NewNotFoundError("Unknown category: " + name)
	}
	return target, nil
}
