package handler

import (
	"encoding/json"
	"net/http"

	"leaguesync/internal/middleware"
	"leaguesync/pkg/errors"
	"leaguesync/pkg/logger"
)

// Response wraps every successful payload
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, message string, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Data: data, Success: true, Message: message}); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// respondError maps err onto an AppError; anything else becomes a 500
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.NewInternalError("Internal server error", err)
	}
	middleware.WriteErrorResponse(w, r, appErr, log)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return nil
}
