// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/foundernet/messaging-platform/internal/model"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with an explicit kind.
func writeError(w http.ResponseWriter, status int, kind model.ErrorKind, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   string(kind),
		Message: message,
	})
}

// writeValidationError writes a 400 validation failure.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, model.KindValidation, message)
}

// writeServiceError maps a service error's kind to an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	status := http.StatusInternalServerError
	message := err.Error()

	switch kind {
	case model.KindValidation:
		status = http.StatusBadRequest
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindAuthorization, model.KindForbidden:
		status = http.StatusForbidden
	case model.KindInternal:
		// Do not leak storage details to the caller.
		message = "internal error"
	}

	writeError(w, status, kind, message)
}
