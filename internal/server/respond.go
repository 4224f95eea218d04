package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tunebridge/internal/shared"
)

// envelope is the JSON response shape every endpoint uses.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{Status: "success", Data: data, Message: message})
}

func respondError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	json.NewEncoder(w).Encode(envelope{Status: "error", Error: err.Error()})
}

// statusFor maps the shared error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrStateMismatch),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAlreadyMigrated):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUpstreamUnavailable),
		errors.Is(err, shared.ErrSearchFailed),
		errors.Is(err, shared.ErrRefreshFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
