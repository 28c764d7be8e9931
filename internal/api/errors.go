// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/subview/internal/domain/session/model"
	"github.com/ManuGH/subview/internal/log"
)

// APIError is the error envelope returned by every endpoint.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common API error definitions
var (
	ErrSessionNotFound = &APIError{
		Status:  http.StatusNotFound,
		Code:    "SESSION.NOT_FOUND",
		Message: "Session not found",
	}
	ErrInvalidTrack = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "SESSION.INVALID_TRACK",
		Message: "Track is not registered on this session",
	}
	ErrInvalidRequest = &APIError{
		Status:  http.StatusBadRequest,
		Code:    "REQUEST.INVALID",
		Message: "Invalid request body",
	}
	ErrViewerLimit = &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "VIEWERS.LIMIT",
		Message: "Viewer limit reached",
	}
	ErrShuttingDown = &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVER.SHUTTING_DOWN",
		Message: "Server is shutting down",
	}
	ErrShutdownDisabled = &APIError{
		Status:  http.StatusForbidden,
		Code:    "SERVER.SHUTDOWN_DISABLED",
		Message: "Remote shutdown is disabled",
	}
	ErrInternal = &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL",
		Message: "An internal error occurred",
	}
)

// writeJSON writes a JSON response with the given status code.
// Encoding failures can only be logged since the status is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).Error().
			Err(err).
			Int(log.FieldStatus, code).
			Msg("failed to encode JSON response")
	}
}

// RespondError writes apiErr with the request id of r.
func RespondError(w http.ResponseWriter, r *http.Request, apiErr *APIError, details ...any) {
	out := *apiErr
	out.RequestID = log.RequestIDFromContext(r.Context())
	if len(details) > 0 {
		out.Details = details[0]
	}
	writeJSON(w, r, out.Status, &out)
}

// errorFor maps a domain error to its API error.
func errorFor(err error) *APIError {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, model.ErrInvalidTrack):
		return ErrInvalidTrack
	case errors.Is(err, model.ErrViewerLimit):
		return ErrViewerLimit
	case errors.Is(err, model.ErrRegistryClosed):
		return ErrShuttingDown
	default:
		return ErrInternal
	}
}

// respondDomainError logs unexpected errors and writes the mapped envelope.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errorFor(err)
	if apiErr == ErrInternal {
		log.FromContext(r.Context()).Error().Err(err).Msg("request failed")
	}
	RespondError(w, r, apiErr)
}
