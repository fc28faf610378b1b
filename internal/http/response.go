package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledgerbi/internal/core"
	"ledgerbi/internal/log"
	"ledgerbi/internal/search"
)

type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
}

func writeData(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, successResponse{Message: "success", Data: data})
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// writeError maps err onto a status code. Server-side failures are logged;
// internal ones are reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			log.ComponentHTTP, r.Pattern, log.NewFields().WithErrorType(errorType(err)))
	}
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeErrorStatus(w, r, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStoreUnavailable), errors.Is(err, search.ErrSessionClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrStoreUnavailable):
		return log.ErrorTypeDatabase
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	default:
		return log.ErrorTypeInternal
	}
}

// nonNil keeps empty lists rendered as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
