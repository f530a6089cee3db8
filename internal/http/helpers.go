package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/services"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, services.ErrNoData):
		return http.StatusServiceUnavailable, "no_data"
	case errors.Is(err, core.ErrUnknownYear):
		return http.StatusUnprocessableEntity, "unknown_year"
	case errors.Is(err, core.ErrEmptySelection):
		return http.StatusUnprocessableEntity, "empty_selection"
	case errors.Is(err, core.ErrInvalidRankMode):
		return http.StatusBadRequest, "invalid_rank_mode"
	case errors.Is(err, core.ErrInvalidEvent):
		return http.StatusBadRequest, "invalid_event"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondError logs the technical error and writes the JSON error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, "code", code)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, "code", code)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
