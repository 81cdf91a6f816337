// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/ytdlq/internal/history"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
	"github.com/ManuGH/ytdlq/internal/validate"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind, detail string) {
	writeJSON(w, code, errorBody{
		Error:     kind,
		Detail:    detail,
		RequestID: xlog.RequestIDFromContext(r.Context()),
	})
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not_found", "")
}

// writeFailure maps domain errors to HTTP statuses. Tool output is passed
// through untouched.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr validate.ValidationError
		ee   *media.ExtractionError
		tnf  *media.ToolNotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &tnf):
		writeError(w, r, http.StatusServiceUnavailable, "tool_not_found", err.Error())
	case errors.As(err, &ee):
		writeError(w, r, http.StatusUnprocessableEntity, "extraction_failed", ee.Detail)
	case errors.Is(err, queue.ErrNoQuality):
		writeError(w, r, http.StatusUnprocessableEntity, "no_quality", err.Error())
	case errors.Is(err, queue.ErrInvalidConcurrency):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, history.ErrNotFound):
		writeNotFound(w, r)
	case errors.Is(err, media.ErrNotFetched):
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "metadata fetching is not configured")
	case errors.Is(err, queue.ErrClosed):
		writeError(w, r, http.StatusServiceUnavailable, "shutting_down", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		logger := xlog.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "")
	}
}
