// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package api provides HTTP routing and handlers for the race
// telemetry surface: ingestion, live snapshots, replay, course
// detection, exports, and the WebSocket upgrade.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// ResponseWriter writes the standard JSON envelope used by every
// endpoint that does not serve a raw document (GPX/KML/WebSocket).
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a response writer for one request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

func (rw *ResponseWriter) metadata() models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now().UTC(),
		QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		RequestID:   logging.RequestIDFromContext(rw.r.Context()),
	}
}

// Success writes a 200 response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: rw.metadata(),
	})
}

// Error writes an error response with the given status and code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with structured details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details map[string]interface{}) {
	rw.writeJSON(statusCode, models.APIResponse{
		Status:   "error",
		Metadata: rw.metadata(),
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// BadRequest writes a 400 with the INVALID_PAYLOAD code.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, "INVALID_PAYLOAD", message)
}

// MissingRaceID writes the 400 every race-scoped endpoint shares.
func (rw *ResponseWriter) MissingRaceID() {
	rw.Error(http.StatusBadRequest, "MISSING_RACE_ID", "raceId query parameter is required")
}

// Unauthorized writes a 401 for a missing or wrong shared key.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// NotFound writes a 404.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, "NOT_FOUND", message)
}

// StorageError writes a 500 without leaking internals to the client.
func (rw *ResponseWriter) StorageError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Msg("storage operation failed")
	rw.Error(http.StatusInternalServerError, "STORAGE_ERROR", "storage operation failed")
}

func (rw *ResponseWriter) writeJSON(statusCode int, payload models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)
	if err := json.NewEncoder(rw.w).Encode(payload); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
