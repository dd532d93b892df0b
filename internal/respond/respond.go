// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package respond writes JSON responses in the API's single envelope.
// Failures are always {"success": false, "error": "...", "field": "..."}.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"inkpost/internal/apperr"
)

// Failure is the error envelope.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

// Message is the envelope for operations without a resource body.
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// OK writes a success message envelope.
func OK(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, Message{Success: true, Message: msg})
}

// Fail writes an error envelope with an explicit status.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Failure{Error: msg})
}

// Error maps err to its status and writes the envelope. Internal errors
// are logged with their cause and answered with fallback.
func Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.StatusOf(err)
	body := Failure{Error: apperr.PublicMessage(err, fallback)}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		body.Field = ae.Field
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	JSON(w, status, body)
}
