// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"inkpost/internal/respond"
)

// Check probes one backing service.
type Check func(ctx context.Context) error

// Health reports whether the backing services answer.
type Health struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHealth creates a health handler running checks on every request.
func NewHealth(checks map[string]Check) *Health {
	return &Health{checks: checks, timeout: 2 * time.Second}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP handles GET /health. Any failing check answers 503.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok"}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string)
			}
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(w, status, resp)
}
