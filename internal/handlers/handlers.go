// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API for the project generation
// pipeline: authentication, floor-plan uploads, project lifecycle, and
// render provider management.
package handlers

import (
	"encoding/json"
	"net/http"

	"planora/internal/ai"
	"planora/internal/hosting"
	"planora/internal/intake"
	"planora/internal/orchestrator"
	"planora/internal/projects"
	"planora/internal/session"
	"planora/internal/store"
)

// API groups the HTTP handlers and their collaborators.
type API struct {
	sessions *session.Store
	users    *store.UserStore
	repo     *projects.Repository
	orch     *orchestrator.Orchestrator
	intake   *intake.Intake
	gateway  *hosting.Gateway
	registry *ai.Registry
}

// NewAPI creates the handler group.
func NewAPI(
	sessions *session.Store,
	users *store.UserStore,
	repo *projects.Repository,
	orch *orchestrator.Orchestrator,
	in *intake.Intake,
	gateway *hosting.Gateway,
	registry *ai.Registry,
) *API {
	return &API{
		sessions: sessions,
		users:    users,
		repo:     repo,
		orch:     orch,
		intake:   in,
		gateway:  gateway,
		registry: registry,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
