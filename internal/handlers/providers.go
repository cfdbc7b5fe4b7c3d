// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type providerRequest struct {
	Provider string `json:"provider"`
}

// ProviderStatus reports the configured render providers and which one
// is active.
func (a *API) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	available := a.registry.Available()
	if available == nil {
		available = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    a.registry.ActiveName(),
		"available": available,
	})
}

// ProviderSet switches the active render provider at runtime.
func (a *API) ProviderSet(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(req.Provider)
	if name == "" {
		writeError(w, "No provider specified.", http.StatusBadRequest)
		return
	}

	if err := a.registry.SetActive(name); err != nil {
		slog.Warn("failed to switch render provider", "provider", name, "error", err)
		writeError(w, "Provider not available (no API key configured).", http.StatusBadRequest)
		return
	}

	slog.Info("render provider switched", "provider", name)
	writeJSON(w, http.StatusOK, map[string]string{"active": name})
}
