// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"planora/internal/intake"
	"planora/internal/middleware"
	"planora/internal/models"
	"planora/internal/orchestrator"
)

// projectResponse pairs a project with its lifecycle state.
type projectResponse struct {
	Project *models.Project    `json:"project"`
	State   orchestrator.State `json:"state"`
}

// ownerID returns the authenticated user's id, or nil.
func ownerID(r *http.Request) *uuid.UUID {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return nil
	}
	id := sess.UserID
	return &id
}

// ProjectCreate accepts a multipart floor-plan upload, validates and
// encodes it, and persists a draft project. The rendering is triggered
// later, when the project is first loaded.
func (a *API) ProjectCreate(w http.ResponseWriter, r *http.Request) {
	// Limit request body to the upload cap plus overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, intake.MaxUploadBytes+1024)
	if err := r.ParseMultipartForm(intake.MaxUploadBytes); err != nil {
		writeError(w, "File too large. Maximum size is 50 MiB.", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file provided.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	payload, err := a.intake.Accept(r.Context(), file, intake.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, nil)
	if err != nil {
		var ve *intake.ValidationError
		if errors.As(err, &ve) {
			writeError(w, ve.Message, http.StatusBadRequest)
			return
		}
		slog.Error("upload intake failed", "error", err)
		writeError(w, "Failed to read upload.", http.StatusInternalServerError)
		return
	}

	p, err := a.orch.CreateDraft(r.Context(), payload, r.FormValue("name"), ownerID(r))
	if err != nil {
		if errors.Is(err, orchestrator.ErrCreateInFlight) {
			writeError(w, "A project is already being created.", http.StatusConflict)
			return
		}
		slog.Error("draft create failed", "error", err)
		writeError(w, "Failed to create project.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// ProjectList returns the caller's projects, newest first. Anonymous
// callers get an empty list; project records are never exposed to
// anyone but their owner.
func (a *API) ProjectList(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == nil {
		writeJSON(w, http.StatusOK, []models.Project{})
		return
	}

	items, err := a.repo.ListByOwner(r.Context(), *owner)
	if err != nil {
		slog.Error("project list failed", "error", err)
		writeError(w, "Failed to list projects.", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Project{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ProjectGet loads one project and reports its lifecycle state. Loading
// a draft triggers its one automatic render; loading a finished project
// never does.
func (a *API) ProjectGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := a.orch.Load(r.Context(), id, ownerID(r))
	if err != nil {
		slog.Error("project load failed", "id", id, "error", err)
		writeError(w, "Failed to load project.", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "Project not found.", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, projectResponse{Project: p, State: a.orch.State(id)})
}

// ProjectGenerate starts the automatic render for a project. The path is
// idempotent: a finished project stays finished, and repeated calls while
// a render is in flight do not start another.
func (a *API) ProjectGenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := a.orch.Load(r.Context(), id, ownerID(r))
	if err != nil {
		slog.Error("project load failed", "id", id, "error", err)
		writeError(w, "Failed to start generation.", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "Project not found.", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusAccepted, projectResponse{Project: p, State: a.orch.State(id)})
}

// ProjectRegenerate re-renders a project on explicit request, from any
// state.
func (a *API) ProjectRegenerate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := a.orch.Regenerate(r.Context(), id, ownerID(r))
	if err != nil {
		slog.Error("project regenerate failed", "id", id, "error", err)
		writeError(w, "Failed to start generation.", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "Project not found.", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusAccepted, projectResponse{Project: p, State: a.orch.State(id)})
}

// ProjectDelete removes a project and its hosted files. Owned projects
// can only be deleted by their owner.
func (a *API) ProjectDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := a.repo.Get(r.Context(), id)
	if err != nil {
		slog.Error("project lookup failed", "id", id, "error", err)
		writeError(w, "Failed to delete project.", http.StatusInternalServerError)
		return
	}
	if p == nil {
		writeError(w, "Project not found.", http.StatusNotFound)
		return
	}
	if p.OwnerID != nil {
		owner := ownerID(r)
		if owner == nil || *owner != *p.OwnerID {
			writeError(w, "Project not found.", http.StatusNotFound)
			return
		}
	}

	deleted, err := a.repo.Delete(r.Context(), id)
	if err != nil {
		slog.Error("project delete failed", "id", id, "error", err)
		writeError(w, "Failed to delete project.", http.StatusInternalServerError)
		return
	}
	if !deleted {
		writeError(w, "Project not found.", http.StatusNotFound)
		return
	}
	// Drop lifecycle state so a render still in flight cannot resurrect
	// the record.
	a.orch.Forget(id)

	w.WriteHeader(http.StatusNoContent)
}

// HostingConfig returns the caller's publishing endpoint, creating it
// on first use. Returns 503 when hosting is unavailable.
func (a *API) HostingConfig(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == nil {
		writeError(w, "Authentication required.", http.StatusUnauthorized)
		return
	}

	cfg := a.gateway.EnsureConfig(r.Context(), *owner)
	if !cfg.Usable() {
		writeError(w, "Hosting is not available.", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"subdomain": cfg.Subdomain})
}
