// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package projects is the persistence facade for the generation
// pipeline. Saving a project first tries to materialize its assets onto
// the owner's publishing endpoint; if hosting is down the original
// references are stored unchanged, so a save never fails because of
// hosting. The database write itself is the only hard failure point.
package projects

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"planora/internal/hosting"
	"planora/internal/models"
)

// Store is the database capability the repository needs.
// *store.ProjectStore satisfies it.
type Store interface {
	Upsert(p *models.Project) (*models.Project, error)
	FindByID(id string) (*models.Project, error)
	ListByOwner(ownerID uuid.UUID) ([]models.Project, error)
	Delete(id string) (bool, error)
}

// Repository persists projects with best-effort asset hosting.
type Repository struct {
	store   Store
	gateway *hosting.Gateway
}

// NewRepository creates a Repository. gateway may be nil when hosting
// is disabled entirely.
func NewRepository(store Store, gateway *hosting.Gateway) *Repository {
	return &Repository{store: store, gateway: gateway}
}

// Save writes a project, hosting its assets first when possible. The
// returned project carries hosted URLs when uploads succeeded and the
// original references when they did not. Saving an existing id
// overwrites the prior record.
func (r *Repository) Save(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.Name == "" {
		p.Name = models.DefaultName(p.ID)
	}

	r.materialize(ctx, p)

	return r.store.Upsert(p)
}

// materialize copies the project's assets onto the owner's publishing
// endpoint, in place. Missing owner, missing endpoint, or upload
// failures leave the references untouched.
func (r *Repository) materialize(ctx context.Context, p *models.Project) {
	if r.gateway == nil || p.OwnerID == nil {
		return
	}

	cfg := r.gateway.EnsureConfig(ctx, *p.OwnerID)
	if !cfg.Usable() {
		return
	}

	if url, ok := r.gateway.Store(ctx, cfg, p.ID, hosting.RoleSource, p.SourceImage); ok {
		p.SourceImage = url
	} else {
		slog.Warn("project source not hosted, keeping original reference", "project", p.ID)
	}

	if p.RenderedImage == "" {
		return
	}
	url, ok := r.gateway.Store(ctx, cfg, p.ID, hosting.RoleRendered, p.RenderedImage)
	if !ok {
		slog.Warn("project rendering not hosted, keeping original reference", "project", p.ID)
		return
	}
	if url != p.RenderedImage {
		// Fresh upload: renders are normalized to PNG at a fixed path.
		p.RenderedPath = "projects/" + p.ID + "/rendered.png"
	}
	p.RenderedImage = url
}

// Get retrieves a single project. Returns nil if not found.
func (r *Repository) Get(ctx context.Context, id string) (*models.Project, error) {
	return r.store.FindByID(id)
}

// ListByOwner returns one user's projects, most recently written first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	return r.store.ListByOwner(ownerID)
}

// Delete removes a project and, best effort, its hosted files. Returns
// whether a record existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	p, err := r.store.FindByID(id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	deleted, err := r.store.Delete(id)
	if err != nil {
		return false, err
	}

	if deleted && r.gateway != nil && p.OwnerID != nil {
		if cfg := r.gateway.Config(ctx, *p.OwnerID); cfg.Usable() {
			r.gateway.Remove(ctx, cfg, id)
		}
	}
	return deleted, nil
}
