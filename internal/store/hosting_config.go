// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"planora/internal/models"
)

// HostingConfigStore persists the per-user publishing endpoint. One row
// per owner; concurrent creation resolves as last write wins.
type HostingConfigStore struct {
	db *sql.DB
}

// NewHostingConfigStore creates a new HostingConfigStore.
func NewHostingConfigStore(db *sql.DB) *HostingConfigStore {
	return &HostingConfigStore{db: db}
}

// Find retrieves the hosting config for an owner. Returns nil if the
// user has no publishing endpoint yet.
func (s *HostingConfigStore) Find(ownerID uuid.UUID) (*models.HostingConfig, error) {
	var cfg models.HostingConfig
	err := s.db.QueryRow(`
		SELECT owner_id, subdomain, created_at
		FROM hosting_configs WHERE owner_id = $1
	`, ownerID).Scan(&cfg.OwnerID, &cfg.Subdomain, &cfg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find hosting config: %w", err)
	}
	return &cfg, nil
}

// Save upserts the hosting config for an owner.
func (s *HostingConfigStore) Save(cfg *models.HostingConfig) (*models.HostingConfig, error) {
	err := s.db.QueryRow(`
		INSERT INTO hosting_configs (owner_id, subdomain)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET subdomain = EXCLUDED.subdomain
		RETURNING owner_id, subdomain, created_at
	`, cfg.OwnerID, cfg.Subdomain).Scan(&cfg.OwnerID, &cfg.Subdomain, &cfg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save hosting config: %w", err)
	}
	return cfg, nil
}
