// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// HostingConfig is the per-user publishing endpoint, created lazily the
// first time an asset needs hosting. Absence of a usable config degrades
// asset storage to "keep the inline reference"; it never fails the
// enclosing operation.
type HostingConfig struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Subdomain string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the config can address hosted files.
func (h *HostingConfig) Usable() bool {
	return h != nil && h.Subdomain != ""
}
