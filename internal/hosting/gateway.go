// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hosting materializes project assets onto each user's
// publishing endpoint. Every operation degrades gracefully: when the
// file host is down or unconfigured, callers keep the original asset
// references and the pipeline continues without durable copies.
package hosting

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"planora/internal/assets"
	"planora/internal/cache"
	"planora/internal/models"
	"planora/internal/slug"
)

// AssetRole names the slot an asset fills within a project.
type AssetRole string

const (
	RoleSource   AssetRole = "source"
	RoleRendered AssetRole = "rendered"
)

// subdomainPrefix is the leading label of generated publishing
// subdomains.
const subdomainPrefix = "planora"

// mkdirRetryDelay is the pause before the single mkdir retry.
const mkdirRetryDelay = 500 * time.Millisecond

// FileHost is the capability the gateway needs from object storage.
// *storage.Client satisfies it.
type FileHost interface {
	CreateEndpoint(ctx context.Context, subdomain string) error
	Mkdir(ctx context.Context, subdomain, dir string) error
	Write(ctx context.Context, subdomain, path, contentType string, data []byte) (string, error)
	RemoveAll(ctx context.Context, subdomain, dir string) error
	URL(subdomain, path string) string
	Owns(rawURL string) bool
}

// ConfigStore is the durable record of each user's publishing endpoint.
// *store.HostingConfigStore satisfies it.
type ConfigStore interface {
	Find(ownerID uuid.UUID) (*models.HostingConfig, error)
	Save(cfg *models.HostingConfig) (*models.HostingConfig, error)
}

// KV is the fast-path cache in front of ConfigStore. *cache.KV
// satisfies it.
type KV interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, val any)
}

// Gateway resolves per-user publishing endpoints and copies assets
// onto them.
type Gateway struct {
	host    FileHost
	configs ConfigStore
	kv      KV
	res     *assets.Resolver

	group singleflight.Group
}

// NewGateway creates a Gateway. host may be nil when storage is
// unconfigured; kv may be nil when Valkey is unavailable. A nil
// resolver gets a default.
func NewGateway(host FileHost, configs ConfigStore, kv KV, res *assets.Resolver) *Gateway {
	if res == nil {
		res = assets.NewResolver(nil)
	}
	return &Gateway{host: host, configs: configs, kv: kv, res: res}
}

// Enabled reports whether a file host is configured at all.
func (g *Gateway) Enabled() bool {
	return g.host != nil
}

// EnsureConfig returns the user's publishing endpoint, creating one on
// first use. Concurrent calls for the same user collapse into a single
// creation. Returns nil when hosting is unavailable; the caller treats
// that as "no durable hosting" rather than an error.
func (g *Gateway) EnsureConfig(ctx context.Context, ownerID uuid.UUID) *models.HostingConfig {
	if g.host == nil {
		return nil
	}

	v, err, _ := g.group.Do(ownerID.String(), func() (any, error) {
		return g.ensureConfig(ctx, ownerID), nil
	})
	if err != nil || v == nil {
		return nil
	}
	return v.(*models.HostingConfig)
}

// Config returns the user's publishing endpoint without creating one.
// Returns nil when none exists or hosting is unavailable.
func (g *Gateway) Config(ctx context.Context, ownerID uuid.UUID) *models.HostingConfig {
	if g.host == nil {
		return nil
	}
	key := cache.HostingConfigKey(ownerID)

	if g.kv != nil {
		var cached models.HostingConfig
		if g.kv.Get(ctx, key, &cached) && cached.Usable() {
			return &cached
		}
	}

	existing, err := g.configs.Find(ownerID)
	if err != nil {
		slog.Warn("hosting config lookup failed", "owner", ownerID, "error", err)
		return nil
	}
	if existing != nil && g.kv != nil {
		g.kv.Set(ctx, key, existing)
	}
	return existing
}

func (g *Gateway) ensureConfig(ctx context.Context, ownerID uuid.UUID) *models.HostingConfig {
	if existing := g.Config(ctx, ownerID); existing != nil {
		return existing
	}

	// First use: provision a fresh endpoint, then persist the record.
	subdomain := slug.Subdomain(subdomainPrefix)
	if err := g.host.CreateEndpoint(ctx, subdomain); err != nil {
		slog.Warn("hosting endpoint creation failed", "owner", ownerID, "subdomain", subdomain, "error", err)
		return nil
	}

	cfg, err := g.configs.Save(&models.HostingConfig{OwnerID: ownerID, Subdomain: subdomain})
	if err != nil {
		slog.Warn("hosting config save failed", "owner", ownerID, "subdomain", subdomain, "error", err)
		return nil
	}
	if g.kv != nil {
		g.kv.Set(ctx, cache.HostingConfigKey(ownerID), cfg)
	}

	slog.Info("hosting endpoint created", "owner", ownerID, "subdomain", subdomain)
	return cfg
}

// Store copies one project asset onto the publishing endpoint and
// returns its hosted URL. A reference that is already hosted is
// returned as-is, so assets are uploaded at most once no matter how
// often a project is re-saved. On any failure it returns ("", false)
// and the caller keeps the original reference.
func (g *Gateway) Store(ctx context.Context, cfg *models.HostingConfig, projectID string, role AssetRole, ref string) (string, bool) {
	if g.host == nil || !cfg.Usable() || ref == "" {
		return "", false
	}

	if g.host.Owns(ref) {
		return ref, true
	}

	asset, err := g.res.Resolve(ctx, ref)
	if err != nil {
		slog.Warn("asset resolve failed", "project", projectID, "role", role, "error", err)
		return "", false
	}

	// Rendered output is normalized to PNG so every project exposes a
	// stable rendered.png path.
	if role == RoleRendered {
		if err := asset.ToPNG(); err != nil {
			slog.Warn("asset png normalize failed", "project", projectID, "error", err)
			return "", false
		}
	}

	dir := "projects/" + projectID
	if err := g.mkdirWithRetry(ctx, cfg.Subdomain, dir); err != nil {
		slog.Warn("asset dir creation failed", "project", projectID, "dir", dir, "error", err)
		return "", false
	}

	path := dir + "/" + string(role) + "." + assets.Extension(asset.ContentType, ref)
	url, err := g.host.Write(ctx, cfg.Subdomain, path, asset.ContentType, asset.Data)
	if err != nil {
		slog.Warn("asset write failed", "project", projectID, "path", path, "error", err)
		return "", false
	}
	return url, true
}

// mkdirWithRetry retries the directory creation once after a short
// pause. Transient races on freshly created endpoints usually clear by
// the second attempt.
func (g *Gateway) mkdirWithRetry(ctx context.Context, subdomain, dir string) error {
	b := retry.WithMaxRetries(1, retry.NewConstant(mkdirRetryDelay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := g.host.Mkdir(ctx, subdomain, dir); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// Remove deletes a project's directory from the publishing endpoint.
// Best effort; a failure only leaves orphaned files behind.
func (g *Gateway) Remove(ctx context.Context, cfg *models.HostingConfig, projectID string) {
	if g.host == nil || !cfg.Usable() {
		return
	}
	if err := g.host.RemoveAll(ctx, cfg.Subdomain, "projects/"+projectID); err != nil {
		slog.Warn("project files removal failed", "project", projectID, "error", err)
	}
}
