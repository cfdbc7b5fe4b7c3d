// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// kv.go provides a Valkey-backed JSON key-value layer. It is the fast
// path in front of Postgres for small per-user records such as hosting
// configs; a miss or a Valkey error falls through to the database, so
// every method degrades instead of returning errors.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/google/uuid"
)

// DefaultKVTTL is how long a KV entry stays cached. The database row
// outlives the cache entry, so expiry only costs a re-read.
const DefaultKVTTL = 24 * time.Hour

// KV manages JSON values in Valkey.
type KV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKV creates a key-value layer backed by the given Valkey client.
func NewKV(client *redis.Client, ttl time.Duration) *KV {
	if ttl == 0 {
		ttl = DefaultKVTTL
	}
	return &KV{client: client, ttl: ttl}
}

// Get reads and unmarshals the value at key into dest. Returns false on
// miss, decode failure, or any Valkey error.
func (kv *KV) Get(ctx context.Context, key string, dest any) bool {
	raw, err := kv.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		slog.Warn("kv get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("kv decode error", "key", key, "error", err)
		return false
	}
	return true
}

// Set marshals and stores a value with the configured TTL.
func (kv *KV) Set(ctx context.Context, key string, val any) {
	raw, err := json.Marshal(val)
	if err != nil {
		slog.Warn("kv encode error", "key", key, "error", err)
		return
	}
	if err := kv.client.Set(ctx, key, raw, kv.ttl).Err(); err != nil {
		slog.Warn("kv set error", "key", key, "error", err)
	}
}

// Delete removes a single key.
func (kv *KV) Delete(ctx context.Context, key string) {
	if err := kv.client.Del(ctx, key).Err(); err != nil {
		slog.Warn("kv delete error", "key", key, "error", err)
	}
}

// HostingConfigKey returns the KV key for a user's hosting config.
func HostingConfigKey(ownerID uuid.UUID) string {
	return "hosting:config:" + ownerID.String()
}
