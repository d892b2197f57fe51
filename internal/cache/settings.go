// Package cache provides an advisory, short-TTL Redis cache for
// per-company settings reads, which sit on the hot path of every check-in,
// heartbeat, and auto-checkout decision.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/attendly/attendance-core/internal/directory"
)

// settingsTTL caps how stale a cached CompanySettings row may be allowed to
// get; write paths are expected to invalidate on update rather than relying
// on the TTL alone.
const settingsTTL = 1 * time.Minute

// SettingsCache wraps directory.SettingsRepository with a Redis-backed
// read-through cache. A cache miss or Redis outage falls back to the
// database transparently — the cache is advisory, never authoritative.
type SettingsCache struct {
	redis *redis.Client
	repo  *directory.SettingsRepository
}

// NewSettingsCache creates a settings cache in front of the given repository.
func NewSettingsCache(client *redis.Client, repo *directory.SettingsRepository) *SettingsCache {
	return &SettingsCache{redis: client, repo: repo}
}

func settingsKey(companyID string) string {
	return fmt.Sprintf("attendance:settings:%s", companyID)
}

// Get returns the caller's company settings, serving from Redis when fresh
// and falling back to the database (then repopulating the cache) otherwise.
func (c *SettingsCache) Get(ctx context.Context, companyID string) (*directory.CompanySettings, error) {
	if cached, ok := c.readCache(ctx, companyID); ok {
		return cached, nil
	}

	settings, err := c.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	c.writeCache(ctx, companyID, settings)
	return settings, nil
}

// Invalidate drops the cached entry for a company, called by any write path
// that updates CompanySettings so readers never observe stale tunables
// beyond the current in-flight request.
func (c *SettingsCache) Invalidate(ctx context.Context, companyID string) {
	c.redis.Del(ctx, settingsKey(companyID))
}

func (c *SettingsCache) readCache(ctx context.Context, companyID string) (*directory.CompanySettings, bool) {
	raw, err := c.redis.Get(ctx, settingsKey(companyID)).Bytes()
	if err != nil {
		return nil, false
	}
	var settings directory.CompanySettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false
	}
	return &settings, true
}

func (c *SettingsCache) writeCache(ctx context.Context, companyID string, settings *directory.CompanySettings) {
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	c.redis.Set(ctx, settingsKey(companyID), raw, settingsTTL)
}
