package redis

import (
	"context"
	"errors"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ProfileCache implements profile.Cache on top of the generic Redis Cache.
// Profiles are cached as JSON and invalidated by the event handlers whenever
// a completion or XP award mutates them.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{
		cache: cache,
	}
}

// Get fetches a cached profile. Returns shared.ErrNotFound on a miss.
func (c *ProfileCache) Get(ctx context.Context, userID shared.UserID) (*profile.UserProfile, error) {
	var p profile.UserProfile
	key := ProfileKey(userID.String())
	if err := c.cache.Get(ctx, key, &p); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Set stores a profile in the cache.
func (c *ProfileCache) Set(ctx context.Context, p *profile.UserProfile, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	key := ProfileKey(p.UserID.String())
	return c.cache.Set(ctx, key, p, ttl)
}

// Invalidate removes the cached profile for the user.
func (c *ProfileCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	return c.cache.Delete(ctx, ProfileKey(userID.String()))
}

// InvalidateAll clears every cached profile.
func (c *ProfileCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixProfile+"*")
}
