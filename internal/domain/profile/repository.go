package profile

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract for profiles.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence operations for user profiles.
type Repository interface {
	// Create stores a new profile.
	// Returns shared.ErrProfileAlreadyExists if a profile for the user exists.
	Create(ctx context.Context, p *UserProfile) error

	// GetByUserID returns the profile for the given user.
	// Returns shared.ErrProfileNotFound if no profile exists.
	GetByUserID(ctx context.Context, userID shared.UserID) (*UserProfile, error)

	// Update persists profile changes using the entity's Version for
	// optimistic concurrency. Returns shared.ErrOptimisticLock if the
	// stored version no longer matches, shared.ErrProfileNotFound if the
	// profile is gone.
	Update(ctx context.Context, p *UserProfile) error

	// Exists checks whether a profile exists for the user.
	Exists(ctx context.Context, userID shared.UserID) (bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache defines read-side caching for profiles.
type Cache interface {
	// Get fetches a cached profile. Returns shared.ErrNotFound on a miss.
	Get(ctx context.Context, userID shared.UserID) (*UserProfile, error)

	// Set stores a profile in the cache.
	Set(ctx context.Context, p *UserProfile, ttl time.Duration) error

	// Invalidate removes the cached profile for the user.
	Invalidate(ctx context.Context, userID shared.UserID) error
}
