package achievement

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines read operations over the achievement catalog.
type Repository interface {
	// GetByID returns an achievement by ID.
	// Returns shared.ErrAchievementNotFound if no such achievement exists.
	GetByID(ctx context.Context, id shared.AchievementID) (*Achievement, error)

	// GetAll returns the whole catalog.
	GetAll(ctx context.Context) ([]*Achievement, error)
}

// UserRepository defines persistence operations for unlocked achievements.
type UserRepository interface {
	// Create stores an unlock record.
	// Returns shared.ErrAlreadyUnlocked if the (user, achievement) pair exists.
	Create(ctx context.Context, ua *UserAchievement) error

	// GetByUser returns all of a user's unlocks, newest first.
	GetByUser(ctx context.Context, userID shared.UserID) ([]*UserAchievement, error)

	// GetRecentByUser returns the user's most recent unlocks, newest first.
	GetRecentByUser(ctx context.Context, userID shared.UserID, limit int) ([]*UserAchievement, error)

	// Has checks whether the user holds the achievement.
	Has(ctx context.Context, userID shared.UserID, achievementID shared.AchievementID) (bool, error)
}
