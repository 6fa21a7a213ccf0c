package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK ACHIEVEMENT COMMAND
// Grants a specific achievement to a user: creates the unlock record, awards
// the achievement's XP through the profile ledger, and bumps the unlocked
// counter. Unlocking an achievement the user already holds is a conflict.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockAchievementCommand contains the data to unlock an achievement.
type UnlockAchievementCommand struct {
	// UserID is the external account identifier.
	UserID string

	// AchievementID identifies the catalog entry to unlock.
	AchievementID int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UnlockAchievementCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("unlock_achievement: user_id is required")
	}
	if c.AchievementID <= 0 {
		return errors.New("unlock_achievement: achievement_id must be positive")
	}
	return nil
}

// UnlockAchievementResult contains the result of the unlock.
type UnlockAchievementResult struct {
	// UserAchievement is the created unlock record.
	UserAchievement *achievement.UserAchievement

	// Achievement is the unlocked catalog entry.
	Achievement *achievement.Achievement

	// XPAwarded is the XP granted for the unlock.
	XPAwarded int

	// LeveledUp is true if the grant crossed a level boundary.
	LeveledUp bool

	// Profile is the updated profile.
	Profile *profile.UserProfile

	// UnlockedAt is when the unlock was recorded.
	UnlockedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UnlockAchievementHandler handles the UnlockAchievementCommand.
type UnlockAchievementHandler struct {
	achievementRepo achievement.Repository
	userAchRepo     achievement.UserRepository
	profileRepo     profile.Repository
	eventPublisher  shared.EventPublisher
}

// NewUnlockAchievementHandler creates a new UnlockAchievementHandler.
func NewUnlockAchievementHandler(
	achievementRepo achievement.Repository,
	userAchRepo achievement.UserRepository,
	profileRepo profile.Repository,
	eventPublisher shared.EventPublisher,
) *UnlockAchievementHandler {
	return &UnlockAchievementHandler{
		achievementRepo: achievementRepo,
		userAchRepo:     userAchRepo,
		profileRepo:     profileRepo,
		eventPublisher:  eventPublisher,
	}
}

// Handle executes the unlock achievement command.
func (h *UnlockAchievementHandler) Handle(ctx context.Context, cmd UnlockAchievementCommand) (*UnlockAchievementResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("unlock_achievement: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}
	achievementID := shared.AchievementID(cmd.AchievementID)

	ach, err := h.achievementRepo.GetByID(ctx, achievementID)
	if err != nil {
		return nil, fmt.Errorf("unlock_achievement: failed to get achievement: %w", err)
	}

	// The profile must exist before the unlock record is written, so a
	// typo'd user cannot accumulate orphaned unlocks.
	if _, err := h.profileRepo.GetByUserID(ctx, userID); err != nil {
		return nil, fmt.Errorf("unlock_achievement: failed to get profile: %w", err)
	}

	ua, err := achievement.NewUserAchievement(userID, achievementID)
	if err != nil {
		return nil, err
	}

	if err := h.userAchRepo.Create(ctx, ua); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, shared.ErrAlreadyUnlocked
		}
		return nil, fmt.Errorf("unlock_achievement: failed to store unlock: %w", err)
	}

	result := &UnlockAchievementResult{
		UserAchievement: ua,
		Achievement:     ach,
		XPAwarded:       ach.EffectiveXPReward(),
		UnlockedAt:      ua.UnlockedAt,
	}

	// Award the achievement's XP and bump the counter. Reload-and-store
	// with retry: concurrent writers bump the profile version, so a stale
	// snapshot surfaces as an optimistic-lock error.
	err = retry.OptimisticLockRetrier().Do(ctx, func(ctx context.Context) error {
		p, err := h.profileRepo.GetByUserID(ctx, userID)
		if err != nil {
			return retry.Permanent(err)
		}

		award, err := p.AwardXP(result.XPAwarded)
		if err != nil {
			return retry.Permanent(err)
		}
		p.IncrementAchievements()

		if err := h.profileRepo.Update(ctx, p); err != nil {
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return err
		}

		result.Profile = p
		result.LeveledUp = award.LeveledUp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unlock_achievement: failed to award XP: %w", err)
	}

	h.publishEvent(cmd, result)
	return result, nil
}

// publishEvent emits the achievement-unlocked event.
func (h *UnlockAchievementHandler) publishEvent(cmd UnlockAchievementCommand, result *UnlockAchievementResult) {
	if h.eventPublisher == nil {
		return
	}

	event := shared.NewAchievementUnlockedEvent(
		result.Profile.UserID.String(),
		result.Achievement.ID.Int64(),
		result.Achievement.Title,
		string(result.Achievement.Rarity),
		result.XPAwarded,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)
}
