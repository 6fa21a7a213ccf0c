package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// AWARD XP COMMAND
// Grants XP to a user's profile. A single grant can cross several level
// boundaries; leftover XP carries into the new level. Concurrent grants to
// the same profile are resolved via optimistic locking with bounded retries.
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPCommand contains the data to award XP.
type AwardXPCommand struct {
	// UserID is the external account identifier.
	UserID string

	// Amount is the XP to grant. Must be at least 1.
	Amount int

	// Source describes where the XP came from, e.g. "node_completion".
	Source string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AwardXPCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("award_xp: user_id is required")
	}
	if c.Amount < 1 {
		return shared.ErrInvalidXPAward
	}
	return nil
}

// AwardXPResult contains the result of awarding XP.
type AwardXPResult struct {
	// Profile is the updated profile.
	Profile *profile.UserProfile

	// Award describes the level movement caused by the grant.
	Award profile.XPAward

	// AwardedAt is when the XP was granted.
	AwardedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AwardXPHandler handles the AwardXPCommand.
type AwardXPHandler struct {
	profileRepo    profile.Repository
	eventPublisher shared.EventPublisher
	retrier        *retry.Retrier
}

// NewAwardXPHandler creates a new AwardXPHandler.
func NewAwardXPHandler(
	profileRepo profile.Repository,
	eventPublisher shared.EventPublisher,
) *AwardXPHandler {
	return &AwardXPHandler{
		profileRepo:    profileRepo,
		eventPublisher: eventPublisher,
		retrier:        retry.OptimisticLockRetrier(),
	}
}

// Handle executes the award XP command.
func (h *AwardXPHandler) Handle(ctx context.Context, cmd AwardXPCommand) (*AwardXPResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("award_xp: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	result, err := retry.DoWithData(ctx, func(ctx context.Context) (*AwardXPResult, error) {
		return h.awardOnce(ctx, userID, cmd.Amount)
	}, retry.WithRetryIf(shared.IsRetryable), retry.WithMaxAttempts(4), retry.WithInitialDelay(20*time.Millisecond))
	if err != nil {
		return nil, err
	}

	h.publishEvents(cmd, result)
	return result, nil
}

// awardOnce performs one load-mutate-store round. A stale version surfaces
// as shared.ErrOptimisticLock, which the retrier picks up.
func (h *AwardXPHandler) awardOnce(ctx context.Context, userID shared.UserID, amount int) (*AwardXPResult, error) {
	p, err := h.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("award_xp: failed to get profile: %w", err)
	}

	award, err := p.AwardXP(amount)
	if err != nil {
		return nil, err
	}

	if err := h.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("award_xp: failed to update profile: %w", err)
	}

	return &AwardXPResult{
		Profile:   p,
		Award:     award,
		AwardedAt: time.Now().UTC(),
	}, nil
}

// publishEvents emits XP-gained and level-up events for the grant.
func (h *AwardXPHandler) publishEvents(cmd AwardXPCommand, result *AwardXPResult) {
	if h.eventPublisher == nil {
		return
	}

	xpEvent := shared.NewXPGainedEvent(
		result.Profile.UserID.String(),
		cmd.Amount,
		result.Profile.TotalXP.Int(),
		cmd.Source,
	)
	if cmd.CorrelationID != "" {
		xpEvent.BaseEvent = xpEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(xpEvent)

	if result.Award.LeveledUp {
		levelEvent := shared.NewLevelUpEvent(
			result.Profile.UserID.String(),
			result.Award.OldLevel.Int(),
			result.Award.NewLevel.Int(),
			result.Profile.Title,
		)
		if cmd.CorrelationID != "" {
			levelEvent.BaseEvent = levelEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(levelEvent)
	}
}
