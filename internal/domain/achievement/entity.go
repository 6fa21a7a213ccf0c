// Package achievement contains the achievement catalog and the evaluator
// that decides which achievements a user's progression stats unlock.
package achievement

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Rarity classifies how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid checks that the rarity is one of the known values.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// CriteriaKind names the progression stat a criteria thresholds on.
type CriteriaKind string

const (
	// CriteriaNodesCompleted - total completed nodes across all trees.
	CriteriaNodesCompleted CriteriaKind = "nodes_completed"
	// CriteriaTreesCompleted - fully completed trees.
	CriteriaTreesCompleted CriteriaKind = "trees_completed"
	// CriteriaLevelReached - profile level.
	CriteriaLevelReached CriteriaKind = "level_reached"
	// CriteriaTotalXP - lifetime XP.
	CriteriaTotalXP CriteriaKind = "total_xp"
	// CriteriaStreakDays - current daily streak length.
	CriteriaStreakDays CriteriaKind = "streak_days"
)

// IsValid checks that the kind is one of the known values.
func (k CriteriaKind) IsValid() bool {
	switch k {
	case CriteriaNodesCompleted, CriteriaTreesCompleted, CriteriaLevelReached,
		CriteriaTotalXP, CriteriaStreakDays:
		return true
	default:
		return false
	}
}

// Criteria is a single threshold over one progression stat. Stored in the
// catalog as "kind:threshold", e.g. "level_reached:5".
type Criteria struct {
	Kind      CriteriaKind
	Threshold int
}

// String returns the storage form.
func (c Criteria) String() string {
	return fmt.Sprintf("%s:%d", c.Kind, c.Threshold)
}

// ParseCriteria parses the "kind:threshold" storage form.
func ParseCriteria(raw string) (Criteria, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return Criteria{}, shared.WrapError("achievement", "ParseCriteria", shared.ErrInvalidInput,
			"criteria must be kind:threshold", fmt.Errorf("got %q", raw))
	}

	kind := CriteriaKind(parts[0])
	if !kind.IsValid() {
		return Criteria{}, shared.WrapError("achievement", "ParseCriteria", shared.ErrInvalidInput,
			"unknown criteria kind", fmt.Errorf("got %q", parts[0]))
	}

	threshold, err := strconv.Atoi(parts[1])
	if err != nil || threshold < 0 {
		return Criteria{}, shared.WrapError("achievement", "ParseCriteria", shared.ErrInvalidInput,
			"criteria threshold must be a non-negative integer", err)
	}

	return Criteria{Kind: kind, Threshold: threshold}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// DefaultXPReward is granted for achievements without an explicit reward.
const DefaultXPReward = 50

// Achievement is a catalog entry describing an earnable badge.
type Achievement struct {
	// ID - catalog identifier.
	ID shared.AchievementID

	// Title - display title.
	Title string

	// Description - what the achievement rewards.
	Description string

	// IconName - client-side icon reference.
	IconName string

	// Criteria - unlock condition, stored as "kind:threshold".
	Criteria Criteria

	// XPReward - XP granted on unlock.
	XPReward int

	// Rarity - how hard the achievement is to earn.
	Rarity Rarity

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// EffectiveXPReward returns the reward, falling back to the default when no
// positive reward is configured.
func (a *Achievement) EffectiveXPReward() int {
	if a.XPReward <= 0 {
		return DefaultXPReward
	}
	return a.XPReward
}

// UserAchievement links a user to an unlocked achievement. At most one
// exists per (user, achievement) pair; unlocks are permanent.
type UserAchievement struct {
	// ID - storage identifier.
	ID int64

	// UserID - the user who unlocked it.
	UserID shared.UserID

	// AchievementID - the unlocked achievement.
	AchievementID shared.AchievementID

	// UnlockedAt - when it was unlocked.
	UnlockedAt time.Time
}

// NewUserAchievement creates an unlock record.
func NewUserAchievement(userID shared.UserID, achievementID shared.AchievementID) (*UserAchievement, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !achievementID.IsValid() {
		return nil, shared.NewDomainError("achievement", "Unlock", shared.ErrInvalidID, "invalid achievement ID")
	}

	return &UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    time.Now().UTC(),
	}, nil
}
