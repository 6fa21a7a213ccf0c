package query

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Returns the achievement catalog with the user's unlock state overlaid,
// or just the unlocked subset when requested.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery contains parameters for the achievements lookup.
type GetAchievementsQuery struct {
	// UserID - the user whose unlock state is overlaid.
	UserID string

	// UnlockedOnly - return only achievements the user holds.
	UnlockedOnly bool
}

// Validate checks the query parameters.
func (q GetAchievementsQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// AchievementDTO is the read model for one achievement.
type AchievementDTO struct {
	// ID - catalog identifier.
	ID int64 `json:"id"`

	// Title - display title.
	Title string `json:"title"`

	// Description - how to earn it.
	Description string `json:"description,omitempty"`

	// IconName - icon reference.
	IconName string `json:"icon_name,omitempty"`

	// Criteria - the unlock condition, as "kind:threshold".
	Criteria string `json:"criteria"`

	// XPReward - XP granted on unlock.
	XPReward int `json:"xp_reward"`

	// Rarity - common, rare, epic, or legendary.
	Rarity string `json:"rarity"`

	// Unlocked - true if the user holds this achievement.
	Unlocked bool `json:"unlocked"`

	// UnlockedAt - when the user earned it.
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// GetAchievementsResult contains the query result.
type GetAchievementsResult struct {
	// Achievements - catalog entries with the unlock overlay.
	Achievements []AchievementDTO `json:"achievements"`

	// UnlockedCount - how many the user holds.
	UnlockedCount int `json:"unlocked_count"`

	// TotalCount - catalog size.
	TotalCount int `json:"total_count"`
}

// GetAchievementsHandler handles achievement lookups.
type GetAchievementsHandler struct {
	achievementRepo achievement.Repository
	userAchRepo     achievement.UserRepository
}

// NewGetAchievementsHandler creates a new handler.
func NewGetAchievementsHandler(
	achievementRepo achievement.Repository,
	userAchRepo achievement.UserRepository,
) *GetAchievementsHandler {
	return &GetAchievementsHandler{
		achievementRepo: achievementRepo,
		userAchRepo:     userAchRepo,
	}
}

// Handle executes the query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, query GetAchievementsQuery) (*GetAchievementsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAchievements", shared.ErrValidation, err.Error(), err)
	}

	userID := shared.UserID(query.UserID)

	catalog, err := h.achievementRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	unlocked, err := h.userAchRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[int64]time.Time, len(unlocked))
	for _, ua := range unlocked {
		unlockedAt[ua.AchievementID.Int64()] = ua.UnlockedAt
	}

	result := &GetAchievementsResult{
		Achievements:  make([]AchievementDTO, 0, len(catalog)),
		UnlockedCount: len(unlocked),
		TotalCount:    len(catalog),
	}

	for _, entry := range catalog {
		at, has := unlockedAt[entry.ID.Int64()]
		if query.UnlockedOnly && !has {
			continue
		}

		dto := AchievementDTO{
			ID:          entry.ID.Int64(),
			Title:       entry.Title,
			Description: entry.Description,
			IconName:    entry.IconName,
			Criteria:    entry.Criteria.String(),
			XPReward:    entry.EffectiveXPReward(),
			Rarity:      string(entry.Rarity),
			Unlocked:    has,
		}
		if has {
			t := at
			dto.UnlockedAt = &t
		}

		result.Achievements = append(result.Achievements, dto)
	}

	return result, nil
}
