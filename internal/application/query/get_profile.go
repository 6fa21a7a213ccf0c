// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Returns the user's progression ledger: level, XP, title, streaks.
// Read path is cache-aside: Redis first, Postgres on a miss.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultProfileCacheTTL bounds how stale a cached profile can get.
const DefaultProfileCacheTTL = 5 * time.Minute

// GetProfileQuery contains parameters for the profile lookup.
type GetProfileQuery struct {
	// UserID - the user whose profile is requested.
	UserID string
}

// Validate checks the query parameters.
func (q GetProfileQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// ProfileDTO is the read model for a user profile.
type ProfileDTO struct {
	// UserID - external account identifier.
	UserID string `json:"user_id"`

	// DisplayName - name shown on dashboards.
	DisplayName string `json:"display_name,omitempty"`

	// Level - current level.
	Level int `json:"level"`

	// TotalXP - lifetime XP.
	TotalXP int `json:"total_xp"`

	// CurrentXP - XP within the current level.
	CurrentXP int `json:"current_xp"`

	// XPToNextLevel - XP required to advance.
	XPToNextLevel int `json:"xp_to_next_level"`

	// Title - level-derived title.
	Title string `json:"title"`

	// CurrentStreak - consecutive active days.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - best streak ever.
	LongestStreak int `json:"longest_streak"`

	// TotalTimeSpentMinutes - accumulated learning time.
	TotalTimeSpentMinutes int `json:"total_time_spent_minutes"`

	// AchievementsCount - unlocked achievements.
	AchievementsCount int `json:"achievements_count"`

	// CreatedAt - when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}

// GetProfileResult contains the query result.
type GetProfileResult struct {
	// Profile - the read model.
	Profile ProfileDTO `json:"profile"`

	// FromCache - true when served from the cache.
	FromCache bool `json:"-"`
}

// GetProfileHandler handles profile lookups.
type GetProfileHandler struct {
	profileRepo profile.Repository
	cache       profile.Cache
	cacheTTL    time.Duration
}

// NewGetProfileHandler creates a new handler. Cache may be nil.
func NewGetProfileHandler(profileRepo profile.Repository, cache profile.Cache, cacheTTL time.Duration) *GetProfileHandler {
	if cacheTTL <= 0 {
		cacheTTL = DefaultProfileCacheTTL
	}
	return &GetProfileHandler{
		profileRepo: profileRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// Handle executes the query.
func (h *GetProfileHandler) Handle(ctx context.Context, query GetProfileQuery) (*GetProfileResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetProfile", shared.ErrValidation, err.Error(), err)
	}

	userID := shared.UserID(query.UserID)

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, userID); err == nil {
			return &GetProfileResult{Profile: NewProfileDTO(cached), FromCache: true}, nil
		}
	}

	p, err := h.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		// A failed cache write only costs the next reader a DB roundtrip.
		_ = h.cache.Set(ctx, p, h.cacheTTL)
	}

	return &GetProfileResult{Profile: NewProfileDTO(p)}, nil
}

// NewProfileDTO maps the aggregate to its read model.
func NewProfileDTO(p *profile.UserProfile) ProfileDTO {
	return ProfileDTO{
		UserID:                p.UserID.String(),
		DisplayName:           p.DisplayName,
		Level:                 p.Level.Int(),
		TotalXP:               p.TotalXP.Int(),
		CurrentXP:             p.CurrentXP.Int(),
		XPToNextLevel:         p.XPToNextLevel,
		Title:                 p.Title,
		CurrentStreak:         p.CurrentStreak,
		LongestStreak:         p.LongestStreak,
		TotalTimeSpentMinutes: p.TotalTimeSpentMinutes,
		AchievementsCount:     p.AchievementsCount,
		CreatedAt:             p.CreatedAt,
	}
}
