// Package profile contains the user profile aggregate: the ledger of a
// user's experience points, level, titles, streaks, and achievement count.
// This is the core of the progression business logic - no external dependencies.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// UserProfile is the per-user progression ledger. Exactly one exists per user.
type UserProfile struct {
	// UserID - external account identifier the profile is keyed by.
	UserID shared.UserID

	// DisplayName - name shown on dashboards (may be empty).
	DisplayName string

	// Level - current level, starts at 1.
	Level shared.Level

	// TotalXP - lifetime XP, monotonically non-decreasing.
	TotalXP shared.XP

	// CurrentXP - XP accumulated within the current level.
	CurrentXP shared.XP

	// XPToNextLevel - XP required to advance from the current level.
	XPToNextLevel int

	// Title - human-readable title derived from the level.
	Title string

	// CurrentStreak - consecutive days with recorded activity.
	CurrentStreak int

	// LongestStreak - best streak ever reached.
	LongestStreak int

	// LastActivityDate - date (UTC, midnight) of the last recorded activity.
	LastActivityDate time.Time

	// TotalTimeSpentMinutes - accumulated learning time.
	TotalTimeSpentMinutes int

	// AchievementsCount - number of achievements unlocked.
	AchievementsCount int

	// Version - optimistic concurrency token, bumped on every persisted update.
	Version int

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewProfile creates a fresh profile with level 1 defaults.
func NewProfile(userID shared.UserID, displayName string) (*UserProfile, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}

	displayName = strings.TrimSpace(displayName)
	if len(displayName) > 100 {
		return nil, shared.NewDomainError("profile", "Create", shared.ErrInvalidInput,
			"display name must be at most 100 chars")
	}

	now := time.Now().UTC()
	level := shared.MinLevel

	return &UserProfile{
		UserID:        userID,
		DisplayName:   displayName,
		Level:         level,
		TotalXP:       0,
		CurrentXP:     0,
		XPToNextLevel: level.XPToNext(),
		Title:         level.Title(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// XP & LEVELING
// ══════════════════════════════════════════════════════════════════════════════

// XPAward describes the outcome of a single XP grant.
type XPAward struct {
	// Amount - XP granted.
	Amount int

	// OldLevel - level before the grant.
	OldLevel shared.Level

	// NewLevel - level after the grant.
	NewLevel shared.Level

	// LeveledUp - true if at least one level boundary was crossed.
	LeveledUp bool
}

// AwardXP grants XP to the profile and advances levels while the
// accumulated current XP covers the requirement. A single large grant can
// cross several level boundaries. Leftover XP carries into the new level.
// The amount must be at least 1.
func (p *UserProfile) AwardXP(amount int) (XPAward, error) {
	if amount < 1 {
		return XPAward{}, shared.ErrInvalidXPAward
	}

	award := XPAward{Amount: amount, OldLevel: p.Level}

	p.TotalXP = p.TotalXP.Add(amount)
	p.CurrentXP = p.CurrentXP.Add(amount)

	for int(p.CurrentXP) >= p.XPToNextLevel {
		p.CurrentXP = shared.XP(int(p.CurrentXP) - p.XPToNextLevel)
		p.Level = p.Level.Next()
		p.XPToNextLevel = p.Level.XPToNext()
	}

	p.Title = p.Level.Title()
	p.UpdatedAt = time.Now().UTC()

	award.NewLevel = p.Level
	award.LeveledUp = award.NewLevel > award.OldLevel
	return award, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAKS
// ══════════════════════════════════════════════════════════════════════════════

// StreakChange describes how a recorded activity affected the streak.
type StreakChange int

const (
	// StreakUnchanged - activity on an already counted day.
	StreakUnchanged StreakChange = iota
	// StreakStarted - first ever activity, streak begins at 1.
	StreakStarted
	// StreakExtended - activity on the day after the last one.
	StreakExtended
	// StreakReset - one or more days were missed, streak restarts at 1.
	StreakReset
)

// RecordActivity updates the daily streak for activity at the given time.
// Same calendar day (UTC): no change. Next day: streak extends and may set a
// new longest streak. Any gap resets the streak to 1.
func (p *UserProfile) RecordActivity(at time.Time) StreakChange {
	day := timeutil.StartOfDay(at)

	if p.LastActivityDate.IsZero() {
		p.CurrentStreak = 1
		p.LongestStreak = 1
		p.LastActivityDate = day
		p.UpdatedAt = time.Now().UTC()
		return StreakStarted
	}

	daysDiff := int(day.Sub(timeutil.StartOfDay(p.LastActivityDate)).Hours() / 24)

	switch {
	case daysDiff == 0:
		return StreakUnchanged
	case daysDiff == 1:
		p.CurrentStreak++
		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		p.LastActivityDate = day
		p.UpdatedAt = time.Now().UTC()
		return StreakExtended
	default:
		p.CurrentStreak = 1
		p.LastActivityDate = day
		p.UpdatedAt = time.Now().UTC()
		return StreakReset
	}
}

// DaysSinceLastActivity returns full days since the last recorded activity.
func (p *UserProfile) DaysSinceLastActivity(now time.Time) int {
	if p.LastActivityDate.IsZero() {
		return 0
	}
	return timeutil.DaysBetween(p.LastActivityDate, now)
}

// ══════════════════════════════════════════════════════════════════════════════
// BOOKKEEPING
// ══════════════════════════════════════════════════════════════════════════════

// AddTimeSpent accumulates learning time in minutes.
func (p *UserProfile) AddTimeSpent(minutes int) error {
	if minutes < 0 {
		return shared.NewDomainError("profile", "AddTimeSpent", shared.ErrNegativeValue,
			"time spent cannot be negative")
	}
	p.TotalTimeSpentMinutes += minutes
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IncrementAchievements bumps the unlocked-achievement counter.
func (p *UserProfile) IncrementAchievements() {
	p.AchievementsCount++
	p.UpdatedAt = time.Now().UTC()
}

// TotalTimeSpentHours returns accumulated time in whole hours.
func (p *UserProfile) TotalTimeSpentHours() int {
	return p.TotalTimeSpentMinutes / 60
}

// String returns a compact representation for logging.
func (p *UserProfile) String() string {
	return fmt.Sprintf(
		"UserProfile{UserID: %s, Level: %d, TotalXP: %d, CurrentXP: %d/%d, Title: %q}",
		p.UserID, p.Level, p.TotalXP, p.CurrentXP, p.XPToNextLevel, p.Title,
	)
}

// Clone creates a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}

	clone := *p
	return &clone
}
