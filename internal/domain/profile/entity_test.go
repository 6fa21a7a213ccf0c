package profile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

func newTestProfile(t *testing.T) *UserProfile {
	t.Helper()
	p, err := NewProfile("u-1042", "Alice")
	require.NoError(t, err)
	return p
}

func TestNewProfile_Defaults(t *testing.T) {
	p := newTestProfile(t)

	assert.Equal(t, shared.UserID("u-1042"), p.UserID)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, shared.Level(1), p.Level)
	assert.Equal(t, shared.XP(0), p.TotalXP)
	assert.Equal(t, shared.XP(0), p.CurrentXP)
	assert.Equal(t, 100, p.XPToNextLevel)
	assert.Equal(t, "Novice Learner", p.Title)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.True(t, p.LastActivityDate.IsZero())
}

func TestNewProfile_Validation(t *testing.T) {
	_, err := NewProfile("", "Alice")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = NewProfile("u-1", strings.Repeat("x", 101))
	assert.Error(t, err)

	p, err := NewProfile("u-1", "  Bob  ")
	require.NoError(t, err)
	assert.Equal(t, "Bob", p.DisplayName)
}

func TestAwardXP_SingleLevelUp(t *testing.T) {
	// A fresh profile granted 150 XP crosses into level 2 with 50 XP
	// carried over and 150 required for the next level.
	p := newTestProfile(t)

	award, err := p.AwardXP(150)
	require.NoError(t, err)

	assert.Equal(t, shared.Level(1), award.OldLevel)
	assert.Equal(t, shared.Level(2), award.NewLevel)
	assert.True(t, award.LeveledUp)

	assert.Equal(t, shared.Level(2), p.Level)
	assert.Equal(t, shared.XP(150), p.TotalXP)
	assert.Equal(t, shared.XP(50), p.CurrentXP)
	assert.Equal(t, 150, p.XPToNextLevel)
}

func TestAwardXP_MultipleLevelsInOneGrant(t *testing.T) {
	// 100 + 150 + 200 = 450 to finish levels 1-3; 500 lands at level 4
	// with 50 left over.
	p := newTestProfile(t)

	award, err := p.AwardXP(500)
	require.NoError(t, err)

	assert.Equal(t, shared.Level(4), p.Level)
	assert.Equal(t, shared.XP(50), p.CurrentXP)
	assert.Equal(t, 250, p.XPToNextLevel)
	assert.True(t, award.LeveledUp)
}

func TestAwardXP_NoLevelUp(t *testing.T) {
	p := newTestProfile(t)

	award, err := p.AwardXP(99)
	require.NoError(t, err)

	assert.False(t, award.LeveledUp)
	assert.Equal(t, shared.Level(1), p.Level)
	assert.Equal(t, shared.XP(99), p.CurrentXP)
}

func TestAwardXP_RequiresAtLeastOne(t *testing.T) {
	p := newTestProfile(t)

	_, err := p.AwardXP(0)
	assert.ErrorIs(t, err, shared.ErrInvalidXPAward)

	_, err = p.AwardXP(-10)
	assert.ErrorIs(t, err, shared.ErrInvalidXPAward)

	assert.Equal(t, shared.XP(0), p.TotalXP)
	assert.Equal(t, shared.Level(1), p.Level)
}

func TestAwardXP_TitleAdvancesWithLevel(t *testing.T) {
	p := newTestProfile(t)

	// Enough XP to reach level 5: 100+150+200+250 = 700.
	_, err := p.AwardXP(700)
	require.NoError(t, err)

	assert.Equal(t, shared.Level(5), p.Level)
	assert.Equal(t, "Eager Learner", p.Title)
}

func TestRecordActivity_StartsStreak(t *testing.T) {
	p := newTestProfile(t)
	day := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	change := p.RecordActivity(day)

	assert.Equal(t, StreakStarted, change)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), p.LastActivityDate)
}

func TestRecordActivity_SameDayUnchanged(t *testing.T) {
	p := newTestProfile(t)
	p.RecordActivity(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	change := p.RecordActivity(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, StreakUnchanged, change)
	assert.Equal(t, 1, p.CurrentStreak)
}

func TestRecordActivity_ConsecutiveDayExtends(t *testing.T) {
	p := newTestProfile(t)
	p.RecordActivity(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))

	change := p.RecordActivity(time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC))

	assert.Equal(t, StreakExtended, change)
	assert.Equal(t, 2, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestRecordActivity_GapResets(t *testing.T) {
	p := newTestProfile(t)
	p.RecordActivity(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	p.RecordActivity(time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC))
	p.RecordActivity(time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC))

	change := p.RecordActivity(time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, StreakReset, change)
	assert.Equal(t, 1, p.CurrentStreak)
	// The best streak survives the reset.
	assert.Equal(t, 3, p.LongestStreak)
}

func TestDaysSinceLastActivity(t *testing.T) {
	p := newTestProfile(t)
	assert.Equal(t, 0, p.DaysSinceLastActivity(time.Now().UTC()))

	p.RecordActivity(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 5, p.DaysSinceLastActivity(time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)))
}

func TestAddTimeSpent(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.AddTimeSpent(45))
	require.NoError(t, p.AddTimeSpent(90))
	assert.Equal(t, 135, p.TotalTimeSpentMinutes)
	assert.Equal(t, 2, p.TotalTimeSpentHours())

	assert.Error(t, p.AddTimeSpent(-1))
	assert.Equal(t, 135, p.TotalTimeSpentMinutes)
}

func TestIncrementAchievements(t *testing.T) {
	p := newTestProfile(t)
	p.IncrementAchievements()
	p.IncrementAchievements()
	assert.Equal(t, 2, p.AchievementsCount)
}

func TestClone_IsIndependent(t *testing.T) {
	p := newTestProfile(t)
	clone := p.Clone()

	clone.DisplayName = "Changed"
	_, err := clone.AwardXP(200)
	require.NoError(t, err)

	assert.Equal(t, "Alice", p.DisplayName)
	assert.Equal(t, shared.Level(1), p.Level)

	var nilProfile *UserProfile
	assert.Nil(t, nilProfile.Clone())
}
