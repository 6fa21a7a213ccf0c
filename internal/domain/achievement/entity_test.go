package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria("level_reached:5")
	require.NoError(t, err)
	assert.Equal(t, CriteriaLevelReached, c.Kind)
	assert.Equal(t, 5, c.Threshold)

	c, err = ParseCriteria("  streak_days:30  ")
	require.NoError(t, err)
	assert.Equal(t, CriteriaStreakDays, c.Kind)
	assert.Equal(t, 30, c.Threshold)
}

func TestParseCriteria_RoundTrip(t *testing.T) {
	for _, raw := range []string{
		"nodes_completed:1",
		"trees_completed:3",
		"level_reached:10",
		"total_xp:1000",
		"streak_days:7",
	} {
		c, err := ParseCriteria(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, c.String())
	}
}

func TestParseCriteria_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"level_reached",
		"perfect_scores:5",
		"level_reached:",
		"level_reached:abc",
		"level_reached:-1",
	} {
		_, err := ParseCriteria(raw)
		assert.Error(t, err, "raw=%q", raw)
		assert.ErrorIs(t, err, shared.ErrInvalidInput, "raw=%q", raw)
	}
}

func TestRarityIsValid(t *testing.T) {
	assert.True(t, RarityCommon.IsValid())
	assert.True(t, RarityLegendary.IsValid())
	assert.False(t, Rarity("mythic").IsValid())
	assert.False(t, Rarity("").IsValid())
}

func TestCriteriaKindIsValid(t *testing.T) {
	assert.True(t, CriteriaTotalXP.IsValid())
	assert.False(t, CriteriaKind("helpfulness").IsValid())
}

func TestEffectiveXPReward(t *testing.T) {
	a := &Achievement{XPReward: 200}
	assert.Equal(t, 200, a.EffectiveXPReward())

	a = &Achievement{}
	assert.Equal(t, DefaultXPReward, a.EffectiveXPReward())

	a = &Achievement{XPReward: -10}
	assert.Equal(t, DefaultXPReward, a.EffectiveXPReward())
}

func TestNewUserAchievement(t *testing.T) {
	ua, err := NewUserAchievement("u-1", 42)
	require.NoError(t, err)
	assert.Equal(t, shared.UserID("u-1"), ua.UserID)
	assert.Equal(t, shared.AchievementID(42), ua.AchievementID)
	assert.False(t, ua.UnlockedAt.IsZero())

	_, err = NewUserAchievement("", 42)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = NewUserAchievement("u-1", 0)
	assert.Error(t, err)
}
