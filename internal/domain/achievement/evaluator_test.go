package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeets_PerKind(t *testing.T) {
	ev := NewEvaluator()
	stats := Stats{
		TotalXP:        1200,
		Level:          8,
		NodesCompleted: 15,
		TreesCompleted: 1,
		CurrentStreak:  6,
	}

	cases := map[string]struct {
		criteria Criteria
		want     bool
	}{
		"nodes at threshold":    {Criteria{CriteriaNodesCompleted, 15}, true},
		"nodes below":           {Criteria{CriteriaNodesCompleted, 16}, false},
		"trees met":             {Criteria{CriteriaTreesCompleted, 1}, true},
		"trees not met":         {Criteria{CriteriaTreesCompleted, 2}, false},
		"level met":             {Criteria{CriteriaLevelReached, 5}, true},
		"level not met":         {Criteria{CriteriaLevelReached, 9}, false},
		"xp met":                {Criteria{CriteriaTotalXP, 1000}, true},
		"xp not met":            {Criteria{CriteriaTotalXP, 1201}, false},
		"streak met":            {Criteria{CriteriaStreakDays, 6}, true},
		"streak not met":        {Criteria{CriteriaStreakDays, 7}, false},
		"unknown kind is false": {Criteria{CriteriaKind("bogus"), 0}, false},
	}

	for name, tc := range cases {
		assert.Equal(t, tc.want, ev.Meets(tc.criteria, stats), name)
	}
}

func TestCheckNewAchievements(t *testing.T) {
	ev := NewEvaluator()
	catalog := []*Achievement{
		{ID: 1, Title: "First Steps", Criteria: Criteria{CriteriaNodesCompleted, 1}},
		{ID: 2, Title: "Getting Serious", Criteria: Criteria{CriteriaNodesCompleted, 10}},
		{ID: 3, Title: "Week Streak", Criteria: Criteria{CriteriaStreakDays, 7}},
	}
	stats := Stats{NodesCompleted: 10, CurrentStreak: 3}

	earned := ev.CheckNewAchievements(catalog, nil, stats)
	require.Len(t, earned, 2)
	assert.Equal(t, "First Steps", earned[0].Title)
	assert.Equal(t, "Getting Serious", earned[1].Title)
}

func TestCheckNewAchievements_SkipsAlreadyHeld(t *testing.T) {
	ev := NewEvaluator()
	catalog := []*Achievement{
		{ID: 1, Criteria: Criteria{CriteriaNodesCompleted, 1}},
		{ID: 2, Criteria: Criteria{CriteriaNodesCompleted, 10}},
	}
	held := []*UserAchievement{{UserID: "u-1", AchievementID: 1}}
	stats := Stats{NodesCompleted: 12}

	earned := ev.CheckNewAchievements(catalog, held, stats)
	require.Len(t, earned, 1)
	assert.EqualValues(t, 2, earned[0].ID)
}

func TestCheckNewAchievements_NothingEarned(t *testing.T) {
	ev := NewEvaluator()
	catalog := []*Achievement{
		{ID: 1, Criteria: Criteria{CriteriaLevelReached, 50}},
	}

	earned := ev.CheckNewAchievements(catalog, nil, Stats{Level: 1})
	assert.Empty(t, earned)
}
