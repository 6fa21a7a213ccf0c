package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserID_Validation(t *testing.T) {
	valid := []string{"u-1042", "alice", "A1", "user_name-9"}
	for _, id := range valid {
		assert.True(t, UserID(id).IsValid(), "expected %q to be valid", id)
	}

	invalid := []string{"", "-leading-dash", "_leading", "has space", strings.Repeat("a", 65)}
	for _, id := range invalid {
		assert.False(t, UserID(id).IsValid(), "expected %q to be invalid", id)
	}
}

func TestNewUserID_TrimsWhitespace(t *testing.T) {
	id, err := NewUserID("  alice  ")
	assert.NoError(t, err)
	assert.Equal(t, UserID("alice"), id)

	_, err = NewUserID("   ")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestTreeID_Validation(t *testing.T) {
	assert.True(t, TreeID(1).IsValid())
	assert.False(t, TreeID(0).IsValid())
	assert.False(t, TreeID(-5).IsValid())

	_, err := NewTreeID(0)
	assert.ErrorIs(t, err, ErrInvalidTreeID)

	id, err := NewTreeID(42)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id.Int64())
}

func TestXP_AddCapsAtMax(t *testing.T) {
	assert.Equal(t, XP(150), XP(100).Add(50))
	assert.Equal(t, MaxXP, MaxXP.Add(1))
	assert.Equal(t, MinXP, XP(10).Add(-20))
}

func TestLevel_XPToNext(t *testing.T) {
	// Linear progression: 100 base plus 50 per level past the first.
	assert.Equal(t, 100, Level(1).XPToNext())
	assert.Equal(t, 150, Level(2).XPToNext())
	assert.Equal(t, 200, Level(3).XPToNext())
	assert.Equal(t, 550, Level(10).XPToNext())

	// Below-minimum levels are clamped.
	assert.Equal(t, 100, Level(0).XPToNext())
}

func TestLevel_Titles(t *testing.T) {
	cases := map[Level]string{
		1:  "Novice Learner",
		4:  "Novice Learner",
		5:  "Eager Learner",
		9:  "Eager Learner",
		10: "Aspiring Developer",
		20: "Skilled Craftsman",
		30: "Senior Developer",
		40: "Expert Coder",
		49: "Expert Coder",
		50: "Master Builder",
		99: "Master Builder",
	}
	for level, title := range cases {
		assert.Equal(t, title, level.Title(), "level %d", level)
	}
}

func TestLevel_NextCapsAtMax(t *testing.T) {
	assert.Equal(t, Level(2), Level(1).Next())
	assert.Equal(t, MaxLevel, MaxLevel.Next())
}

func TestNewPercentage(t *testing.T) {
	assert.Equal(t, Percentage(50), NewPercentage(1, 2))
	assert.Equal(t, Percentage(33.33), NewPercentage(1, 3))
	assert.Equal(t, Percentage(66.67), NewPercentage(2, 3))
	assert.Equal(t, Percentage(100), NewPercentage(5, 5))

	// A zero or negative total never divides.
	assert.Equal(t, Percentage(0), NewPercentage(3, 0))
	assert.Equal(t, Percentage(0), NewPercentage(3, -1))
}

func TestPercentage_IsComplete(t *testing.T) {
	assert.False(t, Percentage(99.99).IsComplete())
	assert.True(t, Percentage(100).IsComplete())
}

func TestPagination_OffsetAndLimit(t *testing.T) {
	p := NewPagination(3, 20)
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())

	// Defaults kick in for nonsense input.
	p = NewPagination(0, 0)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, DefaultPageSize, p.Limit())

	// Oversized pages are clamped.
	p = NewPagination(1, 1000)
	assert.Equal(t, MaxPageSize, p.Limit())
}
