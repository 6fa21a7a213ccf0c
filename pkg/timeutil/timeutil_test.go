package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, 3, 14, 18, 42, 7, 123, time.UTC)
	got := StartOfDay(in)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestStartOfDay_NormalizesTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 local is 21:30 UTC the previous day.
	in := time.Date(2025, 3, 14, 2, 30, 0, 0, loc)
	got := StartOfDay(in)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), got)
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	got := EndOfDay(in)
	assert.Equal(t, time.Date(2025, 3, 14, 23, 59, 59, 999999999, time.UTC), got)
}

func TestStartOfWeek_AlwaysMonday(t *testing.T) {
	// 2025-03-12 is a Wednesday, 2025-03-10 the Monday before it.
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for day := 10; day <= 16; day++ {
		in := time.Date(2025, 3, day, 15, 0, 0, 0, time.UTC)
		assert.Equal(t, monday, StartOfWeek(in), "day=%d", day)
	}

	// The Sunday wrap: 2025-03-16 is a Sunday.
	sunday := time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(sunday))
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2025, 3, 14, 0, 0, 1, 0, time.UTC)
	b := time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC)
	c := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsSameDay(a, b))
	assert.False(t, IsSameDay(b, c))
}

func TestIsConsecutiveDay(t *testing.T) {
	a := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 15, 0, 30, 0, 0, time.UTC)
	c := time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(a, b))
	assert.False(t, IsConsecutiveDay(a, c))
	assert.False(t, IsConsecutiveDay(b, a))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 3, 14, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 4, DaysBetween(a, b))
	// Order does not matter.
	assert.Equal(t, 4, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestIsTodayAndYesterday(t *testing.T) {
	now := Now()
	assert.True(t, IsToday(now))
	assert.False(t, IsYesterday(now))
	assert.True(t, IsYesterday(now.AddDate(0, 0, -1)))
}

func TestParseDateRoundTrip(t *testing.T) {
	parsed, err := ParseDate("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 3, 14), parsed)
	assert.Equal(t, "2025-03-14", FormatDateStr(parsed))

	_, err = ParseDate("14.03.2025")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", FormatDuration(0))
	assert.Equal(t, "45m", FormatDuration(45))
	assert.Equal(t, "1h", FormatDuration(60))
	assert.Equal(t, "2h", FormatDuration(120))
	assert.Equal(t, "1h30m", FormatDuration(90))
}
