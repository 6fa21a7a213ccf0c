package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

func TestNewEnrollment(t *testing.T) {
	e, err := NewEnrollment("u-1", 7)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, e.Status)
	assert.Equal(t, 0, e.NodesCompleted)
	assert.Equal(t, shared.Percentage(0), e.ProgressPercentage)
	assert.Equal(t, 0, e.XPEarned)
}

func TestNewEnrollment_Validation(t *testing.T) {
	_, err := NewEnrollment("", 7)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = NewEnrollment("u-1", 0)
	assert.ErrorIs(t, err, shared.ErrInvalidTreeID)
}

func TestRecordNodeCompletion_Progress(t *testing.T) {
	e, err := NewEnrollment("u-1", 7)
	require.NoError(t, err)

	done := e.RecordNodeCompletion(3, 10)
	assert.False(t, done)
	assert.Equal(t, 1, e.NodesCompleted)
	assert.Equal(t, 10, e.XPEarned)
	assert.Equal(t, shared.Percentage(33.33), e.ProgressPercentage)
	assert.Equal(t, StatusActive, e.Status)

	done = e.RecordNodeCompletion(3, 25)
	assert.False(t, done)
	assert.Equal(t, shared.Percentage(66.67), e.ProgressPercentage)

	done = e.RecordNodeCompletion(3, 10)
	assert.True(t, done)
	assert.Equal(t, 3, e.NodesCompleted)
	assert.Equal(t, 45, e.XPEarned)
	assert.Equal(t, shared.Percentage(100), e.ProgressPercentage)
	assert.Equal(t, StatusCompleted, e.Status)
	assert.True(t, e.IsCompleted())
}

func TestRecordNodeCompletion_ZeroTotalNeverCompletes(t *testing.T) {
	e, err := NewEnrollment("u-1", 7)
	require.NoError(t, err)

	done := e.RecordNodeCompletion(0, 10)
	assert.False(t, done)
	assert.Equal(t, shared.Percentage(0), e.ProgressPercentage)
	assert.Equal(t, StatusActive, e.Status)
}

func TestPauseAndResume(t *testing.T) {
	e, err := NewEnrollment("u-1", 7)
	require.NoError(t, err)

	require.NoError(t, e.Pause())
	assert.Equal(t, StatusPaused, e.Status)

	// Pausing twice is a state transition error.
	assert.Error(t, e.Pause())

	require.NoError(t, e.Resume())
	assert.Equal(t, StatusActive, e.Status)
	assert.Error(t, e.Resume())
}

func TestNewNodeProgress(t *testing.T) {
	np, err := NewNodeProgress("u-1", 3, 7)
	require.NoError(t, err)

	assert.False(t, np.Completed)
	assert.Nil(t, np.CompletedAt)
	assert.False(t, np.StartedAt.IsZero())

	_, err = NewNodeProgress("", 3, 7)
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = NewNodeProgress("u-1", 0, 7)
	assert.ErrorIs(t, err, shared.ErrInvalidNodeID)
}

func TestNodeProgress_Complete(t *testing.T) {
	np, err := NewNodeProgress("u-1", 3, 7)
	require.NoError(t, err)

	score := 87
	require.NoError(t, np.Complete(30, &score))

	assert.True(t, np.Completed)
	require.NotNil(t, np.CompletedAt)
	assert.Equal(t, 30, np.TimeSpentMinutes)
	require.NotNil(t, np.Score)
	assert.Equal(t, 87, *np.Score)
}

func TestNodeProgress_CompleteIsFinal(t *testing.T) {
	np, err := NewNodeProgress("u-1", 3, 7)
	require.NoError(t, err)
	require.NoError(t, np.Complete(10, nil))

	err = np.Complete(5, nil)
	assert.ErrorIs(t, err, shared.ErrNodeAlreadyCompleted)
	assert.Equal(t, 10, np.TimeSpentMinutes)
}

func TestNodeProgress_CompleteRejectsNegativeTime(t *testing.T) {
	np, err := NewNodeProgress("u-1", 3, 7)
	require.NoError(t, err)

	assert.Error(t, np.Complete(-1, nil))
	assert.False(t, np.Completed)
}
