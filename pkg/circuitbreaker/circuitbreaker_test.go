package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failingCall(_ context.Context) error { return errBackend }
func okCall(_ context.Context) error      { return nil }

func TestBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failingCall), errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Calls are rejected without reaching the backend.
	err := cb.Execute(ctx, okCall)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.NoError(t, cb.Execute(ctx, okCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	cb := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout succeeds and closes the breaker.
	require.NoError(t, cb.Execute(ctx, okCall))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_IsFailureFilter(t *testing.T) {
	errExpected := errors.New("cache miss")
	cb := New("test",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool {
			return !errors.Is(err, errExpected)
		}))
	ctx := context.Background()

	// Expected errors pass through without tripping the breaker.
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return errExpected }), errExpected)
	}
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, cb.Execute(ctx, failingCall))
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreaker_ExecuteWithFallback(t *testing.T) {
	cb := New("test", WithFailureThreshold(1))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Equal(t, StateOpen, cb.State())

	err := cb.ExecuteWithFallback(ctx, okCall, func(error) error { return nil })
	assert.NoError(t, err)
}

func TestBreaker_Reset(t *testing.T) {
	cb := New("test", WithFailureThreshold(1))
	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.True(t, cb.IsOpen())

	cb.Reset()
	assert.True(t, cb.IsClosed())
	assert.NoError(t, cb.Execute(context.Background(), okCall))
}

func TestCacheBreakerPreset(t *testing.T) {
	var transitions []State
	cb := CacheBreaker(nil, func(_ string, _, to State) {
		transitions = append(transitions, to)
	})

	assert.Equal(t, "redis-cache", cb.Name())

	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(context.Background(), failingCall))
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []State{StateOpen}, transitions)
}
