package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestInMemoryEventBus_SubscribeAndPublish(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventXPGained, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewXPGainedEvent("u-1", 100, 100, "node_completion")
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventXPGained, received[0].EventType())
	assert.Equal(t, "u-1", received[0].AggregateID())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	xpCalls, levelCalls := 0, 0
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error {
		xpCalls++
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		levelCalls++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u-1", 10, 10, "manual_grant")))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u-1", 10, 20, "manual_grant")))

	assert.Equal(t, 2, xpCalls)
	assert.Equal(t, 0, levelCalls)
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	seen := make([]shared.EventType, 0)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u-1", 10, 10, "manual_grant")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("u-1", 1, 2, "Novice Learner")))

	assert.Equal(t, []shared.EventType{shared.EventXPGained, shared.EventLevelUp}, seen)
}

func TestInMemoryEventBus_NilHandlerAndEvent(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventXPGained, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewXPGainedEvent("u-1", 10, 10, "manual_grant"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventXPGained, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Closing twice is harmless.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_AsyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
	})

	done := make(chan struct{}, 10)
	require.NoError(t, bus.Subscribe(shared.EventNodeCompleted, func(shared.Event) error {
		done <- struct{}{}
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(shared.NewNodeCompletedEvent("u-1", 1, int64(i+1), 10)))
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}

	require.NoError(t, bus.Close())
}

func TestEventBusMetrics(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u-1", 10, 10, "manual_grant")))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent("u-1", 10, 20, "manual_grant")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.Equal(t, 1.0, snap.HandlerSuccessRate)
}

func TestEventBusMetrics_Reset(t *testing.T) {
	m := NewEventBusMetrics()
	m.RecordPublish(shared.EventXPGained)
	m.RecordHandlerExecution(shared.EventXPGained, time.Millisecond, true)

	before := m.Snapshot()
	assert.Equal(t, int64(1), before.TotalPublished)

	m.Reset()
	assert.Empty(t, m.PublishedLastHour)
	// Totals survive a reset.
	assert.Equal(t, int64(1), m.Snapshot().TotalPublished)
}
