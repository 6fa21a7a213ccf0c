// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Profile events
	EventProfileCreated EventType = "profile.created"
	EventXPGained       EventType = "profile.xp_gained"
	EventLevelUp        EventType = "profile.level_up"
	EventStreakUpdated  EventType = "profile.streak_updated"
	EventStreakBroken   EventType = "profile.streak_broken"

	// Enrollment events
	EventTreeEnrolled  EventType = "enrollment.tree_enrolled"
	EventNodeStarted   EventType = "enrollment.node_started"
	EventNodeCompleted EventType = "enrollment.node_completed"
	EventTreeCompleted EventType = "enrollment.tree_completed"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileCreatedEvent is emitted when a new user profile is created.
type ProfileCreatedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// Payload implements Event interface.
func (e ProfileCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"display_name": e.DisplayName,
	}
}

// NewProfileCreatedEvent creates a new ProfileCreatedEvent.
func NewProfileCreatedEvent(userID, displayName string) ProfileCreatedEvent {
	return ProfileCreatedEvent{
		BaseEvent:   NewBaseEvent(EventProfileCreated, userID),
		UserID:      userID,
		DisplayName: displayName,
	}
}

// XPGainedEvent is emitted when a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Amount   int    `json:"amount"`
	NewTotal int    `json:"new_total"`
	Source   string `json:"source"` // e.g., "node_completion", "achievement"
	NodeID   int64  `json:"node_id,omitempty"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"amount":    e.Amount,
		"new_total": e.NewTotal,
		"source":    e.Source,
		"node_id":   e.NodeID,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, source string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID),
		UserID:    userID,
		Amount:    amount,
		NewTotal:  newTotal,
		Source:    source,
	}
}

// LevelUpEvent is emitted when a user reaches a new level.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	NewTitle string `json:"new_title"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"new_title": e.NewTitle,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, newTitle string) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		NewTitle:  newTitle,
	}
}

// StreakUpdatedEvent is emitted when a user's daily streak advances.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, currentStreak, longestStreak int) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID),
		UserID:        userID,
		CurrentStreak: currentStreak,
		LongestStreak: longestStreak,
	}
}

// StreakBrokenEvent is emitted when a user's daily streak resets.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// TreeEnrolledEvent is emitted when a user enrolls in a skill tree.
type TreeEnrolledEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	TreeID int64  `json:"tree_id"`
}

// Payload implements Event interface.
func (e TreeEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"tree_id": e.TreeID,
	}
}

// NewTreeEnrolledEvent creates a new TreeEnrolledEvent.
func NewTreeEnrolledEvent(userID string, treeID int64) TreeEnrolledEvent {
	return TreeEnrolledEvent{
		BaseEvent: NewBaseEvent(EventTreeEnrolled, userID),
		UserID:    userID,
		TreeID:    treeID,
	}
}

// NodeCompletedEvent is emitted when a user completes a skill node.
type NodeCompletedEvent struct {
	BaseEvent
	UserID           string  `json:"user_id"`
	TreeID           int64   `json:"tree_id"`
	NodeID           int64   `json:"node_id"`
	XPEarned         int     `json:"xp_earned"`
	NodesCompleted   int     `json:"nodes_completed"`
	ProgressPercent  float64 `json:"progress_percent"`
	TimeSpentMinutes int     `json:"time_spent_minutes"`
}

// Payload implements Event interface.
func (e NodeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":            e.UserID,
		"tree_id":            e.TreeID,
		"node_id":            e.NodeID,
		"xp_earned":          e.XPEarned,
		"nodes_completed":    e.NodesCompleted,
		"progress_percent":   e.ProgressPercent,
		"time_spent_minutes": e.TimeSpentMinutes,
	}
}

// NewNodeCompletedEvent creates a new NodeCompletedEvent.
func NewNodeCompletedEvent(userID string, treeID, nodeID int64, xpEarned int) NodeCompletedEvent {
	return NodeCompletedEvent{
		BaseEvent: NewBaseEvent(EventNodeCompleted, userID),
		UserID:    userID,
		TreeID:    treeID,
		NodeID:    nodeID,
		XPEarned:  xpEarned,
	}
}

// TreeCompletedEvent is emitted when every node of an enrolled tree is done.
type TreeCompletedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	TreeID     int64  `json:"tree_id"`
	TotalNodes int    `json:"total_nodes"`
	XPEarned   int    `json:"xp_earned"`
}

// Payload implements Event interface.
func (e TreeCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"tree_id":     e.TreeID,
		"total_nodes": e.TotalNodes,
		"xp_earned":   e.XPEarned,
	}
}

// NewTreeCompletedEvent creates a new TreeCompletedEvent.
func NewTreeCompletedEvent(userID string, treeID int64, totalNodes, xpEarned int) TreeCompletedEvent {
	return TreeCompletedEvent{
		BaseEvent:  NewBaseEvent(EventTreeCompleted, userID),
		UserID:     userID,
		TreeID:     treeID,
		TotalNodes: totalNodes,
		XPEarned:   xpEarned,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a user unlocks an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID int64  `json:"achievement_id"`
	Title         string `json:"title"`
	Rarity        string `json:"rarity"`
	XPReward      int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"title":          e.Title,
		"rarity":         e.Rarity,
		"xp_reward":      e.XPReward,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID string, achievementID int64, title, rarity string, xpReward int) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		Title:         title,
		Rarity:        rarity,
		XPReward:      xpReward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
