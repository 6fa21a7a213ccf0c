// Package enrollment tracks per-user progression through skill trees: the
// enrollment record with its aggregate counters, per-node progress rows, and
// the unlock resolution over a tree's ordered chain.
package enrollment

import (
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of an enrollment.
type Status string

const (
	// StatusActive - the user is working through the tree.
	StatusActive Status = "active"
	// StatusCompleted - every node of the tree is done.
	StatusCompleted Status = "completed"
	// StatusPaused - the user set the tree aside.
	StatusPaused Status = "paused"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPaused:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment is the per-(user, tree) progression record. At most one exists
// per pair.
type Enrollment struct {
	// ID - storage identifier.
	ID int64

	// UserID - enrolled user.
	UserID shared.UserID

	// TreeID - the tree being worked through.
	TreeID shared.TreeID

	// Status - lifecycle state.
	Status Status

	// EnrolledAt - when the user enrolled.
	EnrolledAt time.Time

	// NodesCompleted - number of completed nodes, 0 <= n <= tree.TotalNodes.
	NodesCompleted int

	// ProgressPercentage - NodesCompleted over the tree's total, two decimals.
	ProgressPercentage shared.Percentage

	// XPEarned - XP accumulated from this tree's nodes.
	XPEarned int

	// LastAccessedAt - last time the user touched this tree.
	LastAccessedAt time.Time

	// Version - optimistic concurrency token.
	Version int

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// NewEnrollment creates an active enrollment with zeroed progress.
func NewEnrollment(userID shared.UserID, treeID shared.TreeID) (*Enrollment, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !treeID.IsValid() {
		return nil, shared.ErrInvalidTreeID
	}

	now := time.Now().UTC()

	return &Enrollment{
		UserID:             userID,
		TreeID:             treeID,
		Status:             StatusActive,
		EnrolledAt:         now,
		NodesCompleted:     0,
		ProgressPercentage: 0,
		XPEarned:           0,
		LastAccessedAt:     now,
		UpdatedAt:          now,
	}, nil
}

// RecordNodeCompletion advances the enrollment counters for one completed
// node and flips the status to completed when the whole tree is done.
// Returns true when this completion finished the tree.
func (e *Enrollment) RecordNodeCompletion(totalNodes, xpEarned int) (treeCompleted bool) {
	e.NodesCompleted++
	e.XPEarned += xpEarned
	e.ProgressPercentage = shared.NewPercentage(e.NodesCompleted, totalNodes)

	now := time.Now().UTC()
	e.LastAccessedAt = now
	e.UpdatedAt = now

	if e.Status == StatusActive && totalNodes > 0 && e.NodesCompleted == totalNodes {
		e.Status = StatusCompleted
		return true
	}
	return false
}

// Touch updates the last-accessed timestamp.
func (e *Enrollment) Touch() {
	now := time.Now().UTC()
	e.LastAccessedAt = now
	e.UpdatedAt = now
}

// Pause sets the enrollment aside. Only active enrollments can pause.
func (e *Enrollment) Pause() error {
	if e.Status != StatusActive {
		return shared.NewDomainError("enrollment", "Pause", shared.ErrStateTransition,
			fmt.Sprintf("cannot pause enrollment in status %q", e.Status))
	}
	e.Status = StatusPaused
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Resume reactivates a paused enrollment.
func (e *Enrollment) Resume() error {
	if e.Status != StatusPaused {
		return shared.NewDomainError("enrollment", "Resume", shared.ErrStateTransition,
			fmt.Sprintf("cannot resume enrollment in status %q", e.Status))
	}
	e.Status = StatusActive
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// IsCompleted returns true when the whole tree is done.
func (e *Enrollment) IsCompleted() bool {
	return e.Status == StatusCompleted
}

// ══════════════════════════════════════════════════════════════════════════════
// NODE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// NodeProgress is the per-(user, node) completion record. At most one exists
// per pair; its presence with Completed=false means the node was started.
type NodeProgress struct {
	// ID - storage identifier.
	ID int64

	// UserID - the user working the node.
	UserID shared.UserID

	// NodeID - the node.
	NodeID shared.NodeID

	// TreeID - the node's tree, denormalized for per-tree queries.
	TreeID shared.TreeID

	// Completed - whether the node is done. Completion is final.
	Completed bool

	// StartedAt - when the user started the node.
	StartedAt time.Time

	// CompletedAt - when the node was completed, nil while in progress.
	CompletedAt *time.Time

	// TimeSpentMinutes - reported time spent on the node.
	TimeSpentMinutes int

	// Score - optional result score, nil when not applicable.
	Score *int
}

// NewNodeProgress creates a started, not yet completed progress record.
func NewNodeProgress(userID shared.UserID, nodeID shared.NodeID, treeID shared.TreeID) (*NodeProgress, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !nodeID.IsValid() {
		return nil, shared.ErrInvalidNodeID
	}
	if !treeID.IsValid() {
		return nil, shared.ErrInvalidTreeID
	}

	return &NodeProgress{
		UserID:    userID,
		NodeID:    nodeID,
		TreeID:    treeID,
		Completed: false,
		StartedAt: time.Now().UTC(),
	}, nil
}

// Complete marks the node done. Completing an already completed node is
// rejected with shared.ErrNodeAlreadyCompleted; completion never reverts.
func (np *NodeProgress) Complete(timeSpentMinutes int, score *int) error {
	if np.Completed {
		return shared.ErrNodeAlreadyCompleted
	}
	if timeSpentMinutes < 0 {
		return shared.NewDomainError("enrollment", "CompleteNode", shared.ErrNegativeValue,
			"time spent cannot be negative")
	}

	now := time.Now().UTC()
	np.Completed = true
	np.CompletedAt = &now
	np.TimeSpentMinutes += timeSpentMinutes
	if score != nil {
		np.Score = score
	}
	return nil
}
