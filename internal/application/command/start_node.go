package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// START NODE COMMAND
// Records that a user started working on a node: creates the not-yet-completed
// progress row and touches the enrollment's last-accessed timestamp.
// Starting a node the user already has a progress row for is a no-op.
// ══════════════════════════════════════════════════════════════════════════════

// StartNodeCommand contains the data to start a node.
type StartNodeCommand struct {
	// UserID is the external account identifier.
	UserID string

	// NodeID identifies the skill node.
	NodeID int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c StartNodeCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("start_node: user_id is required")
	}
	if c.NodeID <= 0 {
		return errors.New("start_node: node_id must be positive")
	}
	return nil
}

// StartNodeResult contains the result of starting a node.
type StartNodeResult struct {
	// Progress is the progress record (existing or freshly created).
	Progress *enrollment.NodeProgress

	// AlreadyStarted is true when a progress row already existed.
	AlreadyStarted bool

	// StartedAt is when the node was (first) started.
	StartedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StartNodeHandler handles the StartNodeCommand.
type StartNodeHandler struct {
	nodeRepo       catalog.NodeRepository
	enrollmentRepo enrollment.Repository
	progressRepo   enrollment.ProgressRepository
}

// NewStartNodeHandler creates a new StartNodeHandler.
func NewStartNodeHandler(
	nodeRepo catalog.NodeRepository,
	enrollmentRepo enrollment.Repository,
	progressRepo enrollment.ProgressRepository,
) *StartNodeHandler {
	return &StartNodeHandler{
		nodeRepo:       nodeRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
	}
}

// Handle executes the start node command.
func (h *StartNodeHandler) Handle(ctx context.Context, cmd StartNodeCommand) (*StartNodeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_node: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	nodeID, err := shared.NewNodeID(cmd.NodeID)
	if err != nil {
		return nil, err
	}

	node, err := h.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("start_node: failed to get node: %w", err)
	}

	// Starting a node requires an enrollment in its tree.
	if _, err := h.enrollmentRepo.GetByUserAndTree(ctx, userID, node.TreeID); err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrNotEnrolled
		}
		return nil, fmt.Errorf("start_node: failed to get enrollment: %w", err)
	}

	if existing, err := h.progressRepo.GetByUserAndNode(ctx, userID, nodeID); err == nil {
		return &StartNodeResult{
			Progress:       existing,
			AlreadyStarted: true,
			StartedAt:      existing.StartedAt,
		}, nil
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("start_node: failed to get progress: %w", err)
	}

	np, err := enrollment.NewNodeProgress(userID, nodeID, node.TreeID)
	if err != nil {
		return nil, err
	}

	if err := h.progressRepo.Create(ctx, np); err != nil {
		// A concurrent start won the race; fall back to the stored row.
		if shared.IsAlreadyExists(err) {
			existing, getErr := h.progressRepo.GetByUserAndNode(ctx, userID, nodeID)
			if getErr == nil {
				return &StartNodeResult{Progress: existing, AlreadyStarted: true, StartedAt: existing.StartedAt}, nil
			}
		}
		return nil, fmt.Errorf("start_node: failed to create progress: %w", err)
	}

	if err := h.touchEnrollment(ctx, userID, node.TreeID); err != nil {
		return nil, fmt.Errorf("start_node: failed to touch enrollment: %w", err)
	}

	return &StartNodeResult{
		Progress:  np,
		StartedAt: np.StartedAt,
	}, nil
}

// touchEnrollment bumps the enrollment's last-accessed timestamp.
// Reload-and-store with retry: a concurrent completion bumps the
// enrollment version, which surfaces as an optimistic-lock error.
func (h *StartNodeHandler) touchEnrollment(ctx context.Context, userID shared.UserID, treeID shared.TreeID) error {
	return retry.OptimisticLockRetrier().Do(ctx, func(ctx context.Context) error {
		enr, err := h.enrollmentRepo.GetByUserAndTree(ctx, userID, treeID)
		if err != nil {
			return retry.Permanent(err)
		}

		enr.Touch()
		if err := h.enrollmentRepo.Update(ctx, enr); err != nil {
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return err
		}
		return nil
	})
}
