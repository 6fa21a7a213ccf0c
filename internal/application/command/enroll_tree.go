package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL TREE COMMAND
// Enrolls a user in a skill tree. At most one enrollment exists per
// (user, tree) pair; a duplicate enroll is a conflict.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollTreeCommand contains the data to enroll a user in a tree.
type EnrollTreeCommand struct {
	// UserID is the external account identifier.
	UserID string

	// TreeID identifies the skill tree.
	TreeID int64

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollTreeCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("enroll_tree: user_id is required")
	}
	if c.TreeID <= 0 {
		return errors.New("enroll_tree: tree_id must be positive")
	}
	return nil
}

// EnrollTreeResult contains the result of enrolling.
type EnrollTreeResult struct {
	// Enrollment is the freshly created enrollment.
	Enrollment *enrollment.Enrollment

	// Tree is the enrolled tree.
	Tree *catalog.SkillTree

	// EnrolledAt is when the enrollment was created.
	EnrolledAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnrollTreeHandler handles the EnrollTreeCommand.
type EnrollTreeHandler struct {
	profileRepo    profile.Repository
	treeRepo       catalog.TreeRepository
	enrollmentRepo enrollment.Repository
	eventPublisher shared.EventPublisher
}

// NewEnrollTreeHandler creates a new EnrollTreeHandler.
func NewEnrollTreeHandler(
	profileRepo profile.Repository,
	treeRepo catalog.TreeRepository,
	enrollmentRepo enrollment.Repository,
	eventPublisher shared.EventPublisher,
) *EnrollTreeHandler {
	return &EnrollTreeHandler{
		profileRepo:    profileRepo,
		treeRepo:       treeRepo,
		enrollmentRepo: enrollmentRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the enroll tree command.
func (h *EnrollTreeHandler) Handle(ctx context.Context, cmd EnrollTreeCommand) (*EnrollTreeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("enroll_tree: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	treeID, err := shared.NewTreeID(cmd.TreeID)
	if err != nil {
		return nil, err
	}

	// The user must have a profile before enrolling.
	exists, err := h.profileRepo.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("enroll_tree: failed to check profile: %w", err)
	}
	if !exists {
		return nil, shared.ErrProfileNotFound
	}

	tree, err := h.treeRepo.GetByID(ctx, treeID)
	if err != nil {
		return nil, fmt.Errorf("enroll_tree: failed to get tree: %w", err)
	}

	enr, err := enrollment.NewEnrollment(userID, treeID)
	if err != nil {
		return nil, err
	}

	if err := h.enrollmentRepo.Create(ctx, enr); err != nil {
		return nil, fmt.Errorf("enroll_tree: failed to create enrollment: %w", err)
	}

	if h.eventPublisher != nil {
		event := shared.NewTreeEnrolledEvent(userID.String(), treeID.Int64())
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &EnrollTreeResult{
		Enrollment: enr,
		Tree:       tree,
		EnrolledAt: enr.EnrolledAt,
	}, nil
}
