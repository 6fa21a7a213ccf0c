package enrollment

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence operations for enrollments.
type Repository interface {
	// Create stores a new enrollment.
	// Returns shared.ErrAlreadyEnrolled if the (user, tree) pair exists.
	Create(ctx context.Context, e *Enrollment) error

	// GetByUserAndTree returns the enrollment for the pair.
	// Returns shared.ErrEnrollmentNotFound if none exists.
	GetByUserAndTree(ctx context.Context, userID shared.UserID, treeID shared.TreeID) (*Enrollment, error)

	// GetByUser returns all enrollments of a user, most recently accessed first.
	GetByUser(ctx context.Context, userID shared.UserID) ([]*Enrollment, error)

	// GetByUserAndStatus returns the user's enrollments in the given status.
	GetByUserAndStatus(ctx context.Context, userID shared.UserID, status Status) ([]*Enrollment, error)

	// Update persists enrollment changes using the entity's Version for
	// optimistic concurrency. Returns shared.ErrOptimisticLock on a stale
	// version, shared.ErrEnrollmentNotFound if the record is gone.
	Update(ctx context.Context, e *Enrollment) error

	// CountByUserAndStatus returns how many enrollments a user has in a status.
	CountByUserAndStatus(ctx context.Context, userID shared.UserID, status Status) (int, error)
}

// ProgressRepository defines persistence operations for per-node progress.
type ProgressRepository interface {
	// Create stores a new progress record.
	// Returns shared.ErrAlreadyExists if the (user, node) pair exists.
	Create(ctx context.Context, np *NodeProgress) error

	// GetByUserAndNode returns the progress record for the pair.
	// Returns shared.ErrProgressNotFound if none exists.
	GetByUserAndNode(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*NodeProgress, error)

	// GetByUserAndTree returns all progress records of a user within a tree.
	GetByUserAndTree(ctx context.Context, userID shared.UserID, treeID shared.TreeID) ([]*NodeProgress, error)

	// Update persists progress changes.
	Update(ctx context.Context, np *NodeProgress) error

	// CountCompletedByUser returns the user's completed node count across all trees.
	CountCompletedByUser(ctx context.Context, userID shared.UserID) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK (transactions)
// Node completion touches progress, enrollment, and profile in one atomic
// step; the unit of work scopes all three repositories to one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork represents a transactional unit of work.
type UnitOfWork interface {
	// Enrollments returns the enrollment repository bound to the transaction.
	Enrollments() Repository

	// Progress returns the progress repository bound to the transaction.
	Progress() ProgressRepository

	// Profiles returns the profile repository bound to the transaction.
	Profiles() profile.Repository

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory creates units of work.
type UnitOfWorkFactory interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (UnitOfWork, error)
}
