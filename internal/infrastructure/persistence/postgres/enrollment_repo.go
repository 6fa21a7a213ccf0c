package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
type EnrollmentRepository struct {
	db Querier
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{db: conn}
}

// newEnrollmentRepositoryTx binds the repository to a transaction.
func newEnrollmentRepositoryTx(tx pgx.Tx) *EnrollmentRepository {
	return &EnrollmentRepository{db: tx}
}

const enrollmentColumns = `
	id, user_id, tree_id, status, enrolled_at, nodes_completed,
	progress_percentage, xp_earned, last_accessed_at, version, updated_at
`

// Create stores a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (
			user_id, tree_id, status, enrolled_at, nodes_completed,
			progress_percentage, xp_earned, last_accessed_at, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		e.UserID.String(),
		e.TreeID.Int64(),
		string(e.Status),
		e.EnrolledAt,
		e.NodesCompleted,
		float64(e.ProgressPercentage),
		e.XPEarned,
		e.LastAccessedAt,
		e.Version,
		e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetByUserAndTree returns the enrollment for the pair.
func (r *EnrollmentRepository) GetByUserAndTree(ctx context.Context, userID shared.UserID, treeID shared.TreeID) (*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND tree_id = $2`

	row := r.db.QueryRow(ctx, query, userID.String(), treeID.Int64())
	return scanEnrollment(row)
}

// GetByUser returns all enrollments of a user, most recently accessed first.
func (r *EnrollmentRepository) GetByUser(ctx context.Context, userID shared.UserID) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY last_accessed_at DESC`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// GetByUserAndStatus returns the user's enrollments in the given status.
func (r *EnrollmentRepository) GetByUserAndStatus(ctx context.Context, userID shared.UserID, status enrollment.Status) ([]*enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND status = $2 ORDER BY last_accessed_at DESC`

	rows, err := r.db.Query(ctx, query, userID.String(), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments by status: %w", err)
	}
	defer rows.Close()

	return scanEnrollments(rows)
}

// Update persists enrollment changes with optimistic concurrency.
func (r *EnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		UPDATE enrollments SET
			status = $1,
			nodes_completed = $2,
			progress_percentage = $3,
			xp_earned = $4,
			last_accessed_at = $5,
			version = version + 1,
			updated_at = $6
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.Exec(ctx, query,
		string(e.Status),
		e.NodesCompleted,
		float64(e.ProgressPercentage),
		e.XPEarned,
		e.LastAccessedAt,
		time.Now().UTC(),
		e.ID,
		e.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE id = $1)`, e.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check enrollment existence: %w", err)
		}
		if exists {
			return shared.ErrOptimisticLock
		}
		return shared.ErrEnrollmentNotFound
	}

	e.Version++
	return nil
}

// CountByUserAndStatus returns how many enrollments a user has in a status.
func (r *EnrollmentRepository) CountByUserAndStatus(ctx context.Context, userID shared.UserID, status enrollment.Status) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND status = $2`,
		userID.String(), string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements enrollment.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	db Querier
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{db: conn}
}

// newProgressRepositoryTx binds the repository to a transaction.
func newProgressRepositoryTx(tx pgx.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

const progressColumns = `
	id, user_id, node_id, tree_id, completed, started_at,
	completed_at, time_spent_minutes, score
`

// Create stores a new progress record.
func (r *ProgressRepository) Create(ctx context.Context, np *enrollment.NodeProgress) error {
	query := `
		INSERT INTO node_progress (
			user_id, node_id, tree_id, completed, started_at,
			completed_at, time_spent_minutes, score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		np.UserID.String(),
		np.NodeID.Int64(),
		np.TreeID.Int64(),
		np.Completed,
		np.StartedAt,
		np.CompletedAt,
		np.TimeSpentMinutes,
		np.Score,
	).Scan(&np.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("enrollment", "CreateProgress", shared.ErrAlreadyExists,
				"progress record already exists")
		}
		return fmt.Errorf("failed to create progress record: %w", err)
	}

	return nil
}

// GetByUserAndNode returns the progress record for the pair.
func (r *ProgressRepository) GetByUserAndNode(ctx context.Context, userID shared.UserID, nodeID shared.NodeID) (*enrollment.NodeProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM node_progress WHERE user_id = $1 AND node_id = $2`

	row := r.db.QueryRow(ctx, query, userID.String(), nodeID.Int64())
	return scanProgress(row)
}

// GetByUserAndTree returns all progress records of a user within a tree.
func (r *ProgressRepository) GetByUserAndTree(ctx context.Context, userID shared.UserID, treeID shared.TreeID) ([]*enrollment.NodeProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM node_progress WHERE user_id = $1 AND tree_id = $2`

	rows, err := r.db.Query(ctx, query, userID.String(), treeID.Int64())
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	records := make([]*enrollment.NodeProgress, 0)
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Update persists progress changes. When the entity is marked completed,
// the write only lands on a not-yet-completed row: of two racing
// completions exactly one flips the flag, the other gets the conflict.
func (r *ProgressRepository) Update(ctx context.Context, np *enrollment.NodeProgress) error {
	query := `
		UPDATE node_progress SET
			completed = $1,
			completed_at = $2,
			time_spent_minutes = $3,
			score = $4
		WHERE id = $5
	`
	args := []interface{}{np.Completed, np.CompletedAt, np.TimeSpentMinutes, np.Score, np.ID}

	if np.Completed {
		query += ` AND completed = FALSE`
	}

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update progress record: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM node_progress WHERE id = $1)`, np.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check progress existence: %w", err)
		}
		if exists {
			return shared.ErrNodeAlreadyCompleted
		}
		return shared.ErrProgressNotFound
	}

	return nil
}

// CountCompletedByUser returns the user's completed node count across all trees.
func (r *ProgressRepository) CountCompletedByUser(ctx context.Context, userID shared.UserID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM node_progress WHERE user_id = $1 AND completed`,
		userID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed nodes: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	var userID, status string
	var treeID int64
	var progress float64

	err := row.Scan(
		&e.ID,
		&userID,
		&treeID,
		&status,
		&e.EnrolledAt,
		&e.NodesCompleted,
		&progress,
		&e.XPEarned,
		&e.LastAccessedAt,
		&e.Version,
		&e.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	e.UserID = shared.UserID(userID)
	e.TreeID = shared.TreeID(treeID)
	e.Status = enrollment.Status(status)
	e.ProgressPercentage = shared.Percentage(progress)
	return &e, nil
}

func scanEnrollments(rows pgx.Rows) ([]*enrollment.Enrollment, error) {
	enrollments := make([]*enrollment.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func scanProgress(row pgx.Row) (*enrollment.NodeProgress, error) {
	var np enrollment.NodeProgress
	var userID string
	var nodeID, treeID int64

	err := row.Scan(
		&np.ID,
		&userID,
		&nodeID,
		&treeID,
		&np.Completed,
		&np.StartedAt,
		&np.CompletedAt,
		&np.TimeSpentMinutes,
		&np.Score,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress record: %w", err)
	}

	np.UserID = shared.UserID(userID)
	np.NodeID = shared.NodeID(nodeID)
	np.TreeID = shared.TreeID(treeID)
	return &np, nil
}
