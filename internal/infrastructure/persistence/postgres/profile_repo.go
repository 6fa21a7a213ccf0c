package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	db Querier
}

// NewProfileRepository creates a new ProfileRepository backed by the pool.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{db: conn}
}

// newProfileRepositoryTx binds the repository to a transaction.
func newProfileRepositoryTx(tx pgx.Tx) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

const profileColumns = `
	user_id, display_name, level, total_xp, current_xp, xp_to_next_level,
	title, current_streak, longest_streak, last_activity_date,
	total_time_spent_minutes, achievements_count, version, created_at, updated_at
`

// Create creates a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, display_name, level, total_xp, current_xp, xp_to_next_level,
			title, current_streak, longest_streak, last_activity_date,
			total_time_spent_minutes, achievements_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		p.UserID.String(),
		p.DisplayName,
		p.Level.Int(),
		p.TotalXP.Int(),
		p.CurrentXP.Int(),
		p.XPToNextLevel,
		p.Title,
		p.CurrentStreak,
		p.LongestStreak,
		nullableDate(p.LastActivityDate),
		p.TotalTimeSpentMinutes,
		p.AchievementsCount,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByUserID returns the profile for the given user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID shared.UserID) (*profile.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`

	row := r.db.QueryRow(ctx, query, userID.String())
	return scanProfile(row)
}

// Update persists profile changes using the version column for optimistic
// concurrency. The stored version must match the entity's snapshot; the
// write bumps it by one.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.UserProfile) error {
	query := `
		UPDATE user_profiles SET
			display_name = $1,
			level = $2,
			total_xp = $3,
			current_xp = $4,
			xp_to_next_level = $5,
			title = $6,
			current_streak = $7,
			longest_streak = $8,
			last_activity_date = $9,
			total_time_spent_minutes = $10,
			achievements_count = $11,
			version = version + 1,
			updated_at = $12
		WHERE user_id = $13 AND version = $14
	`

	result, err := r.db.Exec(ctx, query,
		p.DisplayName,
		p.Level.Int(),
		p.TotalXP.Int(),
		p.CurrentXP.Int(),
		p.XPToNextLevel,
		p.Title,
		p.CurrentStreak,
		p.LongestStreak,
		nullableDate(p.LastActivityDate),
		p.TotalTimeSpentMinutes,
		p.AchievementsCount,
		time.Now().UTC(),
		p.UserID.String(),
		p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.Exists(ctx, p.UserID)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrOptimisticLock
		}
		return shared.ErrProfileNotFound
	}

	p.Version++
	return nil
}

// Exists checks whether a profile exists for the user.
func (r *ProfileRepository) Exists(ctx context.Context, userID shared.UserID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE user_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanProfile(row pgx.Row) (*profile.UserProfile, error) {
	var p profile.UserProfile
	var userID string
	var level, totalXP, currentXP int
	var lastActivity *time.Time

	err := row.Scan(
		&userID,
		&p.DisplayName,
		&level,
		&totalXP,
		&currentXP,
		&p.XPToNextLevel,
		&p.Title,
		&p.CurrentStreak,
		&p.LongestStreak,
		&lastActivity,
		&p.TotalTimeSpentMinutes,
		&p.AchievementsCount,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.UserID = shared.UserID(userID)
	p.Level = shared.Level(level)
	p.TotalXP = shared.XP(totalXP)
	p.CurrentXP = shared.XP(currentXP)
	if lastActivity != nil {
		p.LastActivityDate = *lastActivity
	}

	return &p, nil
}

// nullableDate maps the zero time to SQL NULL.
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
