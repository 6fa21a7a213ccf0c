package postgres

import (
	"context"
	"fmt"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	db Querier
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{db: conn}
}

const achievementColumns = `
	id, title, description, icon_name, criteria, xp_reward, rarity, created_at
`

// GetByID returns an achievement by ID.
func (r *AchievementRepository) GetByID(ctx context.Context, id shared.AchievementID) (*achievement.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id.Int64())
	return scanAchievement(row)
}

// GetAll returns the whole catalog.
func (r *AchievementRepository) GetAll(ctx context.Context) ([]*achievement.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	entries := make([]*achievement.Achievement, 0)
	for rows.Next() {
		entry, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ACHIEVEMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievementRepository implements achievement.UserRepository for PostgreSQL.
type UserAchievementRepository struct {
	db Querier
}

// NewUserAchievementRepository creates a new UserAchievementRepository.
func NewUserAchievementRepository(conn *Connection) *UserAchievementRepository {
	return &UserAchievementRepository{db: conn}
}

// Create stores an unlock record.
func (r *UserAchievementRepository) Create(ctx context.Context, ua *achievement.UserAchievement) error {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		ua.UserID.String(),
		ua.AchievementID.Int64(),
		ua.UnlockedAt,
	).Scan(&ua.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyUnlocked
		}
		return fmt.Errorf("failed to create unlock record: %w", err)
	}

	return nil
}

// GetByUser returns all of a user's unlocks, newest first.
func (r *UserAchievementRepository) GetByUser(ctx context.Context, userID shared.UserID) ([]*achievement.UserAchievement, error) {
	query := `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unlocks: %w", err)
	}
	defer rows.Close()

	return scanUserAchievements(rows)
}

// GetRecentByUser returns the user's most recent unlocks, newest first.
func (r *UserAchievementRepository) GetRecentByUser(ctx context.Context, userID shared.UserID, limit int) ([]*achievement.UserAchievement, error) {
	query := `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent unlocks: %w", err)
	}
	defer rows.Close()

	return scanUserAchievements(rows)
}

// Has checks whether the user holds the achievement.
func (r *UserAchievementRepository) Has(ctx context.Context, userID shared.UserID, achievementID shared.AchievementID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_achievements WHERE user_id = $1 AND achievement_id = $2)`

	var has bool
	if err := r.db.QueryRow(ctx, query, userID.String(), achievementID.Int64()).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return has, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row Mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanAchievement(row pgx.Row) (*achievement.Achievement, error) {
	var a achievement.Achievement
	var id int64
	var criteria, rarity string

	err := row.Scan(
		&id,
		&a.Title,
		&a.Description,
		&a.IconName,
		&criteria,
		&a.XPReward,
		&rarity,
		&a.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to scan achievement: %w", err)
	}

	parsed, err := achievement.ParseCriteria(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to parse criteria %q: %w", criteria, err)
	}

	a.ID = shared.AchievementID(id)
	a.Criteria = parsed
	a.Rarity = achievement.Rarity(rarity)
	return &a, nil
}

func scanUserAchievements(rows pgx.Rows) ([]*achievement.UserAchievement, error) {
	unlocks := make([]*achievement.UserAchievement, 0)
	for rows.Next() {
		var ua achievement.UserAchievement
		var userID string
		var achievementID int64

		if err := rows.Scan(&ua.ID, &userID, &achievementID, &ua.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock record: %w", err)
		}

		ua.UserID = shared.UserID(userID)
		ua.AchievementID = shared.AchievementID(achievementID)
		unlocks = append(unlocks, &ua)
	}
	return unlocks, rows.Err()
}
