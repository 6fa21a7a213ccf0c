package query

import (
	"context"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET JOURNEY QUERY
// The dashboard view: profile, every enrollment with its progress, recent
// achievements, and aggregate stats in a single response.
// ══════════════════════════════════════════════════════════════════════════════

// RecentAchievementsLimit caps how many recent unlocks the dashboard shows.
const RecentAchievementsLimit = 5

// GetJourneyQuery contains parameters for the dashboard lookup.
type GetJourneyQuery struct {
	// UserID - the user whose journey is requested.
	UserID string
}

// Validate checks the query parameters.
func (q GetJourneyQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	return nil
}

// EnrollmentDTO is the read model for one enrollment on the dashboard.
type EnrollmentDTO struct {
	// TreeID - the enrolled tree.
	TreeID int64 `json:"tree_id"`

	// Status - active, completed, or paused.
	Status string `json:"status"`

	// NodesCompleted - completed node count.
	NodesCompleted int `json:"nodes_completed"`

	// ProgressPercentage - completion ratio, rounded to two decimals.
	ProgressPercentage float64 `json:"progress_percentage"`

	// XPEarned - XP earned within this tree.
	XPEarned int `json:"xp_earned"`

	// EnrolledAt - when the user enrolled.
	EnrolledAt time.Time `json:"enrolled_at"`

	// LastAccessedAt - last interaction with the tree.
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// RecentAchievementDTO is a recently unlocked achievement.
type RecentAchievementDTO struct {
	// AchievementID - catalog identifier.
	AchievementID int64 `json:"achievement_id"`

	// Title - display title.
	Title string `json:"title"`

	// IconName - icon reference.
	IconName string `json:"icon_name,omitempty"`

	// Rarity - common, rare, epic, or legendary.
	Rarity string `json:"rarity"`

	// UnlockedAt - when the user earned it.
	UnlockedAt time.Time `json:"unlocked_at"`
}

// JourneyStatsDTO aggregates the user's progression numbers.
type JourneyStatsDTO struct {
	// TotalTreesEnrolled - trees the user ever enrolled in.
	TotalTreesEnrolled int `json:"total_trees_enrolled"`

	// TotalTreesCompleted - trees finished to 100%.
	TotalTreesCompleted int `json:"total_trees_completed"`

	// TotalNodesCompleted - nodes completed across all trees.
	TotalNodesCompleted int `json:"total_nodes_completed"`

	// TotalTimeSpentHours - accumulated learning time in whole hours.
	TotalTimeSpentHours int `json:"total_time_spent_hours"`

	// CurrentStreak - consecutive active days.
	CurrentStreak int `json:"current_streak"`

	// LongestStreak - best streak ever.
	LongestStreak int `json:"longest_streak"`
}

// GetJourneyResult contains the query result.
type GetJourneyResult struct {
	// Profile - the user's progression ledger.
	Profile ProfileDTO `json:"profile"`

	// Enrollments - every enrollment, most recently accessed first.
	Enrollments []EnrollmentDTO `json:"enrollments"`

	// RecentAchievements - latest unlocks, newest first.
	RecentAchievements []RecentAchievementDTO `json:"recent_achievements"`

	// Stats - aggregate progression numbers.
	Stats JourneyStatsDTO `json:"stats"`

	// GeneratedAt - when the dashboard was produced.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetJourneyHandler handles dashboard lookups.
type GetJourneyHandler struct {
	profileRepo     profile.Repository
	enrollmentRepo  enrollment.Repository
	progressRepo    enrollment.ProgressRepository
	achievementRepo achievement.Repository
	userAchRepo     achievement.UserRepository
}

// NewGetJourneyHandler creates a new handler.
func NewGetJourneyHandler(
	profileRepo profile.Repository,
	enrollmentRepo enrollment.Repository,
	progressRepo enrollment.ProgressRepository,
	achievementRepo achievement.Repository,
	userAchRepo achievement.UserRepository,
) *GetJourneyHandler {
	return &GetJourneyHandler{
		profileRepo:     profileRepo,
		enrollmentRepo:  enrollmentRepo,
		progressRepo:    progressRepo,
		achievementRepo: achievementRepo,
		userAchRepo:     userAchRepo,
	}
}

// Handle executes the query.
func (h *GetJourneyHandler) Handle(ctx context.Context, query GetJourneyQuery) (*GetJourneyResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetJourney", shared.ErrValidation, err.Error(), err)
	}

	userID := shared.UserID(query.UserID)

	p, err := h.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollments, err := h.enrollmentRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	nodesCompleted, err := h.progressRepo.CountCompletedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &GetJourneyResult{
		Profile:            NewProfileDTO(p),
		Enrollments:        make([]EnrollmentDTO, 0, len(enrollments)),
		RecentAchievements: []RecentAchievementDTO{},
		GeneratedAt:        time.Now().UTC(),
	}

	treesCompleted := 0
	for _, enr := range enrollments {
		if enr.IsCompleted() {
			treesCompleted++
		}
		result.Enrollments = append(result.Enrollments, NewEnrollmentDTO(enr))
	}

	result.Stats = JourneyStatsDTO{
		TotalTreesEnrolled:  len(enrollments),
		TotalTreesCompleted: treesCompleted,
		TotalNodesCompleted: nodesCompleted,
		TotalTimeSpentHours: p.TotalTimeSpentHours(),
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
	}

	// Recent unlocks are decoration on the dashboard; a failing lookup
	// should not take the whole journey down.
	recent, err := h.userAchRepo.GetRecentByUser(ctx, userID, RecentAchievementsLimit)
	if err == nil {
		for _, ua := range recent {
			entry, err := h.achievementRepo.GetByID(ctx, ua.AchievementID)
			if err != nil {
				continue
			}
			result.RecentAchievements = append(result.RecentAchievements, RecentAchievementDTO{
				AchievementID: entry.ID.Int64(),
				Title:         entry.Title,
				IconName:      entry.IconName,
				Rarity:        string(entry.Rarity),
				UnlockedAt:    ua.UnlockedAt,
			})
		}
	}

	return result, nil
}
