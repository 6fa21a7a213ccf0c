// Package saga contains complex business processes that orchestrate
// multiple domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
	"github.com/skillsphere/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT UNLOCK SAGA
// Business process: evaluate the achievement catalog against a user's
// progression stats and grant what is newly earned.
// Flow: Load Profile → Build Stats → Load Catalog & Existing → Evaluate →
//
//	Grant Unlocks → Award XP Bonus → Publish Events
//
// Granting is idempotent per (user, achievement): a concurrent grant of the
// same achievement is skipped, not failed.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementCheckInput contains data needed to check for new achievements.
type AchievementCheckInput struct {
	// UserID - the user to check achievements for.
	UserID string

	// TriggerEvent - what triggered this check (e.g., "node_completed").
	TriggerEvent string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i AchievementCheckInput) Validate() error {
	if i.UserID == "" {
		return errors.New("achievement_unlock: user ID is required")
	}
	return nil
}

// AchievementUnlockResult contains the result of achievement processing.
type AchievementUnlockResult struct {
	// UserID - the user who received achievements.
	UserID string

	// NewAchievements - newly unlocked catalog entries.
	NewAchievements []*achievement.Achievement

	// TotalXPBonus - total XP awarded from all unlocks.
	TotalXPBonus int

	// LeveledUp - true if the XP bonus crossed a level boundary.
	LeveledUp bool

	// ProcessedAt - when the flow completed.
	ProcessedAt time.Time
}

// HasNewAchievements returns true if any achievements were unlocked.
func (r *AchievementUnlockResult) HasNewAchievements() bool {
	return len(r.NewAchievements) > 0
}

// AchievementUnlockStep represents a step in the unlock flow.
type AchievementUnlockStep string

const (
	StepLoadProfile    AchievementUnlockStep = "load_profile"
	StepBuildStats     AchievementUnlockStep = "build_stats"
	StepLoadCatalog    AchievementUnlockStep = "load_catalog"
	StepEvaluate       AchievementUnlockStep = "evaluate"
	StepGrantUnlocks   AchievementUnlockStep = "grant_unlocks"
	StepAwardBonus     AchievementUnlockStep = "award_xp_bonus"
	StepPublishUnlocks AchievementUnlockStep = "publish_events"
	StepUnlockComplete AchievementUnlockStep = "complete"
)

// achievementUnlockState tracks the saga's progress.
type achievementUnlockState struct {
	CurrentStep AchievementUnlockStep
	Input       AchievementCheckInput
	Profile     *profile.UserProfile
	Stats       achievement.Stats
	Catalog     []*achievement.Achievement
	Existing    []*achievement.UserAchievement
	Earned      []*achievement.Achievement
	Granted     []*achievement.Achievement
	TotalBonus  int
	LeveledUp   bool
	StartedAt   time.Time
	FailedStep  AchievementUnlockStep
	Err         error
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementUnlockSaga orchestrates achievement evaluation and granting.
type AchievementUnlockSaga struct {
	profileRepo     profile.Repository
	enrollmentRepo  enrollment.Repository
	progressRepo    enrollment.ProgressRepository
	achievementRepo achievement.Repository
	userAchRepo     achievement.UserRepository
	evaluator       *achievement.Evaluator
	eventBus        shared.EventPublisher
	log             *logger.Logger

	// Configuration
	enableXPBonuses  bool
	maxUnlocksPerRun int
}

// AchievementUnlockConfig contains configuration for the saga.
type AchievementUnlockConfig struct {
	EnableXPBonuses  bool
	MaxUnlocksPerRun int
}

// DefaultAchievementUnlockConfig returns default configuration.
func DefaultAchievementUnlockConfig() AchievementUnlockConfig {
	return AchievementUnlockConfig{
		EnableXPBonuses:  true,
		MaxUnlocksPerRun: 5, // Prevent spam if catalog and stats disagree badly
	}
}

// NewAchievementUnlockSaga creates the saga with all dependencies.
func NewAchievementUnlockSaga(
	profileRepo profile.Repository,
	enrollmentRepo enrollment.Repository,
	progressRepo enrollment.ProgressRepository,
	achievementRepo achievement.Repository,
	userAchRepo achievement.UserRepository,
	eventBus shared.EventPublisher,
	log *logger.Logger,
	config AchievementUnlockConfig,
) *AchievementUnlockSaga {
	if config.MaxUnlocksPerRun <= 0 {
		config = DefaultAchievementUnlockConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	return &AchievementUnlockSaga{
		profileRepo:      profileRepo,
		enrollmentRepo:   enrollmentRepo,
		progressRepo:     progressRepo,
		achievementRepo:  achievementRepo,
		userAchRepo:      userAchRepo,
		evaluator:        achievement.NewEvaluator(),
		eventBus:         eventBus,
		log:              log.With(logger.Component("achievement_unlock_saga")),
		enableXPBonuses:  config.EnableXPBonuses,
		maxUnlocksPerRun: config.MaxUnlocksPerRun,
	}
}

// Execute runs the complete evaluation and granting process.
func (s *AchievementUnlockSaga) Execute(ctx context.Context, input AchievementCheckInput) (*AchievementUnlockResult, error) {
	state := &achievementUnlockState{
		CurrentStep: StepLoadProfile,
		Input:       input,
		StartedAt:   time.Now().UTC(),
	}

	if err := input.Validate(); err != nil {
		state.FailedStep = StepLoadProfile
		return nil, s.wrapError(state, err)
	}

	// Step 1: Load profile
	if err := s.stepLoadProfile(ctx, state); err != nil {
		return nil, s.wrapError(state, err)
	}

	// Step 2: Build progression stats
	state.CurrentStep = StepBuildStats
	if err := s.stepBuildStats(ctx, state); err != nil {
		return nil, s.wrapError(state, err)
	}

	// Step 3: Load catalog and existing unlocks
	state.CurrentStep = StepLoadCatalog
	if err := s.stepLoadCatalog(ctx, state); err != nil {
		return nil, s.wrapError(state, err)
	}

	// Step 4: Evaluate
	state.CurrentStep = StepEvaluate
	state.Earned = s.evaluator.CheckNewAchievements(state.Catalog, state.Existing, state.Stats)
	if len(state.Earned) > s.maxUnlocksPerRun {
		state.Earned = state.Earned[:s.maxUnlocksPerRun]
	}

	if len(state.Earned) == 0 {
		now := time.Now().UTC()
		return &AchievementUnlockResult{
			UserID:          input.UserID,
			NewAchievements: []*achievement.Achievement{},
			ProcessedAt:     now,
		}, nil
	}

	// Step 5: Grant unlocks (persist to DB)
	state.CurrentStep = StepGrantUnlocks
	if err := s.stepGrantUnlocks(ctx, state); err != nil {
		return nil, s.wrapError(state, err)
	}

	// Step 6: Award XP bonuses and bump the achievement counter.
	// Non-critical: the unlock rows are already durable.
	state.CurrentStep = StepAwardBonus
	if err := s.stepAwardBonus(ctx, state); err != nil {
		s.log.Warn("achievement XP bonus failed",
			logger.UserID(input.UserID), logger.Err(err))
	}

	// Step 7: Publish domain events. Non-critical.
	state.CurrentStep = StepPublishUnlocks
	s.stepPublishEvents(state)

	state.CurrentStep = StepUnlockComplete
	now := time.Now().UTC()

	return &AchievementUnlockResult{
		UserID:          input.UserID,
		NewAchievements: state.Granted,
		TotalXPBonus:    state.TotalBonus,
		LeveledUp:       state.LeveledUp,
		ProcessedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA STEPS
// ══════════════════════════════════════════════════════════════════════════════

func (s *AchievementUnlockSaga) stepLoadProfile(ctx context.Context, state *achievementUnlockState) error {
	p, err := s.profileRepo.GetByUserID(ctx, shared.UserID(state.Input.UserID))
	if err != nil {
		state.FailedStep = StepLoadProfile
		return fmt.Errorf("failed to load profile: %w", err)
	}
	state.Profile = p
	return nil
}

func (s *AchievementUnlockSaga) stepBuildStats(ctx context.Context, state *achievementUnlockState) error {
	userID := state.Profile.UserID

	nodesCompleted, err := s.progressRepo.CountCompletedByUser(ctx, userID)
	if err != nil {
		state.FailedStep = StepBuildStats
		return fmt.Errorf("failed to count completed nodes: %w", err)
	}

	treesCompleted, err := s.enrollmentRepo.CountByUserAndStatus(ctx, userID, enrollment.StatusCompleted)
	if err != nil {
		state.FailedStep = StepBuildStats
		return fmt.Errorf("failed to count completed trees: %w", err)
	}

	state.Stats = achievement.Stats{
		TotalXP:        state.Profile.TotalXP.Int(),
		Level:          state.Profile.Level.Int(),
		NodesCompleted: nodesCompleted,
		TreesCompleted: treesCompleted,
		CurrentStreak:  state.Profile.CurrentStreak,
	}
	return nil
}

func (s *AchievementUnlockSaga) stepLoadCatalog(ctx context.Context, state *achievementUnlockState) error {
	catalog, err := s.achievementRepo.GetAll(ctx)
	if err != nil {
		state.FailedStep = StepLoadCatalog
		return fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	state.Catalog = catalog

	existing, err := s.userAchRepo.GetByUser(ctx, state.Profile.UserID)
	if err != nil {
		state.FailedStep = StepLoadCatalog
		return fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	state.Existing = existing
	return nil
}

func (s *AchievementUnlockSaga) stepGrantUnlocks(ctx context.Context, state *achievementUnlockState) error {
	for _, earned := range state.Earned {
		ua, err := achievement.NewUserAchievement(state.Profile.UserID, earned.ID)
		if err != nil {
			state.FailedStep = StepGrantUnlocks
			return err
		}

		if err := s.userAchRepo.Create(ctx, ua); err != nil {
			// A concurrent check already granted this one; skip it.
			if shared.IsAlreadyExists(err) {
				continue
			}
			state.FailedStep = StepGrantUnlocks
			return fmt.Errorf("failed to grant achievement %d: %w", earned.ID.Int64(), err)
		}

		state.Granted = append(state.Granted, earned)
	}
	return nil
}

func (s *AchievementUnlockSaga) stepAwardBonus(ctx context.Context, state *achievementUnlockState) error {
	if !s.enableXPBonuses || len(state.Granted) == 0 {
		return nil
	}

	totalBonus := 0
	for _, granted := range state.Granted {
		totalBonus += granted.EffectiveXPReward()
	}

	// Reload-and-store with retry: concurrent writers bump the profile
	// version, so a stale snapshot surfaces as an optimistic-lock error.
	err := retry.OptimisticLockRetrier().Do(ctx, func(ctx context.Context) error {
		p, err := s.profileRepo.GetByUserID(ctx, state.Profile.UserID)
		if err != nil {
			return retry.Permanent(err)
		}

		award, err := p.AwardXP(totalBonus)
		if err != nil {
			return retry.Permanent(err)
		}
		for range state.Granted {
			p.IncrementAchievements()
		}

		if err := s.profileRepo.Update(ctx, p); err != nil {
			if shared.IsRetryable(err) {
				return retry.Retryable(err)
			}
			return err
		}

		state.Profile = p
		state.LeveledUp = award.LeveledUp
		return nil
	})
	if err != nil {
		return err
	}

	state.TotalBonus = totalBonus
	return nil
}

func (s *AchievementUnlockSaga) stepPublishEvents(state *achievementUnlockState) {
	if s.eventBus == nil {
		return
	}

	for _, granted := range state.Granted {
		event := shared.NewAchievementUnlockedEvent(
			state.Profile.UserID.String(),
			granted.ID.Int64(),
			granted.Title,
			string(granted.Rarity),
			granted.EffectiveXPReward(),
		)
		if state.Input.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(state.Input.CorrelationID)
		}
		if err := s.eventBus.Publish(event); err != nil {
			s.log.Warn("failed to publish achievement event",
				logger.UserID(state.Input.UserID), logger.Err(err))
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONVENIENCE TRIGGERS
// ══════════════════════════════════════════════════════════════════════════════

// CheckAfterNodeCompletion checks achievements after a node completion.
func (s *AchievementUnlockSaga) CheckAfterNodeCompletion(
	ctx context.Context,
	userID, correlationID string,
) (*AchievementUnlockResult, error) {
	return s.Execute(ctx, AchievementCheckInput{
		UserID:        userID,
		TriggerEvent:  "node_completed",
		CorrelationID: correlationID,
	})
}

// CheckAfterLevelUp checks achievements after a level up.
func (s *AchievementUnlockSaga) CheckAfterLevelUp(
	ctx context.Context,
	userID string,
) (*AchievementUnlockResult, error) {
	return s.Execute(ctx, AchievementCheckInput{
		UserID:       userID,
		TriggerEvent: "level_up",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// AchievementUnlockError represents an error during the unlock flow.
type AchievementUnlockError struct {
	Step    AchievementUnlockStep
	UserID  string
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *AchievementUnlockError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AchievementUnlockError) Unwrap() error {
	return e.Cause
}

// wrapError wraps an error with saga context.
func (s *AchievementUnlockSaga) wrapError(state *achievementUnlockState, err error) error {
	return &AchievementUnlockError{
		Step:    state.FailedStep,
		UserID:  state.Input.UserID,
		Cause:   err,
		Message: fmt.Sprintf("achievement unlock failed at step '%s': %v", state.FailedStep, err),
	}
}
