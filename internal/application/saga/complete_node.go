package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
	"github.com/skillsphere/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// NODE COMPLETION SAGA
// Business process: mark a skill node as completed and propagate the
// consequences through the user's progression.
// Flow: Load Catalog → [TX: Mark Progress → Update Enrollment → Award XP] →
//
//	Resolve Unlocks → Publish Events → Check Achievements
//
// The bracketed steps run inside a single database transaction, so a
// completion either lands in full or not at all. The achievement check is
// non-critical: its failure never rolls the completion back.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteNodeInput contains data needed to complete a node.
type CompleteNodeInput struct {
	// UserID - the user completing the node.
	UserID string

	// NodeID - the node being completed.
	NodeID int64

	// TimeSpentMinutes - optional learning time to record (0 if unknown).
	TimeSpentMinutes int

	// Score - optional quiz/challenge score.
	Score *int

	// CorrelationID for tracing. Generated when empty.
	CorrelationID string
}

// Validate checks if the input is valid.
func (i CompleteNodeInput) Validate() error {
	if i.UserID == "" {
		return errors.New("complete_node: user ID is required")
	}
	if i.NodeID <= 0 {
		return shared.ErrInvalidNodeID
	}
	if i.TimeSpentMinutes < 0 {
		return errors.New("complete_node: time spent cannot be negative")
	}
	return nil
}

// CompleteNodeResult contains the outcome of a node completion.
type CompleteNodeResult struct {
	// UserID - the completing user.
	UserID string

	// NodeID - the completed node.
	NodeID int64

	// TreeID - the tree the node belongs to.
	TreeID int64

	// XPEarned - XP granted for this node.
	XPEarned int

	// NewLevel - the user's level after the grant.
	NewLevel int

	// LeveledUp - true if the grant crossed a level boundary.
	LeveledUp bool

	// NodesCompleted - completed nodes in the tree after this one.
	NodesCompleted int

	// TotalNodes - total nodes in the tree.
	TotalNodes int

	// ProgressPercentage - tree progress after this completion.
	ProgressPercentage float64

	// TreeCompleted - true if this completion finished the tree.
	TreeCompleted bool

	// UnlockedNodeIDs - nodes that became available because of this completion.
	UnlockedNodeIDs []int64

	// NewAchievements - achievements unlocked by the follow-up check.
	// Empty when the check found nothing or was skipped.
	NewAchievements []*achievement.Achievement

	// CompletedAt - when the completion was recorded.
	CompletedAt time.Time
}

// CompletionStep represents a step in the completion flow.
type CompletionStep string

const (
	StepLoadCatalogData  CompletionStep = "load_catalog"
	StepMarkProgress     CompletionStep = "mark_progress"
	StepUpdateEnrollment CompletionStep = "update_enrollment"
	StepAwardXP          CompletionStep = "award_xp"
	StepCommitTx         CompletionStep = "commit"
	StepResolveUnlocks   CompletionStep = "resolve_unlocks"
	StepPublishCompleted CompletionStep = "publish_events"
	StepAchievements     CompletionStep = "check_achievements"
	StepFlowComplete     CompletionStep = "complete"
)

// completionTxOutcome carries the transaction's results out of the retry loop.
type completionTxOutcome struct {
	Profile         *profile.UserProfile
	Award           profile.XPAward
	Enrollment      *enrollment.Enrollment
	CompletedBefore enrollment.CompletionSet
	TreeCompleted   bool
	StreakChange    profile.StreakChange
	PreviousStreak  int
	DaysMissed      int
	CompletedAt     time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompleteNodeSaga orchestrates the node completion process.
type CompleteNodeSaga struct {
	uowFactory   enrollment.UnitOfWorkFactory
	nodeRepo     catalog.NodeRepository
	treeRepo     catalog.TreeRepository
	achievements *AchievementUnlockSaga
	eventBus     shared.EventPublisher
	log          *logger.Logger

	// Configuration
	maxTxAttempts int
}

// CompleteNodeConfig contains configuration for the saga.
type CompleteNodeConfig struct {
	// MaxTxAttempts bounds retries of the completion transaction when a
	// concurrent writer invalidates an optimistic version.
	MaxTxAttempts int
}

// DefaultCompleteNodeConfig returns default configuration.
func DefaultCompleteNodeConfig() CompleteNodeConfig {
	return CompleteNodeConfig{MaxTxAttempts: 4}
}

// NewCompleteNodeSaga creates the saga with all dependencies.
// The achievement saga and event bus may be nil; both are non-critical.
func NewCompleteNodeSaga(
	uowFactory enrollment.UnitOfWorkFactory,
	nodeRepo catalog.NodeRepository,
	treeRepo catalog.TreeRepository,
	achievements *AchievementUnlockSaga,
	eventBus shared.EventPublisher,
	log *logger.Logger,
	config CompleteNodeConfig,
) *CompleteNodeSaga {
	if config.MaxTxAttempts <= 0 {
		config = DefaultCompleteNodeConfig()
	}
	if log == nil {
		log = logger.Default()
	}

	return &CompleteNodeSaga{
		uowFactory:    uowFactory,
		nodeRepo:      nodeRepo,
		treeRepo:      treeRepo,
		achievements:  achievements,
		eventBus:      eventBus,
		log:           log.With(logger.Component("complete_node_saga")),
		maxTxAttempts: config.MaxTxAttempts,
	}
}

// Execute runs the complete node completion process.
func (s *CompleteNodeSaga) Execute(ctx context.Context, input CompleteNodeInput) (*CompleteNodeResult, error) {
	if err := input.Validate(); err != nil {
		return nil, s.wrapError(StepLoadCatalogData, input, err)
	}

	correlationID := input.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	userID := shared.UserID(input.UserID)
	nodeID := shared.NodeID(input.NodeID)

	// Step 1: Load the catalog data the flow needs. Catalog rows are
	// immutable during a completion, so this can happen outside the
	// transaction.
	node, err := s.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, s.wrapError(StepLoadCatalogData, input, err)
	}

	tree, err := s.treeRepo.GetByID(ctx, node.TreeID)
	if err != nil {
		return nil, s.wrapError(StepLoadCatalogData, input, err)
	}

	treeNodes, err := s.nodeRepo.GetByTreeID(ctx, node.TreeID)
	if err != nil {
		return nil, s.wrapError(StepLoadCatalogData, input, err)
	}

	// Steps 2-4: the transactional core, retried on optimistic-lock
	// conflicts. Each attempt re-reads all state, so a loser of a
	// concurrent race observes the winner's writes on its next attempt.
	outcome, err := retry.DoWithData(ctx,
		func(ctx context.Context) (completionTxOutcome, error) {
			return s.runCompletionTx(ctx, userID, node, tree, treeNodes, input)
		},
		retry.WithMaxAttempts(s.maxTxAttempts),
		retry.WithInitialDelay(20*time.Millisecond),
		retry.WithMaxDelay(250*time.Millisecond),
		retry.WithRetryIf(func(err error) bool {
			return retry.IsRetryable(err) || shared.IsRetryable(err)
		}),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			s.log.Debug("retrying node completion",
				logger.UserID(input.UserID),
				logger.NodeID(input.NodeID),
				logger.Int("attempt", attempt),
				logger.Err(err))
		}),
	)
	if err != nil {
		return nil, s.wrapError(StepCommitTx, input, err)
	}

	// Step 5: Resolve which nodes this completion made available.
	unlocked := enrollment.NewlyUnlocked(treeNodes, outcome.CompletedBefore, node.ID)
	unlockedIDs := make([]int64, 0, len(unlocked))
	for _, id := range unlocked {
		unlockedIDs = append(unlockedIDs, id.Int64())
	}

	xpEarned := node.EffectiveXPReward()

	s.log.Info("node completed",
		logger.UserID(input.UserID),
		logger.NodeID(input.NodeID),
		logger.TreeID(node.TreeID.Int64()),
		logger.XPAmount(xpEarned),
		logger.Bool("tree_completed", outcome.TreeCompleted))

	// Step 6: Publish domain events. Non-critical.
	s.publishCompletionEvents(node, tree, outcome, input.TimeSpentMinutes, correlationID)

	result := &CompleteNodeResult{
		UserID:             input.UserID,
		NodeID:             input.NodeID,
		TreeID:             node.TreeID.Int64(),
		XPEarned:           xpEarned,
		NewLevel:           outcome.Award.NewLevel.Int(),
		LeveledUp:          outcome.Award.LeveledUp,
		NodesCompleted:     outcome.Enrollment.NodesCompleted,
		TotalNodes:         tree.TotalNodes,
		ProgressPercentage: float64(outcome.Enrollment.ProgressPercentage),
		TreeCompleted:      outcome.TreeCompleted,
		UnlockedNodeIDs:    unlockedIDs,
		NewAchievements:    []*achievement.Achievement{},
		CompletedAt:        outcome.CompletedAt,
	}

	// Step 7: Check achievements. Non-critical: the completion is already
	// durable, so a failing check is logged and the result returned as-is.
	if s.achievements != nil {
		achResult, achErr := s.achievements.CheckAfterNodeCompletion(ctx, input.UserID, correlationID)
		if achErr != nil {
			s.log.Warn("achievement check failed after node completion",
				logger.UserID(input.UserID),
				logger.NodeID(input.NodeID),
				logger.Err(achErr))
		} else if achResult.HasNewAchievements() {
			result.NewAchievements = achResult.NewAchievements
		}
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTIONAL CORE
// ══════════════════════════════════════════════════════════════════════════════

// runCompletionTx executes one attempt of the critical section: mark the
// progress row, update the enrollment, and award XP to the profile, all
// within a single unit of work.
func (s *CompleteNodeSaga) runCompletionTx(
	ctx context.Context,
	userID shared.UserID,
	node *catalog.SkillNode,
	tree *catalog.SkillTree,
	treeNodes []*catalog.SkillNode,
	input CompleteNodeInput,
) (completionTxOutcome, error) {
	var out completionTxOutcome

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback(ctx)

	// The enrollment must exist before anything else happens.
	enr, err := uow.Enrollments().GetByUserAndTree(ctx, userID, node.TreeID)
	if err != nil {
		if shared.IsNotFound(err) {
			return out, retry.Permanent(shared.ErrNotEnrolled)
		}
		return out, err
	}

	// Snapshot completion state before this node is marked, both for the
	// lock check and for the unlock diff afterwards.
	records, err := uow.Progress().GetByUserAndTree(ctx, userID, node.TreeID)
	if err != nil {
		return out, err
	}
	completedBefore := enrollment.NewCompletionSet(records)

	if enrollment.IsNodeLocked(node, treeNodes, completedBefore) {
		return out, retry.Permanent(shared.ErrNodeLocked)
	}

	// Mark the progress row. A row may already exist from StartNode; only
	// a row already marked completed is a conflict.
	var np *enrollment.NodeProgress
	for _, rec := range records {
		if rec.NodeID == node.ID {
			np = rec
			break
		}
	}

	if np != nil {
		if err := np.Complete(input.TimeSpentMinutes, input.Score); err != nil {
			return out, retry.Permanent(err)
		}
		if err := uow.Progress().Update(ctx, np); err != nil {
			return out, err
		}
	} else {
		np, err = enrollment.NewNodeProgress(userID, node.ID, node.TreeID)
		if err != nil {
			return out, retry.Permanent(err)
		}
		if err := np.Complete(input.TimeSpentMinutes, input.Score); err != nil {
			return out, retry.Permanent(err)
		}
		if err := uow.Progress().Create(ctx, np); err != nil {
			// A concurrent completion created the row first; retry so the
			// next attempt observes it and reports the conflict.
			if shared.IsAlreadyExists(err) {
				return out, retry.Retryable(err)
			}
			return out, err
		}
	}

	// Update the enrollment counters, flipping it to completed when this
	// was the last node.
	xpEarned := node.EffectiveXPReward()
	treeCompleted := enr.RecordNodeCompletion(tree.TotalNodes, xpEarned)
	if err := uow.Enrollments().Update(ctx, enr); err != nil {
		return out, err
	}

	// Award the node's XP and record the activity on the profile.
	p, err := uow.Profiles().GetByUserID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return out, retry.Permanent(err)
		}
		return out, err
	}

	now := time.Now().UTC()
	previousStreak := p.CurrentStreak
	daysMissed := p.DaysSinceLastActivity(now)

	award, err := p.AwardXP(xpEarned)
	if err != nil {
		return out, retry.Permanent(err)
	}
	streakChange := p.RecordActivity(now)
	if err := p.AddTimeSpent(input.TimeSpentMinutes); err != nil {
		return out, retry.Permanent(err)
	}

	if err := uow.Profiles().Update(ctx, p); err != nil {
		return out, err
	}

	if err := uow.Commit(ctx); err != nil {
		return out, fmt.Errorf("failed to commit completion: %w", err)
	}

	return completionTxOutcome{
		Profile:         p,
		Award:           award,
		Enrollment:      enr,
		CompletedBefore: completedBefore,
		TreeCompleted:   treeCompleted,
		StreakChange:    streakChange,
		PreviousStreak:  previousStreak,
		DaysMissed:      daysMissed,
		CompletedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT PUBLICATION
// ══════════════════════════════════════════════════════════════════════════════

func (s *CompleteNodeSaga) publishCompletionEvents(
	node *catalog.SkillNode,
	tree *catalog.SkillTree,
	outcome completionTxOutcome,
	timeSpentMinutes int,
	correlationID string,
) {
	if s.eventBus == nil {
		return
	}

	userID := outcome.Profile.UserID.String()
	xpEarned := node.EffectiveXPReward()

	completed := shared.NewNodeCompletedEvent(userID, node.TreeID.Int64(), node.ID.Int64(), xpEarned)
	completed.NodesCompleted = outcome.Enrollment.NodesCompleted
	completed.ProgressPercent = float64(outcome.Enrollment.ProgressPercentage)
	completed.TimeSpentMinutes = timeSpentMinutes
	completed.BaseEvent = completed.BaseEvent.WithCorrelationID(correlationID)
	s.publish(completed)

	gained := shared.NewXPGainedEvent(userID, xpEarned, outcome.Profile.TotalXP.Int(), "node_completion")
	gained.NodeID = node.ID.Int64()
	gained.BaseEvent = gained.BaseEvent.WithCorrelationID(correlationID)
	s.publish(gained)

	if outcome.Award.LeveledUp {
		levelUp := shared.NewLevelUpEvent(userID,
			outcome.Award.OldLevel.Int(), outcome.Award.NewLevel.Int(), outcome.Profile.Title)
		levelUp.BaseEvent = levelUp.BaseEvent.WithCorrelationID(correlationID)
		s.publish(levelUp)
	}

	if outcome.TreeCompleted {
		treeDone := shared.NewTreeCompletedEvent(userID, tree.ID.Int64(),
			tree.TotalNodes, outcome.Enrollment.XPEarned)
		treeDone.BaseEvent = treeDone.BaseEvent.WithCorrelationID(correlationID)
		s.publish(treeDone)
	}

	switch outcome.StreakChange {
	case profile.StreakStarted, profile.StreakExtended:
		streak := shared.NewStreakUpdatedEvent(userID,
			outcome.Profile.CurrentStreak, outcome.Profile.LongestStreak)
		streak.BaseEvent = streak.BaseEvent.WithCorrelationID(correlationID)
		s.publish(streak)
	case profile.StreakReset:
		broken := shared.NewStreakBrokenEvent(userID, outcome.PreviousStreak, outcome.DaysMissed)
		broken.BaseEvent = broken.BaseEvent.WithCorrelationID(correlationID)
		s.publish(broken)
	}
}

func (s *CompleteNodeSaga) publish(event shared.Event) {
	if err := s.eventBus.Publish(event); err != nil {
		s.log.Warn("failed to publish event",
			logger.EventType(string(event.EventType())),
			logger.Err(err))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// CompleteNodeError represents an error during the completion flow.
type CompleteNodeError struct {
	Step    CompletionStep
	UserID  string
	NodeID  int64
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *CompleteNodeError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CompleteNodeError) Unwrap() error {
	return e.Cause
}

// wrapError wraps an error with saga context.
func (s *CompleteNodeSaga) wrapError(step CompletionStep, input CompleteNodeInput, err error) error {
	return &CompleteNodeError{
		Step:    step,
		UserID:  input.UserID,
		NodeID:  input.NodeID,
		Cause:   err,
		Message: fmt.Sprintf("node completion failed at step '%s': %v", step, err),
	}
}
