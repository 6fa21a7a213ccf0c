package eventhandler

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/application/saga"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON LEVEL UP HANDLER
// A level-up can satisfy level_reached achievement criteria. Node
// completions already run the check inline, but administrative XP awards
// only surface here, so the handler re-runs the evaluation whenever a
// level boundary is crossed.
// ══════════════════════════════════════════════════════════════════════════════

// OnLevelUpHandler reacts to level-up events.
type OnLevelUpHandler struct {
	achievementSaga *saga.AchievementUnlockSaga
	profileCache    profile.Cache
	log             *logger.Logger
}

// NewOnLevelUpHandler creates a new handler. Both dependencies may be nil.
func NewOnLevelUpHandler(
	achievementSaga *saga.AchievementUnlockSaga,
	profileCache profile.Cache,
	log *logger.Logger,
) *OnLevelUpHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnLevelUpHandler{
		achievementSaga: achievementSaga,
		profileCache:    profileCache,
		log:             log.With(logger.Component("on_level_up")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnLevelUpHandler) Handle(event shared.Event) error {
	levelEvent, ok := event.(shared.LevelUpEvent)
	if !ok {
		h.log.Warn("received unexpected event",
			logger.EventType(string(event.EventType())))
		return nil
	}

	h.log.Info("user leveled up",
		logger.UserID(levelEvent.UserID),
		logger.Int("old_level", levelEvent.OldLevel),
		logger.LevelNumber(levelEvent.NewLevel),
		logger.String("new_title", levelEvent.NewTitle))

	ctx := context.Background()

	if h.profileCache != nil {
		if err := h.profileCache.Invalidate(ctx, shared.UserID(levelEvent.UserID)); err != nil {
			h.log.Warn("failed to invalidate profile cache",
				logger.UserID(levelEvent.UserID),
				logger.Err(err))
		}
	}

	if h.achievementSaga != nil {
		result, err := h.achievementSaga.CheckAfterLevelUp(ctx, levelEvent.UserID)
		if err != nil {
			h.log.Warn("achievement check failed after level up",
				logger.UserID(levelEvent.UserID),
				logger.Err(err))
			return nil
		}
		if result.HasNewAchievements() {
			h.log.Info("level up unlocked achievements",
				logger.UserID(levelEvent.UserID),
				logger.Int("count", len(result.NewAchievements)))
		}
	}

	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnLevelUpHandler) EventType() shared.EventType {
	return shared.EventLevelUp
}
