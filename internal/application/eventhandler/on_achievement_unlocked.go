package eventhandler

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ACHIEVEMENT UNLOCKED HANDLER
// An unlock changes the profile's achievement counter and usually its XP,
// so the cached profile has to go. The unlock itself is also worth a
// structured log line for downstream analytics.
// ══════════════════════════════════════════════════════════════════════════════

// OnAchievementUnlockedHandler reacts to achievement unlocks.
type OnAchievementUnlockedHandler struct {
	profileCache profile.Cache
	log          *logger.Logger
}

// NewOnAchievementUnlockedHandler creates a new handler.
func NewOnAchievementUnlockedHandler(profileCache profile.Cache, log *logger.Logger) *OnAchievementUnlockedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnAchievementUnlockedHandler{
		profileCache: profileCache,
		log:          log.With(logger.Component("on_achievement_unlocked")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnAchievementUnlockedHandler) Handle(event shared.Event) error {
	achEvent, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		h.log.Warn("received unexpected event",
			logger.EventType(string(event.EventType())))
		return nil
	}

	h.log.Info("achievement unlocked",
		logger.UserID(achEvent.UserID),
		logger.AchievementID(achEvent.AchievementID),
		logger.String("title", achEvent.Title),
		logger.String("rarity", achEvent.Rarity),
		logger.XPAmount(achEvent.XPReward))

	if h.profileCache == nil {
		return nil
	}

	ctx := context.Background()
	if err := h.profileCache.Invalidate(ctx, shared.UserID(achEvent.UserID)); err != nil {
		h.log.Warn("failed to invalidate profile cache",
			logger.UserID(achEvent.UserID),
			logger.Err(err))
	}

	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnAchievementUnlockedHandler) EventType() shared.EventType {
	return shared.EventAchievementUnlocked
}
