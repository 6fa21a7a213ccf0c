// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
	"github.com/skillsphere/progression-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON XP GAINED HANDLER
// Fires on every XP grant, whether from a node completion, an achievement
// bonus, or an administrative award. Its job is to keep the read side
// honest: the cached profile is stale the moment XP lands, so it gets
// dropped and the next read repopulates it from Postgres.
// ══════════════════════════════════════════════════════════════════════════════

// OnXPGainedHandler invalidates cached profiles after XP grants.
type OnXPGainedHandler struct {
	profileCache profile.Cache
	log          *logger.Logger
}

// NewOnXPGainedHandler creates a new handler.
func NewOnXPGainedHandler(profileCache profile.Cache, log *logger.Logger) *OnXPGainedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnXPGainedHandler{
		profileCache: profileCache,
		log:          log.With(logger.Component("on_xp_gained")),
	}
}

// Handle implements shared.EventHandler.
func (h *OnXPGainedHandler) Handle(event shared.Event) error {
	xpEvent, ok := event.(shared.XPGainedEvent)
	if !ok {
		h.log.Warn("received unexpected event",
			logger.EventType(string(event.EventType())))
		return nil
	}

	h.log.Debug("processing xp gained event",
		logger.UserID(xpEvent.UserID),
		logger.XPAmount(xpEvent.Amount),
		logger.String("source", xpEvent.Source))

	if h.profileCache == nil {
		return nil
	}

	ctx := context.Background()
	if err := h.profileCache.Invalidate(ctx, shared.UserID(xpEvent.UserID)); err != nil {
		// A stale cache entry expires on its own TTL; log and move on.
		h.log.Warn("failed to invalidate profile cache",
			logger.UserID(xpEvent.UserID),
			logger.Err(err))
	}

	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnXPGainedHandler) EventType() shared.EventType {
	return shared.EventXPGained
}
