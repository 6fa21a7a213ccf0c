// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PROFILE COMMAND
// Creates the progression ledger for a user. Exactly one profile exists per
// user; a second create for the same user is a conflict.
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileCommand contains the data to create a profile.
type CreateProfileCommand struct {
	// UserID is the external account identifier.
	UserID string

	// DisplayName is the optional display name.
	DisplayName string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateProfileCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("create_profile: user_id is required")
	}
	return nil
}

// CreateProfileResult contains the result of creating a profile.
type CreateProfileResult struct {
	// Profile is the freshly created profile.
	Profile *profile.UserProfile

	// CreatedAt is when the profile was created.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfileHandler handles the CreateProfileCommand.
type CreateProfileHandler struct {
	profileRepo    profile.Repository
	eventPublisher shared.EventPublisher
}

// NewCreateProfileHandler creates a new CreateProfileHandler.
func NewCreateProfileHandler(
	profileRepo profile.Repository,
	eventPublisher shared.EventPublisher,
) *CreateProfileHandler {
	return &CreateProfileHandler{
		profileRepo:    profileRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the create profile command.
func (h *CreateProfileHandler) Handle(ctx context.Context, cmd CreateProfileCommand) (*CreateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_profile: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	p, err := profile.NewProfile(userID, cmd.DisplayName)
	if err != nil {
		return nil, err
	}

	if err := h.profileRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create_profile: failed to create profile: %w", err)
	}

	if h.eventPublisher != nil {
		event := shared.NewProfileCreatedEvent(userID.String(), p.DisplayName)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &CreateProfileResult{
		Profile:   p,
		CreatedAt: p.CreatedAt,
	}, nil
}
