package query

import (
	"context"

	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ENROLLMENT QUERY
// Returns the user's enrollment state in one tree: status, counters, and
// progress percentage, without the full per-node overlay of GetTreeDetail.
// ══════════════════════════════════════════════════════════════════════════════

// GetEnrollmentQuery contains parameters for the enrollment lookup.
type GetEnrollmentQuery struct {
	// UserID - the enrolled user.
	UserID string

	// TreeID - the tree the enrollment belongs to.
	TreeID int64
}

// Validate checks the query parameters.
func (q GetEnrollmentQuery) Validate() error {
	if q.UserID == "" {
		return shared.ErrInvalidUserID
	}
	if q.TreeID <= 0 {
		return shared.ErrInvalidTreeID
	}
	return nil
}

// GetEnrollmentResult contains the query result.
type GetEnrollmentResult struct {
	// UserID - the enrolled user.
	UserID string `json:"user_id"`

	// Enrollment - the read model.
	Enrollment EnrollmentDTO `json:"enrollment"`
}

// GetEnrollmentHandler handles enrollment lookups.
type GetEnrollmentHandler struct {
	enrollmentRepo enrollment.Repository
}

// NewGetEnrollmentHandler creates a new handler.
func NewGetEnrollmentHandler(enrollmentRepo enrollment.Repository) *GetEnrollmentHandler {
	return &GetEnrollmentHandler{enrollmentRepo: enrollmentRepo}
}

// Handle executes the query.
func (h *GetEnrollmentHandler) Handle(ctx context.Context, query GetEnrollmentQuery) (*GetEnrollmentResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetEnrollment", shared.ErrValidation, err.Error(), err)
	}

	enr, err := h.enrollmentRepo.GetByUserAndTree(ctx,
		shared.UserID(query.UserID), shared.TreeID(query.TreeID))
	if err != nil {
		return nil, err
	}

	return &GetEnrollmentResult{
		UserID:     enr.UserID.String(),
		Enrollment: NewEnrollmentDTO(enr),
	}, nil
}

// NewEnrollmentDTO maps an enrollment to its read model.
func NewEnrollmentDTO(enr *enrollment.Enrollment) EnrollmentDTO {
	return EnrollmentDTO{
		TreeID:             enr.TreeID.Int64(),
		Status:             string(enr.Status),
		NodesCompleted:     enr.NodesCompleted,
		ProgressPercentage: float64(enr.ProgressPercentage),
		XPEarned:           enr.XPEarned,
		EnrolledAt:         enr.EnrolledAt,
		LastAccessedAt:     enr.LastAccessedAt,
	}
}
