package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

type stubEnrollmentRepo struct {
	enrollments map[shared.TreeID]*enrollment.Enrollment
}

func (r *stubEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	r.enrollments[e.TreeID] = e
	return nil
}

func (r *stubEnrollmentRepo) GetByUserAndTree(_ context.Context, userID shared.UserID, treeID shared.TreeID) (*enrollment.Enrollment, error) {
	e, ok := r.enrollments[treeID]
	if !ok || e.UserID != userID {
		return nil, shared.ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *stubEnrollmentRepo) GetByUser(_ context.Context, userID shared.UserID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubEnrollmentRepo) GetByUserAndStatus(_ context.Context, userID shared.UserID, status enrollment.Status) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID && e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	r.enrollments[e.TreeID] = e
	return nil
}

func (r *stubEnrollmentRepo) CountByUserAndStatus(_ context.Context, userID shared.UserID, status enrollment.Status) (int, error) {
	count := 0
	for _, e := range r.enrollments {
		if e.UserID == userID && e.Status == status {
			count++
		}
	}
	return count, nil
}

func TestGetEnrollment_ReturnsProgressSnapshot(t *testing.T) {
	enr, err := enrollment.NewEnrollment("u-1042", 7)
	require.NoError(t, err)
	enr.RecordNodeCompletion(4, 25)

	repo := &stubEnrollmentRepo{enrollments: map[shared.TreeID]*enrollment.Enrollment{7: enr}}
	h := NewGetEnrollmentHandler(repo)

	result, err := h.Handle(context.Background(), GetEnrollmentQuery{UserID: "u-1042", TreeID: 7})
	require.NoError(t, err)

	assert.Equal(t, "u-1042", result.UserID)
	assert.Equal(t, int64(7), result.Enrollment.TreeID)
	assert.Equal(t, string(enrollment.StatusActive), result.Enrollment.Status)
	assert.Equal(t, 1, result.Enrollment.NodesCompleted)
	assert.Equal(t, 25, result.Enrollment.XPEarned)
	assert.InDelta(t, 25.0, result.Enrollment.ProgressPercentage, 0.001)
}

func TestGetEnrollment_NotEnrolled(t *testing.T) {
	repo := &stubEnrollmentRepo{enrollments: map[shared.TreeID]*enrollment.Enrollment{}}
	h := NewGetEnrollmentHandler(repo)

	_, err := h.Handle(context.Background(), GetEnrollmentQuery{UserID: "u-1042", TreeID: 7})
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotFound)
}

func TestGetEnrollment_InputValidation(t *testing.T) {
	h := NewGetEnrollmentHandler(&stubEnrollmentRepo{})

	_, err := h.Handle(context.Background(), GetEnrollmentQuery{TreeID: 7})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)

	_, err = h.Handle(context.Background(), GetEnrollmentQuery{UserID: "u-1042"})
	assert.ErrorIs(t, err, shared.ErrInvalidTreeID)
}
