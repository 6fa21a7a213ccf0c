package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/catalog"
	"github.com/skillsphere/progression-engine/internal/domain/enrollment"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeNodeRepo struct{ nodes []*catalog.SkillNode }

func (r *fakeNodeRepo) GetByID(_ context.Context, id shared.NodeID) (*catalog.SkillNode, error) {
	for _, n := range r.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, shared.ErrNodeNotFound
}

func (r *fakeNodeRepo) GetByTreeID(_ context.Context, treeID shared.TreeID) ([]*catalog.SkillNode, error) {
	var out []*catalog.SkillNode
	for _, n := range r.nodes {
		if n.TreeID == treeID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNodeRepo) CountByTreeID(ctx context.Context, treeID shared.TreeID) (int, error) {
	nodes, _ := r.GetByTreeID(ctx, treeID)
	return len(nodes), nil
}

// fakeEnrollmentRepo can fail a configured number of Updates with an
// optimistic-lock error before accepting the write.
type fakeEnrollmentRepo struct {
	enrollments     map[shared.TreeID]*enrollment.Enrollment
	updateConflicts int
	updateCalls     int
}

func (r *fakeEnrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	r.enrollments[e.TreeID] = e
	return nil
}

func (r *fakeEnrollmentRepo) GetByUserAndTree(_ context.Context, _ shared.UserID, treeID shared.TreeID) (*enrollment.Enrollment, error) {
	e, ok := r.enrollments[treeID]
	if !ok {
		return nil, shared.ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *fakeEnrollmentRepo) GetByUser(_ context.Context, _ shared.UserID) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) GetByUserAndStatus(_ context.Context, _ shared.UserID, status enrollment.Status) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range r.enrollments {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) Update(_ context.Context, e *enrollment.Enrollment) error {
	r.updateCalls++
	if r.updateConflicts > 0 {
		r.updateConflicts--
		return shared.ErrOptimisticLock
	}
	r.enrollments[e.TreeID] = e
	return nil
}

func (r *fakeEnrollmentRepo) CountByUserAndStatus(_ context.Context, _ shared.UserID, status enrollment.Status) (int, error) {
	count := 0
	for _, e := range r.enrollments {
		if e.Status == status {
			count++
		}
	}
	return count, nil
}

type fakeProgressRepo struct{ records []*enrollment.NodeProgress }

func (r *fakeProgressRepo) Create(_ context.Context, np *enrollment.NodeProgress) error {
	for _, rec := range r.records {
		if rec.UserID == np.UserID && rec.NodeID == np.NodeID {
			return shared.ErrAlreadyExists
		}
	}
	r.records = append(r.records, np)
	return nil
}

func (r *fakeProgressRepo) GetByUserAndNode(_ context.Context, userID shared.UserID, nodeID shared.NodeID) (*enrollment.NodeProgress, error) {
	for _, rec := range r.records {
		if rec.UserID == userID && rec.NodeID == nodeID {
			return rec, nil
		}
	}
	return nil, shared.ErrProgressNotFound
}

func (r *fakeProgressRepo) GetByUserAndTree(_ context.Context, userID shared.UserID, treeID shared.TreeID) ([]*enrollment.NodeProgress, error) {
	var out []*enrollment.NodeProgress
	for _, rec := range r.records {
		if rec.UserID == userID && rec.TreeID == treeID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeProgressRepo) Update(_ context.Context, _ *enrollment.NodeProgress) error {
	return nil
}

func (r *fakeProgressRepo) CountCompletedByUser(_ context.Context, userID shared.UserID) (int, error) {
	count := 0
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Completed {
			count++
		}
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func newStartNodeFixture(t *testing.T) (*StartNodeHandler, *fakeEnrollmentRepo, *fakeProgressRepo) {
	t.Helper()

	nodeRepo := &fakeNodeRepo{nodes: []*catalog.SkillNode{
		{ID: 1, TreeID: 1, OrderIndex: 0},
	}}
	progressRepo := &fakeProgressRepo{}

	enr, err := enrollment.NewEnrollment("u-1042", 1)
	require.NoError(t, err)
	enrollmentRepo := &fakeEnrollmentRepo{
		enrollments: map[shared.TreeID]*enrollment.Enrollment{1: enr},
	}

	return NewStartNodeHandler(nodeRepo, enrollmentRepo, progressRepo), enrollmentRepo, progressRepo
}

func TestStartNode_CreatesProgressAndTouchesEnrollment(t *testing.T) {
	handler, enrollmentRepo, progressRepo := newStartNodeFixture(t)

	before := enrollmentRepo.enrollments[1].LastAccessedAt

	result, err := handler.Handle(context.Background(), StartNodeCommand{
		UserID: "u-1042",
		NodeID: 1,
	})
	require.NoError(t, err)

	assert.False(t, result.AlreadyStarted)
	require.Len(t, progressRepo.records, 1)
	assert.False(t, progressRepo.records[0].Completed)
	assert.False(t, enrollmentRepo.enrollments[1].LastAccessedAt.Before(before))
}

func TestStartNode_SecondStartIsANoOp(t *testing.T) {
	handler, _, progressRepo := newStartNodeFixture(t)

	_, err := handler.Handle(context.Background(), StartNodeCommand{UserID: "u-1042", NodeID: 1})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), StartNodeCommand{UserID: "u-1042", NodeID: 1})
	require.NoError(t, err)

	assert.True(t, result.AlreadyStarted)
	assert.Len(t, progressRepo.records, 1)
}

func TestStartNode_RequiresEnrollment(t *testing.T) {
	handler, enrollmentRepo, _ := newStartNodeFixture(t)
	delete(enrollmentRepo.enrollments, 1)

	_, err := handler.Handle(context.Background(), StartNodeCommand{UserID: "u-1042", NodeID: 1})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestStartNode_TouchRetriesOptimisticConflict(t *testing.T) {
	handler, enrollmentRepo, progressRepo := newStartNodeFixture(t)
	enrollmentRepo.updateConflicts = 1

	_, err := handler.Handle(context.Background(), StartNodeCommand{
		UserID: "u-1042",
		NodeID: 1,
	})
	require.NoError(t, err)

	// One conflicting write, one successful retry.
	assert.Equal(t, 2, enrollmentRepo.updateCalls)
	assert.Len(t, progressRepo.records, 1)
}
