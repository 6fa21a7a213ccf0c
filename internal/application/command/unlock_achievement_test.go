package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/progression-engine/internal/domain/achievement"
	"github.com/skillsphere/progression-engine/internal/domain/profile"
	"github.com/skillsphere/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeAchievementRepo struct{ entries []*achievement.Achievement }

func (r *fakeAchievementRepo) GetByID(_ context.Context, id shared.AchievementID) (*achievement.Achievement, error) {
	for _, a := range r.entries {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, shared.ErrAchievementNotFound
}

func (r *fakeAchievementRepo) GetAll(_ context.Context) ([]*achievement.Achievement, error) {
	return r.entries, nil
}

type fakeUserAchRepo struct{ unlocks []*achievement.UserAchievement }

func (r *fakeUserAchRepo) Create(_ context.Context, ua *achievement.UserAchievement) error {
	for _, existing := range r.unlocks {
		if existing.UserID == ua.UserID && existing.AchievementID == ua.AchievementID {
			return shared.ErrAlreadyUnlocked
		}
	}
	r.unlocks = append(r.unlocks, ua)
	return nil
}

func (r *fakeUserAchRepo) GetByUser(_ context.Context, userID shared.UserID) ([]*achievement.UserAchievement, error) {
	var out []*achievement.UserAchievement
	for _, ua := range r.unlocks {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	return out, nil
}

func (r *fakeUserAchRepo) GetRecentByUser(ctx context.Context, userID shared.UserID, limit int) ([]*achievement.UserAchievement, error) {
	out, _ := r.GetByUser(ctx, userID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserAchRepo) Has(_ context.Context, userID shared.UserID, achievementID shared.AchievementID) (bool, error) {
	for _, ua := range r.unlocks {
		if ua.UserID == userID && ua.AchievementID == achievementID {
			return true, nil
		}
	}
	return false, nil
}

// fakeProfileRepo clones on read and write like a real store would, and can
// fail a configured number of Updates with an optimistic-lock error.
type fakeProfileRepo struct {
	profiles        map[shared.UserID]*profile.UserProfile
	updateConflicts int
	updateCalls     int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[shared.UserID]*profile.UserProfile)}
}

func (r *fakeProfileRepo) Create(_ context.Context, p *profile.UserProfile) error {
	if _, ok := r.profiles[p.UserID]; ok {
		return shared.ErrProfileAlreadyExists
	}
	r.profiles[p.UserID] = p.Clone()
	return nil
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID shared.UserID) (*profile.UserProfile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *profile.UserProfile) error {
	r.updateCalls++
	if r.updateConflicts > 0 {
		r.updateConflicts--
		return shared.ErrOptimisticLock
	}
	if _, ok := r.profiles[p.UserID]; !ok {
		return shared.ErrProfileNotFound
	}
	r.profiles[p.UserID] = p.Clone()
	return nil
}

func (r *fakeProfileRepo) Exists(_ context.Context, userID shared.UserID) (bool, error) {
	_, ok := r.profiles[userID]
	return ok, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func newUnlockFixture(t *testing.T) (*UnlockAchievementHandler, *fakeProfileRepo, *fakeUserAchRepo) {
	t.Helper()

	achRepo := &fakeAchievementRepo{entries: []*achievement.Achievement{
		{ID: 1, Title: "First Steps", Rarity: achievement.RarityCommon, XPReward: 75},
		{ID: 2, Title: "Marathon", Rarity: achievement.RarityEpic},
	}}
	userAchRepo := &fakeUserAchRepo{}
	profileRepo := newFakeProfileRepo()

	p, err := profile.NewProfile("u-1042", "Alice")
	require.NoError(t, err)
	require.NoError(t, profileRepo.Create(context.Background(), p))

	return NewUnlockAchievementHandler(achRepo, userAchRepo, profileRepo, nil), profileRepo, userAchRepo
}

func TestUnlockAchievement_GrantsRecordAndXP(t *testing.T) {
	handler, profileRepo, userAchRepo := newUnlockFixture(t)

	result, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "First Steps", result.Achievement.Title)
	assert.Equal(t, 75, result.XPAwarded)
	assert.False(t, result.LeveledUp)
	require.Len(t, userAchRepo.unlocks, 1)

	p := profileRepo.profiles["u-1042"]
	assert.Equal(t, 75, p.TotalXP.Int())
	assert.Equal(t, 1, p.AchievementsCount)
}

func TestUnlockAchievement_DefaultRewardWhenUnset(t *testing.T) {
	handler, profileRepo, _ := newUnlockFixture(t)

	result, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, achievement.DefaultXPReward, result.XPAwarded)
	assert.Equal(t, achievement.DefaultXPReward, profileRepo.profiles["u-1042"].TotalXP.Int())
}

func TestUnlockAchievement_SecondUnlockIsAConflict(t *testing.T) {
	handler, profileRepo, userAchRepo := newUnlockFixture(t)

	_, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 1,
	})
	require.NoError(t, err)

	_, err = handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 1,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyUnlocked)

	// Exactly one record, exactly one XP grant.
	require.Len(t, userAchRepo.unlocks, 1)
	assert.Equal(t, 75, profileRepo.profiles["u-1042"].TotalXP.Int())
	assert.Equal(t, 1, profileRepo.profiles["u-1042"].AchievementsCount)
}

func TestUnlockAchievement_UnknownAchievement(t *testing.T) {
	handler, _, userAchRepo := newUnlockFixture(t)

	_, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 99,
	})
	assert.ErrorIs(t, err, shared.ErrAchievementNotFound)
	assert.Empty(t, userAchRepo.unlocks)
}

func TestUnlockAchievement_UnknownProfile(t *testing.T) {
	handler, _, userAchRepo := newUnlockFixture(t)

	_, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-ghost",
		AchievementID: 1,
	})
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
	assert.Empty(t, userAchRepo.unlocks)
}

func TestUnlockAchievement_InputValidation(t *testing.T) {
	handler, _, _ := newUnlockFixture(t)

	_, err := handler.Handle(context.Background(), UnlockAchievementCommand{AchievementID: 1})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), UnlockAchievementCommand{UserID: "u-1042"})
	assert.Error(t, err)
}

func TestUnlockAchievement_RetriesOptimisticConflict(t *testing.T) {
	handler, profileRepo, _ := newUnlockFixture(t)
	profileRepo.updateConflicts = 1

	result, err := handler.Handle(context.Background(), UnlockAchievementCommand{
		UserID:        "u-1042",
		AchievementID: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, profileRepo.updateCalls)
	assert.Equal(t, 75, result.Profile.TotalXP.Int())
	assert.Equal(t, 75, profileRepo.profiles["u-1042"].TotalXP.Int())
}
