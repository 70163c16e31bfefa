package mission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository/memory"
)

func init() {
	_ = logger.Init("error", "json")
}

var start = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fakePoints struct {
	mu      sync.Mutex
	entries []domain.PointsEntry
	err     error
}

func (f *fakePoints) AwardPoints(_ context.Context, userID, amount int64, reason string) (domain.PointsBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && amount > 0 {
		return domain.PointsBalance{}, f.err
	}
	f.entries = append(f.entries, domain.PointsEntry{UserID: userID, Delta: amount, Reason: reason})
	return domain.PointsBalance{UserID: userID, Total: f.total()}, nil
}

func (f *fakePoints) total() int64 {
	var sum int64
	for _, e := range f.entries {
		sum += e.Delta
	}
	return sum
}

type fakeFragments struct {
	unlocked []string
	err      error
}

func (f *fakeFragments) UnlockFragment(_ context.Context, _ int64, fragment, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.unlocked = append(f.unlocked, fragment)
	return true, nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Payload
}

func (r *recorder) Route(_ context.Context, p domain.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, p := range r.events {
		out = append(out, p.EventType())
	}
	return out
}

type fixture struct {
	store     *memory.Store
	events    *recorder
	points    *fakePoints
	fragments *fakeFragments
	svc       *Service
	clock     time.Time
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(
		Definition{ID: "plain", Reward: Reward{Points: 20}},
		Definition{ID: "timed", TimeLimit: time.Hour, Reward: Reward{Points: 5}},
		Definition{ID: "rich", Reward: Reward{Points: 30, Fragment: "fragment_rich"}},
	)
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T, catalog *Catalog) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewStore(),
		events:    &recorder{},
		points:    &fakePoints{},
		fragments: &fakeFragments{},
		clock:     start,
	}
	f.svc = NewService(f.store, f.events, catalog, f.points, f.fragments).
		WithClock(func() time.Time { return f.clock })
	return f
}

func TestStart(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	rec, err := f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionInProgress, rec.Status)
	assert.Equal(t, 0.0, rec.Progress)
	assert.Equal(t, start, rec.StartedAt)

	_, err = f.svc.UpdateProgress(ctx, 1, "plain", 40)
	require.NoError(t, err)

	f.clock = start.Add(time.Minute)
	again, err := f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	assert.Equal(t, 40.0, again.Progress, "restarting an in-progress mission keeps progress")
	assert.Equal(t, start, again.StartedAt)

	assert.Equal(t, []domain.EventType{domain.EventMissionStarted}, f.events.types())
}

func TestStart_UnknownMission(t *testing.T) {
	f := newFixture(t, testCatalog(t))

	_, err := f.svc.Start(context.Background(), 1, "nope")
	assert.ErrorIs(t, err, ErrMissionNotFound)
}

func TestStart_RestartsFailed(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	_, err := f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	_, err = f.svc.UpdateProgress(ctx, 1, "plain", 70)
	require.NoError(t, err)
	_, err = f.svc.Fail(ctx, 1, "plain", "gave_up")
	require.NoError(t, err)

	f.clock = start.Add(2 * time.Hour)
	rec, err := f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionInProgress, rec.Status)
	assert.Equal(t, 0.0, rec.Progress)
	assert.Equal(t, f.clock, rec.StartedAt)
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		wantValue  float64
		wantStatus domain.MissionStatus
	}{
		{"partial", 42.5, 42.5, domain.MissionInProgress},
		{"negative clamps to zero", -10, 0, domain.MissionInProgress},
		{"exactly complete", 100, 100, domain.MissionCompleted},
		{"overshoot clamps and completes", 250, 100, domain.MissionCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testCatalog(t))
			ctx := context.Background()
			_, err := f.svc.Start(ctx, 1, "plain")
			require.NoError(t, err)

			rec, err := f.svc.UpdateProgress(ctx, 1, "plain", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, rec.Progress)
			assert.Equal(t, tt.wantStatus, rec.Status)
			if tt.wantStatus == domain.MissionCompleted {
				require.NotNil(t, rec.CompletedAt)
				assert.Contains(t, f.events.types(), domain.EventMissionCompleted)
			}
		})
	}
}

func TestUpdateProgress_RequiresInProgress(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	_, err := f.svc.UpdateProgress(ctx, 1, "plain", 10)
	assert.ErrorIs(t, err, ErrNotInProgress)

	_, err = f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	_, err = f.svc.UpdateProgress(ctx, 1, "plain", 100)
	require.NoError(t, err)

	_, err = f.svc.UpdateProgress(ctx, 1, "plain", 50)
	assert.ErrorIs(t, err, ErrNotInProgress, "completed is terminal")

	completed := 0
	for _, et := range f.events.types() {
		if et == domain.EventMissionCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestFail(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	_, err := f.svc.Fail(ctx, 1, "plain", "manual")
	assert.ErrorIs(t, err, ErrNotInProgress)

	_, err = f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	rec, err := f.svc.Fail(ctx, 1, "plain", "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionFailed, rec.Status)

	last := f.events.events[len(f.events.events)-1].(domain.MissionPayload)
	assert.Equal(t, domain.EventMissionFailed, last.Type)
	assert.Equal(t, "manual", last.Reason)
}

func completeMission(t *testing.T, f *fixture, userID int64, missionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Start(ctx, userID, missionID)
	require.NoError(t, err)
	_, err = f.svc.UpdateProgress(ctx, userID, missionID, 100)
	require.NoError(t, err)
}

func TestClaimReward(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()
	completeMission(t, f, 1, "rich")

	reward, err := f.svc.ClaimReward(ctx, 1, "rich")
	require.NoError(t, err)
	assert.Equal(t, Reward{Points: 30, Fragment: "fragment_rich"}, reward)
	assert.Equal(t, int64(30), f.points.total())
	assert.Equal(t, []string{"fragment_rich"}, f.fragments.unlocked)
	assert.Contains(t, f.events.types(), domain.EventMissionRewardClaimed)

	_, err = f.svc.ClaimReward(ctx, 1, "rich")
	assert.ErrorIs(t, err, ErrRewardClaimed)
	assert.Equal(t, int64(30), f.points.total(), "second claim grants nothing")
}

func TestClaimReward_NotCompleted(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	_, err := f.svc.ClaimReward(ctx, 1, "plain")
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = f.svc.Start(ctx, 1, "plain")
	require.NoError(t, err)
	_, err = f.svc.ClaimReward(ctx, 1, "plain")
	assert.ErrorIs(t, err, ErrNotCompleted)
	assert.Empty(t, f.points.entries)
}

func TestClaimReward_PointsFailureRevertsClaim(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()
	completeMission(t, f, 1, "plain")
	f.points.err = errors.New("ledger down")

	_, err := f.svc.ClaimReward(ctx, 1, "plain")
	require.Error(t, err)

	rec, err := f.store.GetMissionProgress(ctx, 1, "plain")
	require.NoError(t, err)
	assert.False(t, rec.RewardClaimed)

	f.points.err = nil
	_, err = f.svc.ClaimReward(ctx, 1, "plain")
	require.NoError(t, err, "claim can be retried after a failure")
	assert.Equal(t, int64(20), f.points.total())
}

func TestClaimReward_FragmentFailureReversesPoints(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()
	completeMission(t, f, 1, "rich")
	f.fragments.err = errors.New("persona store down")

	_, err := f.svc.ClaimReward(ctx, 1, "rich")
	require.Error(t, err)

	assert.Equal(t, int64(0), f.points.total())
	require.Len(t, f.points.entries, 2)
	assert.Equal(t, ReasonRewardReversal, f.points.entries[1].Reason)

	rec, err := f.store.GetMissionProgress(ctx, 1, "rich")
	require.NoError(t, err)
	assert.False(t, rec.RewardClaimed)
}

func TestClaimReward_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()
	completeMission(t, f, 1, "plain")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ClaimReward(ctx, 1, "plain"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(20), f.points.total())
}

func TestFailExpired(t *testing.T) {
	f := newFixture(t, testCatalog(t))
	ctx := context.Background()

	_, err := f.svc.Start(ctx, 1, "timed")
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, 2, "plain")
	require.NoError(t, err)
	f.clock = start.Add(30 * time.Minute)
	_, err = f.svc.Start(ctx, 3, "timed")
	require.NoError(t, err)

	n, err := f.svc.FailExpired(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.store.GetMissionProgress(ctx, 1, "timed")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionFailed, rec.Status)

	for _, key := range []struct {
		user int64
		id   string
	}{{2, "plain"}, {3, "timed"}} {
		rec, err := f.store.GetMissionProgress(ctx, key.user, key.id)
		require.NoError(t, err)
		assert.Equal(t, domain.MissionInProgress, rec.Status)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t, testCatalog(t))

	_, err := f.svc.Get(context.Background(), 1, "plain")
	assert.ErrorIs(t, err, ErrMissionNotFound)
	assert.True(t, apperrors.IsRejected(err))
}

func TestTriggers_AutoStartAndAdvance(t *testing.T) {
	catalog, err := NewCatalog(
		Definition{ID: "three", Trigger: &Trigger{Event: domain.EventChannelReaction, Goal: 3}, AutoStart: true},
		Definition{ID: "manual", Trigger: &Trigger{Event: domain.EventChannelReaction, Goal: 1}},
	)
	require.NoError(t, err)

	store := memory.NewStore()
	router := domain.NewEventRouter()
	svc := NewService(store, router, catalog, &fakePoints{}, &fakeFragments{}).
		WithClock(func() time.Time { return start })
	svc.Register(router)

	completed := 0
	router.Register(domain.EventMissionCompleted, "test.observe", func(context.Context, domain.Event) error {
		completed++
		return nil
	})

	ctx := context.Background()
	reaction := domain.ChannelReactionPayload{UserID: 7, ChannelID: 1}

	router.Route(ctx, reaction)
	rec, err := store.GetMissionProgress(ctx, 7, "three")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionInProgress, rec.Status)
	assert.InDelta(t, 100.0/3, rec.Progress, 1e-9)

	_, err = store.GetMissionProgress(ctx, 7, "manual")
	assert.True(t, apperrors.IsNotFound(err), "missions without auto_start wait for an explicit start")

	router.Route(ctx, reaction)
	router.Route(ctx, reaction)
	rec, err = store.GetMissionProgress(ctx, 7, "three")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionCompleted, rec.Status)
	assert.Equal(t, 100.0, rec.Progress)
	assert.Equal(t, 1, completed)

	router.Route(ctx, reaction)
	assert.Equal(t, 1, completed, "completed missions do not advance")
}

func TestTriggers_MatchFiltersInteractions(t *testing.T) {
	catalog, err := NewCatalog(
		Definition{ID: "kind", Trigger: &Trigger{Event: domain.EventPersonaInteraction, Match: "empathy", Goal: 2}, AutoStart: true},
	)
	require.NoError(t, err)

	store := memory.NewStore()
	router := domain.NewEventRouter()
	svc := NewService(store, router, catalog, &fakePoints{}, &fakeFragments{}).
		WithClock(func() time.Time { return start })
	svc.Register(router)
	ctx := context.Background()

	router.Route(ctx, domain.PersonaInteractionPayload{UserID: 4, Interaction: "provocation"})
	_, err = store.GetMissionProgress(ctx, 4, "kind")
	assert.True(t, apperrors.IsNotFound(err), "non-matching interactions neither start nor advance")

	router.Route(ctx, domain.PersonaInteractionPayload{UserID: 4, Interaction: "empathy"})
	router.Route(ctx, domain.PersonaInteractionPayload{UserID: 4, Interaction: "analysis"})
	rec, err := store.GetMissionProgress(ctx, 4, "kind")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionInProgress, rec.Status)
	assert.InDelta(t, 50.0, rec.Progress, 1e-9)

	router.Route(ctx, domain.PersonaInteractionPayload{UserID: 4, Interaction: "empathy"})
	rec, err = store.GetMissionProgress(ctx, 4, "kind")
	require.NoError(t, err)
	assert.Equal(t, domain.MissionCompleted, rec.Status)
}
