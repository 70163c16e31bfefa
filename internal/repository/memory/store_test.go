package memory

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
	"keeper.dev/keeper/internal/repository"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedPlan(t *testing.T, s *Store) domain.Plan {
	t.Helper()
	plan := domain.Plan{ID: "plan-30", Name: "Monthly", DurationDays: 30, Active: true, CreatedAt: t0}
	require.NoError(t, s.CreatePlan(context.Background(), plan))
	return plan
}

func buildFor(userID int64, id string) repository.RedeemBuilder {
	return func(tok domain.InviteToken, plan domain.Plan) (domain.Subscription, error) {
		return domain.Subscription{
			ID:        id,
			UserID:    userID,
			PlanID:    plan.ID,
			Source:    domain.SourceToken,
			StartDate: t0,
			EndDate:   t0.Add(plan.Duration()),
			IsActive:  true,
		}, nil
	}
}

func TestMutateMissionProgress_CreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	rec, err := s.MutateMissionProgress(ctx, 7, "m1", func(rec *domain.MissionProgress, found bool) error {
		assert.False(t, found)
		assert.Equal(t, domain.MissionPending, rec.Status)
		rec.Status = domain.MissionInProgress
		rec.StartedAt = t0
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MissionInProgress, rec.Status)

	_, err = s.MutateMissionProgress(ctx, 7, "m1", func(rec *domain.MissionProgress, found bool) error {
		assert.True(t, found)
		rec.Progress = 50
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetMissionProgress(ctx, 7, "m1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Progress)

	n, err := s.CountMissionsByStatus(ctx, 7, domain.MissionInProgress)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMutateMissionProgress_ErrorAborts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	_, err := s.MutateMissionProgress(ctx, 1, "m1", func(*domain.MissionProgress, bool) error { return boom })
	require.ErrorIs(t, err, boom)

	_, err = s.GetMissionProgress(ctx, 1, "m1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMutateMissionProgress_Serialized(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.MutateMissionProgress(ctx, 1, "m1", func(rec *domain.MissionProgress, _ bool) error {
				rec.Progress++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.GetMissionProgress(ctx, 1, "m1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Progress)
}

func TestRedeemInviteToken(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	plan := seedPlan(t, s)
	require.NoError(t, s.CreateInviteToken(ctx, domain.InviteToken{Token: "tok", PlanID: plan.ID, ExpiresAt: t0.Add(time.Hour)}))

	sub, err := s.RedeemInviteToken(ctx, "tok", 42, t0, buildFor(42, "sub-1"))
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)

	tok, err := s.GetInviteToken(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, tok.IsUsed)
	require.NotNil(t, tok.UsedBy)
	assert.Equal(t, int64(42), *tok.UsedBy)

	active, err := s.GetActiveSubscription(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", active.ID)
}

func TestRedeemInviteToken_BuilderErrorLeavesTokenUnused(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	plan := seedPlan(t, s)
	require.NoError(t, s.CreateInviteToken(ctx, domain.InviteToken{Token: "tok", PlanID: plan.ID, ExpiresAt: t0.Add(time.Hour)}))

	rejected := apperrors.Conflict(apperrors.CodeInviteTokenUsed, "used")
	_, err := s.RedeemInviteToken(ctx, "tok", 42, t0, func(domain.InviteToken, domain.Plan) (domain.Subscription, error) {
		return domain.Subscription{}, rejected
	})
	require.ErrorIs(t, err, rejected)

	tok, err := s.GetInviteToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, tok.IsUsed)
}

func TestRedeemInviteToken_ActiveSubscriptionConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	plan := seedPlan(t, s)
	require.NoError(t, s.CreateSubscription(ctx, domain.Subscription{ID: "existing", UserID: 42, IsActive: true, EndDate: t0.Add(time.Hour)}))
	require.NoError(t, s.CreateInviteToken(ctx, domain.InviteToken{Token: "tok", PlanID: plan.ID, ExpiresAt: t0.Add(time.Hour)}))

	_, err := s.RedeemInviteToken(ctx, "tok", 42, t0, buildFor(42, "sub-2"))
	require.ErrorIs(t, err, apperrors.ErrConflict)

	tok, err := s.GetInviteToken(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, tok.IsUsed)
}

func TestRedeemInviteToken_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	plan := seedPlan(t, s)
	require.NoError(t, s.CreateInviteToken(ctx, domain.InviteToken{Token: "tok", PlanID: plan.ID, ExpiresAt: t0.Add(time.Hour)}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := s.RedeemInviteToken(ctx, "tok", user, t0, func(tok domain.InviteToken, plan domain.Plan) (domain.Subscription, error) {
				if tok.IsUsed {
					return domain.Subscription{}, apperrors.Conflict(apperrors.CodeInviteTokenUsed, "used")
				}
				return buildFor(user, "sub-"+string(rune('a'+user)))(tok, plan)
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestSubscriptionTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateSubscription(ctx, domain.Subscription{ID: "s1", UserID: 1, IsActive: true, EndDate: t0}))

	err := s.CreateSubscription(ctx, domain.Subscription{ID: "s2", UserID: 1, IsActive: true, EndDate: t0})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	ok, err := s.MarkReminderSent(ctx, "s1", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkReminderSent(ctx, "s1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DeactivateSubscription(ctx, "s1", domain.EndExpired, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeactivateSubscription(ctx, "s1", domain.EndRevoked, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	subs, err := s.ListSubscriptions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.EndExpired, subs[0].EndReason)
	assert.Equal(t, []int{3}, subs[0].RemindersSent)

	_, err = s.GetActiveSubscription(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestJoinRequests(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateJoinRequest(ctx, domain.JoinRequest{ID: "j1", UserID: 1, AcceptAt: t0}))
	require.NoError(t, s.CreateJoinRequest(ctx, domain.JoinRequest{ID: "j2", UserID: 2, AcceptAt: t0.Add(time.Hour)}))

	due, err := s.ListDueJoinRequests(ctx, t0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "j1", due[0].ID)

	ok, err := s.MarkJoinRequestProcessed(ctx, "j1", true, t0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkJoinRequestProcessed(ctx, "j1", false, t0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetJoinRequest(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, got.Accepted)
}

func TestPersona_CloneIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	rec, err := s.MutatePersona(ctx, 1, func(rec *domain.PersonaState, found bool) error {
		assert.False(t, found)
		rec.EmotionalState = "enigmatic"
		rec.AddFragment("f1")
		return nil
	})
	require.NoError(t, err)

	rec.UnlockedFragments[0] = "mutated"

	got, err := s.GetPersona(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, got.UnlockedFragments)
}

func TestPointsAndAchievements(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	bal, err := s.GetPoints(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, bal.Total)

	_, err = s.AddPoints(ctx, domain.PointsEntry{ID: "p1", UserID: 1, Delta: 5, Reason: "reaction", CreatedAt: t0})
	require.NoError(t, err)
	bal, err = s.AddPoints(ctx, domain.PointsEntry{ID: "p2", UserID: 1, Delta: 10, Reason: "mission", CreatedAt: t0.Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, int64(15), bal.Total)

	entries, err := s.ListPointsEntries(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p2", entries[0].ID)

	inserted, err := s.InsertAchievement(ctx, domain.AchievementGrant{UserID: 1, Achievement: "a", UnlockedAt: t0})
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = s.InsertAchievement(ctx, domain.AchievementGrant{UserID: 1, Achievement: "a", UnlockedAt: t0})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestPosts_FailureCap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreatePost(ctx, domain.ScheduledPost{ID: "p1", ScheduledAt: t0}))

	for i := 1; i <= 3; i++ {
		post, err := s.RecordPostFailure(ctx, "p1", "gateway down", 3)
		require.NoError(t, err)
		assert.Equal(t, i, post.Attempts)
		assert.Equal(t, i == 3, post.Failed)
	}

	due, err := s.ListDuePosts(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestAudit_FilterAndRetention(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.AppendAuditEntry(ctx, domain.AuditEntry{ID: "a1", EventType: domain.EventChannelReaction, RecordedAt: t0}))
	require.NoError(t, s.AppendAuditEntry(ctx, domain.AuditEntry{ID: "a2", EventType: domain.EventPointsAwarded, RecordedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.AppendAuditEntry(ctx, domain.AuditEntry{ID: "a3", EventType: domain.EventChannelReaction, RecordedAt: t0.Add(2 * time.Hour)}))

	got, err := s.ListAuditEntries(ctx, repository.AuditFilter{EventType: domain.EventChannelReaction})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a3", got[0].ID)

	deleted, err := s.DeleteAuditEntriesBefore(ctx, t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	got, err = s.ListAuditEntries(ctx, repository.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a3", got[0].ID)
}
