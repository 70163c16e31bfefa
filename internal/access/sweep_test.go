package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/domain"
)

func TestExpireDue_OncePerSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GrantManual(ctx, 1, 1)
	require.NoError(t, err)
	_, err = f.svc.GrantManual(ctx, 2, 10)
	require.NoError(t, err)

	at := t0.Add(25 * time.Hour)
	res, err := f.svc.ExpireDue(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)

	res, err = f.svc.ExpireDue(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Expired)

	assert.Len(t, f.gateway.Calls("RevokeAccess"), 1)
	assert.Equal(t, 1, f.events.count(domain.EventSubscriptionExpired))

	subs, err := f.store.ListSubscriptions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsActive)
	assert.Equal(t, domain.EndExpired, subs[0].EndReason)

	active, err := f.svc.IsActive(ctx, 2)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRemindExpiring_OncePerThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Ends 2026-03-15 12:00.
	_, err := f.svc.GrantManual(ctx, 1, 5)
	require.NoError(t, err)

	tests := []struct {
		at   time.Time
		want int
	}{
		{time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), 0},  // 4 days left
		{time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC), 1},  // 3 days left
		{time.Date(2026, 3, 12, 21, 0, 0, 0, time.UTC), 0}, // same day again
		{time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC), 0},  // 2 days left
		{time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), 1},  // 1 day left
		{time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		res, err := f.svc.RemindExpiring(ctx, tt.at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Reminded, "at %s", tt.at)
	}

	reminders := f.events.subscriptionEvents(domain.EventSubscriptionExpiring)
	require.Len(t, reminders, 2)
	assert.Equal(t, 3, reminders[0].DaysLeft)
	assert.Equal(t, 1, reminders[1].DaysLeft)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GrantManual(ctx, 1, 1)
	require.NoError(t, err)
	_, err = f.svc.GrantManual(ctx, 2, 4)
	require.NoError(t, err)

	res, err := f.svc.Sweep(ctx, time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 1, res.Reminded)
	assert.Equal(t, 0, res.Failed)
}
