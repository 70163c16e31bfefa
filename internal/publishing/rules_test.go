package publishing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/domain"
)

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		in        string
		wantEvent domain.EventType
		wantMatch string
		wantErr   bool
	}{
		{"ACHIEVEMENT_UNLOCKED:level_maestro", domain.EventAchievementUnlocked, "level_maestro", false},
		{"MISSION_COMPLETED", domain.EventMissionCompleted, "", false},
		{" FRAGMENT_UNLOCKED:a:b ", domain.EventFragmentUnlocked, "a:b", false},
		{":orphan", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			event, match, err := ParseTrigger(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, event)
			assert.Equal(t, tt.wantMatch, match)
		})
	}
}

func TestRegisterRules_PublishesOnMatch(t *testing.T) {
	svc, _, gw, router := newService(t, 0)
	ctx := context.Background()

	err := svc.RegisterRules(router, []Rule{
		{Event: domain.EventAchievementUnlocked, Match: "level_maestro", ChannelID: 7, Content: "A maestro rises."},
		{Event: domain.EventMissionCompleted, ChannelID: 8, Content: "Someone finished a mission."},
	})
	require.NoError(t, err)

	router.Route(ctx, domain.AchievementUnlockedPayload{UserID: 1, Achievement: "mission_master"})
	assert.Empty(t, gw.Calls("Publish"))

	router.Route(ctx, domain.AchievementUnlockedPayload{UserID: 1, Achievement: "level_maestro"})
	router.Route(ctx, domain.MissionPayload{Type: domain.EventMissionCompleted, UserID: 1, MissionID: "m"})

	calls := gw.Calls("Publish")
	require.Len(t, calls, 2)
	assert.Equal(t, int64(7), calls[0].ChannelID)
	assert.Equal(t, "A maestro rises.", calls[0].Content)
	assert.Equal(t, int64(8), calls[1].ChannelID)
}

func TestRegisterRules_Invalid(t *testing.T) {
	svc, _, _, router := newService(t, 0)

	err := svc.RegisterRules(router, []Rule{{Event: domain.EventMissionCompleted, Content: "x"}})
	assert.Error(t, err)
}
