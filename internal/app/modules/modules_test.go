package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/config"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/jobs"
	"keeper.dev/keeper/internal/notification"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository/memory"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestContentRules(t *testing.T) {
	rules, err := contentRules([]config.ContentRuleConfig{
		{Trigger: "ACHIEVEMENT_UNLOCKED:level_maestro", ChannelID: -1, Content: "Maestro!"},
		{Trigger: "MISSION_COMPLETED", ChannelID: -1, Content: "Done"},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, domain.EventAchievementUnlocked, rules[0].Event)
	assert.Equal(t, "level_maestro", rules[0].Match)
	assert.Equal(t, domain.EventMissionCompleted, rules[1].Event)
	assert.Empty(t, rules[1].Match)

	_, err = contentRules([]config.ContentRuleConfig{{Trigger: ""}})
	assert.Error(t, err)
}

func TestNewGateway(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GatewayConfig
		want    any
		wantErr bool
	}{
		{"default", config.GatewayConfig{}, notification.LogGateway{}, false},
		{"log", config.GatewayConfig{Kind: config.GatewayLog}, notification.LogGateway{}, false},
		{"http", config.GatewayConfig{Kind: config.GatewayHTTP, BaseURL: "http://bridge:8081"}, &notification.HTTPGateway{}, false},
		{"http without url", config.GatewayConfig{Kind: config.GatewayHTTP}, nil, true},
		{"unknown", config.GatewayConfig{Kind: "smtp"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := newGateway(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, gw)
		})
	}
}

func TestNewStore_Memory(t *testing.T) {
	store, err := newStore(context.Background(), config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	_, err = newStore(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func newTestInfra(t *testing.T) *Infrastructure {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Worker:   config.WorkerConfig{JobPoolSize: 2, ServicePoolSize: 1},
		Router:   config.RouterConfig{MaxChainDepth: 8},
		Abuse:    config.AbuseConfig{Limit: 20, Window: time.Minute, Cooldown: time.Minute},
		Gateway:  config.GatewayConfig{Kind: config.GatewayLog},
	}
	infra, err := NewInfrastructure(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { infra.Close(time.Second) })
	return infra
}

func TestNewEngagementModule_InvalidLevels(t *testing.T) {
	infra := newTestInfra(t)
	infra.Config.Gamification.Levels = []config.LevelConfig{{Name: "a", Points: 0}, {Name: "a", Points: 10}}

	_, err := NewEngagementModule(infra)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamification.levels")
}

func TestModules_ContributeWorkersAndHandlers(t *testing.T) {
	infra := newTestInfra(t)

	engagement, err := NewEngagementModule(infra)
	require.NoError(t, err)
	publishing, err := NewPublishingModule(infra)
	require.NoError(t, err)
	mods := []Module{engagement, NewAccessModule(infra), publishing, NewGovernanceModule(infra)}

	var w jobs.Workers
	for _, mod := range mods {
		require.NoError(t, mod.RegisterHandlers(infra.Router), mod.Name())
		mod.ContributeWorkers(&w)
	}

	assert.NotNil(t, w.Subscriptions)
	assert.NotNil(t, w.JoinRequests)
	assert.NotNil(t, w.Posts)
	assert.NotNil(t, w.MissionTimeouts)
	assert.NotNil(t, w.AuditRetention)
	assert.NotNil(t, w.AbuseCompaction)

	assert.Contains(t, infra.Router.Handlers(domain.EventChannelReaction), "gamification.award_reaction")
	assert.Contains(t, infra.Router.Handlers(domain.EventPointsAwarded), "notification.notify")
	assert.Contains(t, infra.Router.Handlers(domain.EventPointsAwarded), "gamification.level")
	assert.Contains(t, infra.Router.Handlers(domain.EventLevelUp), "notification.notify")

	deps := NewServerDeps(infra.Config, infra, nil, mods)
	assert.NotNil(t, deps.Ingest)
	assert.NotNil(t, deps.Access)
	assert.NotNil(t, deps.Admissions)
	assert.NotNil(t, deps.Missions)
	assert.NotNil(t, deps.Publishing)
	assert.NotNil(t, deps.Audit)
}
