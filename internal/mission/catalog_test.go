package mission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	def, ok := c.Get("open_heart")
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, def.TimeLimit)
	assert.Equal(t, int64(30), def.Reward.Points)
	require.NotNil(t, def.Trigger)
	assert.Equal(t, domain.EventPersonaInteraction, def.Trigger.Event)
	assert.Equal(t, "empathy", def.Trigger.Match)

	ids := make([]string, 0)
	for _, d := range c.All() {
		ids = append(ids, d.ID)
	}
	assert.IsIncreasing(t, ids)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "missions:\n  - id: a\n    colour: red\n"},
		{"missing id", "missions:\n  - title: nameless\n"},
		{"duplicate", "missions:\n  - id: a\n  - id: a\n"},
		{"zero goal", "missions:\n  - id: a\n    trigger: {event: CHANNEL_REACTION, goal: 0}\n"},
		{"auto start without trigger", "missions:\n  - id: a\n    auto_start: true\n"},
		{"negative points", "missions:\n  - id: a\n    reward: {points: -1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCatalog_Triggered(t *testing.T) {
	c, err := NewCatalog(
		Definition{ID: "b", Trigger: &Trigger{Event: domain.EventChannelReaction, Goal: 2}},
		Definition{ID: "a"},
		Definition{ID: "c", Trigger: &Trigger{Event: domain.EventChannelReaction, Goal: 1}, AutoStart: true},
	)
	require.NoError(t, err)

	got := c.Triggered()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
