package persona

import (
	"context"
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

var now = time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)

// recorder captures routed payloads without dispatching them.
type recorder struct {
	payloads []domain.Payload
}

func (r *recorder) Route(_ context.Context, p domain.Payload) { r.payloads = append(r.payloads, p) }

func (r *recorder) types() []domain.EventType {
	out := make([]domain.EventType, len(r.payloads))
	for i, p := range r.payloads {
		out[i] = p.EventType()
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)
	rec := &recorder{}
	return NewService(memory.NewStore(), rec, table).WithClock(func() time.Time { return now }), rec
}

func TestDefaultTable(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)
	assert.Equal(t, "enigmatic", table.Initial)
	assert.Equal(t, []string{"analytical", "enigmatic", "persephone", "provocative", "silent", "vulnerable"}, table.StateNames())
	assert.Equal(t, "fragment_persephone", table.FragmentOf("persephone"))
	assert.True(t, table.States["persephone"].Terminal)
}

func TestParseTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing initial", "initial: nowhere\nstates:\n  a: {}\n"},
		{"undefined target", "initial: a\nstates:\n  a:\n    transitions:\n      x: b\n"},
		{"terminal with transitions", "initial: a\nstates:\n  a:\n    terminal: true\n    transitions:\n      x: a\n"},
		{"unknown field", "initial: a\nstates:\n  a:\n    colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyInteraction_Transitions(t *testing.T) {
	tests := []struct {
		name         string
		interactions []string
		wantState    string
	}{
		{"empathy makes vulnerable", []string{"empathy"}, "vulnerable"},
		{"logic makes analytical", []string{"logic"}, "analytical"},
		{"silence", []string{"prolonged_silence"}, "silent"},
		{"unknown interaction stays", []string{"shrug"}, "enigmatic"},
		{"back to enigmatic", []string{"empathy", "protection"}, "enigmatic"},
		{"terminal persephone", []string{"empathy", "connection", "rejection"}, "persephone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			var out Outcome
			var err error
			for _, in := range tt.interactions {
				out, err = svc.ApplyInteraction(context.Background(), 1, in, 0)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, out.State.EmotionalState)
		})
	}
}

func TestApplyInteraction_ResonanceClamped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	out, err := svc.ApplyInteraction(ctx, 1, "shrug", 80)
	require.NoError(t, err)
	assert.Equal(t, 80.0, out.State.Resonance)

	out, err = svc.ApplyInteraction(ctx, 1, "shrug", 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.State.Resonance)

	out, err = svc.ApplyInteraction(ctx, 1, "shrug", -500)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.State.Resonance)
}

func TestApplyInteraction_PersephoneUnlocksFragmentOnce(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyInteraction(ctx, 1, "empathy", 10)
	require.NoError(t, err)
	out, err := svc.ApplyInteraction(ctx, 1, "connection", 10)
	require.NoError(t, err)

	assert.Equal(t, "fragment_persephone", out.NewFragment)
	assert.Equal(t, []string{"fragment_persephone"}, out.State.UnlockedFragments)
	assert.Equal(t, []domain.EventType{
		domain.EventPersonaStateChanged,
		domain.EventPersonaStateChanged,
		domain.EventFragmentUnlocked,
	}, rec.types())
}

func TestApplyInteraction_RequiresInteraction(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ApplyInteraction(context.Background(), 1, "", 1)
	assert.True(t, apperrors.IsRejected(err))
}

func TestUnlockFragment_Idempotent(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	added, err := svc.UnlockFragment(ctx, 1, "fragment_x", "test")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.UnlockFragment(ctx, 1, "fragment_x", "test")
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []domain.EventType{domain.EventFragmentUnlocked}, rec.types())

	state, err := svc.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "enigmatic", state.EmotionalState)
	assert.True(t, state.HasFragment("fragment_x"))
}

func TestGetState_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	state, err := svc.GetState(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "enigmatic", state.EmotionalState)
	assert.Empty(t, state.UnlockedFragments)
}

func TestHandler_RoutesThroughRouter(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)
	router := domain.NewEventRouter()
	svc := NewService(memory.NewStore(), router, table)
	svc.Register(router)

	router.Route(context.Background(), domain.PersonaInteractionPayload{UserID: 5, Interaction: "desire", ResonanceDelta: 3})

	state, err := svc.GetState(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "provocative", state.EmotionalState)
	assert.Equal(t, 3.0, state.Resonance)
}
