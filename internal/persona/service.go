// Package persona runs the narrative persona's per-user emotional state
// machine and owns the set of unlocked fragments.
package persona

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// Service applies interactions and unlocks fragments.
type Service struct {
	store  repository.PersonaStore
	router domain.Dispatcher
	table  *Table
	now    func() time.Time
}

// NewService creates a persona service over a validated table.
func NewService(store repository.PersonaStore, router domain.Dispatcher, table *Table) *Service {
	return &Service{store: store, router: router, table: table, now: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Outcome describes what an interaction did.
type Outcome struct {
	State       domain.PersonaState `json:"state"`
	From        string              `json:"from"`
	Changed     bool                `json:"changed"`
	NewFragment string              `json:"new_fragment,omitempty"`
}

// GetState returns the user's persona state; users never seen sit in the
// initial state with zero resonance.
func (s *Service) GetState(ctx context.Context, userID int64) (domain.PersonaState, error) {
	rec, err := s.store.GetPersona(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if apperrors.IsNotFound(err) {
		return domain.PersonaState{UserID: userID, EmotionalState: s.table.Initial, UnlockedFragments: []string{}}, nil
	}
	return domain.PersonaState{}, fmt.Errorf("get persona: %w", err)
}

// ApplyInteraction moves the state along the transition table and adjusts
// resonance by delta, clamped to [0,100]. Reaching a state that carries a
// fragment unlocks it once.
func (s *Service) ApplyInteraction(ctx context.Context, userID int64, interaction string, delta float64) (Outcome, error) {
	if interaction == "" {
		return Outcome{}, apperrors.BadRequest(apperrors.CodeInvalidInteraction, "interaction is required")
	}

	var out Outcome
	rec, err := s.store.MutatePersona(ctx, userID, func(rec *domain.PersonaState, found bool) error {
		if !found {
			s.initialize(rec)
		}
		out = Outcome{From: rec.EmotionalState}

		next, moved := s.table.Next(rec.EmotionalState, interaction)
		if moved && next != rec.EmotionalState {
			rec.EmotionalState = next
			out.Changed = true
			if fragment := s.table.FragmentOf(next); fragment != "" && rec.AddFragment(fragment) {
				out.NewFragment = fragment
			}
		}
		rec.Resonance = domain.ClampResonance(rec.Resonance + delta)
		rec.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("apply interaction: %w", err)
	}
	out.State = rec

	if out.Changed {
		logger.Info("Persona state changed",
			zap.Int64("user_id", userID),
			zap.String("interaction", interaction),
			zap.String("from", out.From),
			zap.String("to", rec.EmotionalState),
			zap.Float64("resonance", rec.Resonance),
		)
		s.router.Route(ctx, domain.PersonaStateChangedPayload{
			UserID:    userID,
			From:      out.From,
			To:        rec.EmotionalState,
			Resonance: rec.Resonance,
		})
	}
	if out.NewFragment != "" {
		s.router.Route(ctx, domain.FragmentUnlockedPayload{
			UserID:   userID,
			Fragment: out.NewFragment,
			Source:   "persona:" + rec.EmotionalState,
		})
	}
	return out, nil
}

// UnlockFragment adds a fragment to the user's set and reports whether it
// was new. FRAGMENT_UNLOCKED is routed only for new fragments.
func (s *Service) UnlockFragment(ctx context.Context, userID int64, fragment, source string) (bool, error) {
	if fragment == "" {
		return false, apperrors.BadRequest(apperrors.CodeFragmentRequired, "fragment is required")
	}

	added := false
	_, err := s.store.MutatePersona(ctx, userID, func(rec *domain.PersonaState, found bool) error {
		if !found {
			s.initialize(rec)
		}
		if rec.AddFragment(fragment) {
			added = true
			rec.UpdatedAt = s.now().UTC()
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("unlock fragment: %w", err)
	}
	if !added {
		return false, nil
	}

	logger.Info("Fragment unlocked",
		zap.Int64("user_id", userID),
		zap.String("fragment", fragment),
		zap.String("source", source),
	)
	s.router.Route(ctx, domain.FragmentUnlockedPayload{UserID: userID, Fragment: fragment, Source: source})
	return true, nil
}

// Register attaches the persona interaction handler.
func (s *Service) Register(r domain.Registrar) {
	r.Register(domain.EventPersonaInteraction, "persona.apply_interaction", s.onInteraction)
}

func (s *Service) onInteraction(ctx context.Context, event domain.Event) error {
	p, err := domain.PayloadAs[domain.PersonaInteractionPayload](event)
	if err != nil {
		return err
	}
	_, err = s.ApplyInteraction(ctx, p.UserID, p.Interaction, p.ResonanceDelta)
	return err
}

func (s *Service) initialize(rec *domain.PersonaState) {
	rec.EmotionalState = s.table.Initial
	rec.Resonance = 0
	rec.UnlockedFragments = []string{}
	rec.UpdatedAt = s.now().UTC()
}
