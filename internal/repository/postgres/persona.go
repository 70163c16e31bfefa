package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/repository"
)

const personaColumns = `user_id, emotional_state, resonance, unlocked_fragments, updated_at`

func scanPersona(row scanner) (domain.PersonaState, error) {
	var p domain.PersonaState
	err := row.Scan(&p.UserID, &p.EmotionalState, &p.Resonance, &p.UnlockedFragments, &p.UpdatedAt)
	return p, err
}

func (s *Store) GetPersona(ctx context.Context, userID int64) (domain.PersonaState, error) {
	rec, err := scanPersona(s.pool.QueryRow(ctx,
		`SELECT `+personaColumns+` FROM persona_states WHERE user_id = $1`, userID))
	return rec, mapError(err)
}

func (s *Store) MutatePersona(ctx context.Context, userID int64, fn repository.PersonaMutator) (domain.PersonaState, error) {
	var out domain.PersonaState
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockKey(ctx, tx, fmt.Sprintf("persona:%d", userID)); err != nil {
			return err
		}

		rec, err := scanPersona(tx.QueryRow(ctx,
			`SELECT `+personaColumns+` FROM persona_states WHERE user_id = $1`, userID))
		found := true
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			rec = domain.PersonaState{UserID: userID}
		} else if err != nil {
			return fmt.Errorf("load persona: %w", err)
		}

		if err := fn(&rec, found); err != nil {
			return err
		}
		rec.UserID = userID
		if rec.UnlockedFragments == nil {
			rec.UnlockedFragments = []string{}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO persona_states (`+personaColumns+`)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				emotional_state = EXCLUDED.emotional_state,
				resonance = EXCLUDED.resonance,
				unlocked_fragments = EXCLUDED.unlocked_fragments,
				updated_at = EXCLUDED.updated_at`,
			rec.UserID, rec.EmotionalState, rec.Resonance, rec.UnlockedFragments, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save persona: %w", mapError(err))
		}
		out = rec
		return nil
	})
	return out, err
}
