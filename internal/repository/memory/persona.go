package memory

import (
	"context"
	"slices"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/repository"
)

func (s *Store) GetPersona(_ context.Context, userID int64) (domain.PersonaState, error) {
	s.personaMu.Lock()
	defer s.personaMu.Unlock()
	rec, ok := s.personas[userID]
	if !ok {
		return domain.PersonaState{}, apperrors.ErrNotFound
	}
	return clonePersona(rec), nil
}

func (s *Store) MutatePersona(_ context.Context, userID int64, fn repository.PersonaMutator) (domain.PersonaState, error) {
	s.personaMu.Lock()
	defer s.personaMu.Unlock()

	rec, found := s.personas[userID]
	if found {
		rec = clonePersona(rec)
	} else {
		rec = domain.PersonaState{UserID: userID}
	}
	if err := fn(&rec, found); err != nil {
		return domain.PersonaState{}, err
	}
	rec.UserID = userID
	s.personas[userID] = rec
	return clonePersona(rec), nil
}

func clonePersona(rec domain.PersonaState) domain.PersonaState {
	rec.UnlockedFragments = slices.Clone(rec.UnlockedFragments)
	return rec
}
