package mission

import (
	"context"
	"fmt"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
)

// Register attaches one handler per triggered mission to its trigger event.
func (s *Service) Register(r domain.Registrar) {
	for _, def := range s.catalog.Triggered() {
		r.Register(def.Trigger.Event, "mission.trigger."+def.ID, s.onTrigger(def))
	}
}

func (s *Service) onTrigger(def Definition) domain.Handler {
	step := domain.ProgressMax / float64(def.Trigger.Goal)
	return func(ctx context.Context, event domain.Event) error {
		if !def.Trigger.matches(event) {
			return nil
		}
		subject, ok := event.Payload.(domain.Subject)
		if !ok {
			return fmt.Errorf("%w: %s has no subject user", domain.ErrInvalidPayload, event.Type)
		}
		userID := subject.SubjectID()

		if def.AutoStart {
			rec, err := s.store.GetMissionProgress(ctx, userID, def.ID)
			switch {
			case apperrors.IsNotFound(err):
				if _, err := s.Start(ctx, userID, def.ID); err != nil {
					return err
				}
			case err != nil:
				return fmt.Errorf("load mission %s: %w", def.ID, err)
			case rec.Status == domain.MissionPending:
				if _, err := s.Start(ctx, userID, def.ID); err != nil {
					return err
				}
			}
		}

		_, err := s.advance(ctx, userID, def.ID, step)
		return err
	}
}
