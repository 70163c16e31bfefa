package memory

import (
	"context"
	"sort"
	"time"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
)

func (s *Store) CreateJoinRequest(_ context.Context, req domain.JoinRequest) error {
	s.joinsMu.Lock()
	defer s.joinsMu.Unlock()
	if _, ok := s.joins[req.ID]; ok {
		return apperrors.ErrAlreadyExists
	}
	s.joins[req.ID] = req
	return nil
}

func (s *Store) GetJoinRequest(_ context.Context, id string) (domain.JoinRequest, error) {
	s.joinsMu.Lock()
	defer s.joinsMu.Unlock()
	req, ok := s.joins[id]
	if !ok {
		return domain.JoinRequest{}, apperrors.ErrNotFound
	}
	return req, nil
}

func (s *Store) ListDueJoinRequests(_ context.Context, now time.Time) ([]domain.JoinRequest, error) {
	s.joinsMu.Lock()
	defer s.joinsMu.Unlock()
	var out []domain.JoinRequest
	for _, req := range s.joins {
		if req.Due(now) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AcceptAt.Before(out[j].AcceptAt) })
	return out, nil
}

func (s *Store) MarkJoinRequestProcessed(_ context.Context, id string, accepted bool, at time.Time) (bool, error) {
	s.joinsMu.Lock()
	defer s.joinsMu.Unlock()
	req, ok := s.joins[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if req.Processed {
		return false, nil
	}
	processed := at
	req.Processed = true
	req.Accepted = accepted
	req.ProcessedAt = &processed
	s.joins[id] = req
	return true, nil
}
