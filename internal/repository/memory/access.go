package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/repository"
)

func (s *Store) CreatePlan(_ context.Context, plan domain.Plan) error {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	if _, ok := s.plans[plan.ID]; ok {
		return apperrors.ErrAlreadyExists
	}
	s.plans[plan.ID] = plan
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (domain.Plan, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return domain.Plan{}, apperrors.ErrNotFound
	}
	return plan, nil
}

func (s *Store) ListPlans(_ context.Context) ([]domain.Plan, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	out := make([]domain.Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateInviteToken(_ context.Context, tok domain.InviteToken) error {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	if _, ok := s.plans[tok.PlanID]; !ok {
		return apperrors.ErrNotFound
	}
	if _, ok := s.tokens[tok.Token]; ok {
		return apperrors.ErrAlreadyExists
	}
	s.tokens[tok.Token] = tok
	return nil
}

func (s *Store) GetInviteToken(_ context.Context, token string) (domain.InviteToken, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	tok, ok := s.tokens[token]
	if !ok {
		return domain.InviteToken{}, apperrors.ErrNotFound
	}
	return tok, nil
}

func (s *Store) RedeemInviteToken(_ context.Context, token string, userID int64, now time.Time, build repository.RedeemBuilder) (domain.Subscription, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()

	tok, ok := s.tokens[token]
	if !ok {
		return domain.Subscription{}, apperrors.ErrNotFound
	}
	plan, ok := s.plans[tok.PlanID]
	if !ok {
		return domain.Subscription{}, apperrors.ErrNotFound
	}
	sub, err := build(tok, plan)
	if err != nil {
		return domain.Subscription{}, err
	}
	if s.activeLocked(userID) != nil {
		return domain.Subscription{}, apperrors.ErrConflict
	}

	used := userID
	at := now
	tok.IsUsed = true
	tok.UsedBy = &used
	tok.UsedAt = &at
	s.tokens[token] = tok
	s.subscriptions[sub.ID] = cloneSubscription(sub)
	return cloneSubscription(sub), nil
}

func (s *Store) CreateSubscription(_ context.Context, sub domain.Subscription) error {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	if sub.IsActive && s.activeLocked(sub.UserID) != nil {
		return apperrors.ErrConflict
	}
	if _, ok := s.subscriptions[sub.ID]; ok {
		return apperrors.ErrAlreadyExists
	}
	s.subscriptions[sub.ID] = cloneSubscription(sub)
	return nil
}

func (s *Store) GetActiveSubscription(_ context.Context, userID int64) (domain.Subscription, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	sub := s.activeLocked(userID)
	if sub == nil {
		return domain.Subscription{}, apperrors.ErrNotFound
	}
	return cloneSubscription(*sub), nil
}

func (s *Store) ListActiveSubscriptions(_ context.Context) ([]domain.Subscription, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	var out []domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.IsActive {
			out = append(out, cloneSubscription(sub))
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (s *Store) ListSubscriptions(_ context.Context, userID int64) ([]domain.Subscription, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	var out []domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			out = append(out, cloneSubscription(sub))
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (s *Store) DeactivateSubscription(_ context.Context, id string, reason domain.EndReason, at time.Time) (bool, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if !sub.IsActive {
		return false, nil
	}
	ended := at
	sub.IsActive = false
	sub.EndedAt = &ended
	sub.EndReason = reason
	s.subscriptions[id] = sub
	return true, nil
}

func (s *Store) MarkReminderSent(_ context.Context, id string, days int) (bool, error) {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if sub.Reminded(days) {
		return false, nil
	}
	sub.RemindersSent = append(slices.Clone(sub.RemindersSent), days)
	s.subscriptions[id] = sub
	return true, nil
}

func (s *Store) activeLocked(userID int64) *domain.Subscription {
	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.IsActive {
			return &sub
		}
	}
	return nil
}

func cloneSubscription(sub domain.Subscription) domain.Subscription {
	sub.RemindersSent = slices.Clone(sub.RemindersSent)
	if sub.EndedAt != nil {
		at := *sub.EndedAt
		sub.EndedAt = &at
	}
	return sub
}

func sortSubscriptions(subs []domain.Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].StartDate.Equal(subs[j].StartDate) {
			return subs[i].StartDate.Before(subs[j].StartDate)
		}
		return subs[i].ID < subs[j].ID
	})
}
