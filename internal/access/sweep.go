package access

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/pkg/logger"
)

// SweepResult counts what a subscription sweep did.
type SweepResult struct {
	Expired   int `json:"expired"`
	Reminded  int `json:"reminded"`
	Failed    int `json:"failed"`
	Inspected int `json:"inspected"`
}

// ExpireDue ends every active subscription whose end date is not after
// now. Each one is flipped, revoked and announced once, however often the
// sweep runs.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (SweepResult, error) {
	subs, err := s.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list active subscriptions: %w", err)
	}

	var res SweepResult
	for _, sub := range subs {
		res.Inspected++
		if sub.EndDate.After(now) {
			continue
		}
		ended, err := s.end(ctx, sub, domain.EndExpired)
		if err != nil {
			res.Failed++
			logger.Error("Subscription expiry failed",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		if ended {
			res.Expired++
		}
	}
	return res, nil
}

// RemindExpiring emits SUBSCRIPTION_EXPIRING for each active subscription
// whose calendar days left equals a reminder threshold, at most once per
// threshold.
func (s *Service) RemindExpiring(ctx context.Context, now time.Time) (SweepResult, error) {
	subs, err := s.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list active subscriptions: %w", err)
	}

	var res SweepResult
	for _, sub := range subs {
		res.Inspected++
		if !sub.ActiveAt(now) {
			continue
		}
		daysLeft := sub.DaysUntilEnd(now)
		for _, threshold := range s.cfg.ReminderDays {
			if daysLeft != threshold || sub.Reminded(threshold) {
				continue
			}
			marked, err := s.store.MarkReminderSent(ctx, sub.ID, threshold)
			if err != nil {
				res.Failed++
				logger.Error("Failed to mark reminder",
					zap.String("subscription_id", sub.ID),
					zap.Int("days_left", threshold),
					zap.Error(err),
				)
				continue
			}
			if !marked {
				continue
			}
			res.Reminded++
			s.routeSubscription(ctx, domain.EventSubscriptionExpiring, sub, threshold)
		}
	}
	return res, nil
}

// Sweep runs ExpireDue then RemindExpiring.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	expired, err := s.ExpireDue(ctx, now)
	if err != nil {
		return expired, err
	}
	reminded, err := s.RemindExpiring(ctx, now)
	if err != nil {
		return expired, err
	}

	res := SweepResult{
		Expired:   expired.Expired,
		Reminded:  reminded.Reminded,
		Failed:    expired.Failed + reminded.Failed,
		Inspected: expired.Inspected,
	}
	logger.Info("Subscription sweep finished",
		zap.Int("expired", res.Expired),
		zap.Int("reminded", res.Reminded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
