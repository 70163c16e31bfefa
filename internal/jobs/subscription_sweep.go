package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/pkg/logger"
)

// SubscriptionSweeper expires and reminds subscriptions.
type SubscriptionSweeper interface {
	Sweep(ctx context.Context, now time.Time) (access.SweepResult, error)
}

// SubscriptionSweepWorker runs the daily subscription sweep.
type SubscriptionSweepWorker struct {
	sweeper SubscriptionSweeper
	now     func() time.Time
}

// NewSubscriptionSweepWorker creates the worker.
func NewSubscriptionSweepWorker(sweeper SubscriptionSweeper) *SubscriptionSweepWorker {
	return &SubscriptionSweepWorker{sweeper: sweeper, now: time.Now}
}

// Kind returns the job kind.
func (*SubscriptionSweepWorker) Kind() string { return KindSubscriptionSweep }

// Work expires ended subscriptions and sends due reminders.
func (w *SubscriptionSweepWorker) Work(ctx context.Context) error {
	if w == nil || w.sweeper == nil {
		return fmt.Errorf("subscription sweep worker is not initialized")
	}
	res, err := w.sweeper.Sweep(ctx, w.now().UTC())
	if err != nil {
		return fmt.Errorf("subscription sweep: %w", err)
	}
	logger.Debug("subscription sweep completed",
		zap.Int("expired", res.Expired),
		zap.Int("reminded", res.Reminded),
		zap.Int("failed", res.Failed),
	)
	return nil
}
