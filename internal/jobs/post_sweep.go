package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/publishing"
)

// PostPublisher publishes due posts.
type PostPublisher interface {
	PublishDue(ctx context.Context, now time.Time) (publishing.PublishResult, error)
}

// PostSweepWorker publishes scheduled posts.
type PostSweepWorker struct {
	publisher PostPublisher
	now       func() time.Time
}

// NewPostSweepWorker creates the worker.
func NewPostSweepWorker(publisher PostPublisher) *PostSweepWorker {
	return &PostSweepWorker{publisher: publisher, now: time.Now}
}

// Kind returns the job kind.
func (*PostSweepWorker) Kind() string { return KindPostSweep }

// Work publishes every due post.
func (w *PostSweepWorker) Work(ctx context.Context) error {
	if w == nil || w.publisher == nil {
		return fmt.Errorf("post sweep worker is not initialized")
	}
	res, err := w.publisher.PublishDue(ctx, w.now().UTC())
	if err != nil {
		return fmt.Errorf("post sweep: %w", err)
	}
	if res.Sent+res.Retrying+res.GaveUp > 0 {
		logger.Info("post sweep completed",
			zap.Int("sent", res.Sent),
			zap.Int("retrying", res.Retrying),
			zap.Int("gave_up", res.GaveUp),
		)
	}
	return nil
}
