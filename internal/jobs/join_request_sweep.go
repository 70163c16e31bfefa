package jobs

import (
	"context"
	"fmt"
	"time"

	"keeper.dev/keeper/internal/access"
)

// JoinRequestProcessor admits due join requests.
type JoinRequestProcessor interface {
	ProcessDue(ctx context.Context, now time.Time) (access.ProcessResult, error)
}

// JoinRequestSweepWorker admits join requests whose delay has elapsed.
type JoinRequestSweepWorker struct {
	admissions JoinRequestProcessor
	now        func() time.Time
}

// NewJoinRequestSweepWorker creates the worker.
func NewJoinRequestSweepWorker(admissions JoinRequestProcessor) *JoinRequestSweepWorker {
	return &JoinRequestSweepWorker{admissions: admissions, now: time.Now}
}

// Kind returns the job kind.
func (*JoinRequestSweepWorker) Kind() string { return KindJoinRequestSweep }

// Work processes due requests.
func (w *JoinRequestSweepWorker) Work(ctx context.Context) error {
	if w == nil || w.admissions == nil {
		return fmt.Errorf("join request sweep worker is not initialized")
	}
	if _, err := w.admissions.ProcessDue(ctx, w.now().UTC()); err != nil {
		return fmt.Errorf("join request sweep: %w", err)
	}
	return nil
}
