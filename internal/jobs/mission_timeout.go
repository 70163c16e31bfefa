package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// MissionExpirer fails missions past their time limit.
type MissionExpirer interface {
	FailExpired(ctx context.Context, now time.Time) (int, error)
}

// MissionTimeoutWorker enforces mission time limits.
type MissionTimeoutWorker struct {
	missions MissionExpirer
	now      func() time.Time
}

// NewMissionTimeoutWorker creates the worker.
func NewMissionTimeoutWorker(missions MissionExpirer) *MissionTimeoutWorker {
	return &MissionTimeoutWorker{missions: missions, now: time.Now}
}

// Kind returns the job kind.
func (*MissionTimeoutWorker) Kind() string { return KindMissionTimeout }

// Work fails expired missions.
func (w *MissionTimeoutWorker) Work(ctx context.Context) error {
	if w == nil || w.missions == nil {
		return fmt.Errorf("mission timeout worker is not initialized")
	}
	n, err := w.missions.FailExpired(ctx, w.now().UTC())
	if err != nil {
		return fmt.Errorf("mission timeout sweep: %w", err)
	}
	if n > 0 {
		logger.Info("mission timeout sweep completed", zap.Int("failed", n))
	}
	return nil
}
