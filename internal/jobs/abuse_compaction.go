package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// Compactor drops idle abuse records.
type Compactor interface {
	Compact() int
}

// AbuseCompactionWorker bounds abuse gate memory.
type AbuseCompactionWorker struct {
	gate Compactor
}

// NewAbuseCompactionWorker creates the worker.
func NewAbuseCompactionWorker(gate Compactor) *AbuseCompactionWorker {
	return &AbuseCompactionWorker{gate: gate}
}

// Kind returns the job kind.
func (*AbuseCompactionWorker) Kind() string { return KindAbuseCompaction }

// Work compacts the gate.
func (w *AbuseCompactionWorker) Work(context.Context) error {
	if w == nil || w.gate == nil {
		return fmt.Errorf("abuse compaction worker is not initialized")
	}
	dropped := w.gate.Compact()
	logger.Debug("abuse compaction completed", zap.Int("dropped", dropped))
	return nil
}
