package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// DefaultAuditRetention is how long audit entries are kept.
const DefaultAuditRetention = 30 * 24 * time.Hour

// AuditCleaner deletes old audit entries.
type AuditCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditRetentionWorker removes audit entries older than the retention.
type AuditRetentionWorker struct {
	audit     AuditCleaner
	retention time.Duration
}

// NewAuditRetentionWorker creates the worker. Non-positive retention falls
// back to DefaultAuditRetention.
func NewAuditRetentionWorker(audit AuditCleaner, retention time.Duration) *AuditRetentionWorker {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}
	return &AuditRetentionWorker{audit: audit, retention: retention}
}

// Kind returns the job kind.
func (*AuditRetentionWorker) Kind() string { return KindAuditRetention }

// Work deletes expired audit rows.
func (w *AuditRetentionWorker) Work(ctx context.Context) error {
	if w == nil || w.audit == nil {
		return fmt.Errorf("audit retention worker is not initialized")
	}
	deleted, err := w.audit.Cleanup(ctx, w.retention)
	if err != nil {
		return fmt.Errorf("audit retention: %w", err)
	}
	logger.Info("audit retention completed",
		zap.Int64("deleted_rows", deleted),
		zap.Duration("retention", w.retention),
	)
	return nil
}
