// Package audit records every routed event. Entries are append-only; the
// retention job is the only deleter.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

var _ domain.AuditSink = (*Logger)(nil)

// Logger writes audit records to the structured log and the store.
type Logger struct {
	store repository.AuditStore
	now   func() time.Time
}

// NewLogger creates a new audit Logger.
func NewLogger(store repository.AuditStore) *Logger {
	return &Logger{store: store, now: time.Now}
}

// WithClock overrides the clock used to stamp entries.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	l.now = now
	return l
}

// Record persists the event. Failures are logged and swallowed so that
// dispatch never depends on audit storage.
func (l *Logger) Record(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		logger.Error("Failed to encode audit payload",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		payload = []byte("null")
	}

	entry := domain.AuditEntry{
		ID:         generateAuditID(),
		EventID:    event.ID,
		EventType:  event.Type,
		Payload:    payload,
		Depth:      event.Depth,
		RecordedAt: l.now().UTC(),
	}

	logger.Info("audit",
		zap.String("audit_id", entry.ID),
		zap.String("event_id", entry.EventID),
		zap.String("event_type", string(entry.EventType)),
		zap.Int("depth", entry.Depth),
		zap.ByteString("payload", entry.Payload),
	)

	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		logger.Error("Failed to write audit log",
			zap.String("event_id", entry.EventID),
			zap.String("event_type", string(entry.EventType)),
			zap.Error(err),
		)
	}
}

// List returns entries newest first.
func (l *Logger) List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	entries, err := l.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// Cleanup deletes entries recorded before now minus retention.
func (l *Logger) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := l.now().UTC().Add(-retention)
	deleted, err := l.store.DeleteAuditEntriesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	if deleted > 0 {
		logger.Info("Audit entries pruned",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
