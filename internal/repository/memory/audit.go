package memory

import (
	"context"
	"time"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/repository"
)

func (s *Store) AppendAuditEntry(_ context.Context, entry domain.AuditEntry) error {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// ListAuditEntries returns the newest entries first.
func (s *Store) ListAuditEntries(_ context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	var out []domain.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		entry := s.audit[i]
		if filter.EventType != "" && entry.EventType != filter.EventType {
			continue
		}
		if !filter.Since.IsZero() && entry.RecordedAt.Before(filter.Since) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteAuditEntriesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	kept := s.audit[:0]
	var deleted int64
	for _, entry := range s.audit {
		if entry.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	s.audit = kept
	return deleted, nil
}
