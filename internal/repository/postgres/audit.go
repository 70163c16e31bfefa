package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/repository"
)

func (s *Store) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, event_id, event_type, payload, depth, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.EventID, string(entry.EventType), []byte(entry.Payload), entry.Depth, entry.RecordedAt)
	return mapError(err)
}

func (s *Store) ListAuditEntries(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.EventType != "" {
		args = append(args, string(filter.EventType))
		where = append(where, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("recorded_at >= $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT id, event_id, event_type, payload, depth, recorded_at FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY recorded_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &e.EventID, &eventType, &payload, &e.Depth, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.EventType = domain.EventType(eventType)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_log WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
