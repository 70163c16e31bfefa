package postgres

import (
	"context"
	"fmt"
	"time"

	"keeper.dev/keeper/internal/domain"
)

const joinRequestColumns = `id, user_id, channel_id, requested_at, accept_at, processed, accepted, processed_at`

func scanJoinRequest(row scanner) (domain.JoinRequest, error) {
	var r domain.JoinRequest
	err := row.Scan(&r.ID, &r.UserID, &r.ChannelID, &r.RequestedAt, &r.AcceptAt,
		&r.Processed, &r.Accepted, &r.ProcessedAt)
	return r, err
}

func (s *Store) CreateJoinRequest(ctx context.Context, req domain.JoinRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO join_requests (`+joinRequestColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.UserID, req.ChannelID, req.RequestedAt, req.AcceptAt,
		req.Processed, req.Accepted, req.ProcessedAt)
	return mapError(err)
}

func (s *Store) GetJoinRequest(ctx context.Context, id string) (domain.JoinRequest, error) {
	req, err := scanJoinRequest(s.pool.QueryRow(ctx,
		`SELECT `+joinRequestColumns+` FROM join_requests WHERE id = $1`, id))
	return req, mapError(err)
}

func (s *Store) ListDueJoinRequests(ctx context.Context, now time.Time) ([]domain.JoinRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+joinRequestColumns+` FROM join_requests
		 WHERE NOT processed AND accept_at <= $1 ORDER BY accept_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list due join requests: %w", err)
	}
	defer rows.Close()
	var out []domain.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) MarkJoinRequestProcessed(ctx context.Context, id string, accepted bool, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE join_requests SET processed = TRUE, accepted = $2, processed_at = $3
		 WHERE id = $1 AND NOT processed`, id, accepted, at)
	if err != nil {
		return false, fmt.Errorf("mark join request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
