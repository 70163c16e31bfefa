package postgres

import (
	"context"
	"fmt"
	"time"

	"keeper.dev/keeper/internal/domain"
)

const postColumns = `id, channel_id, content, scheduled_at, sent, sent_at, attempts, last_error, failed, created_at`

func scanPost(row scanner) (domain.ScheduledPost, error) {
	var p domain.ScheduledPost
	err := row.Scan(&p.ID, &p.ChannelID, &p.Content, &p.ScheduledAt, &p.Sent, &p.SentAt,
		&p.Attempts, &p.LastError, &p.Failed, &p.CreatedAt)
	return p, err
}

func (s *Store) CreatePost(ctx context.Context, post domain.ScheduledPost) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scheduled_posts (`+postColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.ChannelID, post.Content, post.ScheduledAt, post.Sent, post.SentAt,
		post.Attempts, post.LastError, post.Failed, post.CreatedAt)
	return mapError(err)
}

func (s *Store) GetPost(ctx context.Context, id string) (domain.ScheduledPost, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE id = $1`, id))
	return post, mapError(err)
}

func (s *Store) ListDuePosts(ctx context.Context, now time.Time) ([]domain.ScheduledPost, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+postColumns+` FROM scheduled_posts
		 WHERE NOT sent AND NOT failed AND scheduled_at <= $1 ORDER BY scheduled_at`, now)
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}
	defer rows.Close()
	var out []domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, rows.Err()
}

func (s *Store) MarkPostSent(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_posts SET sent = TRUE, sent_at = $2 WHERE id = $1 AND NOT sent`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark post sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) RecordPostFailure(ctx context.Context, id, reason string, maxAttempts int) (domain.ScheduledPost, error) {
	post, err := scanPost(s.pool.QueryRow(ctx, `
		UPDATE scheduled_posts
		SET attempts = attempts + 1,
			last_error = $2,
			failed = (attempts + 1 >= $3)
		WHERE id = $1
		RETURNING `+postColumns, id, reason, maxAttempts))
	return post, mapError(err)
}
