package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"keeper.dev/keeper/internal/domain"
)

func (s *Store) AddPoints(ctx context.Context, entry domain.PointsEntry) (domain.PointsBalance, error) {
	var bal domain.PointsBalance
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO points_ledger (id, user_id, delta, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
			entry.ID, entry.UserID, entry.Delta, entry.Reason, entry.CreatedAt); err != nil {
			return fmt.Errorf("append ledger: %w", mapError(err))
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO points_balances (user_id, total, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET
				total = points_balances.total + EXCLUDED.total,
				updated_at = EXCLUDED.updated_at
			RETURNING user_id, total, updated_at`,
			entry.UserID, entry.Delta, entry.CreatedAt).Scan(&bal.UserID, &bal.Total, &bal.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		return nil
	})
	return bal, err
}

func (s *Store) GetPoints(ctx context.Context, userID int64) (domain.PointsBalance, error) {
	bal := domain.PointsBalance{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT total, updated_at FROM points_balances WHERE user_id = $1`, userID).
		Scan(&bal.Total, &bal.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return bal, nil
	}
	if err != nil {
		return domain.PointsBalance{}, fmt.Errorf("get points: %w", err)
	}
	return bal, nil
}

func (s *Store) ListPointsEntries(ctx context.Context, userID int64, limit int) ([]domain.PointsEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, delta, reason, created_at FROM points_ledger
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	defer rows.Close()
	var out []domain.PointsEntry
	for rows.Next() {
		var e domain.PointsEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertAchievement(ctx context.Context, grant domain.AchievementGrant) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO achievements (user_id, achievement, unlocked_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, achievement) DO NOTHING`,
		grant.UserID, grant.Achievement, grant.UnlockedAt)
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListAchievements(ctx context.Context, userID int64) ([]domain.AchievementGrant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, achievement, unlocked_at FROM achievements
		 WHERE user_id = $1 ORDER BY unlocked_at, achievement`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()
	var out []domain.AchievementGrant
	for rows.Next() {
		var g domain.AchievementGrant
		if err := rows.Scan(&g.UserID, &g.Achievement, &g.UnlockedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
