package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/repository"
)

const missionColumns = `user_id, mission_id, status, progress, started_at, completed_at, reward_claimed, updated_at`

func scanMission(row scanner) (domain.MissionProgress, error) {
	var rec domain.MissionProgress
	var status string
	err := row.Scan(&rec.UserID, &rec.MissionID, &status, &rec.Progress,
		&rec.StartedAt, &rec.CompletedAt, &rec.RewardClaimed, &rec.UpdatedAt)
	rec.Status = domain.MissionStatus(status)
	return rec, err
}

func collectMissions(rows pgx.Rows) ([]domain.MissionProgress, error) {
	defer rows.Close()
	var out []domain.MissionProgress
	for rows.Next() {
		rec, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetMissionProgress(ctx context.Context, userID int64, missionID string) (domain.MissionProgress, error) {
	rec, err := scanMission(s.pool.QueryRow(ctx,
		`SELECT `+missionColumns+` FROM mission_progress WHERE user_id = $1 AND mission_id = $2`,
		userID, missionID))
	return rec, mapError(err)
}

func (s *Store) ListMissionProgress(ctx context.Context, userID int64) ([]domain.MissionProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+missionColumns+` FROM mission_progress WHERE user_id = $1 ORDER BY mission_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return collectMissions(rows)
}

func (s *Store) ListMissionsByStatus(ctx context.Context, status domain.MissionStatus) ([]domain.MissionProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+missionColumns+` FROM mission_progress WHERE status = $1 ORDER BY user_id, mission_id`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list missions by status: %w", err)
	}
	return collectMissions(rows)
}

func (s *Store) CountMissionsByStatus(ctx context.Context, userID int64, status domain.MissionStatus) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM mission_progress WHERE user_id = $1 AND status = $2`,
		userID, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count missions: %w", err)
	}
	return n, nil
}

func (s *Store) MutateMissionProgress(ctx context.Context, userID int64, missionID string, fn repository.MissionMutator) (domain.MissionProgress, error) {
	var out domain.MissionProgress
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := lockKey(ctx, tx, fmt.Sprintf("mission:%d:%s", userID, missionID)); err != nil {
			return err
		}

		rec, err := scanMission(tx.QueryRow(ctx,
			`SELECT `+missionColumns+` FROM mission_progress WHERE user_id = $1 AND mission_id = $2`,
			userID, missionID))
		found := true
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			rec = domain.MissionProgress{UserID: userID, MissionID: missionID, Status: domain.MissionPending}
		} else if err != nil {
			return fmt.Errorf("load mission: %w", err)
		}

		if err := fn(&rec, found); err != nil {
			return err
		}
		rec.UserID, rec.MissionID = userID, missionID

		_, err = tx.Exec(ctx, `
			INSERT INTO mission_progress (`+missionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, mission_id) DO UPDATE SET
				status = EXCLUDED.status,
				progress = EXCLUDED.progress,
				started_at = EXCLUDED.started_at,
				completed_at = EXCLUDED.completed_at,
				reward_claimed = EXCLUDED.reward_claimed,
				updated_at = EXCLUDED.updated_at`,
			rec.UserID, rec.MissionID, string(rec.Status), rec.Progress,
			rec.StartedAt, rec.CompletedAt, rec.RewardClaimed, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save mission: %w", mapError(err))
		}
		out = rec
		return nil
	})
	return out, err
}
