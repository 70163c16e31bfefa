package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/repository"
)

const (
	planColumns         = `id, name, duration_days, price_cents, active, created_at`
	tokenColumns        = `token, plan_id, expires_at, is_used, used_by, used_at, created_at`
	subscriptionColumns = `id, user_id, plan_id, source, start_date, end_date, is_active, ended_at, end_reason, reminders_sent, created_at`
)

func scanPlan(row scanner) (domain.Plan, error) {
	var p domain.Plan
	err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &p.PriceCents, &p.Active, &p.CreatedAt)
	return p, err
}

func scanToken(row scanner) (domain.InviteToken, error) {
	var t domain.InviteToken
	err := row.Scan(&t.Token, &t.PlanID, &t.ExpiresAt, &t.IsUsed, &t.UsedBy, &t.UsedAt, &t.CreatedAt)
	return t, err
}

func scanSubscription(row scanner) (domain.Subscription, error) {
	var (
		sub       domain.Subscription
		planID    *string
		source    string
		endReason string
		reminders []int32
	)
	err := row.Scan(&sub.ID, &sub.UserID, &planID, &source, &sub.StartDate, &sub.EndDate,
		&sub.IsActive, &sub.EndedAt, &endReason, &reminders, &sub.CreatedAt)
	if planID != nil {
		sub.PlanID = *planID
	}
	sub.Source = domain.SubscriptionSource(source)
	sub.EndReason = domain.EndReason(endReason)
	for _, d := range reminders {
		sub.RemindersSent = append(sub.RemindersSent, int(d))
	}
	return sub, err
}

func collectSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	defer rows.Close()
	var out []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) CreatePlan(ctx context.Context, plan domain.Plan) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO plans (`+planColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		plan.ID, plan.Name, plan.DurationDays, plan.PriceCents, plan.Active, plan.CreatedAt)
	return mapError(err)
}

func (s *Store) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	plan, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	return plan, mapError(err)
}

func (s *Store) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, rows.Err()
}

func (s *Store) CreateInviteToken(ctx context.Context, tok domain.InviteToken) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO invite_tokens (`+tokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tok.Token, tok.PlanID, tok.ExpiresAt, tok.IsUsed, tok.UsedBy, tok.UsedAt, tok.CreatedAt)
	return mapError(err)
}

func (s *Store) GetInviteToken(ctx context.Context, token string) (domain.InviteToken, error) {
	tok, err := scanToken(s.pool.QueryRow(ctx, `SELECT `+tokenColumns+` FROM invite_tokens WHERE token = $1`, token))
	return tok, mapError(err)
}

// RedeemInviteToken locks the token row, lets build validate it, consumes it
// with a conditional UPDATE and inserts the subscription, all in one
// transaction. The partial unique index on active subscriptions turns a
// concurrent grant for the same user into ErrConflict and rolls the token
// back to unused.
func (s *Store) RedeemInviteToken(ctx context.Context, token string, userID int64, now time.Time, build repository.RedeemBuilder) (domain.Subscription, error) {
	var out domain.Subscription
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tok, err := scanToken(tx.QueryRow(ctx,
			`SELECT `+tokenColumns+` FROM invite_tokens WHERE token = $1 FOR UPDATE`, token))
		if err != nil {
			return mapError(err)
		}
		plan, err := scanPlan(tx.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, tok.PlanID))
		if err != nil {
			return mapError(err)
		}

		sub, err := build(tok, plan)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE invite_tokens SET is_used = TRUE, used_by = $2, used_at = $3 WHERE token = $1 AND NOT is_used`,
			token, userID, now)
		if err != nil {
			return fmt.Errorf("consume token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrConflict
		}

		if err := insertSubscription(ctx, tx, sub); err != nil {
			return err
		}
		out = sub
		return nil
	})
	return out, err
}

func insertSubscription(ctx context.Context, q execer, sub domain.Subscription) error {
	var planID *string
	if sub.PlanID != "" {
		planID = &sub.PlanID
	}
	reminders := make([]int32, 0, len(sub.RemindersSent))
	for _, d := range sub.RemindersSent {
		reminders = append(reminders, int32(d))
	}
	_, err := q.Exec(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.ID, sub.UserID, planID, string(sub.Source), sub.StartDate, sub.EndDate,
		sub.IsActive, sub.EndedAt, string(sub.EndReason), reminders, sub.CreatedAt)
	return mapError(err)
}

func (s *Store) CreateSubscription(ctx context.Context, sub domain.Subscription) error {
	return insertSubscription(ctx, s.pool, sub)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID int64) (domain.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 AND is_active`, userID))
	return sub, mapError(err)
}

func (s *Store) ListActiveSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE is_active ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

func (s *Store) ListSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return collectSubscriptions(rows)
}

func (s *Store) DeactivateSubscription(ctx context.Context, id string, reason domain.EndReason, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET is_active = FALSE, ended_at = $2, end_reason = $3 WHERE id = $1 AND is_active`,
		id, at, string(reason))
	if err != nil {
		return false, fmt.Errorf("deactivate subscription: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id string, days int) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET reminders_sent = array_append(reminders_sent, $2::int)
		 WHERE id = $1 AND NOT ($2::int = ANY (reminders_sent))`,
		id, int32(days))
	if err != nil {
		return false, fmt.Errorf("mark reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
