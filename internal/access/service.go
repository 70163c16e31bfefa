// Package access owns paid-channel membership: plans, invite tokens,
// subscriptions and delayed join-request admission.
//
// A user holds at most one active subscription. Every one-shot transition
// (token consumption, deactivation, reminder marks) is a conditional store
// write, so concurrent callers and overlapping sweeps apply it once.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/notification"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// Rejections.
var (
	ErrPlanNotFound       = apperrors.NotFound(apperrors.CodePlanNotFound, "plan not found")
	ErrTokenNotFound      = apperrors.NotFound(apperrors.CodeInviteTokenNotFound, "invite token not found")
	ErrTokenUsed          = apperrors.Conflict(apperrors.CodeInviteTokenUsed, "invite token already used")
	ErrTokenExpired       = apperrors.Conflict(apperrors.CodeInviteTokenExpired, "invite token expired")
	ErrSubscriptionActive = apperrors.Conflict(apperrors.CodeSubscriptionActive, "user already has an active subscription")
	ErrNoActive           = apperrors.NotFound(apperrors.CodeNoActiveSubscription, "user has no active subscription")
	ErrInvalidDuration    = apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must be positive")
)

// Config holds access settings.
type Config struct {
	// PaidChannelID is the gated channel access is revoked from.
	PaidChannelID int64
	// ReminderDays are the days-left thresholds that trigger an expiry
	// reminder.
	ReminderDays []int
	// TokenValidity is the default invite token lifetime.
	TokenValidity time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReminderDays == nil {
		c.ReminderDays = []int{3, 1}
	}
	if c.TokenValidity <= 0 {
		c.TokenValidity = 7 * 24 * time.Hour
	}
	return c
}

// Service runs the access lifecycle.
type Service struct {
	store   repository.AccessStore
	router  domain.Dispatcher
	gateway notification.Gateway
	cfg     Config
	now     func() time.Time
}

// NewService creates an access service.
func NewService(store repository.AccessStore, router domain.Dispatcher, gateway notification.Gateway, cfg Config) *Service {
	return &Service{
		store:   store,
		router:  router,
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreatePlanInput describes a new plan.
type CreatePlanInput struct {
	Name         string
	DurationDays int
	PriceCents   int64
}

// CreatePlan stores a new active plan.
func (s *Service) CreatePlan(ctx context.Context, in CreatePlanInput) (domain.Plan, error) {
	if in.Name == "" {
		return domain.Plan{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "plan name is required")
	}
	if in.DurationDays <= 0 {
		return domain.Plan{}, ErrInvalidDuration.WithParams(map[string]interface{}{"duration_days": in.DurationDays})
	}
	if in.PriceCents < 0 {
		return domain.Plan{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "price must not be negative")
	}

	plan := domain.Plan{
		ID:           domain.NewID("plan"),
		Name:         in.Name,
		DurationDays: in.DurationDays,
		PriceCents:   in.PriceCents,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return domain.Plan{}, fmt.Errorf("create plan: %w", err)
	}
	logger.Info("Plan created", zap.String("plan_id", plan.ID), zap.String("name", plan.Name))
	return plan, nil
}

// ListPlans returns all plans.
func (s *Service) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// IssueToken creates a one-shot invite token for planID. validFor <= 0
// uses the configured default.
func (s *Service) IssueToken(ctx context.Context, planID string, validFor time.Duration) (domain.InviteToken, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if apperrors.IsNotFound(err) {
		return domain.InviteToken{}, ErrPlanNotFound.WithParams(map[string]interface{}{"plan_id": planID})
	}
	if err != nil {
		return domain.InviteToken{}, fmt.Errorf("get plan: %w", err)
	}
	if !plan.Active {
		return domain.InviteToken{}, ErrPlanNotFound.WithParams(map[string]interface{}{"plan_id": planID, "active": false})
	}
	if validFor <= 0 {
		validFor = s.cfg.TokenValidity
	}

	now := s.now().UTC()
	tok := domain.InviteToken{
		Token:     uuid.NewString(),
		PlanID:    plan.ID,
		ExpiresAt: now.Add(validFor),
		CreatedAt: now,
	}
	if err := s.store.CreateInviteToken(ctx, tok); err != nil {
		return domain.InviteToken{}, fmt.Errorf("create invite token: %w", err)
	}
	logger.Info("Invite token issued", zap.String("plan_id", plan.ID), zap.Time("expires_at", tok.ExpiresAt))
	return tok, nil
}

// RedeemToken consumes token for userID and creates the subscription in
// the same atomic store operation. A rejected redemption leaves the token
// unused.
func (s *Service) RedeemToken(ctx context.Context, token string, userID int64) (domain.Subscription, error) {
	now := s.now().UTC()
	if err := s.endLapsed(ctx, userID, now); err != nil {
		return domain.Subscription{}, err
	}
	sub, err := s.store.RedeemInviteToken(ctx, token, userID, now, func(tok domain.InviteToken, plan domain.Plan) (domain.Subscription, error) {
		if tok.IsUsed {
			return domain.Subscription{}, ErrTokenUsed
		}
		if tok.Expired(now) {
			return domain.Subscription{}, ErrTokenExpired.WithParams(map[string]interface{}{"expires_at": tok.ExpiresAt})
		}
		return domain.Subscription{
			ID:        domain.NewID("sub"),
			UserID:    userID,
			PlanID:    plan.ID,
			Source:    domain.SourceToken,
			StartDate: now,
			EndDate:   now.Add(plan.Duration()),
			IsActive:  true,
			CreatedAt: now,
		}, nil
	})
	switch {
	case err == nil:
	case apperrors.IsRejected(err):
		return domain.Subscription{}, err
	case apperrors.IsNotFound(err):
		return domain.Subscription{}, ErrTokenNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return domain.Subscription{}, ErrSubscriptionActive.WithParams(map[string]interface{}{"user_id": userID})
	default:
		return domain.Subscription{}, fmt.Errorf("redeem invite token: %w", err)
	}

	logger.Info("Invite token redeemed",
		zap.Int64("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.String("plan_id", sub.PlanID),
		zap.Time("end_date", sub.EndDate),
	)
	s.routeSubscription(ctx, domain.EventSubscriptionGranted, sub, 0)
	return sub, nil
}

// GrantManual creates an active subscription lasting days without a token.
func (s *Service) GrantManual(ctx context.Context, userID int64, days int) (domain.Subscription, error) {
	if days <= 0 {
		return domain.Subscription{}, ErrInvalidDuration.WithParams(map[string]interface{}{"days": days})
	}

	now := s.now().UTC()
	if err := s.endLapsed(ctx, userID, now); err != nil {
		return domain.Subscription{}, err
	}
	sub := domain.Subscription{
		ID:        domain.NewID("sub"),
		UserID:    userID,
		Source:    domain.SourceManual,
		StartDate: now,
		EndDate:   now.Add(time.Duration(days) * 24 * time.Hour),
		IsActive:  true,
		CreatedAt: now,
	}
	err := s.store.CreateSubscription(ctx, sub)
	if errors.Is(err, apperrors.ErrConflict) {
		return domain.Subscription{}, ErrSubscriptionActive.WithParams(map[string]interface{}{"user_id": userID})
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	logger.Info("Subscription granted manually",
		zap.Int64("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.Int("days", days),
	)
	s.routeSubscription(ctx, domain.EventSubscriptionGranted, sub, 0)
	return sub, nil
}

// Revoke ends the user's active subscription now and removes them from the
// paid channel. A gateway failure is logged; the subscription stays
// revoked.
func (s *Service) Revoke(ctx context.Context, userID int64) (domain.Subscription, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if apperrors.IsNotFound(err) {
		return domain.Subscription{}, ErrNoActive.WithParams(map[string]interface{}{"user_id": userID})
	}
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("get active subscription: %w", err)
	}

	ended, err := s.end(ctx, sub, domain.EndRevoked)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !ended {
		// A concurrent revoke or sweep got there first.
		return domain.Subscription{}, ErrNoActive.WithParams(map[string]interface{}{"user_id": userID})
	}
	sub.IsActive = false
	sub.EndReason = domain.EndRevoked
	return sub, nil
}

// IsActive reports whether userID currently has access.
func (s *Service) IsActive(ctx context.Context, userID int64) (bool, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get active subscription: %w", err)
	}
	return sub.ActiveAt(s.now()), nil
}

// Status summarizes a user's access.
type Status struct {
	UserID   int64                 `json:"user_id"`
	Active   bool                  `json:"active"`
	Current  *domain.Subscription  `json:"current,omitempty"`
	DaysLeft int                   `json:"days_left,omitempty"`
	History  []domain.Subscription `json:"history"`
}

// GetStatus returns the user's current subscription, if any, and history.
func (s *Service) GetStatus(ctx context.Context, userID int64) (Status, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("list subscriptions: %w", err)
	}
	now := s.now()
	st := Status{UserID: userID, History: subs}
	for i := range subs {
		if subs[i].ActiveAt(now) {
			cur := subs[i]
			st.Active = true
			st.Current = &cur
			st.DaysLeft = cur.DaysUntilEnd(now)
		}
	}
	if st.History == nil {
		st.History = []domain.Subscription{}
	}
	return st, nil
}

// endLapsed expires the user's subscription when its end date has passed
// but the sweep has not flipped it yet, so a new grant is not refused.
func (s *Service) endLapsed(ctx context.Context, userID int64, now time.Time) error {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if apperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get active subscription: %w", err)
	}
	if sub.ActiveAt(now) {
		return nil
	}
	_, err = s.end(ctx, sub, domain.EndExpired)
	return err
}

// end deactivates sub and, when this call performed the flip, revokes
// channel access and emits the matching event.
func (s *Service) end(ctx context.Context, sub domain.Subscription, reason domain.EndReason) (bool, error) {
	ended, err := s.store.DeactivateSubscription(ctx, sub.ID, reason, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("deactivate subscription %s: %w", sub.ID, err)
	}
	if !ended {
		return false, nil
	}

	if err := s.gateway.RevokeAccess(ctx, sub.UserID, s.cfg.PaidChannelID); err != nil {
		logger.Error("Failed to revoke channel access",
			zap.Int64("user_id", sub.UserID),
			zap.String("subscription_id", sub.ID),
			zap.Int64("channel_id", s.cfg.PaidChannelID),
			zap.Error(err),
		)
	}

	eventType := domain.EventSubscriptionRevoked
	if reason == domain.EndExpired {
		eventType = domain.EventSubscriptionExpired
	}
	logger.Info("Subscription ended",
		zap.Int64("user_id", sub.UserID),
		zap.String("subscription_id", sub.ID),
		zap.String("reason", string(reason)),
	)
	s.routeSubscription(ctx, eventType, sub, 0)
	return true, nil
}

func (s *Service) routeSubscription(ctx context.Context, eventType domain.EventType, sub domain.Subscription, daysLeft int) {
	s.router.Route(ctx, domain.SubscriptionPayload{
		Type:           eventType,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		EndDate:        sub.EndDate,
		DaysLeft:       daysLeft,
	})
}
