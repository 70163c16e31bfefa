package access

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/notification"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// DefaultJoinDelay is how long a join request waits before admission.
const DefaultJoinDelay = 5 * time.Minute

// Admissions admits join requests after a fixed delay.
type Admissions struct {
	store   repository.AdmissionStore
	router  domain.Dispatcher
	gateway notification.Gateway
	delay   time.Duration
	now     func() time.Time
}

// NewAdmissions creates the admissions service. delay <= 0 uses
// DefaultJoinDelay.
func NewAdmissions(store repository.AdmissionStore, router domain.Dispatcher, gateway notification.Gateway, delay time.Duration) *Admissions {
	if delay <= 0 {
		delay = DefaultJoinDelay
	}
	return &Admissions{
		store:   store,
		router:  router,
		gateway: gateway,
		delay:   delay,
		now:     time.Now,
	}
}

// WithClock overrides the clock.
func (a *Admissions) WithClock(now func() time.Time) *Admissions {
	a.now = now
	return a
}

// Request records a join request to be admitted after the delay.
func (a *Admissions) Request(ctx context.Context, userID, channelID int64) (domain.JoinRequest, error) {
	if userID == 0 || channelID == 0 {
		return domain.JoinRequest{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "user_id and channel_id are required")
	}

	now := a.now().UTC()
	req := domain.JoinRequest{
		ID:          domain.NewID("join"),
		UserID:      userID,
		ChannelID:   channelID,
		RequestedAt: now,
		AcceptAt:    now.Add(a.delay),
	}
	if err := a.store.CreateJoinRequest(ctx, req); err != nil {
		return domain.JoinRequest{}, fmt.Errorf("create join request: %w", err)
	}
	logger.Info("Join request queued",
		zap.String("request_id", req.ID),
		zap.Int64("user_id", userID),
		zap.Int64("channel_id", channelID),
		zap.Time("accept_at", req.AcceptAt),
	)
	return req, nil
}

// ProcessResult counts a join-request sweep.
type ProcessResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// ProcessDue admits every due request. A request is marked processed
// whether or not the gateway admitted it, so a failure is never retried.
func (a *Admissions) ProcessDue(ctx context.Context, now time.Time) (ProcessResult, error) {
	reqs, err := a.store.ListDueJoinRequests(ctx, now)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list due join requests: %w", err)
	}

	var res ProcessResult
	for _, req := range reqs {
		accepted := true
		if err := a.gateway.Admit(ctx, req.UserID, req.ChannelID); err != nil {
			accepted = false
			logger.Warn("Join request admission failed",
				zap.String("request_id", req.ID),
				zap.Int64("user_id", req.UserID),
				zap.Error(err),
			)
		}

		marked, err := a.store.MarkJoinRequestProcessed(ctx, req.ID, accepted, now.UTC())
		if err != nil {
			res.Skipped++
			logger.Error("Failed to mark join request processed",
				zap.String("request_id", req.ID),
				zap.Error(err),
			)
			continue
		}
		if !marked {
			res.Skipped++
			continue
		}
		if accepted {
			res.Accepted++
		} else {
			res.Rejected++
		}
		a.router.Route(ctx, domain.JoinRequestProcessedPayload{
			RequestID: req.ID,
			UserID:    req.UserID,
			ChannelID: req.ChannelID,
			Accepted:  accepted,
		})
	}

	if len(reqs) > 0 {
		logger.Info("Join requests processed",
			zap.Int("accepted", res.Accepted),
			zap.Int("rejected", res.Rejected),
			zap.Int("skipped", res.Skipped),
		)
	}
	return res, nil
}
