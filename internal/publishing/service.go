// Package publishing delivers channel posts: posts scheduled for a time,
// and content rules that publish as soon as a matching event is routed.
package publishing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/notification"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// DefaultMaxAttempts bounds delivery retries of a scheduled post.
const DefaultMaxAttempts = 5

// Service schedules and publishes posts.
type Service struct {
	store       repository.PostStore
	router      domain.Dispatcher
	gateway     notification.Gateway
	maxAttempts int
	now         func() time.Time
}

// NewService creates a publishing service. maxAttempts <= 0 uses
// DefaultMaxAttempts.
func NewService(store repository.PostStore, router domain.Dispatcher, gateway notification.Gateway, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Service{
		store:       store,
		router:      router,
		gateway:     gateway,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// WithClock overrides the clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Schedule queues content for channelID at the given time. A zero time
// means now.
func (s *Service) Schedule(ctx context.Context, channelID int64, content string, at time.Time) (domain.ScheduledPost, error) {
	if channelID == 0 {
		return domain.ScheduledPost{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "channel_id is required")
	}
	if strings.TrimSpace(content) == "" {
		return domain.ScheduledPost{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "content is required")
	}

	now := s.now().UTC()
	if at.IsZero() {
		at = now
	}
	post := domain.ScheduledPost{
		ID:          domain.NewID("post"),
		ChannelID:   channelID,
		Content:     content,
		ScheduledAt: at.UTC(),
		CreatedAt:   now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return domain.ScheduledPost{}, fmt.Errorf("create post: %w", err)
	}
	logger.Info("Post scheduled",
		zap.String("post_id", post.ID),
		zap.Int64("channel_id", channelID),
		zap.Time("scheduled_at", post.ScheduledAt),
	)
	return post, nil
}

// PublishResult counts a publishing sweep.
type PublishResult struct {
	Sent     int `json:"sent"`
	Retrying int `json:"retrying"`
	GaveUp   int `json:"gave_up"`
}

// PublishDue attempts every due post. A failed attempt keeps the post
// queued until maxAttempts is reached, after which it is marked failed.
func (s *Service) PublishDue(ctx context.Context, now time.Time) (PublishResult, error) {
	posts, err := s.store.ListDuePosts(ctx, now)
	if err != nil {
		return PublishResult{}, fmt.Errorf("list due posts: %w", err)
	}

	var res PublishResult
	for _, post := range posts {
		switch s.publish(ctx, post, now) {
		case outcomeSent:
			res.Sent++
		case outcomeRetry:
			res.Retrying++
		case outcomeGaveUp:
			res.GaveUp++
		}
	}
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeRetry
	outcomeGaveUp
)

func (s *Service) publish(ctx context.Context, post domain.ScheduledPost, now time.Time) outcome {
	if err := s.gateway.Publish(ctx, post.ChannelID, post.Content); err != nil {
		updated, rerr := s.store.RecordPostFailure(ctx, post.ID, err.Error(), s.maxAttempts)
		if rerr != nil {
			logger.Error("Failed to record post failure",
				zap.String("post_id", post.ID),
				zap.Error(rerr),
			)
			return outcomeSkipped
		}
		if updated.Failed {
			logger.Error("Post delivery abandoned",
				zap.String("post_id", post.ID),
				zap.Int("attempts", updated.Attempts),
				zap.Error(err),
			)
			return outcomeGaveUp
		}
		logger.Warn("Post delivery failed, will retry",
			zap.String("post_id", post.ID),
			zap.Int("attempts", updated.Attempts),
			zap.Error(err),
		)
		return outcomeRetry
	}

	marked, err := s.store.MarkPostSent(ctx, post.ID, now.UTC())
	if err != nil {
		logger.Error("Failed to mark post sent", zap.String("post_id", post.ID), zap.Error(err))
		return outcomeSkipped
	}
	if !marked {
		return outcomeSkipped
	}
	logger.Info("Post published", zap.String("post_id", post.ID), zap.Int64("channel_id", post.ChannelID))
	s.router.Route(ctx, domain.PostPublishedPayload{PostID: post.ID, ChannelID: post.ChannelID})
	return outcomeSent
}
