// Package notification delivers Keeper's outbound effects through the
// messaging gateway and turns routed events into user notices.
//
// Gateway calls happen after the owning state transition is committed.
// A failed call is logged by the caller; state is never rolled back.
package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// Notice is a structured user-facing notification. Rendering and
// localization belong to the gateway.
type Notice struct {
	Kind    string         `json:"kind"`
	Title   string         `json:"title"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Gateway is the messaging platform seen from Keeper.
type Gateway interface {
	// Notify sends a notice to a single user.
	Notify(ctx context.Context, userID int64, notice Notice) error

	// RevokeAccess removes the user from a gated channel.
	RevokeAccess(ctx context.Context, userID, channelID int64) error

	// Admit approves a pending join request.
	Admit(ctx context.Context, userID, channelID int64) error

	// Publish posts content to a channel.
	Publish(ctx context.Context, channelID int64, content string) error
}

// LogGateway writes every call to the structured log. It is the default
// gateway for deployments without a platform bridge.
type LogGateway struct{}

var _ Gateway = LogGateway{}

// Notify logs the notice.
func (LogGateway) Notify(_ context.Context, userID int64, notice Notice) error {
	if err := validateNotice(notice); err != nil {
		return err
	}
	logger.Info("gateway notify",
		zap.Int64("user_id", userID),
		zap.String("kind", notice.Kind),
		zap.String("title", notice.Title),
		zap.Any("data", notice.Data),
	)
	return nil
}

// RevokeAccess logs the revocation.
func (LogGateway) RevokeAccess(_ context.Context, userID, channelID int64) error {
	logger.Info("gateway revoke access", zap.Int64("user_id", userID), zap.Int64("channel_id", channelID))
	return nil
}

// Admit logs the admission.
func (LogGateway) Admit(_ context.Context, userID, channelID int64) error {
	logger.Info("gateway admit", zap.Int64("user_id", userID), zap.Int64("channel_id", channelID))
	return nil
}

// Publish logs the post.
func (LogGateway) Publish(_ context.Context, channelID int64, content string) error {
	logger.Info("gateway publish", zap.Int64("channel_id", channelID), zap.Int("content_len", len(content)))
	return nil
}

func validateNotice(n Notice) error {
	if n.Kind == "" {
		return fmt.Errorf("notice kind is required")
	}
	if n.Title == "" {
		return fmt.Errorf("notice title is required")
	}
	return nil
}
