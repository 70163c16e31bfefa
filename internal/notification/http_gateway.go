package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGatewayTimeout bounds each bridge call.
const DefaultGatewayTimeout = 10 * time.Second

// HTTPGateway forwards gateway calls as JSON POSTs to a platform bridge:
// {base}/notify, {base}/revoke, {base}/admit and {base}/publish.
type HTTPGateway struct {
	baseURL   string
	authToken string
	client    *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

// HTTPGatewayConfig configures an HTTPGateway.
type HTTPGatewayConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// NewHTTPGateway creates a bridge client.
func NewHTTPGateway(cfg HTTPGatewayConfig) (*HTTPGateway, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &HTTPGateway{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type notifyRequest struct {
	UserID int64  `json:"user_id"`
	Notice Notice `json:"notice"`
}

type membershipRequest struct {
	UserID    int64 `json:"user_id"`
	ChannelID int64 `json:"channel_id"`
}

type publishRequest struct {
	ChannelID int64  `json:"channel_id"`
	Content   string `json:"content"`
}

// Notify implements Gateway.
func (g *HTTPGateway) Notify(ctx context.Context, userID int64, notice Notice) error {
	if err := validateNotice(notice); err != nil {
		return err
	}
	return g.post(ctx, "/notify", notifyRequest{UserID: userID, Notice: notice})
}

// RevokeAccess implements Gateway.
func (g *HTTPGateway) RevokeAccess(ctx context.Context, userID, channelID int64) error {
	return g.post(ctx, "/revoke", membershipRequest{UserID: userID, ChannelID: channelID})
}

// Admit implements Gateway.
func (g *HTTPGateway) Admit(ctx context.Context, userID, channelID int64) error {
	return g.post(ctx, "/admit", membershipRequest{UserID: userID, ChannelID: channelID})
}

// Publish implements Gateway.
func (g *HTTPGateway) Publish(ctx context.Context, channelID int64, content string) error {
	return g.post(ctx, "/publish", publishRequest{ChannelID: channelID, Content: content})
}

func (g *HTTPGateway) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.authToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
