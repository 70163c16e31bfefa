package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/api/middleware"
	"keeper.dev/keeper/internal/domain"
	apperrors "keeper.dev/keeper/internal/pkg/errors"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/repository"
)

// CreatePlanRequest is the body of POST /admin/plans.
type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"required"`
	PriceCents   int64  `json:"price_cents"`
}

// CreatePlan handles POST /admin/plans.
func (s *Server) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	plan, err := s.access.CreatePlan(ctx, access.CreatePlanInput{
		Name:         req.Name,
		DurationDays: req.DurationDays,
		PriceCents:   req.PriceCents,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("Plan created by admin",
		zap.String("actor", middleware.GetSubject(ctx)),
		zap.String("plan_id", plan.ID),
	)
	c.JSON(http.StatusCreated, plan)
}

// ListPlans handles GET /admin/plans.
func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.access.ListPlans(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": plans})
}

// IssueTokenRequest is the body of POST /admin/invite-tokens.
type IssueTokenRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
	// ValidHours overrides the configured token validity when positive.
	ValidHours int `json:"valid_hours"`
}

// IssueInviteToken handles POST /admin/invite-tokens.
func (s *Server) IssueInviteToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	tok, err := s.access.IssueToken(ctx, req.PlanID, time.Duration(req.ValidHours)*time.Hour)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("Invite token issued by admin",
		zap.String("actor", middleware.GetSubject(ctx)),
		zap.String("plan_id", tok.PlanID),
		zap.Time("expires_at", tok.ExpiresAt),
	)
	c.JSON(http.StatusCreated, tok)
}

// GrantRequest is the body of POST /admin/subscriptions.
type GrantRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Days   int   `json:"days" binding:"required"`
}

// GrantSubscription handles POST /admin/subscriptions.
func (s *Server) GrantSubscription(c *gin.Context) {
	var req GrantRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	sub, err := s.access.GrantManual(ctx, req.UserID, req.Days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("Subscription granted by admin",
		zap.String("actor", middleware.GetSubject(ctx)),
		zap.Int64("user_id", sub.UserID),
		zap.Int("days", req.Days),
	)
	c.JSON(http.StatusCreated, sub)
}

// RevokeSubscription handles DELETE /admin/subscriptions/:user_id.
func (s *Server) RevokeSubscription(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	sub, err := s.access.Revoke(ctx, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.Info("Subscription revoked by admin",
		zap.String("actor", middleware.GetSubject(ctx)),
		zap.Int64("user_id", userID),
		zap.String("subscription_id", sub.ID),
	)
	c.JSON(http.StatusOK, sub)
}

// SchedulePostRequest is the body of POST /admin/posts.
type SchedulePostRequest struct {
	ChannelID int64  `json:"channel_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
	// PublishAt defaults to now.
	PublishAt time.Time `json:"publish_at"`
}

// SchedulePost handles POST /admin/posts.
func (s *Server) SchedulePost(c *gin.Context) {
	var req SchedulePostRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	post, err := s.publishing.Schedule(c.Request.Context(), req.ChannelID, req.Content, req.PublishAt)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListAuditLogs handles GET /admin/audit-logs.
// Query: event_type, since (RFC 3339), limit.
func (s *Server) ListAuditLogs(c *gin.Context) {
	filter := repository.AuditFilter{
		EventType: domain.EventType(c.Query("event_type")),
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "since must be an RFC 3339 timestamp").
				WithParams(map[string]interface{}{"since": raw}))
			return
		}
		filter.Since = since
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	filter.Limit = defaultLimit(limit)

	entries, err := s.audit.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries, "limit": filter.Limit})
}

// ListJobs handles GET /admin/jobs.
func (s *Server) ListJobs(c *gin.Context) {
	if s.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"items": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.scheduler.Jobs()})
}

// TriggerJob handles POST /admin/jobs/:name/run. The job runs synchronously.
func (s *Server) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	if !s.hasJob(name) {
		_ = c.Error(apperrors.NotFound(apperrors.CodeNotFound, "job not found").
			WithParams(map[string]interface{}{"name": name}))
		return
	}

	ctx := c.Request.Context()
	logger.Info("Job triggered by admin",
		zap.String("actor", middleware.GetSubject(ctx)),
		zap.String("job", name),
	)
	if err := s.scheduler.Trigger(ctx, name); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "status": "completed"})
}

func (s *Server) hasJob(name string) bool {
	if s.scheduler == nil {
		return false
	}
	for _, j := range s.scheduler.Jobs() {
		if j.Name == name {
			return true
		}
	}
	return false
}
