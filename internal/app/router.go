package app

import (
	"github.com/gin-gonic/gin"

	"keeper.dev/keeper/internal/api/handlers"
	"keeper.dev/keeper/internal/api/middleware"
	"keeper.dev/keeper/internal/pkg/logger"
)

// BaseURL prefixes every API route.
const BaseURL = "/api/v1"

// newRouter registers the API. User-facing routes are called by the
// messaging bridge and carry no auth; /admin requires an admin JWT.
func newRouter(server *handlers.Server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())

	api := router.Group(BaseURL)
	api.GET("/health/live", server.GetLiveness)
	api.GET("/health/ready", server.GetReadiness)

	api.POST("/interactions", server.PostInteraction)
	api.POST("/subscriptions/redeem", server.RedeemToken)
	api.POST("/join-requests", server.CreateJoinRequest)

	users := api.Group("/users/:user_id")
	users.GET("/access", server.GetUserAccess)
	users.GET("/profile", server.GetUserProfile)
	users.GET("/missions", server.ListUserMissions)
	users.POST("/missions/:mission_id/start", server.StartMission)
	users.POST("/missions/:mission_id/progress", server.UpdateMissionProgress)
	users.POST("/missions/:mission_id/claim", server.ClaimMissionReward)

	admin := api.Group("/admin",
		middleware.JWTAuth(server.JWTConfig()),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	admin.POST("/plans", server.CreatePlan)
	admin.GET("/plans", server.ListPlans)
	admin.POST("/invite-tokens", server.IssueInviteToken)
	admin.POST("/subscriptions", server.GrantSubscription)
	admin.DELETE("/subscriptions/:user_id", server.RevokeSubscription)
	admin.POST("/posts", server.SchedulePost)
	admin.GET("/audit-logs", server.ListAuditLogs)
	admin.GET("/jobs", server.ListJobs)
	admin.POST("/jobs/:name/run", server.TriggerJob)

	logLevel := gin.WrapH(logger.LevelHandler())
	admin.GET("/log-level", logLevel)
	admin.PUT("/log-level", logLevel)

	return router
}
