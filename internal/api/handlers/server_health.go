package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keeper.dev/keeper/internal/pkg/logger"
)

// Health is the probe response body.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health statuses.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOK})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	if s.store == nil {
		checks["store"] = "missing"
		allHealthy = false
	} else if err := s.store.Ping(c.Request.Context()); err != nil {
		logger.Warn("Readiness check failed", zap.String("check", "store"), zap.Error(err))
		checks["store"] = "error"
		allHealthy = false
	} else {
		checks["store"] = "ok"
	}

	status := HealthStatusOK
	httpStatus := http.StatusOK
	if !allHealthy {
		status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, Health{Status: status, Checks: checks})
}
