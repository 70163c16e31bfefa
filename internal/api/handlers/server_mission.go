package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/mission"
)

// MissionView pairs a catalog definition with the user's progress record.
type MissionView struct {
	Definition mission.Definition      `json:"definition"`
	Progress   *domain.MissionProgress `json:"progress,omitempty"`
}

// ListUserMissions handles GET /users/:user_id/missions.
func (s *Server) ListUserMissions(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	records, err := s.missions.List(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	byID := make(map[string]domain.MissionProgress, len(records))
	for _, rec := range records {
		byID[rec.MissionID] = rec
	}

	defs := s.missions.Catalog().All()
	items := make([]MissionView, 0, len(defs))
	for _, def := range defs {
		view := MissionView{Definition: def}
		if rec, ok := byID[def.ID]; ok {
			view.Progress = &rec
		}
		items = append(items, view)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// StartMission handles POST /users/:user_id/missions/:mission_id/start.
func (s *Server) StartMission(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	rec, err := s.missions.Start(c.Request.Context(), userID, c.Param("mission_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ProgressRequest is the body of the mission progress endpoint.
type ProgressRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// UpdateMissionProgress handles POST /users/:user_id/missions/:mission_id/progress.
func (s *Server) UpdateMissionProgress(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req ProgressRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	rec, err := s.missions.UpdateProgress(c.Request.Context(), userID, c.Param("mission_id"), *req.Value)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ClaimMissionReward handles POST /users/:user_id/missions/:mission_id/claim.
func (s *Server) ClaimMissionReward(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	reward, err := s.missions.ClaimReward(c.Request.Context(), userID, c.Param("mission_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reward)
}
