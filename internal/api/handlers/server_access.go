package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RedeemRequest is the body of POST /subscriptions/redeem.
type RedeemRequest struct {
	Token  string `json:"token" binding:"required"`
	UserID int64  `json:"user_id" binding:"required"`
}

// RedeemToken handles POST /subscriptions/redeem.
func (s *Server) RedeemToken(c *gin.Context) {
	var req RedeemRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	sub, err := s.access.RedeemToken(c.Request.Context(), req.Token, req.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// GetUserAccess handles GET /users/:user_id/access.
func (s *Server) GetUserAccess(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status, err := s.access.GetStatus(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// JoinRequest is the body of POST /join-requests.
type JoinRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ChannelID int64 `json:"channel_id" binding:"required"`
}

// CreateJoinRequest handles POST /join-requests. The request is decided by
// the join-request sweep once its delay has passed.
func (s *Server) CreateJoinRequest(c *gin.Context) {
	var req JoinRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	jr, err := s.admissions.Request(c.Request.Context(), req.UserID, req.ChannelID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, jr)
}
