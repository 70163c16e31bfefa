package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/gamification"
)

// Profile is the combined gamification and persona view of a user.
type Profile struct {
	gamification.Profile
	Persona domain.PersonaState `json:"persona"`
}

// GetUserProfile handles GET /users/:user_id/profile.
// ?recent=N bounds the number of ledger rows returned.
func (s *Server) GetUserProfile(c *gin.Context) {
	userID, err := pathUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	recent, _ := strconv.Atoi(c.Query("recent"))
	if recent <= 0 {
		recent = 10
	}

	ctx := c.Request.Context()
	gp, err := s.gamification.GetProfile(ctx, userID, recent)
	if err != nil {
		_ = c.Error(err)
		return
	}
	state, err := s.persona.GetState(ctx, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, Profile{Profile: gp, Persona: state})
}
