package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keeper.dev/keeper/internal/usecase"
)

// PostInteraction handles POST /interactions.
// Accepted interactions answer 202; actors in cooldown get 429.
func (s *Server) PostInteraction(c *gin.Context) {
	var req usecase.IngestInteractionInput
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	out, err := s.ingest.Execute(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, out)
}
