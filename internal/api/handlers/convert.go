package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "keeper.dev/keeper/internal/pkg/errors"
)

// defaultLimit normalizes a list limit from query params.
// 0 means not specified.
func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// pathUserID parses the :user_id path parameter.
func pathUserID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Param("user_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.BadRequest(apperrors.CodeValidationFailed, "user_id must be a positive integer").
			WithParams(map[string]interface{}{"user_id": raw})
	}
	return id, nil
}

// bindJSON decodes the request body and reports binding failures as 400s.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.Wrap(err, apperrors.CodeValidationFailed, "invalid request body", http.StatusBadRequest)
	}
	return nil
}
