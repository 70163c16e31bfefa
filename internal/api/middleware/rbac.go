package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	apperrors "keeper.dev/keeper/internal/pkg/errors"
)

// RequireRole returns middleware that admits only tokens carrying role.
// It must run after JWTAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles := GetRoles(c.Request.Context())
		if roles == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": apperrors.CodeForbidden, "message": "no roles in context",
			})
			return
		}
		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": apperrors.CodeForbidden, "message": "insufficient role",
			})
			return
		}
		c.Next()
	}
}
