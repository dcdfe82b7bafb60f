package quota

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/rbac"
	"voice-gateway/pkg/logger"
)

// RemainingService is the part of Service the middleware needs.
type RemainingService interface {
	Remaining(ctx context.Context, userID string) (int, error)
}

// RequireCallsRemaining blocks users whose call quota is used up. service_role bypasses.
// The remaining count is stored on the gin context as "calls_remaining".
func RequireCallsRemaining(svc RemainingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := auth.Role(c.Request.Context())
		if rbac.IsServiceRole(role) {
			c.Next()
			return
		}

		userID, err := auth.UserID(c.Request.Context())
		if err != nil || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		n, err := svc.Remaining(c.Request.Context(), userID)
		if err != nil {
			logger.FromGin(c).Error("quota lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "quota lookup failed"})
			return
		}
		if n <= 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrQuotaExceeded.Error(), "callsRemaining": 0})
			return
		}
		c.Set("calls_remaining", n)
		c.Next()
	}
}
