package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies a bearer token and injects identity into request context.
// Role policy (for example rejecting anon tokens) belongs to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID(), claims.Email, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", claims.UserID())
		c.Set("role", claims.Role)

		c.Next()
	}
}

// OptionalAccessToken attaches identity when a bearer token is sent and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func OptionalAccessToken(m *Manager) gin.HandlerFunc {
	required := RequireAccessToken(m)
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader(authorizationHeader)) == "" {
			c.Next()
			return
		}
		required(c)
	}
}
