package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-gateway/pkg/logger"
)

func (h Handlers) GetQuota(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	n, err := h.Quota.Remaining(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"callsRemaining": n})
}

type grantRequest struct {
	UserID         string `json:"userId"`
	Calls          int    `json:"calls"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// GrantQuota adds calls to a user's quota. RBAC: service_role only.
func (h Handlers) GrantQuota(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Calls <= 0 || req.IdempotencyKey == "" {
		h.fail(c, validationError("userId, positive calls and idempotencyKey are required"))
		return
	}
	n, err := h.Quota.Grant(c.Request.Context(), req.UserID, req.Calls, req.IdempotencyKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	logger.FromGin(c).Info("quota granted", "user_id", req.UserID, "calls", req.Calls)
	c.JSON(http.StatusOK, gin.H{"success": true, "userId": req.UserID, "callsRemaining": n})
}
