package webhook

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-gateway/pkg/logger"
)

const (
	secretHeader   = "X-Vapi-Secret"
	maxWebhookBody = 1 << 20
)

// Handler acknowledges every stored event with 200 so the provider does not retry;
// processing errors are reported in the body instead.
func Handler(p *Processor, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(secretHeader)), []byte(secret)) != 1 {
			eventsTotal.WithLabelValues("unsupported", "rejected").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}

		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"received": true, "error": "unreadable body"})
			return
		}

		res, err := p.Handle(c.Request.Context(), raw)
		if err != nil {
			logger.FromGin(c).Error("webhook not stored", "err", err)
			c.JSON(http.StatusOK, gin.H{"received": true, "error": "event not stored"})
			return
		}
		if res.Err != nil {
			c.JSON(http.StatusOK, gin.H{"received": true, "error": res.Err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
