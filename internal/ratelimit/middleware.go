package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"voice-gateway/pkg/logger"
)

var rejectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voice_gateway",
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Requests rejected by the rate limiter",
	},
	[]string{"limiter"},
)

func init() {
	prometheus.MustRegister(rejectedTotal)
}

// Middleware enforces l per client key. Limiter errors fail open.
func Middleware(name string, l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), ClientKey(c.Request))
		if err != nil {
			logger.FromGin(c).Error("rate limiter unavailable", "limiter", name, "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			secs := RetryAfterSeconds(res.RetryAfter)
			rejectedTotal.WithLabelValues(name).Inc()
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests, please try again later",
				"retryAfter": secs,
			})
			return
		}
		c.Next()
	}
}
