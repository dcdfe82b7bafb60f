package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/reporting"
)

const defaultStatsRange = 30 * 24 * time.Hour

// Stats summarizes the caller's calls and leads. from/to are RFC 3339; the default
// range is the last 30 days.
func (h Handlers) Stats(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	to := h.now()
	from := to.Add(-defaultStatsRange)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.fail(c, validationError("from must be RFC 3339"))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.fail(c, validationError("to must be RFC 3339"))
			return
		}
		to = t
	}

	out, err := h.Reporting.Stats(c.Request.Context(), reporting.StatsRequest{
		UserID: userID,
		Range:  reporting.TimeRange{From: from, To: to},
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
