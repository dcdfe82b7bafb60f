package httpapi

import "github.com/gin-gonic/gin"

// LiveCall upgrades to a websocket relaying webhook events for one of the caller's calls.
func (h Handlers) LiveCall(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	rec, err := h.ownedCall(c, userID, c.Param("callId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Live == nil {
		h.fail(c, unavailable("live feed not configured"))
		return
	}
	// Events are published under the provider's id.
	id := rec.ProviderCallID
	if id == "" {
		id = rec.ID
	}
	h.Live.Serve(c.Writer, c.Request, id)
}
