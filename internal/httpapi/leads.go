package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/leads"
	"voice-gateway/pkg/logger"
)

type captureLeadRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Intent         string `json:"intent"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Source         string `json:"source"`
}

// CaptureLead is public. A valid bearer token, when sent, attributes the lead to its user.
func (h Handlers) CaptureLead(c *gin.Context) {
	var req captureLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	userID, _ := auth.UserID(c.Request.Context())

	source := leads.Source(req.Source)
	if source != leads.SourceChat {
		source = leads.SourceWidget
	}
	l, err := h.Leads.Capture(c.Request.Context(), leads.CaptureRequest{
		UserID:         userID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Intent:         req.Intent,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Source:         source,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	// A captured chat lead is reflected on its conversation.
	if req.ConversationID != "" && h.Conversation != nil {
		if _, err := h.Conversation.UpdateMetadata(c.Request.Context(), req.ConversationID, map[string]any{"leadCaptured": true}); err != nil {
			logger.FromGin(c).Warn("lead flag not set on conversation", "conversation_id", req.ConversationID, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead": l})
}

func (h Handlers) ListLeads(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	out, err := h.Leads.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": out, "limit": limit, "offset": offset})
}

func (h Handlers) GetLead(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	l, err := h.Leads.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": l})
}

func (h Handlers) UpdateLead(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var p leads.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	l, err := h.Leads.Update(c.Request.Context(), userID, c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lead": l})
}
