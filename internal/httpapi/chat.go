package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/conversation"
)

func (h Handlers) Chat(c *gin.Context) {
	var req conversation.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	out, err := h.Conversation.Chat(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) GetConversation(c *gin.Context) {
	v, err := h.Conversation.Get(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type metadataRequest struct {
	Metadata     map[string]any `json:"metadata"`
	LeadCaptured *bool          `json:"leadCaptured"`
}

func (h Handlers) UpdateConversationMetadata(c *gin.Context) {
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	meta := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	if req.LeadCaptured != nil {
		meta["leadCaptured"] = *req.LeadCaptured
	}
	if len(meta) == 0 {
		h.fail(c, validationError("metadata is required"))
		return
	}
	conv, err := h.Conversation.UpdateMetadata(c.Request.Context(), c.Param("conversationId"), meta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": conv})
}
