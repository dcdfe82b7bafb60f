package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/vapi"
)

func (h Handlers) CreateAssistant(c *gin.Context) {
	var req vapi.Assistant
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	if strings.TrimSpace(req.Name) == "" || emptyJSON(req.Model) || emptyJSON(req.Voice) {
		h.fail(c, validationError("name, model and voice are required"))
		return
	}
	out, err := h.Provider.CreateAssistant(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assistant": out})
}

func (h Handlers) GetAssistant(c *gin.Context) {
	out, err := h.Provider.GetAssistant(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistant": out})
}

func (h Handlers) ListAssistants(c *gin.Context) {
	out, err := h.Provider.ListAssistants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if out == nil {
		out = []vapi.Assistant{}
	}
	c.JSON(http.StatusOK, gin.H{"assistants": out})
}

func (h Handlers) UpdateAssistant(c *gin.Context) {
	var patch vapi.Assistant
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	patch.ID = ""
	out, err := h.Provider.UpdateAssistant(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assistant": out})
}

func (h Handlers) DeleteAssistant(c *gin.Context) {
	if err := h.Provider.DeleteAssistant(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func emptyJSON(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("{}")) || bytes.Equal(t, []byte(`""`))
}
