package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/pipeline"
	"voice-gateway/internal/vapi"
	"voice-gateway/pkg/logger"
)

var (
	phoneShape     = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

const demoWaitTime = "30 seconds"

type demoCallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	// Honeypot is a hidden form field. Browsers leave it empty; naive bots fill it in.
	Honeypot string `json:"honeypot"`
}

// NormalizePhone strips common separators and reports whether the rest is a dialable number.
func NormalizePhone(raw string) (string, bool) {
	p := phoneSeparator.Replace(strings.TrimSpace(raw))
	return p, phoneShape.MatchString(p)
}

// DemoCall rings a visitor from the landing page. It is public and rate limited per IP.
func (h Handlers) DemoCall(c *gin.Context) {
	var req demoCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	log := logger.FromGin(c)
	if req.Honeypot != "" {
		log.Warn("demo call honeypot tripped", "client_ip", c.ClientIP())
		h.fail(c, validationError("invalid request"))
		return
	}
	phone, ok := NormalizePhone(req.PhoneNumber)
	if !ok {
		h.fail(c, validationError("invalid phone number"))
		return
	}
	if h.DemoAssistantID == "" {
		h.fail(c, unavailable("demo calls are not configured"))
		return
	}

	ctx := c.Request.Context()
	call, err := h.Provider.CreateCall(ctx, vapi.CreateCallRequest{
		AssistantID:   h.DemoAssistantID,
		PhoneNumberID: h.DemoPhoneNumberID,
		Customer:      vapi.Customer{Number: phone, Name: strings.TrimSpace(req.Name)},
		Metadata:      map[string]any{"source": "demo"},
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	now := h.now()
	rec := calls.CallRecord{
		ID:             uuid.NewString(),
		ProviderCallID: call.ID,
		AssistantID:    h.DemoAssistantID,
		CallerPhone:    phone,
		Status:         calls.CallStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.Calls.Create(ctx, rec); err != nil {
		log.Error("demo call record not stored", "provider_call_id", call.ID, "err", err)
	}

	if h.Tasks != nil && h.Notifier != nil {
		notifier := h.Notifier
		callID := call.ID
		h.Tasks.Submit(pipeline.Task{
			Name:  "demo_call_notification",
			Attrs: map[string]string{"call_id": callID},
			Run: func(ctx context.Context) error {
				return notifier.NotifyDemoCall(ctx, phone, callID)
			},
		})
	}

	log.Info("demo call placed", "provider_call_id", call.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "callId": call.ID, "estimatedWaitTime": demoWaitTime})
}
