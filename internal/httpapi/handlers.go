package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/calls"
	"voice-gateway/internal/conversation"
	"voice-gateway/internal/leads"
	"voice-gateway/internal/livefeed"
	"voice-gateway/internal/notify"
	"voice-gateway/internal/pipeline"
	"voice-gateway/internal/quota"
	"voice-gateway/internal/reporting"
	"voice-gateway/internal/vapi"
)

// VoiceProvider is the subset of the provider REST API the gateway proxies.
type VoiceProvider interface {
	CreateCall(ctx context.Context, req vapi.CreateCallRequest) (vapi.Call, error)
	GetCall(ctx context.Context, id string) (vapi.Call, error)
	CreateAssistant(ctx context.Context, a vapi.Assistant) (vapi.Assistant, error)
	GetAssistant(ctx context.Context, id string) (vapi.Assistant, error)
	ListAssistants(ctx context.Context) ([]vapi.Assistant, error)
	UpdateAssistant(ctx context.Context, id string, patch vapi.Assistant) (vapi.Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error
}

type Submitter interface {
	Submit(t pipeline.Task) bool
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Provider     VoiceProvider
	Calls        calls.Repository
	Leads        *leads.Service
	Conversation *conversation.Service
	Quota        *quota.Service
	Reporting    *reporting.Service
	Notifier     notify.Notifier
	Tasks        Submitter
	Live         *livefeed.Handler

	// DBCheck reports datastore reachability on /health. Optional.
	DBCheck func(ctx context.Context) error

	Env        string
	Version    string
	StartedAt  time.Time
	Production bool

	DemoAssistantID   string
	DemoPhoneNumberID string

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h Handlers) fail(c *gin.Context, err error) { writeError(c, err, h.Production) }

// userID reads the authenticated subject. Routes using it sit behind RequireAccessToken.
func (h Handlers) userID(c *gin.Context) (string, bool) {
	id, err := auth.UserID(c.Request.Context())
	if err != nil || id == "" {
		h.fail(c, authError("authentication required"))
		return "", false
	}
	return id, true
}

// Health always answers 200 while the process is alive; dependency state is informational.
func (h Handlers) Health(c *gin.Context) {
	now := h.now()
	body := gin.H{
		"status":      "ok",
		"timestamp":   now.Format(time.RFC3339),
		"uptime":      now.Sub(h.StartedAt).Seconds(),
		"environment": h.Env,
		"version":     h.Version,
	}
	if h.DBCheck != nil {
		db := "ok"
		if err := h.DBCheck(c.Request.Context()); err != nil {
			db = "unavailable"
		}
		body["database"] = db
	}
	c.JSON(http.StatusOK, body)
}
