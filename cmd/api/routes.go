package main

import (
	"voice-gateway/internal/auth"
	"voice-gateway/internal/events"
	"voice-gateway/internal/httpapi"
	"voice-gateway/internal/quota"
	"voice-gateway/internal/ratelimit"
	"voice-gateway/internal/rbac"
	"voice-gateway/internal/webhook"
	"voice-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	handlers      httpapi.Handlers
	auth          *auth.Manager
	processor     *webhook.Processor
	webhookSecret string
	demoLimiter   ratelimit.Limiter
	publicLimiter ratelimit.Limiter
	requestLogs   *events.RequestLogWriter
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.handlers

	// public
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/voice/v1")
	v1.Use(logger.BodyCapture(d.requestLogs))

	// Provider webhooks (public, shared-secret header).
	v1.POST("/webhook/vapi", webhook.Handler(d.processor, d.webhookSecret))

	// Public widget and landing page routes.
	public := v1.Group("")
	public.Use(ratelimit.Middleware("public", d.publicLimiter))
	{
		public.POST("/leads", auth.OptionalAccessToken(d.auth), h.CaptureLead)
		public.POST("/chat", h.Chat)
		public.GET("/chat/:conversationId", h.GetConversation)
		public.POST("/chat/:conversationId/metadata", h.UpdateConversationMetadata)
	}
	v1.POST("/demo-call", ratelimit.Middleware("demo", d.demoLimiter), h.DemoCall)

	// Signed-in users. anon tokens are rejected.
	protected := v1.Group("")
	protected.Use(auth.RequireAccessToken(d.auth), rbac.RequireUser())
	{
		// CALLS routes
		protected.POST("/call", quota.RequireCallsRemaining(h.Quota), h.CreateCall)
		protected.GET("/call/:callId", h.GetCall)
		protected.GET("/calls", h.ListCalls)
		protected.GET("/calls/:callId/live", h.LiveCall)

		// ASSISTANT routes (provider passthrough)
		protected.POST("/assistant", h.CreateAssistant)
		protected.GET("/assistant", h.ListAssistants)
		protected.GET("/assistant/:id", h.GetAssistant)
		protected.PATCH("/assistant/:id", h.UpdateAssistant)
		protected.DELETE("/assistant/:id", h.DeleteAssistant)

		// LEADS routes
		protected.GET("/leads", h.ListLeads)
		protected.GET("/leads/:id", h.GetLead)
		protected.PATCH("/leads/:id", h.UpdateLead)

		protected.GET("/stats", h.Stats)
		protected.GET("/quota", h.GetQuota)
	}

	// ADMIN routes: service_role only.
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAccessToken(d.auth), rbac.RequireAnyRole())
	{
		admin.POST("/quota/grant", h.GrantQuota)
	}
}
