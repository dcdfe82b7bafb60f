package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/calls"
	"voice-gateway/internal/quota"
	"voice-gateway/internal/rbac"
	"voice-gateway/internal/vapi"
	"voice-gateway/pkg/logger"
	"voice-gateway/pkg/utils"
)

type createCallRequest struct {
	AssistantID   string         `json:"assistantId"`
	PhoneNumberID string         `json:"phoneNumberId"`
	Customer      vapi.Customer  `json:"customer"`
	Metadata      map[string]any `json:"metadata"`
}

// CreateCall places an outbound call for the caller and consumes one unit of quota.
// RequireCallsRemaining runs first; service_role callers are not metered.
func (h Handlers) CreateCall(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError("invalid json"))
		return
	}
	req.AssistantID = strings.TrimSpace(req.AssistantID)
	req.Customer.Number = strings.TrimSpace(req.Customer.Number)
	if req.AssistantID == "" || req.Customer.Number == "" {
		h.fail(c, validationError("assistantId and customer.number are required"))
		return
	}

	meta := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["userId"] = userID

	ctx := c.Request.Context()
	call, err := h.Provider.CreateCall(ctx, vapi.CreateCallRequest{
		AssistantID:   req.AssistantID,
		PhoneNumberID: req.PhoneNumberID,
		Customer:      req.Customer,
		Metadata:      meta,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	log := logger.FromGin(c).With("provider_call_id", call.ID)
	now := h.now()
	rec := calls.CallRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProviderCallID: call.ID,
		AssistantID:    req.AssistantID,
		CallerPhone:    req.Customer.Number,
		Status:         calls.CallStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// The call is already placed; the webhook path recreates a missing record.
	if err := h.Calls.Create(ctx, rec); err != nil {
		log.Error("call record not stored", "err", err)
	}

	var remaining any
	role, _ := auth.Role(ctx)
	if !rbac.IsServiceRole(role) {
		n, err := h.Quota.Consume(ctx, userID, call.ID)
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			log.Warn("quota exhausted by concurrent call", "user_id", userID)
			n = 0
		case err != nil:
			log.Error("quota not consumed", "err", err)
			if v, ok := c.Get("calls_remaining"); ok {
				if prev, ok := v.(int); ok {
					n = prev - 1
				}
			}
		}
		remaining = n
	}

	log.Info("call placed", "call_id", rec.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "call": call, "callsRemaining": remaining})
}

// GetCall returns the stored record and the provider's live view of the call.
// callId may be the gateway id or the provider id.
func (h Handlers) GetCall(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	rec, err := h.ownedCall(c, userID, c.Param("callId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{"record": rec}
	if rec.ProviderCallID != "" {
		call, err := h.Provider.GetCall(c.Request.Context(), rec.ProviderCallID)
		if err != nil {
			h.fail(c, err)
			return
		}
		body["call"] = call
	}
	c.JSON(http.StatusOK, body)
}

func (h Handlers) ListCalls(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit, offset := page(c)
	out, err := h.Calls.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": out, "limit": limit, "offset": offset})
}

func (h Handlers) ownedCall(c *gin.Context, userID, id string) (calls.CallRecord, error) {
	ctx := c.Request.Context()
	rec, err := h.Calls.Get(ctx, userID, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, calls.ErrNotFound) {
		return calls.CallRecord{}, err
	}
	rec, err = h.Calls.GetByProviderID(ctx, id)
	if err != nil {
		return calls.CallRecord{}, err
	}
	if rec.UserID != userID {
		return calls.CallRecord{}, calls.ErrNotFound
	}
	return rec, nil
}

func page(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return utils.ClampPage(limit, offset, 20, 100)
}
