package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/conversation"
	"voice-gateway/internal/leads"
	"voice-gateway/internal/quota"
	"voice-gateway/internal/reporting"
	"voice-gateway/internal/vapi"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation  = "ValidationError"
	CodeAuth        = "AuthError"
	CodeQuota       = "QuotaExceeded"
	CodeNotFound    = "NotFound"
	CodeRateLimited = "RateLimited"
	CodeUpstream    = "UpstreamProviderError"
	CodeUnavailable = "ServiceUnavailable"
	CodeInternal    = "InternalError"
)

// APIError is an error with a fixed HTTP status and code.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string { return e.Message }

func validationError(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg}
}

func authError(msg string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: CodeAuth, Message: msg}
}

func notFound(msg string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

func unavailable(msg string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Code: CodeUnavailable, Message: msg}
}

// classify maps package sentinels and provider errors onto the taxonomy.
func classify(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var provider *vapi.APIError
	if errors.As(err, &provider) {
		status := provider.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		return &APIError{Status: status, Code: CodeUpstream, Message: "voice provider error: " + provider.Body}
	}

	switch {
	case errors.Is(err, leads.ErrNameRequired),
		errors.Is(err, leads.ErrInvalidEmail),
		errors.Is(err, leads.ErrInvalidArgument),
		errors.Is(err, calls.ErrInvalidArgument),
		errors.Is(err, quota.ErrInvalidArgument),
		errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, reporting.ErrInvalidRequest):
		return validationError(err.Error())
	case errors.Is(err, leads.ErrNotFound),
		errors.Is(err, calls.ErrNotFound),
		errors.Is(err, conversation.ErrNotFound):
		return notFound(err.Error())
	case errors.Is(err, quota.ErrQuotaExceeded):
		return &APIError{Status: http.StatusForbidden, Code: CodeQuota, Message: err.Error()}
	}
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: err.Error()}
}

// writeError aborts the request with the mapped status. In production, internal
// and upstream 5xx messages are replaced so provider bodies and driver errors stay private.
func writeError(c *gin.Context, err error, production bool) {
	e := classify(err)
	msg := e.Message
	if e.Status >= 500 {
		_ = c.Error(err)
		if production {
			msg = "internal server error"
		}
	}
	if e.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(e.RetryAfter))
	}
	body := gin.H{"error": msg, "code": e.Code}
	if e.RetryAfter > 0 {
		body["retryAfter"] = e.RetryAfter
	}
	c.AbortWithStatusJSON(e.Status, body)
}
