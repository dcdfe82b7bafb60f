package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// Middleware returns a Gin middleware that injects request_id and logs request summaries.
func Middleware(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		c.Set("logger", reqLogger)
		c.Set("request_id", rid)
		c.Request = c.Request.WithContext(With(c.Request.Context(), reqLogger))

		c.Next()

		dur := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		attrs := []any{
			"method", method,
			"path", path,
			"status", status,
			"duration_ms", float64(dur.Milliseconds()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
			return
		}
		if status >= 500 {
			reqLogger.Warn("request", attrs...)
			return
		}
		reqLogger.Info("request", attrs...)
	}
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get("logger"); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// RequestLog is the sanitized record of one API request and its response.
type RequestLog struct {
	RequestID    string            `json:"request_id"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Status       int               `json:"status"`
	DurationMS   int64             `json:"duration_ms"`
	ClientIP     string            `json:"client_ip"`
	UserID       string            `json:"user_id,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	RequestBody  any               `json:"request_body,omitempty"`
	ResponseBody any               `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RequestLogSink receives sanitized request logs. Record must not block.
type RequestLogSink interface {
	Record(ctx context.Context, entry RequestLog)
}

const maxCapturedBody = 64 << 10

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.buf.Len() < maxCapturedBody {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// BodyCapture records sanitized JSON request/response bodies for API routes.
// It logs at debug level and forwards the record to sink when one is provided.
func BodyCapture(sink RequestLogSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var reqBody []byte
		if isJSON(c.ContentType()) && c.Request.Body != nil && c.Request.ContentLength <= maxCapturedBody {
			orig := c.Request.Body
			b, err := io.ReadAll(io.LimitReader(orig, maxCapturedBody))
			if err == nil {
				reqBody = b
			}
			c.Request.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(b), orig), Closer: orig}
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw

		c.Next()

		entry := RequestLog{
			RequestID:   c.GetString("request_id"),
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Status:      cw.Status(),
			DurationMS:  time.Since(start).Milliseconds(),
			ClientIP:    c.ClientIP(),
			UserID:      c.GetString("user_id"),
			Headers:     SanitizeHeaders(c.Request.Header),
			RequestBody: SanitizeJSON(reqBody),
			CreatedAt:   start.UTC(),
		}
		if isJSON(cw.Header().Get("Content-Type")) {
			entry.ResponseBody = SanitizeJSON(cw.buf.Bytes())
		}

		FromGin(c).Debug("request body", "request", entry.RequestBody, "response", entry.ResponseBody, "status", entry.Status)
		if sink != nil {
			sink.Record(c.Request.Context(), entry)
		}
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
