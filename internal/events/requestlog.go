package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"

	"voice-gateway/pkg/logger"
)

// RequestLogStore persists sanitized API request logs.
type RequestLogStore interface {
	AppendRequestLog(ctx context.Context, entry logger.RequestLog) error
}

// RequestLogWriter implements logger.RequestLogSink. Record drops entries when the buffer is full.
type RequestLogWriter struct {
	store RequestLogStore
	buf   chan logger.RequestLog
	log   *slog.Logger
	done  chan struct{}
	once  sync.Once
}

func NewRequestLogWriter(store RequestLogStore, size int, log *slog.Logger) *RequestLogWriter {
	if size <= 0 {
		size = 512
	}
	if log == nil {
		log = slog.Default()
	}
	return &RequestLogWriter{store: store, buf: make(chan logger.RequestLog, size), log: log, done: make(chan struct{})}
}

func (w *RequestLogWriter) Record(_ context.Context, entry logger.RequestLog) {
	select {
	case w.buf <- entry:
	default:
		w.log.Warn("request log dropped", "request_id", entry.RequestID)
	}
}

// Run writes buffered entries until ctx is cancelled, then flushes what is left.
func (w *RequestLogWriter) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case e := <-w.buf:
			w.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-w.buf:
					w.write(e)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (w *RequestLogWriter) Wait() { <-w.done }

func (w *RequestLogWriter) write(e logger.RequestLog) {
	if err := w.store.AppendRequestLog(context.Background(), e); err != nil {
		w.once.Do(func() { w.log.Error("request log write failed", "err", err) })
	}
}

// PostgresRequestLogs assumes the api_request_logs table from migrations/001_init.sql.
type PostgresRequestLogs struct {
	db *sql.DB
}

func NewPostgresRequestLogs(db *sql.DB) *PostgresRequestLogs { return &PostgresRequestLogs{db: db} }

func (r *PostgresRequestLogs) AppendRequestLog(ctx context.Context, e logger.RequestLog) error {
	headers, _ := json.Marshal(e.Headers)
	reqBody, _ := json.Marshal(e.RequestBody)
	respBody, _ := json.Marshal(e.ResponseBody)
	const q = `
INSERT INTO api_request_logs
  (request_id, method, path, status, duration_ms, client_ip, user_id, headers, request_body, response_body, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8::jsonb, $9::jsonb, $10::jsonb, $11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.RequestID, e.Method, e.Path, e.Status, e.DurationMS, e.ClientIP, e.UserID,
		string(headers), string(reqBody), string(respBody), e.CreatedAt,
	)
	return err
}

// MemoryRequestLogs is a RequestLogStore for tests and local runs.
type MemoryRequestLogs struct {
	mu      sync.Mutex
	entries []logger.RequestLog
}

func (m *MemoryRequestLogs) AppendRequestLog(_ context.Context, e logger.RequestLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryRequestLogs) Entries() []logger.RequestLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]logger.RequestLog, len(m.entries))
	copy(out, m.entries)
	return out
}
