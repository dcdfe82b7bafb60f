package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"voice-gateway/internal/events"
	"voice-gateway/pkg/logger"
)

type shutdownFunc func(ctx context.Context) error

func (f shutdownFunc) Shutdown(ctx context.Context) error { return f(ctx) }

func TestDrain_FlushesLogsRecordedDuringHTTPShutdown(t *testing.T) {
	store := &events.MemoryRequestLogs{}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	logs := events.NewRequestLogWriter(store, 8, quiet)

	logCtx, stopLogs := context.WithCancel(context.Background())
	defer stopLogs()
	go logs.Run(logCtx)

	// an in-flight request completes while the server drains
	srv := shutdownFunc(func(ctx context.Context) error {
		logs.Record(ctx, logger.RequestLog{RequestID: "req-late", Status: 200, CreatedAt: time.Now()})
		return nil
	})
	tasks := shutdownFunc(func(context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	drain(ctx, quiet, srv, tasks, stopLogs, logs)

	got := store.Entries()
	if len(got) != 1 || got[0].RequestID != "req-late" {
		t.Fatalf("expected late request log flushed, got %+v", got)
	}
}
