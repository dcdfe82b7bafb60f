package main

import (
	"context"
	"log/slog"

	"voice-gateway/internal/events"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain stops HTTP intake, then the side-effect workers, then the request log writer.
// Requests finishing inside srv.Shutdown still record their logs before the writer stops.
func drain(ctx context.Context, log *slog.Logger, srv, tasks shutdowner, stopLogs context.CancelFunc, logs *events.RequestLogWriter) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if err := tasks.Shutdown(ctx); err != nil {
		log.Error("pipeline shutdown failed", "err", err)
	}
	stopLogs()
	logs.Wait()
}
