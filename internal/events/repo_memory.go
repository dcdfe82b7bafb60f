package events

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo keeps events in insertion order. Not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	events []WebhookEvent
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) MarkProcessed(_ context.Context, id, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == id {
			t := at
			r.events[i].Processed = true
			r.events[i].ErrorMessage = errMsg
			r.events[i].ProcessedAt = &t
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) ListByCall(_ context.Context, callID string) ([]WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WebhookEvent, 0)
	for _, e := range r.events {
		if e.CallID == callID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Events() []WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WebhookEvent, len(r.events))
	copy(out, r.events)
	return out
}
