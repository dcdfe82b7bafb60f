package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository stores webhook events. Rows are only ever inserted and then marked processed.
type Repository interface {
	Append(ctx context.Context, e WebhookEvent) error
	MarkProcessed(ctx context.Context, id, errMsg string, at time.Time) error
	ListByCall(ctx context.Context, callID string) ([]WebhookEvent, error)
}

var (
	ErrInvalidEvent = errors.New("events: invalid event")
	ErrNotFound     = errors.New("events: event not found")
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Append records an unprocessed event and returns it with its id and timestamp filled in.
func (s *Service) Append(ctx context.Context, eventType, callID string, payload []byte) (WebhookEvent, error) {
	if s.repo == nil {
		return WebhookEvent{}, errors.New("events: repository not configured")
	}
	if eventType == "" {
		return WebhookEvent{}, ErrInvalidEvent
	}
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	e := WebhookEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		CallID:    callID,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: s.clock().UTC(),
	}
	return e, s.repo.Append(ctx, e)
}

// MarkProcessed flags the event as handled. procErr is stored as the error message when non-nil.
func (s *Service) MarkProcessed(ctx context.Context, id string, procErr error) error {
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	return s.repo.MarkProcessed(ctx, id, msg, s.clock().UTC())
}

func (s *Service) ListByCall(ctx context.Context, callID string) ([]WebhookEvent, error) {
	return s.repo.ListByCall(ctx, callID)
}
