package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/events"
	"voice-gateway/internal/leads"
	"voice-gateway/internal/pipeline"
	"voice-gateway/pkg/logger"
)

var tracer = otel.Tracer("voice-gateway/internal/webhook")

var (
	ErrUnsupportedEvent = errors.New("unsupported event type")
	ErrMissingCallID    = errors.New("call id missing")
)

type LeadExtractor interface {
	FromTranscript(ctx context.Context, t leads.CallTranscript) (leads.Lead, bool, error)
}

type CallFailureNotifier interface {
	NotifyCallFailed(ctx context.Context, c calls.CallRecord, reason string) error
}

type Submitter interface {
	Submit(t pipeline.Task) bool
}

type Publisher interface {
	Publish(ctx context.Context, callID string, payload []byte) error
}

type Deps struct {
	Events        *events.Service
	Calls         calls.Repository
	Leads         LeadExtractor
	Notifier      CallFailureNotifier
	Tasks         Submitter
	Feed          Publisher
	CostPerMinute float64
}

// Processor applies provider call-lifecycle events to call records.
type Processor struct {
	d   Deps
	now func() time.Time
}

func NewProcessor(d Deps) *Processor {
	return &Processor{d: d, now: time.Now}
}

// Result is reported back to the provider. Processing failures never change the HTTP status.
type Result struct {
	EventID string
	Type    string
	Err     error
}

// Handle stores the raw event, processes it and marks it processed with the outcome.
// The returned error is non-nil only when the event could not be stored at all.
func (p *Processor) Handle(ctx context.Context, raw []byte) (Result, error) {
	ev, perr := Parse(raw)
	typ := ev.Type
	if perr != nil || typ == "" {
		typ = "unknown"
	}

	ctx, span := tracer.Start(ctx, "webhook.process", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("webhook.type", typ), attribute.String("webhook.call_id", ev.CallID))

	stored, err := p.d.Events.Append(ctx, typ, ev.CallID, storablePayload(raw))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		eventsTotal.WithLabelValues(metricType(typ), "error").Inc()
		return Result{Type: typ}, fmt.Errorf("store webhook event: %w", err)
	}

	start := time.Now()
	procErr := perr
	if procErr == nil {
		procErr = p.process(ctx, ev)
	}
	processDuration.WithLabelValues(metricType(typ)).Observe(time.Since(start).Seconds())

	if err := p.d.Events.MarkProcessed(ctx, stored.ID, procErr); err != nil {
		logger.From(ctx).Error("mark webhook processed failed", "event_id", stored.ID, "err", err)
	}

	outcome := "ok"
	if procErr != nil {
		outcome = "error"
		span.RecordError(procErr)
		span.SetStatus(codes.Error, procErr.Error())
		logger.From(ctx).Warn("webhook processing failed", "event_id", stored.ID, "type", typ, "call_id", ev.CallID, "err", procErr)
	}
	eventsTotal.WithLabelValues(metricType(typ), outcome).Inc()

	p.publish(ctx, ev)
	return Result{EventID: stored.ID, Type: typ, Err: procErr}, nil
}

func (p *Processor) process(ctx context.Context, ev Event) error {
	switch ev.Type {
	case TypeCallStarted:
		rec, err := p.ensureCall(ctx, ev)
		if err != nil {
			return err
		}
		return p.d.Calls.SetStatus(ctx, rec.ID, calls.CallStatusInProgress, p.now().UTC())

	case TypeCallEnded:
		rec, err := p.ensureCall(ctx, ev)
		if err != nil {
			return err
		}
		done := calls.Completion{
			Status:          calls.CallStatusAnswered,
			Transcript:      ev.Transcript,
			DurationSeconds: calls.ResolveDuration(ev.DurationSeconds, ev.Cost, p.d.CostPerMinute),
			AudioURL:        ev.RecordingURL,
			Cost:            ev.Cost,
			EndedReason:     ev.EndedReason,
		}
		if err := p.d.Calls.Complete(ctx, rec.ID, done, p.now().UTC()); err != nil {
			return err
		}
		if ev.Transcript == "" || p.d.Leads == nil {
			return nil
		}
		_, _, err = p.d.Leads.FromTranscript(ctx, leads.CallTranscript{
			UserID:      rec.UserID,
			CallID:      rec.ID,
			CallerPhone: firstNonEmpty(rec.CallerPhone, ev.CustomerNumber),
			Transcript:  ev.Transcript,
		})
		if err != nil {
			return fmt.Errorf("lead extraction: %w", err)
		}
		return nil

	case TypeCallFailed:
		rec, err := p.ensureCall(ctx, ev)
		if err != nil {
			return err
		}
		done := calls.Completion{
			Status:          calls.CallStatusMissed,
			Transcript:      ev.Transcript,
			DurationSeconds: calls.ResolveDuration(ev.DurationSeconds, ev.Cost, p.d.CostPerMinute),
			AudioURL:        ev.RecordingURL,
			Cost:            ev.Cost,
			EndedReason:     ev.EndedReason,
		}
		if err := p.d.Calls.Complete(ctx, rec.ID, done, p.now().UTC()); err != nil {
			return err
		}
		// replayed failures re-apply missed; only the first one notifies
		if rec.Status != calls.CallStatusMissed {
			p.notifyFailed(rec, ev.EndedReason)
		}
		return nil

	case TypeTranscript:
		logger.From(ctx).Debug("live transcript", "call_id", ev.CallID, "role", ev.Role, "chars", len(ev.Text))
		return nil

	case TypeStatusUpdate:
		// queued, ringing and ended without a failure reason carry no transition
		logger.From(ctx).Debug("status update", "call_id", ev.CallID, "status", ev.Status)
		return nil
	}
	return ErrUnsupportedEvent
}

// ensureCall finds the call record for a provider id, creating one for calls that did not
// start through this gateway (inbound calls, calls placed from the provider dashboard).
func (p *Processor) ensureCall(ctx context.Context, ev Event) (calls.CallRecord, error) {
	if ev.CallID == "" {
		return calls.CallRecord{}, ErrMissingCallID
	}
	rec, err := p.d.Calls.GetByProviderID(ctx, ev.CallID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, calls.ErrNotFound) {
		return calls.CallRecord{}, err
	}

	now := p.now().UTC()
	rec = calls.CallRecord{
		ID:             uuid.NewString(),
		UserID:         ev.UserID,
		ProviderCallID: ev.CallID,
		AssistantID:    ev.AssistantID,
		CallerPhone:    ev.CustomerNumber,
		Status:         calls.CallStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.d.Calls.Create(ctx, rec); err != nil {
		// Lost a race with a concurrent event for the same call.
		if existing, gerr := p.d.Calls.GetByProviderID(ctx, ev.CallID); gerr == nil {
			return existing, nil
		}
		return calls.CallRecord{}, err
	}
	return rec, nil
}

func (p *Processor) notifyFailed(rec calls.CallRecord, reason string) {
	if p.d.Notifier == nil || p.d.Tasks == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	p.d.Tasks.Submit(pipeline.Task{
		Name:  "call_failed_notification",
		Attrs: map[string]string{"call_id": rec.ID, "provider_call_id": rec.ProviderCallID},
		Run: func(ctx context.Context) error {
			return p.d.Notifier.NotifyCallFailed(ctx, rec, reason)
		},
	})
}

type liveMessage struct {
	Type        string    `json:"type"`
	CallID      string    `json:"callId"`
	Status      string    `json:"status,omitempty"`
	Role        string    `json:"role,omitempty"`
	Text        string    `json:"text,omitempty"`
	EndedReason string    `json:"endedReason,omitempty"`
	At          time.Time `json:"at"`
}

func (p *Processor) publish(ctx context.Context, ev Event) {
	if p.d.Feed == nil || ev.CallID == "" {
		return
	}
	if ev.Type == TypeTranscript && ev.Status == "partial" {
		return
	}
	b, err := json.Marshal(liveMessage{
		Type:        ev.Type,
		CallID:      ev.CallID,
		Status:      ev.Status,
		Role:        ev.Role,
		Text:        ev.Text,
		EndedReason: ev.EndedReason,
		At:          p.now().UTC(),
	})
	if err != nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.d.Feed.Publish(pctx, ev.CallID, b); err != nil {
		logger.From(ctx).Warn("live feed publish failed", "call_id", ev.CallID, "err", err)
	}
}

func storablePayload(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(map[string]string{"raw": string(raw)})
	return b
}

func metricType(t string) string {
	switch t {
	case TypeCallStarted, TypeCallEnded, TypeCallFailed, TypeTranscript, TypeStatusUpdate:
		return t
	}
	return "unsupported"
}
