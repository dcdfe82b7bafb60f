package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/events"
	"voice-gateway/internal/leads"
	"voice-gateway/internal/livefeed"
	"voice-gateway/internal/pipeline"
	"voice-gateway/internal/sentiment"
)

type inlineTasks struct {
	mu    sync.Mutex
	names []string
}

func (s *inlineTasks) Submit(t pipeline.Task) bool {
	s.mu.Lock()
	s.names = append(s.names, t.Name)
	s.mu.Unlock()
	_ = t.Run(context.Background())
	return true
}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) NotifyCallFailed(_ context.Context, _ calls.CallRecord, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
	return nil
}

type fixture struct {
	proc     *Processor
	calls    *calls.MemoryRepo
	events   *events.MemoryRepo
	leads    *leads.MemoryRepo
	notifier *recordingNotifier
	feed     *livefeed.MemoryFeed
}

func newFixture() fixture {
	f := fixture{
		calls:    calls.NewMemoryRepo(),
		events:   events.NewMemoryRepo(),
		leads:    leads.NewMemoryRepo(),
		notifier: &recordingNotifier{},
		feed:     livefeed.NewMemoryFeed(),
	}
	f.proc = NewProcessor(Deps{
		Events:        events.NewService(f.events),
		Calls:         f.calls,
		Leads:         leads.NewService(f.leads, sentiment.NewKeywordClassifier(), nil),
		Notifier:      f.notifier,
		Tasks:         &inlineTasks{},
		Feed:          f.feed,
		CostPerMinute: 0.05,
	})
	return f
}

func seedCall(t *testing.T, repo *calls.MemoryRepo, providerID string, status calls.CallStatus) calls.CallRecord {
	t.Helper()
	now := time.Now().UTC()
	rec := calls.CallRecord{ID: "rec-" + providerID, UserID: "u1", ProviderCallID: providerID, CallerPhone: "+14155551234", Status: status, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

const endedEvent = `{"type":"call.ended","call":{"id":"vc-1","cost":0.1,
"transcript":"User: Hi, my name is John Smith. Yes, I'm interested. Email john@acme.io",
"recordingUrl":"https://rec.example/1.mp3"}}`

func TestProcessor_CallEndedReplayIsIdempotent(t *testing.T) {
	f := newFixture()
	seedCall(t, f.calls, "vc-1", calls.CallStatusInProgress)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f.proc.Handle(ctx, []byte(endedEvent))
		if err != nil || res.Err != nil {
			t.Fatalf("handle #%d: err=%v procErr=%v", i, err, res.Err)
		}
	}

	rec, _ := f.calls.Get(ctx, "", "rec-vc-1")
	if rec.Status != calls.CallStatusAnswered {
		t.Fatalf("expected answered, got %s", rec.Status)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 120 {
		t.Fatalf("expected 120s estimated duration, got %v", rec.DurationSeconds)
	}
	if rec.AudioURL != "https://rec.example/1.mp3" {
		t.Fatalf("expected recording url stored")
	}

	evs := f.events.Events()
	if len(evs) != 2 {
		t.Fatalf("expected two stored events, got %d", len(evs))
	}
	for _, e := range evs {
		if !e.Processed || e.ErrorMessage != "" {
			t.Fatalf("expected processed without error: %+v", e)
		}
	}

	l, err := f.leads.GetByCallID(ctx, "rec-vc-1")
	if err != nil {
		t.Fatalf("expected extracted lead: %v", err)
	}
	if l.Name != "John Smith" || l.Email != "john@acme.io" || !l.IsQualified || l.UserID != "u1" {
		t.Fatalf("unexpected lead: %+v", l)
	}
	all, _ := f.leads.List(ctx, "u1", 0, 0)
	if len(all) != 1 {
		t.Fatalf("replay must not create a second lead, got %d", len(all))
	}
}

func TestProcessor_StartedThenFailedNotifies(t *testing.T) {
	f := newFixture()
	seedCall(t, f.calls, "vc-2", calls.CallStatusQueued)
	ctx := context.Background()

	if res, _ := f.proc.Handle(ctx, []byte(`{"type":"call.started","call":{"id":"vc-2"}}`)); res.Err != nil {
		t.Fatalf("started: %v", res.Err)
	}
	rec, _ := f.calls.Get(ctx, "", "rec-vc-2")
	if rec.Status != calls.CallStatusInProgress {
		t.Fatalf("expected in_progress, got %s", rec.Status)
	}

	if res, _ := f.proc.Handle(ctx, []byte(`{"type":"call.failed","call":{"id":"vc-2","endedReason":"pipeline-error"}}`)); res.Err != nil {
		t.Fatalf("failed: %v", res.Err)
	}
	rec, _ = f.calls.Get(ctx, "", "rec-vc-2")
	if rec.Status != calls.CallStatusMissed {
		t.Fatalf("expected missed, got %s", rec.Status)
	}
	if len(f.notifier.reasons) != 1 || f.notifier.reasons[0] != "pipeline-error" {
		t.Fatalf("expected one failure notification, got %v", f.notifier.reasons)
	}
}

func TestProcessor_ReplayedFailureNotifiesOnce(t *testing.T) {
	f := newFixture()
	seedCall(t, f.calls, "vc-3", calls.CallStatusInProgress)
	ctx := context.Background()

	body := []byte(`{"type":"call.failed","call":{"id":"vc-3","endedReason":"customer-busy"}}`)
	for i := 0; i < 2; i++ {
		if res, _ := f.proc.Handle(ctx, body); res.Err != nil {
			t.Fatalf("delivery %d: %v", i+1, res.Err)
		}
	}
	rec, _ := f.calls.Get(ctx, "", "rec-vc-3")
	if rec.Status != calls.CallStatusMissed {
		t.Fatalf("expected missed, got %s", rec.Status)
	}
	if len(f.notifier.reasons) != 1 {
		t.Fatalf("expected one failure notification, got %v", f.notifier.reasons)
	}
}

func TestProcessor_UnknownCallIsCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	body := `{"type":"call.started","call":{"id":"vc-new","customer":{"number":"+442071234567"},"metadata":{"userId":"u9"}}}`
	if res, _ := f.proc.Handle(ctx, []byte(body)); res.Err != nil {
		t.Fatalf("started: %v", res.Err)
	}
	rec, err := f.calls.GetByProviderID(ctx, "vc-new")
	if err != nil {
		t.Fatalf("expected call created: %v", err)
	}
	if rec.Status != calls.CallStatusInProgress || rec.UserID != "u9" || rec.CallerPhone != "+442071234567" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestProcessor_UnsupportedAndMalformedAreRecorded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.proc.Handle(ctx, []byte(`{"type":"call.teleported","call":{"id":"x"}}`))
	if err != nil || !errors.Is(res.Err, ErrUnsupportedEvent) {
		t.Fatalf("expected unsupported, got err=%v procErr=%v", err, res.Err)
	}
	res, err = f.proc.Handle(ctx, []byte(`not json`))
	if err != nil || !errors.Is(res.Err, ErrMalformed) {
		t.Fatalf("expected malformed, got err=%v procErr=%v", err, res.Err)
	}

	evs := f.events.Events()
	if len(evs) != 2 {
		t.Fatalf("expected both events stored, got %d", len(evs))
	}
	if evs[0].ErrorMessage != "unsupported event type" || !evs[0].Processed {
		t.Fatalf("unexpected first event: %+v", evs[0])
	}
	if evs[1].EventType != "unknown" {
		t.Fatalf("expected malformed body stored as unknown, got %q", evs[1].EventType)
	}
}

func TestProcessor_TranscriptIsPublishedOnly(t *testing.T) {
	f := newFixture()
	rec := seedCall(t, f.calls, "vc-3", calls.CallStatusInProgress)
	ctx := context.Background()

	msgs, cancel, _ := f.feed.Subscribe(ctx, "vc-3")
	defer cancel()

	body := `{"message":{"type":"transcript","role":"user","transcriptType":"final","transcript":"hello there","call":{"id":"vc-3"}}}`
	if res, _ := f.proc.Handle(ctx, []byte(body)); res.Err != nil {
		t.Fatalf("transcript: %v", res.Err)
	}
	got, _ := f.calls.Get(ctx, "", rec.ID)
	if got.Status != calls.CallStatusInProgress {
		t.Fatalf("transcript must not change status, got %s", got.Status)
	}
	select {
	case m := <-msgs:
		if !strings.Contains(string(m), "hello there") {
			t.Fatalf("unexpected live message %s", m)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected live message")
	}
}

func TestParse_NativeEndOfCallReport(t *testing.T) {
	ev, err := Parse([]byte(`{"message":{"type":"end-of-call-report","endedReason":"customer-ended-call",
"durationSeconds":61.2,"artifact":{"transcript":"AI: hi\nUser: bye","recordingUrl":"https://r/1"},
"call":{"id":"vc-9","cost":0.2}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != TypeCallEnded || ev.CallID != "vc-9" || ev.Transcript == "" || ev.RecordingURL != "https://r/1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.DurationSeconds != 61.2 {
		t.Fatalf("expected explicit duration, got %v", ev.DurationSeconds)
	}

	ev, _ = Parse([]byte(`{"message":{"type":"end-of-call-report","endedReason":"customer-did-not-answer","call":{"id":"vc-9"}}}`))
	if ev.Type != TypeCallFailed {
		t.Fatalf("expected failure mapping, got %s", ev.Type)
	}
	ev, _ = Parse([]byte(`{"message":{"type":"status-update","status":"in-progress","call":{"id":"vc-9"}}}`))
	if ev.Type != TypeCallStarted {
		t.Fatalf("expected call.started, got %s", ev.Type)
	}
}

func TestHandler_AlwaysAcknowledges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture()
	r := gin.New()
	r.POST("/webhook", Handler(f.proc, ""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"type":"call.ended","call":{}}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"received":true`) || !strings.Contains(w.Body.String(), "call id missing") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestHandler_SecretMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture()
	r := gin.New()
	r.POST("/webhook", Handler(f.proc, "s3cret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"type":"call.started","call":{"id":"a"}}`))
	req.Header.Set("X-Vapi-Secret", "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(f.events.Events()) != 0 {
		t.Fatalf("rejected webhook must not be stored")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"type":"call.started","call":{"id":"a"}}`))
	req.Header.Set("X-Vapi-Secret", "s3cret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
