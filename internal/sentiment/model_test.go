package sentiment

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type fakeCompleter struct {
	content string
	err     error
	calls   int
	block   bool
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return openai.ChatCompletionResponse{}, ctx.Err()
	}
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.content}}},
	}, nil
}

func TestModelClassifier_ParsesEmbeddedJSON(t *testing.T) {
	f := &fakeCompleter{content: `Sure! {"score":0.9,"intent":"Demo","urgency":"high","keywords":["demo {x}"]} hope that helps`}
	m := NewModelClassifier(f, "gpt-test", time.Second, nil)

	a := m.Classify(context.Background(), "can I see a demo today?")
	if a.Score != 0.9 || a.Intent != IntentDemo || a.Urgency != UrgencyHigh {
		t.Fatalf("unexpected analysis: %+v", a)
	}
	if len(a.Keywords) != 1 || a.Keywords[0] != "demo {x}" {
		t.Fatalf("unexpected keywords: %v", a.Keywords)
	}
}

func TestModelClassifier_UnknownEnumsNormalized(t *testing.T) {
	f := &fakeCompleter{content: `{"score":7,"intent":"shopping","urgency":"extreme"}`}
	a := NewModelClassifier(f, "m", time.Second, nil).Classify(context.Background(), "x")
	if a.Score != 1 || a.Intent != IntentGeneral || a.Urgency != UrgencyMedium {
		t.Fatalf("expected normalized values, got %+v", a)
	}
}

func TestModelClassifier_FallsBackOnError(t *testing.T) {
	f := &fakeCompleter{err: errors.New("boom")}
	a := NewModelClassifier(f, "m", time.Second, nil).Classify(context.Background(), "how much does it cost")
	if a.Intent != IntentPricing {
		t.Fatalf("expected keyword fallback, got %+v", a)
	}
}

func TestModelClassifier_FallsBackOnGarbage(t *testing.T) {
	f := &fakeCompleter{content: "I cannot help with that"}
	a := NewModelClassifier(f, "m", time.Second, nil).Classify(context.Background(), "hello")
	if a.Intent != IntentGeneral || a.Score != 0.5 {
		t.Fatalf("expected default via fallback, got %+v", a)
	}
}

func TestModelClassifier_FallsBackOnTimeout(t *testing.T) {
	f := &fakeCompleter{block: true}
	start := time.Now()
	a := NewModelClassifier(f, "m", 20*time.Millisecond, nil).Classify(context.Background(), "show me a demo")
	if time.Since(start) > time.Second {
		t.Fatalf("classification did not respect timeout")
	}
	if a.Intent != IntentDemo {
		t.Fatalf("expected keyword fallback, got %+v", a)
	}
}

func TestModelClassifier_BreakerStopsCalls(t *testing.T) {
	f := &fakeCompleter{err: errors.New("down")}
	m := NewModelClassifier(f, "m", time.Second, nil)
	for i := 0; i < 8; i++ {
		m.Classify(context.Background(), "hi")
	}
	if f.calls != 5 {
		t.Fatalf("expected breaker to stop after 5 failures, got %d calls", f.calls)
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cb := NewCircuitBreaker(1, time.Minute)
	cb.now = func() time.Time { return now }

	_ = cb.Call(func() error { return errors.New("x") })
	if !cb.Open() {
		t.Fatalf("expected open")
	}
	if err := cb.Call(func() error { return nil }); err != ErrBreakerOpen {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
	if cb.Open() {
		t.Fatalf("expected closed after successful probe")
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject(`noise {"a":"}{","b":{"c":1}} {"second":true}`)
	if !ok || got != `{"a":"}{","b":{"c":1}}` {
		t.Fatalf("unexpected extraction: %q %v", got, ok)
	}
	if _, ok := ExtractJSONObject(`{"open": true`); ok {
		t.Fatalf("expected no complete object")
	}
}

func TestNew_SelectsMode(t *testing.T) {
	if _, ok := New("model", nil, "m", time.Second).(KeywordClassifier); !ok {
		t.Fatalf("nil client must fall back to keywords")
	}
	if _, ok := New("model", &fakeCompleter{}, "m", time.Second).(*ModelClassifier); !ok {
		t.Fatalf("expected model classifier")
	}
}
