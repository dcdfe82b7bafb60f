package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voice-gateway/internal/leads"
)

func TestTelegram_NotifyLead(t *testing.T) {
	var got sendMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot123:abc/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(srv.URL, "123:abc", "42", time.Second)
	err := tg.NotifyLead(context.Background(), leads.Lead{Name: "John_Smith", Email: "j@acme.io", IsQualified: true, QualificationScore: 0.8})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.ChatID != "42" || got.ParseMode != "Markdown" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if !strings.Contains(got.Text, `John\_Smith`) || !strings.Contains(got.Text, "qualified") {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestTelegram_ReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegram(srv.URL, "t", "1", time.Second).NotifyDemoCall(context.Background(), "+14155551234", "c1")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNew_NoopWithoutToken(t *testing.T) {
	if _, ok := New("", "", "", 0).(Noop); !ok {
		t.Fatalf("expected Noop notifier without a token")
	}
}
