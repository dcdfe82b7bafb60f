package livefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newServer(t *testing.T, feed Feed) *httptest.Server {
	t.Helper()
	h := NewHandler(feed, []string{"https://app.example"})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, "call-1")
	}))
}

func wsURL(s *httptest.Server) string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func TestHandler_RelaysPublishedEvents(t *testing.T) {
	feed := NewMemoryFeed()
	srv := newServer(t, feed)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for feed.Subscribers("call-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := feed.Publish(context.Background(), "call-1", []byte(`{"type":"transcript"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"transcript"}` {
		t.Fatalf("unexpected message %s", msg)
	}
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	srv := newServer(t, NewMemoryFeed())
	defer srv.Close()

	hdr := http.Header{}
	hdr.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), hdr)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func TestMemoryFeed_UnsubscribeReleases(t *testing.T) {
	feed := NewMemoryFeed()
	_, cancel, _ := feed.Subscribe(context.Background(), "c")
	if feed.Subscribers("c") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()
	cancel()
	if feed.Subscribers("c") != 0 {
		t.Fatalf("expected subscriber released")
	}
}
