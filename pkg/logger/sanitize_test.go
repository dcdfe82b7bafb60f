package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitize_RedactsNestedFields(t *testing.T) {
	in := map[string]any{
		"password": "secret123",
		"nested":   map[string]any{"apiKey": "xyz", "name": "ok"},
	}
	out := Sanitize(in).(map[string]any)

	if out["password"] != Redacted {
		t.Fatalf("expected password redacted, got %v", out["password"])
	}
	nested := out["nested"].(map[string]any)
	if nested["apiKey"] != Redacted {
		t.Fatalf("expected apiKey redacted, got %v", nested["apiKey"])
	}
	if nested["name"] != "ok" {
		t.Fatalf("expected name kept, got %v", nested["name"])
	}
	if in["password"] != "secret123" {
		t.Fatalf("input must not be mutated")
	}
}

func TestSanitize_ArraysAndKeyVariants(t *testing.T) {
	in := map[string]any{
		"items": []any{
			map[string]any{"credit_card": "4111", "Private-Key": "k", "SSN": "1"},
			"plain",
		},
		"AUTHORIZATION": "Bearer x",
		"accessToken":   "t",
	}
	out := Sanitize(in).(map[string]any)
	if out["AUTHORIZATION"] != Redacted || out["accessToken"] != Redacted {
		t.Fatalf("expected top-level credentials redacted: %v", out)
	}
	items := out["items"].([]any)
	first := items[0].(map[string]any)
	for _, k := range []string{"credit_card", "Private-Key", "SSN"} {
		if first[k] != Redacted {
			t.Fatalf("expected %s redacted, got %v", k, first[k])
		}
	}
	if items[1] != "plain" {
		t.Fatalf("expected scalar kept")
	}
}

func TestSanitize_Structs(t *testing.T) {
	type creds struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	out := Sanitize(creds{User: "u", Password: "p"}).(map[string]any)
	if out["password"] != Redacted || out["user"] != "u" {
		t.Fatalf("unexpected: %v", out)
	}
}

type memorySink struct {
	mu      sync.Mutex
	entries []RequestLog
}

func (s *memorySink) Record(_ context.Context, e RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func TestBodyCapture_SanitizesAndRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &memorySink{}
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&bytes.Buffer{}, "test", "v")), BodyCapture(sink))

	var seen map[string]any
	r.POST("/x", func(c *gin.Context) {
		if err := c.ShouldBindJSON(&seen); err != nil {
			c.AbortWithStatusJSON(400, gin.H{"error": "bad"})
			return
		}
		c.JSON(200, gin.H{"token": "abc", "ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"password":"p","email":"a@b.co"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen["password"] != "p" {
		t.Fatalf("handler should see original body, got %v", seen)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(sink.entries))
	}
	e := sink.entries[0]
	if e.RequestBody.(map[string]any)["password"] != Redacted {
		t.Fatalf("expected request password redacted")
	}
	if e.ResponseBody.(map[string]any)["token"] != Redacted {
		t.Fatalf("expected response token redacted")
	}
	if e.Headers["Authorization"] != Redacted {
		t.Fatalf("expected authorization header redacted")
	}
	if _, err := json.Marshal(e); err != nil {
		t.Fatalf("entry must be serializable: %v", err)
	}
}
