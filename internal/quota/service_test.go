package quota

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/rbac"
)

func TestService_ConsumeIsIdempotentPerCall(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, 2)
	ctx := context.Background()

	n, err := svc.Consume(ctx, "u1", "vc-1")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 remaining, got %d %v", n, err)
	}
	n, err = svc.Consume(ctx, "u1", "vc-1")
	if err != nil || n != 1 {
		t.Fatalf("retry must not charge twice, got %d %v", n, err)
	}
	if _, err := svc.Consume(ctx, "u1", "vc-2"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if _, err := svc.Consume(ctx, "u1", "vc-3"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if len(repo.Ledger()) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(repo.Ledger()))
	}
}

func TestService_GrantAndValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo(), 0)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, "u1", 0, "k"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.Consume(ctx, "", "vc"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	n, err := svc.Grant(ctx, "u1", 5, "invoice-1")
	if err != nil || n != 5 {
		t.Fatalf("expected 5, got %d %v", n, err)
	}
	if n, _ := svc.Remaining(ctx, "u1"); n != 5 {
		t.Fatalf("expected 5 remaining, got %d", n)
	}
}

type fixedRemaining int

func (f fixedRemaining) Remaining(context.Context, string) (int, error) { return int(f), nil }

func runQuota(t *testing.T, svc RemainingService, role string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/call", func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u1", "u1@example.com", role))
		c.Next()
	}, RequireCallsRemaining(svc), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/call", nil))
	return w.Code
}

func TestRequireCallsRemaining(t *testing.T) {
	if code := runQuota(t, fixedRemaining(0), rbac.RoleAuthenticated); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := runQuota(t, fixedRemaining(3), rbac.RoleAuthenticated); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := runQuota(t, fixedRemaining(0), rbac.RoleServiceRole); code != http.StatusOK {
		t.Fatalf("expected service_role bypass, got %d", code)
	}
}
