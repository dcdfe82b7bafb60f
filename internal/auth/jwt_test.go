package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-gateway/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "authenticated",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "user-1", "u@example.com", "authenticated")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID() != "user-1" || claims.Email != "u@example.com" || claims.Role != "authenticated" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "u", "", "authenticated")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token error")
	}
}

func TestVerifyRejectsWrongSecretAndAlg(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	other, _ := NewManager(config.AuthConfig{JWTSecret: "other"})
	now := time.Now()

	tok, _ := other.Issue(now, "u", "", "authenticated")
	if _, err := m.Verify(tok, now); err == nil {
		t.Fatalf("expected signature error")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		Role:             "authenticated",
	})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := m.Verify(raw, now); err == nil {
		t.Fatalf("expected alg none to be rejected")
	}
}

func TestVerifyRequiresSubjectAndRole(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	now := time.Now()
	tok, _ := m.Issue(now, "", "", "authenticated")
	if _, err := m.Verify(tok, now); err != ErrMissingSubject {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
	tok, _ = m.Issue(now, "u", "", "")
	if _, err := m.Verify(tok, now); err != ErrMissingRole {
		t.Fatalf("expected ErrMissingRole, got %v", err)
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		uid, _ := UserID(c.Request.Context())
		c.JSON(200, gin.H{"user_id": uid})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != 401 {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}

	tok, _ := m.Issue(time.Now(), "user-9", "", "authenticated")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestOptionalAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})

	r := gin.New()
	r.POST("/x", OptionalAccessToken(m), func(c *gin.Context) {
		uid, _ := UserID(c.Request.Context())
		c.JSON(200, gin.H{"user_id": uid})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	if w.Code != 200 {
		t.Fatalf("expected anonymous request to pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 for invalid token, got %d", w.Code)
	}
}
