package utils

import (
	"testing"
	"time"
)

func TestPoolDefaults(t *testing.T) {
	p := PostgresPoolConfig{}.withDefaults()
	if p.MaxOpenConns != 25 || p.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestNullHelpers(t *testing.T) {
	if NullString("").Valid {
		t.Fatalf("empty string must map to NULL")
	}
	if !NullString("x").Valid {
		t.Fatalf("non-empty string must be valid")
	}
	if NullTime(nil).Valid || NullTime(&time.Time{}).Valid {
		t.Fatalf("nil/zero time must map to NULL")
	}
	now := time.Unix(1700000000, 0)
	if got := TimePtr(NullTime(&now)); got == nil || !got.Equal(now) {
		t.Fatalf("expected round trip, got %v", got)
	}
}

func TestClampPage(t *testing.T) {
	l, o := ClampPage(0, -5, 20, 100)
	if l != 20 || o != 0 {
		t.Fatalf("unexpected defaults: %d %d", l, o)
	}
	l, _ = ClampPage(500, 0, 20, 100)
	if l != 100 {
		t.Fatalf("expected max clamp, got %d", l)
	}
}
