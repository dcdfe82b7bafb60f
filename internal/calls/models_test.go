package calls

import (
	"context"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to CallStatus
		ok       bool
	}{
		{CallStatusQueued, CallStatusInProgress, true},
		{CallStatusInProgress, CallStatusAnswered, true},
		{CallStatusInProgress, CallStatusMissed, true},
		{CallStatusQueued, CallStatusAnswered, true},
		{CallStatusAnswered, CallStatusAnswered, true},
		{CallStatusAnswered, CallStatusInProgress, false},
		{CallStatusMissed, CallStatusAnswered, false},
		{CallStatusInProgress, CallStatusQueued, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", c.from, c.to, c.ok, got)
		}
	}
}

func TestEstimateDurationSeconds(t *testing.T) {
	if got := EstimateDurationSeconds(0.10, 0.05); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := EstimateDurationSeconds(0.051, 0.05); got != 62 {
		t.Fatalf("expected ceil to 62, got %d", got)
	}
	if got := EstimateDurationSeconds(0.1, 0); got != 0 {
		t.Fatalf("expected 0 without rate, got %d", got)
	}
}

func TestResolveDuration_PrefersExplicit(t *testing.T) {
	if d := ResolveDuration(42.2, 1, 0.05); d == nil || *d != 43 {
		t.Fatalf("expected 43, got %v", d)
	}
	if d := ResolveDuration(0, 0.05, 0.05); d == nil || *d != 60 {
		t.Fatalf("expected 60, got %v", d)
	}
	if d := ResolveDuration(0, 0, 0.05); d != nil {
		t.Fatalf("expected nil, got %v", *d)
	}
}

func TestMemoryRepo_CompleteIsOverwriteSafe(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	if err := repo.Create(ctx, CallRecord{ID: "c1", UserID: "u", Status: CallStatusInProgress, CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	d := 30
	done := Completion{Status: CallStatusAnswered, Transcript: "hi", DurationSeconds: &d}
	for i := 0; i < 2; i++ {
		if err := repo.Complete(ctx, "c1", done, now); err != nil {
			t.Fatalf("complete #%d: %v", i, err)
		}
	}
	c, _ := repo.Get(ctx, "u", "c1")
	if c.Status != CallStatusAnswered || c.Transcript != "hi" || *c.DurationSeconds != 30 {
		t.Fatalf("unexpected record: %+v", c)
	}
	if err := repo.SetStatus(ctx, "c1", CallStatusInProgress, now); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMemoryRepo_ScopesByUser(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Create(ctx, CallRecord{ID: "c1", UserID: "u1"})
	if _, err := repo.Get(ctx, "u2", "c1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	list, _ := repo.List(ctx, "u1", 10, 0)
	if len(list) != 1 {
		t.Fatalf("expected 1 call, got %d", len(list))
	}
}
