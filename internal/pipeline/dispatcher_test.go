package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_RunsTasksIndependently(t *testing.T) {
	dead := NewMemoryDeadLetters()
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8, TaskTimeout: time.Second}, dead, nil)
	d.Start()

	var ok atomic.Int32
	d.Submit(Task{Name: "fails", Run: func(ctx context.Context) error { return errors.New("smtp down") }})
	d.Submit(Task{Name: "panics", Run: func(ctx context.Context) error { panic("boom") }})
	d.Submit(Task{Name: "works", Run: func(ctx context.Context) error { ok.Add(1); return nil }})

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if ok.Load() != 1 {
		t.Fatalf("expected successful task to run despite siblings failing")
	}
	entries := dead.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 dead letters, got %d", len(entries))
	}
}

func TestDispatcher_TaskTimeout(t *testing.T) {
	dead := NewMemoryDeadLetters()
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1, TaskTimeout: 20 * time.Millisecond}, dead, nil)
	d.Start()
	d.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	_ = d.Shutdown(context.Background())
	if len(dead.Entries()) != 1 {
		t.Fatalf("expected timed out task dead-lettered")
	}
}

func TestDispatcher_QueueFullDeadLetters(t *testing.T) {
	dead := NewMemoryDeadLetters()
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1}, dead, nil)
	// not started: the single slot fills and the next submit must not block

	if !d.Submit(Task{Name: "a", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("expected first submit to be queued")
	}
	if d.Submit(Task{Name: "b", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("expected second submit to be rejected")
	}
	entries := dead.Entries()
	if len(entries) != 1 || entries[0].Task != "b" || entries[0].Error != ErrQueueFull.Error() {
		t.Fatalf("unexpected dead letters: %+v", entries)
	}
}

func TestDispatcher_SubmitAfterShutdown(t *testing.T) {
	d := NewDispatcher(Options{}, NewMemoryDeadLetters(), nil)
	d.Start()
	_ = d.Shutdown(context.Background())
	if d.Submit(Task{Name: "late", Run: func(context.Context) error { return nil }}) {
		t.Fatalf("expected submit after shutdown to fail")
	}
}
