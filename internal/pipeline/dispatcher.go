package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var taskTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voice_gateway",
		Subsystem: "pipeline",
		Name:      "tasks_total",
		Help:      "Side-effect tasks by name and outcome",
	},
	[]string{"task", "outcome"}, // outcome: ok, error, panic, dropped
)

func init() {
	prometheus.MustRegister(taskTotal)
}

var ErrQueueFull = errors.New("pipeline queue full")

// Task is one best-effort side effect. Run receives a context bounded by the task timeout.
type Task struct {
	Name  string
	Attrs map[string]string
	Run   func(ctx context.Context) error
}

type Options struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Dispatcher runs tasks on a fixed worker pool so request handlers never wait on them.
// Failed, panicking and dropped tasks are written to the dead-letter sink.
type Dispatcher struct {
	queue   chan Task
	workers int
	timeout time.Duration
	dead    DeadLetterSink
	log     *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(opts Options, dead DeadLetterSink, log *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		queue:   make(chan Task, opts.QueueSize),
		workers: opts.Workers,
		timeout: opts.TaskTimeout,
		dead:    dead,
		log:     log,
		now:     time.Now,
	}
}

// Start launches the workers. Tasks run detached from any request context.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Info("pipeline started", "workers", d.workers, "queue", cap(d.queue))
}

// Submit enqueues t without blocking. It returns false when the task was dead-lettered instead.
func (d *Dispatcher) Submit(t Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.deadLetter(t, errors.New("pipeline closed"))
		taskTotal.WithLabelValues(t.Name, "dropped").Inc()
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		d.deadLetter(t, ErrQueueFull)
		taskTotal.WithLabelValues(t.Name, "dropped").Inc()
		return false
	}
}

// Shutdown stops intake and waits for queued tasks to drain or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := safeRun(ctx, t)
	if err == nil {
		taskTotal.WithLabelValues(t.Name, "ok").Inc()
		return
	}

	outcome := "error"
	var pe panicError
	if errors.As(err, &pe) {
		outcome = "panic"
	}
	taskTotal.WithLabelValues(t.Name, outcome).Inc()
	d.log.Warn("side effect failed", "task", t.Name, "attrs", t.Attrs, "err", err)
	d.deadLetter(t, err)
}

func (d *Dispatcher) deadLetter(t Task, cause error) {
	if d.dead == nil {
		return
	}
	entry := DeadLetter{Task: t.Name, Attrs: t.Attrs, Error: cause.Error(), FailedAt: d.now().UTC()}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.dead.Put(ctx, entry); err != nil {
		d.log.Error("dead letter write failed", "task", t.Name, "err", err)
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }

func safeRun(ctx context.Context, t Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicError{v: p}
		}
	}()
	if t.Run == nil {
		return errors.New("task has no Run func")
	}
	return t.Run(ctx)
}
