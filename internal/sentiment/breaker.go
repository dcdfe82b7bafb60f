package sentiment

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

const (
	breakerClosed int32 = iota
	breakerOpen
	breakerHalfOpen
)

var ErrBreakerOpen = errors.New("circuit breaker open")

// CircuitBreaker stops calling a failing dependency for resetTimeout after maxFailures
// consecutive failures, then lets one probe through.
type CircuitBreaker struct {
	maxFailures  int64
	resetTimeout time.Duration
	now          func() time.Time

	failures atomic.Int64
	state    atomic.Int32

	mu           sync.RWMutex
	lastFailTime time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &CircuitBreaker{
		maxFailures:  int64(maxFailures),
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	state := cb.state.Load()
	if state == breakerOpen {
		cb.mu.RLock()
		elapsed := cb.now().Sub(cb.lastFailTime)
		cb.mu.RUnlock()
		if elapsed <= cb.resetTimeout {
			return ErrBreakerOpen
		}
		if !cb.state.CompareAndSwap(breakerOpen, breakerHalfOpen) {
			return ErrBreakerOpen
		}
		state = breakerHalfOpen
	}

	if err := fn(); err != nil {
		n := cb.failures.Add(1)
		cb.mu.Lock()
		cb.lastFailTime = cb.now()
		cb.mu.Unlock()
		if state == breakerHalfOpen || n >= cb.maxFailures {
			cb.state.Store(breakerOpen)
		}
		return err
	}

	cb.failures.Store(0)
	cb.state.Store(breakerClosed)
	return nil
}

func (cb *CircuitBreaker) Open() bool { return cb.state.Load() == breakerOpen }
