package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"voice-gateway/pkg/utils"
)

// Result of one admission check. RetryAfter is only set when the request was rejected.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window counter. State is lost on restart and is
// not shared between instances; use RedisLimiter for that.
type MemoryLimiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*window
}

func NewMemoryLimiter(win time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{window: win, max: max, now: time.Now, clients: map[string]*window{}}
}

// Allow counts the attempt even when it is rejected.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.clients[key] = w
	}
	w.count++
	return decide(w.count, l.max, w.resetAt.Sub(now)), nil
}

// Sweep drops expired windows and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (l *MemoryLimiter) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RedisLimiter shares fixed windows between instances.
type RedisLimiter struct {
	rdb    redis.Scripter
	prefix string
	window time.Duration
	max    int
}

func NewRedisLimiter(rdb redis.Scripter, prefix string, win time.Duration, max int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, window: win, max: max}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	count, ttl, err := utils.IncrFixedWindow(ctx, l.rdb, fmt.Sprintf("ratelimit:%s:%s", l.prefix, key), l.window)
	if err != nil {
		return Result{}, err
	}
	return decide(int(count), l.max, ttl), nil
}

func decide(count, max int, untilReset time.Duration) Result {
	r := Result{Limit: max, Remaining: max - count, Allowed: count <= max}
	if r.Remaining < 0 {
		r.Remaining = 0
	}
	if !r.Allowed {
		r.RetryAfter = untilReset
	}
	return r
}

// RetryAfterSeconds rounds up so clients never retry early.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// ClientKey picks the first of X-Forwarded-For (first hop), X-Real-Ip and the socket address.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
