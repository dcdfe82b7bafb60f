package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"voice-gateway/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// DeadLetter records a side effect that did not complete.
type DeadLetter struct {
	Task     string            `json:"task"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Error    string            `json:"error"`
	FailedAt time.Time         `json:"failed_at"`
}

type DeadLetterSink interface {
	Put(ctx context.Context, d DeadLetter) error
}

const DefaultDeadLetterKey = "deadletter:side_effects"

// RedisDeadLetters keeps the newest entries in a capped Redis list.
type RedisDeadLetters struct {
	rdb redis.Cmdable
	key string
	max int64
}

func NewRedisDeadLetters(rdb redis.Cmdable, key string, max int64) *RedisDeadLetters {
	if key == "" {
		key = DefaultDeadLetterKey
	}
	if max <= 0 {
		max = 1000
	}
	return &RedisDeadLetters{rdb: rdb, key: key, max: max}
}

func (r *RedisDeadLetters) Put(ctx context.Context, d DeadLetter) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return utils.PushCapped(ctx, r.rdb, r.key, b, r.max)
}

// Recent returns up to n entries, newest first.
func (r *RedisDeadLetters) Recent(ctx context.Context, n int64) ([]DeadLetter, error) {
	raw, err := r.rdb.LRange(ctx, r.key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, s := range raw {
		var d DeadLetter
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// MemoryDeadLetters is an in-memory sink for tests and local runs.
type MemoryDeadLetters struct {
	mu      sync.Mutex
	entries []DeadLetter
}

func NewMemoryDeadLetters() *MemoryDeadLetters { return &MemoryDeadLetters{} }

func (m *MemoryDeadLetters) Put(_ context.Context, d DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, d)
	return nil
}

func (m *MemoryDeadLetters) Entries() []DeadLetter {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeadLetter, len(m.entries))
	copy(out, m.entries)
	return out
}
