package livefeed

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel returns the pub/sub channel carrying events for one provider call.
func Channel(callID string) string { return "call-events:" + callID }

// Feed fans webhook events out to live listeners of a call.
type Feed interface {
	Publish(ctx context.Context, callID string, payload []byte) error
	// Subscribe returns a message channel and a cancel func that must be called to release it.
	Subscribe(ctx context.Context, callID string) (<-chan []byte, func(), error)
}

// RedisFeed shares events across API instances through Redis pub/sub.
type RedisFeed struct {
	rdb *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed { return &RedisFeed{rdb: rdb} }

func (f *RedisFeed) Publish(ctx context.Context, callID string, payload []byte) error {
	return f.rdb.Publish(ctx, Channel(callID), payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, callID string) (<-chan []byte, func(), error) {
	ps := f.rdb.Subscribe(ctx, Channel(callID))
	// Receive blocks until the subscription is confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		ch := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default: // slow listener
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}

// MemoryFeed is a process-local Feed for tests and single-instance runs.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewMemoryFeed() *MemoryFeed { return &MemoryFeed{subs: map[string]map[chan []byte]struct{}{}} }

func (f *MemoryFeed) Publish(_ context.Context, callID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[callID] {
		select {
		case ch <- append([]byte(nil), payload...):
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, callID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	f.mu.Lock()
	if f.subs[callID] == nil {
		f.subs[callID] = map[chan []byte]struct{}{}
	}
	f.subs[callID][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[callID], ch)
			if len(f.subs[callID]) == 0 {
				delete(f.subs, callID)
			}
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers reports how many listeners a call currently has.
func (f *MemoryFeed) Subscribers(callID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[callID])
}
