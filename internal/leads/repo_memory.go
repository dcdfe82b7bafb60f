package leads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{leads: map[string]Lead{}} }

func (r *MemoryRepo) Create(_ context.Context, l Lead) error {
	if l.ID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, userID, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok || (userID != "" && l.UserID != userID) {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) GetByCallID(_ context.Context, callID string) (Lead, error) {
	all := r.filter(func(l Lead) bool { return callID != "" && l.CallID == callID })
	if len(all) == 0 {
		return Lead{}, ErrNotFound
	}
	return all[len(all)-1], nil
}

func (r *MemoryRepo) List(_ context.Context, userID string, limit, offset int) ([]Lead, error) {
	all := r.filter(func(l Lead) bool { return l.UserID == userID })
	if offset >= len(all) {
		return []Lead{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) ListBetween(_ context.Context, userID string, from, to time.Time) ([]Lead, error) {
	return r.filter(func(l Lead) bool {
		return l.UserID == userID && !l.CreatedAt.Before(from) && l.CreatedAt.Before(to)
	}), nil
}

func (r *MemoryRepo) Update(_ context.Context, userID, id string, p Patch, at time.Time) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok || (userID != "" && l.UserID != userID) {
		return Lead{}, ErrNotFound
	}
	p.apply(&l)
	l.UpdatedAt = at
	r.leads[id] = l
	return l, nil
}

func (r *MemoryRepo) SetPaymentLink(_ context.Context, id, link string, at time.Time) error {
	return r.mutate(id, func(l *Lead) {
		l.PaymentLink = link
		l.UpdatedAt = at
	})
}

func (r *MemoryRepo) MarkNotified(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(l *Lead) {
		t := at
		l.NotifiedAt = &t
		l.UpdatedAt = at
	})
}

func (r *MemoryRepo) mutate(id string, fn func(*Lead)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return ErrNotFound
	}
	fn(&l)
	r.leads[id] = l
	return nil
}

// filter returns matches newest first.
func (r *MemoryRepo) filter(keep func(Lead) bool) []Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lead, 0)
	for _, l := range r.leads {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
