package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]CallRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{calls: map[string]CallRecord{}} }

func (r *MemoryRepo) Create(_ context.Context, c CallRecord) error {
	if c.ID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c.ID] = c
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, userID, id string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || (userID != "" && c.UserID != userID) {
		return CallRecord{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByProviderID(_ context.Context, providerCallID string) (CallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if providerCallID != "" && c.ProviderCallID == providerCallID {
			return c, nil
		}
	}
	return CallRecord{}, ErrNotFound
}

func (r *MemoryRepo) List(_ context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	all := r.filter(func(c CallRecord) bool { return c.UserID == userID })
	if offset >= len(all) {
		return []CallRecord{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryRepo) ListBetween(_ context.Context, userID string, from, to time.Time) ([]CallRecord, error) {
	return r.filter(func(c CallRecord) bool {
		return c.UserID == userID && !c.CreatedAt.Before(from) && c.CreatedAt.Before(to)
	}), nil
}

func (r *MemoryRepo) SetStatus(_ context.Context, id string, status CallStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(c.Status, status) {
		return ErrInvalidTransition
	}
	c.Status = status
	c.UpdatedAt = at
	r.calls[id] = c
	return nil
}

func (r *MemoryRepo) Complete(_ context.Context, id string, done Completion, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(c.Status, done.Status) {
		return ErrInvalidTransition
	}
	c.Status = done.Status
	if done.Transcript != "" {
		c.Transcript = done.Transcript
	}
	if done.DurationSeconds != nil {
		c.DurationSeconds = done.DurationSeconds
	}
	if done.AudioURL != "" {
		c.AudioURL = done.AudioURL
	}
	if done.EndedReason != "" {
		c.EndedReason = done.EndedReason
	}
	c.Cost = done.Cost
	c.UpdatedAt = at
	r.calls[id] = c
	return nil
}

func (r *MemoryRepo) filter(keep func(CallRecord) bool) []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, c := range r.calls {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
