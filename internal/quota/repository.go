package quota

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"voice-gateway/pkg/utils"
)

// Repository applies entries atomically. Users without a quota row start at the default.
type Repository interface {
	Remaining(ctx context.Context, userID string, def int) (int, error)
	// Apply posts e unless an entry with the same idempotency key exists, and returns the
	// resulting balance. A debit that would go below zero fails with ErrQuotaExceeded.
	Apply(ctx context.Context, e Entry, def int) (int, error)
}

// PostgresRepo assumes the call_quotas and quota_ledger tables from migrations/001_init.sql.
// quota_ledger has UNIQUE (user_id, idempotency_key).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Remaining(ctx context.Context, userID string, def int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT calls_remaining FROM call_quotas WHERE user_id = $1`, userID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	return n, err
}

func (r *PostgresRepo) Apply(ctx context.Context, e Entry, def int) (int, error) {
	var out int
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Seed the projection row so the lock below always has something to hold.
		if _, err := tx.ExecContext(ctx, `
INSERT INTO call_quotas (user_id, calls_remaining, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING
`, e.UserID, def, e.CreatedAt); err != nil {
			return err
		}

		cur, err := lockQuota(ctx, tx, e.UserID)
		if err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM quota_ledger WHERE user_id = $1 AND idempotency_key = $2)`,
			e.UserID, e.IdempotencyKey,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			out = cur
			return nil
		}

		next := cur + e.Delta
		if next < 0 {
			return ErrQuotaExceeded
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO quota_ledger (id, user_id, delta, reason, external_ref, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, e.ID, e.UserID, e.Delta, e.Reason, utils.NullString(e.ExternalRef), e.IdempotencyKey, e.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE call_quotas SET calls_remaining = $2, updated_at = $3 WHERE user_id = $1`,
			e.UserID, next, e.CreatedAt,
		); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func lockQuota(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT calls_remaining FROM call_quotas WHERE user_id = $1 FOR UPDATE`, userID).Scan(&n)
	return n, err
}

// MemoryRepo is a Repository for tests and local runs.
type MemoryRepo struct {
	mu        sync.Mutex
	remaining map[string]int
	ledger    []Entry
	keys      map[string]bool
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{remaining: map[string]int{}, keys: map[string]bool{}}
}

func (r *MemoryRepo) Remaining(_ context.Context, userID string, def int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.remaining[userID]; ok {
		return n, nil
	}
	return def, nil
}

func (r *MemoryRepo) Apply(_ context.Context, e Entry, def int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.remaining[e.UserID]
	if !ok {
		cur = def
	}
	key := e.UserID + "\x00" + e.IdempotencyKey
	if r.keys[key] {
		r.remaining[e.UserID] = cur
		return cur, nil
	}
	next := cur + e.Delta
	if next < 0 {
		return cur, ErrQuotaExceeded
	}
	r.keys[key] = true
	r.ledger = append(r.ledger, e)
	r.remaining[e.UserID] = next
	return next, nil
}

func (r *MemoryRepo) Ledger() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.ledger))
	copy(out, r.ledger)
	return out
}
