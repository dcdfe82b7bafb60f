package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-gateway/pkg/utils"
)

// Repository persists call records.
type Repository interface {
	Create(ctx context.Context, c CallRecord) error
	Get(ctx context.Context, userID, id string) (CallRecord, error)
	GetByProviderID(ctx context.Context, providerCallID string) (CallRecord, error)
	List(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error)
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]CallRecord, error)
	SetStatus(ctx context.Context, id string, status CallStatus, at time.Time) error
	Complete(ctx context.Context, id string, done Completion, at time.Time) error
}

// PostgresRepo assumes the call_records table from migrations/001_init.sql.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `id, user_id, provider_call_id, assistant_id, caller_phone, status,
transcript, duration, audio_url, cost, ended_reason, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, c CallRecord) error {
	const q = `
INSERT INTO call_records (` + callColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		utils.NullString(c.UserID),
		utils.NullString(c.ProviderCallID),
		utils.NullString(c.AssistantID),
		c.CallerPhone,
		c.Status,
		utils.NullString(c.Transcript),
		nullInt(c.DurationSeconds),
		utils.NullString(c.AudioURL),
		c.Cost,
		utils.NullString(c.EndedReason),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (CallRecord, error) {
	q := `SELECT ` + callColumns + ` FROM call_records WHERE id = $1`
	args := []any{id}
	if userID != "" {
		q += ` AND user_id = $2`
		args = append(args, userID)
	}
	return scanCall(r.db.QueryRowContext(ctx, q, args...))
}

func (r *PostgresRepo) GetByProviderID(ctx context.Context, providerCallID string) (CallRecord, error) {
	const q = `SELECT ` + callColumns + ` FROM call_records WHERE provider_call_id = $1`
	return scanCall(r.db.QueryRowContext(ctx, q, providerCallID))
}

func (r *PostgresRepo) List(ctx context.Context, userID string, limit, offset int) ([]CallRecord, error) {
	const q = `
SELECT ` + callColumns + `
FROM call_records
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	return queryCalls(ctx, r.db, q, userID, limit, offset)
}

func (r *PostgresRepo) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]CallRecord, error) {
	const q = `
SELECT ` + callColumns + `
FROM call_records
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
`
	return queryCalls(ctx, r.db, q, userID, from, to)
}

func (r *PostgresRepo) SetStatus(ctx context.Context, id string, status CallStatus, at time.Time) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		cur, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(cur, status) {
			return ErrInvalidTransition
		}
		_, err = tx.ExecContext(ctx, `UPDATE call_records SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at)
		return err
	})
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, done Completion, at time.Time) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		cur, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(cur, done.Status) {
			return ErrInvalidTransition
		}
		const q = `
UPDATE call_records
SET status = $2,
    transcript = COALESCE($3, transcript),
    duration = COALESCE($4, duration),
    audio_url = COALESCE($5, audio_url),
    cost = $6,
    ended_reason = COALESCE($7, ended_reason),
    updated_at = $8
WHERE id = $1
`
		_, err = tx.ExecContext(ctx, q,
			id,
			done.Status,
			utils.NullString(done.Transcript),
			nullInt(done.DurationSeconds),
			utils.NullString(done.AudioURL),
			done.Cost,
			utils.NullString(done.EndedReason),
			at,
		)
		return err
	})
}

func lockStatus(ctx context.Context, tx *sql.Tx, id string) (CallStatus, error) {
	var s CallStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM call_records WHERE id = $1 FOR UPDATE`, id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (CallRecord, error) {
	var c CallRecord
	var userID, providerID, assistantID, transcript, audio, why sql.NullString
	var duration sql.NullInt64
	err := row.Scan(
		&c.ID,
		&userID,
		&providerID,
		&assistantID,
		&c.CallerPhone,
		&c.Status,
		&transcript,
		&duration,
		&audio,
		&c.Cost,
		&why,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	c.UserID = userID.String
	c.ProviderCallID = providerID.String
	c.AssistantID = assistantID.String
	c.Transcript = transcript.String
	c.AudioURL = audio.String
	c.EndedReason = why.String
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	return c, nil
}

func queryCalls(ctx context.Context, db utils.Queryer, q string, args ...any) ([]CallRecord, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
