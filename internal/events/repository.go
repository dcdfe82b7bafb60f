package events

import (
	"context"
	"database/sql"
	"time"

	"voice-gateway/pkg/utils"
)

// PostgresRepo assumes the webhook_events table from migrations/001_init.sql.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e WebhookEvent) error {
	const q = `
INSERT INTO webhook_events (id, event_type, call_id, payload, processed, created_at)
VALUES ($1, $2, $3, $4::jsonb, false, $5)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.EventType, utils.NullString(e.CallID), string(e.Payload), e.CreatedAt)
	return err
}

func (r *PostgresRepo) MarkProcessed(ctx context.Context, id, errMsg string, at time.Time) error {
	const q = `
UPDATE webhook_events
SET processed = true, error_message = $2, processed_at = $3
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, id, utils.NullString(errMsg), at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID string) ([]WebhookEvent, error) {
	const q = `
SELECT id, event_type, call_id, payload, processed, error_message, created_at, processed_at
FROM webhook_events
WHERE call_id = $1
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]WebhookEvent, 0)
	for rows.Next() {
		var (
			e           WebhookEvent
			cid, errMsg sql.NullString
			payload     []byte
			processedAt sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.EventType, &cid, &payload, &e.Processed, &errMsg, &e.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		e.CallID = cid.String
		e.ErrorMessage = errMsg.String
		e.Payload = payload
		e.ProcessedAt = utils.TimePtr(processedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
