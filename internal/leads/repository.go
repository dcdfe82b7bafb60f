package leads

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-gateway/pkg/utils"
)

type Repository interface {
	Create(ctx context.Context, l Lead) error
	Get(ctx context.Context, userID, id string) (Lead, error)
	GetByCallID(ctx context.Context, callID string) (Lead, error)
	List(ctx context.Context, userID string, limit, offset int) ([]Lead, error)
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]Lead, error)
	Update(ctx context.Context, userID, id string, p Patch, at time.Time) (Lead, error)
	SetPaymentLink(ctx context.Context, id, link string, at time.Time) error
	MarkNotified(ctx context.Context, id string, at time.Time) error
}

// PostgresRepo assumes the leads table from migrations/001_init.sql.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const leadColumns = `id, user_id, call_id, conversation_id, name, email, phone, intent, message, source,
qualification_score, is_qualified, payment_link, payment_status, notified_at, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, l Lead) error {
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`
	_, err := r.db.ExecContext(ctx, q,
		l.ID,
		utils.NullString(l.UserID),
		utils.NullString(l.CallID),
		utils.NullString(l.ConversationID),
		utils.NullString(l.Name),
		utils.NullString(l.Email),
		utils.NullString(l.Phone),
		utils.NullString(l.Intent),
		utils.NullString(l.Message),
		l.Source,
		l.QualificationScore,
		l.IsQualified,
		utils.NullString(l.PaymentLink),
		l.PaymentStatus,
		utils.NullTime(l.NotifiedAt),
		l.CreatedAt,
		l.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (Lead, error) {
	return r.get(ctx, r.db, userID, id, false)
}

func (r *PostgresRepo) GetByCallID(ctx context.Context, callID string) (Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE call_id = $1 ORDER BY created_at LIMIT 1`
	return scanLead(r.db.QueryRowContext(ctx, q, callID))
}

func (r *PostgresRepo) List(ctx context.Context, userID string, limit, offset int) ([]Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	return queryLeads(ctx, r.db, q, userID, limit, offset)
}

func (r *PostgresRepo) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]Lead, error) {
	const q = `
SELECT ` + leadColumns + `
FROM leads
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
`
	return queryLeads(ctx, r.db, q, userID, from, to)
}

func (r *PostgresRepo) Update(ctx context.Context, userID, id string, p Patch, at time.Time) (Lead, error) {
	var out Lead
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		l, err := r.get(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		p.apply(&l)
		l.UpdatedAt = at
		const q = `
UPDATE leads
SET name = $2, email = $3, phone = $4, intent = $5, message = $6,
    is_qualified = $7, payment_status = $8, updated_at = $9
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, q,
			l.ID,
			utils.NullString(l.Name),
			utils.NullString(l.Email),
			utils.NullString(l.Phone),
			utils.NullString(l.Intent),
			utils.NullString(l.Message),
			l.IsQualified,
			l.PaymentStatus,
			l.UpdatedAt,
		); err != nil {
			return err
		}
		out = l
		return nil
	})
	return out, err
}

func (r *PostgresRepo) SetPaymentLink(ctx context.Context, id, link string, at time.Time) error {
	return r.exec(ctx, `UPDATE leads SET payment_link = $2, updated_at = $3 WHERE id = $1`, id, link, at)
}

func (r *PostgresRepo) MarkNotified(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE leads SET notified_at = $2, updated_at = $2 WHERE id = $1`, id, at)
}

func (r *PostgresRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) get(ctx context.Context, db utils.Queryer, userID, id string, lock bool) (Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	args := []any{id}
	if userID != "" {
		q += ` AND user_id = $2`
		args = append(args, userID)
	}
	if lock {
		q += ` FOR UPDATE`
	}
	return scanLead(db.QueryRowContext(ctx, q, args...))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var (
		l                                          Lead
		userID, callID, convID, name, email, phone sql.NullString
		intent, message, link                      sql.NullString
		notified                                   sql.NullTime
	)
	err := row.Scan(
		&l.ID,
		&userID,
		&callID,
		&convID,
		&name,
		&email,
		&phone,
		&intent,
		&message,
		&l.Source,
		&l.QualificationScore,
		&l.IsQualified,
		&link,
		&l.PaymentStatus,
		&notified,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	l.UserID = userID.String
	l.CallID = callID.String
	l.ConversationID = convID.String
	l.Name = name.String
	l.Email = email.String
	l.Phone = phone.String
	l.Intent = intent.String
	l.Message = message.String
	l.PaymentLink = link.String
	l.NotifiedAt = utils.TimePtr(notified)
	return l, nil
}

func queryLeads(ctx context.Context, db utils.Queryer, q string, args ...any) ([]Lead, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
