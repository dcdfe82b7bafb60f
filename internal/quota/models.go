package quota

import (
	"errors"
	"time"
)

// Entry is an append-only quota movement. calls_remaining is a projection of these rows:
// it never changes without a matching entry.
type Entry struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	Delta          int       `json:"delta" db:"delta"`
	Reason         Reason    `json:"reason" db:"reason"`
	ExternalRef    string    `json:"externalRef,omitempty" db:"external_ref"`
	IdempotencyKey string    `json:"idempotencyKey" db:"idempotency_key"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type Reason string

const (
	ReasonCallPlaced Reason = "call_placed"
	ReasonGrant      Reason = "grant"
)

var (
	ErrQuotaExceeded   = errors.New("call quota exceeded")
	ErrInvalidArgument = errors.New("invalid argument")
)
