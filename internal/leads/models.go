package leads

import (
	"errors"
	"time"
)

// Lead is a prospect captured from a call transcript, the chat widget or the lead form.
type Lead struct {
	ID             string `json:"id" db:"id"`
	UserID         string `json:"userId,omitempty" db:"user_id"`
	CallID         string `json:"callId,omitempty" db:"call_id"`
	ConversationID string `json:"conversationId,omitempty" db:"conversation_id"`

	Name    string `json:"name,omitempty" db:"name"`
	Email   string `json:"email,omitempty" db:"email"`
	Phone   string `json:"phone,omitempty" db:"phone"`
	Intent  string `json:"intent,omitempty" db:"intent"`
	Message string `json:"message,omitempty" db:"message"`
	Source  Source `json:"source" db:"source"`

	QualificationScore float64 `json:"qualificationScore" db:"qualification_score"`
	IsQualified        bool    `json:"isQualified" db:"is_qualified"`

	PaymentLink   string        `json:"paymentLink,omitempty" db:"payment_link"`
	PaymentStatus PaymentStatus `json:"paymentStatus" db:"payment_status"`
	NotifiedAt    *time.Time    `json:"notifiedAt,omitempty" db:"notified_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Source string

const (
	SourceCall   Source = "call"
	SourceWidget Source = "widget"
	SourceChat   Source = "chat"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentCompleted || p == PaymentFailed
}

// Patch is a partial update from the dashboard. Nil fields are left unchanged.
type Patch struct {
	Name          *string        `json:"name"`
	Email         *string        `json:"email"`
	Phone         *string        `json:"phone"`
	Intent        *string        `json:"intent"`
	Message       *string        `json:"message"`
	IsQualified   *bool          `json:"isQualified"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
}

func (p Patch) apply(l *Lead) {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Intent != nil {
		l.Intent = *p.Intent
	}
	if p.Message != nil {
		l.Message = *p.Message
	}
	if p.IsQualified != nil {
		l.IsQualified = *p.IsQualified
	}
	if p.PaymentStatus != nil {
		l.PaymentStatus = *p.PaymentStatus
	}
}

var (
	ErrNotFound        = errors.New("lead not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNameRequired    = errors.New("name is required")
	ErrInvalidEmail    = errors.New("a valid email is required")
)
