package calls

import (
	"errors"
	"time"
)

// CallRecord is one outbound or inbound call placed through the voice provider.
//
// ProviderCallID is the provider's id; webhook events are matched on it.
// Terminal states are answered and missed.
type CallRecord struct {
	ID             string `json:"id" db:"id"`
	UserID         string `json:"userId,omitempty" db:"user_id"`
	ProviderCallID string `json:"providerCallId,omitempty" db:"provider_call_id"`
	AssistantID    string `json:"assistantId,omitempty" db:"assistant_id"`

	CallerPhone string     `json:"callerPhone" db:"caller_phone"`
	Status      CallStatus `json:"status" db:"status"`

	Transcript      string  `json:"transcript,omitempty" db:"transcript"`
	DurationSeconds *int    `json:"duration,omitempty" db:"duration"`
	AudioURL        string  `json:"audioUrl,omitempty" db:"audio_url"`
	Cost            float64 `json:"cost,omitempty" db:"cost"`
	EndedReason     string  `json:"endedReason,omitempty" db:"ended_reason"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusAnswered   CallStatus = "answered"
	CallStatusMissed     CallStatus = "missed"
	CallStatusForwarded  CallStatus = "forwarded"
)

var (
	ErrNotFound          = errors.New("call not found")
	ErrInvalidTransition = errors.New("invalid call status transition")
	ErrInvalidArgument   = errors.New("invalid argument")
)

func (s CallStatus) Terminal() bool {
	return s == CallStatusAnswered || s == CallStatusMissed
}

// CanTransition allows re-applying the current status so replayed events stay overwrite-safe.
// Nothing leaves a terminal state.
func CanTransition(from, to CallStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	switch to {
	case CallStatusInProgress:
		return from == CallStatusQueued
	case CallStatusAnswered, CallStatusMissed, CallStatusForwarded:
		return from == CallStatusQueued || from == CallStatusInProgress || from == CallStatusForwarded
	}
	return false
}

// Completion carries the fields a call-ended or call-failed event writes.
type Completion struct {
	Status          CallStatus
	Transcript      string
	DurationSeconds *int
	AudioURL        string
	Cost            float64
	EndedReason     string
}
