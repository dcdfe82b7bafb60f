package events

import (
	"encoding/json"
	"time"
)

// WebhookEvent is one provider callback as received.
//
// Every event is stored once with Processed=false before any processing happens,
// then marked processed with the processing error, if any. Replays create new rows.
type WebhookEvent struct {
	ID        string          `json:"id" db:"id"`
	EventType string          `json:"eventType" db:"event_type"`
	CallID    string          `json:"callId,omitempty" db:"call_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`

	Processed    bool       `json:"processed" db:"processed"`
	ErrorMessage string     `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty" db:"processed_at"`
}
