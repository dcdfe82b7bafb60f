package conversation

import (
	"errors"
	"time"

	"voice-gateway/internal/sentiment"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a chat widget session. The sentiment fields describe the most recent
// user message only; each turn overwrites them.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"sessionId" db:"session_id"`
	Messages  []Message `json:"messages" db:"messages"`

	SentimentScore float64           `json:"sentimentScore" db:"sentiment_score"`
	Intent         sentiment.Intent  `json:"intent" db:"intent"`
	Urgency        sentiment.Urgency `json:"urgency" db:"urgency"`
	Keywords       []string          `json:"keywords" db:"keywords"`

	MessageCount int            `json:"messageCount" db:"message_count"`
	LeadCaptured bool           `json:"leadCaptured" db:"lead_captured"`
	Metadata     map[string]any `json:"metadata,omitempty" db:"metadata"`

	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	LastMessageAt time.Time `json:"lastMessageAt" db:"last_message_at"`
}

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrEmptyMessage = errors.New("message is required")
)
