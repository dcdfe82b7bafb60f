package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"voice-gateway/internal/sentiment"
)

// Store is keyed by conversation id.
type Store interface {
	Get(ctx context.Context, id string) (Conversation, error)
	Upsert(ctx context.Context, c Conversation) error
	// UpdateMetadata merges keys into the stored metadata.
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any, leadCaptured *bool) (Conversation, error)
}

// PostgresStore keeps messages and metadata as JSONB on the conversations table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const conversationColumns = `id, session_id, messages, sentiment_score, intent, urgency, keywords,
message_count, lead_captured, metadata, created_at, last_message_at`

// upsertConversationSQL leaves lead_captured and metadata alone on conflict;
// those columns belong to UpdateMetadata, which may run while a chat turn is in flight.
const upsertConversationSQL = `
INSERT INTO conversations (` + conversationColumns + `)
VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7::jsonb, $8, $9, $10::jsonb, $11, $12)
ON CONFLICT (id) DO UPDATE
SET messages = EXCLUDED.messages,
    sentiment_score = EXCLUDED.sentiment_score,
    intent = EXCLUDED.intent,
    urgency = EXCLUDED.urgency,
    keywords = EXCLUDED.keywords,
    message_count = EXCLUDED.message_count,
    last_message_at = EXCLUDED.last_message_at
`

// mergeMetadataSQL treats a non-object metadata value (null, array) as empty.
const mergeMetadataSQL = `
UPDATE conversations
SET metadata = CASE WHEN jsonb_typeof(metadata) = 'object' THEN metadata ELSE '{}'::jsonb END || $2::jsonb,
    lead_captured = COALESCE($3, lead_captured)
WHERE id = $1
`

func (s *PostgresStore) Get(ctx context.Context, id string) (Conversation, error) {
	const q = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	var (
		c                        Conversation
		messages, keywords, meta []byte
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID,
		&c.SessionID,
		&messages,
		&c.SentimentScore,
		&c.Intent,
		&c.Urgency,
		&keywords,
		&c.MessageCount,
		&c.LeadCaptured,
		&meta,
		&c.CreatedAt,
		&c.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return Conversation{}, err
	}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
			return Conversation{}, fmt.Errorf("conversation %s keywords: %w", id, err)
		}
	}
	if c.Metadata, err = decodeMetadata(meta); err != nil {
		return Conversation{}, fmt.Errorf("conversation %s metadata: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, c Conversation) error {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return err
	}
	keywords, err := json.Marshal(nonNil(c.Keywords))
	if err != nil {
		return err
	}
	meta, err := encodeMetadata(c.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertConversationSQL,
		c.ID, c.SessionID, string(messages), c.SentimentScore, c.Intent, c.Urgency, string(keywords),
		c.MessageCount, c.LeadCaptured, string(meta), c.CreatedAt, c.LastMessageAt,
	)
	return err
}

func (s *PostgresStore) UpdateMetadata(ctx context.Context, id string, metadata map[string]any, leadCaptured *bool) (Conversation, error) {
	patch, err := json.Marshal(metadata)
	if err != nil {
		return Conversation{}, err
	}
	var captured sql.NullBool
	if leadCaptured != nil {
		captured = sql.NullBool{Bool: *leadCaptured, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, mergeMetadataSQL, id, string(patch), captured)
	if err != nil {
		return Conversation{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Conversation{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[string]Conversation
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{convs: map[string]Conversation{}} }

func (s *MemoryStore) Get(_ context.Context, id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return clone(c), nil
}

// Upsert keeps the stored LeadCaptured and Metadata of an existing conversation.
func (s *MemoryStore) Upsert(_ context.Context, c Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c = clone(c)
	if prev, ok := s.convs[c.ID]; ok {
		c.LeadCaptured = prev.LeadCaptured
		c.Metadata = prev.Metadata
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	s.convs[c.ID] = c
	return nil
}

func (s *MemoryStore) UpdateMetadata(_ context.Context, id string, metadata map[string]any, leadCaptured *bool) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	c = clone(c)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		c.Metadata[k] = v
	}
	if leadCaptured != nil {
		c.LeadCaptured = *leadCaptured
	}
	s.convs[id] = c
	return clone(c), nil
}

func clone(c Conversation) Conversation {
	c.Messages = append([]Message(nil), c.Messages...)
	c.Keywords = append([]string(nil), c.Keywords...)
	if c.Metadata != nil {
		m := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			m[k] = v
		}
		c.Metadata = m
	}
	return c
}

// encodeMetadata always yields a JSON object so the jsonb merge operator concatenates keys.
func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// analysis returns the stored sentiment fields as an Analysis.
func (c Conversation) analysis() sentiment.Analysis {
	return sentiment.Analysis{Score: c.SentimentScore, Intent: c.Intent, Urgency: c.Urgency, Keywords: c.Keywords}
}
