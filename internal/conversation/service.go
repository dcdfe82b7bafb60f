package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-gateway/internal/sentiment"
	"voice-gateway/pkg/logger"
)

var errEmptyReply = errors.New("empty model reply")

type Service struct {
	store      Store
	classifier sentiment.Classifier
	responder  Responder
	now        func() time.Time
}

func NewService(store Store, classifier sentiment.Classifier, responder Responder) *Service {
	if classifier == nil {
		classifier = sentiment.NewKeywordClassifier()
	}
	if responder == nil {
		responder = TemplateResponder{}
	}
	return &Service{store: store, classifier: classifier, responder: responder, now: time.Now}
}

type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	SessionID      string `json:"sessionId"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	ConversationID     string             `json:"conversationId"`
	SessionID          string             `json:"sessionId"`
	Response           string             `json:"response"`
	Sentiment          sentiment.Analysis `json:"sentiment"`
	QualificationScore float64            `json:"qualificationScore"`
	ShouldCaptureLead  bool               `json:"shouldCaptureLead"`
}

// Chat handles one widget turn. Only the new message is classified, and the stored
// sentiment is replaced by this turn's analysis. A failed save is logged; the reply
// is still returned.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return ChatResponse{}, ErrEmptyMessage
	}

	now := s.now().UTC()
	conv, err := s.load(ctx, req, now)
	if err != nil {
		return ChatResponse{}, err
	}

	a := s.classifier.Classify(ctx, text)
	reply := s.responder.Reply(ctx, conv.Messages, text, a)

	conv.Messages = append(conv.Messages,
		Message{Role: RoleUser, Content: text, Timestamp: now},
		Message{Role: RoleAssistant, Content: reply, Timestamp: s.now().UTC()},
	)
	conv.SentimentScore = a.Score
	conv.Intent = a.Intent
	conv.Urgency = a.Urgency
	conv.Keywords = a.Keywords
	conv.MessageCount = len(conv.Messages)
	conv.LastMessageAt = now

	if err := s.store.Upsert(ctx, conv); err != nil {
		logger.From(ctx).Error("conversation save failed", "conversation_id", conv.ID, "err", err)
	}

	score := sentiment.Score([]sentiment.Analysis{a})
	return ChatResponse{
		ConversationID:     conv.ID,
		SessionID:          conv.SessionID,
		Response:           reply,
		Sentiment:          a,
		QualificationScore: score,
		ShouldCaptureLead:  sentiment.IsQualified(score) && !conv.LeadCaptured,
	}, nil
}

func (s *Service) load(ctx context.Context, req ChatRequest, now time.Time) (Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.store.Get(ctx, req.ConversationID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Conversation{}, err
		}
	}

	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}
	session := req.SessionID
	if session == "" {
		session = uuid.NewString()
	}
	return Conversation{
		ID:            id,
		SessionID:     session,
		Messages:      []Message{},
		Keywords:      []string{},
		Metadata:      map[string]any{},
		CreatedAt:     now,
		LastMessageAt: now,
	}, nil
}

// View is a stored conversation with its current qualification score.
type View struct {
	Conversation
	QualificationScore float64 `json:"qualificationScore"`
}

func (s *Service) Get(ctx context.Context, id string) (View, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return View{Conversation: c, QualificationScore: sentiment.Score([]sentiment.Analysis{c.analysis()})}, nil
}

// UpdateMetadata merges visitor metadata. A boolean "leadCaptured" key also sets the flag.
func (s *Service) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) (Conversation, error) {
	var captured *bool
	patch := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if b, ok := v.(bool); ok && k == "leadCaptured" {
			captured = &b
			continue
		}
		patch[k] = v
	}
	return s.store.UpdateMetadata(ctx, id, patch, captured)
}
