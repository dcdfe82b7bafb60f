package leads

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-gateway/internal/sentiment"
	"voice-gateway/pkg/logger"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Dispatcher fans a saved lead out to its side effects.
type Dispatcher interface {
	Dispatch(l Lead)
}

type Service struct {
	repo       Repository
	classifier sentiment.Classifier
	effects    Dispatcher
	now        func() time.Time
}

func NewService(repo Repository, classifier sentiment.Classifier, effects Dispatcher) *Service {
	if classifier == nil {
		classifier = sentiment.NewKeywordClassifier()
	}
	return &Service{repo: repo, classifier: classifier, effects: effects, now: time.Now}
}

type CaptureRequest struct {
	UserID         string
	Name           string
	Email          string
	Phone          string
	Intent         string
	ConversationID string
	Message        string
	Source         Source
}

// Capture stores a lead submitted by the public form or chat widget and scores it.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (Lead, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" {
		return Lead{}, ErrNameRequired
	}
	if !emailShape.MatchString(email) {
		return Lead{}, ErrInvalidEmail
	}

	text := strings.TrimSpace(strings.Join([]string{req.Intent, req.Message}, " "))
	a := sentiment.Default()
	if text != "" {
		a = s.classifier.Classify(ctx, text)
	}
	score := sentiment.Score([]sentiment.Analysis{a})

	intent := strings.TrimSpace(req.Intent)
	if intent == "" {
		intent = string(a.Intent)
	}
	source := req.Source
	if source == "" {
		source = SourceWidget
	}

	now := s.now().UTC()
	l := Lead{
		ID:                 uuid.NewString(),
		UserID:             req.UserID,
		ConversationID:     req.ConversationID,
		Name:               name,
		Email:              email,
		Phone:              strings.TrimSpace(req.Phone),
		Intent:             intent,
		Message:            req.Message,
		Source:             source,
		QualificationScore: score,
		IsQualified:        sentiment.IsQualified(score),
		PaymentStatus:      PaymentPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Lead{}, err
	}
	s.dispatch(l)
	return l, nil
}

type CallTranscript struct {
	UserID      string
	CallID      string
	CallerPhone string
	Transcript  string
}

// FromTranscript extracts a lead from a finished call. A call yields at most one lead:
// a replayed call-ended event returns the existing lead with created=false and no side effects.
func (s *Service) FromTranscript(ctx context.Context, t CallTranscript) (l Lead, created bool, err error) {
	if strings.TrimSpace(t.Transcript) == "" {
		return Lead{}, false, ErrInvalidArgument
	}
	if t.CallID != "" {
		existing, err := s.repo.GetByCallID(ctx, t.CallID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Lead{}, false, err
		}
	}

	x := Extract(t.Transcript)
	now := s.now().UTC()
	l = Lead{
		ID:                 uuid.NewString(),
		UserID:             t.UserID,
		CallID:             t.CallID,
		Name:               x.Name,
		Email:              x.Email,
		Phone:              t.CallerPhone,
		Intent:             x.Intent,
		Source:             SourceCall,
		QualificationScore: x.Confidence,
		IsQualified:        x.Qualified,
		PaymentStatus:      PaymentPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Lead{}, false, err
	}
	logger.From(ctx).Info("lead extracted", "lead_id", l.ID, "call_id", t.CallID, "intent", l.Intent, "qualified", l.IsQualified)
	s.dispatch(l)
	return l, true, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (Lead, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Lead, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (Lead, error) {
	if p.Email != nil && !emailShape.MatchString(strings.TrimSpace(*p.Email)) {
		return Lead{}, ErrInvalidEmail
	}
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return Lead{}, ErrInvalidArgument
	}
	return s.repo.Update(ctx, userID, id, p, s.now().UTC())
}

func (s *Service) dispatch(l Lead) {
	if s.effects != nil {
		s.effects.Dispatch(l)
	}
}
