package reporting

import (
	"context"
	"errors"
	"time"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/leads"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Implementations must filter by user.
type Repository interface {
	ListCalls(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error)
	ListLeads(ctx context.Context, userID string, from, to time.Time) ([]leads.Lead, error)
}

// Sources reads straight from the call and lead repositories.
type Sources struct {
	Calls calls.Repository
	Leads leads.Repository
}

func (s Sources) ListCalls(ctx context.Context, userID string, from, to time.Time) ([]calls.CallRecord, error) {
	return s.Calls.ListBetween(ctx, userID, from, to)
}

func (s Sources) ListLeads(ctx context.Context, userID string, from, to time.Time) ([]leads.Lead, error) {
	return s.Leads.ListBetween(ctx, userID, from, to)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) Stats(ctx context.Context, req StatsRequest) (Stats, error) {
	if req.UserID == "" {
		return Stats{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return Stats{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Stats{}, errors.New("reporting: repository not configured")
	}

	callRows, err := s.repo.ListCalls(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return Stats{}, err
	}
	leadRows, err := s.repo.ListLeads(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return Stats{}, err
	}

	out := Stats{Range: req.Range, Calls: summarizeCalls(callRows), Leads: summarizeLeads(leadRows)}
	out.Conversion = conversion(out.Calls, out.Leads)
	return out, nil
}

func summarizeCalls(rows []calls.CallRecord) CallsSummary {
	var out CallsSummary
	timed := 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalCost += c.Cost
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
			timed++
		}
		if c.AudioURL != "" {
			out.RecordedCalls++
		}
		switch c.Status {
		case calls.CallStatusAnswered:
			out.AnsweredCalls++
		case calls.CallStatusMissed:
			out.MissedCalls++
		case calls.CallStatusForwarded:
			out.ForwardedCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		case calls.CallStatusQueued:
			out.QueuedCalls++
		}
	}
	if timed > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / timed
	}
	return out
}

func summarizeLeads(rows []leads.Lead) LeadsSummary {
	out := LeadsSummary{BySource: map[string]int{}, ByIntent: map[string]int{}}
	var scoreSum float64
	for _, l := range rows {
		out.TotalLeads++
		scoreSum += l.QualificationScore
		if l.IsQualified {
			out.QualifiedLeads++
		}
		if l.NotifiedAt != nil {
			out.NotifiedLeads++
		}
		if l.PaymentLink != "" {
			out.PaymentLinks++
		}
		if l.PaymentStatus == leads.PaymentCompleted {
			out.PaidLeads++
		}
		out.BySource[string(l.Source)]++
		if l.Intent != "" {
			out.ByIntent[l.Intent]++
		}
	}
	if out.TotalLeads > 0 {
		out.AverageScore = scoreSum / float64(out.TotalLeads)
	}
	return out
}

func conversion(c CallsSummary, l LeadsSummary) Conversion {
	var out Conversion
	if c.TotalCalls > 0 {
		out.AnswerRate = float64(c.AnsweredCalls) / float64(c.TotalCalls)
	}
	if c.AnsweredCalls > 0 {
		out.LeadRate = float64(l.BySource[string(leads.SourceCall)]) / float64(c.AnsweredCalls)
	}
	if l.TotalLeads > 0 {
		out.QualificationRate = float64(l.QualifiedLeads) / float64(l.TotalLeads)
	}
	if l.PaymentLinks > 0 {
		out.PaymentRate = float64(l.PaidLeads) / float64(l.PaymentLinks)
	}
	return out
}
