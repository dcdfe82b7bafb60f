package reporting

import (
	"context"
	"testing"
	"time"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/leads"
)

func intPtr(v int) *int { return &v }

func seed(t *testing.T) (Sources, time.Time) {
	t.Helper()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()
	cr := calls.NewMemoryRepo()
	lr := leads.NewMemoryRepo()

	for _, c := range []calls.CallRecord{
		{ID: "c1", UserID: "u1", Status: calls.CallStatusAnswered, DurationSeconds: intPtr(30), AudioURL: "https://r/1", Cost: 0.1, CreatedAt: now},
		{ID: "c2", UserID: "u1", Status: calls.CallStatusMissed, CreatedAt: now},
		{ID: "c3", UserID: "u1", Status: calls.CallStatusAnswered, DurationSeconds: intPtr(90), CreatedAt: now},
		{ID: "c4", UserID: "u2", Status: calls.CallStatusAnswered, DurationSeconds: intPtr(50), CreatedAt: now},
		{ID: "c5", UserID: "u1", Status: calls.CallStatusAnswered, CreatedAt: now.Add(-48 * time.Hour)},
	} {
		if err := cr.Create(ctx, c); err != nil {
			t.Fatalf("seed call: %v", err)
		}
	}
	notified := now
	for _, l := range []leads.Lead{
		{ID: "l1", UserID: "u1", Source: leads.SourceCall, Intent: "booking", IsQualified: true, QualificationScore: 0.8, PaymentLink: "https://pay/1", PaymentStatus: leads.PaymentCompleted, NotifiedAt: &notified, CreatedAt: now},
		{ID: "l2", UserID: "u1", Source: leads.SourceWidget, Intent: "pricing", QualificationScore: 0.4, PaymentStatus: leads.PaymentPending, CreatedAt: now},
		{ID: "l3", UserID: "u2", Source: leads.SourceCall, QualificationScore: 0.9, CreatedAt: now},
	} {
		if err := lr.Create(ctx, l); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
	}
	return Sources{Calls: cr, Leads: lr}, now
}

func TestStats_UserIsolationAndRange(t *testing.T) {
	src, now := seed(t)
	svc := NewService(src)

	out, err := svc.Stats(context.Background(), StatsRequest{UserID: "u1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Calls.TotalCalls != 3 || out.Calls.AnsweredCalls != 2 || out.Calls.MissedCalls != 1 {
		t.Fatalf("unexpected call summary: %+v", out.Calls)
	}
	if out.Calls.TotalDurationSeconds != 120 || out.Calls.AverageDurationSeconds != 60 || out.Calls.RecordedCalls != 1 {
		t.Fatalf("unexpected durations: %+v", out.Calls)
	}
	if out.Leads.TotalLeads != 2 || out.Leads.QualifiedLeads != 1 || out.Leads.NotifiedLeads != 1 || out.Leads.PaidLeads != 1 {
		t.Fatalf("unexpected lead summary: %+v", out.Leads)
	}
	if out.Leads.BySource["call"] != 1 || out.Leads.ByIntent["pricing"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", out.Leads)
	}
	if out.Conversion.LeadRate != 0.5 || out.Conversion.QualificationRate != 0.5 || out.Conversion.PaymentRate != 1 {
		t.Fatalf("unexpected conversion: %+v", out.Conversion)
	}
}

func TestStats_RejectsBadRange(t *testing.T) {
	src, now := seed(t)
	svc := NewService(src)
	if _, err := svc.Stats(context.Background(), StatsRequest{UserID: "u1", Range: TimeRange{From: now, To: now}}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.Stats(context.Background(), StatsRequest{Range: TimeRange{From: now, To: now.Add(time.Hour)}}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
