package sentiment

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore_EmptyHistoryIsNeutral(t *testing.T) {
	if got := Score(nil); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
}

func TestScore_SaturatesAtOne(t *testing.T) {
	got := Score([]Analysis{{Score: 1, Intent: IntentPurchase, Urgency: UrgencyHigh}})
	if !approx(got, 1.0) {
		t.Fatalf("expected 1.0, got %v", got)
	}
}

func TestScore_GeneralLow(t *testing.T) {
	got := Score([]Analysis{{Score: 0, Intent: IntentGeneral, Urgency: UrgencyLow}})
	if !approx(got, 0.26) {
		t.Fatalf("expected 0.26, got %v", got)
	}
}

func TestScore_UnknownValuesUseMidWeight(t *testing.T) {
	got := Score([]Analysis{{Score: 0, Intent: "weird", Urgency: "whatever"}})
	if !approx(got, 0.5*0.5+0.2*0.5) {
		t.Fatalf("unexpected score %v", got)
	}
}

func TestScore_AveragesHistory(t *testing.T) {
	h := []Analysis{
		{Score: 1, Intent: IntentPurchase, Urgency: UrgencyHigh},
		{Score: 0, Intent: IntentGeneral, Urgency: UrgencyLow},
	}
	want := 0.3*0.5 + 0.5*0.7 + 0.2*0.65
	if got := Score(h); !approx(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	inputs := [][]Analysis{
		{{Score: 50, Intent: IntentPurchase, Urgency: UrgencyHigh}},
		{{Score: -3, Intent: IntentGeneral, Urgency: UrgencyLow}},
		{{Score: math.NaN()}},
	}
	for _, h := range inputs {
		got := Score(h)
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Fatalf("score out of range for %+v: %v", h, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	a := Normalize(Analysis{Score: 2, Intent: "nope", Urgency: ""})
	if a.Score != 1 || a.Intent != IntentGeneral || a.Urgency != UrgencyMedium || a.Keywords == nil {
		t.Fatalf("unexpected normalized analysis: %+v", a)
	}
}
