package sentiment

import "context"

type Intent string

const (
	IntentInformation Intent = "information"
	IntentDemo        Intent = "demo"
	IntentPricing     Intent = "pricing"
	IntentSupport     Intent = "support"
	IntentPurchase    Intent = "purchase"
	IntentGeneral     Intent = "general"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Analysis is the classification of a single message.
type Analysis struct {
	Score    float64  `json:"score"`
	Intent   Intent   `json:"intent"`
	Urgency  Urgency  `json:"urgency"`
	Keywords []string `json:"keywords"`
}

// Classifier never fails: when no signal is available it returns Default().
type Classifier interface {
	Classify(ctx context.Context, text string) Analysis
}

// Default is the neutral analysis used when nothing better is known.
func Default() Analysis {
	return Analysis{Score: 0.5, Intent: IntentGeneral, Urgency: UrgencyMedium, Keywords: []string{}}
}

func (i Intent) Valid() bool {
	switch i {
	case IntentInformation, IntentDemo, IntentPricing, IntentSupport, IntentPurchase, IntentGeneral:
		return true
	}
	return false
}

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Normalize clamps the score and replaces values outside the enumerations with defaults.
func Normalize(a Analysis) Analysis {
	a.Score = clamp01(a.Score)
	if !a.Intent.Valid() {
		a.Intent = IntentGeneral
	}
	if !a.Urgency.Valid() {
		a.Urgency = UrgencyMedium
	}
	if a.Keywords == nil {
		a.Keywords = []string{}
	}
	return a
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
