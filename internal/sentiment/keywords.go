package sentiment

import (
	"context"
	"strings"
	"unicode"
)

var intentKeywords = []struct {
	intent Intent
	words  []string
}{
	{IntentPurchase, []string{"buy", "purchase", "sign up", "sign me up", "subscribe", "order"}},
	{IntentDemo, []string{"demo", "trial", "show me", "walkthrough"}},
	{IntentPricing, []string{"price", "pricing", "cost", "how much", "plan"}},
	{IntentSupport, []string{"help", "problem", "issue", "not working", "broken"}},
	{IntentInformation, []string{"what is", "how does", "tell me", "information", "learn"}},
}

var (
	highUrgency = []string{"urgent", "asap", "immediately", "today", "right now", "emergency"}
	lowUrgency  = []string{"later", "someday", "no rush", "just looking", "next month"}

	positiveKeywords = []string{"interested", "sign up", "sign me up", "buy", "purchase", "book", "yes", "great", "perfect", "sounds good"}
	negativeKeywords = []string{"no", "not", "never", "nope", "don't", "not interested", "maybe later", "expensive", "busy", "cancel"}

	// qualifyingKeywords decide the boolean "qualified" signal for transcripts.
	qualifyingKeywords = []string{"interested", "sign up", "buy", "purchase", "book", "yes"}

	negators = map[string]bool{"no": true, "not": true, "never": true, "don't": true}
)

// transcript intent labels stored on leads
const (
	CallIntentBooking        = "booking"
	CallIntentPricing        = "pricing_inquiry"
	CallIntentPurchase       = "purchase"
	CallIntentSupport        = "support"
	CallIntentGeneralInquiry = "general_inquiry"
)

var callIntentKeywords = []struct {
	label string
	words []string
}{
	{CallIntentBooking, []string{"book", "reservation", "appointment", "schedule"}},
	{CallIntentPricing, []string{"price", "cost", "how much"}},
	{CallIntentPurchase, []string{"order", "buy", "purchase"}},
	{CallIntentSupport, []string{"help", "support", "problem", "issue"}},
}

// KeywordClassifier is the deterministic classifier over fixed keyword tables.
type KeywordClassifier struct{}

func NewKeywordClassifier() KeywordClassifier { return KeywordClassifier{} }

func (KeywordClassifier) Classify(_ context.Context, text string) Analysis {
	t := normalizeText(text)
	if t == "" {
		return Default()
	}

	out := Default()
	var kw keywordSet

	for _, group := range intentKeywords {
		found := false
		for _, w := range group.words {
			if len(matchPositions(t, w)) > 0 {
				kw.add(w)
				found = true
			}
		}
		if found && out.Intent == IntentGeneral {
			out.Intent = group.intent
		}
	}

	switch {
	case kw.addAny(t, highUrgency):
		out.Urgency = UrgencyHigh
	case kw.addAny(t, lowUrgency):
		out.Urgency = UrgencyLow
	}

	pos, neg := polarity(t)
	for _, w := range positiveKeywords {
		if len(matchPositions(t, w)) > 0 {
			kw.add(w)
		}
	}
	for _, w := range negativeKeywords {
		if len(matchPositions(t, w)) > 0 {
			kw.add(w)
		}
	}
	out.Score = confidenceFrom(pos, neg)
	out.Keywords = kw.list()
	return Normalize(out)
}

// DetectCallIntent labels a call transcript. The first matching table wins.
func DetectCallIntent(text string) string {
	t := normalizeText(text)
	for _, group := range callIntentKeywords {
		for _, w := range group.words {
			if len(matchPositions(t, w)) > 0 {
				return group.label
			}
		}
	}
	return CallIntentGeneralInquiry
}

// IsQualifiedText reports whether text contains a qualifying keyword that is not negated.
func IsQualifiedText(text string) bool {
	t := normalizeText(text)
	for _, w := range qualifyingKeywords {
		for _, idx := range matchPositions(t, w) {
			if !negated(t, idx) {
				return true
			}
		}
	}
	return false
}

// Confidence starts at 0.5, adds 0.1 per positive hit and subtracts 0.15 per negative hit.
// A negated positive ("not interested") counts as a negative hit.
func Confidence(text string) float64 {
	pos, neg := polarity(normalizeText(text))
	return confidenceFrom(pos, neg)
}

func confidenceFrom(pos, neg int) float64 {
	return clamp01(0.5 + 0.1*float64(pos) - 0.15*float64(neg))
}

func polarity(t string) (pos, neg int) {
	for _, w := range positiveKeywords {
		for _, idx := range matchPositions(t, w) {
			if negated(t, idx) {
				neg++
			} else {
				pos++
			}
		}
	}
	for _, w := range negativeKeywords {
		neg += len(matchPositions(t, w))
	}
	return pos, neg
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "’", "'")
}

// matchPositions returns the byte offsets of kw in t.
// kw must start on a word boundary; keywords shorter than four letters must also end on one,
// so "no" does not match "know" while "book" still matches "booking".
func matchPositions(t, kw string) []int {
	var out []int
	strict := len(kw) < 4
	for start := 0; start < len(t); {
		i := strings.Index(t[start:], kw)
		if i < 0 {
			break
		}
		i += start
		end := i + len(kw)
		if boundaryBefore(t, i) && (!strict || boundaryAfter(t, end)) {
			out = append(out, i)
		}
		start = i + 1
	}
	return out
}

func boundaryBefore(t string, i int) bool {
	if i == 0 {
		return true
	}
	return !isWordByte(t[i-1])
}

func boundaryAfter(t string, end int) bool {
	if end >= len(t) {
		return true
	}
	return !isWordByte(t[end])
}

func isWordByte(b byte) bool {
	return b == '\'' || b < 0x80 && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}

// negated reports whether the word right before idx is a negator.
func negated(t string, idx int) bool {
	before := strings.TrimRightFunc(t[:idx], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if before == "" {
		return false
	}
	fields := strings.FieldsFunc(before, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(fields) == 0 {
		return false
	}
	return negators[fields[len(fields)-1]]
}

type keywordSet struct {
	seen  map[string]bool
	order []string
}

func (k *keywordSet) add(w string) {
	if k.seen == nil {
		k.seen = map[string]bool{}
	}
	if k.seen[w] {
		return
	}
	k.seen[w] = true
	k.order = append(k.order, w)
}

func (k *keywordSet) addAny(t string, words []string) bool {
	found := false
	for _, w := range words {
		if len(matchPositions(t, w)) > 0 {
			k.add(w)
			found = true
		}
	}
	return found
}

func (k *keywordSet) list() []string {
	if len(k.order) == 0 {
		return []string{}
	}
	return k.order
}
