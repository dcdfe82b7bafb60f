package leads

import (
	"regexp"
	"strings"

	"voice-gateway/internal/sentiment"
)

// Extraction is what the heuristics recover from a finished call transcript.
type Extraction struct {
	Name       string
	Email      string
	Intent     string
	Qualified  bool
	Confidence float64
}

// Extract runs the deterministic lead heuristics over a call transcript.
func Extract(transcript string) Extraction {
	return Extraction{
		Name:       ExtractName(transcript),
		Email:      ExtractEmail(transcript),
		Intent:     sentiment.DetectCallIntent(transcript),
		Qualified:  sentiment.IsQualifiedText(transcript),
		Confidence: sentiment.Confidence(transcript),
	}
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ExtractEmail returns the first address-shaped token in text, or "".
func ExtractEmail(text string) string {
	return emailPattern.FindString(text)
}

// Tried in order; the first acceptable capture wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([a-z][a-z'-]*(?:\s+[a-z][a-z'-]*)?)`),
	regexp.MustCompile(`(?i)\bI'?m\s+([a-z][a-z'-]*(?:\s+[a-z][a-z'-]*)?)`),
	regexp.MustCompile(`(?i)\bthis is\s+([a-z][a-z'-]*(?:\s+[a-z][a-z'-]*)?)`),
}

// Words that follow "I'm" or "this is" without being a name.
var notNames = map[string]bool{
	"a": true, "an": true, "the": true, "not": true, "just": true, "so": true, "very": true,
	"interested": true, "looking": true, "calling": true, "trying": true, "going": true,
	"here": true, "good": true, "fine": true, "great": true, "okay": true, "ok": true,
	"sorry": true, "sure": true, "afraid": true, "busy": true, "wondering": true, "still": true,
	"really": true, "also": true, "actually": true, "about": true, "in": true, "on": true,
	"at": true, "with": true, "from": true, "and": true, "but": true, "speaking": true,
	"it": true, "that": true, "is": true, "for": true, "ready": true, "happy": true,
}

var speakerLine = regexp.MustCompile(`(?im)^\s*(user|customer|caller)\s*:\s*(.*)$`)

// ExtractName finds a self-introduction. When the transcript carries speaker labels only
// the caller's lines are searched, so the assistant's own greeting is never captured.
func ExtractName(transcript string) string {
	text := transcript
	if lines := speakerLine.FindAllStringSubmatch(transcript, -1); len(lines) > 0 {
		parts := make([]string, 0, len(lines))
		for _, l := range lines {
			parts = append(parts, l[2])
		}
		text = strings.Join(parts, "\n")
	}

	for _, re := range namePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if name := cleanName(m[1]); name != "" {
				return name
			}
		}
	}
	return ""
}

func cleanName(capture string) string {
	words := strings.Fields(capture)
	if len(words) == 0 || notNames[strings.ToLower(words[0])] {
		return ""
	}
	if len(words) == 2 {
		second := words[1]
		// "this is Sarah speaking", "I'm Tom and ..." keep only the first word.
		if notNames[strings.ToLower(second)] || (isCapitalized(words[0]) && !isCapitalized(second)) {
			words = words[:1]
		}
	}
	return strings.Join(words, " ")
}

func isCapitalized(w string) bool {
	return w != "" && w[0] >= 'A' && w[0] <= 'Z'
}
