package webhook

import (
	"encoding/json"
	"errors"
	"strings"
)

// Normalized event types.
const (
	TypeCallStarted  = "call.started"
	TypeCallEnded    = "call.ended"
	TypeCallFailed   = "call.failed"
	TypeTranscript   = "transcript"
	TypeStatusUpdate = "status-update"
)

var ErrMalformed = errors.New("malformed webhook payload")

// Event is a provider callback reduced to the fields the processor acts on.
type Event struct {
	Type            string
	CallID          string
	UserID          string
	AssistantID     string
	CustomerNumber  string
	Status          string
	Transcript      string
	RecordingURL    string
	EndedReason     string
	Cost            float64
	DurationSeconds float64

	// Role and Text are set for live transcript fragments.
	Role string
	Text string
}

type customerPayload struct {
	Number string `json:"number"`
}

type callPayload struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	AssistantID  string           `json:"assistantId"`
	Cost         float64          `json:"cost"`
	Transcript   string           `json:"transcript"`
	RecordingURL string           `json:"recordingUrl"`
	EndedReason  string           `json:"endedReason"`
	Duration     float64          `json:"duration"`
	Customer     *customerPayload `json:"customer"`
	Metadata     map[string]any   `json:"metadata"`
}

type artifactPayload struct {
	Transcript   string `json:"transcript"`
	RecordingURL string `json:"recordingUrl"`
}

// serverMessage is the provider's native server message, delivered under "message".
type serverMessage struct {
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	Call            *callPayload     `json:"call"`
	Customer        *customerPayload `json:"customer"`
	Transcript      string           `json:"transcript"`
	RecordingURL    string           `json:"recordingUrl"`
	EndedReason     string           `json:"endedReason"`
	Cost            float64          `json:"cost"`
	DurationSeconds float64          `json:"durationSeconds"`
	Artifact        *artifactPayload `json:"artifact"`
	Role            string           `json:"role"`
	TranscriptType  string           `json:"transcriptType"`
}

type envelope struct {
	Type    string          `json:"type"`
	Call    *callPayload    `json:"call"`
	Message json.RawMessage `json:"message"`
}

// Parse decodes either the flat envelope ({type, call, message}) or the provider's
// native {message:{type:...}} form and maps native types onto call.started/ended/failed.
func Parse(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, ErrMalformed
	}

	if env.Type == "" && len(env.Message) > 0 && env.Message[0] == '{' {
		var msg serverMessage
		if err := json.Unmarshal(env.Message, &msg); err != nil {
			return Event{}, ErrMalformed
		}
		return fromServerMessage(msg), nil
	}

	ev := Event{Type: strings.TrimSpace(env.Type)}
	applyCall(&ev, env.Call)
	if ev.Type == TypeTranscript && len(env.Message) > 0 {
		var text string
		if json.Unmarshal(env.Message, &text) == nil {
			ev.Text = text
		}
	}
	return ev, nil
}

func fromServerMessage(m serverMessage) Event {
	ev := Event{Type: m.Type}
	applyCall(&ev, m.Call)
	if m.Customer != nil && ev.CustomerNumber == "" {
		ev.CustomerNumber = m.Customer.Number
	}
	if m.Cost > 0 {
		ev.Cost = m.Cost
	}
	if m.DurationSeconds > 0 {
		ev.DurationSeconds = m.DurationSeconds
	}
	if m.EndedReason != "" {
		ev.EndedReason = m.EndedReason
	}

	switch m.Type {
	case "end-of-call-report":
		ev.Transcript = firstNonEmpty(m.Transcript, artifactTranscript(m.Artifact), ev.Transcript)
		ev.RecordingURL = firstNonEmpty(m.RecordingURL, artifactRecording(m.Artifact), ev.RecordingURL)
		ev.Type = TypeCallEnded
		if IsFailureReason(ev.EndedReason) {
			ev.Type = TypeCallFailed
		}
	case TypeStatusUpdate:
		ev.Status = m.Status
		switch {
		case m.Status == "in-progress":
			ev.Type = TypeCallStarted
		case m.Status == "ended" && IsFailureReason(ev.EndedReason):
			ev.Type = TypeCallFailed
		}
	case TypeTranscript:
		// Partial fragments are dropped by the processor; only final ones are relayed.
		ev.Role = m.Role
		ev.Text = m.Transcript
		ev.Status = m.TranscriptType
	}
	return ev
}

func applyCall(ev *Event, c *callPayload) {
	if c == nil {
		return
	}
	ev.CallID = c.ID
	ev.Status = c.Status
	ev.AssistantID = c.AssistantID
	ev.Cost = c.Cost
	ev.Transcript = c.Transcript
	ev.RecordingURL = c.RecordingURL
	ev.EndedReason = c.EndedReason
	ev.DurationSeconds = c.Duration
	if c.Customer != nil {
		ev.CustomerNumber = c.Customer.Number
	}
	if uid, ok := c.Metadata["userId"].(string); ok {
		ev.UserID = uid
	}
}

var failureMarkers = []string{"error", "failed", "did-not-answer", "busy", "no-answer", "voicemail"}

// IsFailureReason reports whether a provider ended reason means the caller was never served.
func IsFailureReason(reason string) bool {
	r := strings.ToLower(reason)
	if r == "" {
		return false
	}
	for _, m := range failureMarkers {
		if strings.Contains(r, m) {
			return true
		}
	}
	return false
}

func artifactTranscript(a *artifactPayload) string {
	if a == nil {
		return ""
	}
	return a.Transcript
}

func artifactRecording(a *artifactPayload) string {
	if a == nil {
		return ""
	}
	return a.RecordingURL
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
