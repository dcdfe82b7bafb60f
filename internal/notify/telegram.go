package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"voice-gateway/internal/calls"
	"voice-gateway/internal/leads"
)

// Notifier sends operator-facing messages about leads and calls.
type Notifier interface {
	NotifyLead(ctx context.Context, l leads.Lead) error
	NotifyCallFailed(ctx context.Context, c calls.CallRecord, reason string) error
	NotifyDemoCall(ctx context.Context, phone, callID string) error
}

// New returns a Telegram notifier, or Noop when no bot token is configured.
func New(baseURL, token, chatID string, timeout time.Duration) Notifier {
	if token == "" {
		return Noop{}
	}
	return NewTelegram(baseURL, token, chatID, timeout)
}

type Telegram struct {
	baseURL string
	token   string
	chatID  string
	http    *http.Client
}

func NewTelegram(baseURL, token, chatID string, timeout time.Duration) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Telegram{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: timeout},
	}
}

func (t *Telegram) NotifyLead(ctx context.Context, l leads.Lead) error {
	var b strings.Builder
	b.WriteString("*New lead*")
	if l.IsQualified {
		b.WriteString(" (qualified)")
	}
	b.WriteString("\n")
	line(&b, "Name", l.Name)
	line(&b, "Email", l.Email)
	line(&b, "Phone", l.Phone)
	line(&b, "Intent", l.Intent)
	line(&b, "Source", string(l.Source))
	line(&b, "Score", fmt.Sprintf("%.2f", l.QualificationScore))
	line(&b, "Call", l.CallID)
	return t.Send(ctx, b.String())
}

func (t *Telegram) NotifyCallFailed(ctx context.Context, c calls.CallRecord, reason string) error {
	var b strings.Builder
	b.WriteString("*Call failed*\n")
	line(&b, "Call", c.ProviderCallID)
	line(&b, "Phone", c.CallerPhone)
	line(&b, "Reason", reason)
	return t.Send(ctx, b.String())
}

func (t *Telegram) NotifyDemoCall(ctx context.Context, phone, callID string) error {
	var b strings.Builder
	b.WriteString("*Demo call requested*\n")
	line(&b, "Phone", phone)
	line(&b, "Call", callID)
	return t.Send(ctx, b.String())
}

type sendMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text (Markdown) to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessage{ChatID: t.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return errors.Wrap(err, "telegram: encode")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/bot"+t.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "telegram: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// the URL embeds the bot token
		return errors.New("telegram: send failed: " + redact(err.Error(), t.token))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var res sendResult
	_ = json.Unmarshal(raw, &res)
	if resp.StatusCode != http.StatusOK || !res.OK {
		return errors.Errorf("telegram: status %d: %s", resp.StatusCode, res.Description)
	}
	return nil
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, escapeMarkdown(value))
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}

// Noop drops every notification.
type Noop struct{}

func (Noop) NotifyLead(context.Context, leads.Lead) error                     { return nil }
func (Noop) NotifyCallFailed(context.Context, calls.CallRecord, string) error { return nil }
func (Noop) NotifyDemoCall(context.Context, string, string) error             { return nil }
