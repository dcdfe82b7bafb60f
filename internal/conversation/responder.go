package conversation

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"voice-gateway/internal/sentiment"
	"voice-gateway/pkg/logger"
)

const systemPrompt = `You are the website assistant for a voice AI receptionist service.
Answer briefly (at most three sentences), be friendly, and steer interested visitors toward
booking a demo call or leaving their name and email so the team can follow up.`

// maxHistory bounds how many earlier messages are sent to the model.
const maxHistory = 12

// Responder produces the assistant's reply to the newest user message.
type Responder interface {
	Reply(ctx context.Context, history []Message, text string, a sentiment.Analysis) string
}

// TemplateResponder answers from fixed per-intent templates.
type TemplateResponder struct{}

var templates = map[sentiment.Intent]string{
	sentiment.IntentPurchase:    "Great, let's get you set up. Leave your name and email and we'll send you a secure payment link right away.",
	sentiment.IntentDemo:        "I'd love to show you how it works. Enter your phone number and our AI receptionist will call you in under a minute.",
	sentiment.IntentPricing:     "Plans are billed per minute of call time with no setup fee. Share your email and we'll send a quote that fits your call volume.",
	sentiment.IntentSupport:     "Sorry you're running into trouble. Tell me a little more, or leave your email and a team member will reach out today.",
	sentiment.IntentInformation: "Our AI receptionist answers every call, books appointments and sends you the lead details instantly. What would you like to know?",
}

const genericReply = "Thanks for reaching out! How can I help you today?"

func (TemplateResponder) Reply(_ context.Context, _ []Message, _ string, a sentiment.Analysis) string {
	if r, ok := templates[a.Intent]; ok {
		return r
	}
	return genericReply
}

// ModelResponder asks a chat model and falls back to templates on any failure.
type ModelResponder struct {
	client   sentiment.ChatCompleter
	model    string
	timeout  time.Duration
	fallback Responder
	breaker  *sentiment.CircuitBreaker
}

func NewModelResponder(client sentiment.ChatCompleter, model string, timeout time.Duration) *ModelResponder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ModelResponder{
		client:   client,
		model:    model,
		timeout:  timeout,
		fallback: TemplateResponder{},
		breaker:  sentiment.NewCircuitBreaker(5, 30*time.Second),
	}
}

func (m *ModelResponder) Reply(ctx context.Context, history []Message, text string, a sentiment.Analysis) string {
	var out string
	err := m.breaker.Call(func() error {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		resp, err := m.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
			Model:       m.model,
			Messages:    buildPrompt(history, text),
			Temperature: 0.4,
			MaxTokens:   200,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return errEmptyReply
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		logger.From(ctx).Warn("chat model reply failed, using template", "err", err)
		return m.fallback.Reply(ctx, history, text, a)
	}
	return out
}

func buildPrompt(history []Message, text string) []openai.ChatCompletionMessage {
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
}

// NewResponder returns a model-backed responder when a client is available.
func NewResponder(client sentiment.ChatCompleter, model string, timeout time.Duration) Responder {
	if client == nil {
		return TemplateResponder{}
	}
	return NewModelResponder(client, model, timeout)
}
