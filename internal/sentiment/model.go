package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voice-gateway/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const classifyPrompt = `You classify a single message sent by a prospective customer of a voice AI receptionist product.
Reply with ONLY a JSON object of the form:
{"score": <number 0..1, how positive and interested the sender is>,
 "intent": one of "information","demo","pricing","support","purchase","general",
 "urgency": one of "low","medium","high",
 "keywords": [<up to 5 short phrases from the message that drove the decision>]}`

var tracer = otel.Tracer("voice-gateway/internal/sentiment")

var errEmptyCompletion = errors.New("empty completion")

// ChatCompleter is the subset of the OpenAI client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelClassifier asks a chat-completion model and falls back to another classifier
// on timeout, transport error, unparseable output, or while the breaker is open.
type ModelClassifier struct {
	client   ChatCompleter
	model    string
	timeout  time.Duration
	fallback Classifier
	breaker  *CircuitBreaker
}

func NewModelClassifier(client ChatCompleter, model string, timeout time.Duration, fallback Classifier) *ModelClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if fallback == nil {
		fallback = KeywordClassifier{}
	}
	return &ModelClassifier{
		client:   client,
		model:    model,
		timeout:  timeout,
		fallback: fallback,
		breaker:  NewCircuitBreaker(5, 30*time.Second),
	}
}

func (m *ModelClassifier) Classify(ctx context.Context, text string) Analysis {
	if strings.TrimSpace(text) == "" {
		return Default()
	}

	ctx, span := tracer.Start(ctx, "sentiment.classify", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("sentiment.model", m.model), attribute.Int("sentiment.text_len", len(text)))

	var out Analysis
	err := m.breaker.Call(func() error {
		a, err := m.complete(ctx, text)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("sentiment.fallback", true))
		classifyTotal.WithLabelValues("fallback").Inc()
		logger.From(ctx).Warn("model classification failed, using keywords", slog.String("err", err.Error()))
		return m.fallback.Classify(ctx, text)
	}
	classifyTotal.WithLabelValues("model").Inc()
	return out
}

func (m *ModelClassifier) complete(ctx context.Context, text string) (Analysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifyPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   200,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	classifyLatency.WithLabelValues(m.model, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return Analysis{}, err
	}
	if len(resp.Choices) == 0 {
		return Analysis{}, errEmptyCompletion
	}
	return ParseModelReply(resp.Choices[0].Message.Content)
}

// ParseModelReply extracts and decodes the first JSON object in a model reply.
func ParseModelReply(content string) (Analysis, error) {
	raw, ok := ExtractJSONObject(content)
	if !ok {
		return Analysis{}, errors.New("no json object in reply")
	}
	var reply struct {
		Score    *float64 `json:"score"`
		Intent   string   `json:"intent"`
		Urgency  string   `json:"urgency"`
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return Analysis{}, err
	}
	a := Default()
	if reply.Score != nil {
		a.Score = *reply.Score
	}
	a.Intent = Intent(strings.ToLower(strings.TrimSpace(reply.Intent)))
	a.Urgency = Urgency(strings.ToLower(strings.TrimSpace(reply.Urgency)))
	a.Keywords = reply.Keywords
	return Normalize(a), nil
}

// New picks the classifier for the configured mode. A nil client always yields keywords.
func New(mode string, client ChatCompleter, model string, timeout time.Duration) Classifier {
	if mode == "model" && client != nil {
		return NewModelClassifier(client, model, timeout, KeywordClassifier{})
	}
	return KeywordClassifier{}
}
