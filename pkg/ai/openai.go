package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema_chat",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of completion requests",
	}, []string{"model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema_chat",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of completion request failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI completer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAICompleter implements Completer against the OpenAI chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger zerolog.Logger
}

// NewOpenAICompleter builds a completer using the provided configuration.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}

	return &OpenAICompleter{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "openai_completer").Logger(),
	}, nil
}

// Complete forwards the prompt and returns the first choice's text.
func (c *OpenAICompleter) Complete(ctx context.Context, input CompletionInput) (CompletionResult, error) {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return CompletionResult{}, fmt.Errorf("prompt is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(input.System); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	response, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	completionDuration.WithLabelValues(c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(c.cfg.Model).Inc()
		c.logger.Error().Err(err).Msg("completion request failed")
		return CompletionResult{}, fmt.Errorf("completion request: %w", err)
	}

	if len(response.Choices) == 0 {
		completionFailures.WithLabelValues(c.cfg.Model).Inc()
		return CompletionResult{}, fmt.Errorf("completion returned no choices")
	}

	return CompletionResult{
		Text:  strings.TrimSpace(response.Choices[0].Message.Content),
		Model: response.Model,
	}, nil
}
