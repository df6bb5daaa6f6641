// Package llm adapts chat-completion providers to port.LLM.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"lexai/config"
)

// ErrNoChoices is returned when the provider answers with no completion.
var ErrNoChoices = errors.New("llm returned no choices")

// ChatModel generates answers through an OpenAI-compatible chat endpoint
// such as OpenRouter.
type ChatModel struct {
	model       llms.Model
	name        string
	temperature float64
	logger      *slog.Logger
}

// Option configures a ChatModel.
type Option func(*ChatModel)

func WithTemperature(t float64) Option {
	return func(m *ChatModel) {
		m.temperature = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *ChatModel) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewChatModel wraps any langchaingo model.
func NewChatModel(model llms.Model, name string, opts ...Option) *ChatModel {
	m := &ChatModel{
		model:       model,
		name:        name,
		temperature: 0.2,
		logger:      slog.Default().With("component", "llm"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FromConfig connects to the configured endpoint. The API key is read from
// the environment variable named in the config.
func FromConfig(cfg config.LLMConfig, opts ...Option) (*ChatModel, error) {
	token := os.Getenv(cfg.APIKeyEnv)
	if token == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return NewChatModel(client, cfg.Model, opts...), nil
}

// GenerateWithSystem sends one system and one user message and returns the
// first choice.
func (m *ChatModel) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	resp, err := m.model.GenerateContent(ctx, content, llms.WithTemperature(m.temperature))
	if err != nil {
		m.logger.Error("failed to generate content", "model", m.name, "err", err)
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (m *ChatModel) ModelName() string {
	return m.name
}
