package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

const defaultBatchSize = 64

// ErrEmptyResponse is returned when the provider answers without vectors.
var ErrEmptyResponse = errors.New("embedding provider returned no vectors")

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint (OpenAI,
// OpenRouter, Ollama) through langchaingo. Requests are batched, throttled
// and retried with exponential backoff.
type OpenAIEmbedder struct {
	client    embeddings.Embedder
	model     string
	dimension int
	batchSize int
	retry     RetryConfig
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// OpenAIConfig describes the endpoint to call.
type OpenAIConfig struct {
	BaseURL   string
	Token     string
	Model     string
	Dimension int
}

// Option configures an OpenAIEmbedder.
type Option func(*OpenAIEmbedder)

// WithBatchSize sets how many texts go into one request.
func WithBatchSize(n int) Option {
	return func(e *OpenAIEmbedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRetry overrides DefaultRetryConfig.
func WithRetry(cfg RetryConfig) Option {
	return func(e *OpenAIEmbedder) {
		e.retry = cfg
	}
}

// WithRateLimit caps requests per second. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(e *OpenAIEmbedder) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *OpenAIEmbedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// withClient replaces the langchaingo embedder.
func withClient(c embeddings.Embedder) Option {
	return func(e *OpenAIEmbedder) {
		e.client = c
	}
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig, opts ...Option) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model is required")
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = knownDimension(cfg.Model)
	}

	e := &OpenAIEmbedder{
		model:     cfg.Model,
		dimension: dimension,
		batchSize: defaultBatchSize,
		retry:     DefaultRetryConfig(),
		logger:    slog.Default().With("component", "openai-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.client == nil {
		token := cfg.Token
		if token == "" {
			// Local OpenAI-compatible services ignore the token
			token = "none"
		}
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(token),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		client, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		e.client = client
	}

	return e, nil
}

// Embed generates embeddings for texts, batch by batch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(batch))

	var vecs [][]float32
	err := withRetry(ctx, e.retry, func() error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		vecs, err = e.client.EmbedDocuments(ctx, batch)
		if err != nil {
			e.logger.Warn("embedding request failed", "count", len(batch), "err", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed %d texts with %s: %w", len(batch), e.model, err)
	}

	if len(vecs) == 0 {
		return nil, ErrEmptyResponse
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vecs), len(batch))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: text %d", ErrEmptyResponse, i)
		}
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(v))
		}
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

func knownDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "mxbai-embed-large":
		return 1024
	case "nomic-embed-text":
		return 768
	case "all-minilm", "all-MiniLM-L6-v2", "sentence-transformers/all-MiniLM-L6-v2":
		return 384
	}
	return 0
}
