package embedding

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lexai/config"
	"lexai/internal/port"
)

var defaultBaseURLs = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"ollama":     "http://localhost:11434/v1",
}

// FromConfig builds the configured provider wrapped in a query LRU.
func FromConfig(cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, error) {
	provider := strings.ToLower(cfg.Provider)

	var inner port.Embedder
	switch provider {
	case "hash":
		inner = NewHashEmbedder(cfg.Dimension)

	case "openai", "openrouter", "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURLs[provider]
		}

		var token string
		if provider != "ollama" {
			token = os.Getenv(cfg.APIKeyEnv)
			if token == "" {
				return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
			}
		}

		retry := DefaultRetryConfig()
		retry.MaxRetries = cfg.MaxRetries

		e, err := NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:   baseURL,
			Token:     token,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		},
			WithBatchSize(cfg.BatchSize),
			WithRetry(retry),
			WithRateLimit(cfg.RequestsPerSecond),
			WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		inner = e

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
