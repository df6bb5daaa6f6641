package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for LEXAI.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Pack      PackConfig      `yaml:"pack"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
	History   HistoryConfig   `yaml:"history"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CorpusConfig points at the pre-chunked corpus.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK        int     `yaml:"top_k"`
	K1          float64 `yaml:"k1"`
	B           float64 `yaml:"b"`
	Epsilon     float64 `yaml:"epsilon"`
	BoostWeight float64 `yaml:"boost_weight"`
	Timeout     int     `yaml:"timeout"` // seconds, 0 disables
}

// PackConfig holds context packing configuration.
type PackConfig struct {
	TokenBudget int `yaml:"token_budget"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`    // "openai", "openrouter", "ollama", "hash"
	Model             string  `yaml:"model"`       // e.g., "all-minilm"
	BaseURL           string  `yaml:"base_url"`    // empty uses the provider default
	APIKeyEnv         string  `yaml:"api_key_env"` // Environment variable for API key
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	Workers           int     `yaml:"workers"`
	CacheSize         int     `yaml:"cache_size"`
	CachePath         string  `yaml:"cache_path"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables throttling
}

// LLMConfig holds answer-generation configuration.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"` // glob patterns
}

// HistoryConfig holds chat history persistence configuration.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig bounds per-session conversation memory.
type SessionConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path: "constitution_chunks.json",
		},
		Retrieve: RetrieveConfig{
			TopK:        5,
			K1:          1.5,
			B:           0.75,
			Epsilon:     0.25,
			BoostWeight: 0.5,
			Timeout:     30,
		},
		Pack: PackConfig{
			TokenBudget: 2000,
		},
		Embedding: EmbeddingConfig{
			Provider:          "ollama",
			Model:             "all-minilm",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         384,
			BatchSize:         64,
			Workers:           4,
			CacheSize:         1000,
			CachePath:         filepath.Join(".lexai", "embeddings.db"),
			MaxRetries:        3,
			RequestsPerSecond: 0,
		},
		LLM: LLMConfig{
			Provider:  "openrouter",
			Model:     "deepseek/deepseek-chat-v3-0324:free",
			BaseURL:   "https://openrouter.ai/api/v1",
			APIKeyEnv: "OPENROUTER_API_KEY",
		},
		Server: ServerConfig{
			Addr:           "0.0.0.0:8000",
			AllowedOrigins: []string{"*"},
		},
		History: HistoryConfig{
			Path: "lexai_chat_history.db",
		},
		Session: SessionConfig{
			MaxMessages: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for lexai.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "lexai.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".lexai", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Retrieve.TopK <= 0:
		return fmt.Errorf("retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	case c.Retrieve.K1 < 0:
		return fmt.Errorf("retrieve.k1 must not be negative, got %v", c.Retrieve.K1)
	case c.Retrieve.B < 0 || c.Retrieve.B > 1:
		return fmt.Errorf("retrieve.b must be within [0, 1], got %v", c.Retrieve.B)
	case c.Embedding.Dimension <= 0:
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	case c.Embedding.BatchSize <= 0:
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "openai", "openrouter", "ollama", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}

// ResolvePath makes a configured relative path relative to dir.
func ResolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
