package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexai/config"
	"lexai/internal/adapter/analyzer"
	"lexai/internal/adapter/embedding"
	"lexai/internal/adapter/history"
	"lexai/internal/adapter/llm"
	"lexai/internal/adapter/retriever"
	"lexai/internal/adapter/store"
	"lexai/internal/usecase"
)

// engine holds everything built from config for one command run.
type engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	cache     *store.BoltEmbeddingCache
	retriever *retriever.HybridRetriever
	result    *usecase.BuildResult
	closers   []func() error
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("close failed", "err", err)
		}
	}
}

// openEngine loads the corpus and builds the retriever, reusing cached
// passage embeddings.
func openEngine(ctx context.Context, progress usecase.ProgressCallback) (*engine, error) {
	cfg := GetConfig()
	dir := GetRootDir()
	e := &engine{cfg: cfg, logger: slog.Default()}

	embedder, err := embedding.FromConfig(cfg.Embedding, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	cachePath := config.ResolvePath(dir, cfg.Embedding.CachePath)
	if err := config.EnsureParentDir(cachePath); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	cache, err := store.NewBoltEmbeddingCache(cachePath)
	if err != nil {
		return nil, err
	}
	e.cache = cache
	e.closers = append(e.closers, cache.Close)

	migration, err := cache.Prepare(cfg)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to check embedding cache: %w", err)
	}
	if migration.Cleared {
		e.logger.Info("embedding cache cleared", "reason", migration.Reason)
	}

	indexUC := usecase.NewIndexUseCase(
		config.ResolvePath(dir, cfg.Corpus.Path),
		embedder,
		usecase.WithEmbeddingCache(cache),
		usecase.WithBM25Params(retriever.BM25Params{
			K1:      cfg.Retrieve.K1,
			B:       cfg.Retrieve.B,
			Epsilon: cfg.Retrieve.Epsilon,
		}),
		usecase.WithBatching(cfg.Embedding.BatchSize, cfg.Embedding.Workers),
		usecase.WithHybridOptions(retriever.WithBoostWeight(cfg.Retrieve.BoostWeight)),
	)

	r, result, err := indexUC.Build(ctx, progress)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	e.retriever = r
	e.result = result
	return e, nil
}

func (e *engine) timeout() time.Duration {
	return time.Duration(e.cfg.Retrieve.Timeout) * time.Second
}

func openHistory(cfg *config.Config) (*history.SQLiteStore, error) {
	path := config.ResolvePath(GetRootDir(), cfg.History.Path)
	if err := config.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return history.Open(path)
}

// queryHandler wires the LLM, session registry and chat history onto the
// engine's retriever.
func (e *engine) queryHandler() (*usecase.QueryHandler, error) {
	model, err := llm.FromConfig(e.cfg.LLM, llm.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}

	hist, err := openHistory(e.cfg)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, hist.Close)

	return usecase.NewQueryHandler(
		e.retriever,
		model,
		usecase.NewSessionRegistry(e.cfg.Session.MaxMessages, e.logger),
		usecase.NewPackUseCase(analyzer.NewTokenizer()),
		usecase.WithHistory(hist),
		usecase.WithTopK(e.cfg.Retrieve.TopK),
		usecase.WithTokenBudget(e.cfg.Pack.TokenBudget),
		usecase.WithTimeout(e.timeout()),
	)
}
