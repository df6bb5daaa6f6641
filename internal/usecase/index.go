package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"lexai/internal/adapter/analyzer"
	"lexai/internal/adapter/corpus"
	"lexai/internal/adapter/memstore"
	"lexai/internal/adapter/retriever"
	"lexai/internal/adapter/store"
	"lexai/internal/port"
)

// ProgressCallback reports how many passages have embeddings so far.
type ProgressCallback func(processed, total int)

// IndexUseCase loads the corpus and builds the hybrid retriever over it.
type IndexUseCase struct {
	corpusPath string
	loader     *corpus.Loader
	embedder   port.Embedder
	cache      port.EmbeddingCache
	tokenizer  *analyzer.Tokenizer
	params     retriever.BM25Params
	batchSize  int
	workers    int
	hybridOpts []retriever.HybridOption
	logger     *slog.Logger
}

// IndexOption configures an IndexUseCase.
type IndexOption func(*IndexUseCase)

// WithEmbeddingCache persists passage embeddings between runs.
func WithEmbeddingCache(c port.EmbeddingCache) IndexOption {
	return func(u *IndexUseCase) {
		u.cache = c
	}
}

func WithBM25Params(p retriever.BM25Params) IndexOption {
	return func(u *IndexUseCase) {
		u.params = p
	}
}

// WithBatching sets the embedding batch size and the number of concurrent
// embedding workers.
func WithBatching(batchSize, workers int) IndexOption {
	return func(u *IndexUseCase) {
		if batchSize > 0 {
			u.batchSize = batchSize
		}
		if workers > 0 {
			u.workers = workers
		}
	}
}

// WithHybridOptions forwards options to the retriever.
func WithHybridOptions(opts ...retriever.HybridOption) IndexOption {
	return func(u *IndexUseCase) {
		u.hybridOpts = append(u.hybridOpts, opts...)
	}
}

func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(u *IndexUseCase) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(corpusPath string, embedder port.Embedder, opts ...IndexOption) *IndexUseCase {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	u := &IndexUseCase{
		corpusPath: corpusPath,
		embedder:   embedder,
		tokenizer:  analyzer.NewTokenizer(),
		params:     retriever.DefaultBM25Params(),
		batchSize:  64,
		workers:    workers,
		logger:     slog.Default().With("component", "index"),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.loader = corpus.NewLoader(corpus.WithLogger(u.logger))
	return u
}

// BuildResult contains the results of a build.
type BuildResult struct {
	Records  int
	Passages int
	Skipped  int
	Cached   int
	Embedded int
	Duration time.Duration
	// LoadErr is set when the corpus could not be used; the retriever is
	// still returned and answers every query with no passages.
	LoadErr error
}

// Build loads the corpus, embeds every passage, and builds both indexes.
func (u *IndexUseCase) Build(ctx context.Context, progress ProgressCallback) (*retriever.HybridRetriever, *BuildResult, error) {
	start := time.Now()
	result := &BuildResult{}

	passages, report, err := u.loader.LoadFile(u.corpusPath)
	if err != nil {
		var loadErr *corpus.LoadError
		if !errors.As(err, &loadErr) {
			return nil, nil, err
		}
		u.logger.Warn("corpus unusable, continuing with an empty corpus", "err", err)
		result.LoadErr = err
	}
	result.Records = report.Records
	result.Skipped = report.Skipped
	result.Passages = passages.Size()

	vectors, cached, err := u.embedPassages(ctx, passages, progress)
	if err != nil {
		return nil, nil, err
	}
	result.Cached = cached
	result.Embedded = passages.Size() - cached

	dense, err := store.NewDenseIndex(vectors, passages.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("build dense index: %w", err)
	}
	sparse := retriever.NewSparseIndex(u.tokenizer.TokenizeAll(passages.Contents()), u.params)

	opts := append([]retriever.HybridOption{
		retriever.WithTokenizer(u.tokenizer),
		retriever.WithLogger(u.logger),
	}, u.hybridOpts...)
	r, err := retriever.NewHybridRetriever(passages, dense, sparse, u.embedder, opts...)
	if err != nil {
		return nil, nil, err
	}

	result.Duration = time.Since(start)
	u.logger.Info("index built",
		"passages", result.Passages,
		"skipped", result.Skipped,
		"cached", result.Cached,
		"embedded", result.Embedded,
		"duration", result.Duration)

	return r, result, nil
}

// embedPassages returns one vector per passage, reading the cache first and
// embedding the misses in batches on a worker pool.
func (u *IndexUseCase) embedPassages(ctx context.Context, passages *memstore.PassageStore, progress ProgressCallback) ([][]float32, int, error) {
	texts := passages.Contents()
	total := len(texts)
	vectors := make([][]float32, total)
	if total == 0 {
		return vectors, 0, nil
	}

	model := u.embedder.ModelName()
	if u.cache != nil {
		hits, err := u.cache.Lookup(model, texts)
		if err != nil {
			u.logger.Warn("embedding cache lookup failed", "err", err)
		} else {
			copy(vectors, hits)
		}
	}

	var missing []int
	for i, v := range vectors {
		if v == nil {
			missing = append(missing, i)
		}
	}
	cached := total - len(missing)

	var done atomic.Int64
	done.Store(int64(cached))
	report := func() {
		if progress != nil {
			progress(int(done.Load()), total)
		}
	}
	report()

	if len(missing) == 0 {
		return vectors, cached, nil
	}

	pool, err := ants.NewPool(u.workers)
	if err != nil {
		return nil, 0, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		progMu   sync.Mutex
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(missing); start += u.batchSize {
		end := start + u.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			batchTexts := make([]string, len(batch))
			for j, idx := range batch {
				batchTexts[j] = texts[idx]
			}

			vecs, err := u.embedder.Embed(ctx, batchTexts)
			if err != nil {
				fail(fmt.Errorf("embed passages %d-%d: %w", batch[0], batch[len(batch)-1], err))
				return
			}
			if len(vecs) != len(batch) {
				fail(fmt.Errorf("embedder returned %d vectors for %d passages", len(vecs), len(batch)))
				return
			}
			for j, idx := range batch {
				vectors[idx] = vecs[j]
			}

			if u.cache != nil {
				if err := u.cache.Store(model, batchTexts, vecs); err != nil {
					u.logger.Warn("embedding cache write failed", "err", err)
				}
			}

			done.Add(int64(len(batch)))
			progMu.Lock()
			report()
			progMu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding batch: %w", submitErr))
			break
		}
	}

	wg.Wait()
	if firstErr != nil {
		return nil, 0, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return vectors, cached, nil
}
