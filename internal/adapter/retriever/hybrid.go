package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"lexai/internal/adapter/analyzer"
	"lexai/internal/adapter/memstore"
	"lexai/internal/adapter/store"
	"lexai/internal/domain"
	"lexai/internal/port"
)

var (
	// ErrNotSupported is returned by every mutation: the corpus is loaded once
	// and never changes.
	ErrNotSupported = errors.New("operation not supported: corpus is immutable")

	ErrNilEmbedder     = errors.New("embedder is required")
	ErrEmptyEmbedding  = errors.New("embedder returned no vector for query")
	ErrIndexSizeDiffer = errors.New("index size does not match passage count")
)

// overFetch is how many candidates each index contributes per requested result.
const overFetch = 2

// HybridRetriever fuses exact dense search with BM25 sparse search and
// reranks the union by cosine similarity plus a domain boost. It holds no
// per-call state and is safe for concurrent use.
type HybridRetriever struct {
	passages    *memstore.PassageStore
	dense       *store.DenseIndex
	sparse      *SparseIndex
	embedder    port.Embedder
	tokenizer   port.Tokenizer
	boostWeight float64
	logger      *slog.Logger
}

// HybridOption configures a HybridRetriever.
type HybridOption func(*HybridRetriever)

// WithBoostWeight overrides DefaultBoostWeight.
func WithBoostWeight(w float64) HybridOption {
	return func(r *HybridRetriever) {
		r.boostWeight = w
	}
}

// WithTokenizer sets the query tokenizer. It must match the one the sparse
// index was built with.
func WithTokenizer(t port.Tokenizer) HybridOption {
	return func(r *HybridRetriever) {
		if t != nil {
			r.tokenizer = t
		}
	}
}

func WithLogger(logger *slog.Logger) HybridOption {
	return func(r *HybridRetriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewHybridRetriever creates a new hybrid retriever. Both indexes must cover
// exactly the passages in the store.
func NewHybridRetriever(
	passages *memstore.PassageStore,
	dense *store.DenseIndex,
	sparse *SparseIndex,
	embedder port.Embedder,
	opts ...HybridOption,
) (*HybridRetriever, error) {
	if embedder == nil {
		return nil, ErrNilEmbedder
	}
	if dense.Size() != passages.Size() {
		return nil, fmt.Errorf("%w: dense %d, passages %d", store.ErrVectorCountMismatch, dense.Size(), passages.Size())
	}
	if sparse.Size() != passages.Size() {
		return nil, fmt.Errorf("%w: sparse %d, passages %d", ErrIndexSizeDiffer, sparse.Size(), passages.Size())
	}

	r := &HybridRetriever{
		passages:    passages,
		dense:       dense,
		sparse:      sparse,
		embedder:    embedder,
		tokenizer:   analyzer.NewTokenizer(),
		boostWeight: DefaultBoostWeight,
		logger:      slog.Default().With("component", "hybrid-retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve returns at most k passages, best first.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	candidates, err := r.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Passage, len(candidates))
	for i, c := range candidates {
		out[i] = c.Passage
	}
	return out, nil
}

// RetrieveScored is Retrieve with each candidate's scores kept.
// An empty corpus or k <= 0 returns an empty result without embedding.
// Embedding errors are returned unchanged.
func (r *HybridRetriever) RetrieveScored(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	if r.passages.Size() == 0 || k <= 0 {
		return []domain.Candidate{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetch := k * overFetch

	var (
		queryVec   []float32
		denseHits  []store.DenseHit
		sparseHits []SparseHit
	)

	// Run dense and sparse searches in parallel
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vecs, err := r.embedder.Embed(gctx, []string{query})
		if err != nil {
			return err
		}
		if len(vecs) == 0 || len(vecs[0]) == 0 {
			return ErrEmptyEmbedding
		}
		queryVec = vecs[0]

		hits, err := r.dense.Search(queryVec, fetch)
		if err != nil {
			return err
		}
		denseHits = hits
		return nil
	})

	g.Go(func() error {
		sparseHits = r.sparse.Search(r.tokenizer.Tokenize(query), fetch)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := r.fuse(query, queryVec, denseHits, sparseHits)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	r.logger.Debug("hybrid retrieval",
		"k", k,
		"dense", len(denseHits),
		"sparse", len(sparseHits),
		"returned", len(candidates))

	return candidates, nil
}

// fuse unions both hit lists by passage id and scores each candidate as
// cosine(query, stored vector) + domain boost.
func (r *HybridRetriever) fuse(query string, queryVec []float32, denseHits []store.DenseHit, sparseHits []SparseHit) []domain.Candidate {
	byID := make(map[int]*domain.Candidate, len(denseHits)+len(sparseHits))
	get := func(id int) *domain.Candidate {
		c, ok := byID[id]
		if !ok {
			c = &domain.Candidate{}
			byID[id] = c
		}
		return c
	}

	for _, h := range denseHits {
		d := h.Distance
		get(h.ID).DenseDistance = &d
	}
	for _, h := range sparseHits {
		s := h.Score
		get(h.ID).SparseScore = &s
	}

	rightsQuery := IsRightsQuery(query)
	fused := make([]domain.Candidate, 0, len(byID))
	for id, c := range byID {
		passage, err := r.passages.Get(id)
		if err != nil {
			continue
		}
		c.Passage = passage
		c.Cosine = store.CosineSimilarity(queryVec, r.dense.Vector(id))
		c.Boost = DomainBoost(rightsQuery, passage.Metadata, r.boostWeight)
		c.FusedScore = c.Cosine + c.Boost
		fused = append(fused, *c)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].Passage.ID < fused[j].Passage.ID
	})

	return fused
}

// Size returns the number of indexed passages.
func (r *HybridRetriever) Size() int {
	return r.passages.Size()
}

// Passages exposes the underlying store.
func (r *HybridRetriever) Passages() *memstore.PassageStore {
	return r.passages
}

func (r *HybridRetriever) AddDocument(ctx context.Context, p domain.Passage) error {
	return ErrNotSupported
}

func (r *HybridRetriever) UpdateDocument(ctx context.Context, id int, p domain.Passage) error {
	return ErrNotSupported
}

func (r *HybridRetriever) DeleteDocument(ctx context.Context, id int) error {
	return ErrNotSupported
}
