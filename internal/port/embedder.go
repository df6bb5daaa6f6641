package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order. Implementations
	// must fail rather than return an empty or zero vector.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingCache persists passage embeddings between runs.
type EmbeddingCache interface {
	// Lookup returns vectors aligned with texts; misses are nil.
	Lookup(model string, texts []string) ([][]float32, error)

	Store(model string, texts []string, vectors [][]float32) error
}
