package port

import (
	"context"

	"lexai/internal/domain"
)

// Retriever selects the passages most relevant to a query.
type Retriever interface {
	// Retrieve returns at most k passages, best first.
	Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error)

	// RetrieveScored is Retrieve with the per-candidate scores kept.
	RetrieveScored(ctx context.Context, query string, k int) ([]domain.Candidate, error)
}
