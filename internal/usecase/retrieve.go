package usecase

import (
	"context"
	"time"

	"lexai/internal/domain"
	"lexai/internal/port"
)

// RetrieveUseCase handles retrieval-only requests.
type RetrieveUseCase struct {
	retriever port.Retriever
	timeout   time.Duration
}

// NewRetrieveUseCase creates a new retrieve use case. A zero timeout leaves
// the caller's deadline in charge.
func NewRetrieveUseCase(retriever port.Retriever, timeout time.Duration) *RetrieveUseCase {
	return &RetrieveUseCase{
		retriever: retriever,
		timeout:   timeout,
	}
}

// Retrieve returns up to k scored passages for the query.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int) ([]PassageResult, error) {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	candidates, err := u.retriever.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}

	results := make([]PassageResult, len(candidates))
	for i, c := range candidates {
		results[i] = NewPassageResult(c)
	}
	return results, nil
}

// PassageResult is a simplified result for CLI and API output.
type PassageResult struct {
	ID                  int      `json:"id"`
	Chapter             string   `json:"chapter"`
	IsFundamentalRights bool     `json:"is_fundamental_rights"`
	Score               float64  `json:"score"`
	Cosine              float64  `json:"cosine"`
	Boost               float64  `json:"boost"`
	DenseDistance       *float64 `json:"dense_distance,omitempty"`
	SparseScore         *float64 `json:"sparse_score,omitempty"`
	Content             string   `json:"content"`
}

func NewPassageResult(c domain.Candidate) PassageResult {
	return PassageResult{
		ID:                  c.Passage.ID,
		Chapter:             c.Passage.Metadata.Chapter,
		IsFundamentalRights: c.Passage.Metadata.IsFundamentalRights,
		Score:               c.FusedScore,
		Cosine:              c.Cosine,
		Boost:               c.Boost,
		DenseDistance:       c.DenseDistance,
		SparseScore:         c.SparseScore,
		Content:             c.Passage.Content,
	}
}
