package port

import "lexai/internal/domain"

// Packer defines the interface for packing passages into prompt context.
type Packer interface {
	// Pack packs the ranked candidates into a context that fits the token budget.
	Pack(query string, candidates []domain.Candidate, budget int) domain.PackedContext
}
