package store

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrVectorCountMismatch is returned when the number of vectors differs from
// the number of passages they are meant to index.
var ErrVectorCountMismatch = errors.New("vector count does not match passage count")

// DimensionMismatchError reports a vector whose length differs from the
// index dimension. Index is the offending vector's position, or -1 for a query.
type DimensionMismatchError struct {
	Expected int
	Got      int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("query dimension mismatch: expected %d, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("vector %d dimension mismatch: expected %d, got %d", e.Index, e.Expected, e.Got)
}

// DenseHit is one nearest-neighbour result.
type DenseHit struct {
	ID       int
	Distance float64
}

// DenseIndex is an exact flat L2 index over passage embeddings. Vector i
// belongs to passage i. It is read-only after construction.
type DenseIndex struct {
	vectors   [][]float32
	dimension int
}

// NewDenseIndex builds an index over vectors, which must number exactly size
// and share one dimension.
func NewDenseIndex(vectors [][]float32, size int) (*DenseIndex, error) {
	if len(vectors) != size {
		return nil, fmt.Errorf("%w: %d vectors for %d passages", ErrVectorCountMismatch, len(vectors), size)
	}
	if size == 0 {
		return &DenseIndex{}, nil
	}

	dimension := len(vectors[0])
	if dimension == 0 {
		return nil, errors.New("vector 0 is empty")
	}
	stored := make([][]float32, size)
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, &DimensionMismatchError{Expected: dimension, Got: len(v), Index: i}
		}
		stored[i] = append([]float32(nil), v...)
	}

	return &DenseIndex{vectors: stored, dimension: dimension}, nil
}

// Search returns the k passages nearest to query by Euclidean distance,
// nearest first, ties broken by smaller id. k is clamped to [0, Size()].
func (ix *DenseIndex) Search(query []float32, k int) ([]DenseHit, error) {
	if k <= 0 || len(ix.vectors) == 0 {
		return []DenseHit{}, nil
	}
	if len(query) != ix.dimension {
		return nil, &DimensionMismatchError{Expected: ix.dimension, Got: len(query), Index: -1}
	}

	// Brute force over every vector
	hits := make([]DenseHit, len(ix.vectors))
	for id, v := range ix.vectors {
		hits[id] = DenseHit{ID: id, Distance: L2Distance(query, v)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Vector returns the stored embedding for a passage, or nil if out of range.
func (ix *DenseIndex) Vector(id int) []float32 {
	if id < 0 || id >= len(ix.vectors) {
		return nil
	}
	return ix.vectors[id]
}

func (ix *DenseIndex) Size() int {
	return len(ix.vectors)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (ix *DenseIndex) Dimension() int {
	return ix.dimension
}

// L2Distance is the Euclidean distance between two vectors of equal length.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// It is 0 when either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
