package retriever

import (
	"math"
	"sort"
)

// BM25Params are the Okapi BM25 tuning constants.
type BM25Params struct {
	K1 float64
	B  float64
	// Epsilon scales the mean IDF that replaces negative IDF values, so terms
	// present in most passages still contribute a small positive weight.
	Epsilon float64
}

// DefaultBM25Params returns k1=1.5, b=0.75, epsilon=0.25.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: 1.5, B: 0.75, Epsilon: 0.25}
}

// SparseHit is one lexical search result.
type SparseHit struct {
	ID    int
	Score float64
}

// SparseIndex scores passages against query terms with BM25 Okapi. Passage i
// of the tokenized corpus is passage id i. It is read-only after construction.
type SparseIndex struct {
	params   BM25Params
	termFreq []map[string]int
	docLen   []float64
	avgDl    float64
	idf      map[string]float64
}

// NewSparseIndex builds the index from already tokenized passages.
func NewSparseIndex(tokenized [][]string, params BM25Params) *SparseIndex {
	ix := &SparseIndex{
		params:   params,
		termFreq: make([]map[string]int, len(tokenized)),
		docLen:   make([]float64, len(tokenized)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, tokens := range tokenized {
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			docFreq[term]++
		}
		ix.termFreq[i] = tf
		ix.docLen[i] = float64(len(tokens))
		totalLen += len(tokens)
	}
	if len(tokenized) > 0 {
		ix.avgDl = float64(totalLen) / float64(len(tokenized))
	}

	ix.computeIDF(docFreq, len(tokenized))
	return ix
}

func (ix *SparseIndex) computeIDF(docFreq map[string]int, n int) {
	if len(docFreq) == 0 {
		return
	}

	N := float64(n)
	idfSum := 0.0
	var negative []string
	for term, df := range docFreq {
		freq := float64(df)
		idf := math.Log(N-freq+0.5) - math.Log(freq+0.5)
		ix.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}

	floor := ix.params.Epsilon * idfSum / float64(len(docFreq))
	for _, term := range negative {
		ix.idf[term] = floor
	}
}

// Scores returns the BM25 score of every passage for the query terms,
// indexed by passage id. Unknown terms contribute nothing.
func (ix *SparseIndex) Scores(terms []string) []float64 {
	scores := make([]float64, len(ix.termFreq))
	if ix.avgDl == 0 {
		return scores
	}

	k1, b := ix.params.K1, ix.params.B
	for _, term := range terms {
		idf, ok := ix.idf[term]
		if !ok {
			continue
		}
		for id, tfs := range ix.termFreq {
			tf := float64(tfs[term])
			if tf == 0 {
				continue
			}
			scores[id] += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*ix.docLen[id]/ix.avgDl))
		}
	}
	return scores
}

// Search scores every passage and returns the k best, highest first, ties
// broken by smaller id. Zero-scored passages may be included. k is clamped to
// [0, Size()].
func (ix *SparseIndex) Search(terms []string, k int) []SparseHit {
	if k <= 0 || len(ix.termFreq) == 0 {
		return []SparseHit{}
	}

	scores := ix.Scores(terms)
	hits := make([]SparseHit, len(scores))
	for id, s := range scores {
		hits[id] = SparseHit{ID: id, Score: s}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func (ix *SparseIndex) Size() int {
	return len(ix.termFreq)
}

// IDF returns the inverse document frequency of a term and whether it occurs
// in the corpus.
func (ix *SparseIndex) IDF(term string) (float64, bool) {
	v, ok := ix.idf[term]
	return v, ok
}
