package retriever

import (
	"math"
	"testing"

	"lexai/internal/adapter/analyzer"
)

func tokenizeCorpus(texts ...string) [][]string {
	return analyzer.NewTokenizer().TokenizeAll(texts)
}

func TestBM25Scoring(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus(
		"apple banana",
		"cherry",
		"date",
	), DefaultBM25Params())

	// Every term occurs in exactly one of three passages.
	idf := math.Log(3-1+0.5) - math.Log(1+0.5)
	avgDl := 4.0 / 3.0
	k1, b := 1.5, 0.75
	want := idf * (1 * (k1 + 1)) / (1 + k1*(1-b+b*2/avgDl))

	scores := ix.Scores([]string{"apple"})
	if math.Abs(scores[0]-want) > 1e-12 {
		t.Errorf("expected score %f, got %f", want, scores[0])
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("expected zero scores for passages without the term, got %v", scores)
	}
}

func TestBM25_NegativeIDFReplacedByEpsilonFloor(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus(
		"law a",
		"law b",
		"law c",
	), DefaultBM25Params())

	common := math.Log(0.5) - math.Log(3.5)
	rare := math.Log(2.5) - math.Log(1.5)
	mean := (common + 3*rare) / 4
	want := 0.25 * mean

	got, ok := ix.IDF("law")
	if !ok {
		t.Fatal("expected 'law' to be indexed")
	}
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected floored idf %f, got %f", want, got)
	}

	rareGot, _ := ix.IDF("a")
	if math.Abs(rareGot-rare) > 1e-12 {
		t.Errorf("expected idf %f for rare term, got %f", rare, rareGot)
	}
}

func TestBM25_RarerTermScoresHigher(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus(
		"citizen vote",
		"citizen tax",
		"citizen court",
		"senate court",
		"assembly budget",
	), DefaultBM25Params())

	scores := ix.Scores([]string{"vote"})
	common := ix.Scores([]string{"citizen"})
	if scores[0] <= common[0] {
		t.Errorf("expected rare term to outscore common term: %f <= %f", scores[0], common[0])
	}
}

func TestBM25_SearchOrderingAndTies(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus(
		"the senate",
		"right to vote",
		"the house",
		"right to vote right",
		"the courts",
	), DefaultBM25Params())

	hits := ix.Search([]string{"right"}, 5)
	if len(hits) != 5 {
		t.Fatalf("expected 5 hits, got %d", len(hits))
	}
	if hits[0].ID != 3 || hits[1].ID != 1 {
		t.Errorf("expected passages 3 then 1 first, got %v", hits)
	}
	// The remaining passages all score zero; smaller id first.
	if hits[2].ID != 0 || hits[3].ID != 2 || hits[4].ID != 4 {
		t.Errorf("expected zero-score ties ordered by id, got %v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d: %v", i, hits)
		}
	}
}

func TestBM25_CaseSensitive(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus("Rights apply", "nothing here"), DefaultBM25Params())

	if _, ok := ix.IDF("rights"); ok {
		t.Error("expected lowercase 'rights' to be absent")
	}
	if _, ok := ix.IDF("Rights"); !ok {
		t.Error("expected 'Rights' to be indexed")
	}
}

func TestBM25_KClamped(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus("a", "b"), DefaultBM25Params())

	if hits := ix.Search([]string{"a"}, 10); len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
	if hits := ix.Search([]string{"a"}, 0); len(hits) != 0 {
		t.Errorf("expected no hits for k=0, got %d", len(hits))
	}
}

func TestBM25_EmptyQueryReturnsZeroScores(t *testing.T) {
	ix := NewSparseIndex(tokenizeCorpus("a", "b", "c"), DefaultBM25Params())

	hits := ix.Search(nil, 2)
	if len(hits) != 2 || hits[0].ID != 0 || hits[1].ID != 1 {
		t.Errorf("expected first two ids with zero score, got %v", hits)
	}
	for _, h := range hits {
		if h.Score != 0 {
			t.Errorf("expected zero score, got %f", h.Score)
		}
	}
}

func TestBM25_EmptyCorpus(t *testing.T) {
	ix := NewSparseIndex(nil, DefaultBM25Params())

	if hits := ix.Search([]string{"anything"}, 5); len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
	if ix.Size() != 0 {
		t.Errorf("expected size 0, got %d", ix.Size())
	}
}

func TestBM25_QueryEqualToPassageRanksFirst(t *testing.T) {
	texts := []string{
		"Every person has a right to life, and no one shall be deprived intentionally of his life.",
		"The legislative powers of the Federation shall be vested in a National Assembly.",
		"Every citizen shall have the duty to respect the dignity of other citizens.",
		"There shall be a Supreme Court of Nigeria which shall consist of the Chief Justice.",
	}
	tok := analyzer.NewTokenizer()
	ix := NewSparseIndex(tok.TokenizeAll(texts), DefaultBM25Params())

	for id, text := range texts {
		hits := ix.Search(tok.Tokenize(text), 1)
		if len(hits) != 1 || hits[0].ID != id {
			t.Errorf("expected passage %d to rank first for its own text, got %v", id, hits)
		}
	}
}
