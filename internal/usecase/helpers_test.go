package usecase

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"lexai/internal/adapter/embedding"
	"lexai/internal/domain"
)

const testCorpus = `[
	{"content": "Every person has a right to life and no one shall be deprived intentionally of his life.", "metadata": {"chapter": "IV", "is_fundamental_rights": 1}},
	{"content": "Every individual is entitled to respect for the dignity of his person.", "metadata": {"chapter": "IV", "is_fundamental_rights": 1}},
	{"content": "The legislative powers of the Federation shall be vested in a National Assembly.", "metadata": {"chapter": "V", "is_fundamental_rights": 0}},
	{"content": "The Senate shall consist of three Senators from each State.", "metadata": {"chapter": "V", "is_fundamental_rights": 0}},
	{"content": "There shall be a President of the Federation.", "metadata": {"chapter": "VI", "is_fundamental_rights": 0}}
]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// countingEmbedder wraps the hash embedder and counts embedded texts.
type countingEmbedder struct {
	inner *embedding.HashEmbedder
	texts atomic.Int64
	err   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: embedding.NewHashEmbedder(384)}
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts.Add(int64(len(texts)))
	return e.inner.Embed(ctx, texts)
}

func (e *countingEmbedder) Dimension() int    { return e.inner.Dimension() }
func (e *countingEmbedder) ModelName() string { return e.inner.ModelName() }

// stubLLM records the prompts it receives.
type stubLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	system string
	user   []string
}

func (s *stubLLM) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = systemPrompt
	s.user = append(s.user, userPrompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubLLM) ModelName() string { return "stub" }

func (s *stubLLM) prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.user...)
}

// memHistory is an in-memory history store.
type memHistory struct {
	mu    sync.Mutex
	turns []domain.ChatTurn
	err   error
}

func (h *memHistory) SaveChat(ctx context.Context, sessionID, query, response string) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, domain.ChatTurn{SessionID: sessionID, Query: query, Response: response})
	return nil
}

func (h *memHistory) GetHistory(ctx context.Context, sessionID string) ([]domain.ChatTurn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []domain.ChatTurn{}
	for _, t := range h.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (h *memHistory) Close() error { return nil }

// stubRetriever returns fixed candidates.
type stubRetriever struct {
	candidates []domain.Candidate
	err        error
	lastK      int
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	cs, err := r.RetrieveScored(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Passage, len(cs))
	for i, c := range cs {
		out[i] = c.Passage
	}
	return out, nil
}

func (r *stubRetriever) RetrieveScored(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	r.lastK = k
	if r.err != nil {
		return nil, r.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(r.candidates) > k {
		return r.candidates[:k], nil
	}
	return r.candidates, nil
}

func candidate(id int, chapter string, rights bool, content string, score float64) domain.Candidate {
	return domain.Candidate{
		Passage: domain.Passage{
			ID:       id,
			Content:  content,
			Metadata: domain.Metadata{Chapter: chapter, IsFundamentalRights: rights},
		},
		Cosine:     score,
		FusedScore: score,
	}
}
