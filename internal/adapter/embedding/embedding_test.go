package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexai/config"
	"lexai/internal/adapter/store"
)

// stubClient stands in for the langchaingo embedder.
type stubClient struct {
	mu        sync.Mutex
	batches   [][]string
	failTimes int
	err       error
	dim       int
	short     bool
}

func (s *stubClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]string(nil), texts...))
	if s.failTimes > 0 {
		s.failTimes--
		return nil, s.err
	}
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, s.dim)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (s *stubClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestOpenAIEmbedder_Batches(t *testing.T) {
	client := &stubClient{dim: 4}
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 4}, withClient(client), WithBatchSize(2))
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, float32(3), vecs[2][0])
	assert.Len(t, client.batches, 3)
	assert.Equal(t, []string{"eeeee"}, client.batches[2])
}

func TestOpenAIEmbedder_RetriesTransientFailures(t *testing.T) {
	client := &stubClient{dim: 2, failTimes: 2, err: errors.New("503")}
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 2}, withClient(client), WithRetry(fastRetry(3)))
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Len(t, client.batches, 3)
}

func TestOpenAIEmbedder_GivesUpAfterRetries(t *testing.T) {
	cause := errors.New("401 unauthorized")
	client := &stubClient{dim: 2, failTimes: 10, err: cause}
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 2}, withClient(client), WithRetry(fastRetry(1)))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, cause)
	assert.Len(t, client.batches, 2)
}

func TestOpenAIEmbedder_RejectsShortResponse(t *testing.T) {
	client := &stubClient{dim: 2, short: true}
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 2}, withClient(client), WithRetry(fastRetry(0)))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"only"})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = e.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestOpenAIEmbedder_RejectsWrongDimension(t *testing.T) {
	client := &stubClient{dim: 3}
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 2}, withClient(client))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestOpenAIEmbedder_KnownDimension(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIConfig{Model: "all-minilm"}, withClient(&stubClient{dim: 384}))
	require.NoError(t, err)
	assert.Equal(t, 384, e.Dimension())
	assert.Equal(t, "all-minilm", e.ModelName())
}

func TestOpenAIEmbedder_RequiresModel(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{}, withClient(&stubClient{}))
	assert.Error(t, err)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, fastRetry(5), func() error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"freedom of expression", "freedom of expression"})
	require.NoError(t, err)
	b, err := e.Embed(ctx, []string{"freedom of expression"})
	require.NoError(t, err)

	assert.Equal(t, a[0], a[1])
	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[0], 64)
}

func TestHashEmbedder_UnitNormAndNeverZero(t *testing.T) {
	e := NewHashEmbedder(32)

	vecs, err := e.Embed(context.Background(), []string{"right to life", "", "  ...  "})
	require.NoError(t, err)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, store.CosineSimilarity(v, v), 1e-6)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}
}

func TestHashEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)

	vecs, err := e.Embed(context.Background(), []string{
		"right to freedom of movement",
		"freedom of movement within Nigeria",
		"tenure of office of the President",
	})
	require.NoError(t, err)

	near := store.CosineSimilarity(vecs[0], vecs[1])
	far := store.CosineSimilarity(vecs[0], vecs[2])
	assert.Greater(t, near, far)
}

// countingEmbedder records how many texts reach it.
type countingEmbedder struct {
	HashEmbedder
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts += len(texts)
	return c.HashEmbedder.Embed(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: *NewHashEmbedder(16)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.texts)

	second, err := c.Embed(ctx, []string{"b", "c", "a"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.texts)

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, "hash", c.ModelName())
	assert.Equal(t, 16, c.Dimension())
}

func TestCachedEmbedder_PropagatesErrors(t *testing.T) {
	cause := errors.New("down")
	client := &stubClient{dim: 2, failTimes: 1, err: cause}
	inner, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m", Dimension: 2}, withClient(client), WithRetry(fastRetry(0)))
	require.NoError(t, err)

	_, err = NewCachedEmbedder(inner, 4).Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, cause)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Embedding
	cfg.Provider = "hash"
	cfg.Dimension = 48

	e, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 48, e.Dimension())
	assert.IsType(t, &CachedEmbedder{}, e)

	cfg.Provider = "openai"
	cfg.APIKeyEnv = "LEXAI_TEST_MISSING_KEY"
	t.Setenv("LEXAI_TEST_MISSING_KEY", "")
	_, err = FromConfig(cfg, nil)
	assert.ErrorContains(t, err, "LEXAI_TEST_MISSING_KEY")

	cfg.Provider = "voyage"
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err)
}
