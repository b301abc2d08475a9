package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	queries int
	dim     int
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, c.dim)
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	c.queries++
	v := make([]float32, c.dim)
	v[0] = 1
	return v, nil
}

func TestAdapterCachesQueries(t *testing.T) {
	impl := &countingEmbedder{dim: 4}
	a, err := Wrap(impl, "test", 4)
	require.NoError(t, err)
	require.NoError(t, a.EnableCache(8))

	ctx := context.Background()
	first, err := a.EmbedQuery(ctx, "savings")
	require.NoError(t, err)
	first[0] = 42 // callers must not be able to poison the cache

	second, err := a.EmbedQuery(ctx, "savings")
	require.NoError(t, err)
	assert.Equal(t, float32(1), second[0])
	assert.Equal(t, 1, impl.queries)
}

func TestAdapterRejectsWrongDimension(t *testing.T) {
	a, err := Wrap(&countingEmbedder{dim: 3}, "test", 4)
	require.NoError(t, err)
	_, err = a.EmbedQuery(context.Background(), "x")
	assert.Error(t, err)
	_, err = a.EmbedDocuments(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestHashEmbedderIsDeterministicAndNormalised(t *testing.T) {
	h := NewHashEmbedder(32)
	ctx := context.Background()
	a, err := h.EmbedQuery(ctx, "Fixed rate mortgage")
	require.NoError(t, err)
	b, err := h.EmbedQuery(ctx, "fixed RATE mortgage!")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float32
	for _, x := range a {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	empty, err := h.EmbedQuery(ctx, "")
	require.NoError(t, err)
	assert.Len(t, empty, 32)
}
