package vectordb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{ID: "isa", Text: "Stocks and shares ISA", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"url": "https://bank/isa"}},
		{ID: "saver", Text: "Easy access saver", Embedding: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"url": "https://bank/saver"}},
		{ID: "mortgage", Text: "Fixed rate mortgage", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"url": "https://bank/mortgage"}},
		{ID: "card", Text: "Cashback credit card", Embedding: []float32{0, 0, 1}, Metadata: map[string]any{"url": "https://bank/card"}},
		{ID: "loan", Text: "Personal loan", Embedding: []float32{0, 0.5, 0.5}, Metadata: map[string]any{"url": "https://bank/loan"}},
	}
}

func assertSortedDesc(t *testing.T, matches []Match) {
	t.Helper()
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score, "matches out of order at %d", i)
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, sampleRecords()))

	for k := 1; k <= 6; k++ {
		matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: k})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(matches), k)
		assertSortedDesc(t, matches)
	}

	matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "isa", matches[0].ID)
	assert.Equal(t, "saver", matches[1].ID)
	assert.Equal(t, "https://bank/isa", matches[0].Metadata["url"])

	matches, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 5, Contains: "mortgage"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mortgage", matches[0].ID)

	matches, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 5, Filters: map[string]string{"url": "https://bank/card"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "card", matches[0].ID)

	require.NoError(t, store.Delete(ctx, Filter{IDs: []string{"isa"}}))
	matches, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "saver", matches[0].ID)

	_, err = store.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
	assert.Error(t, err)
	assert.Error(t, store.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1}}}))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store, err := New(context.Background(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 3})
	require.NoError(t, err)
	exerciseStore(t, store)
	require.NoError(t, store.Close(context.Background()))

	reopened, err := New(context.Background(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 3})
	require.NoError(t, err)
	matches, err := reopened.Search(context.Background(), []float32{0, 1, 0}, SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mortgage", matches[0].ID)

	_, err = New(context.Background(), &Config{Provider: ProviderFilesystem, Path: path, Dimension: 4})
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := New(context.Background(), &Config{
		Provider:   ProviderRedis,
		DSN:        fmt.Sprintf("redis://%s/0", mr.Addr()),
		Collection: "barclays_uk_products",
		Dimension:  3,
	})
	require.NoError(t, err)
	defer store.Close(context.Background())
	exerciseStore(t, store)

	assert.True(t, mr.Exists("fingenie:vectors:barclays_uk_products:ids"))
}

func TestNewValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, nil)
	assert.Error(t, err)
	_, err = New(ctx, &Config{Provider: ProviderFilesystem, Dimension: 3})
	assert.ErrorIs(t, err, errMissingPath)
	_, err = New(ctx, &Config{Provider: ProviderPGVector, Dimension: 3})
	assert.ErrorIs(t, err, errMissingDSN)
	_, err = New(ctx, &Config{Provider: ProviderFilesystem, Path: "x.json"})
	assert.ErrorIs(t, err, errInvalidDimension)
	_, err = New(ctx, &Config{Provider: "qdrant", DSN: "x", Dimension: 3})
	assert.Error(t, err)
}

func TestSortMatchesBreaksTiesByID(t *testing.T) {
	matches := []Match{{ID: "b", Score: 0.5}, {ID: "a", Score: 0.5}, {ID: "c", Score: 0.9}}
	SortMatches(matches)
	assert.Equal(t, []string{"c", "a", "b"}, []string{matches[0].ID, matches[1].ID, matches[2].ID})
}
