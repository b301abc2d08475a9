package knowledge

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/knowledge/embedder"
	"github.com/xiaot623/fingenie/internal/knowledge/vectordb"
)

var products = []string{
	"Barclays Everyday Saver is an easy access savings account.",
	"Barclays Fixed Rate ISA locks your savings rate for one year.",
	"Barclays Premier Current Account for customers with high income.",
	"Barclays Tracker Mortgage follows the Bank of England base rate.",
	"Barclays Rewards Credit Card gives cashback on everyday spending.",
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	ctx := context.Background()
	emb := embedder.NewHashEmbedder(64)
	store, err := vectordb.New(ctx, &vectordb.Config{
		Provider:  vectordb.ProviderFilesystem,
		Path:      filepath.Join(t.TempDir(), "products.json"),
		Dimension: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	vectors, err := emb.EmbedDocuments(ctx, products)
	require.NoError(t, err)
	records := make([]vectordb.Record, len(products))
	for i, p := range products {
		records[i] = vectordb.Record{
			ID:        fmt.Sprintf("https://www.barclays.co.uk/p%d#0", i),
			Text:      p,
			Embedding: vectors[i],
			Metadata:  map[string]any{"url": fmt.Sprintf("https://www.barclays.co.uk/p%d", i), "chunk_index": 0},
		}
	}
	require.NoError(t, store.Upsert(ctx, records))
	return NewRetriever(store, emb)
}

func TestRetrieveReturnsAtMostKSortedDescending(t *testing.T) {
	r := newTestRetriever(t)
	for k := 1; k <= 7; k++ {
		res, err := r.Retrieve(context.Background(), "savings account rate", k, "")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Hits), k)
		for i := 1; i < len(res.Hits); i++ {
			assert.GreaterOrEqual(t, res.Hits[i-1].Score, res.Hits[i].Score)
		}
	}
}

func TestRetrieveTwoOfFiveProducesTwoBlocks(t *testing.T) {
	r := newTestRetriever(t)
	res, err := r.Retrieve(context.Background(), "savings", 2, "")
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)

	out := Format(res)
	blocks := strings.Split(out, "\n\n")
	require.Len(t, blocks, 2)
	for i, b := range blocks {
		assert.True(t, strings.HasPrefix(b, "Information from map["), "block %d: %q", i, b)
		assert.Contains(t, b, res.Hits[i].Document)
	}
}

func TestRetrieveContainsFilter(t *testing.T) {
	r := newTestRetriever(t)
	res, err := r.Retrieve(context.Background(), "savings", 5, "ISA")
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Contains(t, res.Hits[0].Document, "ISA")
}

func TestRetrieveZeroK(t *testing.T) {
	r := newTestRetriever(t)
	res, err := r.Retrieve(context.Background(), "savings", 0, "")
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

type failingStore struct{ vectordb.Store }

func (failingStore) Search(context.Context, []float32, vectordb.SearchOptions) ([]vectordb.Match, error) {
	return nil, errors.New("connection refused")
}

type failingEmbedder struct{ embedder.Embedder }

func (failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errors.New("quota exceeded")
}

func TestRetrieveWrapsExternalFailures(t *testing.T) {
	var observed error
	r := NewRetriever(failingStore{}, embedder.NewHashEmbedder(8)).WithObserver(func(_ int, _ time.Duration, err error) {
		observed = err
	})
	_, err := r.Retrieve(context.Background(), "savings", 3, "")
	require.Error(t, err)
	assert.True(t, domain.IsExternal(err, domain.KindVectorStore))
	assert.Equal(t, err, observed)

	r = NewRetriever(failingStore{}, failingEmbedder{})
	_, err = r.Retrieve(context.Background(), "savings", 3, "")
	assert.True(t, domain.IsExternal(err, domain.KindEmbedding))
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	r := newTestRetriever(t)
	_, err := r.Retrieve(context.Background(), "  ", 3, "")
	assert.Error(t, err)
}
