// Package knowledge answers product queries from the vector store and
// renders the hits as prompt context.
package knowledge

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/knowledge/embedder"
	"github.com/xiaot623/fingenie/internal/knowledge/vectordb"
	"github.com/xiaot623/fingenie/internal/logger"
)

const tracerName = "fingenie/knowledge"

var errEmptyQuery = errors.New("knowledge: query is required")

// Observer is notified after every retrieval, successful or not.
type Observer func(hits int, elapsed time.Duration, err error)

// Retriever embeds queries and searches the product store.
type Retriever struct {
	store    vectordb.Store
	embedder embedder.Embedder
	observe  Observer
}

// NewRetriever builds a retriever over store using emb for query vectors.
func NewRetriever(store vectordb.Store, emb embedder.Embedder) *Retriever {
	return &Retriever{store: store, embedder: emb}
}

// WithObserver installs a callback used for metrics.
func (r *Retriever) WithObserver(fn Observer) *Retriever {
	r.observe = fn
	return r
}

// Retrieve returns at most k hits for query ranked by descending score.
// When contains is non-empty only documents containing it are considered.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, contains string) (res domain.RetrievalResult, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "knowledge.Retrieve")
	span.SetAttributes(attribute.Int("k", k), attribute.String("contains", contains))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("hits", len(res.Hits)))
		}
		span.End()
		if r.observe != nil {
			r.observe(len(res.Hits), time.Since(start), err)
		}
	}()

	res.Query = query
	if strings.TrimSpace(query) == "" {
		return res, errEmptyQuery
	}
	if k <= 0 {
		return res, nil
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return res, domain.NewExternalError(domain.KindEmbedding, "embed query", err)
	}
	matches, err := r.store.Search(ctx, vector, vectordb.SearchOptions{TopK: k, Contains: contains})
	if err != nil {
		return res, domain.NewExternalError(domain.KindVectorStore, "search", err)
	}
	vectordb.SortMatches(matches)
	if len(matches) > k {
		matches = matches[:k]
	}
	res.Hits = make([]domain.Hit, 0, len(matches))
	for _, m := range matches {
		res.Hits = append(res.Hits, domain.Hit{
			ID:       m.ID,
			Document: m.Text,
			Metadata: m.Metadata,
			Score:    m.Score,
		})
	}
	logger.FromContext(ctx).Debug("retrieved products", "k", k, "hits", len(res.Hits))
	return res, nil
}
