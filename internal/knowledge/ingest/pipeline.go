package ingest

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/xiaot623/fingenie/internal/knowledge/embedder"
	"github.com/xiaot623/fingenie/internal/knowledge/vectordb"
	"github.com/xiaot623/fingenie/internal/logger"
)

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
	defaultBatchSize    = 32
)

// Stats summarises an ingestion run.
type Stats struct {
	Pages  int
	Chunks int
}

// Pipeline chunks pages, embeds the chunks and upserts them.
type Pipeline struct {
	store     vectordb.Store
	embedder  embedder.Embedder
	splitter  textsplitter.TextSplitter
	batchSize int
}

// NewPipeline builds a pipeline with the default chunking settings.
func NewPipeline(store vectordb.Store, emb embedder.Embedder) *Pipeline {
	return &Pipeline{
		store:    store,
		embedder: emb,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(DefaultChunkSize),
			textsplitter.WithChunkOverlap(DefaultChunkOverlap),
		),
		batchSize: defaultBatchSize,
	}
}

// Index stores a single page. Chunk ids are "<url>#<n>" so re-ingesting a
// page overwrites its previous chunks.
func (p *Pipeline) Index(ctx context.Context, page Page) (int, error) {
	chunks, err := p.splitter.SplitText(page.Text)
	if err != nil {
		return 0, fmt.Errorf("ingest: split %s: %w", page.URL, err)
	}
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		vectors, err := p.embedder.EmbedDocuments(ctx, chunks[start:end])
		if err != nil {
			return start, fmt.Errorf("ingest: embed %s: %w", page.URL, err)
		}
		records := make([]vectordb.Record, 0, end-start)
		for i, vec := range vectors {
			idx := start + i
			records = append(records, vectordb.Record{
				ID:        fmt.Sprintf("%s#%d", page.URL, idx),
				Text:      chunks[idx],
				Embedding: vec,
				Metadata:  map[string]any{"url": page.URL, "chunk_index": idx},
			})
		}
		if err := p.store.Upsert(ctx, records); err != nil {
			return start, fmt.Errorf("ingest: upsert %s: %w", page.URL, err)
		}
	}
	return len(chunks), nil
}

// Run crawls seed and indexes every page it finds.
func (p *Pipeline) Run(ctx context.Context, crawler *Crawler, seed string) (Stats, error) {
	var stats Stats
	log := logger.FromContext(ctx)
	pages, err := crawler.Crawl(ctx, seed, func(page Page) error {
		n, err := p.Index(ctx, page)
		stats.Chunks += n
		if err != nil {
			return err
		}
		log.Debug("indexed page", "url", page.URL, "chunks", n)
		return nil
	})
	stats.Pages = pages
	return stats, err
}
