// Package embedder turns text into vectors for the knowledge store.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/logger"
)

// Embedder is the contract the retriever and ingestion pipeline rely on.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Adapter wraps a langchaingo embedder with dimension checks and an
// optional query cache.
type Adapter struct {
	model     string
	dimension int
	impl      embeddings.Embedder
	cacheMu   sync.Mutex
	cache     *lru.Cache[string, []float32]
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(impl embeddings.Embedder, model string, dimension int) (*Adapter, error) {
	if impl == nil {
		return nil, errors.New("embedder: implementation is required")
	}
	if dimension <= 0 {
		return nil, errors.New("embedder: dimension must be greater than zero")
	}
	return &Adapter{model: model, dimension: dimension, impl: impl}, nil
}

// New builds the embedder described by cfg. MOCK mode uses HashEmbedder.
func New(cfg *config.Config) (Embedder, error) {
	if cfg.IsMock() {
		return NewHashEmbedder(cfg.EmbedderDimension), nil
	}
	var client embeddings.EmbedderClient
	switch cfg.EmbedderProvider {
	case config.ProviderOpenAI, config.ProviderCompatible:
		llm, err := openai.New(
			openai.WithToken(cfg.EmbedderAPIKey),
			openai.WithBaseURL(cfg.EmbedderBaseURL),
			openai.WithEmbeddingModel(cfg.EmbedderModel),
		)
		if err != nil {
			return nil, fmt.Errorf("embedder: create openai client: %w", err)
		}
		client = llm
	case config.ProviderOllama:
		llm, err := ollama.New(ollama.WithModel(cfg.EmbedderModel), ollama.WithServerURL(cfg.EmbedderBaseURL))
		if err != nil {
			return nil, fmt.Errorf("embedder: create ollama client: %w", err)
		}
		client = llm
	case "hash":
		return NewHashEmbedder(cfg.EmbedderDimension), nil
	default:
		return nil, fmt.Errorf("embedder: unsupported provider %q", cfg.EmbedderProvider)
	}
	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(32), embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder: init: %w", err)
	}
	adapter, err := Wrap(impl, cfg.EmbedderModel, cfg.EmbedderDimension)
	if err != nil {
		return nil, err
	}
	if cfg.EmbedderCacheSize > 0 {
		if err := adapter.EnableCache(cfg.EmbedderCacheSize); err != nil {
			return nil, err
		}
	}
	return adapter, nil
}

// Dimension returns the configured vector dimension.
func (a *Adapter) Dimension() int {
	return a.dimension
}

// EnableCache initializes an LRU cache for query embeddings.
func (a *Adapter) EnableCache(size int) error {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return fmt.Errorf("embedder %q: init cache: %w", a.model, err)
	}
	a.cacheMu.Lock()
	a.cache = cache
	a.cacheMu.Unlock()
	return nil
}

// EmbedDocuments delegates to the underlying implementation.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: embed documents: %w", a.model, err)
	}
	for i := range vectors {
		if len(vectors[i]) != a.dimension {
			return nil, fmt.Errorf("embedder %q: got dimension %d, want %d", a.model, len(vectors[i]), a.dimension)
		}
	}
	return vectors, nil
}

// EmbedQuery delegates to the underlying implementation, consulting the
// cache first when enabled.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	a.cacheMu.Lock()
	cache := a.cache
	a.cacheMu.Unlock()
	if cache != nil {
		if v, ok := cache.Get(text); ok {
			logger.FromContext(ctx).Debug("embedding cache hit", "model", a.model)
			return append([]float32(nil), v...), nil
		}
	}
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: embed query: %w", a.model, err)
	}
	if len(vector) != a.dimension {
		return nil, fmt.Errorf("embedder %q: got dimension %d, want %d", a.model, len(vector), a.dimension)
	}
	if cache != nil {
		cache.Add(text, append([]float32(nil), vector...))
	}
	return vector, nil
}
