// Package vectordb stores embedded product documents and answers
// nearest-neighbour queries over them.
package vectordb

import "context"

// Provider enumerates supported vector database backends.
type Provider string

const (
	ProviderPGVector Provider = "pgvector"
	ProviderRedis    Provider = "redis"
	// ProviderFilesystem persists embeddings to a local JSON file.
	ProviderFilesystem Provider = "filesystem"
)

const defaultTopK = 5

// Record represents a chunk persisted to the vector store.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution.
type SearchOptions struct {
	TopK     int
	MinScore float64
	// Contains keeps only documents whose text contains the substring.
	Contains string
	// Filters keeps only records whose metadata values equal the given strings.
	Filters map[string]string
}

// Match captures a similarity search result.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filter specifies delete criteria.
type Filter struct {
	IDs      []string
	Metadata map[string]string
}

// Store exposes the minimal contract for ingestion and retrieval.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	Delete(ctx context.Context, filter Filter) error
	Close(ctx context.Context) error
}

// Config captures connection details for a vector database.
type Config struct {
	Provider   Provider
	DSN        string
	Path       string
	Collection string
	Dimension  int
	// EnsureIndex creates an ivfflat index on the pgvector table.
	EnsureIndex bool
}
