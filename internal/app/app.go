// Package app wires the FinGenie components from configuration. Both the
// server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/knowledge"
	"github.com/xiaot623/fingenie/internal/knowledge/embedder"
	"github.com/xiaot623/fingenie/internal/knowledge/vectordb"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/macro"
	"github.com/xiaot623/fingenie/internal/metrics"
	"github.com/xiaot623/fingenie/internal/policy"
	"github.com/xiaot623/fingenie/internal/repository"
	"github.com/xiaot623/fingenie/internal/service"
)

const searchTimeout = 10 * time.Second

// App holds the long-lived components.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Service
	LLM       llm.LLMClient
	Embedder  embedder.Embedder
	Vectors   vectordb.Store
	Retriever *knowledge.Retriever
	Macro     *macro.Analyst
	Policy    *policy.Engine
	Store     *repository.SQLiteStore
	Runs      *service.RunService
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = logger.Level(cfg.LogLevel)
	lc.JSON = cfg.LogJSON
	return logger.NewLogger(lc)
}

// VectorStore opens the configured vector store for embeddings of the
// given dimension.
func VectorStore(ctx context.Context, cfg *config.Config, dimension int) (vectordb.Store, error) {
	return vectordb.New(ctx, &vectordb.Config{
		Provider:    vectordb.Provider(cfg.VectorProvider),
		DSN:         cfg.VectorDSN,
		Path:        cfg.VectorPath,
		Collection:  cfg.VectorCollection,
		Dimension:   dimension,
		EnsureIndex: true,
	})
}

// New validates cfg and builds every component. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	var err error
	if a.Metrics, err = metrics.New(); err != nil {
		return nil, err
	}
	if a.LLM, err = llm.NewLLMClient(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if a.Embedder, err = embedder.New(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if a.Vectors, err = VectorStore(ctx, cfg, a.Embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	a.Retriever = knowledge.NewRetriever(a.Vectors, a.Embedder).WithObserver(func(hits int, elapsed time.Duration, err error) {
		a.Metrics.Retrieved(context.Background(), hits, elapsed, err)
	})

	var searcher macro.Searcher = macro.NewHTMLSearch(cfg.SearchBaseURL, searchTimeout)
	if cfg.IsMock() {
		searcher = macro.StaticSearch{Results: macro.MockResults}
	}
	a.Macro = macro.NewAnalyst(searcher, a.LLM, cfg.LLMModel, cfg.SearchMaxResults)

	if a.Policy, err = policy.NewEngine(ctx, policy.DefaultPolicy); err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}
	if a.Store, err = repository.NewSQLiteStore(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	a.Runs = service.New(a.Store, a.Metrics, service.Dependencies{
		Client:      a.LLM,
		Model:       cfg.LLMModel,
		Temperature: Temperature(cfg),
		Retriever:   a.Retriever,
		Macro:       a.Macro,
		Policy:      a.Policy,
		Flow:        FlowConfig(cfg),
	}, cfg.ApprovalTimeout)

	ok = true
	return a, nil
}

// FlowConfig maps configuration onto flow settings.
func FlowConfig(cfg *config.Config) flow.Config {
	return flow.Config{
		TopK:        cfg.RetrievalTopK,
		Contains:    cfg.RetrievalContains,
		MaxTokens:   cfg.RetrievalMaxTokens,
		MacroQuery:  cfg.MacroQuery,
		AutoApprove: cfg.AutoApprove,
	}
}

// Temperature returns the configured override, or nil to keep the
// per-agent defaults.
func Temperature(cfg *config.Config) *float64 {
	if cfg.LLMTemperature < 0 {
		return nil
	}
	t := cfg.LLMTemperature
	return &t
}

// Close releases the stores and flushes metrics.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Vectors != nil {
		errs = append(errs, a.Vectors.Close(ctx))
	}
	if a.Metrics != nil {
		errs = append(errs, a.Metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
