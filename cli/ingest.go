package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaot623/fingenie/internal/app"
	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/knowledge/embedder"
	"github.com/xiaot623/fingenie/internal/knowledge/ingest"
	"github.com/xiaot623/fingenie/internal/logger"
)

func newIngestCmd() *cobra.Command {
	var (
		seed string
		opts ingest.CrawlerOptions
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Crawl product pages into the vector store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			emb, err := embedder.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize embedder: %w", err)
			}
			store, err := app.VectorStore(ctx, cfg, emb.Dimension())
			if err != nil {
				return fmt.Errorf("failed to initialize vector store: %w", err)
			}
			defer store.Close(context.WithoutCancel(ctx))

			stats, err := ingest.NewPipeline(store, emb).Run(ctx, ingest.NewCrawler(opts), seed)
			logger.FromContext(ctx).Info("ingestion finished", "pages", stats.Pages, "chunks", stats.Chunks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d pages into %s\n", stats.Chunks, stats.Pages, cfg.VectorCollection)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "https://www.barclays.co.uk/", "URL to start crawling from")
	cmd.Flags().IntVar(&opts.MaxDepth, "depth", ingest.DefaultMaxDepth, "maximum link depth")
	cmd.Flags().IntVar(&opts.MaxPages, "max-pages", ingest.DefaultMaxPages, "maximum number of pages")
	cmd.Flags().Uint64Var(&opts.MaxRetries, "retries", 2, "fetch retries per page")
	return cmd
}
