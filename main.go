package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/fingenie/internal/app"
	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/logger"
	httpserver "github.com/xiaot623/fingenie/internal/transport/http"
	"github.com/xiaot623/fingenie/internal/transport/ws"
)

const approvalSweepInterval = 5 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	log := app.NewLogger(cfg)
	logger.SetDefault(log)

	log.Info("Starting FinGenie...", "port", cfg.HTTPPort, "database", cfg.DatabaseURL,
		"llm_provider", cfg.LLMProvider, "vector_provider", cfg.VectorProvider, "mode", cfg.Mode)

	ctx, stop := context.WithCancel(logger.ContextWithLogger(context.Background(), log))
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	go a.Runs.RunApprovalSweeper(ctx, approvalSweepInterval)

	server := httpserver.NewServer(a.Runs, a.Metrics, ws.Options{
		PollInterval:   cfg.PollInterval,
		PingInterval:   cfg.PingInterval,
		WriteTimeout:   cfg.WriteTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		MaxMessageSize: cfg.MaxMessageSize,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()
	log.Info("Server started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down FinGenie...")
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown server gracefully", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("Failed to close resources", "error", err)
	}

	log.Info("FinGenie stopped")
}
