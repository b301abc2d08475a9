// Command fingenie-cli drives FinGenie from a terminal: a local run with
// stdin as the human, a client for a running server, offline ingestion and
// ROUGE evaluation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xiaot623/fingenie/internal/app"
	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/logger"
)

var (
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	statusStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fingenie-cli",
		Short:         "FinGenie banking advisor tools",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg := config.Load()
			l := app.NewLogger(cfg)
			logger.SetDefault(l)
			cmd.SetContext(logger.ContextWithLogger(cmd.Context(), l))
		},
	}
	root.AddCommand(newRunCmd(), newChatCmd(), newIngestCmd(), newEvalCmd())
	return root
}
