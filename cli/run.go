package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/fingenie/internal/app"
	"github.com/xiaot623/fingenie/internal/config"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/flow"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the advisory flow locally, answering prompts on stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, config.Load())
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			out := cmd.OutOrStdout()
			human := newTerminalHuman(cmd.InOrStdin(), out)
			fc, err := a.Runs.Start(ctx, terminalObserver{out: out}, human)
			if err != nil {
				if errors.Is(err, domain.ErrCancelled) {
					fmt.Fprintln(out, statusStyle.Render("Conversation cancelled."))
					return nil
				}
				fmt.Fprintln(out, errorStyle.Render("Error in chat process: "+err.Error()))
				return err
			}
			for _, msg := range flow.FinalMessages(fc) {
				printAgent(out, msg.Role, msg.Content)
			}
			return nil
		},
	}
}

func printAgent(w io.Writer, agent, content string) {
	fmt.Fprintf(w, "%s %s\n\n", agentStyle.Render(agent+":"), content)
}

// terminalHuman reads replies from a line reader. Reads happen on their own
// goroutine so a cancelled context ends the wait.
type terminalHuman struct {
	out   io.Writer
	lines chan string
	errs  chan error
}

func newTerminalHuman(in io.Reader, out io.Writer) *terminalHuman {
	h := &terminalHuman{out: out, lines: make(chan string), errs: make(chan error, 1)}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			h.lines <- strings.TrimSpace(scanner.Text())
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		h.errs <- err
	}()
	return h
}

func (h *terminalHuman) Ask(ctx context.Context, speaker, prompt string) (string, error) {
	if prompt != "" {
		printAgent(h.out, speaker, prompt)
	}
	fmt.Fprint(h.out, promptStyle.Render("you> "))
	select {
	case line := <-h.lines:
		return line, nil
	case err := <-h.errs:
		return "", fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type terminalObserver struct {
	flow.BaseObserver
	out io.Writer
}

func (o terminalObserver) Status(_ context.Context, _ domain.Step, text string) {
	fmt.Fprintln(o.out, statusStyle.Render(text))
}
