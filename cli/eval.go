package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/fingenie/internal/eval"
)

func newEvalCmd() *cobra.Command {
	var pairsPath string
	cmd := &cobra.Command{
		Use:   "eval [reference] [candidate]",
		Short: "Compute ROUGE scores between reference and generated text",
		Args: func(cmd *cobra.Command, args []string) error {
			if pairsPath == "" && len(args) != 2 {
				return fmt.Errorf("expected reference and candidate files, or --pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if pairsPath != "" {
				f, err := os.Open(pairsPath)
				if err != nil {
					return err
				}
				defer f.Close()
				pairs, err := eval.ReadPairs(f)
				if err != nil {
					return err
				}
				scores, n := eval.Corpus(pairs)
				fmt.Fprintf(out, "pairs scored: %d\n", n)
				printScores(out, scores)
				return nil
			}

			ref, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cand, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			printScores(out, eval.Rouge(string(ref), string(cand)))
			return nil
		},
	}
	cmd.Flags().StringVar(&pairsPath, "pairs", "", "CSV of reference,candidate rows")
	return cmd
}

func printScores(w io.Writer, s eval.Scores) {
	fmt.Fprintf(w, "%s %.4f\n", agentStyle.Render("rouge1:"), s.Rouge1)
	fmt.Fprintf(w, "%s %.4f\n", agentStyle.Render("rouge2:"), s.Rouge2)
	fmt.Fprintf(w, "%s %.4f\n", agentStyle.Render("rougeL:"), s.RougeL)
	fmt.Fprintf(w, "%s %.4f\n", agentStyle.Render("average:"), s.Average())
}
