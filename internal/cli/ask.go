package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/DocMind/internal/rag"
	"github.com/spf13/cobra"
)

var askDocument string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested papers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <document-id>",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

var questionsCmd = &cobra.Command{
	Use:   "questions <document-id>",
	Short: "Suggest questions about a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuestions,
}

func init() {
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "restrict retrieval to one document id")
	rootCmd.AddCommand(askCmd, summarizeCmd, questionsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		answer, err := svc.Ask(ctx, question, nil, askDocument)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		printAnswer(cmd.OutOrStdout(), answer)
		return nil
	})
}

func runSummarize(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		summary, err := svc.Summarize(ctx, args[0])
		if err != nil {
			return fmt.Errorf("summarize failed: %w", err)
		}
		w := cmd.OutOrStdout()
		heading.Fprintln(w, summary.DocumentTitle)
		fmt.Fprintf(w, "\n%s\n", summary.Summary)
		if len(summary.KeyPoints) > 0 {
			heading.Fprintln(w, "\nKey points:")
			for _, p := range summary.KeyPoints {
				fmt.Fprintf(w, "  - %s\n", p)
			}
		}
		fmt.Fprintf(w, "\n(%d chunks analyzed)\n", summary.ChunksAnalyzed)
		return nil
	})
}

func runQuestions(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		set, err := svc.SuggestQuestions(ctx, args[0])
		if err != nil {
			return fmt.Errorf("question generation failed: %w", err)
		}
		w := cmd.OutOrStdout()
		heading.Fprintln(w, set.DocumentTitle)
		for i, q := range set.Questions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q)
		}
		if set.Fallback {
			warning.Fprintln(w, "\nThe model gave no usable questions, these are generic ones.")
		}
		return nil
	})
}
