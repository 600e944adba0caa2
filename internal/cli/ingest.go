package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>...",
	Short: "Ingest one or more PDF files",
	Long: `Validate, classify, extract and index each PDF. A file whose name is already
registered keeps its document id and has its chunks replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		bar := newProgressBar(cmd.ErrOrStderr(), len(args), "Ingesting")
		var failed int
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return err
			}
			out, err := svc.Ingest(ctx, ingest.Request{Path: path})
			_ = bar.Add(1)
			if out.FileName == "" {
				out.FileName = filepath.Base(path)
			}
			if err != nil {
				failed++
				if out.Error == "" {
					out.Error = err.Error()
				}
			}
			printOutcome(cmd.OutOrStdout(), out)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		_ = bar.Finish()

		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		success.Fprintf(cmd.OutOrStdout(), "Ingested %d files\n", len(args))
		return nil
	})
}
