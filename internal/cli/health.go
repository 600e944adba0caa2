package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/akolanti/DocMind/internal/rag"
	"github.com/spf13/cobra"
)

var errDegraded = errors.New("service is degraded")

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the registry, the vector index and GROBID",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		report := svc.Health(ctx)
		w := cmd.OutOrStdout()

		fmt.Fprint(w, "Status:    ")
		if report.Status == rag.HealthHealthy {
			success.Fprintln(w, report.Status)
		} else {
			failure.Fprintln(w, report.Status)
		}
		printComponent(w, "Registry", report.Registry)
		printComponent(w, "Index", report.Index)
		fmt.Fprintf(w, "Documents: %d (%d with embeddings, %d chunks)\n",
			report.RegistryStats.TotalDocuments, report.RegistryStats.DocumentsWithEmbeddings, report.RegistryStats.TotalChunks)
		fmt.Fprintf(w, "Embedding: %s (%d dims, %s)\n", report.EmbeddingModel, report.EmbeddingDim, report.Metric)
		fmt.Fprintf(w, "LLM:       %s\n", report.LLMModel)
		switch {
		case !report.GrobidEnabled:
			fmt.Fprintln(w, "GROBID:    disabled")
		case report.GrobidAvailable:
			success.Fprintln(w, "GROBID:    available")
		default:
			warning.Fprintln(w, "GROBID:    unreachable, metadata falls back to the PDF properties")
		}

		if report.Status != rag.HealthHealthy {
			return errDegraded
		}
		return nil
	})
}

func printComponent(w io.Writer, name string, c rag.ComponentHealth) {
	fmt.Fprintf(w, "%-10s ", name+":")
	if c.OK {
		success.Fprintln(w, "ok")
		return
	}
	failure.Fprintln(w, c.Error)
}
