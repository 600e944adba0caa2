package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/akolanti/DocMind/internal/data/registry"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listLimit  int
	listOffset int
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage registered documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show a document record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document with its chunks and cached answers",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsReprocessCmd = &cobra.Command{
	Use:   "reprocess <document-id>",
	Short: "Re-run extraction and indexing from the stored file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsReprocess,
}

func init() {
	documentsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by pending, partial, completed or failed")
	documentsListCmd.Flags().IntVar(&listLimit, "limit", registry.DefaultListLimit, "maximum number of documents")
	documentsListCmd.Flags().IntVar(&listOffset, "offset", 0, "number of documents to skip")

	documentsCmd.AddCommand(documentsListCmd, documentsGetCmd, documentsDeleteCmd, documentsReprocessCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	status, err := commonModels.ParseStatus(listStatus)
	if err != nil {
		return err
	}
	if listLimit <= 0 || listOffset < 0 {
		return fmt.Errorf("%w: limit must be positive and offset non-negative", commonModels.ErrValidation)
	}
	filter := commonModels.ListFilter{Status: status, Limit: listLimit, Offset: listOffset}

	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		docs, stats, err := svc.ListDocuments(ctx, filter)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents found")
			return nil
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tCHUNKS\tUPLOADED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.Id, d.FileName, d.Status, d.ChunkCount, d.UploadedAt.Format("2006-01-02 15:04"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nShowing %d of %d documents (%d chunks indexed)\n", len(docs), stats.TotalDocuments, stats.TotalChunks)
		return nil
	})
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		doc, err := svc.GetDocument(ctx, args[0])
		if err != nil {
			return err
		}
		printDocument(cmd.OutOrStdout(), doc)
		return nil
	})
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		deleted, err := svc.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: %s", commonModels.ErrNotFound, args[0])
		}
		success.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}

func runDocumentsReprocess(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		out, err := svc.Reprocess(ctx, args[0])
		if errors.Is(err, commonModels.ErrNotFound) {
			return err
		}
		printOutcome(cmd.OutOrStdout(), out)
		if err != nil {
			return fmt.Errorf("reprocess failed: %w", err)
		}
		return nil
	})
}
