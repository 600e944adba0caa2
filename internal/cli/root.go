// Package cli is the docmind operator command line. Every command runs the document
// service in-process and synchronously.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/akolanti/DocMind/internal/bootstrap"
	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "docmind",
	Short: "Ingest research papers and ask questions about them",
	Long: `docmind ingests research-paper PDFs into a vector index and answers questions,
writes summaries and suggests questions from their content.

Backends are chosen in docmind.yaml or DOCMIND_* environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding docmind.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// Execute runs the command line until ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	settings, err := config.Load(paths...)
	if err != nil {
		return err
	}
	config.Use(settings)

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger_i.InitTo(os.Stderr, level, settings.Log.JSON)
	return nil
}

// openService is replaced in tests.
var openService = func(ctx context.Context) (rag.Service, func(), error) {
	app, err := bootstrap.New(ctx, config.Current())
	if err != nil {
		return nil, nil, err
	}
	return app.Service, func() { _ = app.Close() }, nil
}

// withService opens the service for the duration of one command.
func withService(cmd *cobra.Command, run func(ctx context.Context, svc rag.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return run(ctx, svc)
}
