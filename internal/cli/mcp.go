package cli

import (
	"context"

	"github.com/akolanti/DocMind/internal/mcpServer"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document tools over MCP on stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
ask_documents, summarize_document, suggest_questions and list_documents.

Client configuration:
  {
    "mcpServers": {
      "docmind": {
        "command": "/path/to/docmind",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	return withService(cmd, func(ctx context.Context, svc rag.Service) error {
		server, err := mcpServer.New(svc)
		if err != nil {
			return err
		}
		return server.Run(ctx)
	})
}
