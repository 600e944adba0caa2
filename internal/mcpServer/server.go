// Package mcpServer exposes the document service to MCP clients over stdio.
package mcpServer

import (
	"context"
	"errors"

	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	Name    = "docmind"
	Version = "1.0.0"

	uriScheme = "docmind://"
)

var ErrMissingService = errors.New("mcp: document service is required")

type Server struct {
	rag    rag.Service
	server *mcp.Server
	logger *logger_i.Logger
}

func New(service rag.Service) (*Server, error) {
	if service == nil {
		return nil, ErrMissingService
	}
	s := &Server{
		rag:    service,
		server: mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil),
		logger: logger_i.NewLogger("mcp_server"),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server started", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
