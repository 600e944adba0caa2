package mcpServer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Registry record of one document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

func (s *Server) handleDocumentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := documentIdFrom(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	doc, err := s.rag.GetDocument(ctx, id)
	if errors.Is(err, commonModels.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	} else if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func documentIdFrom(uri string) string {
	const prefix = uriScheme + "documents/"
	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
