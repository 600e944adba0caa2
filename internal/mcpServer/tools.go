package mcpServer

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/DocMind/internal/data/registry"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type AskInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from the ingested papers"`
	DocumentId string `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
}

type AskOutput struct {
	Answer        string                `json:"answer"`
	Sources       []commonModels.Source `json:"sources"`
	Model         string                `json:"model,omitempty"`
	LowConfidence bool                  `json:"low_confidence"`
	Cached        bool                  `json:"cached"`
}

type DocumentInput struct {
	DocumentId string `json:"document_id" jsonschema:"id of a registered document"`
}

type SummaryOutput struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

type QuestionsOutput struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
	Fallback  bool     `json:"fallback"`
}

type ListInput struct {
	Status string `json:"status,omitempty" jsonschema:"one of pending, partial, completed, failed"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents (default 50)"`
}

type DocumentOutput struct {
	Id         string `json:"id"`
	FileName   string `json:"file_name"`
	Title      string `json:"title,omitempty"`
	Authors    string `json:"authors,omitempty"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
}

type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Total     int              `json:"total"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question from the ingested research papers, with cited sources",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize_document",
		Description: "Summarize one document and list its key points",
	}, s.handleSummarize)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest_questions",
		Description: "Suggest questions a reader could ask about one document",
	}, s.handleQuestions)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List registered documents, newest first",
	}, s.handleList)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: question is required", commonModels.ErrValidation)
	}
	answer, err := s.rag.Ask(ctx, question, nil, input.DocumentId)
	if err != nil {
		s.logger.WithTrace(ctx).Warn("ask_documents failed", "error", err)
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:        answer.Answer,
		Sources:       answer.Sources,
		Model:         answer.Metadata.Model,
		LowConfidence: answer.Metadata.LowConfidence,
		Cached:        answer.Metadata.Cached,
	}, nil
}

func (s *Server) handleSummarize(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (*mcp.CallToolResult, SummaryOutput, error) {
	if input.DocumentId == "" {
		return nil, SummaryOutput{}, fmt.Errorf("%w: document_id is required", commonModels.ErrValidation)
	}
	summary, err := s.rag.Summarize(ctx, input.DocumentId)
	if err != nil {
		return nil, SummaryOutput{}, err
	}
	return nil, SummaryOutput{Title: summary.DocumentTitle, Summary: summary.Summary, KeyPoints: summary.KeyPoints}, nil
}

func (s *Server) handleQuestions(ctx context.Context, _ *mcp.CallToolRequest, input DocumentInput) (*mcp.CallToolResult, QuestionsOutput, error) {
	if input.DocumentId == "" {
		return nil, QuestionsOutput{}, fmt.Errorf("%w: document_id is required", commonModels.ErrValidation)
	}
	set, err := s.rag.SuggestQuestions(ctx, input.DocumentId)
	if err != nil {
		return nil, QuestionsOutput{}, err
	}
	return nil, QuestionsOutput{Title: set.DocumentTitle, Questions: set.Questions, Fallback: set.Fallback}, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	status, err := commonModels.ParseStatus(input.Status)
	if err != nil {
		return nil, ListOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = registry.DefaultListLimit
	}

	docs, stats, err := s.rag.ListDocuments(ctx, commonModels.ListFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, ListOutput{}, err
	}
	out := ListOutput{Documents: make([]DocumentOutput, len(docs)), Total: stats.TotalDocuments}
	for i, d := range docs {
		out.Documents[i] = toDocumentOutput(d)
	}
	return nil, out, nil
}

func toDocumentOutput(d commonModels.Document) DocumentOutput {
	return DocumentOutput{
		Id:         d.Id,
		FileName:   d.FileName,
		Title:      d.Title,
		Authors:    d.Authors,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
	}
}
