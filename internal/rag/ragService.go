package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/rag/assembler"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/internal/rag/retrieval"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract used by the worker, the CLI and the MCP server.
  - Callers get typed results and sentinel errors, never the collaborators.

2. service (Private Struct):
  - Holds the state: registry, index, answer cache, retriever, LLM client, pipeline.
  - Lowercase so nothing outside can reach around the service into the index or the LLM.

3. Pointer Receiver (*service):
  - Methods on (*service) satisfy Service implicitly.

4. Dependency Injection (NewService):
  - Every collaborator is an interface, so tests swap in mocks without touching callers.
*/

type Service interface {
	Ask(ctx context.Context, question string, history []commonModels.ConversationTurn, documentId string) (commonModels.Answer, error)
	Summarize(ctx context.Context, documentId string) (commonModels.Summary, error)
	SuggestQuestions(ctx context.Context, documentId string) (commonModels.QuestionSet, error)

	Ingest(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error)
	Reprocess(ctx context.Context, documentId string) (commonModels.IngestOutcome, error)
	Delete(ctx context.Context, documentId string) (bool, error)
	GetDocument(ctx context.Context, documentId string) (commonModels.Document, error)
	ListDocuments(ctx context.Context, filter commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error)

	Health(ctx context.Context) HealthReport
}

type Searcher interface {
	Search(ctx context.Context, query string, vector []float32, documentId string) (retrieval.Result, error)
}

type Ingester interface {
	Process(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error)
	Reprocess(ctx context.Context, documentId string) (commonModels.IngestOutcome, error)
}

type ModelReporter interface {
	Model() embedding.ModelInfo
}

type QueryEncoder interface {
	retrieval.QueryEmbedder
	ModelReporter
}

// LivenessProbe reports whether an optional dependency answers, GROBID in practice.
type LivenessProbe interface {
	IsAlive(ctx context.Context) bool
}

// Deps wires the service. Cache and Grobid may be nil.
type Deps struct {
	Registry     commonModels.DocumentRegistry
	Index        vectorDB.Index
	Cache        vectorDB.AnswerCache
	Embedder     QueryEncoder
	Searcher     Searcher
	LLM          llm.Provider
	Pipeline     Ingester
	Grobid       LivenessProbe
	HistoryTurns int
	// UploadDir holds the files saved by the HTTP API; Delete removes a document's file only from there.
	UploadDir    string
}

type service struct {
	Deps
	logger *logger_i.Logger
}

const (
	summaryQuery   = "summarize document"
	questionsQuery = "analyze document content"
)

func NewService(d Deps) Service {
	return &service{
		Deps:   d,
		logger: logger_i.NewLogger("rag_service"),
	}
}

func (s *service) Ask(ctx context.Context, question string, history []commonModels.ConversationTurn, documentId string) (commonModels.Answer, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	query := retrieval.BuildQuery(question, history, s.HistoryTurns)

	vector, err := s.executeEmbeddingStep(ctx, log, query)
	if err != nil {
		return commonModels.Answer{}, err
	}

	scope := vectorDB.Scope(documentId)
	if cached, found := s.executeCacheCheckStep(ctx, log, vector, scope); found {
		cached.Question = question
		if cached.Metadata.Model == "" {
			cached.Metadata.Model = s.LLM.ModelName()
		}
		cached.Metadata.Cached = true
		return cached, nil
	}

	result, err := s.executeVectorSearchStep(ctx, log, query, vector, documentId)
	if err != nil {
		return commonModels.Answer{}, err
	}
	if len(result.Chunks) == 0 {
		log.Info("no relevant chunks", "question", question)
		return assembler.NoAnswer(question), nil
	}

	completion, err := s.executeLLMStep(ctx, log, assembler.AnswerPrompt(question, result.Chunks))
	if err != nil {
		return commonModels.Answer{}, err
	}
	answer := assembler.FormatAnswer(question, completion.Text, result.Chunks, completion.Model, completion.TokensUsed, result.LowConfidence)

	if s.Cache != nil && !result.LowConfidence {
		s.saveToCache(ctx, vector, scope, answer)
	}
	return answer, nil
}

func (s *service) Summarize(ctx context.Context, documentId string) (commonModels.Summary, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	doc, err := s.GetDocument(ctx, documentId)
	if err != nil {
		return commonModels.Summary{}, err
	}

	chunks, err := s.documentChunks(ctx, log, summaryQuery, documentId)
	if err != nil {
		return commonModels.Summary{}, err
	}
	if len(chunks) == 0 {
		return commonModels.Summary{}, fmt.Errorf("%w for summarization", commonModels.ErrNoContent)
	}

	completion, err := s.executeLLMStep(ctx, log, assembler.SummaryPrompt(doc, chunks))
	if err != nil {
		return commonModels.Summary{}, err
	}
	return commonModels.Summary{
		DocumentId:     doc.Id,
		DocumentTitle:  doc.DisplayTitle(),
		Summary:        completion.Text,
		KeyPoints:      assembler.ParseBulletPoints(completion.Text),
		ChunksAnalyzed: len(chunks),
		Model:          completion.Model,
	}, nil
}

func (s *service) SuggestQuestions(ctx context.Context, documentId string) (commonModels.QuestionSet, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	doc, err := s.GetDocument(ctx, documentId)
	if err != nil {
		return commonModels.QuestionSet{}, err
	}
	set := commonModels.QuestionSet{DocumentId: doc.Id, DocumentTitle: doc.DisplayTitle()}

	chunks, err := s.documentChunks(ctx, log, questionsQuery, documentId)
	if err != nil {
		return commonModels.QuestionSet{}, err
	}
	if len(chunks) == 0 {
		return commonModels.QuestionSet{}, fmt.Errorf("%w for question generation", commonModels.ErrNoContent)
	}

	completion, err := s.executeLLMStep(ctx, log, assembler.QuestionsPrompt(doc, chunks))
	if err != nil {
		log.Warn("question generation failed, using fallback questions", "error", err)
		set.Questions, set.Fallback = assembler.FallbackQuestions(), true
		return set, nil
	}
	set.Model = completion.Model
	set.Questions = assembler.ParseQuestions(completion.Text)
	if len(set.Questions) == 0 {
		log.Warn("no questions parsed, using fallback questions")
		set.Questions, set.Fallback = assembler.FallbackQuestions(), true
	}
	return set, nil
}

func (s *service) Ingest(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
	ReportStep(ctx, jobModel.IngestProcessing)
	return s.Pipeline.Process(ctx, req)
}

func (s *service) Reprocess(ctx context.Context, documentId string) (commonModels.IngestOutcome, error) {
	ReportStep(ctx, jobModel.IngestProcessing)
	return s.Pipeline.Reprocess(ctx, documentId)
}

// Delete removes the index entries, the cached answers of the document scope, the registry record and the upload.
func (s *service) Delete(ctx context.Context, documentId string) (bool, error) {
	log := s.logger.WithTrace(ctx).With("documentId", documentId)
	doc, found, err := s.Registry.Get(ctx, documentId)
	if err != nil {
		return false, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	if !found {
		return false, nil
	}

	if err := s.Index.DeleteDocument(ctx, documentId); err != nil {
		return false, fmt.Errorf("%w: %v", commonModels.ErrStorage, err)
	}
	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, documentId); err != nil {
			log.Warn("answer cache invalidation failed", "error", err)
		}
	}
	deleted, err := s.Registry.Delete(ctx, documentId)
	if err != nil {
		return false, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	if ingest.InUploadDir(doc.StoragePath, s.UploadDir) {
		if err := ingest.RemoveUpload(doc.StoragePath); err != nil {
			log.Warn("could not remove upload", "path", doc.StoragePath, "error", err)
		}
	}
	log.Info("document deleted")
	return deleted, nil
}

func (s *service) GetDocument(ctx context.Context, documentId string) (commonModels.Document, error) {
	doc, found, err := s.Registry.Get(ctx, documentId)
	if err != nil {
		return commonModels.Document{}, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	if !found {
		return commonModels.Document{}, fmt.Errorf("%w: %s", commonModels.ErrNotFound, documentId)
	}
	return doc, nil
}

func (s *service) ListDocuments(ctx context.Context, filter commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error) {
	docs, err := s.Registry.List(ctx, filter)
	if err != nil {
		return nil, commonModels.RegistryStats{}, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	stats, err := s.Registry.Stats(ctx)
	if err != nil {
		return nil, commonModels.RegistryStats{}, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	return docs, stats, nil
}

// documentChunks embeds a fixed task query and retrieves within one document.
func (s *service) documentChunks(ctx context.Context, log *logger_i.Logger, query, documentId string) ([]commonModels.RetrievedChunk, error) {
	vector, err := s.executeEmbeddingStep(ctx, log, query)
	if err != nil {
		return nil, err
	}
	result, err := s.executeVectorSearchStep(ctx, log, query, vector, documentId)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}

func (s *service) saveToCache(ctx context.Context, vector []float32, scope string, answer commonModels.Answer) {
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Cache.Store(cacheCtx, vector, scope, answer); err != nil {
			s.logger.WithTrace(ctx).Error("Failed to save to cache", "error", err)
		}
	}()
}

// IsClientError reports whether err is the caller's fault rather than a dependency failure.
func IsClientError(err error) bool {
	return errors.Is(err, commonModels.ErrValidation) ||
		errors.Is(err, commonModels.ErrNotFound) ||
		errors.Is(err, commonModels.ErrNoContent)
}
