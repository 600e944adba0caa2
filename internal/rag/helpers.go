package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/internal/rag/retrieval"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

// StepReporter receives the pipeline step a request has reached.
type StepReporter func(step jobModel.InternalStatus)

type stepKey struct{}

func WithStepReporter(ctx context.Context, r StepReporter) context.Context {
	return context.WithValue(ctx, stepKey{}, r)
}

// ReportStep forwards step to the reporter installed on ctx, if any.
func ReportStep(ctx context.Context, step jobModel.InternalStatus) {
	if r, ok := ctx.Value(stepKey{}).(StepReporter); ok && r != nil {
		r(step)
	}
}

func logStep(ctx context.Context, step jobModel.InternalStatus, log *logger_i.Logger) {
	ReportStep(ctx, step)
	log.Debug("step", "current", step)
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, query string) ([]float32, error) {
	logStep(ctx, jobModel.EmbeddingAPICall, log)
	v, err := s.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		log.Error("EMBEDDING_FAILURE", "error", err)
	}
	return v, err
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, vector []float32, scope string) (commonModels.Answer, bool) {
	if s.Cache == nil {
		return commonModels.Answer{}, false
	}
	logStep(ctx, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, err := s.Cache.Lookup(ctx, vector, scope)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
		return commonModels.Answer{}, false
	}
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, query string, vector []float32, documentId string) (retrieval.Result, error) {
	logStep(ctx, jobModel.VectorDBCall, log)
	result, err := s.Searcher.Search(ctx, query, vector, documentId)
	if err != nil {
		log.Error("VECTOR_DB_FAILURE", "error", err)
	}
	return result, err
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, prompt string) (llm.Completion, error) {
	logStep(ctx, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	completion, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		log.Error("LLM_GENERATION_FAILURE", "error", err)
		return llm.Completion{}, fmt.Errorf("%w: %v", commonModels.ErrGeneration, err)
	}
	if completion.Model == "" {
		completion.Model = s.LLM.ModelName()
	}
	return completion, nil
}
