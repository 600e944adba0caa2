package rag

import (
	"context"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

type ComponentHealth struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthReport struct {
	Status          string                     `json:"status"`
	Registry        ComponentHealth            `json:"registry"`
	RegistryStats   commonModels.RegistryStats `json:"registry_stats"`
	Index           ComponentHealth            `json:"vector_index"`
	Metric          string                     `json:"distance_metric"`
	EmbeddingModel  string                     `json:"embedding_model"`
	EmbeddingDim    int                        `json:"embedding_dimension"`
	GrobidEnabled   bool                       `json:"grobid_enabled"`
	GrobidAvailable bool                       `json:"grobid_available"`
	LLMModel        string                     `json:"llm_model"`
	CheckedAt       time.Time                  `json:"checked_at"`
}

// Health is healthy when the registry and the index both respond. GROBID is informational.
func (s *service) Health(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model := s.Embedder.Model()
	report := HealthReport{
		Status:         HealthHealthy,
		Metric:         string(s.Index.Metric()),
		EmbeddingModel: model.Name,
		EmbeddingDim:   model.Dimension,
		LLMModel:       s.LLM.ModelName(),
		CheckedAt:      time.Now().UTC(),
	}

	if err := s.Registry.Ping(ctx); err != nil {
		report.Registry.Error = err.Error()
	} else if stats, err := s.Registry.Stats(ctx); err != nil {
		report.Registry.Error = err.Error()
	} else {
		report.Registry.OK = true
		report.RegistryStats = stats
	}

	if err := s.Index.Heartbeat(ctx); err != nil {
		report.Index.Error = err.Error()
	} else {
		report.Index.OK = true
	}

	if s.Grobid != nil {
		report.GrobidEnabled = true
		report.GrobidAvailable = s.Grobid.IsAlive(ctx)
	}

	if !report.Registry.OK || !report.Index.OK {
		report.Status = HealthDegraded
		s.logger.WithTrace(ctx).Warn("health degraded", "registry", report.Registry.Error, "index", report.Index.Error)
	}
	return report
}
