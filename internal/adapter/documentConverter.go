package adapter

import (
	"github.com/akolanti/DocMind/internal/api"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag"
)

func ToDocumentResponse(d commonModels.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:              d.Id,
		FileName:        d.FileName,
		Title:           d.Title,
		Authors:         d.Authors,
		PageCount:       d.PageCount,
		PublicationDate: d.PublicationDate,
		FileSize:        d.FileSize,
		PDFType:         string(d.PDFType),
		Status:          string(d.Status),
		ChunkCount:      d.ChunkCount,
		HasEmbeddings:   d.HasEmbeddings,
		UploadedAt:      d.UploadedAt,
		LastProcessed:   d.LastProcessed,
	}
}

// ToDocumentListResponse reports Total from the registry stats, not the page length.
func ToDocumentListResponse(docs []commonModels.Document, stats commonModels.RegistryStats, f commonModels.ListFilter) api.DocumentListResponse {
	out := api.DocumentListResponse{
		Documents: make([]api.DocumentResponse, len(docs)),
		Total:     stats.TotalDocuments,
		Limit:     f.Limit,
		Offset:    f.Offset,
	}
	for i, d := range docs {
		out.Documents[i] = ToDocumentResponse(d)
	}
	return out
}

func ToHealthResponse(r rag.HealthReport) api.HealthResponse {
	return api.HealthResponse{
		Status:          r.Status,
		Registry:        api.ComponentStatus{OK: r.Registry.OK, Error: r.Registry.Error},
		Index:           api.ComponentStatus{OK: r.Index.OK, Error: r.Index.Error},
		TotalDocuments:  r.RegistryStats.TotalDocuments,
		TotalChunks:     r.RegistryStats.TotalChunks,
		Metric:          r.Metric,
		EmbeddingModel:  r.EmbeddingModel,
		EmbeddingDim:    r.EmbeddingDim,
		GrobidEnabled:   r.GrobidEnabled,
		GrobidAvailable: r.GrobidAvailable,
		LLMModel:        r.LLMModel,
		CheckedAt:       r.CheckedAt,
	}
}
