package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/api"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/domain/jobModel"
)

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	p := job.JobPayload
	result := api.Result{
		Status:              string(job.Status),
		CurrentStep:         string(job.CurrentStep),
		RAGExternalResponse: ToRAGExternalStatus(p.Answer),
		Summary:             toSummaryResponse(p.Summary),
		Questions:           toQuestionsResponse(p.Questions),
		Ingest:              toIngestResponse(p.Ingest),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(answer *commonModels.Answer) *api.RAGResponse {
	if answer == nil {
		return nil
	}
	sources := make([]api.SourceResponse, len(answer.Sources))
	for i, s := range answer.Sources {
		sources[i] = api.SourceResponse{
			DocumentId:     s.DocumentId,
			ChunkIndex:     s.ChunkIndex,
			Score:          s.Score,
			ContentPreview: s.ContentPreview,
		}
	}
	return &api.RAGResponse{
		Question:      answer.Question,
		Answer:        answer.Answer,
		Sources:       sources,
		Model:         answer.Metadata.Model,
		TokensUsed:    answer.Metadata.TokensUsed,
		ChunksUsed:    answer.Metadata.ChunksUsed,
		LowConfidence: answer.Metadata.LowConfidence,
		Cached:        answer.Metadata.Cached,
	}
}

func toSummaryResponse(s *commonModels.Summary) *api.SummaryResponse {
	if s == nil {
		return nil
	}
	return &api.SummaryResponse{
		DocumentId:     s.DocumentId,
		DocumentTitle:  s.DocumentTitle,
		Summary:        s.Summary,
		KeyPoints:      s.KeyPoints,
		ChunksAnalyzed: s.ChunksAnalyzed,
		Model:          s.Model,
	}
}

func toQuestionsResponse(q *commonModels.QuestionSet) *api.QuestionsResponse {
	if q == nil {
		return nil
	}
	return &api.QuestionsResponse{
		DocumentId:    q.DocumentId,
		DocumentTitle: q.DocumentTitle,
		Questions:     q.Questions,
		Fallback:      q.Fallback,
	}
}

func toIngestResponse(o *commonModels.IngestOutcome) *api.IngestResponse {
	if o == nil {
		return nil
	}
	return &api.IngestResponse{
		DocumentId:  o.DocumentId,
		FileName:    o.FileName,
		Existed:     o.Existed,
		Status:      string(o.Status),
		ChunkCount:  o.ChunkCount,
		PDFType:     string(o.Classification.Type),
		Confidence:  o.Classification.Confidence,
		TotalPages:  o.Extraction.TotalPages,
		OCRPages:    o.Extraction.OCRPages,
		Title:       o.Metadata.Title,
		Authors:     o.Metadata.Authors,
		ErrorDetail: o.Error,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id: id,
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
		StartTime: time.Time{},
	}
}
