package jobModel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	RAGCall          InternalStatus = "RAG"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	RedisCall        InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery     JobType = "Query"
	JobTypeIngest    JobType = "Ingest"
	JobTypeReprocess JobType = "Reprocess"
	JobTypeSummary   JobType = "Summary"
	JobTypeQuestions JobType = "Questions"
)

// IsDocumentJob reports whether the job runs the long ingest path.
func (t JobType) IsDocumentJob() bool {
	return t == JobTypeIngest || t == JobTypeReprocess
}

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// JobPayload carries the request fields of a job and, once done, exactly one result.
type JobPayload struct {
	Question   string `json:"question,omitempty"`
	DocumentId string `json:"document_id,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestPath     string `json:"ingest_path,omitempty"`

	Answer    *commonModels.Answer        `json:"answer,omitempty"`
	Summary   *commonModels.Summary       `json:"summary,omitempty"`
	Questions *commonModels.QuestionSet   `json:"questions,omitempty"`
	Ingest    *commonModels.IngestOutcome `json:"ingest,omitempty"`
}

// ErrorFrom maps a sentinel error to the status code and retry hint a client sees.
func ErrorFrom(err error) JobError {
	switch {
	case errors.Is(err, commonModels.ErrValidation):
		return JobError{Code: http.StatusBadRequest, Message: err.Error(), Retry: false}
	case errors.Is(err, commonModels.ErrNotFound):
		return JobError{Code: http.StatusNotFound, Message: err.Error(), Retry: false}
	case errors.Is(err, commonModels.ErrNoContent):
		return JobError{Code: http.StatusUnprocessableEntity, Message: err.Error(), Retry: false}
	case errors.Is(err, commonModels.ErrExtraction), errors.Is(err, commonModels.ErrChunking):
		return JobError{Code: http.StatusInternalServerError, Message: err.Error(), Retry: false}
	case errors.Is(err, context.DeadlineExceeded):
		return JobError{Code: http.StatusInternalServerError, Message: "request timed out", Retry: true}
	case errors.Is(err, commonModels.ErrEmbedding),
		errors.Is(err, commonModels.ErrStorage),
		errors.Is(err, commonModels.ErrGeneration),
		errors.Is(err, commonModels.ErrRegistry):
		return JobError{Code: http.StatusInternalServerError, Message: err.Error(), Retry: true}
	default:
		return JobError{Code: http.StatusInternalServerError, Message: "Internal Server Error", Retry: true}
	}
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	TrySaveChat(ctx context.Context, id string, turns ...commonModels.ConversationTurn) error
	InitNewChat(ctx context.Context, id string) error
	GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error)
}
