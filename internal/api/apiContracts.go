package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	JobType   string            `json:"job_type,omitempty" example:"Query"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type SourceResponse struct {
	DocumentId     string  `json:"document_id" example:"3f1c6a52-4e0b-4b7e-9a55-0f1f4e5f2a10"`
	ChunkIndex     int     `json:"chunk_index" example:"4"`
	Score          float64 `json:"similarity_score" example:"0.83"`
	ContentPreview string  `json:"content_preview"`
}

type RAGResponse struct {
	Question      string           `json:"question"`
	Answer        string           `json:"answer"`
	Sources       []SourceResponse `json:"sources"`
	Model         string           `json:"model_used,omitempty"`
	TokensUsed    int              `json:"tokens_used"`
	ChunksUsed    int              `json:"chunks_used"`
	LowConfidence bool             `json:"low_confidence"`
	Cached        bool             `json:"cached"`
}

type SummaryResponse struct {
	DocumentId     string   `json:"document_id"`
	DocumentTitle  string   `json:"document_title"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	ChunksAnalyzed int      `json:"chunks_analyzed"`
	Model          string   `json:"model_used,omitempty"`
}

type QuestionsResponse struct {
	DocumentId    string   `json:"document_id"`
	DocumentTitle string   `json:"document_title"`
	Questions     []string `json:"questions"`
	Fallback      bool     `json:"fallback"`
}

type IngestResponse struct {
	DocumentId  string   `json:"document_id"`
	FileName    string   `json:"file_name"`
	Existed     bool     `json:"existed"`
	Status      string   `json:"processing_status" example:"completed"`
	ChunkCount  int      `json:"chunk_count"`
	PDFType     string   `json:"pdf_type" example:"digital"`
	Confidence  float64  `json:"classification_confidence"`
	TotalPages  int      `json:"total_pages"`
	OCRPages    []int    `json:"ocr_pages"`
	Title       string   `json:"title,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	ErrorDetail string   `json:"error,omitempty"`
}

type Result struct {
	Status              string             `json:"status"`
	CurrentStep         string             `json:"current_step,omitempty"`
	RAGExternalResponse *RAGResponse       `json:"rag_response,omitempty"`
	Summary             *SummaryResponse   `json:"summary,omitempty"`
	Questions           *QuestionsResponse `json:"questions,omitempty"`
	Ingest              *IngestResponse    `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type DocumentResponse struct {
	Id              string    `json:"id"`
	FileName        string    `json:"file_name"`
	Title           string    `json:"title,omitempty"`
	Authors         string    `json:"authors,omitempty"`
	PageCount       int       `json:"page_count"`
	PublicationDate string    `json:"publication_date,omitempty"`
	FileSize        int64     `json:"file_size"`
	PDFType         string    `json:"pdf_type"`
	Status          string    `json:"processing_status"`
	ChunkCount      int       `json:"chunk_count"`
	HasEmbeddings   bool      `json:"has_embeddings"`
	UploadedAt      time.Time `json:"upload_timestamp"`
	LastProcessed   time.Time `json:"last_processed,omitempty"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type DeleteResponse struct {
	Id      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type ComponentStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status          string          `json:"status" example:"healthy"`
	Registry        ComponentStatus `json:"registry"`
	Index           ComponentStatus `json:"vector_index"`
	TotalDocuments  int             `json:"total_documents"`
	TotalChunks     int             `json:"total_chunks"`
	Metric          string          `json:"distance_metric"`
	EmbeddingModel  string          `json:"embedding_model"`
	EmbeddingDim    int             `json:"embedding_dimension"`
	GrobidEnabled   bool            `json:"grobid_enabled"`
	GrobidAvailable bool            `json:"grobid_available"`
	LLMModel        string          `json:"llm_model"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// requests---------------------

type ChatRequest struct {
	Message    string `json:"message" validate:"required"`
	ChatID     string `json:"chatID,omitempty"`
	DocumentId string `json:"document_id,omitempty"`
}
