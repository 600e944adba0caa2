package commonModels

import (
	"fmt"
	"time"
)

type PDFType string

const (
	PDFDigital PDFType = "digital"
	PDFScanned PDFType = "scanned"
	PDFUnknown PDFType = "unknown"
)

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
	StatusPartial   ProcessingStatus = "partial"
	StatusFailed    ProcessingStatus = "failed"
)

// ParseStatus accepts a known status or the empty string, which matches every status.
func ParseStatus(s string) (ProcessingStatus, error) {
	switch status := ProcessingStatus(s); status {
	case "", StatusPending, StatusPartial, StatusCompleted, StatusFailed:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

type ChunkStrategy string

const (
	ChunkStandard ChunkStrategy = "standard"
	ChunkResearch ChunkStrategy = "research"
)

const ChunkSourcePDF = "pdf"

// Document is the registry record of an ingested paper.
type Document struct {
	Id              string           `json:"id"`
	FileName        string           `json:"file_name"`
	Title           string           `json:"title,omitempty"`
	Authors         string           `json:"authors,omitempty"`
	PageCount       int              `json:"page_count"`
	PublicationDate string           `json:"publication_date,omitempty"`
	FileSize        int64            `json:"file_size"`
	StoragePath     string           `json:"storage_path,omitempty"`
	PDFType         PDFType          `json:"pdf_type"`
	Status          ProcessingStatus `json:"processing_status"`
	ChunkCount      int              `json:"chunk_count"`
	HasEmbeddings   bool             `json:"has_embeddings"`
	UploadedAt      time.Time        `json:"upload_timestamp"`
	LastProcessed   time.Time        `json:"last_processed,omitempty"`
}

type DocChunk struct {
	DocumentId     string        `json:"document_id"`
	Index          int           `json:"chunk_index"`
	Content        string        `json:"content"`
	Length         int           `json:"chunk_size"`
	Strategy       ChunkStrategy `json:"chunk_type"`
	Source         string        `json:"source"`
	Embedding      []float32     `json:"-"`
	EmbeddingModel string        `json:"embedding_model,omitempty"`
	EmbeddingDim   int           `json:"embedding_dim,omitempty"`
}

// ChunkId builds the composite "{document}_{index}" identifier.
func ChunkId(documentId string, index int) string {
	return fmt.Sprintf("%s_%d", documentId, index)
}

func (c DocChunk) Id() string {
	return ChunkId(c.DocumentId, c.Index)
}

// RetrievedChunk is a query hit. Distance is what the index returned, Normalized is the
// squared-L2 equivalent the threshold is applied to.
type RetrievedChunk struct {
	Chunk      DocChunk `json:"chunk"`
	Distance   float64  `json:"distance"`
	Normalized float64  `json:"normalized_distance"`
	Score      float64  `json:"similarity_score"`
}

type ConversationRole string

const (
	RoleUser      ConversationRole = "user"
	RoleAssistant ConversationRole = "assistant"
)

type ConversationTurn struct {
	Role    ConversationRole `json:"role"`
	Content string           `json:"content"`
}

type Reference struct {
	Title string `json:"title"`
}

// PaperMetadata is what the metadata extractor could learn about a PDF.
type PaperMetadata struct {
	Title           string      `json:"title,omitempty"`
	Author          string      `json:"author,omitempty"`
	Authors         []string    `json:"authors,omitempty"`
	Abstract        string      `json:"abstract,omitempty"`
	References      []Reference `json:"references,omitempty"`
	ReferenceCount  int         `json:"reference_count"`
	AppearsAcademic bool        `json:"appears_academic"`
	Subject         string      `json:"subject,omitempty"`
	Creator         string      `json:"creator,omitempty"`
	Producer        string      `json:"producer,omitempty"`
	CreationDate    string      `json:"creation_date,omitempty"`
	ModDate         string      `json:"mod_date,omitempty"`
	PageCount       int         `json:"page_count"`
	FileName        string      `json:"file_name"`
	FileSize        int64       `json:"file_size"`
	Source          string      `json:"source"`
	Fallbacks       []string    `json:"fallbacks,omitempty"`
}

type Classification struct {
	Type               PDFType `json:"type"`
	Confidence         float64 `json:"confidence"`
	TotalPages         int     `json:"total_pages"`
	PagesSampled       int     `json:"pages_sampled"`
	PagesWithText      int     `json:"pages_with_text"`
	PagesWithImages    int     `json:"pages_with_images"`
	AverageTextDensity float64 `json:"avg_text_density"`
	TextPageRatio      float64 `json:"text_page_ratio"`
	ImagePageRatio     float64 `json:"image_page_ratio"`
	Error              string  `json:"error,omitempty"`
}

type ExtractionStats struct {
	TotalPages       int      `json:"total_pages"`
	PagesProcessed   int      `json:"pages_processed"`
	OCRPages         []int    `json:"ocr_pages"`
	ExtractionMethod []string `json:"extraction_method"`
	CharCount        int      `json:"char_count"`
	WordCount        int      `json:"word_count"`
}

type RegistryStats struct {
	TotalDocuments          int `json:"total_documents"`
	DocumentsWithEmbeddings int `json:"documents_with_embeddings"`
	TotalChunks             int `json:"total_chunks"`
}
