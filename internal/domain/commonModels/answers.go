package commonModels

type Source struct {
	DocumentId     string  `json:"document_id"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float64 `json:"similarity_score"`
	ContentPreview string  `json:"content_preview"`
}

type AnswerMetadata struct {
	Model         string `json:"model_used,omitempty"`
	TokensUsed    int    `json:"tokens_used"`
	ChunksUsed    int    `json:"chunks_used"`
	LowConfidence bool   `json:"low_confidence"`
	Reason        string `json:"reason,omitempty"`
	Cached        bool   `json:"cached,omitempty"`
}

type Answer struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata AnswerMetadata `json:"metadata"`
}

type Summary struct {
	DocumentId     string   `json:"document_id"`
	DocumentTitle  string   `json:"document_title"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	ChunksAnalyzed int      `json:"chunks_analyzed"`
	Model          string   `json:"model_used,omitempty"`
}

type QuestionSet struct {
	DocumentId    string   `json:"document_id"`
	DocumentTitle string   `json:"document_title"`
	Questions     []string `json:"questions"`
	Model         string   `json:"model_used,omitempty"`
	Fallback      bool     `json:"fallback"`
}

// IngestOutcome is what the pipeline reports for one document.
type IngestOutcome struct {
	DocumentId     string           `json:"document_id"`
	FileName       string           `json:"file_name"`
	Existed        bool             `json:"existed"`
	Status         ProcessingStatus `json:"processing_status"`
	ChunkCount     int              `json:"chunk_count"`
	Classification Classification   `json:"classification"`
	Extraction     ExtractionStats  `json:"extraction"`
	Metadata       PaperMetadata    `json:"metadata"`
	Error          string           `json:"error,omitempty"`
}

// DisplayTitle falls back to the file name when no title was extracted.
func (d Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.FileName
}
