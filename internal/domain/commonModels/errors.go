package commonModels

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrExtraction = errors.New("extraction error")
	ErrChunking   = errors.New("chunking error")
	ErrEmbedding  = errors.New("embedding error")
	ErrStorage    = errors.New("storage error")
	ErrRegistry   = errors.New("registry error")
	ErrGeneration = errors.New("generation error")
	ErrNotFound   = errors.New("document not found")
	ErrNoContent  = errors.New("no content found")
)
