package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/pdfSource"
)

type ValidationResult struct {
	FileSize  int64
	PageCount int
}

// ValidateFile rejects anything that is not a readable, non-empty PDF under the size cap.
func ValidateFile(path string, maxBytes int64) (ValidationResult, error) {
	if maxBytes <= 0 {
		maxBytes = config.MaxUploadBytes
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return ValidationResult{}, fmt.Errorf("%w: file not found: %s", commonModels.ErrValidation, path)
	} else if err != nil {
		return ValidationResult{}, fmt.Errorf("%w: %v", commonModels.ErrValidation, err)
	}
	if info.IsDir() {
		return ValidationResult{}, fmt.Errorf("%w: %s is a directory", commonModels.ErrValidation, path)
	}
	if !strings.EqualFold(filepath.Ext(path), config.AcceptedExtension) {
		return ValidationResult{}, fmt.Errorf("%w: only %s files are accepted", commonModels.ErrValidation, config.AcceptedExtension)
	}
	if info.Size() > maxBytes {
		return ValidationResult{}, fmt.Errorf("%w: file is %d bytes, limit is %d", commonModels.ErrValidation, info.Size(), maxBytes)
	}

	src, err := pdfSource.Open(path)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("%w: %v", commonModels.ErrValidation, err)
	}
	defer src.Close()

	pages := src.NumPage()
	if pages <= 0 {
		return ValidationResult{}, fmt.Errorf("%w: pdf has no pages", commonModels.ErrValidation)
	}
	return ValidationResult{FileSize: info.Size(), PageCount: pages}, nil
}
