package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/pdfSource"
	"github.com/akolanti/DocMind/pkg/fallback"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

const (
	MethodNative         = "native"
	MethodOCR            = "ocr"
	MethodNativeFallback = "native_fallback"
)

// PageOCR recognises the text of a single rendered page.
type PageOCR interface {
	PageText(ctx context.Context, path string, page int) (string, error)
}

type pageDocument interface {
	pdfSource.Source
	Close() error
}

type Extraction struct {
	Text  string
	Stats commonModels.ExtractionStats
}

type rawPage struct {
	Number int
	Native string
	path   string
}

type Extractor struct {
	ocr    PageOCR
	open   func(path string) (pageDocument, error)
	chain  *fallback.Chain[rawPage, string]
	logger *logger_i.Logger
}

// NewExtractor builds the per-page strategy chain. A nil ocr disables the OCR step.
func NewExtractor(ocr PageOCR) *Extractor {
	e := &Extractor{
		ocr: ocr,
		open: func(path string) (pageDocument, error) {
			return pdfSource.Open(path)
		},
		logger: logger_i.NewLogger("text_extractor"),
	}
	e.chain = fallback.New(
		fallback.Strategy[rawPage, string]{Name: MethodNative, Try: e.nativeText},
		fallback.Strategy[rawPage, string]{Name: MethodOCR, Try: e.ocrText},
		fallback.Strategy[rawPage, string]{Name: MethodNativeFallback, Try: func(_ context.Context, p rawPage) (string, error) {
			return p.Native, nil
		}},
	)
	return e
}

func (e *Extractor) Extract(ctx context.Context, path string) (Extraction, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("text_extraction", time.Since(start)) }()
	log := e.logger.WithTrace(ctx).With("path", path)

	src, err := e.open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", commonModels.ErrExtraction, err)
	}
	defer src.Close()

	total := src.NumPage()
	stats := commonModels.ExtractionStats{TotalPages: total, OCRPages: []int{}, ExtractionMethod: make([]string, 0, total)}
	pages := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Extraction{}, fmt.Errorf("%w: %v", commonModels.ErrExtraction, err)
		}
		native, err := src.PageText(i)
		if err != nil {
			log.Warn("native text failed, page treated as empty", "page", i, "error", err)
			native = ""
		}

		outcome, err := e.chain.Run(ctx, rawPage{Number: i, Native: native, path: path})
		if err != nil {
			// the last strategy cannot fail, only cancellation gets here
			return Extraction{}, fmt.Errorf("%w: %v", commonModels.ErrExtraction, err)
		}
		if outcome.Strategy == MethodOCR {
			stats.OCRPages = append(stats.OCRPages, i)
		}
		if len(outcome.Failures) > 0 {
			log.Debug("page text fallback", "page", i, "method", outcome.Strategy, "skipped", outcome.Skipped())
		}
		stats.ExtractionMethod = append(stats.ExtractionMethod, outcome.Strategy)
		stats.PagesProcessed++
		pages = append(pages, outcome.Value)
	}

	text := CleanText(strings.Join(pages, "\n"))
	if text == "" {
		return Extraction{}, fmt.Errorf("%w: no text could be extracted from %d pages", commonModels.ErrExtraction, total)
	}
	stats.CharCount = utf8.RuneCountInString(text)
	stats.WordCount = len(strings.Fields(text))

	log.Info("text extracted", "pages", total, "ocr_pages", len(stats.OCRPages), "chars", stats.CharCount)
	return Extraction{Text: text, Stats: stats}, nil
}

func (e *Extractor) nativeText(_ context.Context, p rawPage) (string, error) {
	n := utf8.RuneCountInString(strings.TrimSpace(p.Native))
	if n < config.OCRNativeTextThreshold {
		return "", fmt.Errorf("native text too short (%d chars)", n)
	}
	return p.Native, nil
}

var errOCRDisabled = errors.New("ocr disabled")

func (e *Extractor) ocrText(ctx context.Context, p rawPage) (string, error) {
	if e.ocr == nil {
		return "", errOCRDisabled
	}
	text, err := e.ocr.PageText(ctx, p.path, p.Number)
	if err != nil {
		return "", err
	}
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n <= config.OCRMinimumUsefulText {
		return "", fmt.Errorf("ocr text too short (%d chars)", n)
	}
	return text, nil
}

var (
	blankLineRun = regexp.MustCompile(`\n\s*\n`)
	spaceRun     = regexp.MustCompile(` +`)
	tabRun       = regexp.MustCompile(`\t+`)
)

// CleanText collapses blank-line runs to one paragraph break and squeezes spaces and tabs.
func CleanText(text string) string {
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	text = spaceRun.ReplaceAllString(text, " ")
	text = tabRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
