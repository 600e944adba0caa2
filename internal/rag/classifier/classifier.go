package classifier

import (
	"errors"
	"math"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/pdfSource"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

var errNoPages = errors.New("document has no pages")

type Classifier struct {
	samplePages int
	logger      *logger_i.Logger
}

func New(samplePages int) *Classifier {
	if samplePages < 3 {
		samplePages = config.ClassifierSamplePages
	}
	return &Classifier{
		samplePages: samplePages,
		logger:      logger_i.NewLogger("pdf_classifier"),
	}
}

// Classify never fails: unreadable files come back as unknown with the reason attached.
func (c *Classifier) Classify(path string) commonModels.Classification {
	src, err := pdfSource.Open(path)
	if err != nil {
		c.logger.Warn("classification failed", "path", path, "error", err)
		return unknown(err)
	}
	defer src.Close()
	return c.ClassifySource(src)
}

func (c *Classifier) ClassifySource(src pdfSource.Source) commonModels.Classification {
	total := src.NumPage()
	if total <= 0 {
		return unknown(errNoPages)
	}

	sampled := SamplePages(total, c.samplePages)
	var chars, withText, withImages int
	for _, page := range sampled {
		text, err := src.PageText(page)
		if err != nil {
			c.logger.Warn("classification failed", "page", page, "error", err)
			return unknown(fmt.Errorf("page %d: %w", page, err))
		}
		length := utf8.RuneCountInString(strings.TrimSpace(text))
		if length > config.ClassifierTextThreshold {
			withText++
			chars += length
		}
		if src.PageHasImages(page) {
			withImages++
		}
	}

	n := float64(len(sampled))
	density := float64(chars) / n
	textRatio := float64(withText) / n
	imageRatio := float64(withImages) / n

	pdfType := commonModels.PDFScanned
	if density > config.ClassifierDensityCutoff && textRatio > config.ClassifierTextRatio {
		pdfType = commonModels.PDFDigital
	}
	if imageRatio > config.ClassifierImageRatio && withText == 0 {
		pdfType = commonModels.PDFScanned
	}

	confidence := math.Min(textRatio*100-imageRatio*50, config.ClassifierMaxConfidence)
	confidence = math.Max(confidence, 0)

	result := commonModels.Classification{
		Type:               pdfType,
		Confidence:         round2(confidence),
		TotalPages:         total,
		PagesSampled:       len(sampled),
		PagesWithText:      withText,
		PagesWithImages:    withImages,
		AverageTextDensity: round2(density),
		TextPageRatio:      round2(textRatio),
		ImagePageRatio:     round2(imageRatio),
	}
	metrics.CaptureClassification(string(pdfType))
	c.logger.Debug("classified pdf", "type", pdfType, "confidence", result.Confidence, "sampled", len(sampled))
	return result
}

// SamplePages picks at most k pages (1-based): all of them for short documents, otherwise the
// first k-2 plus the middle and the last page.
func SamplePages(total, k int) []int {
	if total <= k {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	seen := make(map[int]bool, k)
	var pages []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	for p := 1; p <= k-2; p++ {
		add(p)
	}
	add(total/2 + 1)
	add(total)
	sort.Ints(pages)
	return pages
}

func unknown(err error) commonModels.Classification {
	metrics.CaptureClassification(string(commonModels.PDFUnknown))
	return commonModels.Classification{
		Type:       commonModels.PDFUnknown,
		Confidence: 0,
		Error:      err.Error(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
