package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/pdfSource"
	"github.com/akolanti/DocMind/pkg/fallback"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

const (
	SourceGrobid = "grobid"
	SourceBasic  = "basic"
)

type Grobid interface {
	IsAlive(ctx context.Context) bool
	ProcessFulltext(ctx context.Context, path string) (commonModels.PaperMetadata, error)
}

type request struct {
	path    string
	pdfType commonModels.PDFType
}

type Extractor struct {
	grobid    Grobid
	readProps func(path string) (pdfSource.Properties, int, error)
	chain     *fallback.Chain[request, commonModels.PaperMetadata]
	logger    *logger_i.Logger
}

// NewExtractor wires the grobid → embedded chain. A nil grobid leaves only the embedded strategy.
func NewExtractor(grobid Grobid) *Extractor {
	e := &Extractor{
		grobid:    grobid,
		readProps: embeddedProperties,
		logger:    logger_i.NewLogger("metadata_extractor"),
	}
	e.chain = fallback.New(
		fallback.Strategy[request, commonModels.PaperMetadata]{Name: SourceGrobid, Try: e.fromGrobid},
		fallback.Strategy[request, commonModels.PaperMetadata]{Name: "embedded", Try: e.fromEmbedded},
	)
	return e
}

// Extract never fails; a fully degraded result still carries the file name and size.
func (e *Extractor) Extract(ctx context.Context, path string, pdfType commonModels.PDFType) commonModels.PaperMetadata {
	log := e.logger.WithTrace(ctx).With("path", path)

	outcome, err := e.chain.Run(ctx, request{path: path, pdfType: pdfType})
	meta := outcome.Value
	if err != nil {
		log.Warn("metadata extraction degraded to file info", "error", err)
		meta = commonModels.PaperMetadata{Source: SourceBasic}
	}
	meta.Fallbacks = outcome.Skipped()
	if len(meta.Fallbacks) > 0 {
		log.Debug("metadata fallbacks", "used", outcome.Strategy, "skipped", meta.Fallbacks)
	}

	meta.FileName = filepath.Base(path)
	if info, statErr := os.Stat(path); statErr == nil {
		meta.FileSize = info.Size()
	}
	return meta
}

func (e *Extractor) fromGrobid(ctx context.Context, r request) (commonModels.PaperMetadata, error) {
	if e.grobid == nil {
		return commonModels.PaperMetadata{}, errors.New("grobid disabled")
	}
	if r.pdfType != commonModels.PDFDigital {
		return commonModels.PaperMetadata{}, fmt.Errorf("skipped for %s pdf", r.pdfType)
	}
	if !e.grobid.IsAlive(ctx) {
		return commonModels.PaperMetadata{}, errors.New("grobid not reachable")
	}
	return e.grobid.ProcessFulltext(ctx, r.path)
}

func (e *Extractor) fromEmbedded(_ context.Context, r request) (commonModels.PaperMetadata, error) {
	props, pages, err := e.readProps(r.path)
	if err != nil {
		return commonModels.PaperMetadata{}, err
	}
	meta := commonModels.PaperMetadata{
		Title:        props.Title,
		Author:       props.Author,
		Subject:      props.Subject,
		Creator:      props.Creator,
		Producer:     props.Producer,
		CreationDate: props.CreationDate,
		ModDate:      props.ModDate,
		PageCount:    pages,
		Source:       SourceBasic,
	}
	if props.Author != "" {
		meta.Authors = []string{props.Author}
	}
	return meta, nil
}

func embeddedProperties(path string) (pdfSource.Properties, int, error) {
	src, err := pdfSource.Open(path)
	if err != nil {
		return pdfSource.Properties{}, 0, err
	}
	defer src.Close()
	return src.Properties(), src.NumPage(), nil
}
