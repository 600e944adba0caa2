package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/chunker"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

type Classifier interface {
	Classify(path string) commonModels.Classification
}

type TextExtractor interface {
	Extract(ctx context.Context, path string) (Extraction, error)
}

type MetadataExtractor interface {
	Extract(ctx context.Context, path string, pdfType commonModels.PDFType) commonModels.PaperMetadata
}

type ChunkEncoder interface {
	EncodeChunks(ctx context.Context, chunks []commonModels.DocChunk) ([]commonModels.DocChunk, error)
}

// Deps wires the pipeline. Cache is optional.
type Deps struct {
	Registry   commonModels.DocumentRegistry
	Classifier Classifier
	Extractor  TextExtractor
	Metadata   MetadataExtractor
	Presets    *chunker.Presets
	Encoder    ChunkEncoder
	Index      vectorDB.Index
	Cache      vectorDB.AnswerCache
	MaxBytes   int64
}

type Request struct {
	Path string
	// FileName is the registry key, the base of Path when empty.
	FileName string
}

type Pipeline struct {
	Deps
	logger *logger_i.Logger
}

func NewPipeline(d Deps) *Pipeline {
	if d.MaxBytes <= 0 {
		d.MaxBytes = config.MaxUploadBytes
	}
	return &Pipeline{Deps: d, logger: logger_i.NewLogger("ingest_pipeline")}
}

// Process runs validate, classify, extract, metadata, register, then chunk and store.
// The outcome is filled as far as the pipeline got, also on error.
func (p *Pipeline) Process(ctx context.Context, req Request) (commonModels.IngestOutcome, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.Path)
	}
	log := p.logger.WithTrace(ctx).With("file", fileName)
	out := commonModels.IngestOutcome{FileName: fileName}

	v, err := ValidateFile(req.Path, p.MaxBytes)
	if err != nil {
		return p.reject(log, out, err)
	}

	out.Classification = p.Classifier.Classify(req.Path)
	log.Debug("classified", "type", out.Classification.Type, "confidence", out.Classification.Confidence)

	ext, err := p.Extractor.Extract(ctx, req.Path)
	if err != nil {
		return p.reject(log, out, err)
	}
	out.Extraction = ext.Stats

	meta := p.Metadata.Extract(ctx, req.Path, out.Classification.Type)
	meta.FileName = fileName
	if len(meta.Fallbacks) > 0 {
		log.Warn("metadata degraded", "source", meta.Source, "skipped", meta.Fallbacks)
	}
	out.Metadata = meta

	id, existed, err := p.Registry.Insert(ctx, commonModels.Document{
		FileName:        fileName,
		Title:           meta.Title,
		Authors:         strings.Join(meta.Authors, ", "),
		PageCount:       v.PageCount,
		PublicationDate: meta.CreationDate,
		FileSize:        v.FileSize,
		StoragePath:     req.Path,
		PDFType:         out.Classification.Type,
		Status:          commonModels.StatusPending,
		UploadedAt:      time.Now().UTC(),
	})
	if err != nil {
		return p.reject(log, out, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err))
	}
	out.DocumentId, out.Existed = id, existed
	log = log.With("documentId", id)
	if existed {
		log.Info("document already registered, replacing its chunks")
	}

	return p.store(ctx, log, out, ext.Text, meta.AppearsAcademic)
}

// Reprocess re-runs extraction and storage for a registered document from its stored upload.
func (p *Pipeline) Reprocess(ctx context.Context, documentId string) (commonModels.IngestOutcome, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_reprocess", time.Since(start)) }()
	log := p.logger.WithTrace(ctx).With("documentId", documentId)

	doc, found, err := p.Registry.Get(ctx, documentId)
	if err != nil {
		return commonModels.IngestOutcome{DocumentId: documentId}, fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	if !found {
		return commonModels.IngestOutcome{DocumentId: documentId}, fmt.Errorf("%w: %s", commonModels.ErrNotFound, documentId)
	}
	out := commonModels.IngestOutcome{DocumentId: doc.Id, FileName: doc.FileName, Existed: true}

	if _, err := ValidateFile(doc.StoragePath, p.MaxBytes); err != nil {
		return p.markFailed(ctx, log, out, err)
	}
	out.Classification = p.Classifier.Classify(doc.StoragePath)

	ext, err := p.Extractor.Extract(ctx, doc.StoragePath)
	if err != nil {
		return p.markFailed(ctx, log, out, err)
	}
	out.Extraction = ext.Stats

	meta := p.Metadata.Extract(ctx, doc.StoragePath, out.Classification.Type)
	meta.FileName = doc.FileName
	out.Metadata = meta

	return p.store(ctx, log, out, ext.Text, meta.AppearsAcademic)
}

// store chunks the text and replaces the document's index entries.
// Status goes partial before the delete and completed only after the upsert.
func (p *Pipeline) store(ctx context.Context, log *logger_i.Logger, out commonModels.IngestOutcome, text string, academic bool) (commonModels.IngestOutcome, error) {
	c := p.Presets.For(academic)
	chunks, err := c.Chunk(out.DocumentId, text)
	if err != nil {
		return p.markFailed(ctx, log, out, err)
	}
	if len(chunks) == 0 {
		return p.markFailed(ctx, log, out, fmt.Errorf("%w: text produced no chunks", commonModels.ErrChunking))
	}
	log.Debug("chunked", "strategy", c.Strategy(), "chunks", len(chunks))

	if err := p.setStatus(ctx, out.DocumentId, 0, false, commonModels.StatusPartial); err != nil {
		return p.reject(log, out, err)
	}
	out.Status = commonModels.StatusPartial

	if err := p.Index.DeleteDocument(ctx, out.DocumentId); err != nil {
		return p.partial(log, out, fmt.Errorf("%w: %v", commonModels.ErrStorage, err))
	}
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, out.DocumentId); err != nil {
			log.Warn("answer cache invalidation failed", "error", err)
		}
	}

	encoded, err := p.Encoder.EncodeChunks(ctx, chunks)
	if err != nil {
		return p.partial(log, out, err)
	}
	if err := p.Index.UpsertBatch(ctx, encoded); err != nil {
		return p.partial(log, out, fmt.Errorf("%w: %v", commonModels.ErrStorage, err))
	}

	if err := p.setStatus(ctx, out.DocumentId, len(encoded), true, commonModels.StatusCompleted); err != nil {
		return p.partial(log, out, err)
	}
	out.Status = commonModels.StatusCompleted
	out.ChunkCount = len(encoded)
	metrics.CaptureChunksStored(len(encoded))
	metrics.CaptureDocumentProcessed(string(commonModels.StatusCompleted))
	log.Info("document processed", "chunks", len(encoded), "strategy", c.Strategy())
	return out, nil
}

func (p *Pipeline) setStatus(ctx context.Context, id string, chunkCount int, hasEmbeddings bool, status commonModels.ProcessingStatus) error {
	err := p.Registry.UpdateStatus(ctx, id, commonModels.StatusUpdate{
		ChunkCount:    chunkCount,
		HasEmbeddings: hasEmbeddings,
		Status:        status,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", commonModels.ErrRegistry, err)
	}
	return nil
}

// reject reports a failure that happened before the document had stored chunks.
func (p *Pipeline) reject(log *logger_i.Logger, out commonModels.IngestOutcome, err error) (commonModels.IngestOutcome, error) {
	log.Error("ingestion rejected", "error", err)
	out.Error = err.Error()
	if out.Status == "" {
		out.Status = commonModels.StatusFailed
	}
	metrics.CaptureDocumentProcessed(string(out.Status))
	return out, err
}

// markFailed also drops the chunks of an earlier run so a failed document stops answering queries.
func (p *Pipeline) markFailed(ctx context.Context, log *logger_i.Logger, out commonModels.IngestOutcome, err error) (commonModels.IngestOutcome, error) {
	if out.DocumentId != "" {
		if derr := p.Index.DeleteDocument(ctx, out.DocumentId); derr != nil {
			log.Error("could not drop chunks of failed document", "error", derr)
		}
		if p.Cache != nil {
			if cerr := p.Cache.Invalidate(ctx, out.DocumentId); cerr != nil {
				log.Warn("answer cache invalidation failed", "error", cerr)
			}
		}
		if serr := p.setStatus(ctx, out.DocumentId, 0, false, commonModels.StatusFailed); serr != nil {
			log.Error("could not mark document failed", "error", serr)
		}
	}
	out.Status = commonModels.StatusFailed
	return p.reject(log, out, err)
}

// partial leaves the document re-processable in the partial state.
func (p *Pipeline) partial(log *logger_i.Logger, out commonModels.IngestOutcome, err error) (commonModels.IngestOutcome, error) {
	out.Status = commonModels.StatusPartial
	return p.reject(log, out, err)
}

// RemoveUpload deletes an upload. A file that is already gone is not an error.
func RemoveUpload(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// InUploadDir reports whether path lives under the upload directory dir.
// Files ingested in place from the CLI sit elsewhere and belong to the user.
func InUploadDir(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
