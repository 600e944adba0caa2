package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/chunker"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/DocMind/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocMind/internal/testsupport/pdfFixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeRegistry struct {
	docs     map[string]commonModels.Document
	statuses []commonModels.ProcessingStatus
	OnInsert func(doc commonModels.Document) (string, bool, error)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{docs: map[string]commonModels.Document{}}
}

func (r *fakeRegistry) Insert(_ context.Context, doc commonModels.Document) (string, bool, error) {
	if r.OnInsert != nil {
		return r.OnInsert(doc)
	}
	for id, d := range r.docs {
		if d.FileName == doc.FileName {
			return id, true, nil
		}
	}
	doc.Id = fmt.Sprintf("doc-%d", len(r.docs)+1)
	r.docs[doc.Id] = doc
	return doc.Id, false, nil
}

func (r *fakeRegistry) UpdateStatus(_ context.Context, id string, u commonModels.StatusUpdate) error {
	d, ok := r.docs[id]
	if !ok {
		return errors.New("unknown document")
	}
	d.Status, d.ChunkCount, d.HasEmbeddings = u.Status, u.ChunkCount, u.HasEmbeddings
	r.docs[id] = d
	r.statuses = append(r.statuses, u.Status)
	return nil
}

func (r *fakeRegistry) Get(_ context.Context, id string) (commonModels.Document, bool, error) {
	d, ok := r.docs[id]
	return d, ok, nil
}

func (r *fakeRegistry) List(context.Context, commonModels.ListFilter) ([]commonModels.Document, error) {
	return nil, nil
}

func (r *fakeRegistry) Delete(_ context.Context, id string) (bool, error) {
	_, ok := r.docs[id]
	delete(r.docs, id)
	return ok, nil
}

func (r *fakeRegistry) Stats(context.Context) (commonModels.RegistryStats, error) {
	return commonModels.RegistryStats{TotalDocuments: len(r.docs)}, nil
}

func (r *fakeRegistry) Ping(context.Context) error { return nil }

type stubClassifier struct{ pdfType commonModels.PDFType }

func (s stubClassifier) Classify(string) commonModels.Classification {
	return commonModels.Classification{Type: s.pdfType, Confidence: 0.9}
}

type mockExtractor struct {
	OnExtract func(ctx context.Context, path string) (Extraction, error)
}

func (m *mockExtractor) Extract(ctx context.Context, path string) (Extraction, error) {
	return m.OnExtract(ctx, path)
}

type stubMetadata struct{ meta commonModels.PaperMetadata }

func (s stubMetadata) Extract(context.Context, string, commonModels.PDFType) commonModels.PaperMetadata {
	return s.meta
}

type mockEncoder struct {
	OnEncodeChunks func(ctx context.Context, chunks []commonModels.DocChunk) ([]commonModels.DocChunk, error)
}

func (m *mockEncoder) EncodeChunks(ctx context.Context, chunks []commonModels.DocChunk) ([]commonModels.DocChunk, error) {
	return m.OnEncodeChunks(ctx, chunks)
}

type failingUpsert struct {
	*memoryDB.Index
}

func (f failingUpsert) UpsertBatch(context.Context, []commonModels.DocChunk) error {
	return errors.New("disk full")
}

type mockCache struct {
	invalidated []string
}

func (m *mockCache) Lookup(context.Context, []float32, string) (commonModels.Answer, bool, error) {
	return commonModels.Answer{}, false, nil
}
func (m *mockCache) Store(context.Context, []float32, string, commonModels.Answer) error { return nil }
func (m *mockCache) Invalidate(_ context.Context, scope string) error {
	m.invalidated = append(m.invalidated, scope)
	return nil
}

// --- helpers ---

const paperText = "Abstract. We study retrieval for long research papers. " +
	"Dense retrieval maps passages and questions into a shared vector space. "

func writePaper(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, pdfFixture.Write(path, "Dense Retrieval", "Ada Lovelace", []pdfFixture.Page{
		{Text: paperText}, {Text: paperText},
	}))
	return path
}

func textExtractor(text string) *mockExtractor {
	return &mockExtractor{OnExtract: func(context.Context, string) (Extraction, error) {
		return Extraction{Text: text, Stats: commonModels.ExtractionStats{TotalPages: 2, PagesProcessed: 2}}, nil
	}}
}

func newTestPipeline(t *testing.T, reg *fakeRegistry, idx *memoryDB.Index, ext TextExtractor) *Pipeline {
	t.Helper()
	presets, err := chunker.NewPresets(config.Defaults().Chunking)
	require.NoError(t, err)
	return NewPipeline(Deps{
		Registry:   reg,
		Classifier: stubClassifier{pdfType: commonModels.PDFDigital},
		Extractor:  ext,
		Metadata: stubMetadata{meta: commonModels.PaperMetadata{
			Title:           "Dense Retrieval",
			Authors:         []string{"Ada Lovelace", "Alan Turing"},
			AppearsAcademic: true,
			Source:          "grobid",
		}},
		Presets: presets,
		Encoder: embedding.NewGenerator(localEmbedding.New(32), 100),
		Index:   idx,
	})
}

// --- tests ---

func TestProcess_Success(t *testing.T) {
	reg, idx := newFakeRegistry(), memoryDB.New()
	p := newTestPipeline(t, reg, idx, textExtractor(strings.Repeat(paperText, 60)))
	path := writePaper(t)

	out, err := p.Process(context.Background(), Request{Path: path, FileName: "dense.pdf"})
	require.NoError(t, err)

	assert.Equal(t, commonModels.StatusCompleted, out.Status)
	assert.False(t, out.Existed)
	assert.Positive(t, out.ChunkCount)
	assert.Equal(t, []commonModels.ProcessingStatus{commonModels.StatusPartial, commonModels.StatusCompleted}, reg.statuses)

	doc := reg.docs[out.DocumentId]
	assert.Equal(t, "dense.pdf", doc.FileName)
	assert.Equal(t, "Ada Lovelace, Alan Turing", doc.Authors)
	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, path, doc.StoragePath)
	assert.Equal(t, out.ChunkCount, doc.ChunkCount)
	assert.True(t, doc.HasEmbeddings)

	n, err := idx.CountDocument(context.Background(), out.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, out.ChunkCount, n)

	hits, err := idx.Query(context.Background(), mustEmbed(t, "dense retrieval"), 1, out.DocumentId)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, commonModels.ChunkResearch, hits[0].Chunk.Strategy)
	assert.Equal(t, localEmbedding.ModelName, hits[0].Chunk.EmbeddingModel)
}

func mustEmbed(t *testing.T, q string) []float32 {
	t.Helper()
	v, err := embedding.NewGenerator(localEmbedding.New(32), 100).EmbedQuery(context.Background(), q)
	require.NoError(t, err)
	return v
}

func TestProcess_ReprocessLeavesOnlyNewChunks(t *testing.T) {
	reg, idx := newFakeRegistry(), memoryDB.New()
	cache := &mockCache{}
	p := newTestPipeline(t, reg, idx, textExtractor(strings.Repeat(paperText, 60)))
	p.Cache = cache
	path := writePaper(t)

	first, err := p.Process(context.Background(), Request{Path: path})
	require.NoError(t, err)

	p.Extractor = textExtractor(paperText)
	second, err := p.Process(context.Background(), Request{Path: path})
	require.NoError(t, err)

	assert.True(t, second.Existed)
	assert.Equal(t, first.DocumentId, second.DocumentId)
	assert.Less(t, second.ChunkCount, first.ChunkCount)

	n, err := idx.CountDocument(context.Background(), second.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, second.ChunkCount, n)
	assert.Equal(t, []string{first.DocumentId, first.DocumentId}, cache.invalidated)
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(p *Pipeline)
		path       func(t *testing.T) string
		wantErr    error
		wantStatus commonModels.ProcessingStatus
		wantSteps  []commonModels.ProcessingStatus
	}{
		{
			name:       "not a pdf",
			path:       func(t *testing.T) string { return filepath.Join(t.TempDir(), "notes.docx") },
			wantErr:    commonModels.ErrValidation,
			wantStatus: commonModels.StatusFailed,
		},
		{
			name: "no text",
			configure: func(p *Pipeline) {
				p.Extractor = &mockExtractor{OnExtract: func(context.Context, string) (Extraction, error) {
					return Extraction{}, fmt.Errorf("%w: no text", commonModels.ErrExtraction)
				}}
			},
			wantErr:    commonModels.ErrExtraction,
			wantStatus: commonModels.StatusFailed,
		},
		{
			name:       "zero chunks",
			configure:  func(p *Pipeline) { p.Extractor = textExtractor("   ") },
			wantErr:    commonModels.ErrChunking,
			wantStatus: commonModels.StatusFailed,
			wantSteps:  []commonModels.ProcessingStatus{commonModels.StatusFailed},
		},
		{
			name: "embedding failure",
			configure: func(p *Pipeline) {
				p.Encoder = &mockEncoder{OnEncodeChunks: func(context.Context, []commonModels.DocChunk) ([]commonModels.DocChunk, error) {
					return nil, fmt.Errorf("%w: quota", commonModels.ErrEmbedding)
				}}
			},
			wantErr:    commonModels.ErrEmbedding,
			wantStatus: commonModels.StatusPartial,
			wantSteps:  []commonModels.ProcessingStatus{commonModels.StatusPartial},
		},
		{
			name:       "storage failure",
			configure:  func(p *Pipeline) { p.Index = failingUpsert{memoryDB.New()} },
			wantErr:    commonModels.ErrStorage,
			wantStatus: commonModels.StatusPartial,
			wantSteps:  []commonModels.ProcessingStatus{commonModels.StatusPartial},
		},
		{
			name: "registry down",
			configure: func(p *Pipeline) {
				p.Registry.(*fakeRegistry).OnInsert = func(commonModels.Document) (string, bool, error) {
					return "", false, errors.New("connection refused")
				}
			},
			wantErr:    commonModels.ErrRegistry,
			wantStatus: commonModels.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFakeRegistry()
			p := newTestPipeline(t, reg, memoryDB.New(), textExtractor(strings.Repeat(paperText, 10)))
			if tt.configure != nil {
				tt.configure(p)
			}
			path := writePaper(t)
			if tt.path != nil {
				path = tt.path(t)
			}

			out, err := p.Process(context.Background(), Request{Path: path})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.NotEmpty(t, out.Error)
			assert.Equal(t, tt.wantSteps, reg.statuses)
		})
	}
}

func TestReprocess(t *testing.T) {
	reg, idx := newFakeRegistry(), memoryDB.New()
	p := newTestPipeline(t, reg, idx, textExtractor(strings.Repeat(paperText, 20)))
	out, err := p.Process(context.Background(), Request{Path: writePaper(t)})
	require.NoError(t, err)

	again, err := p.Reprocess(context.Background(), out.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, commonModels.StatusCompleted, again.Status)
	assert.Equal(t, out.ChunkCount, again.ChunkCount)

	n, err := idx.CountDocument(context.Background(), out.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, out.ChunkCount, n)
}

func TestReprocess_UnknownDocument(t *testing.T) {
	p := newTestPipeline(t, newFakeRegistry(), memoryDB.New(), textExtractor(paperText))
	_, err := p.Reprocess(context.Background(), "missing")
	assert.ErrorIs(t, err, commonModels.ErrNotFound)
}

func TestReprocess_ExtractionFailureMarksFailed(t *testing.T) {
	reg, idx, cache := newFakeRegistry(), memoryDB.New(), &mockCache{}
	p := newTestPipeline(t, reg, idx, textExtractor(strings.Repeat(paperText, 20)))
	out, err := p.Process(context.Background(), Request{Path: writePaper(t)})
	require.NoError(t, err)
	require.Positive(t, out.ChunkCount)
	p.Cache = cache

	p.Extractor = &mockExtractor{OnExtract: func(context.Context, string) (Extraction, error) {
		return Extraction{}, fmt.Errorf("%w: nothing readable", commonModels.ErrExtraction)
	}}
	_, err = p.Reprocess(context.Background(), out.DocumentId)
	assert.ErrorIs(t, err, commonModels.ErrExtraction)
	assert.Equal(t, commonModels.StatusFailed, reg.docs[out.DocumentId].Status)

	n, err := idx.CountDocument(context.Background(), out.DocumentId)
	require.NoError(t, err)
	assert.Zero(t, n, "old chunks of a failed document are dropped")
	assert.Equal(t, []string{out.DocumentId}, cache.invalidated)
}

func TestProcess_ReingestWithoutChunksDropsOldChunks(t *testing.T) {
	reg, idx := newFakeRegistry(), memoryDB.New()
	p := newTestPipeline(t, reg, idx, textExtractor(strings.Repeat(paperText, 20)))
	path := writePaper(t)
	first, err := p.Process(context.Background(), Request{Path: path})
	require.NoError(t, err)

	p.Extractor = textExtractor("   ")
	again, err := p.Process(context.Background(), Request{Path: path})
	assert.ErrorIs(t, err, commonModels.ErrChunking)
	assert.True(t, again.Existed)
	assert.Equal(t, commonModels.StatusFailed, reg.docs[first.DocumentId].Status)

	n, err := idx.CountDocument(context.Background(), first.DocumentId)
	require.NoError(t, err)
	assert.Zero(t, n)
}
