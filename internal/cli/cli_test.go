package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocMind/internal/data/registry"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type mockService struct {
	OnAsk    func(ctx context.Context, question, documentId string) (commonModels.Answer, error)
	OnIngest func(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error)
	OnList   func(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error)
	OnHealth func(ctx context.Context) rag.HealthReport
	docs     map[string]commonModels.Document
}

func (m *mockService) Ask(ctx context.Context, q string, _ []commonModels.ConversationTurn, id string) (commonModels.Answer, error) {
	return m.OnAsk(ctx, q, id)
}

func (m *mockService) Summarize(_ context.Context, id string) (commonModels.Summary, error) {
	return commonModels.Summary{DocumentId: id, DocumentTitle: "Paper", Summary: "A short summary.", KeyPoints: []string{"first"}, ChunksAnalyzed: 3}, nil
}

func (m *mockService) SuggestQuestions(_ context.Context, id string) (commonModels.QuestionSet, error) {
	return commonModels.QuestionSet{DocumentId: id, DocumentTitle: "Paper", Questions: []string{"What is new?", "How is it evaluated?"}}, nil
}

func (m *mockService) Ingest(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
	return m.OnIngest(ctx, req)
}

func (m *mockService) Reprocess(_ context.Context, id string) (commonModels.IngestOutcome, error) {
	if _, ok := m.docs[id]; !ok {
		return commonModels.IngestOutcome{DocumentId: id}, fmt.Errorf("%w: %s", commonModels.ErrNotFound, id)
	}
	return commonModels.IngestOutcome{DocumentId: id, FileName: m.docs[id].FileName, Status: commonModels.StatusCompleted, ChunkCount: 5}, nil
}

func (m *mockService) Delete(_ context.Context, id string) (bool, error) {
	_, ok := m.docs[id]
	delete(m.docs, id)
	return ok, nil
}

func (m *mockService) GetDocument(_ context.Context, id string) (commonModels.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return commonModels.Document{}, fmt.Errorf("%w: %s", commonModels.ErrNotFound, id)
	}
	return doc, nil
}

func (m *mockService) ListDocuments(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error) {
	return m.OnList(ctx, f)
}

func (m *mockService) Health(ctx context.Context) rag.HealthReport {
	return m.OnHealth(ctx)
}

// run executes the root command against svc and returns stdout.
func run(t *testing.T, svc *mockService, args ...string) (string, error) {
	t.Helper()
	original := openService
	openService = func(context.Context) (rag.Service, func(), error) { return svc, func() {}, nil }

	askDocument, listStatus, listLimit, listOffset, watchExisting = "", "", registry.DefaultListLimit, 0, false

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		openService = original
		rootCmd.SetArgs(nil)
	})

	err := Execute(context.Background())
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ingest", "ask", "summarize", "questions", "documents", "watch", "mcp", "health"} {
		assert.Contains(t, names, want)
	}

	var docNames []string
	for _, c := range documentsCmd.Commands() {
		docNames = append(docNames, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "delete", "reprocess"}, docNames)
}

func TestIngestCmd(t *testing.T) {
	t.Run("ingests every file with an absolute path", func(t *testing.T) {
		var paths []string
		svc := &mockService{OnIngest: func(_ context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
			paths = append(paths, req.Path)
			return commonModels.IngestOutcome{
				DocumentId: "doc-" + filepath.Base(req.Path),
				FileName:   filepath.Base(req.Path),
				Status:     commonModels.StatusCompleted,
				ChunkCount: 12,
			}, nil
		}}

		out, err := run(t, svc, "ingest", "a.pdf", "b.pdf")

		require.NoError(t, err)
		require.Len(t, paths, 2)
		assert.True(t, filepath.IsAbs(paths[0]))
		assert.Contains(t, out, "a.pdf")
		assert.Contains(t, out, "chunks=12")
		assert.Contains(t, out, "Ingested 2 files")
	})

	t.Run("reports failures", func(t *testing.T) {
		svc := &mockService{OnIngest: func(_ context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
			if filepath.Base(req.Path) == "bad.pdf" {
				return commonModels.IngestOutcome{}, fmt.Errorf("%w: not a PDF", commonModels.ErrValidation)
			}
			return commonModels.IngestOutcome{FileName: "good.pdf", Status: commonModels.StatusCompleted}, nil
		}}

		out, err := run(t, svc, "ingest", "good.pdf", "bad.pdf")

		assert.EqualError(t, err, "1 of 2 files failed")
		assert.Contains(t, out, "bad.pdf")
		assert.Contains(t, out, "not a PDF")
	})

	t.Run("requires an argument", func(t *testing.T) {
		_, err := run(t, &mockService{}, "ingest")
		assert.ErrorContains(t, err, "requires at least 1 arg")
	})
}

func TestAskCmd(t *testing.T) {
	var gotQuestion, gotDoc string
	svc := &mockService{OnAsk: func(_ context.Context, q, id string) (commonModels.Answer, error) {
		gotQuestion, gotDoc = q, id
		ans := commonModels.Answer{
			Question: q,
			Answer:   "Attention replaces recurrence.",
			Sources:  []commonModels.Source{{DocumentId: "doc-1", ChunkIndex: 3, Score: 0.81, ContentPreview: "We propose the Transformer"}},
		}
		ans.Metadata.LowConfidence = true
		return ans, nil
	}}

	out, err := run(t, svc, "ask", "--document", "doc-1", "what", "replaces", "recurrence?")

	require.NoError(t, err)
	assert.Equal(t, "what replaces recurrence?", gotQuestion)
	assert.Equal(t, "doc-1", gotDoc)
	assert.Contains(t, out, "Attention replaces recurrence.")
	assert.Contains(t, out, "Low confidence")
	assert.Contains(t, out, "[1] doc-1 chunk 3 (similarity 0.81)")
	assert.Contains(t, out, "We propose the Transformer")
}

func TestSummarizeAndQuestionsCmd(t *testing.T) {
	out, err := run(t, &mockService{}, "summarize", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "A short summary.")
	assert.Contains(t, out, "- first")

	out, err = run(t, &mockService{}, "questions", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "1. What is new?")
	assert.Contains(t, out, "2. How is it evaluated?")
}

func TestDocumentsCmd(t *testing.T) {
	uploaded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	newService := func() *mockService {
		return &mockService{
			docs: map[string]commonModels.Document{
				"doc-1": {Id: "doc-1", FileName: "attention.pdf", Title: "Attention Is All You Need", Status: commonModels.StatusCompleted, ChunkCount: 40, UploadedAt: uploaded},
			},
		}
	}

	t.Run("list passes the filter", func(t *testing.T) {
		svc := newService()
		var got commonModels.ListFilter
		svc.OnList = func(_ context.Context, f commonModels.ListFilter) ([]commonModels.Document, commonModels.RegistryStats, error) {
			got = f
			return []commonModels.Document{svc.docs["doc-1"]}, commonModels.RegistryStats{TotalDocuments: 7, TotalChunks: 300}, nil
		}

		out, err := run(t, svc, "documents", "list", "--status", "completed", "--limit", "5", "--offset", "2")

		require.NoError(t, err)
		assert.Equal(t, commonModels.ListFilter{Status: commonModels.StatusCompleted, Limit: 5, Offset: 2}, got)
		assert.Contains(t, out, "attention.pdf")
		assert.Contains(t, out, "Showing 1 of 7 documents")
	})

	t.Run("list rejects an unknown status", func(t *testing.T) {
		_, err := run(t, newService(), "documents", "list", "--status", "archived")
		assert.ErrorIs(t, err, commonModels.ErrValidation)
	})

	t.Run("get", func(t *testing.T) {
		out, err := run(t, newService(), "documents", "get", "doc-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Attention Is All You Need")
		assert.Contains(t, out, "2025-03-01 12:00:00")

		_, err = run(t, newService(), "documents", "get", "missing")
		assert.ErrorIs(t, err, commonModels.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		svc := newService()
		out, err := run(t, svc, "documents", "delete", "doc-1")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted doc-1")
		assert.Empty(t, svc.docs)

		_, err = run(t, svc, "documents", "delete", "doc-1")
		assert.ErrorIs(t, err, commonModels.ErrNotFound)
	})

	t.Run("reprocess", func(t *testing.T) {
		out, err := run(t, newService(), "documents", "reprocess", "doc-1")
		require.NoError(t, err)
		assert.Contains(t, out, "chunks=5")

		_, err = run(t, newService(), "documents", "reprocess", "missing")
		assert.ErrorIs(t, err, commonModels.ErrNotFound)
	})
}

func TestHealthCmd(t *testing.T) {
	svc := &mockService{OnHealth: func(context.Context) rag.HealthReport {
		return rag.HealthReport{
			Status:         rag.HealthDegraded,
			Registry:       rag.ComponentHealth{OK: true},
			Index:          rag.ComponentHealth{Error: "connection refused"},
			EmbeddingModel: "gemini-embedding-001",
			EmbeddingDim:   768,
		}
	}}

	out, err := run(t, svc, "health")

	assert.ErrorIs(t, err, errDegraded)
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "GROBID:    disabled")
}

func TestPDFWatcher_IngestsSettledPDFs(t *testing.T) {
	dir := t.TempDir()
	var (
		mu       sync.Mutex
		ingested []string
	)
	pw := newPDFWatcher(50*time.Millisecond, func(_ context.Context, path string) {
		mu.Lock()
		defer mu.Unlock()
		ingested = append(ingested, filepath.Base(path))
	})

	fw, err := pw.watch(dir)
	require.NoError(t, err)
	defer fw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pw.loop(ctx, fw)
		close(done)
	}()

	pdf := filepath.Join(dir, "paper.PDF")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0o600))
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\nmore"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"paper.PDF"}, ingested)
	mu.Unlock()

	cancel()
	<-done
}

func TestPDFWatcher_RejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := newPDFWatcher(time.Millisecond, nil).watch(file)
	assert.ErrorContains(t, err, "not a directory")
}
