package rag_test

import (
	"context"
	"sync"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/internal/rag/retrieval"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
)

// MockRegistry implements commonModels.DocumentRegistry
type MockRegistry struct {
	OnGet    func(ctx context.Context, id string) (commonModels.Document, bool, error)
	OnDelete func(ctx context.Context, id string) (bool, error)
	OnPing   func(ctx context.Context) error
}

func (m *MockRegistry) Insert(ctx context.Context, doc commonModels.Document) (string, bool, error) {
	return "doc-1", false, nil
}

func (m *MockRegistry) UpdateStatus(ctx context.Context, id string, u commonModels.StatusUpdate) error {
	return nil
}

func (m *MockRegistry) Get(ctx context.Context, id string) (commonModels.Document, bool, error) {
	if m.OnGet != nil {
		return m.OnGet(ctx, id)
	}
	return commonModels.Document{Id: id, FileName: "paper.pdf", Title: "Attention Is All You Need", Authors: "Vaswani"}, true, nil
}

func (m *MockRegistry) List(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, error) {
	return nil, nil
}

func (m *MockRegistry) Delete(ctx context.Context, id string) (bool, error) {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, id)
	}
	return true, nil
}

func (m *MockRegistry) Stats(ctx context.Context) (commonModels.RegistryStats, error) {
	return commonModels.RegistryStats{TotalDocuments: 1}, nil
}

func (m *MockRegistry) Ping(ctx context.Context) error {
	if m.OnPing != nil {
		return m.OnPing(ctx)
	}
	return nil
}

// MockIndex implements vectorDB.Index
type MockIndex struct {
	OnDeleteDocument func(ctx context.Context, id string) error
	OnHeartbeat      func(ctx context.Context) error
}

func (m *MockIndex) EnsureCollection(ctx context.Context) error { return nil }
func (m *MockIndex) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error {
	return nil
}
func (m *MockIndex) Query(ctx context.Context, v []float32, topN int, id string) ([]vectorDB.Hit, error) {
	return nil, nil
}
func (m *MockIndex) CountDocument(ctx context.Context, id string) (int, error) { return 0, nil }
func (m *MockIndex) Metric() vectorDB.Metric                                  { return vectorDB.MetricCosine }

func (m *MockIndex) DeleteDocument(ctx context.Context, id string) error {
	if m.OnDeleteDocument != nil {
		return m.OnDeleteDocument(ctx, id)
	}
	return nil
}

func (m *MockIndex) Heartbeat(ctx context.Context) error {
	if m.OnHeartbeat != nil {
		return m.OnHeartbeat(ctx)
	}
	return nil
}

// MockCache implements vectorDB.AnswerCache
type MockCache struct {
	OnLookup func(ctx context.Context, v []float32, scope string) (commonModels.Answer, bool, error)
	Stored   chan commonModels.Answer

	mu           sync.Mutex
	Invalidated  []string
	StoredScopes []string
}

func (m *MockCache) Lookup(ctx context.Context, v []float32, scope string) (commonModels.Answer, bool, error) {
	if m.OnLookup != nil {
		return m.OnLookup(ctx, v, scope)
	}
	return commonModels.Answer{}, false, nil
}

func (m *MockCache) Store(ctx context.Context, v []float32, scope string, answer commonModels.Answer) error {
	m.mu.Lock()
	m.StoredScopes = append(m.StoredScopes, scope)
	m.mu.Unlock()
	if m.Stored != nil {
		m.Stored <- answer
	}
	return nil
}

func (m *MockCache) Invalidate(ctx context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, scope)
	return nil
}

// MockEmbedder implements rag.QueryEncoder
type MockEmbedder struct {
	OnEmbedQuery func(ctx context.Context, query string) ([]float32, error)
	Queries      []string
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	m.Queries = append(m.Queries, query)
	if m.OnEmbedQuery != nil {
		return m.OnEmbedQuery(ctx, query)
	}
	return []float32{1, 0}, nil
}

func (m *MockEmbedder) Model() embedding.ModelInfo {
	return embedding.ModelInfo{Name: "mock-embedding", Dimension: 2}
}

// MockSearcher implements rag.Searcher
type MockSearcher struct {
	OnSearch func(ctx context.Context, query string, v []float32, documentId string) (retrieval.Result, error)
}

func (m *MockSearcher) Search(ctx context.Context, query string, v []float32, documentId string) (retrieval.Result, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, query, v, documentId)
	}
	return retrieval.Result{Query: query, Vector: v, Chunks: defaultChunks(documentId)}, nil
}

func defaultChunks(documentId string) []commonModels.RetrievedChunk {
	if documentId == "" {
		documentId = "doc-1"
	}
	return []commonModels.RetrievedChunk{
		{Chunk: commonModels.DocChunk{DocumentId: documentId, Index: 0, Content: "The Transformer relies entirely on attention."}, Score: 0.9},
		{Chunk: commonModels.DocChunk{DocumentId: documentId, Index: 3, Content: "It reaches 28.4 BLEU on WMT 2014 English-German."}, Score: 0.7},
	}
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, prompt string) (llm.Completion, error)
	Prompts    []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return llm.Completion{Text: "mocked llm response", Model: "mock-llm", TokensUsed: 42}, nil
}

func (m *MockLLM) ModelName() string { return "mock-llm" }

// MockIngester implements rag.Ingester
type MockIngester struct {
	OnProcess   func(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error)
	OnReprocess func(ctx context.Context, id string) (commonModels.IngestOutcome, error)
}

func (m *MockIngester) Process(ctx context.Context, req ingest.Request) (commonModels.IngestOutcome, error) {
	if m.OnProcess != nil {
		return m.OnProcess(ctx, req)
	}
	return commonModels.IngestOutcome{DocumentId: "doc-1", Status: commonModels.StatusCompleted}, nil
}

func (m *MockIngester) Reprocess(ctx context.Context, id string) (commonModels.IngestOutcome, error) {
	if m.OnReprocess != nil {
		return m.OnReprocess(ctx, id)
	}
	return commonModels.IngestOutcome{DocumentId: id, Status: commonModels.StatusCompleted}, nil
}

type MockGrobid struct{ Alive bool }

func (m *MockGrobid) IsAlive(ctx context.Context) bool { return m.Alive }
