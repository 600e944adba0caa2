package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/data/redisStore"
	"github.com/akolanti/DocMind/internal/data/registry"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag"
	"github.com/akolanti/DocMind/internal/rag/chunker"
	"github.com/akolanti/DocMind/internal/rag/classifier"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocMind/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/DocMind/internal/rag/embedding/ollamaEmbedding"
	"github.com/akolanti/DocMind/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocMind/internal/rag/ingest"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/internal/rag/llm/gemini"
	"github.com/akolanti/DocMind/internal/rag/llm/openRouter"
	"github.com/akolanti/DocMind/internal/rag/metadata"
	"github.com/akolanti/DocMind/internal/rag/ocr"
	"github.com/akolanti/DocMind/internal/rag/retrieval"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/DocMind/internal/rag/vectorDB/pgvectorDB"
	"github.com/akolanti/DocMind/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

// App is the wired service plus the handles that need closing on shutdown.
type App struct {
	Service  rag.Service
	Registry commonModels.DocumentRegistry
	Index    vectorDB.Index

	closers []func() error
	logger  *logger_i.Logger
}

// Close releases every backend that was opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// LLMFactory builds the answer model. Tests replace it to avoid network calls.
type LLMFactory func(ctx context.Context, s config.LLMSettings) (llm.Provider, error)

type Option func(*builder)

func WithLLM(f LLMFactory) Option {
	return func(b *builder) { b.newLLM = f }
}

type builder struct {
	newLLM LLMFactory
}

// New wires the whole pipeline from settings. On error every backend opened so far is closed.
func New(ctx context.Context, s *config.Settings, opts ...Option) (*App, error) {
	b := &builder{newLLM: NewLLM}
	for _, opt := range opts {
		opt(b)
	}

	app := &App{logger: logger_i.NewLogger("bootstrap")}
	app.logger.Info("wiring services",
		"registry", s.Registry.Backend, "vector", s.Vector.Backend,
		"embedding", s.Embedding.Provider, "llm", s.LLM.Provider)

	svc, err := b.build(ctx, s, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Service = svc
	return app, nil
}

func (b *builder) build(ctx context.Context, s *config.Settings, app *App) (rag.Service, error) {
	embedder, err := NewEmbedder(ctx, s.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	generator := embedding.NewGenerator(embedder, s.Embedding.BatchSize)
	dimension := generator.Model().Dimension

	index, cache, err := openIndex(ctx, s.Vector, dimension, app)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w", err)
	}
	app.Index = index

	reg, err := openRegistry(ctx, s.Registry, app)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	app.Registry = reg

	provider, err := b.newLLM(ctx, s.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	opts, err := retrieval.OptionsFrom(s.Retrieval)
	if err != nil {
		return nil, err
	}
	retriever, err := retrieval.New(generator, index, opts)
	if err != nil {
		return nil, err
	}

	presets, err := chunker.NewPresets(s.Chunking)
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}

	deps := rag.Deps{
		Registry:     reg,
		Index:        index,
		Embedder:     generator,
		Searcher:     retriever,
		Cache:        cache,
		LLM:          provider,
		HistoryTurns: s.Retrieval.HistoryTurns,
		UploadDir:    s.Server.UploadDir,
	}

	var grobid metadata.Grobid
	if s.Grobid.Enabled {
		client := metadata.NewGrobidClient(s.Grobid.URL)
		grobid = client
		deps.Grobid = client
	}

	pipelineDeps := ingest.Deps{
		Registry:   reg,
		Classifier: classifier.New(s.Classifier.SamplePages),
		Extractor:  ingest.NewExtractor(newOCR(s.OCR)),
		Metadata:   metadata.NewExtractor(grobid),
		Presets:    presets,
		Encoder:    generator,
		Index:      index,
		Cache:      cache,
		MaxBytes:   int64(s.Server.MaxUploadMB) << 20,
	}
	deps.Pipeline = ingest.NewPipeline(pipelineDeps)

	return rag.NewService(deps), nil
}

// NewEmbedder picks the provider. An empty model falls back to the provider's default.
func NewEmbedder(ctx context.Context, s config.EmbeddingSettings) (embedding.Embedder, error) {
	model := s.Model
	switch s.Provider {
	case "gemini":
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, modelOr(model, config.GoogleEmbeddingModel, ""), s.APIKey, s.Dimension)
	case "openai":
		return openaiEmbedding.GetOpenAIEmbeddingClient(modelOr(model, config.OpenAIEmbeddingModel, config.GoogleEmbeddingModel), s.APIKey, s.Dimension)
	case "ollama":
		return ollamaEmbedding.GetOllamaEmbeddingClient(modelOr(model, config.OllamaEmbeddingModel, config.GoogleEmbeddingModel), s.OllamaURL, smallDimension(s.Dimension))
	case "local":
		return localEmbedding.Get(smallDimension(s.Dimension)), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", s.Provider)
}

// modelOr treats the other provider's default as unset, since it is what viper fills in.
func modelOr(model, fallback, foreignDefault string) string {
	if model == "" || (foreignDefault != "" && model == foreignDefault) {
		return fallback
	}
	return model
}

// smallDimension maps the Gemini default onto the size of the small sentence models.
func smallDimension(d int) int {
	if d == int(config.EmbeddingOutputDimensionality) {
		return config.LocalEmbeddingDimension
	}
	return d
}

// NewLLM builds the configured answer model.
func NewLLM(ctx context.Context, s config.LLMSettings) (llm.Provider, error) {
	switch s.Provider {
	case "gemini":
		return gemini.GetGeminiClient(ctx, s)
	case "openrouter":
		return openRouter.GetOpenRouterClient(s)
	}
	return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
}

func openIndex(ctx context.Context, s config.VectorSettings, dimension int, app *App) (vectorDB.Index, vectorDB.AnswerCache, error) {
	switch s.Backend {
	case "qdrant":
		holder, err := qdrantDB.GetQuadrantClient(ctx, s, dimension)
		if err != nil {
			return nil, nil, err
		}
		if !s.Cache {
			return holder, nil, nil
		}
		cache, err := qdrantDB.NewSemanticCache(ctx, holder)
		if err != nil {
			app.logger.Warn("semantic cache disabled", "error", err)
			return holder, nil, nil
		}
		return holder, cache, nil
	case "pgvector":
		store, err := pgvectorDB.GetStore(ctx, s.PostgresDSN, s.Collection, dimension)
		if err != nil {
			return nil, nil, err
		}
		app.onClose(func() error { store.Close(); return nil })
		return store, nil, nil
	case "memory":
		return memoryDB.New(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown vector backend %q", s.Backend)
}

func openRegistry(ctx context.Context, s config.RegistrySettings, app *App) (commonModels.DocumentRegistry, error) {
	switch s.Backend {
	case "redis":
		store := redisStore.GetRedisStore(ctx, config.RedisRegistryStore)
		if store == nil {
			return nil, errors.New("redis is offline")
		}
		return registry.NewRedis(store), nil
	case "postgres":
		reg, err := registry.NewPostgres(ctx, s.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.onClose(func() error { reg.Close(); return nil })
		return reg, nil
	case "sqlite":
		reg, err := registry.NewSQLite(s.SQLitePath)
		if err != nil {
			return nil, err
		}
		app.onClose(reg.Close)
		return reg, nil
	case "memory":
		return registry.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown registry backend %q", s.Backend)
}

// newOCR returns nil when OCR is off so scanned pages keep their native text.
func newOCR(s config.OCRSettings) ingest.PageOCR {
	if !s.Enabled {
		return nil
	}
	return ocr.NewService(
		ocr.NewPopplerRasterizer(s.RasterizerBinary),
		ocr.NewTesseractEngine(s.TesseractBinary, s.Language),
		s.Scale,
		config.OCRPageTimeout,
	)
}
