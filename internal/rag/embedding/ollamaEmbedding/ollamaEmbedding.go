package ollamaEmbedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/tmc/langchaingo/llms/ollama"
)

var (
	logger          *logger_i.Logger
	once            sync.Once
	embeddingClient *client
	initErr         error
)

type client struct {
	llm       *ollama.LLM
	model     string
	dimension int
}

// GetOllamaEmbeddingClient loads the model once per process. The default model is all-minilm (384-d).
func GetOllamaEmbeddingClient(modelName, serverURL string, dimension int) (embedding.Embedder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("ollama_embedding")
		if modelName == "" {
			modelName = config.OllamaEmbeddingModel
		}
		if serverURL == "" {
			serverURL = config.OllamaServerURL
		}
		if dimension <= 0 {
			dimension = config.LocalEmbeddingDimension
		}
		llm, err := ollama.New(ollama.WithModel(modelName), ollama.WithServerURL(serverURL))
		if err != nil {
			initErr = err
			logger.Error("failed to initialize ollama embedder", "error", err)
			return
		}
		embeddingClient = &client{llm: llm, model: modelName, dimension: dimension}
		logger.Info("Ollama Embedding client created", "model", modelName, "server", serverURL)
	})
	if embeddingClient == nil {
		return nil, fmt.Errorf("ollama embedding client unavailable: %w", initErr)
	}
	return embeddingClient, nil
}

func (c *client) Model() embedding.ModelInfo {
	return embedding.ModelInfo{Name: c.model, Dimension: c.dimension}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		logger.WithTrace(ctx).Error("Error getting Embeddings from Ollama", "error", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
