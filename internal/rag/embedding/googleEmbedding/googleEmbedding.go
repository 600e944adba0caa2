package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/akolanti/DocMind/pkg/retry"
	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client
var initErr error

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	retry     retry.Config
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int32) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		initErr = err
		return
	}
	rc := retry.DefaultConfig()
	rc.Retryable = doRetry
	rc.Logger = logger
	embeddingClient = &client{
		genAi:     c,
		model:     modelName,
		dimension: dimension,
		retry:     rc,
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
}

// GetGoogleEmbeddingClient loads the model once per process.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int) (embedding.Embedder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		if modelName == "" {
			modelName = config.GoogleEmbeddingModel
		}
		if dimension <= 0 {
			dimension = int(config.EmbeddingOutputDimensionality)
		}
		newGoogleEmbedder(ctx, modelName, apikey, int32(dimension))
	})
	if embeddingClient == nil {
		return nil, fmt.Errorf("google embedding client unavailable: %w", initErr)
	}
	return embeddingClient, nil
}

func (c *client) Model() embedding.ModelInfo {
	return embedding.ModelInfo{Name: c.model, Dimension: int(c.dimension)}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.doCall(ctx, []string{query}, taskQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return c.doCall(ctx, texts, taskDocument)
}

func (c *client) doCall(ctx context.Context, texts []string, task string) ([][]float32, error) {
	log := logger.WithTrace(ctx)
	result, err := retry.DoWithResult(ctx, c.retry, func() (*genai.EmbedContentResponse, error) {
		return c.genAi.Models.EmbedContent(ctx, c.model, getContent(texts), &genai.EmbedContentConfig{
			OutputDimensionality: &c.dimension,
			TaskType:             task,
		})
	})
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err, "texts", len(texts))
		return nil, err
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google returned %d embeddings for %d texts", embeddingCount(result), len(texts))
	}

	vectors := make([][]float32, 0, len(texts))
	for _, r := range result.Embeddings {
		if r == nil {
			return nil, errors.New("google returned an empty embedding")
		}
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func getContent(texts []string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}
	return contents
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}

func doRetry(err error) bool {
	if embedding.Transient(err) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusServiceUnavailable
	}
	return false
}
