package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag/embedding"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/akolanti/DocMind/pkg/retry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	logger          *logger_i.Logger
	once            sync.Once
	embeddingClient *client
)

type client struct {
	api       openai.Client
	model     string
	dimension int
	retry     retry.Config
}

// GetOpenAIEmbeddingClient loads the model once per process.
func GetOpenAIEmbeddingClient(modelName, apiKey string, dimension int, opts ...option.RequestOption) (embedding.Embedder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if modelName == "" {
			modelName = config.OpenAIEmbeddingModel
		}
		rc := retry.DefaultConfig()
		rc.Retryable = rateLimited
		rc.Logger = logger
		embeddingClient = &client{
			api:       openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
			model:     modelName,
			dimension: dimension,
			retry:     rc,
		}
		logger.Info("OpenAI Embedding client created", "model", modelName, "dimension", dimension)
	})
	if embeddingClient == nil {
		return nil, errors.New("openai embedding client unavailable")
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
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := retry.DoWithResult(ctx, c.retry, func() (*openai.CreateEmbeddingResponse, error) {
		return c.api.Embeddings.New(ctx, params)
	})
	if err != nil {
		logger.WithTrace(ctx).Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vectors := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func rateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}
