package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

// Generator applies normalisation, dimension checks and model stamping on top of an Embedder.
type Generator struct {
	embedder  Embedder
	batchSize int
	logger    *logger_i.Logger
}

func NewGenerator(e Embedder, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = config.EmbeddingBatchSize
	}
	return &Generator{
		embedder:  e,
		batchSize: batchSize,
		logger:    logger_i.NewLogger("embedding_generator"),
	}
}

func (g *Generator) Model() ModelInfo {
	return g.embedder.Model()
}

func (g *Generator) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	v, err := g.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbedding, err)
	}
	if err = checkDimension(v, g.Model().Dimension); err != nil {
		return nil, fmt.Errorf("%w: %v", commonModels.ErrEmbedding, err)
	}
	return Normalize(v), nil
}

// EncodeChunks embeds every non-blank chunk. The input is left untouched; on any batch failure nothing is returned.
func (g *Generator) EncodeChunks(ctx context.Context, chunks []commonModels.DocChunk) ([]commonModels.DocChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()
	log := g.logger.WithTrace(ctx)

	out := make([]commonModels.DocChunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			out = append(out, c)
		}
	}
	if len(out) < len(chunks) {
		log.Debug("skipped blank chunks", "count", len(chunks)-len(out))
	}

	model := g.Model()
	for i := 0; i < len(out); i += g.batchSize {
		end := min(i+g.batchSize, len(out))
		batch := out[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		log.Debug("embedding batch", "from", i, "size", len(texts))
		vectors, err := g.embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: batch starting at %d: %v", commonModels.ErrEmbedding, i, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", commonModels.ErrEmbedding, len(vectors), len(batch))
		}
		for j := range batch {
			if err := checkDimension(vectors[j], model.Dimension); err != nil {
				return nil, fmt.Errorf("%w: chunk %d: %v", commonModels.ErrEmbedding, batch[j].Index, err)
			}
			batch[j].Embedding = Normalize(vectors[j])
			batch[j].EmbeddingModel = model.Name
			batch[j].EmbeddingDim = len(vectors[j])
		}
	}
	return out, nil
}
