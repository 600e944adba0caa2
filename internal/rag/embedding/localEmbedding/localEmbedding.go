// Package localEmbedding is an offline feature-hashing embedder for tests, CLI demos and air-gapped setups.
package localEmbedding

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag/embedding"
)

const ModelName = "local-hashing-v1"

var (
	once     sync.Once
	instance *Embedder
)

type Embedder struct {
	dimension int
}

// Get returns the process-wide local embedder.
func Get(dimension int) embedding.Embedder {
	once.Do(func() {
		instance = New(dimension)
	})
	return instance
}

func New(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = config.LocalEmbeddingDimension
	}
	return &Embedder{dimension: dimension}
}

func (e *Embedder) Model() embedding.ModelInfo {
	return embedding.ModelInfo{Name: ModelName, Dimension: e.dimension}
}

func (e *Embedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(query), nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.vector(t))
	}
	return out, nil
}

// unigrams and bigrams hashed into signed buckets
func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, w := range words {
		e.add(v, w, 1)
		if i > 0 {
			e.add(v, words[i-1]+" "+w, 0.5)
		}
	}
	return embedding.Normalize(v)
}

func (e *Embedder) add(v []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}
