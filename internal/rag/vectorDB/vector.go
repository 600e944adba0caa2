package vectorDB

import (
	"context"
	"fmt"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

// Metric names the distance an Index reports, so raw distances can be mapped onto squared L2.
type Metric string

const (
	MetricL2Squared Metric = "l2_squared"
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricL2Squared, MetricCosine, MetricEuclidean:
		return m, nil
	}
	return "", fmt.Errorf("unknown distance metric %q", s)
}

// ToSquaredL2 converts a raw distance for unit vectors: cosine distance d is d'=2d, euclidean d is d'=d².
func (m Metric) ToSquaredL2(d float64) float64 {
	switch m {
	case MetricCosine:
		return 2 * d
	case MetricEuclidean:
		return d * d
	default:
		return d
	}
}

// Similarity maps a squared-L2 distance between unit vectors onto [-1, 1].
func Similarity(squaredL2 float64) float64 {
	return 1 - squaredL2/2
}

type Hit struct {
	Chunk    commonModels.DocChunk
	Distance float64
}

// Index stores chunk embeddings. Query returns hits in ascending raw distance.
type Index interface {
	EnsureCollection(ctx context.Context) error
	UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error
	Query(ctx context.Context, vector []float32, topN int, documentId string) ([]Hit, error)
	DeleteDocument(ctx context.Context, documentId string) error
	CountDocument(ctx context.Context, documentId string) (int, error)
	Heartbeat(ctx context.Context) error
	Metric() Metric
}

// GlobalScope is the cache scope of questions asked across all documents.
const GlobalScope = "global"

// AnswerCache remembers packaged answers, sources included, by query vector within a document scope.
type AnswerCache interface {
	Lookup(ctx context.Context, vector []float32, scope string) (commonModels.Answer, bool, error)
	Store(ctx context.Context, vector []float32, scope string, answer commonModels.Answer) error
	Invalidate(ctx context.Context, scope string) error
}

func Scope(documentId string) string {
	if documentId == "" {
		return GlobalScope
	}
	return documentId
}

// RequireEmbeddings is checked by every backend before an upsert.
func RequireEmbeddings(chunks []commonModels.DocChunk) error {
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.Id())
		}
	}
	return nil
}
