package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ModelInfo struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// Embedder is one loaded embedding model. Implementations are process-wide singletons.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Model() ModelInfo
}

// Normalize returns v scaled to unit length. A zero vector is returned as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func checkDimension(v []float32, dim int) error {
	if dim > 0 && len(v) != dim {
		return fmt.Errorf("embedding has %d dimensions, model expects %d", len(v), dim)
	}
	return nil
}

// Transient reports rate-limit and availability failures from gRPC style backends.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if s, ok := status.FromError(err); ok {
		return s.Code() == codes.ResourceExhausted || s.Code() == codes.Unavailable
	}
	return false
}
