// Package memoryDB is a brute-force in-process index used by the CLI's local mode and by tests.
package memoryDB

import (
	"context"
	"sort"
	"sync"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
)

type Index struct {
	mu     sync.RWMutex
	points map[string]commonModels.DocChunk
}

func New() *Index {
	return &Index{points: make(map[string]commonModels.DocChunk)}
}

func (m *Index) Metric() vectorDB.Metric { return vectorDB.MetricL2Squared }

func (m *Index) EnsureCollection(ctx context.Context) error { return nil }

func (m *Index) Heartbeat(ctx context.Context) error { return nil }

func (m *Index) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error {
	if err := vectorDB.RequireEmbeddings(chunks); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.points[c.Id()] = c
	}
	return nil
}

func (m *Index) Query(ctx context.Context, vector []float32, topN int, documentId string) ([]vectorDB.Hit, error) {
	m.mu.RLock()
	hits := make([]vectorDB.Hit, 0, len(m.points))
	for _, c := range m.points {
		if documentId != "" && c.DocumentId != documentId {
			continue
		}
		hits = append(hits, vectorDB.Hit{Chunk: c, Distance: squaredL2(vector, c.Embedding)})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Chunk.Id() < hits[j].Chunk.Id()
		}
		return hits[i].Distance < hits[j].Distance
	})
	if topN > 0 && len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (m *Index) DeleteDocument(ctx context.Context, documentId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.points {
		if c.DocumentId == documentId {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *Index) CountDocument(ctx context.Context, documentId string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.points {
		if c.DocumentId == documentId {
			n++
		}
	}
	return n, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
