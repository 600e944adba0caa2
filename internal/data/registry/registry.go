// Package registry persists Document records behind commonModels.DocumentRegistry.
// Backends: in-memory, Redis, PostgreSQL and SQLite.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/google/uuid"
)

const DefaultListLimit = 50

func newDocumentId() string {
	return uuid.NewString()
}

// prepare fills what the registry owns: the id, the upload time and the initial status.
func prepare(doc commonModels.Document) commonModels.Document {
	doc.Id = newDocumentId()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = commonModels.StatusPending
	}
	if doc.PDFType == "" {
		doc.PDFType = commonModels.PDFUnknown
	}
	return doc
}

func applyUpdate(doc commonModels.Document, u commonModels.StatusUpdate) commonModels.Document {
	doc.ChunkCount = u.ChunkCount
	doc.HasEmbeddings = u.HasEmbeddings
	doc.Status = u.Status
	doc.LastProcessed = time.Now().UTC()
	return doc
}

func limitOf(f commonModels.ListFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// page orders newest upload first, then applies the status filter, offset and limit.
func page(docs []commonModels.Document, f commonModels.ListFilter) []commonModels.Document {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].Id < docs[j].Id
	})

	out := make([]commonModels.Document, 0, len(docs))
	for _, d := range docs {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, d)
	}
	if f.Offset >= len(out) {
		return []commonModels.Document{}
	}
	out = out[max(f.Offset, 0):]
	if limit := limitOf(f); len(out) > limit {
		out = out[:limit]
	}
	return out
}

func summarize(docs []commonModels.Document) commonModels.RegistryStats {
	var stats commonModels.RegistryStats
	for _, d := range docs {
		stats.TotalDocuments++
		if d.HasEmbeddings {
			stats.DocumentsWithEmbeddings++
		}
		stats.TotalChunks += d.ChunkCount
	}
	return stats
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", commonModels.ErrNotFound, id)
}
