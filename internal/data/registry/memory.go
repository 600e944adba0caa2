package registry

import (
	"context"
	"sync"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

type MemoryRegistry struct {
	mu     sync.RWMutex
	docs   map[string]commonModels.Document
	byName map[string]string
}

func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{
		docs:   make(map[string]commonModels.Document),
		byName: make(map[string]string),
	}
}

func (r *MemoryRegistry) Insert(_ context.Context, doc commonModels.Document) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byName[doc.FileName]; ok {
		return id, true, nil
	}
	doc = prepare(doc)
	r.docs[doc.Id] = doc
	r.byName[doc.FileName] = doc.Id
	return doc.Id, false, nil
}

func (r *MemoryRegistry) UpdateStatus(_ context.Context, id string, u commonModels.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return notFound(id)
	}
	r.docs[id] = applyUpdate(doc, u)
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (commonModels.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok, nil
}

func (r *MemoryRegistry) List(_ context.Context, f commonModels.ListFilter) ([]commonModels.Document, error) {
	return page(r.all(), f), nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return false, nil
	}
	delete(r.docs, id)
	delete(r.byName, doc.FileName)
	return true, nil
}

func (r *MemoryRegistry) Stats(_ context.Context) (commonModels.RegistryStats, error) {
	return summarize(r.all()), nil
}

func (r *MemoryRegistry) Ping(context.Context) error { return nil }

func (r *MemoryRegistry) all() []commonModels.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]commonModels.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	return docs
}
