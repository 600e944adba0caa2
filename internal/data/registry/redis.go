package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/DocMind/internal/data/redisStore"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

// Redis layout: one JSON value per document, a file-name hash for idempotent inserts
// and a sorted set of ids scored by upload time.
const (
	docKeyPrefix = "document:"
	byNameKey    = "documents:by_name"
	uploadedKey  = "documents:uploaded"
)

type RedisRegistry struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedis(store *redisStore.Store) *RedisRegistry {
	return &RedisRegistry{store: store, logger: logger_i.NewLogger("registry_redis")}
}

func docKey(id string) string { return docKeyPrefix + id }

func (r *RedisRegistry) Insert(ctx context.Context, doc commonModels.Document) (string, bool, error) {
	doc = prepare(doc)
	claimed, err := r.store.HashSetIfAbsent(ctx, byNameKey, doc.FileName, doc.Id)
	if err != nil {
		return "", false, err
	}
	if !claimed {
		id, err := r.store.HashGet(ctx, byNameKey, doc.FileName)
		return id, true, err
	}

	if err := r.save(ctx, doc); err != nil {
		_ = r.store.HashDel(ctx, byNameKey, doc.FileName)
		return "", false, err
	}
	if err := r.store.SortedAdd(ctx, uploadedKey, float64(doc.UploadedAt.UnixNano()), doc.Id); err != nil {
		return "", false, err
	}
	r.logger.WithTrace(ctx).Debug("document registered", "documentId", doc.Id, "file", doc.FileName)
	return doc.Id, false, nil
}

func (r *RedisRegistry) UpdateStatus(ctx context.Context, id string, u commonModels.StatusUpdate) error {
	doc, found, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return notFound(id)
	}
	return r.save(ctx, applyUpdate(doc, u))
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (commonModels.Document, bool, error) {
	var doc commonModels.Document
	val, err := r.store.Get(ctx, docKey(id))
	if r.store.IsNil(err) {
		return doc, false, nil
	} else if err != nil {
		return doc, false, err
	}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, false, fmt.Errorf("corrupt document %s: %w", id, err)
	}
	return doc, true, nil
}

func (r *RedisRegistry) List(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, error) {
	docs, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	return page(docs, f), nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) (bool, error) {
	doc, found, err := r.Get(ctx, id)
	if err != nil || !found {
		return false, err
	}
	if err := r.store.Del(ctx, docKey(id)); err != nil {
		return false, err
	}
	if err := r.store.HashDel(ctx, byNameKey, doc.FileName); err != nil {
		return false, err
	}
	return true, r.store.SortedRemove(ctx, uploadedKey, id)
}

func (r *RedisRegistry) Stats(ctx context.Context) (commonModels.RegistryStats, error) {
	docs, err := r.all(ctx)
	if err != nil {
		return commonModels.RegistryStats{}, err
	}
	return summarize(docs), nil
}

func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *RedisRegistry) save(ctx context.Context, doc commonModels.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, docKey(doc.Id), data, 0)
}

func (r *RedisRegistry) all(ctx context.Context) ([]commonModels.Document, error) {
	ids, err := r.store.SortedNewestFirst(ctx, uploadedKey)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}
	values, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	docs := make([]commonModels.Document, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var doc commonModels.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			r.logger.Warn("skipping corrupt document", "documentId", ids[i], "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
