package qdrantDB

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	scopeField  = "scope"
	answerField = "answer"
	recordField = "record"
)

type SemanticCache struct {
	QObj       *qdrant.Client
	collection string
	cutoff     float32
}

// NewSemanticCache shares the process-wide client of holder.
func NewSemanticCache(ctx context.Context, holder *ClientHolder) (*SemanticCache, error) {
	c := &SemanticCache{QObj: holder.QObj, collection: config.SemanticCacheDBName, cutoff: config.CacheSimilarityCutoff}
	created, err := createCollection(ctx, c.QObj, c.collection, holder.dimension)
	if err != nil {
		logger.WithTrace(ctx).Error("Semantic cache collection creation failed", "error", err)
		return nil, err
	}
	if created {
		_, err = c.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.collection,
			FieldName:      scopeField,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			logger.Warn("scope payload index not created", "error", err)
		}
	}
	return c, nil
}

func (c *SemanticCache) Lookup(ctx context.Context, vector []float32, scope string) (commonModels.Answer, bool, error) {
	loggr := logger.WithTrace(ctx)

	result, err := c.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(scopeField, scope)}},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return commonModels.Answer{}, false, err
	}
	if len(result) == 0 || result[0].Score < c.cutoff {
		return commonModels.Answer{}, false, nil
	}

	loggr.Debug("cache hit", "similarity", result[0].Score, "scope", scope)
	return decodeCached(result[0].Payload), true, nil
}

func (c *SemanticCache) Store(ctx context.Context, vector []float32, scope string, answer commonModels.Answer) error {
	payload, err := encodeCached(answer, scope)
	if err != nil {
		return err
	}
	_, err = c.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(uuid.NewString()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: payload,
			},
		},
	})
	if err != nil {
		logger.WithTrace(ctx).Error("Saving answer to cache failed", "error", err)
	}
	return err
}

// Invalidate drops the answers of scope together with every global answer.
func (c *SemanticCache) Invalidate(ctx context.Context, scope string) error {
	filter := &qdrant.Filter{Should: []*qdrant.Condition{
		qdrant.NewMatch(scopeField, scope),
		qdrant.NewMatch(scopeField, vectorDB.GlobalScope),
	}}
	_, err := c.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

// encodeCached keeps the plain answer text next to the packaged answer so entries stay readable in the dashboard.
func encodeCached(answer commonModels.Answer, scope string) (map[string]*qdrant.Value, error) {
	answer.Metadata.Cached = false
	record, err := json.Marshal(answer)
	if err != nil {
		return nil, fmt.Errorf("encoding cached answer: %w", err)
	}
	return qdrant.NewValueMap(map[string]any{
		answerField: answer.Answer,
		recordField: string(record),
		scopeField:  scope,
		"timestamp": time.Now().Unix(),
	}), nil
}

func decodeCached(payload map[string]*qdrant.Value) commonModels.Answer {
	var ans commonModels.Answer
	if raw := payload[recordField].GetStringValue(); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ans); err != nil {
			logger.Warn("cached answer record unreadable", "error", err)
			ans = commonModels.Answer{}
		}
	}
	if ans.Answer == "" {
		ans.Answer = payload[answerField].GetStringValue()
	}
	if ans.Sources == nil {
		ans.Sources = []commonModels.Source{}
	}
	return ans
}
