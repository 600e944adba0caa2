package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const documentIdField = "document_id"

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var initErr error
var once sync.Once

type ClientHolder struct {
	QObj       *qdrant.Client
	collection string
	dimension  uint64
}

// GetQuadrantClient connects once per process and makes sure the chunk collection exists.
func GetQuadrantClient(ctx context.Context, s config.VectorSettings, dimension int) (*ClientHolder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		quadrantInstance, initErr = newClient(s)
		if quadrantInstance != nil {
			go closeQdrant(ctx, quadrantInstance)
		}
	})
	if quadrantInstance == nil {
		return nil, fmt.Errorf("qdrant unavailable: %w", initErr)
	}

	collection := s.Collection
	if collection == "" {
		collection = config.EmbeddingDBName
	}
	holder := &ClientHolder{QObj: quadrantInstance, collection: collection, dimension: uint64(dimension)}
	if err := holder.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return holder, nil
}

func newClient(s config.VectorSettings) (*qdrant.Client, error) {
	host, port := s.QdrantHost, s.QdrantPort
	if host == "" || port == 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		APIKey:   s.QdrantAPIKey,
		UseTLS:   s.QdrantTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "error", err)
		return nil, err
	}
	return client, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
	logger.Info("Closed Qdrant")
}

// PointId maps the composite chunk id onto the UUID qdrant requires. The mapping is stable across runs.
func PointId(chunkId string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkId)).String()
}

func documentFilter(documentId string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(documentIdField, documentId)}}
}

func (db *ClientHolder) Metric() vectorDB.Metric {
	return vectorDB.MetricCosine
}

func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	created, err := createCollection(ctx, db.QObj, db.collection, db.dimension)
	if err != nil {
		return fmt.Errorf("could not create collection %s: %w", db.collection, err)
	}
	if created {
		_, err = db.QObj.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: db.collection,
			FieldName:      documentIdField,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			logger.Warn("document_id payload index not created", "error", err)
		}
	}
	return nil
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorDB.RequireEmbeddings(chunks); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointId(chunk.Id())),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(ChunkPayload(chunk)),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Query(ctx context.Context, vector []float32, topN int, documentId string) ([]vectorDB.Hit, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	query := &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topN)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if documentId != "" {
		query.Filter = documentFilter(documentId)
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		logger.WithTrace(ctx).Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	hits := make([]vectorDB.Hit, 0, len(result))
	for _, point := range result {
		hits = append(hits, vectorDB.Hit{
			Chunk:    ChunkFromPayload(point.Payload),
			Distance: 1 - float64(point.Score),
		})
	}
	return hits, nil
}

func (db *ClientHolder) DeleteDocument(ctx context.Context, documentId string) error {
	if documentId == "" {
		return errors.New("empty document id")
	}
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) CountDocument(ctx context.Context, documentId string) (int, error) {
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Filter:         documentFilter(documentId),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (db *ClientHolder) Heartbeat(ctx context.Context) error {
	_, err := db.QObj.HealthCheck(ctx)
	return err
}

func ChunkPayload(chunk commonModels.DocChunk) map[string]any {
	return map[string]any{
		"id":              chunk.Id(),
		"document":        chunk.Content,
		documentIdField:   chunk.DocumentId,
		"chunk_index":     chunk.Index,
		"chunk_type":      string(chunk.Strategy),
		"source":          chunk.Source,
		"embedding_model": chunk.EmbeddingModel,
	}
}

func ChunkFromPayload(payload map[string]*qdrant.Value) commonModels.DocChunk {
	content := payload["document"].GetStringValue()
	return commonModels.DocChunk{
		DocumentId:     payload[documentIdField].GetStringValue(),
		Index:          int(payload["chunk_index"].GetIntegerValue()),
		Content:        content,
		Length:         len([]rune(content)),
		Strategy:       commonModels.ChunkStrategy(payload["chunk_type"].GetStringValue()),
		Source:         payload["source"].GetStringValue(),
		EmbeddingModel: payload["embedding_model"].GetStringValue(),
	}
}

// createCollection reports whether the collection had to be created.
func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64) (bool, error) {
	if collectionName == "" {
		return false, errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err == nil, err
}
