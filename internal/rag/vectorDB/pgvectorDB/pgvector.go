package pgvectorDB

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/internal/metrics"
	"github.com/akolanti/DocMind/internal/rag/vectorDB"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	logger   *logger_i.Logger
	once     sync.Once
	pool     *pgxpool.Pool
	initErr  error
	safeName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

type Store struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// GetStore opens the shared pool once and prepares the chunk table.
func GetStore(ctx context.Context, dsn, table string, dimension int) (*Store, error) {
	if !safeName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	once.Do(func() {
		logger = logger_i.NewLogger("pgvector")
		pool, initErr = pgxpool.New(ctx, dsn)
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", initErr)
	}
	s := &Store{pool: pool, table: table, dimension: dimension}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Metric() vectorDB.Metric { return vectorDB.MetricCosine }

func (s *Store) EnsureCollection(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			document TEXT NOT NULL,
			chunk_type TEXT,
			source TEXT,
			embedding_model TEXT,
			embedding vector(%d)
		)`, s.table, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_id_idx ON %s (document_id)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector schema: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, chunks []commonModels.DocChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := vectorDB.RequireEmbeddings(chunks); err != nil {
		return err
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_index, document, chunk_type, source, embedding_model, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			chunk_type = EXCLUDED.chunk_type,
			embedding_model = EXCLUDED.embedding_model,
			embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(stmt, c.Id(), c.DocumentId, c.Index, c.Content, string(c.Strategy), c.Source, c.EmbeddingModel, pgvector.NewVector(c.Embedding))
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pgvector upsert failed: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topN int, documentId string) ([]vectorDB.Hit, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	query := fmt.Sprintf(`
		SELECT document_id, chunk_index, document, chunk_type, source, embedding_model, embedding <=> $1 AS distance
		FROM %s
		WHERE $3 = '' OR document_id = $3
		ORDER BY distance
		LIMIT $2`, s.table)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), topN, documentId)
	if err != nil {
		logger.WithTrace(ctx).Error("pgvector query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var hits []vectorDB.Hit
	for rows.Next() {
		var (
			c        commonModels.DocChunk
			strategy string
			distance float64
		)
		if err := rows.Scan(&c.DocumentId, &c.Index, &c.Content, &strategy, &c.Source, &c.EmbeddingModel, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		c.Strategy = commonModels.ChunkStrategy(strategy)
		c.Length = len([]rune(c.Content))
		hits = append(hits, vectorDB.Hit{Chunk: c, Distance: distance})
	}
	return hits, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, documentId string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table), documentId)
	return err
}

func (s *Store) CountDocument(ctx context.Context, documentId string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE document_id = $1`, s.table), documentId).Scan(&n)
	return n, err
}

func (s *Store) Heartbeat(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}
