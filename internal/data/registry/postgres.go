package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, file_name, title, authors, page_count, publication_date, file_size, storage_path,
	pdf_type, processing_status, chunk_count, has_embeddings, upload_timestamp, last_processed`

const postgresSchema = `CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	file_name         TEXT NOT NULL UNIQUE,
	title             TEXT NOT NULL DEFAULT '',
	authors           TEXT NOT NULL DEFAULT '',
	page_count        INTEGER NOT NULL DEFAULT 0,
	publication_date  TEXT NOT NULL DEFAULT '',
	file_size         BIGINT NOT NULL DEFAULT 0,
	storage_path      TEXT NOT NULL DEFAULT '',
	pdf_type          TEXT NOT NULL,
	processing_status TEXT NOT NULL,
	chunk_count       INTEGER NOT NULL DEFAULT 0,
	has_embeddings    BOOLEAN NOT NULL DEFAULT FALSE,
	upload_timestamp  TIMESTAMPTZ NOT NULL,
	last_processed    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (processing_status);
CREATE INDEX IF NOT EXISTS documents_uploaded_idx ON documents (upload_timestamp DESC);`

type PostgresRegistry struct {
	pool   *pgxpool.Pool
	logger *logger_i.Logger
}

// NewPostgres connects and creates the documents table if needed.
func NewPostgres(ctx context.Context, dsn string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &PostgresRegistry{pool: pool, logger: logger_i.NewLogger("registry_postgres")}, nil
}

func (r *PostgresRegistry) Close() {
	r.pool.Close()
}

func (r *PostgresRegistry) Insert(ctx context.Context, doc commonModels.Document) (string, bool, error) {
	doc = prepare(doc)
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL)
		ON CONFLICT (file_name) DO NOTHING
		RETURNING id`,
		doc.Id, doc.FileName, doc.Title, doc.Authors, doc.PageCount, doc.PublicationDate, doc.FileSize,
		doc.StoragePath, string(doc.PDFType), string(doc.Status), doc.ChunkCount, doc.HasEmbeddings, doc.UploadedAt,
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	err = r.pool.QueryRow(ctx, `SELECT id FROM documents WHERE file_name = $1`, doc.FileName).Scan(&id)
	return id, true, err
}

func (r *PostgresRegistry) UpdateStatus(ctx context.Context, id string, u commonModels.StatusUpdate) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents
		SET chunk_count = $2, has_embeddings = $3, processing_status = $4, last_processed = $5
		WHERE id = $1`,
		id, u.ChunkCount, u.HasEmbeddings, string(u.Status), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (r *PostgresRegistry) Get(ctx context.Context, id string) (commonModels.Document, bool, error) {
	doc, err := scanPostgres(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return commonModels.Document{}, false, nil
	}
	if err != nil {
		return commonModels.Document{}, false, err
	}
	return doc, true, nil
}

func (r *PostgresRegistry) List(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE $1 = '' OR processing_status = $1
		ORDER BY upload_timestamp DESC, id
		LIMIT $2 OFFSET $3`,
		string(f.Status), limitOf(f), max(f.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []commonModels.Document{}
	for rows.Next() {
		doc, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresRegistry) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRegistry) Stats(ctx context.Context) (commonModels.RegistryStats, error) {
	var s commonModels.RegistryStats
	err := r.pool.QueryRow(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE has_embeddings),
			COALESCE(SUM(chunk_count), 0)
		FROM documents`).Scan(&s.TotalDocuments, &s.DocumentsWithEmbeddings, &s.TotalChunks)
	return s, err
}

func (r *PostgresRegistry) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanPostgres(row pgx.Row) (commonModels.Document, error) {
	var (
		doc           commonModels.Document
		pdfType       string
		status        string
		lastProcessed *time.Time
	)
	err := row.Scan(&doc.Id, &doc.FileName, &doc.Title, &doc.Authors, &doc.PageCount, &doc.PublicationDate,
		&doc.FileSize, &doc.StoragePath, &pdfType, &status, &doc.ChunkCount, &doc.HasEmbeddings,
		&doc.UploadedAt, &lastProcessed)
	if err != nil {
		return doc, err
	}
	doc.PDFType = commonModels.PDFType(pdfType)
	doc.Status = commonModels.ProcessingStatus(status)
	if lastProcessed != nil {
		doc.LastProcessed = lastProcessed.UTC()
	}
	doc.UploadedAt = doc.UploadedAt.UTC()
	return doc, nil
}
