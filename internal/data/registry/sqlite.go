package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/akolanti/DocMind/internal/data/registry/migrations"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

// SQLiteRegistry is the single-file registry used by the CLI and local runs.
// Timestamps are stored as unix nanoseconds.
type SQLiteRegistry struct {
	db   *sql.DB
	path string
}

func NewSQLite(path string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	r := &SQLiteRegistry{db: db, path: path}
	if err := r.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

func (r *SQLiteRegistry) migrate(fsys embed.FS) error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := r.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := r.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

func (r *SQLiteRegistry) Insert(ctx context.Context, doc commonModels.Document) (string, bool, error) {
	doc = prepare(doc)
	res, err := r.db.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (file_name) DO NOTHING`,
		doc.Id, doc.FileName, doc.Title, doc.Authors, doc.PageCount, doc.PublicationDate, doc.FileSize,
		doc.StoragePath, string(doc.PDFType), string(doc.Status), doc.ChunkCount, doc.HasEmbeddings,
		doc.UploadedAt.UnixNano())
	if err != nil {
		return "", false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return doc.Id, false, nil
	}

	var id string
	err = r.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE file_name = ?`, doc.FileName).Scan(&id)
	return id, true, err
}

func (r *SQLiteRegistry) UpdateStatus(ctx context.Context, id string, u commonModels.StatusUpdate) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents
		SET chunk_count = ?, has_embeddings = ?, processing_status = ?, last_processed = ?
		WHERE id = ?`,
		u.ChunkCount, u.HasEmbeddings, string(u.Status), time.Now().UTC().UnixNano(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (commonModels.Document, bool, error) {
	doc, err := scanSQLite(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return commonModels.Document{}, false, nil
	}
	if err != nil {
		return commonModels.Document{}, false, err
	}
	return doc, true, nil
}

func (r *SQLiteRegistry) List(ctx context.Context, f commonModels.ListFilter) ([]commonModels.Document, error) {
	status := string(f.Status)
	rows, err := r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE ? = '' OR processing_status = ?
		ORDER BY upload_timestamp DESC, id
		LIMIT ? OFFSET ?`,
		status, status, limitOf(f), max(f.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []commonModels.Document{}
	for rows.Next() {
		doc, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRegistry) Stats(ctx context.Context) (commonModels.RegistryStats, error) {
	var s commonModels.RegistryStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN has_embeddings THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(chunk_count), 0)
		FROM documents`).Scan(&s.TotalDocuments, &s.DocumentsWithEmbeddings, &s.TotalChunks)
	return s, err
}

func (r *SQLiteRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row sqlScanner) (commonModels.Document, error) {
	var (
		doc           commonModels.Document
		pdfType       string
		status        string
		uploaded      int64
		lastProcessed sql.NullInt64
	)
	err := row.Scan(&doc.Id, &doc.FileName, &doc.Title, &doc.Authors, &doc.PageCount, &doc.PublicationDate,
		&doc.FileSize, &doc.StoragePath, &pdfType, &status, &doc.ChunkCount, &doc.HasEmbeddings,
		&uploaded, &lastProcessed)
	if err != nil {
		return doc, err
	}
	doc.PDFType = commonModels.PDFType(pdfType)
	doc.Status = commonModels.ProcessingStatus(status)
	doc.UploadedAt = time.Unix(0, uploaded).UTC()
	if lastProcessed.Valid {
		doc.LastProcessed = time.Unix(0, lastProcessed.Int64).UTC()
	}
	return doc, nil
}
