package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chunkd/internal/models"
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding BLOB,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (document_id, chunk_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
	`
	_, err := db.Exec(schema)
	return err
}

const (
	documentColumns = `id, title, content, url, metadata, created_at, updated_at`
	chunkColumns    = `id, document_id, content, chunk_index, embedding, created_at`

	insertDocument = `INSERT INTO documents (` + documentColumns + `)
		VALUES (:id, :title, :content, :url, :metadata, :created_at, :updated_at)`
	updateDocument = `UPDATE documents SET title = :title, content = :content, url = :url,
		metadata = :metadata, updated_at = :updated_at WHERE id = :id`
	insertChunk = `INSERT INTO document_chunks (` + chunkColumns + `)
		VALUES (:id, :document_id, :content, :chunk_index, :embedding, :created_at)`
)

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrPersistence, op, err)
}

// CreateDocumentWithChunks inserts the document and all of its chunks atomically.
// CreatedAt/UpdatedAt are set when zero.
func (s *SQLiteStore) CreateDocumentWithChunks(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt

	return s.inTx(ctx, "create document", func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
			return err
		}
		return insertChunks(ctx, tx, chunks, now)
	})
}

// UpsertDocumentWithChunks inserts doc, or overwrites it and swaps its chunk set when the id
// is already present. Both cases commit atomically.
func (s *SQLiteStore) UpsertDocumentWithChunks(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	now := time.Now().UTC()
	doc.UpdatedAt = now

	return s.inTx(ctx, "upsert document", func(tx *sqlx.Tx) error {
		var created time.Time
		err := tx.GetContext(ctx, &created, `SELECT created_at FROM documents WHERE id = ?`, doc.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			doc.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertDocument, doc); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			doc.CreatedAt = created
			if _, err := tx.NamedExecContext(ctx, updateDocument, doc); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, doc.ID); err != nil {
				return err
			}
		}
		return insertChunks(ctx, tx, chunks, now)
	})
}

// GetDocument returns a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := s.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, persistErr("get document", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document; its chunks go with it through the foreign key cascade.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return persistErr("delete document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type summaryRow struct {
	models.Document
	TotalChunks          int `db:"total_chunks"`
	ChunksWithEmbeddings int `db:"chunks_with_embeddings"`
}

// ListDocuments returns documents newest first with their chunk counts.
func (s *SQLiteStore) ListDocuments(ctx context.Context, offset, limit int) ([]*models.DocumentSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []summaryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT d.id, d.title, d.content, d.url, d.metadata, d.created_at, d.updated_at,
			COUNT(c.id) AS total_chunks,
			COUNT(c.embedding) AS chunks_with_embeddings
		FROM documents d
		LEFT JOIN document_chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at DESC, d.id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, persistErr("list documents", err)
	}

	out := make([]*models.DocumentSummary, len(rows))
	for i := range rows {
		doc := rows[i].Document
		out[i] = &models.DocumentSummary{
			Document:             &doc,
			TotalChunks:          rows[i].TotalChunks,
			ChunksWithEmbeddings: rows[i].ChunksWithEmbeddings,
		}
	}
	return out, nil
}

// ListDocumentIDs returns every document id ordered by creation time.
func (s *SQLiteStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM documents ORDER BY created_at, id`); err != nil {
		return nil, persistErr("list document ids", err)
	}
	return ids, nil
}

// GetChunksByDocumentID returns all chunks for a document ordered by chunk_index.
func (s *SQLiteStore) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error) {
	var chunks []*models.DocumentChunk
	err := s.db.SelectContext(ctx, &chunks,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, persistErr("get chunks", err)
	}
	return chunks, nil
}

// ReplaceChunks swaps the chunk set of docID in one transaction and bumps the document's
// updated_at. It fails with models.ErrNotFound if the document is gone.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, docID string, chunks []*models.DocumentChunk) error {
	now := time.Now().UTC()
	err := s.inTx(ctx, "replace chunks", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`, now, docID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("document %s: %w", docID, models.ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, docID); err != nil {
			return err
		}
		return insertChunks(ctx, tx, chunks, now)
	})
	return err
}

// DeleteAllChunks counts and removes every chunk in one transaction. Documents are kept.
func (s *SQLiteStore) DeleteAllChunks(ctx context.Context) (models.ClearStats, error) {
	var stats models.ClearStats
	err := s.inTx(ctx, "delete all chunks", func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT document_id) FROM document_chunks`)
		if err := row.Scan(&stats.ChunksDeleted, &stats.DocumentsAffected); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM document_chunks`)
		return err
	})
	if err != nil {
		return models.ClearStats{}, err
	}
	return stats, nil
}

// ForEachEmbedding streams chunks with a non-null embedding to fn. Iteration stops at the
// first error fn returns.
func (s *SQLiteStore) ForEachEmbedding(ctx context.Context, fn func(*models.DocumentChunk) error) error {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE embedding IS NOT NULL ORDER BY document_id, chunk_index`)
	if err != nil {
		return persistErr("scan embeddings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk models.DocumentChunk
		if err := rows.StructScan(&chunk); err != nil {
			return persistErr("scan embeddings", err)
		}
		if err := fn(&chunk); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return persistErr("scan embeddings", err)
	}
	return nil
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM documents`)
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM document_chunks`)
}

// CountEmbeddings returns the number of chunks carrying an embedding.
func (s *SQLiteStore) CountEmbeddings(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(embedding) FROM document_chunks`)
}

func (s *SQLiteStore) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, query); err != nil {
		return 0, persistErr("count", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction, committing on success. Errors already classified as
// not-found pass through; everything else is wrapped as a persistence failure.
func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(*sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return persistErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return persistErr(op, err)
	}
	return nil
}

func insertChunks(ctx context.Context, tx *sqlx.Tx, chunks []*models.DocumentChunk, now time.Time) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, insertChunk)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, chunk); err != nil {
			return fmt.Errorf("chunk %d: %w", chunk.ChunkIndex, err)
		}
	}
	return nil
}
