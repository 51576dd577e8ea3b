// Package sqlite provides the SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/restmach/restmach/internal/store"
)

// Store is a SQLite implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New creates a new SQLite store at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			content_type TEXT NOT NULL DEFAULT '',
			body BLOB NOT NULL,
			etag TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	query := `SELECT id, content_type, body, etag, updated_at FROM documents WHERE id = ?`

	var doc store.Document
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.ContentType, &doc.Body, &doc.ETag, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// Put creates or replaces a document and reports whether it was new.
func (s *Store) Put(ctx context.Context, doc *store.Document) (bool, error) {
	doc.ETag = store.ETagFor(doc.Body)
	doc.UpdatedAt = store.Timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE id = ?`, doc.ID,
	).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("failed to check document: %w", err)
	}

	query := `INSERT INTO documents (id, content_type, body, etag, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_type = excluded.content_type,
			body = excluded.body,
			etag = excluded.etag,
			updated_at = excluded.updated_at`

	_, err = tx.ExecContext(ctx, query,
		doc.ID, doc.ContentType, doc.Body, doc.ETag, doc.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to put document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return existing == 0, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

// List returns documents ordered by ID.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*store.Document, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, content_type, body, etag, updated_at FROM documents
		ORDER BY id ASC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*store.Document
	for rows.Next() {
		var doc store.Document
		err := rows.Scan(&doc.ID, &doc.ContentType, &doc.Body, &doc.ETag, &doc.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
