package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/miku/metabench/schema/meta"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS metadata (
	id TEXT PRIMARY KEY,
	isbn TEXT NOT NULL,
	title TEXT NOT NULL,
	creator TEXT NOT NULL,
	source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS metadata_isbn ON metadata (isbn);
`

// SQLite stores documents in a table keyed by document id. Writing the same
// batch twice leaves the table unchanged.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates a database file.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// WriteBatch writes all documents in a single transaction.
func (s *SQLite) WriteBatch(ctx context.Context, docs []meta.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO metadata (id, isbn, title, creator, source)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.ISBN, doc.Title, doc.Creator, doc.Source); err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", doc.ISBN, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored documents.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metadata").Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
