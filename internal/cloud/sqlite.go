package cloud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteMirror is a document store kept in a SQLite database. It backs the
// mirror when no remote store is configured and serves as the offline copy.
type SQLiteMirror struct {
	db *sql.DB
}

// ErrNoDocument is returned by Get for unknown documents.
var ErrNoDocument = errors.New("cloud: document not found")

// OpenSQLite opens (or creates) the mirror database at path.
// Pass ":memory:" for an in-memory database (used by tests).
func OpenSQLite(path string) (*SQLiteMirror, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating mirror directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening mirror database: %w", err)
	}
	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		fields TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}
	return &SQLiteMirror{db: db}, nil
}

// Close closes the underlying database connection.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}

// Upsert merges fields into the document inside one transaction.
func (m *SQLiteMirror) Upsert(ctx context.Context, docID string, fields map[string]any) error {
	if docID == "" {
		return fmt.Errorf("cloud: empty document id")
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cloud: begin: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDoc(ctx, tx, docID)
	if err != nil && !errors.Is(err, ErrNoDocument) {
		return err
	}
	data, err := json.Marshal(merge(doc, fields))
	if err != nil {
		return fmt.Errorf("cloud: encode %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, fields, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		docID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("cloud: upsert %s: %w", docID, err)
	}
	return tx.Commit()
}

// Get returns the current fields of a document.
func (m *SQLiteMirror) Get(ctx context.Context, docID string) (map[string]any, error) {
	return getDoc(ctx, m.db, docID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q querier, docID string) (map[string]any, error) {
	var raw string
	err := q.QueryRowContext(ctx, "SELECT fields FROM documents WHERE id = ?", docID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("cloud: read %s: %w", docID, err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("cloud: decode %s: %w", docID, err)
	}
	return doc, nil
}

var _ Mirror = (*SQLiteMirror)(nil)
