package configstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	aif "github.com/goliatone/go-aif"
	_ "modernc.org/sqlite"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	kind TEXT NOT NULL CHECK(kind IN ('aif','aiw','aim')),
	name TEXT NOT NULL,
	payload BLOB NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY(kind, name)
);
`

// SQLite keeps metadata documents in a local sqlite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) the document database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, documentsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply documents schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put inserts or replaces a document.
func (s *SQLite) Put(ctx context.Context, kind aif.Kind, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents(kind, name, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(kind, name) DO UPDATE SET
	payload=excluded.payload,
	updated_at=excluded.updated_at
`, kind.String(), name, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, kind aif.Kind, name string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE kind = ? AND name = ?`,
		kind.String(), name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(kind, name, nil)
	}
	if err != nil {
		return nil, aif.CloneError(aif.ErrDocumentNotFound, "query metadata document", err, map[string]any{
			"kind": kind.String(),
			"name": name,
		})
	}
	return payload, nil
}

// Names lists stored document names of kind.
func (s *SQLite) Names(ctx context.Context, kind aif.Kind) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM documents WHERE kind = ? ORDER BY name`, kind.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan document name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
