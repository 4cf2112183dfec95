package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores documents as JSON text in one table and queries them with the
// JSON1 functions.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);
`

// OpenSQLite opens (or creates) the database file at dsn. ":memory:" works
// for throwaway stores.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA encoding = 'UTF-8'"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, collection, id string, data map[string]any) (string, error) {
	raw, err := encode(data)
	if err != nil {
		return "", err
	}
	id = newID(id)
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents(collection, id, data, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING
	`, collection, id, string(raw), now, now)
	if err != nil {
		return "", fmt.Errorf("insert document %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert document %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s/%s", ErrExists, collection, id)
	}
	return id, nil
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return Document{}, fmt.Errorf("query document %s/%s: %w", collection, id, err)
	}
	return decode(id, []byte(raw))
}

func (s *SQLite) QueryByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	if b, ok := value.(bool); ok {
		// json_extract yields 1/0 for booleans
		value = 0
		if b {
			value = 1
		}
	}
	return s.query(ctx, `
		SELECT id, data FROM documents
		WHERE collection = ? AND json_extract(data, ?) = ?
		ORDER BY id ASC
		LIMIT ?
	`, collection, "$."+field, value, sqliteLimit(limit))
}

func (s *SQLite) ScanOrdered(ctx context.Context, collection, orderBy string, dir Direction, limit int) ([]Document, error) {
	if orderBy == "" {
		return s.query(ctx, fmt.Sprintf(`
			SELECT id, data FROM documents
			WHERE collection = ?
			ORDER BY id %s
			LIMIT ?
		`, dir), collection, sqliteLimit(limit))
	}
	if err := checkField(orderBy); err != nil {
		return nil, err
	}
	return s.query(ctx, fmt.Sprintf(`
		SELECT id, data FROM documents
		WHERE collection = ?
		ORDER BY json_extract(data, ?) %s, id ASC
		LIMIT ?
	`, dir), collection, "$."+orderBy, sqliteLimit(limit))
}

func (s *SQLite) Update(ctx context.Context, collection, id string, partial map[string]any) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx update %s/%s: %w", collection, id, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return fmt.Errorf("query document %s/%s: %w", collection, id, err)
	}
	merged, err := merge([]byte(raw), partial)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?
	`, string(merged), time.Now().Unix(), collection, id)
	if err != nil {
		return fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d, err := decode(id, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// sqliteLimit maps "no limit" onto SQLite's LIMIT -1.
func sqliteLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
