package sqliterepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-delivery-console/credentials"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// DefaultNamespace is used by single-principal consumers such as the CLI.
const DefaultNamespace = "default"

var _ credentials.Repo = (*SQLiteRepo)(nil)

// SQLiteRepo persists credentials in a SQLite table, one row per (namespace, key).
type SQLiteRepo struct {
	db        *sql.DB
	namespace string
	nowTime   func() time.Time
}

// Open opens (or creates) the database file at path, creating parent directories as needed.
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqliterepo: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqliterepo: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliterepo: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqliterepo: set WAL mode: %w", err)
	}
	return db, nil
}

// New creates the schema if needed and returns a repo scoped to namespace.
func New(db *sql.DB, namespace string) (*SQLiteRepo, error) {
	if db == nil {
		return nil, errors.New("sqliterepo: db is nil")
	}
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqliterepo: create schema: %w", err)
	}
	return &SQLiteRepo{db: db, namespace: namespace, nowTime: time.Now}, nil
}

// WithNamespace returns a repo sharing the same database but scoped to another namespace.
func (r *SQLiteRepo) WithNamespace(namespace string) *SQLiteRepo {
	return &SQLiteRepo{db: r.db, namespace: namespace, nowTime: r.nowTime}
}

func (r *SQLiteRepo) Get(ctx context.Context, key credentials.Key) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `
SELECT value
FROM credentials
WHERE namespace = ? AND key = ?`, r.namespace, string(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", credentials.ErrNotFound
		}
		return "", fmt.Errorf("sqliterepo: get %s: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepo) Set(ctx context.Context, key credentials.Key, value string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO credentials (namespace, key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at`,
		r.namespace,
		string(key),
		value,
		r.nowTime().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqliterepo: set %s: %w", key, err)
	}
	return nil
}

// Remove deletes keys in one transaction so a clear is never observed half done.
func (r *SQLiteRepo) Remove(ctx context.Context, keys ...credentials.Key) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqliterepo: begin remove: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE namespace = ? AND key = ?`, r.namespace, string(k)); err != nil {
			return fmt.Errorf("sqliterepo: remove %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqliterepo: commit remove: %w", err)
	}
	return nil
}
