// Package localindex implements the index store on a single SQLite file. It mirrors the
// subset of Elasticsearch behavior the CLI relies on: named indices, documents in
// insertion order, query-string search over FTS5 and time-limited cursors.
package localindex

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/helmuth/esport/internal/index"
)

// Scheme is the host URL scheme that selects this store, as in "sqlite:///data/es.db".
const Scheme = "sqlite"

const schemaVersion = "1"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS _meta (
  key TEXT PRIMARY KEY,
  value TEXT
)`,
	`CREATE TABLE IF NOT EXISTS indices (
  name TEXT PRIMARY KEY,
  created_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS documents (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  idx TEXT NOT NULL,
  id TEXT NOT NULL,
  source TEXT NOT NULL,
  UNIQUE (idx, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_idx_seq ON documents(idx, seq)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
  content
)`,
	`CREATE TABLE IF NOT EXISTS cursors (
  token TEXT PRIMARY KEY,
  idx TEXT NOT NULL,
  match TEXT NOT NULL,
  include TEXT NOT NULL,
  exclude TEXT NOT NULL,
  size INTEGER NOT NULL,
  last_seq INTEGER NOT NULL,
  expires_at INTEGER NOT NULL
)`,
}

// Store is an index.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

var _ index.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock replaces the clock used for cursor expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the database at path. ":memory:" gives a private in-memory store.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO _meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE expires_at < ?`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("purging expired cursors: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug("purged expired cursors", "count", n)
	}
	return nil
}

// indexExists reports whether an index has been created. q is a *sql.DB or *sql.Tx.
func indexExists(ctx context.Context, q querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM indices WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func requireIndex(ctx context.Context, q querier, name string) error {
	ok, err := indexExists(ctx, q, name)
	if err != nil {
		return fmt.Errorf("looking up index %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("index %s: %w", name, index.ErrNotFound)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
