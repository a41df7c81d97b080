package localindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

// ClusterName is reported by Ping and Health.
const ClusterName = "local"

// Ping reports the SQLite version.
func (s *Store) Ping(ctx context.Context) (*index.Health, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &index.Health{ClusterName: ClusterName, Version: "sqlite " + version}, nil
}

// Health is always green with one node; every index counts as one shard.
func (s *Store) Health(ctx context.Context) (*index.Health, error) {
	h, err := s.Ping(ctx)
	if err != nil {
		return nil, err
	}
	var shards int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indices`).Scan(&shards); err != nil {
		return nil, fmt.Errorf("counting indices: %w", err)
	}
	h.Status = "green"
	h.NumberOfNodes = 1
	h.ActiveShards = shards
	return h, nil
}

// ListIndices returns every index sorted by name.
func (s *Store) ListIndices(ctx context.Context) ([]index.IndexInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT i.name, COUNT(d.seq), COALESCE(SUM(LENGTH(d.source)), 0)
FROM indices i LEFT JOIN documents d ON d.idx = i.name
GROUP BY i.name
ORDER BY i.name`)
	if err != nil {
		return nil, fmt.Errorf("listing indices: %w", err)
	}
	defer rows.Close()

	var infos []index.IndexInfo
	for rows.Next() {
		var info index.IndexInfo
		var size int64
		if err := rows.Scan(&info.Name, &info.DocsCount, &size); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		info.Health = "green"
		info.Status = "open"
		info.StoreSize = formatSize(size)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fmb", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fkb", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%db", n)
	}
}

// CreateIndex creates an empty index.
func (s *Store) CreateIndex(ctx context.Context, name string) error {
	if err := validIndexName(name); err != nil {
		return err
	}
	ok, err := indexExists(ctx, s.db, name)
	if err != nil {
		return fmt.Errorf("looking up index %s: %w", name, err)
	}
	if ok {
		return fmt.Errorf("creating index %s: %w", name, index.ErrIndexExists)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO indices (name, created_at) VALUES (?, ?)`, name, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	return nil
}

// validIndexName applies the Elasticsearch naming rules that matter locally.
func validIndexName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: index name is required", index.ErrInvalidRequest)
	case name != strings.ToLower(name):
		return fmt.Errorf("%w: index name %q must be lowercase", index.ErrInvalidRequest, name)
	case strings.HasPrefix(name, "_") || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+"):
		return fmt.Errorf("%w: index name %q must not start with _, - or +", index.ErrInvalidRequest, name)
	case strings.ContainsAny(name, `\/*?"<>| ,#:`):
		return fmt.Errorf("%w: index name %q contains an invalid character", index.ErrInvalidRequest, name)
	}
	return nil
}

// DeleteIndex removes an index with its documents and open cursors.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireIndex(ctx, tx, name); err != nil {
		return err
	}
	stmts := []string{
		`DELETE FROM documents_fts WHERE rowid IN (SELECT seq FROM documents WHERE idx = ?)`,
		`DELETE FROM documents WHERE idx = ?`,
		`DELETE FROM cursors WHERE idx = ?`,
		`DELETE FROM indices WHERE name = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, name); err != nil {
			return fmt.Errorf("deleting index %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Settings returns a settings object shaped like the Elasticsearch one.
func (s *Store) Settings(ctx context.Context, name string) (json.RawMessage, error) {
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM indices WHERE name = ?`, name).Scan(&created)
	if err != nil {
		if err := requireIndex(ctx, s.db, name); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("reading settings of %s: %w", name, err)
	}

	settings := map[string]any{
		"index": map[string]any{
			"provided_name":      name,
			"creation_date":      fmt.Sprint(created),
			"number_of_shards":   "1",
			"number_of_replicas": "0",
			"store":              map[string]any{"type": "sqlite", "path": s.path},
		},
	}
	return json.Marshal(settings)
}

// Mapping infers a dynamic mapping from the top-level fields of stored documents, using
// the type of the first value seen for each field.
func (s *Store) Mapping(ctx context.Context, name string) (json.RawMessage, error) {
	if err := requireIndex(ctx, s.db, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source FROM documents WHERE idx = ? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("reading documents of %s: %w", name, err)
	}
	defer rows.Close()

	properties := map[string]any{}
	for rows.Next() {
		var id, source string
		if err := rows.Scan(&id, &source); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		rec, err := record.Decode(id, []byte(source))
		if err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", id, err)
		}
		for field, v := range rec.All() {
			if _, seen := properties[field]; seen || v == nil {
				continue
			}
			properties[field] = map[string]any{"type": mappingType(v)}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"properties": properties})
}

func mappingType(v any) string {
	switch record.KindOf(v) {
	case record.KindString:
		return "text"
	case record.KindBool:
		return "boolean"
	case record.KindObject:
		return "object"
	case record.KindList:
		if list, ok := v.([]any); ok && len(list) > 0 && list[0] != nil {
			return mappingType(list[0])
		}
		return "keyword"
	case record.KindNumber:
		if n, ok := v.(json.Number); ok {
			if _, err := n.Int64(); err == nil {
				return "long"
			}
			return "float"
		}
		switch v.(type) {
		case float32, float64:
			return "float"
		}
		return "long"
	}
	return "keyword"
}

// Count returns the number of documents in an index.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if err := requireIndex(ctx, s.db, name); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE idx = ?`, name).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", name, err)
	}
	return n, nil
}
