package localindex

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, name, id string) (*record.Record, error) {
	var source string
	err := s.db.QueryRowContext(ctx, `SELECT source FROM documents WHERE idx = ? AND id = ?`, name, id).Scan(&source)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting %s/%s: %w", name, id, index.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", name, id, err)
	}
	return record.Decode(id, []byte(source))
}

// Put stores one record, creating the index on first write. A record without an ID gets
// a random UUID; an existing ID is overwritten in place.
func (s *Store) Put(ctx context.Context, name string, rec *record.Record) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureIndex(ctx, tx, name); err != nil {
		return "", err
	}
	id, err := upsert(ctx, tx, name, rec)
	if err != nil {
		return "", fmt.Errorf("indexing into %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return id, nil
}

// Bulk stores many records in one transaction. Records that cannot be encoded are
// reported per item; the rest are written.
func (s *Store) Bulk(ctx context.Context, name string, recs []*record.Record) (*index.BulkResult, error) {
	res := &index.BulkResult{}
	if len(recs) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureIndex(ctx, tx, name); err != nil {
		return nil, err
	}
	for i, rec := range recs {
		id, err := upsert(ctx, tx, name, rec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Failed++
			res.Errors = append(res.Errors, index.BulkItemError{
				Position: i,
				ID:       id,
				Status:   400,
				Type:     "document_parsing_exception",
				Reason:   err.Error(),
			})
			continue
		}
		res.Indexed++
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing bulk: %w", err)
	}
	s.logger.Debug("bulk indexed", "index", name, "indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}

func (s *Store) ensureIndex(ctx context.Context, tx *sql.Tx, name string) error {
	if err := validIndexName(name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO indices (name, created_at) VALUES (?, ?)`, name, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	return nil
}

// upsert writes one document and its full-text row, returning the document ID.
func upsert(ctx context.Context, tx *sql.Tx, name string, rec *record.Record) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	source, err := rec.MarshalJSON()
	if err != nil {
		return id, fmt.Errorf("encoding document: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO documents (idx, id, source) VALUES (?, ?, ?)
ON CONFLICT (idx, id) DO UPDATE SET source = excluded.source
RETURNING seq`, name, id, string(source)).Scan(&seq)
	if err != nil {
		return id, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, seq); err != nil {
		return id, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents_fts (rowid, content) VALUES (?, ?)`, seq, ftsContent(rec)); err != nil {
		return id, err
	}
	return id, nil
}

// ftsContent flattens a record into searchable text. Every value is preceded by its
// dotted field path so "field:value" queries can be matched as phrases.
func ftsContent(rec *record.Record) string {
	var b strings.Builder
	for name, v := range rec.All() {
		appendContent(&b, name, v)
	}
	return b.String()
}

func appendContent(b *strings.Builder, path string, v any) {
	switch v := v.(type) {
	case nil:
		return
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			appendContent(b, path+"."+k, v[k])
		}
	case []any:
		for _, item := range v {
			appendContent(b, path, item)
		}
	default:
		text, err := record.FormatCell(v)
		if err != nil || text == "" {
			return
		}
		b.WriteString(path)
		b.WriteByte(' ')
		b.WriteString(text)
		b.WriteByte('\n')
	}
}
