package localindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

// Search runs one query against an index in insertion order.
func (s *Store) Search(ctx context.Context, req index.SearchRequest) (index.Batch, error) {
	if err := requireIndex(ctx, s.db, req.Index); err != nil {
		return nil, err
	}
	match, err := ftsQuery(req.Query)
	if err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return index.Batch{}, nil
	}
	batch, _, err := s.page(ctx, req.Index, match, req.Projection, 0, req.Size, req.From)
	return batch, err
}

// OpenCursor starts a walk over the matching documents of an index. The cursor expires
// TTL after its last use.
func (s *Store) OpenCursor(ctx context.Context, req index.CursorRequest) (index.Batch, index.Cursor, error) {
	ttl, err := index.ParseTTL(req.TTL)
	if err != nil {
		return nil, index.Cursor{}, err
	}
	if err := requireIndex(ctx, s.db, req.Index); err != nil {
		return nil, index.Cursor{}, err
	}
	match, err := ftsQuery(req.Query)
	if err != nil {
		return nil, index.Cursor{}, err
	}

	batch, lastSeq, err := s.page(ctx, req.Index, match, req.Projection, 0, req.Size, 0)
	if err != nil {
		return nil, index.Cursor{}, err
	}

	include, _ := json.Marshal(req.Projection.Include)
	exclude, _ := json.Marshal(req.Projection.Exclude)
	token := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO cursors (token, idx, match, include, exclude, size, last_seq, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token, req.Index, match, string(include), string(exclude), req.Size, lastSeq, s.expiry(ttl))
	if err != nil {
		return nil, index.Cursor{}, fmt.Errorf("storing cursor: %w", err)
	}
	return batch, index.Cursor{Token: token, TTL: req.TTL}, nil
}

// Advance returns the page after the cursor's last position and extends its expiry.
func (s *Store) Advance(ctx context.Context, cur index.Cursor) (index.Batch, index.Cursor, error) {
	ttl, err := index.ParseTTL(cur.TTL)
	if err != nil {
		return nil, index.Cursor{}, err
	}

	var (
		name, match, include, exclude string
		size                          int
		lastSeq, expiresAt            int64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT idx, match, include, exclude, size, last_seq, expires_at FROM cursors WHERE token = ?`, cur.Token).
		Scan(&name, &match, &include, &exclude, &size, &lastSeq, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, index.Cursor{}, fmt.Errorf("cursor %s: %w", cur.Token, index.ErrCursorNotFound)
	}
	if err != nil {
		return nil, index.Cursor{}, fmt.Errorf("loading cursor: %w", err)
	}
	if s.now().UnixMilli() > expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE token = ?`, cur.Token); err != nil {
			s.logger.Warn("deleting expired cursor", "token", cur.Token, "error", err)
		}
		return nil, index.Cursor{}, fmt.Errorf("cursor %s: %w", cur.Token, index.ErrCursorExpired)
	}

	var proj index.Projection
	if err := json.Unmarshal([]byte(include), &proj.Include); err != nil {
		return nil, index.Cursor{}, fmt.Errorf("decoding cursor projection: %w", err)
	}
	if err := json.Unmarshal([]byte(exclude), &proj.Exclude); err != nil {
		return nil, index.Cursor{}, fmt.Errorf("decoding cursor projection: %w", err)
	}

	batch, next, err := s.page(ctx, name, match, proj, lastSeq, size, 0)
	if err != nil {
		return nil, index.Cursor{}, err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE cursors SET last_seq = ?, expires_at = ? WHERE token = ?`, next, s.expiry(ttl), cur.Token)
	if err != nil {
		return nil, index.Cursor{}, fmt.Errorf("updating cursor: %w", err)
	}
	return batch, cur, nil
}

// Release deletes a cursor.
func (s *Store) Release(ctx context.Context, cur index.Cursor) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE token = ?`, cur.Token)
	if err != nil {
		return fmt.Errorf("releasing cursor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cursor %s: %w", cur.Token, index.ErrCursorNotFound)
	}
	return nil
}

func (s *Store) expiry(ttl time.Duration) int64 {
	return s.now().Add(ttl).UnixMilli()
}

// page reads up to size documents after seq, skipping offset matches. It returns the
// sequence number of the last document read.
func (s *Store) page(ctx context.Context, name, match string, proj index.Projection, after int64, size, offset int) (index.Batch, int64, error) {
	query := `SELECT d.seq, d.id, d.source FROM documents d WHERE d.idx = ? AND d.seq > ?`
	args := []any{name, after}
	if match != "" {
		query += ` AND d.seq IN (SELECT rowid FROM documents_fts WHERE documents_fts MATCH ?)`
		args = append(args, match)
	}
	query += ` ORDER BY d.seq LIMIT ? OFFSET ?`
	args = append(args, size, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if match != "" && strings.Contains(err.Error(), "fts5") {
			return nil, 0, fmt.Errorf("%w: query %q: %v", index.ErrInvalidRequest, match, err)
		}
		return nil, 0, fmt.Errorf("reading %s: %w", name, err)
	}
	defer rows.Close()

	batch := index.Batch{}
	last := after
	for rows.Next() {
		var id, source string
		if err := rows.Scan(&last, &id, &source); err != nil {
			return nil, 0, fmt.Errorf("scanning document: %w", err)
		}
		rec, err := record.Decode(id, []byte(source))
		if err != nil {
			return nil, 0, fmt.Errorf("decoding document %s: %w", id, err)
		}
		if err := project(rec, proj); err != nil {
			return nil, 0, err
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		if match != "" && strings.Contains(err.Error(), "fts5") {
			return nil, 0, fmt.Errorf("%w: query %q: %v", index.ErrInvalidRequest, match, err)
		}
		return nil, 0, err
	}
	return batch, last, nil
}

// project applies include then exclude patterns to top-level field names. Patterns use
// glob syntax, so "user*" or "*_at" select groups of fields.
func project(rec *record.Record, proj index.Projection) error {
	if proj.IsZero() {
		return nil
	}
	for _, name := range rec.Names() {
		keep := len(proj.Include) == 0
		for _, pattern := range proj.Include {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return fmt.Errorf("%w: include pattern %q: %v", index.ErrInvalidRequest, pattern, err)
			}
			if ok {
				keep = true
				break
			}
		}
		for _, pattern := range proj.Exclude {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return fmt.Errorf("%w: exclude pattern %q: %v", index.ErrInvalidRequest, pattern, err)
			}
			if ok {
				keep = false
				break
			}
		}
		if !keep {
			rec.Delete(name)
		}
	}
	return nil
}

// ftsQuery translates a query string into an FTS5 expression. It understands bare terms,
// quoted phrases, field:value pairs, trailing * wildcards, AND/OR/NOT and parentheses.
// Adjacent terms are implicitly ANDed. An empty query returns "".
func ftsQuery(q string) (string, error) {
	tokens, err := tokenize(q)
	if err != nil {
		return "", err
	}

	var out []string
	for _, tok := range tokens {
		switch tok {
		case "AND", "OR", "NOT", "(", ")":
			out = append(out, tok)
			continue
		}

		quoted := strings.HasPrefix(tok, `"`)
		prefix := !quoted && strings.HasSuffix(tok, "*")
		words := strings.FieldsFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(words) == 0 {
			continue
		}
		phrase := `"` + strings.Join(words, " ") + `"`
		if prefix {
			phrase += "*"
		}
		out = append(out, phrase)
	}
	return strings.Join(out, " "), nil
}

// tokenize splits a query into operators, parentheses, quoted phrases and terms.
// A field:"quoted value" pair stays one token.
func tokenize(q string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range q {
		switch {
		case inQuote:
			cur.WriteRune(r)
			if r == '"' {
				inQuote = false
			}
		case r == '"':
			if cur.Len() == 0 || strings.HasSuffix(cur.String(), ":") {
				inQuote = true
				cur.WriteRune(r)
				continue
			}
			cur.WriteRune(r)
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in query %q", index.ErrInvalidRequest, q)
	}
	flush()
	return tokens, nil
}
