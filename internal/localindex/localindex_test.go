package localindex

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func openTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := Open(filepath.Join(t.TempDir(), "es.db"), WithClock(clock.now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func seedPeople(t *testing.T, s *Store) {
	t.Helper()
	recs := []*record.Record{
		record.FromPairs("p1", "name", "Ann Lee", "status", "active", "region", "us", "user_id", 1),
		record.FromPairs("p2", "name", "Bob Stone", "status", "inactive", "region", "eu", "user_id", 2),
		record.FromPairs("p3", "name", "Cleo Park", "status", "active", "region", "eu", "user_id", 3, "archived", true),
		record.FromPairs("p4", "name", "Dan Wu", "status", "active", "region", "apac", "user_id", 4),
		record.FromPairs("p5", "name", "Eve Moss", "status", "active", "region", "us", "user_id", 5,
			"location", map[string]any{"city": "Berlin"}),
	}
	res, err := s.Bulk(context.Background(), "people", recs)
	require.NoError(t, err)
	require.Equal(t, 5, res.Indexed)
}

func ids(batch index.Batch) []string {
	out := make([]string, len(batch))
	for i, r := range batch {
		out[i] = r.ID
	}
	return out
}

func TestIndexLifecycle(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateIndex(ctx, "people"))
	assert.ErrorIs(t, s.CreateIndex(ctx, "people"), index.ErrIndexExists)
	assert.ErrorIs(t, s.CreateIndex(ctx, "People"), index.ErrInvalidRequest)

	seedPeople(t, s)

	infos, err := s.ListIndices(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "people", infos[0].Name)
	assert.Equal(t, int64(5), infos[0].DocsCount)

	n, err := s.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.NoError(t, s.DeleteIndex(ctx, "people"))
	_, err = s.Count(ctx, "people")
	assert.ErrorIs(t, err, index.ErrNotFound)
	assert.ErrorIs(t, s.DeleteIndex(ctx, "people"), index.ErrNotFound)
}

func TestHealth(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.CreateIndex(context.Background(), "a"))

	h, err := s.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ClusterName, h.ClusterName)
	assert.Equal(t, "green", h.Status)
	assert.Equal(t, 1, h.ActiveShards)
	assert.Contains(t, h.Version, "sqlite ")
}

func TestPutAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, "notes", record.FromPairs("", "title", "hello"))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := s.Get(ctx, "notes", id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	title, _ := got.Get("title")
	assert.Equal(t, "hello", title)

	_, err = s.Put(ctx, "notes", record.FromPairs(id, "title", "updated", "tags", []any{"x"}))
	require.NoError(t, err)
	got, err = s.Get(ctx, "notes", id)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "tags"}, got.Names())

	n, err := s.Count(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "notes", "missing")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestSettingsAndMapping(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	seedPeople(t, s)

	settings, err := s.Settings(ctx, "people")
	require.NoError(t, err)
	var parsed map[string]map[string]any
	require.NoError(t, json.Unmarshal(settings, &parsed))
	assert.Equal(t, "people", parsed["index"]["provided_name"])

	mapping, err := s.Mapping(ctx, "people")
	require.NoError(t, err)
	assert.JSONEq(t, `{"properties":{
		"name":{"type":"text"},
		"status":{"type":"text"},
		"region":{"type":"text"},
		"user_id":{"type":"long"},
		"archived":{"type":"boolean"},
		"location":{"type":"object"}
	}}`, string(mapping))

	_, err = s.Settings(ctx, "nope")
	assert.ErrorIs(t, err, index.ErrNotFound)
}

func TestSearch(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"match all", "", []string{"p1", "p2", "p3", "p4", "p5"}},
		{"field value", "status:active", []string{"p1", "p3", "p4", "p5"}},
		{"boolean", "status:active AND (region:us OR region:eu) NOT archived", []string{"p1", "p5"}},
		{"implicit and", "active us", []string{"p1", "p5"}},
		{"prefix", "name:Bo*", []string{"p2"}},
		{"nested field", "location.city:berlin", []string{"p5"}},
		{"phrase", `name:"cleo park"`, []string{"p3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := s.Search(ctx, index.SearchRequest{Index: "people", Query: tt.query, Size: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(batch))
		})
	}
}

func TestSearchPaging(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)

	batch, err := s.Search(context.Background(), index.SearchRequest{Index: "people", Size: 2, From: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p4"}, ids(batch))
}

func TestSearchErrors(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	_, err := s.Search(ctx, index.SearchRequest{Index: "missing", Size: 1})
	assert.ErrorIs(t, err, index.ErrNotFound)

	_, err = s.Search(ctx, index.SearchRequest{Index: "people", Query: `name:"open`, Size: 1})
	assert.ErrorIs(t, err, index.ErrInvalidRequest)

	_, err = s.Search(ctx, index.SearchRequest{Index: "people", Query: "status:active AND", Size: 1})
	assert.ErrorIs(t, err, index.ErrInvalidRequest)
}

func TestProjection(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)

	batch, err := s.Search(context.Background(), index.SearchRequest{
		Index:      "people",
		Size:       1,
		Projection: index.Projection{Include: []string{"name", "user*", "status"}, Exclude: []string{"stat*"}},
	})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, []string{"name", "user_id"}, batch[0].Names())
}

func TestCursorWalk(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)

	req := index.CursorRequest{Index: "people", Size: 2, TTL: "1m", Query: "status:active"}
	var got []string
	pages := 0
	for batch, err := range index.Walk(context.Background(), s, req) {
		require.NoError(t, err)
		pages++
		got = append(got, ids(batch)...)
	}

	assert.Equal(t, []string{"p1", "p3", "p4", "p5"}, got)
	assert.Equal(t, 2, pages)

	var open int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cursors`).Scan(&open))
	assert.Equal(t, 0, open)
}

func TestCursorKeepsProjection(t *testing.T) {
	s, _ := openTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	first, cur, err := s.OpenCursor(ctx, index.CursorRequest{
		Index: "people", Size: 3, TTL: "1m", Projection: index.Projection{Include: []string{"name"}},
	})
	require.NoError(t, err)
	require.Len(t, first, 3)

	next, _, err := s.Advance(ctx, cur)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, []string{"name"}, next[0].Names())
	require.NoError(t, s.Release(ctx, cur))
}

func TestCursorExpiry(t *testing.T) {
	s, clock := openTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	_, cur, err := s.OpenCursor(ctx, index.CursorRequest{Index: "people", Size: 1, TTL: "30s"})
	require.NoError(t, err)

	// Each use extends the expiry.
	clock.advance(20 * time.Second)
	_, _, err = s.Advance(ctx, cur)
	require.NoError(t, err)
	clock.advance(20 * time.Second)
	_, _, err = s.Advance(ctx, cur)
	require.NoError(t, err)

	clock.advance(31 * time.Second)
	_, _, err = s.Advance(ctx, cur)
	assert.ErrorIs(t, err, index.ErrCursorExpired)

	assert.ErrorIs(t, s.Release(ctx, cur), index.ErrCursorNotFound)
}

func TestAdvanceUnknownCursor(t *testing.T) {
	s, _ := openTestStore(t)

	_, _, err := s.Advance(context.Background(), index.Cursor{Token: "nope", TTL: "1m"})
	assert.ErrorIs(t, err, index.ErrCursorNotFound)
}

func TestOpenCursorMissingIndex(t *testing.T) {
	s, _ := openTestStore(t)

	_, cur, err := s.OpenCursor(context.Background(), index.CursorRequest{Index: "missing", Size: 1, TTL: "1m"})
	assert.ErrorIs(t, err, index.ErrNotFound)
	assert.False(t, cur.Valid())
}

func TestReopenPurgesExpiredCursors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "es.db")
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	s, err := Open(path, WithClock(clock.now))
	require.NoError(t, err)
	seedPeople(t, s)
	_, _, err = s.OpenCursor(context.Background(), index.CursorRequest{Index: "people", Size: 1, TTL: "1m"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	clock.advance(time.Hour)
	s, err = Open(path, WithClock(clock.now))
	require.NoError(t, err)
	defer s.Close()

	var open int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cursors`).Scan(&open))
	assert.Equal(t, 0, open)
}

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello", `"hello"`},
		{"status:active AND (region:us OR region:eu) NOT archived",
			`"status active" AND ( "region us" OR "region eu" ) NOT "archived"`},
		{"name:Ann*", `"name Ann"*`},
		{`title:"big deal"`, `"title big deal"`},
		{"--", ""},
	}

	for _, tt := range tests {
		got, err := ftsQuery(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBulkRejectsBadIndexName(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Bulk(context.Background(), "Bad Name", []*record.Record{record.FromPairs("", "a", 1)})
	assert.ErrorIs(t, err, index.ErrInvalidRequest)
}
