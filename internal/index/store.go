// Package index defines the boundary to a remote search-index store and the cursor
// walker that drains paginated result sets from it.
//
// Concrete stores live in internal/elastic (Elasticsearch REST) and internal/localindex
// (SQLite). Everything above this package talks to the interfaces declared here.
package index

import (
	"context"
	"encoding/json"

	"github.com/helmuth/esport/internal/record"
)

// Batch is one page of records returned by a single retrieval step.
// An empty Batch ends a cursor walk.
type Batch []*record.Record

// Projection restricts which source fields a retrieval returns.
// Include and Exclude are independent; an empty list means no restriction.
type Projection struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// IsZero reports whether the projection restricts nothing.
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Cursor is an opaque, time-limited token for the next page of a result set.
// It is only valid for the store that issued it and must be released.
type Cursor struct {
	Token string
	TTL   string
}

// Valid reports whether a store actually issued this cursor.
func (c Cursor) Valid() bool {
	return c.Token != ""
}

// CursorRequest describes the initial bounded retrieval of a cursor walk.
type CursorRequest struct {
	Index      string
	Size       int
	TTL        string
	Projection Projection
	Query      string // already normalized; empty matches everything
}

// SearchRequest is a one-shot bounded search.
type SearchRequest struct {
	Index      string
	Query      string
	Size       int
	From       int
	Projection Projection
}

// IndexInfo summarizes one index.
type IndexInfo struct {
	Name      string `json:"name"`
	Health    string `json:"health,omitempty"`
	Status    string `json:"status,omitempty"`
	DocsCount int64  `json:"docs_count"`
	StoreSize string `json:"store_size,omitempty"`
}

// Health describes the store's availability.
type Health struct {
	ClusterName   string `json:"cluster_name"`
	Version       string `json:"version,omitempty"`
	Status        string `json:"status"`
	NumberOfNodes int    `json:"number_of_nodes"`
	ActiveShards  int    `json:"active_shards"`
}

// BulkItemError describes one document a bulk write rejected.
type BulkItemError struct {
	Position int    `json:"position"`
	ID       string `json:"id,omitempty"`
	Status   int    `json:"status"`
	Type     string `json:"type,omitempty"`
	Reason   string `json:"reason"`
}

// BulkResult reports the outcome of a bulk write.
type BulkResult struct {
	Indexed int             `json:"indexed"`
	Failed  int             `json:"failed"`
	Errors  []BulkItemError `json:"errors,omitempty"`
}

// Pager is the cursor protocol the walker drives.
type Pager interface {
	// OpenCursor runs the initial retrieval. The returned Cursor may be valid even when
	// the batch is empty; callers must release every valid cursor.
	OpenCursor(ctx context.Context, req CursorRequest) (Batch, Cursor, error)
	// Advance exchanges a cursor for the next batch and the cursor to use afterwards.
	Advance(ctx context.Context, cur Cursor) (Batch, Cursor, error)
	// Release frees the server-side state behind a cursor.
	Release(ctx context.Context, cur Cursor) error
}

// Searcher runs one-shot searches.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (Batch, error)
}

// Documents reads and writes individual documents.
type Documents interface {
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, index, id string) (*record.Record, error)
	// Put stores one record and returns its identifier.
	Put(ctx context.Context, index string, rec *record.Record) (string, error)
	// Bulk stores many records in one round trip.
	Bulk(ctx context.Context, index string, recs []*record.Record) (*BulkResult, error)
}

// Admin covers index administration and health.
type Admin interface {
	Ping(ctx context.Context) (*Health, error)
	Health(ctx context.Context) (*Health, error)
	ListIndices(ctx context.Context) ([]IndexInfo, error)
	CreateIndex(ctx context.Context, name string) error
	DeleteIndex(ctx context.Context, name string) error
	Settings(ctx context.Context, name string) (json.RawMessage, error)
	Mapping(ctx context.Context, name string) (json.RawMessage, error)
	Count(ctx context.Context, name string) (int64, error)
}

// Store is the full index store collaborator.
type Store interface {
	Admin
	Documents
	Searcher
	Pager
	Close() error
}
