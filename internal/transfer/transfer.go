// Package transfer runs whole export and import invocations: a cursor walk into a sink,
// a one-shot search into a sink, and chunked bulk indexing of imported records.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
	"github.com/helmuth/esport/internal/sink"
)

// Option configures a transfer.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	progress func(done, total int)
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithProgress registers a callback invoked after every written batch or bulk chunk.
// total is 0 when it is not known in advance.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Stats summarizes an export.
type Stats struct {
	Index    string        `json:"index"`
	Sink     sink.Kind     `json:"sink"`
	Batches  int           `json:"batches"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration_ns"`
}

// Export walks every page of req into s. s is always closed before Export returns, and the
// cursor is always released. The first failure is returned; failures during cleanup that
// follow it are logged.
func Export(ctx context.Context, p index.Pager, req index.CursorRequest, s sink.Sink, opts ...Option) (stats *Stats, err error) {
	o := buildOptions(opts)
	start := time.Now()
	stats = &Stats{Index: req.Index, Sink: s.Kind()}

	defer func() {
		closeErr := s.Close()
		stats.Records = s.Count()
		stats.Duration = time.Since(start)
		if closeErr == nil {
			return
		}
		if err != nil {
			o.logger.Warn("closing sink after failed export", "index", req.Index, "error", closeErr)
			return
		}
		err = closeErr
	}()

	walk := index.Walk(ctx, p, req, index.WithLogger(o.logger))
	for batch, walkErr := range walk {
		if walkErr != nil {
			return stats, walkErr
		}
		if writeErr := s.Write(batch, stats.Batches == 0); writeErr != nil {
			return stats, writeErr
		}
		stats.Batches++
		o.logger.Debug("wrote batch", "index", req.Index, "batch", stats.Batches, "records", len(batch))
		if o.progress != nil {
			o.progress(s.Count(), 0)
		}
	}
	return stats, nil
}

// Search runs one search and writes its single batch to s, which is closed before Search
// returns.
func Search(ctx context.Context, searcher index.Searcher, req index.SearchRequest, s sink.Sink, opts ...Option) (stats *Stats, err error) {
	o := buildOptions(opts)
	start := time.Now()
	stats = &Stats{Index: req.Index, Sink: s.Kind()}

	defer func() {
		closeErr := s.Close()
		stats.Records = s.Count()
		stats.Duration = time.Since(start)
		if closeErr == nil {
			return
		}
		if err != nil {
			o.logger.Warn("closing sink after failed search", "index", req.Index, "error", closeErr)
			return
		}
		err = closeErr
	}()

	if req.Size < 0 || req.From < 0 {
		return stats, fmt.Errorf("%w: size and page must not be negative", index.ErrInvalidRequest)
	}

	batch, err := searcher.Search(ctx, req)
	if err != nil {
		return stats, fmt.Errorf("searching %s: %w", req.Index, err)
	}
	if err := s.Write(batch, true); err != nil {
		return stats, err
	}
	stats.Batches = 1
	return stats, nil
}

// ErrNothingToImport is returned by Index when there are no records.
var ErrNothingToImport = errors.New("no records to import")

// DefaultBulkSize is the number of records sent per bulk request when none is given.
const DefaultBulkSize = 500

// Index writes recs to the named index in chunks of bulkSize. Item failures are collected
// in the result; a failed request stops the import and is returned with the partial
// result.
func Index(ctx context.Context, docs index.Documents, name string, recs []*record.Record, bulkSize int, opts ...Option) (*index.BulkResult, error) {
	o := buildOptions(opts)
	if len(recs) == 0 {
		return nil, ErrNothingToImport
	}
	if bulkSize <= 0 {
		bulkSize = DefaultBulkSize
	}

	total := &index.BulkResult{}
	for start := 0; start < len(recs); start += bulkSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		end := min(start+bulkSize, len(recs))

		res, err := docs.Bulk(ctx, name, recs[start:end])
		if err != nil {
			return total, fmt.Errorf("bulk indexing records %d-%d into %s: %w", start+1, end, name, err)
		}

		total.Indexed += res.Indexed
		total.Failed += res.Failed
		for _, item := range res.Errors {
			item.Position += start
			total.Errors = append(total.Errors, item)
		}

		o.logger.Debug("bulk chunk indexed", "index", name, "indexed", res.Indexed, "failed", res.Failed)
		if o.progress != nil {
			o.progress(end, len(recs))
		}
	}
	return total, nil
}
