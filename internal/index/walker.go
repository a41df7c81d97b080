package index

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"
)

// WalkOption configures Walk.
type WalkOption func(*walker)

// WithLogger sets the logger used for cleanup failures that cannot be yielded.
func WithLogger(l *slog.Logger) WalkOption {
	return func(w *walker) {
		w.logger = l
	}
}

type walker struct {
	pager    Pager
	req      CursorRequest
	logger   *slog.Logger
	consumed atomic.Bool
}

// Walk drains a paginated result set. It opens a cursor, yields every non-empty batch in
// cursor order and stops at the first empty batch.
//
// The sequence is forward-only and can be ranged over once. The cursor is released
// exactly once when the walk ends, whether it ran to completion, failed, or the consumer
// stopped early. Failures are yielded as *RetrievalError and end the walk; nothing is
// retried.
func Walk(ctx context.Context, p Pager, req CursorRequest, opts ...WalkOption) iter.Seq2[Batch, error] {
	w := &walker{pager: p, req: req, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w.run(ctx)
}

func (w *walker) run(ctx context.Context) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		if w.consumed.Swap(true) {
			yield(nil, ErrWalkerConsumed)
			return
		}
		if err := w.req.Validate(); err != nil {
			yield(nil, err)
			return
		}

		batch, cur, err := w.pager.OpenCursor(ctx, w.req)

		// reported is set once an error has been yielded or the consumer stopped; after
		// that nothing else may be yielded.
		reported := false
		defer func() {
			if !cur.Valid() {
				return
			}
			relErr := w.pager.Release(context.WithoutCancel(ctx), cur)
			if relErr == nil {
				return
			}
			relErr = &RetrievalError{Op: "release", Index: w.req.Index, Err: relErr}
			if reported {
				w.logger.Warn("cursor release failed", "index", w.req.Index, "error", relErr)
				return
			}
			yield(nil, relErr)
		}()

		if err != nil {
			reported = true
			yield(nil, &RetrievalError{Op: "open", Index: w.req.Index, Err: err})
			return
		}

		for pages := 1; len(batch) > 0; pages++ {
			if !yield(batch, nil) {
				reported = true
				return
			}
			if err := ctx.Err(); err != nil {
				reported = true
				yield(nil, &RetrievalError{Op: "advance", Index: w.req.Index, Err: err})
				return
			}

			next, nextCur, err := w.pager.Advance(ctx, cur)
			if nextCur.Valid() {
				cur = nextCur
			}
			if err != nil {
				reported = true
				yield(nil, &RetrievalError{Op: "advance", Index: w.req.Index, Err: err})
				return
			}
			w.logger.Debug("advanced cursor", "index", w.req.Index, "page", pages+1, "records", len(next))
			batch = next
		}
	}
}

// Validate checks the request without contacting the store.
func (req CursorRequest) Validate() error {
	if req.Index == "" {
		return fmt.Errorf("%w: index name is required", ErrInvalidRequest)
	}
	if req.Size <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidRequest, req.Size)
	}
	if _, err := ParseTTL(req.TTL); err != nil {
		return err
	}
	return nil
}
