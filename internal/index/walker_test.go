package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/helmuth/esport/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePager serves pre-built pages and records every call.
type fakePager struct {
	pages      []Batch
	noCursor   bool
	openErr    error
	advanceErr error
	failAt     int // advance call (1-based) that fails; 0 = never
	releaseErr error

	opened      int
	advances    int
	released    []Cursor
	releaseCtxs []context.Context
}

func (f *fakePager) OpenCursor(ctx context.Context, req CursorRequest) (Batch, Cursor, error) {
	f.opened++
	if f.openErr != nil {
		return nil, Cursor{}, f.openErr
	}
	cur := Cursor{Token: "tok-0", TTL: req.TTL}
	if f.noCursor {
		cur = Cursor{}
	}
	return f.page(0), cur, nil
}

func (f *fakePager) Advance(ctx context.Context, cur Cursor) (Batch, Cursor, error) {
	f.advances++
	if f.failAt == f.advances {
		return nil, Cursor{}, f.advanceErr
	}
	return f.page(f.advances), Cursor{Token: fmt.Sprintf("tok-%d", f.advances), TTL: cur.TTL}, nil
}

func (f *fakePager) Release(ctx context.Context, cur Cursor) error {
	f.released = append(f.released, cur)
	f.releaseCtxs = append(f.releaseCtxs, ctx)
	return f.releaseErr
}

func (f *fakePager) page(i int) Batch {
	if i < len(f.pages) {
		return f.pages[i]
	}
	return Batch{}
}

func batchOf(ids ...string) Batch {
	b := make(Batch, len(ids))
	for i, id := range ids {
		b[i] = record.FromPairs(id, "id", id)
	}
	return b
}

func validRequest() CursorRequest {
	return CursorRequest{Index: "people", Size: 2, TTL: "1m"}
}

func collect(t *testing.T, seq func(func(Batch, error) bool)) ([]Batch, []error) {
	t.Helper()
	var batches []Batch
	var errs []error
	for b, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		batches = append(batches, b)
	}
	return batches, errs
}

func TestWalkDrainsAllPagesAndReleasesOnce(t *testing.T) {
	p := &fakePager{pages: []Batch{batchOf("1", "2"), batchOf("3"), {}}}

	batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

	require.Empty(t, errs)
	require.Len(t, batches, 2)
	assert.Equal(t, "1", batches[0][0].ID)
	assert.Equal(t, "3", batches[1][0].ID)
	assert.Equal(t, 2, p.advances, "stops after the first empty batch")
	require.Len(t, p.released, 1)
	assert.Equal(t, "tok-2", p.released[0].Token, "releases the latest cursor")
}

func TestWalkEmptyFirstBatch(t *testing.T) {
	p := &fakePager{}

	batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

	assert.Empty(t, batches)
	assert.Empty(t, errs)
	assert.Equal(t, 0, p.advances)
	assert.Len(t, p.released, 1)
}

func TestWalkWithoutCursorSkipsRelease(t *testing.T) {
	p := &fakePager{noCursor: true}

	_, errs := collect(t, Walk(context.Background(), p, validRequest()))

	assert.Empty(t, errs)
	assert.Empty(t, p.released)
}

func TestWalkConsumerStopsEarly(t *testing.T) {
	p := &fakePager{pages: []Batch{batchOf("1"), batchOf("2"), batchOf("3")}}

	seen := 0
	for _, err := range Walk(context.Background(), p, validRequest()) {
		require.NoError(t, err)
		seen++
		break
	}

	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, p.advances)
	assert.Len(t, p.released, 1)
}

func TestWalkAdvanceFailure(t *testing.T) {
	cause := errors.New("connection reset")
	p := &fakePager{pages: []Batch{batchOf("1"), batchOf("2")}, failAt: 1, advanceErr: cause, releaseErr: errors.New("also broken")}

	batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

	assert.Len(t, batches, 1)
	require.Len(t, errs, 1, "release failure must not mask the advance failure")
	assert.ErrorIs(t, errs[0], ErrRetrieval)
	assert.ErrorIs(t, errs[0], cause)

	var rerr *RetrievalError
	require.ErrorAs(t, errs[0], &rerr)
	assert.Equal(t, "advance", rerr.Op)
	assert.Equal(t, "people", rerr.Index)
	require.Len(t, p.released, 1)
	assert.Equal(t, "tok-0", p.released[0].Token, "keeps the last good cursor")
}

func TestWalkReleaseFailureIsReported(t *testing.T) {
	cause := errors.New("scroll gone")
	p := &fakePager{pages: []Batch{batchOf("1")}, releaseErr: cause}

	batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

	assert.Len(t, batches, 1)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cause)
	assert.True(t, IsRetrieval(errs[0]))
}

func TestWalkOpenFailure(t *testing.T) {
	cause := errors.New("index_not_found_exception")
	p := &fakePager{openErr: cause}

	batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

	assert.Empty(t, batches)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cause)
	assert.Empty(t, p.released)
}

func TestWalkRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  CursorRequest
	}{
		{"no index", CursorRequest{Size: 1, TTL: "1m"}},
		{"zero size", CursorRequest{Index: "x", TTL: "1m"}},
		{"bad ttl", CursorRequest{Index: "x", Size: 1, TTL: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePager{}
			_, errs := collect(t, Walk(context.Background(), p, tt.req))
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], ErrInvalidRequest)
			assert.Equal(t, 0, p.opened)
		})
	}
}

func TestWalkIsNotRestartable(t *testing.T) {
	p := &fakePager{pages: []Batch{batchOf("1")}}
	seq := Walk(context.Background(), p, validRequest())

	first, errs := collect(t, seq)
	require.Empty(t, errs)
	require.Len(t, first, 1)

	second, errs := collect(t, seq)
	assert.Empty(t, second)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrWalkerConsumed)
	assert.Equal(t, 1, p.opened)
}

func TestWalkCancelledContextStillReleases(t *testing.T) {
	p := &fakePager{pages: []Batch{batchOf("1"), batchOf("2")}}
	ctx, cancel := context.WithCancel(context.Background())

	var errs []error
	for _, err := range Walk(ctx, p, validRequest()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cancel()
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Equal(t, 0, p.advances)
	require.Len(t, p.releaseCtxs, 1)
	assert.NoError(t, p.releaseCtxs[0].Err(), "release runs with a live context")
}

func TestWalkTerminatesForFiniteResultSets(t *testing.T) {
	for n := 0; n < 6; n++ {
		var pages []Batch
		for i := 0; i < n; i++ {
			pages = append(pages, batchOf(fmt.Sprint(i)))
		}
		p := &fakePager{pages: pages}

		batches, errs := collect(t, Walk(context.Background(), p, validRequest()))

		assert.Empty(t, errs)
		assert.Len(t, batches, n)
		assert.Len(t, p.released, 1, "pages=%d", n)
	}
}
