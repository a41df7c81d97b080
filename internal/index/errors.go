package index

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval is matched by every RetrievalError.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrNotFound indicates a document or index does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIndexExists indicates an index with that name already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrCursorExpired indicates a cursor was used after its TTL elapsed.
	ErrCursorExpired = errors.New("cursor expired")

	// ErrCursorNotFound indicates the store does not know the cursor token.
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrInvalidRequest indicates a request was rejected before any remote call.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrWalkerConsumed is yielded when a walk is ranged over a second time.
	ErrWalkerConsumed = errors.New("cursor walk already consumed")
)

// RetrievalError reports a failed remote call made on behalf of a cursor walk.
type RetrievalError struct {
	Op    string // open, advance, release
	Index string
	Err   error
}

func (e *RetrievalError) Error() string {
	if e.Index != "" {
		return fmt.Sprintf("%s cursor on %s: %v", e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("%s cursor: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Is makes every RetrievalError match ErrRetrieval.
func (e *RetrievalError) Is(target error) bool {
	return target == ErrRetrieval
}

// IsNotFound returns true if err reports a missing document or index.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetrieval returns true if err came from a failed cursor walk.
func IsRetrieval(err error) bool {
	return errors.Is(err, ErrRetrieval)
}
