package elastic

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/helmuth/esport/internal/index"
)

// Common errors returned by the Elasticsearch client.
var (
	// ErrAuth indicates missing or rejected credentials.
	ErrAuth = errors.New("elasticsearch authentication error")

	// ErrRateLimited indicates the cluster rejected the request with 429.
	ErrRateLimited = errors.New("elasticsearch rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with elasticsearch")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response from elasticsearch")
)

// APIError is an error response from the cluster.
type APIError struct {
	StatusCode int
	Type       string // error.type, e.g. "index_not_found_exception"
	Reason     string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("elasticsearch error (status %d, %s): %s", e.StatusCode, e.Type, e.Reason)
	}
	return fmt.Sprintf("elasticsearch error (status %d): %s", e.StatusCode, e.Reason)
}

// Is maps cluster errors onto the store-level sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case index.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case index.ErrIndexExists:
		return e.Type == "resource_already_exists_exception"
	case ErrAuth:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
