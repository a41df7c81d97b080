package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/helmuth/esport/internal/config"
	"github.com/helmuth/esport/internal/elastic"
	"github.com/helmuth/esport/internal/importer"
	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, file I/O failure)
	ExitConfigError = 2 // Configuration error (unreadable file, invalid values)
	ExitDataError   = 3 // Data error (malformed input, rejected request)
	ExitRetrieval   = 4 // Index store unreachable or a cursor walk failed
	ExitNotFound    = 5 // Index or document does not exist
	ExitCancelled   = 6 // Operator declined a confirmation or interrupted the run
)

// errCancelled is returned when the operator declines a destructive action.
var errCancelled = errors.New("cancelled by operator")

// exitCodeFor maps a command error to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, config.ErrInvalid):
		return ExitConfigError
	case index.IsNotFound(err):
		return ExitNotFound
	case importer.IsParseError(err), importer.IsValidationError(err),
		errors.Is(err, index.ErrInvalidRequest), errors.Is(err, record.ErrUnknownKind),
		errors.Is(err, record.ErrMalformedCell):
		return ExitDataError
	case index.IsRetrieval(err), errors.Is(err, elastic.ErrNetwork), errors.Is(err, elastic.ErrAuth),
		errors.Is(err, elastic.ErrRateLimited), errors.Is(err, elastic.ErrInvalidResponse),
		errors.Is(err, context.DeadlineExceeded):
		return ExitRetrieval
	}

	var apiErr *elastic.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusBadRequest {
			return ExitDataError
		}
		return ExitRetrieval
	}
	return ExitError
}
