// Package importer reads records from files for bulk indexing.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/helmuth/esport/internal/prompt"
	"github.com/helmuth/esport/internal/record"
)

// HeaderPrompt is shown before a delimited file is read.
const HeaderPrompt = "The first row will be used as the header row. Do you want to continue?"

// ParseError reports malformed input. No records are returned alongside it.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parsing ")
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Column)
		}
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %q)", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports a request that was rejected before any file was read.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot import %s: %s", e.Path, e.Reason)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Format is an importable file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
)

// FormatFor returns the format a path's suffix selects.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	case "":
		return "", &ValidationError{Path: path, Reason: "file has no extension (expected .csv, .tsv or .json)"}
	default:
		return "", &ValidationError{Path: path, Reason: fmt.Sprintf("unsupported extension %q (expected .csv, .tsv or .json)", filepath.Ext(path))}
	}
}

// Import reads every record from path. Delimited files are confirmed first through c;
// a declined confirmation returns no records and no error, the same as an empty file.
func Import(ctx context.Context, path string, c prompt.Confirmer) ([]*record.Record, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return ReadJSON(path)
	case FormatTSV:
		return ReadTabular(ctx, path, '\t', c)
	default:
		return ReadTabular(ctx, path, ',', c)
	}
}
