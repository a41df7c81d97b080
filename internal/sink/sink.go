// Package sink writes streamed record batches to the console or to a file.
//
// The encoding is chosen from the destination: no destination prints to the console,
// a ".json" file receives a single JSON array spanning every batch, and any other file
// is written as delimited text (tab-separated for ".tsv", comma-separated otherwise).
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helmuth/esport/internal/record"
)

// Kind identifies a sink encoding.
type Kind string

const (
	KindConsole Kind = "console"
	KindTabular Kind = "tabular"
	KindJSON    Kind = "json"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("sink is closed")

// Sink accumulates batches for one export invocation.
type Sink interface {
	// Write appends a batch. first marks the first batch of the invocation.
	Write(batch []*record.Record, first bool) error
	// Close writes any closing framing and releases the destination. It is safe to
	// call more than once; only the first call does anything.
	Close() error
	// Count returns the number of records written so far.
	Count() int
	// Kind reports the encoding.
	Kind() Kind
}

// Options configures Open.
type Options struct {
	// Header writes a header row (tabular) or the field-name set (console).
	Header bool
	// Stdout receives console output. Defaults to os.Stdout.
	Stdout io.Writer
}

// ResourceError reports a failure to open, write or close a destination.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s console: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// KindFor returns the encoding a destination selects.
func KindFor(dest string) Kind {
	if dest == "" {
		return KindConsole
	}
	if strings.EqualFold(filepath.Ext(dest), ".json") {
		return KindJSON
	}
	return KindTabular
}

// Open creates the sink for a destination. For file destinations the file is created
// (truncated if it exists) before Open returns.
func Open(dest string, opts Options) (Sink, error) {
	kind := KindFor(dest)
	if kind == KindConsole {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return newConsoleSink(out, opts.Header), nil
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, &ResourceError{Op: "create", Path: dest, Err: err}
	}

	if kind == KindJSON {
		s, err := newJSONSink(f, dest)
		if err != nil {
			f.Close()
			return nil, err
		}
		return s, nil
	}

	delim := ','
	if strings.EqualFold(filepath.Ext(dest), ".tsv") {
		delim = '\t'
	}
	return newTabularSink(f, dest, delim, opts.Header), nil
}
