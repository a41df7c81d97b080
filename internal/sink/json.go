package sink

import (
	"bufio"
	"fmt"
	"io"

	"github.com/helmuth/esport/internal/record"
)

// jsonSink writes one JSON array across every batch of an invocation. The opening
// bracket is written when the sink is created and the closing bracket on Close; a comma
// precedes every record except the first one of the whole output.
type jsonSink struct {
	f      io.WriteCloser
	path   string
	w      *bufio.Writer
	count  int
	closed bool
}

func newJSONSink(f io.WriteCloser, path string) (*jsonSink, error) {
	s := &jsonSink{f: f, path: path, w: bufio.NewWriter(f)}
	if err := s.w.WriteByte('['); err != nil {
		return nil, &ResourceError{Op: "write to", Path: path, Err: err}
	}
	return s, nil
}

func (s *jsonSink) Kind() Kind { return KindJSON }

func (s *jsonSink) Count() int { return s.count }

// Write ignores first: separators depend only on whether any record was already
// emitted, which also covers a first batch that happened to be empty.
func (s *jsonSink) Write(batch []*record.Record, first bool) error {
	if s.closed {
		return ErrClosed
	}

	for _, rec := range batch {
		if rec == nil {
			continue
		}
		data, err := rec.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		if s.count > 0 {
			if err := s.w.WriteByte(','); err != nil {
				return &ResourceError{Op: "write to", Path: s.path, Err: err}
			}
		}
		if _, err := s.w.Write(data); err != nil {
			return &ResourceError{Op: "write to", Path: s.path, Err: err}
		}
		s.count++
	}

	if err := s.w.Flush(); err != nil {
		return &ResourceError{Op: "write to", Path: s.path, Err: err}
	}
	return nil
}

func (s *jsonSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var writeErr error
	if err := s.w.WriteByte(']'); err != nil {
		writeErr = err
	} else if err := s.w.Flush(); err != nil {
		writeErr = err
	}
	closeErr := s.f.Close()
	if writeErr != nil {
		return &ResourceError{Op: "finish", Path: s.path, Err: writeErr}
	}
	if closeErr != nil {
		return &ResourceError{Op: "close", Path: s.path, Err: closeErr}
	}
	return nil
}
