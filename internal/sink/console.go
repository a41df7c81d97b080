package sink

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/helmuth/esport/internal/record"
)

// consoleSink prints one record per line. It does not own the writer.
type consoleSink struct {
	w      *bufio.Writer
	header bool
	count  int
	closed bool
}

func newConsoleSink(w io.Writer, header bool) *consoleSink {
	return &consoleSink{w: bufio.NewWriter(w), header: header}
}

func (s *consoleSink) Kind() Kind { return KindConsole }

func (s *consoleSink) Count() int { return s.count }

func (s *consoleSink) Write(batch []*record.Record, first bool) error {
	if s.closed {
		return ErrClosed
	}
	if s.header && first {
		for _, rec := range batch {
			if rec != nil && rec.Len() > 0 {
				fmt.Fprintf(s.w, "[%s]\n", strings.Join(rec.Names(), ", "))
				break
			}
		}
	}

	for _, rec := range batch {
		if rec == nil || rec.Len() == 0 {
			continue
		}
		data, err := rec.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		if rec.ID != "" {
			fmt.Fprintf(s.w, "%s\t%s\n", rec.ID, data)
		} else {
			fmt.Fprintf(s.w, "%s\n", data)
		}
		s.count++
	}

	if err := s.w.Flush(); err != nil {
		return &ResourceError{Op: "write", Err: err}
	}
	return nil
}

func (s *consoleSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		return &ResourceError{Op: "flush", Err: err}
	}
	return nil
}
