package sink

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/helmuth/esport/internal/record"
)

// tabularSink writes delimited text. Columns are fixed by the first record that has
// any fields; later rows are aligned to them, leaving missing fields empty and
// dropping fields the columns do not name.
type tabularSink struct {
	f       io.WriteCloser
	path    string
	w       *csv.Writer
	header  bool
	columns []string
	count   int
	closed  bool
}

func newTabularSink(f io.WriteCloser, path string, delim rune, header bool) *tabularSink {
	w := csv.NewWriter(f)
	w.Comma = delim
	return &tabularSink{f: f, path: path, w: w, header: header}
}

func (s *tabularSink) Kind() Kind { return KindTabular }

func (s *tabularSink) Count() int { return s.count }

// Columns returns the fixed column order, or nil before the first row.
func (s *tabularSink) Columns() []string { return s.columns }

func (s *tabularSink) Write(batch []*record.Record, first bool) error {
	if s.closed {
		return ErrClosed
	}
	if len(batch) == 0 {
		return nil
	}

	for _, rec := range batch {
		if rec == nil || rec.Len() == 0 {
			continue
		}
		if s.columns == nil {
			s.columns = rec.Names()
			if s.header && first {
				if err := s.w.Write(s.columns); err != nil {
					return &ResourceError{Op: "write header to", Path: s.path, Err: err}
				}
			}
		}
		row, err := s.row(rec)
		if err != nil {
			return err
		}
		if err := s.w.Write(row); err != nil {
			return &ResourceError{Op: "write to", Path: s.path, Err: err}
		}
		s.count++
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return &ResourceError{Op: "write to", Path: s.path, Err: err}
	}
	return nil
}

func (s *tabularSink) row(rec *record.Record) ([]string, error) {
	row := make([]string, len(s.columns))
	for i, col := range s.columns {
		v, ok := rec.Get(col)
		if !ok {
			continue
		}
		cell, err := record.FormatCell(v)
		if err != nil {
			return nil, fmt.Errorf("formatting field %q of record %s: %w", col, rec.ID, err)
		}
		row[i] = cell
	}
	return row, nil
}

func (s *tabularSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.f.Close()
	if flushErr != nil {
		return &ResourceError{Op: "flush", Path: s.path, Err: flushErr}
	}
	if closeErr != nil {
		return &ResourceError{Op: "close", Path: s.path, Err: closeErr}
	}
	return nil
}
