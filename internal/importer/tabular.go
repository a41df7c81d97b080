package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/helmuth/esport/internal/prompt"
	"github.com/helmuth/esport/internal/record"
)

// IDColumn is the header name whose cells become record IDs instead of fields.
const IDColumn = "_id"

const utf8BOM = "\ufeff"

// ReadTabular asks c to confirm, then parses the delimited file at path. The first row is
// the header; every later row becomes one record with cells coerced by record.Coerce.
// If c declines, the file is never opened and (nil, nil) is returned.
func ReadTabular(ctx context.Context, path string, delim rune, c prompt.Confirmer) ([]*record.Record, error) {
	ok, err := c.Confirm(ctx, HeaderPrompt)
	if err != nil {
		return nil, fmt.Errorf("confirming import: %w", err)
	}
	if !ok {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return ParseTabular(f, path, delim)
}

// ParseTabular parses delimited text from r. path is only used in errors.
func ParseTabular(r io.Reader, path string, delim rune) ([]*record.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, csvParseError(path, err)
	}
	header, err = normalizeHeader(path, header)
	if err != nil {
		return nil, err
	}

	var records []*record.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvParseError(path, err)
		}

		rec := record.New("")
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			name := header[i]
			if name == IDColumn {
				rec.ID = strings.TrimSpace(cell)
				continue
			}
			v, err := record.Coerce(cell)
			if err != nil {
				line, col := cr.FieldPos(i)
				return nil, &ParseError{Path: path, Line: line, Column: col, Field: name, Err: err}
			}
			rec.Set(name, v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func normalizeHeader(path string, header []string) ([]string, error) {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, &ParseError{Path: path, Line: 1, Column: i + 1, Err: fmt.Errorf("header column %d is empty", i+1)}
		}
		if prev, dup := seen[name]; dup {
			return nil, &ParseError{Path: path, Line: 1, Column: i + 1, Field: name,
				Err: fmt.Errorf("duplicate header name (also column %d)", prev+1)}
		}
		seen[name] = i
		names[i] = name
	}
	return names, nil
}

func csvParseError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Path: path, Line: pe.Line, Column: pe.Column, Err: pe.Err}
	}
	return &ParseError{Path: path, Err: err}
}
