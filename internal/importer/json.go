package importer

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/helmuth/esport/internal/record"
)

// ReadJSON reads a JSON array of objects from path.
func ReadJSON(path string) ([]*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	records, errs := ParseJSON(data)
	if len(errs) > 0 {
		return nil, &ParseError{Path: path, Err: errors.Join(errs...)}
	}
	return records, nil
}

// ParseJSON parses a JSON array of objects. A string "_id" key becomes the record ID and
// is removed from the fields. Entries that fail are reported individually.
func ParseJSON(data []byte) ([]*record.Record, []error) {
	if !gjson.ValidBytes(data) {
		return nil, []error{fmt.Errorf("invalid JSON")}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, []error{fmt.Errorf("expected a JSON array of objects")}
	}

	var records []*record.Record
	var errs []error

	i := 0
	doc.ForEach(func(_, entry gjson.Result) bool {
		i++
		rec, err := jsonEntryToRecord(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			return true
		}
		records = append(records, rec)
		return true
	})

	return records, errs
}

func jsonEntryToRecord(entry gjson.Result) (*record.Record, error) {
	if !entry.IsObject() {
		return nil, record.ErrNotObject
	}
	rec, err := record.Decode("", []byte(entry.Raw))
	if err != nil {
		return nil, err
	}

	if v, ok := rec.Get(IDColumn); ok {
		id, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%s must be a string", IDColumn)
		}
		rec.ID = id
		rec.Delete(IDColumn)
	}
	return rec, nil
}
