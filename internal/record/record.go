// Package record defines the unit of data moved between an index store and local files.
//
// A Record is an optional external identifier plus a mapping from field name to value.
// Field order is the order in which fields were first set (or decoded), which is what
// tabular exports use to derive their header.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	// ErrEmptyFieldName is returned when decoding a document with an empty key.
	ErrEmptyFieldName = errors.New("empty field name")

	// ErrNotObject is returned when a record is decoded from JSON that is not an object.
	ErrNotObject = errors.New("record source is not a JSON object")
)

// Record is a single document. ID is empty for records that have not been stored yet.
type Record struct {
	ID     string
	fields *orderedmap.OrderedMap[string, any]
}

// New returns an empty record with the given identifier (may be empty).
func New(id string) *Record {
	return &Record{ID: id, fields: orderedmap.New[string, any]()}
}

// FromPairs builds a record from alternating name/value arguments, keeping their order.
// Panics on an odd argument count or a non-string name; intended for literals.
func FromPairs(id string, kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("record.FromPairs: odd number of arguments")
	}
	r := New(id)
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record.FromPairs: field name at %d is %T, not string", i, kv[i]))
		}
		r.Set(name, kv[i+1])
	}
	return r
}

func (r *Record) ensure() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
}

// Set assigns a field. Re-setting an existing field keeps its original position.
// Panics if name is empty: callers validate names at the boundary they parse them.
func (r *Record) Set(name string, v any) {
	if name == "" {
		panic("record.Set called with empty field name")
	}
	r.ensure()
	r.fields.Set(name, v)
}

// Get returns the value of a field and whether it is present.
func (r *Record) Get(name string) (any, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(name)
}

// Delete removes a field, reporting whether it was present.
func (r *Record) Delete(name string) bool {
	if r.fields == nil {
		return false
	}
	_, ok := r.fields.Delete(name)
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	names := make([]string, 0, r.Len())
	for name := range r.All() {
		names = append(names, name)
	}
	return names
}

// All iterates over fields in insertion order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if r.fields == nil {
			return
		}
		for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// MarshalJSON encodes the fields (not the ID) as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for name, v := range r.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := encodeCompact(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := encodeCompact(v)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the record's fields, preserving key order.
// Numbers are kept as json.Number. The ID is left untouched.
func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return ErrNotObject
	}

	fields := orderedmap.New[string, any]()
	var decodeErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "" {
			decodeErr = ErrEmptyFieldName
			return false
		}
		v, err := decodeValue(value.Raw)
		if err != nil {
			decodeErr = fmt.Errorf("decoding field %q: %w", name, err)
			return false
		}
		fields.Set(name, v)
		return true
	})
	if decodeErr != nil {
		return decodeErr
	}

	r.fields = fields
	return nil
}

// Decode parses a JSON object into a new record with the given ID.
func Decode(id string, data []byte) (*Record, error) {
	r := New(id)
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
