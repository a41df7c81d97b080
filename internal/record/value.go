package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind tags the dynamic type of a field value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf classifies a value produced by decoding JSON or by Coerce.
// Values of any other Go type are reported by their JSON shape.
func KindOf(v any) Kind {
	switch v := v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case json.Number, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case bool:
		return KindBool
	case map[string]any, *Record:
		return KindObject
	case []any:
		return KindList
	default:
		data, err := json.Marshal(v)
		if err != nil || len(data) == 0 {
			return KindString
		}
		switch data[0] {
		case '{':
			return KindObject
		case '[':
			return KindList
		case 'n':
			return KindNull
		case 't', 'f':
			return KindBool
		case '"':
			return KindString
		default:
			return KindNumber
		}
	}
}

// ErrMalformedCell is wrapped by Coerce when a cell looks structured but is not valid JSON.
var ErrMalformedCell = errors.New("malformed structured cell")

// Coerce turns a raw tabular cell into a value. The cell is trimmed first; a leading
// '{' yields a map[string]any, a leading '[' yields a []any, anything else stays a string.
func Coerce(cell string) (any, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return s, nil
	}

	switch s[0] {
	case '{':
		var obj map[string]any
		if err := decodeStrict(s, &obj); err != nil {
			return nil, fmt.Errorf("%w: object: %v", ErrMalformedCell, err)
		}
		return obj, nil
	case '[':
		var list []any
		if err := decodeStrict(s, &list); err != nil {
			return nil, fmt.Errorf("%w: list: %v", ErrMalformedCell, err)
		}
		return list, nil
	default:
		return s, nil
	}
}

// FormatCell renders a value for a tabular cell. Strings are returned verbatim, nil is
// empty, everything else is its compact JSON form.
func FormatCell(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	}
	data, err := encodeCompact(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Canonical returns the compact JSON encoding of a value without HTML escaping.
func Canonical(v any) ([]byte, error) {
	return encodeCompact(v)
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := decodeStrict(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeStrict decodes exactly one JSON value, rejecting trailing data.
func decodeStrict(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after value")
	}
	return nil
}
