package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want any
	}{
		{"plain string", "hello", "hello"},
		{"trimmed", "  padded\t", "padded"},
		{"empty", "", ""},
		{"number stays string", "42", "42"},
		{"object", `{"a":1,"b":[true]}`, map[string]any{"a": json.Number("1"), "b": []any{true}}},
		{"list", `["x","y"]`, []any{"x", "y"}},
		{"padded list", `  [1] `, []any{json.Number("1")}},
		{"brace inside", `a{b}`, "a{b}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.cell)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceMalformed(t *testing.T) {
	for _, cell := range []string{`{bad json`, `[1,`, `{"a":1} trailing`, `[1] [2]`, `{"a":1`} {
		t.Run(cell, func(t *testing.T) {
			_, err := Coerce(cell)
			assert.ErrorIs(t, err, ErrMalformedCell)
		})
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"nil", nil, ""},
		{"string verbatim", `say "hi", <b>`, `say "hi", <b>`},
		{"json number", json.Number("1.50"), "1.50"},
		{"float", 2.5, "2.5"},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"object sorted", map[string]any{"b": 1, "a": "<x>"}, `{"a":"<x>","b":1}`},
		{"list", []any{"x", 1, nil}, `["x",1,null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatCell(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCellRoundTripsThroughCoerce(t *testing.T) {
	values := []any{
		map[string]any{"city": "Lima", "geo": map[string]any{"lat": json.Number("-12.04")}},
		[]any{"x", "y"},
		[]any{map[string]any{"k": json.Number("1")}},
	}
	for _, v := range values {
		cell, err := FormatCell(v)
		require.NoError(t, err)
		back, err := Coerce(cell)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		v    any
		want Kind
	}{
		{nil, KindNull},
		{"s", KindString},
		{json.Number("1"), KindNumber},
		{3.5, KindNumber},
		{false, KindBool},
		{map[string]any{}, KindObject},
		{[]any{}, KindList},
		{[]string{"a"}, KindList},
		{struct{ A int }{1}, KindObject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.v), "KindOf(%#v)", tt.v)
	}
	assert.Equal(t, "list", KindList.String())
}
