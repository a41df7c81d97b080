package query

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "mixed operators",
			input: "status:active and (region:us or region:eu) not archived",
			want:  "status:active AND (region:us OR region:eu) NOT archived",
		},
		{"case insensitive", "a AnD b oR c NoT d", "a AND b OR c NOT d"},
		{"already upper", "a AND b", "a AND b"},
		{"inside words", "android order nothing brand", "android order nothing brand"},
		{"punctuation boundaries", "(x)and(y),or:not", "(x)AND(y),OR:NOT"},
		{"empty", "", ""},
		{"no operators", "title:\"hello world\"", "title:\"hello world\""},
		{"underscore is a word char", "and_or not_x", "and_or not_x"},
		{"non-ASCII letters join words", "señor and notícia", "señor AND notícia"},
		{"non-ASCII prefix", "Notícia", "Notícia"},
		{"non-ASCII neighbours", "ñor órand ünot", "ñor órand ünot"},
		{"digits join words", "and2 3or", "and2 3or"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"status:active and (region:us or region:eu) not archived",
		"Or AND nOt",
		"android and ORegon",
		"",
		"ünd and ørder",
		"señor or notícia",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
