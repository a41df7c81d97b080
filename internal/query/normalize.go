// Package query prepares free-text search expressions for the index store's query syntax.
package query

import (
	"regexp"
	"strings"
)

// wordPattern matches whole words; letters and digits from any script count as word
// characters, so "and" inside "señand" is not a word of its own.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

var operators = []string{"AND", "OR", "NOT"}

// Normalize upper-cases whole-word "and", "or" and "not" (in any case) so the store's
// query-string parser treats them as boolean operators. Everything else, including those
// letters inside longer words, is left untouched.
func Normalize(text string) string {
	return wordPattern.ReplaceAllStringFunc(text, func(word string) string {
		for _, op := range operators {
			if strings.EqualFold(word, op) {
				return op
			}
		}
		return word
	})
}
