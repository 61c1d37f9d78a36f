// Package tokenizer turns raw text lines into normalized index keys. It
// lower-cases each candidate word, strips a fixed punctuation set, and
// trims surrounding whitespace. Tokenization policy (whitespace split) is
// a contract with the index's callers, not part of the tree's correctness.
package tokenizer

import (
	"strings"
)

// punctuation is the fixed set of characters removed from tokens wherever
// they appear.
const punctuation = "!\"#$%&()*+,-./:;<=>?@^_`{|}~[]"

// Normalize lower-cases token, removes all punctuation characters, and
// trims surrounding whitespace. The result may be empty, in which case the
// token produces no index key.
func Normalize(token string) string {
	token = strings.TrimSpace(token)
	token = strings.ToLower(token)
	token = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, token)
	return strings.TrimSpace(token)
}

// Tokenize splits line on whitespace and normalizes each candidate word,
// dropping candidates that normalize to the empty string.
func Tokenize(line string) []string {
	fields := strings.Fields(line)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := Normalize(f); w != "" {
			words = append(words, w)
		}
	}
	return words
}
