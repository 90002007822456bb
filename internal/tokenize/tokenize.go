// Package tokenize normalizes text into lower-case alphanumeric tokens.
// It is the single source of truth for how both the build pipeline and
// the runtime query path split text into words — build and query must
// agree bit-for-bit or the lexical index silently stops matching.
package tokenize

import "strings"

// Tokenize lower-cases text, treats every maximal run of non-alphanumeric
// ASCII characters as a separator, and returns the surviving tokens in
// document order. It is idempotent: Tokenize(strings.Join(Tokenize(s), " "))
// always equals Tokenize(s).
func Tokenize(text string) []string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if isAlphaNum(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	tokens = append(tokens, fields...)
	return tokens
}

// Normalize runs the same case-fold and separator-collapse rules as
// Tokenize but rejoins surviving tokens with single spaces and trims the
// result, instead of returning a slice. Used for phrase matching, where
// the comparison is against a normalized substring rather than a token
// list.
func Normalize(text string) string {
	return strings.Join(Tokenize(text), " ")
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
