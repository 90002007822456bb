// Package phrase extracts quoted phrases from a query string and finds
// their non-overlapping occurrences inside normalized span text.
package phrase

import (
	"strings"

	"github.com/screenager/versum/internal/tokenize"
)

// Parsed is the result of splitting a raw query into quoted phrases and
// the residual bag of tokens.
type Parsed struct {
	Phrases []string // extracted in left-to-right order, normalized
	Tokens  []string // tokenized residual, in document order
}

// Parse extracts every maximal substring enclosed by a pair of straight
// double quotes, in the order the quotes appear, replaces each with a
// space in the residual string, then tokenizes what's left.
func Parse(query string) Parsed {
	var phrases []string
	var b strings.Builder
	b.Grow(len(query))

	inQuote := false
	quoteStart := 0
	for i, r := range query {
		if r == '"' {
			if !inQuote {
				inQuote = true
				quoteStart = i + 1
			} else {
				inQuote = false
				phrases = append(phrases, Normalize(query[quoteStart:i]))
			}
			b.WriteByte(' ')
			continue
		}
		if inQuote {
			continue
		}
		b.WriteRune(r)
	}
	// An unterminated quote: everything after it is dropped from tokens
	// too, matching the "replace the extracted region with a space"
	// rule — there is no close, so there is no phrase, but the opening
	// quote still started a region that should not leak into tokens.

	return Parsed{
		Phrases: phrases,
		Tokens:  tokenize.Tokenize(b.String()),
	}
}

// Normalize lowercases a phrase and collapses runs of
// separators to single spaces and trimming the ends, preserving word
// boundaries (unlike Tokenize, which discards them entirely).
func Normalize(phraseText string) string {
	return strings.TrimSpace(tokenize.Normalize(phraseText))
}

// Range is a half-open [Start, End) offset pair in the normalized-text
// coordinate system.
type Range struct {
	Start, End int
}

// FindMatches returns the non-overlapping, leftmost-first occurrences of
// phrase inside text, where text is assumed already normalized via
// tokenize.Normalize. Returns nil for an empty phrase.
func FindMatches(normalizedText, normalizedPhrase string) []Range {
	if normalizedPhrase == "" {
		return nil
	}
	var matches []Range
	offset := 0
	for {
		idx := strings.Index(normalizedText[offset:], normalizedPhrase)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(normalizedPhrase)
		matches = append(matches, Range{Start: start, End: end})
		offset = end
	}
	return matches
}

// ContainsAll reports whether text (normalized) contains at least one
// occurrence of every phrase in phrases (already normalized).
func ContainsAll(normalizedText string, normalizedPhrases []string) bool {
	for _, p := range normalizedPhrases {
		if len(FindMatches(normalizedText, p)) == 0 {
			return false
		}
	}
	return true
}
