// Package fuzzy generates edit-distance-1 neighborhoods over the
// tokenizer's alphabet and intersects them against a known vocabulary.
// Only distance 1 is supported — anything else disables fuzzy matching
// for that token, per spec.
package fuzzy

import "sort"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Neighborhood yields every string at Levenshtein distance exactly 1 from
// token: one deletion, one substitution (skipping no-op substitutions),
// or one insertion at any position including both ends. The result may
// contain duplicates.
func Neighborhood(token string) []string {
	n := len(token)
	out := make([]string, 0, n*len(alphabet)*2+len(alphabet))

	// Deletions: remove each character once.
	for i := 0; i < n; i++ {
		out = append(out, token[:i]+token[i+1:])
	}

	// Substitutions: replace each character with every other alphabet
	// letter.
	for i := 0; i < n; i++ {
		for _, c := range alphabet {
			if byte(c) == token[i] {
				continue
			}
			out = append(out, token[:i]+string(c)+token[i+1:])
		}
	}

	// Insertions: insert each alphabet letter at every position,
	// including before the first and after the last character.
	for i := 0; i <= n; i++ {
		for _, c := range alphabet {
			out = append(out, token[:i]+string(c)+token[i:])
		}
	}

	return out
}

// Candidates intersects Neighborhood(token) with vocabulary, deduplicates,
// sorts lexicographically for determinism, and returns at most
// maxCandidates entries.
func Candidates(token string, vocabulary map[string]struct{}, maxCandidates int) []string {
	seen := make(map[string]struct{})
	var survivors []string
	for _, cand := range Neighborhood(token) {
		if cand == token {
			continue
		}
		if _, ok := seen[cand]; ok {
			continue
		}
		if _, known := vocabulary[cand]; !known {
			continue
		}
		seen[cand] = struct{}{}
		survivors = append(survivors, cand)
	}

	sort.Strings(survivors)
	if maxCandidates >= 0 && len(survivors) > maxCandidates {
		survivors = survivors[:maxCandidates]
	}
	return survivors
}
