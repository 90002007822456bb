// Package lexicon implements the inverted token index: exact-match
// AND search with optional fuzzy expansion, plus the raw document-
// frequency primitives the TF-IDF ranker needs.
package lexicon

import (
	"sort"

	"github.com/screenager/versum/internal/corpus"
	"github.com/screenager/versum/internal/fuzzy"
	"github.com/screenager/versum/internal/phrase"
	"github.com/screenager/versum/internal/tokenize"
)

// FuzzyOptions tunes fuzzy query-token expansion. MaxEdits must be 1 for
// fuzzy matching to activate at all; any other value disables it for
// every token.
type FuzzyOptions struct {
	Enabled               bool
	MaxEdits              int
	MinTokenLen           int
	DFThreshold           int
	MaxCandidatesPerToken int
}

// DefaultFuzzyOptions returns the documented default options.
func DefaultFuzzyOptions() FuzzyOptions {
	return FuzzyOptions{
		Enabled:               true,
		MaxEdits:              1,
		MinTokenLen:           4,
		DFThreshold:           5,
		MaxCandidatesPerToken: 50,
	}
}

// TokenHit annotates one query token's match against a span.
type TokenHit struct {
	Token string
	Fuzzy bool // true when the exact token was absent but a fuzzy candidate matched
}

// PhraseHit annotates one query phrase's matches against a span.
type PhraseHit struct {
	Phrase string
	Ranges []phrase.Range
}

// Hits is the per-span annotation record produced by SearchWithHits.
type Hits struct {
	Tokens  []TokenHit
	Phrases []PhraseHit
}

// Result is one surviving span from a search, with score left as a
// placeholder for a ranker to fill in.
type Result struct {
	SpanID string
	Order  int
	Score  float64
	Hits   Hits
}

// Index is the inverted token -> span-id-set map, built once from the
// full span list.
type Index struct {
	postings   map[string]map[string]struct{}
	vocabulary map[string]struct{}
	spans      []corpus.Span
	spansByID  map[string]corpus.Span
	normText   map[string]string // span id -> normalized text, cached for phrase matching
}

// Build constructs an Index by tokenizing every span exactly once.
func Build(spans []corpus.Span) *Index {
	idx := &Index{
		postings:   make(map[string]map[string]struct{}),
		vocabulary: make(map[string]struct{}),
		spans:      spans,
		spansByID:  make(map[string]corpus.Span, len(spans)),
		normText:   make(map[string]string, len(spans)),
	}
	for _, sp := range spans {
		idx.spansByID[sp.ID] = sp
		idx.normText[sp.ID] = tokenize.Normalize(sp.Text)
		for _, tok := range tokenize.Tokenize(sp.Text) {
			set, ok := idx.postings[tok]
			if !ok {
				set = make(map[string]struct{})
				idx.postings[tok] = set
			}
			set[sp.ID] = struct{}{}
			idx.vocabulary[tok] = struct{}{}
		}
	}
	return idx
}

// DocumentFrequency returns the number of spans containing token, or 0.
func (idx *Index) DocumentFrequency(token string) int {
	return len(idx.postings[token])
}

// TotalDocuments returns the span count N.
func (idx *Index) TotalDocuments() int { return len(idx.spans) }

// Vocabulary exposes the known-token set for fuzzy candidate lookups.
func (idx *Index) Vocabulary() map[string]struct{} { return idx.vocabulary }

// Search tokenizes query and returns up to limit span ids whose postings
// intersect for every token. Order is unspecified; callers re-order.
// limit < 0 means unbounded.
func (idx *Index) Search(query string, limit int) []string {
	tokens := tokenize.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	inter := idx.intersect(tokens)
	ids := make([]string, 0, len(inter))
	for id := range inter {
		if limit >= 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

func (idx *Index) intersect(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}
	result := idx.effectivePosting(tokens[0], nil)
	for _, tok := range tokens[1:] {
		next := idx.effectivePosting(tok, nil)
		result = intersectSets(result, next)
		if len(result) == 0 {
			return result
		}
	}
	return result
}

func (idx *Index) effectivePosting(token string, fz *FuzzyOptions) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range idx.postings[token] {
		out[id] = struct{}{}
	}
	if fz == nil || !fz.Enabled {
		return out
	}
	if !idx.fuzzyEligible(token, *fz) {
		return out
	}
	for _, cand := range fuzzy.Candidates(token, idx.vocabulary, fz.MaxCandidatesPerToken) {
		for id := range idx.postings[cand] {
			out[id] = struct{}{}
		}
	}
	return out
}

func (idx *Index) fuzzyEligible(token string, fz FuzzyOptions) bool {
	return fz.MaxEdits == 1 &&
		len(token) >= fz.MinTokenLen &&
		idx.DocumentFrequency(token) < fz.DFThreshold
}

func intersectSets(a, b map[string]struct{}) map[string]struct{} {
	if len(a) > len(b) {
		a, b = b, a
	}
	out := make(map[string]struct{}, len(a))
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// SearchWithHits parses query into phrases and tokens, intersects the
// (possibly fuzzy-expanded) per-token postings, filters by phrase
// containment, and emits an annotated Result per surviving span.
// limit < 0 disables truncation — ranking callers must pass that so the
// ranker sees the full candidate set.
func (idx *Index) SearchWithHits(query string, limit int, fz *FuzzyOptions) []Result {
	parsed := phrase.Parse(query)

	var candidates map[string]struct{}
	switch {
	case len(parsed.Tokens) > 0:
		candidates = idx.effectivePosting(parsed.Tokens[0], fz)
		for _, tok := range parsed.Tokens[1:] {
			candidates = intersectSets(candidates, idx.effectivePosting(tok, fz))
			if len(candidates) == 0 {
				break
			}
		}
	case len(parsed.Phrases) > 0:
		// Cheap prefilter: seed from the posting of the first word of the
		// first phrase.
		firstWord := tokenize.Tokenize(parsed.Phrases[0])
		if len(firstWord) > 0 {
			candidates = make(map[string]struct{})
			for id := range idx.postings[firstWord[0]] {
				candidates[id] = struct{}{}
			}
		}
	default:
		return nil
	}

	results := make([]Result, 0, len(candidates))
	for id := range candidates {
		if limit >= 0 && len(results) >= limit {
			break
		}
		normText := idx.normText[id]
		if !phrase.ContainsAll(normText, parsed.Phrases) {
			continue
		}
		sp := idx.spansByID[id]
		results = append(results, Result{
			SpanID: id,
			Order:  sp.Order,
			Score:  0,
			Hits:   idx.annotate(sp, parsed, fz),
		})
	}
	return results
}

func (idx *Index) annotate(sp corpus.Span, parsed phrase.Parsed, fz *FuzzyOptions) Hits {
	spanTokens := make(map[string]struct{})
	for _, tok := range tokenize.Tokenize(sp.Text) {
		spanTokens[tok] = struct{}{}
	}

	tokenHits := make([]TokenHit, 0, len(parsed.Tokens))
	for _, tok := range parsed.Tokens {
		_, exact := spanTokens[tok]
		isFuzzy := false
		if !exact && fz != nil && fz.Enabled && idx.fuzzyEligible(tok, *fz) {
			for _, cand := range fuzzy.Candidates(tok, idx.vocabulary, fz.MaxCandidatesPerToken) {
				if _, ok := spanTokens[cand]; ok {
					isFuzzy = true
					break
				}
			}
		}
		tokenHits = append(tokenHits, TokenHit{Token: tok, Fuzzy: isFuzzy})
	}

	normText := idx.normText[sp.ID]
	phraseHits := make([]PhraseHit, 0, len(parsed.Phrases))
	for _, p := range parsed.Phrases {
		ranges := phrase.FindMatches(normText, p)
		if len(ranges) > 0 {
			phraseHits = append(phraseHits, PhraseHit{Phrase: p, Ranges: ranges})
		}
	}

	return Hits{Tokens: tokenHits, Phrases: phraseHits}
}

// SortByOrder sorts results ascending by Order, used by unranked search.
func SortByOrder(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Order < results[j].Order })
}
