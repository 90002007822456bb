// Package tfidf implements the TF-IDF lexical ranker, including
// its optional bounded TF cache.
package tfidf

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/screenager/versum/internal/lexicon"
	"github.com/screenager/versum/internal/tokenize"
)

// DefaultPhraseBoost is the per-phrase score bonus, capped at 0.3 total.
const DefaultPhraseBoost = 0.1

const maxPhraseBoost = 0.3

// DefaultCacheSize is the bounded TF cache's default entry capacity.
const DefaultCacheSize = 100

// tfEntry is one cached span's term frequencies and document length.
type tfEntry struct {
	tf        map[string]int
	docLength int
}

// DocumentFrequency is the subset of lexicon.Index this ranker needs,
// kept narrow so callers can supply a fake in tests.
type DocumentFrequency interface {
	DocumentFrequency(token string) int
	TotalDocuments() int
}

// Ranker scores lexicon.Results by TF-IDF, with an optional bounded
// MRU-first cache of per-span term frequencies.
type Ranker struct {
	df        DocumentFrequency
	cache     *lru.Cache[string, tfEntry]
	cacheSize int
}

// New constructs a Ranker with caching disabled.
func New(df DocumentFrequency) *Ranker {
	return &Ranker{df: df}
}

// EnableCache turns on the bounded TF cache with the given capacity.
// Calling it again with the cache already enabled is a no-op — it never
// duplicates or resets existing entries.
func (r *Ranker) EnableCache(size int) {
	if r.cache != nil {
		return
	}
	c, err := lru.New[string, tfEntry](size)
	if err != nil {
		// size <= 0: fall back to the default rather than panicking, since
		// the Reader exposes this as a simple on/off toggle.
		c, _ = lru.New[string, tfEntry](DefaultCacheSize)
		size = DefaultCacheSize
	}
	r.cache = c
	r.cacheSize = size
}

// CacheEnabled reports whether the bounded TF cache has been turned on.
func (r *Ranker) CacheEnabled() bool { return r.cache != nil }

// CacheStats returns the cache's configured capacity and its current
// entry count. Both are zero when caching is disabled.
func (r *Ranker) CacheStats() (capacity, length int) {
	if r.cache == nil {
		return 0, 0
	}
	return r.cacheSize, r.cache.Len()
}

// tfFor returns (and caches, if enabled) the term-frequency map and
// document length for a span, computed from a fresh tokenization.
func (r *Ranker) tfFor(spanID, text string) tfEntry {
	if r.cache != nil {
		if e, ok := r.cache.Get(spanID); ok {
			return e
		}
	}
	tokens := tokenize.Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	entry := tfEntry{tf: tf, docLength: len(tokens)}
	if r.cache != nil {
		r.cache.Add(spanID, entry)
	}
	return entry
}

// termFrequency applies the 1 + ln(count) formula, 0 for an absent term.
func termFrequency(count int) float64 {
	if count < 1 {
		return 0
	}
	return 1 + math.Log(float64(count))
}

// inverseDocumentFrequency applies ln(N / (1 + df)).
func (r *Ranker) inverseDocumentFrequency(token string) float64 {
	n := float64(r.df.TotalDocuments())
	df := float64(r.df.DocumentFrequency(token))
	return math.Log(n / (1 + df))
}

// SpanTextLookup resolves a span id to its raw text, used to recompute
// term frequencies (the cache key is the span id, not the text).
type SpanTextLookup func(spanID string) (text string, ok bool)

// RankWithHits scores a copy of each result against queryTokens, adding
// a phrase-match boost capped at 0.3, and returns the copies in their
// original order; results itself is not modified. Sorting is the
// caller's responsibility.
func (r *Ranker) RankWithHits(results []lexicon.Result, queryTokens []string, phraseBoost float64, lookup SpanTextLookup) []lexicon.Result {
	if phraseBoost == 0 {
		phraseBoost = DefaultPhraseBoost
	}
	out := make([]lexicon.Result, len(results))
	copy(out, results)

	for i, res := range out {
		text, ok := lookup(res.SpanID)
		if !ok {
			continue
		}
		entry := r.tfFor(res.SpanID, text)

		var score float64
		if entry.docLength > 0 {
			var sum float64
			for _, tok := range queryTokens {
				tf := termFrequency(entry.tf[tok])
				if tf == 0 {
					continue
				}
				sum += tf * r.inverseDocumentFrequency(tok)
			}
			score = sum / math.Sqrt(float64(entry.docLength))
		}

		boost := math.Min(maxPhraseBoost, float64(len(res.Hits.Phrases))*phraseBoost)
		out[i].Score = score + boost
	}
	return out
}
