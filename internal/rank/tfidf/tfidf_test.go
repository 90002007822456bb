package tfidf

import (
	"testing"

	"github.com/screenager/versum/internal/lexicon"
)

type fakeDF struct {
	df map[string]int
	n  int
}

func (f fakeDF) DocumentFrequency(token string) int { return f.df[token] }
func (f fakeDF) TotalDocuments() int                { return f.n }

func texts() map[string]string {
	return map[string]string{
		"span:000001": "the cat sat on the mat",
		"span:000002": "a bold section about dogs and cats",
	}
}

func lookup(m map[string]string) SpanTextLookup {
	return func(id string) (string, bool) {
		t, ok := m[id]
		return t, ok
	}
}

func TestRankWithHitsScoresHigherForMoreFrequentTerm(t *testing.T) {
	df := fakeDF{df: map[string]int{"cat": 1, "cats": 1}, n: 10}
	r := New(df)
	results := []lexicon.Result{
		{SpanID: "span:000001", Order: 0},
		{SpanID: "span:000002", Order: 1},
	}
	out := r.RankWithHits(results, []string{"cat"}, 0, lookup(texts()))
	if out[0].Score <= out[1].Score {
		t.Errorf("expected span 1 (contains 'cat') to outscore span 2, got %v vs %v", out[0].Score, out[1].Score)
	}
}

func TestRankWithHitsPhraseBoostCapped(t *testing.T) {
	df := fakeDF{df: map[string]int{}, n: 2}
	r := New(df)
	manyPhrases := make([]lexicon.PhraseHit, 10)
	results := []lexicon.Result{
		{SpanID: "span:000001", Order: 0, Hits: lexicon.Hits{Phrases: manyPhrases}},
	}
	out := r.RankWithHits(results, nil, 0.1, lookup(texts()))
	if out[0].Score > 0.3+1e-9 {
		t.Errorf("expected boost capped at 0.3, got %v", out[0].Score)
	}
}

func TestRankWithHitsPreservesOrder(t *testing.T) {
	df := fakeDF{n: 2}
	r := New(df)
	results := []lexicon.Result{
		{SpanID: "span:000002", Order: 1},
		{SpanID: "span:000001", Order: 0},
	}
	out := r.RankWithHits(results, []string{"cat"}, 0, lookup(texts()))
	if out[0].SpanID != "span:000002" || out[1].SpanID != "span:000001" {
		t.Errorf("expected input order preserved, got %+v", out)
	}
}

func TestEnableCacheIdempotent(t *testing.T) {
	r := New(fakeDF{n: 1})
	r.EnableCache(10)
	first := r.cache
	r.EnableCache(10)
	if r.cache != first {
		t.Error("EnableCache called twice should not replace an existing cache")
	}
}
