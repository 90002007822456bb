package lexicon

import (
	"testing"

	"github.com/screenager/versum/internal/corpus"
)

func spans() []corpus.Span {
	return []corpus.Span{
		{ID: "span:000001", Order: 0, Text: "The cat sat on the mat."},
		{ID: "span:000002", Order: 1, Text: "A bold section about dogs and cats."},
		{ID: "span:000003", Order: 2, Text: "Nothing relevant appears here at all."},
	}
}

func TestBuildDocumentFrequency(t *testing.T) {
	idx := Build(spans())
	if got := idx.DocumentFrequency("cat"); got != 1 {
		t.Errorf("DocumentFrequency(cat) = %d, want 1", got)
	}
	if got := idx.DocumentFrequency("the"); got != 1 {
		t.Errorf("DocumentFrequency(the) = %d, want 1", got)
	}
	if got := idx.TotalDocuments(); got != 3 {
		t.Errorf("TotalDocuments() = %d, want 3", got)
	}
}

func TestSearchIntersectsTokens(t *testing.T) {
	idx := Build(spans())
	got := idx.Search("cat", -1)
	if len(got) != 1 || got[0] != "span:000001" {
		t.Errorf("Search(cat) = %v, want [span:000001]", got)
	}
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	idx := Build(spans())
	if got := idx.Search("xylophone", -1); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSearchWithHitsExactToken(t *testing.T) {
	idx := Build(spans())
	results := idx.SearchWithHits("cat", -1, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].SpanID != "span:000001" {
		t.Errorf("unexpected span: %+v", results[0])
	}
	if len(results[0].Hits.Tokens) != 1 || results[0].Hits.Tokens[0].Fuzzy {
		t.Errorf("expected a single non-fuzzy token hit, got %+v", results[0].Hits.Tokens)
	}
}

func TestSearchWithHitsFuzzyExpansion(t *testing.T) {
	idx := Build(spans())
	fz := DefaultFuzzyOptions()
	// "cots" is not present anywhere; "cats" is edit-distance-1 from it
	// and appears in span 2, which is the only low-df candidate.
	results := idx.SearchWithHits("cots", -1, &fz)
	found := false
	for _, r := range results {
		if r.SpanID == "span:000002" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected span:000002 to match via fuzzy expansion of 'cots', got %+v", results)
	}
}

func TestSearchWithHitsPhraseFilter(t *testing.T) {
	idx := Build(spans())
	results := idx.SearchWithHits(`"bold section"`, -1, nil)
	if len(results) != 1 || results[0].SpanID != "span:000002" {
		t.Fatalf("expected only span:000002, got %+v", results)
	}
	if len(results[0].Hits.Phrases) != 1 {
		t.Errorf("expected one phrase hit, got %+v", results[0].Hits.Phrases)
	}
}

func TestSearchWithHitsRespectsLimit(t *testing.T) {
	idx := Build(spans())
	results := idx.SearchWithHits("the", 0, nil)
	if len(results) != 0 {
		t.Errorf("limit 0 should return no results, got %d", len(results))
	}
}
