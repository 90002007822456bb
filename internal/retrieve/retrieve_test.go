package retrieve

import (
	"testing"

	"github.com/screenager/versum/internal/corpus"
	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/query"
)

type fakeReader struct {
	spans    []corpus.Span
	byID     map[string]corpus.Span
	nodeMap  *corpus.NodeMap
	results  []query.SearchResult
}

func newFakeReader(spans []corpus.Span, results []query.SearchResult) *fakeReader {
	byID := make(map[string]corpus.Span, len(spans))
	for _, sp := range spans {
		byID[sp.ID] = sp
	}
	return &fakeReader{spans: spans, byID: byID, results: results}
}

func (f *fakeReader) Search(string, query.SearchOptions) ([]query.SearchResult, error) {
	return f.results, nil
}
func (f *fakeReader) GetSpan(id string) (corpus.Span, bool) { sp, ok := f.byID[id]; return sp, ok }
func (f *fakeReader) GetByOrder(order int) (corpus.Span, bool) {
	for _, sp := range f.spans {
		if sp.Order == order {
			return sp, true
		}
	}
	return corpus.Span{}, false
}
func (f *fakeReader) GetSection(id string) (corpus.Section, bool) {
	if f.nodeMap == nil {
		return corpus.Section{}, false
	}
	sec, ok := f.nodeMap.Sections[id]
	return sec, ok
}
func (f *fakeReader) GetNodeMap() *corpus.NodeMap { return f.nodeMap }
func (f *fakeReader) GetSpanCount() int           { return len(f.spans) }

func fiveSpans() []corpus.Span {
	spans := make([]corpus.Span, 5)
	for i := range spans {
		spans[i] = corpus.Span{ID: corpus.SpanID(i), Order: i, Text: "text"}
	}
	return spans
}

func TestBuildNeighborsModeUniquePackIDs(t *testing.T) {
	spans := fiveSpans()
	results := []query.SearchResult{
		{SpanID: spans[1].ID, Order: 1, Score: 2},
		{SpanID: spans[3].ID, Order: 3, Score: 1},
	}
	r := newFakeReader(spans, results)
	packs, err := Build(r, "x", query.RetrieveOptions{Limit: 5, PerHitNeighbors: 1, Expand: query.ExpandNeighbors, Rank: query.RankTFIDF}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, p := range packs {
		if seen[p.PackID] {
			t.Fatalf("duplicate packId %q", p.PackID)
		}
		seen[p.PackID] = true
	}
	if len(packs) != 2 {
		t.Fatalf("expected 2 packs, got %d", len(packs))
	}
}

func TestBuildMergesOverlappingNeighbors(t *testing.T) {
	spans := fiveSpans()
	results := []query.SearchResult{
		{SpanID: spans[1].ID, Order: 1, Score: 2},
		{SpanID: spans[2].ID, Order: 2, Score: 1},
	}
	r := newFakeReader(spans, results)
	packs, err := Build(r, "x", query.RetrieveOptions{Limit: 5, PerHitNeighbors: 3, Expand: query.ExpandNeighbors, Rank: query.RankTFIDF}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected overlapping neighbor windows to merge into 1 pack, got %d: %+v", len(packs), packs)
	}
	if packs[0].Entry.Score != 2 {
		t.Errorf("expected merged pack to keep the higher score, got %v", packs[0].Entry.Score)
	}
}

func TestBuildSectionModeFallsBackToNeighbors(t *testing.T) {
	spans := fiveSpans()
	results := []query.SearchResult{{SpanID: spans[2].ID, Order: 2, Score: 1}}
	r := newFakeReader(spans, results) // no node map
	var diags []diag.Diagnostic
	sink := func(d diag.Diagnostic) { diags = append(diags, d) }
	packs, err := Build(r, "x", query.RetrieveOptions{Limit: 5, PerHitNeighbors: 0, Expand: query.ExpandSection, Rank: query.RankTFIDF}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) != 1 || packs[0].Scope.Type != query.ExpandNeighbors {
		t.Fatalf("expected fallback to neighbors scope, got %+v", packs)
	}
	if len(diags) != 1 || diags[0].Kind != diag.PackFallback {
		t.Fatalf("expected one PackFallback diagnostic, got %+v", diags)
	}
}

func TestBuildSectionModeSyntheticHeadingYieldsEmptyPath(t *testing.T) {
	spans := fiveSpans()
	nm := &corpus.NodeMap{
		Sections: map[string]corpus.Section{
			"sec-1": {Heading: "", ParagraphIDs: []string{spans[2].ID}},
		},
		Paragraphs: map[string]string{spans[2].ID: "sec-1"},
	}
	results := []query.SearchResult{{SpanID: spans[2].ID, Order: 2, Score: 1}}
	r := newFakeReader(spans, results)
	r.nodeMap = nm
	packs, err := Build(r, "x", query.RetrieveOptions{Limit: 5, Expand: query.ExpandSection, Rank: query.RankTFIDF}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected 1 pack, got %d", len(packs))
	}
	if packs[0].Meta.HeadingPath != nil {
		t.Fatalf("expected nil heading path for a synthetic (empty-heading) section, got %+v", packs[0].Meta.HeadingPath)
	}
}

func TestBuildBudgetStopsBeforeOverflow(t *testing.T) {
	spans := fiveSpans()
	for i := range spans {
		spans[i].Text = "0123456789" // 10 chars each
	}
	results := []query.SearchResult{
		{SpanID: spans[0].ID, Order: 0, Score: 3},
		{SpanID: spans[2].ID, Order: 2, Score: 2},
		{SpanID: spans[4].ID, Order: 4, Score: 1},
	}
	r := newFakeReader(spans, results)
	maxTokens := 15
	var diags []diag.Diagnostic
	sink := func(d diag.Diagnostic) { diags = append(diags, d) }
	packs, err := Build(r, "x", query.RetrieveOptions{Limit: 5, PerHitNeighbors: 0, Expand: query.ExpandNeighbors, MaxTokens: &maxTokens, Rank: query.RankTFIDF}, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("expected budget to admit exactly 1 ten-char pack under a 15-char cap, got %d", len(packs))
	}
	for _, d := range diags {
		if d.Kind != diag.BudgetTruncated {
			t.Fatalf("expected only BudgetTruncated diagnostics, got %+v", d)
		}
	}
	if len(diags) != 2 {
		t.Fatalf("expected 2 BudgetTruncated diagnostics for the dropped packs, got %d", len(diags))
	}
}
