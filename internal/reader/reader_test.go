package reader

import (
	"strings"
	"testing"

	"github.com/screenager/versum/internal/artifact"
	"github.com/screenager/versum/internal/corpus"
	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/fixture"
	"github.com/screenager/versum/internal/query"
)

func nineSpanLoaded() *artifact.Loaded {
	texts := []string{
		"Sample Markdown Document",
		"This is the first paragraph of the sample document.",
		"Here's a paragraph with **bold** text for testing.",
		"Section Two",
		"This paragraph belongs to section two of the document.",
		"Another paragraph within section two, for good measure.",
		"Section Three",
		"This paragraph belongs to section three of the document.",
		"The final paragraph of the entire sample document.",
	}
	spans := make([]corpus.Span, len(texts))
	for i, txt := range texts {
		spans[i] = corpus.Span{ID: corpus.SpanID(i), Order: i, Text: txt}
	}
	return &artifact.Loaded{
		Manifest: corpus.Manifest{ID: "corpus:test"},
		Spans:    spans,
	}
}

func TestSearchCaseInsensitiveAscendingOrder(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	for _, q := range []string{"section", "SECTION", "SeCtiOn"} {
		results, err := r.Search(q, query.SearchOptions{Rank: query.RankNone})
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", q, err)
		}
		var orders []int
		for _, res := range results {
			orders = append(orders, res.Order)
		}
		if len(orders) == 0 {
			t.Fatalf("expected matches for %q", q)
		}
		for i := 1; i < len(orders); i++ {
			if orders[i-1] >= orders[i] {
				t.Errorf("expected ascending order, got %v", orders)
			}
		}
	}
}

func TestSearchRequiresAllTokens(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	both, _ := r.Search("section two", query.SearchOptions{Rank: query.RankNone})
	onlySection, _ := r.Search("section", query.SearchOptions{Rank: query.RankNone})
	if len(both) >= len(onlySection) {
		t.Errorf("expected narrower result for 'section two' (%d) than 'section' alone (%d)", len(both), len(onlySection))
	}
}

func TestSearchMatchesInsideFormatting(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	bold, _ := r.Search("bold", query.SearchOptions{Rank: query.RankNone})
	if len(bold) != 1 {
		t.Fatalf("expected 1 match for 'bold', got %d", len(bold))
	}
	here, _ := r.Search("here", query.SearchOptions{Rank: query.RankNone})
	if len(here) != 1 {
		t.Fatalf("expected 1 match for 'here' (from \"Here's\"), got %d", len(here))
	}
}

func TestSearchEmptyAndUnknownReturnEmpty(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	empty, _ := r.Search("", query.SearchOptions{Rank: query.RankNone})
	if len(empty) != 0 {
		t.Errorf("expected empty result for empty query, got %d", len(empty))
	}
	unknown, _ := r.Search("nonexistentxyz123", query.SearchOptions{Rank: query.RankNone})
	if len(unknown) != 0 {
		t.Errorf("expected empty result for unknown token, got %d", len(unknown))
	}
}

func TestNeighborsClipsToRange(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	got := r.Neighbors(corpus.SpanID(0), 5, 1)
	want := []string{corpus.SpanID(0), corpus.SpanID(1)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestRetrieveAndAssemblePrompt(t *testing.T) {
	r := New(nineSpanLoaded(), nil)
	limit := 2
	packs, err := r.Retrieve("section", query.RetrieveOptions{Limit: limit, PerHitNeighbors: 1, Expand: query.ExpandNeighbors, Rank: query.RankTFIDF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) == 0 {
		t.Fatal("expected at least one pack")
	}

	req := query.DefaultPromptRequest()
	req.Question = "What is a section?"
	req.Packs = packs
	out := r.AssemblePrompt(req)

	if out.System == "" {
		t.Error("expected a non-empty system prompt")
	}
	for _, c := range out.Citations {
		if c.DocID != "corpus:test" {
			t.Errorf("expected injected manifest id as DocID, got %q", c.DocID)
		}
	}
}

// TestRetrieveSectionModePromptHeadingPaths runs the sample document
// through the real compiler (unlike nineSpanLoaded's hand-built spans)
// so section-mode retrieval works against an actual NodeMap, and checks
// that the assembled prompt only prints a Path: line for a pack whose
// heading path is non-empty.
func TestRetrieveSectionModePromptHeadingPaths(t *testing.T) {
	loaded, err := fixture.LoadedSample()
	if err != nil {
		t.Fatalf("unexpected error building fixture: %v", err)
	}
	r := New(loaded, nil)

	packs, err := r.Retrieve("section two", query.RetrieveOptions{Limit: 5, Expand: query.ExpandSection, Rank: query.RankTFIDF})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(packs) == 0 {
		t.Fatal("expected at least one pack")
	}

	req := query.DefaultPromptRequest()
	req.Question = "What is in section two?"
	req.Packs = packs
	out := r.AssemblePrompt(req)

	foundHeadingPack := false
	for _, p := range packs {
		if len(p.Meta.HeadingPath) > 0 {
			foundHeadingPack = true
			if !strings.Contains(out.User, strings.Join(p.Meta.HeadingPath, " > ")) {
				t.Errorf("expected user prompt to contain heading path %v", p.Meta.HeadingPath)
			}
		}
	}
	if !foundHeadingPack {
		t.Fatal("expected at least one pack with a non-empty heading path from the compiled NodeMap")
	}
}

// TestSearchHybridDedupesMissingEmbeddingWarnings runs two hybrid
// searches over spans with no persisted embeddings and checks that each
// span warns at most once across both calls, not once per call.
func TestSearchHybridDedupesMissingEmbeddingWarnings(t *testing.T) {
	var diags []diag.Diagnostic
	loaded := nineSpanLoaded()
	loaded.Manifest.ID = "corpus:test"
	r := New(loaded, func(d diag.Diagnostic) { diags = append(diags, d) })

	if _, err := r.Search("section", query.SearchOptions{Rank: query.RankHybrid}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Search("section", query.SearchOptions{Rank: query.RankHybrid}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	for _, d := range diags {
		if d.Kind != diag.MissingEmbedding {
			t.Fatalf("expected only MissingEmbedding diagnostics, got %+v", d)
		}
		seen[d.SpanID]++
	}
	if len(seen) == 0 {
		t.Fatal("expected at least one MissingEmbedding diagnostic across both searches")
	}
	for spanID, n := range seen {
		if n != 1 {
			t.Errorf("span %s warned %d times across two searches, want 1", spanID, n)
		}
	}
}
