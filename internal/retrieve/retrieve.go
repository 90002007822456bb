// Package retrieve implements the retrieval-pack builder: turns
// search hits into merged, deduplicated, budget-constrained context
// windows suitable for prompting.
package retrieve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/screenager/versum/internal/corpus"
	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/query"
)

// Searcher is the subset of Reader this package needs to obtain scored
// candidates.
type Searcher interface {
	Search(q string, opts query.SearchOptions) ([]query.SearchResult, error)
}

// Resolver is the subset of Reader this package needs to expand and
// materialize packs.
type Resolver interface {
	GetSpan(id string) (corpus.Span, bool)
	GetByOrder(order int) (corpus.Span, bool)
	GetSection(id string) (corpus.Section, bool)
	GetNodeMap() *corpus.NodeMap
	GetSpanCount() int
}

// SearcherResolver is satisfied by reader.Reader.
type SearcherResolver interface {
	Searcher
	Resolver
}

const oversampleFactor = 4

// expansion is one candidate's widened span window, before merge-dedupe.
type expansion struct {
	packID       string
	scope        query.PackScope
	paragraphIDs []string
	headingPath  []string
	entry        query.RetrievalPackEntry
}

// Build runs the full retrieval procedure for one query: oversampled
// search, per-hit expansion, merge-dedupe, sort, and budget
// enforcement. sink may be nil to discard diagnostics.
func Build(sr SearcherResolver, q string, opts query.RetrieveOptions, sink diag.Sink) ([]query.RetrievalPack, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	expand := opts.Expand
	if expand == "" {
		expand = query.ExpandNeighbors
	}
	rank := opts.Rank
	if rank == "" {
		rank = query.RankTFIDF
	}

	searchLimit := limit * oversampleFactor
	results, err := sr.Search(q, query.SearchOptions{Limit: &searchLimit, Rank: rank})
	if err != nil {
		return nil, err
	}

	expansions := make([]expansion, 0, len(results))
	for _, res := range results {
		entry := query.RetrievalPackEntry{
			SpanID:      res.SpanID,
			Order:       res.Order,
			Score:       res.Score,
			HeadingPath: res.HeadingPath,
			Hits:        res.Hits,
		}
		expansions = append(expansions, expandEntry(sr, entry, expand, opts.PerHitNeighbors, sink))
	}

	merged := mergeDedupe(expansions)

	packs := make([]query.RetrievalPack, 0, len(merged))
	for _, m := range merged {
		packs = append(packs, materialize(sr, m))
	}

	sort.SliceStable(packs, func(i, j int) bool {
		if packs[i].Entry.Score != packs[j].Entry.Score {
			return packs[i].Entry.Score > packs[j].Entry.Score
		}
		return packs[i].Entry.Order < packs[j].Entry.Order
	})

	return applyBudget(packs, limit, opts.MaxTokens, sink), nil
}

func expandEntry(sr Resolver, entry query.RetrievalPackEntry, mode query.ExpandMode, perHitNeighbors int, sink diag.Sink) expansion {
	if mode == query.ExpandSection {
		if nm := sr.GetNodeMap(); nm != nil {
			if sectionID, ok := nm.SectionOf(entry.SpanID); ok {
				if sec, ok := sr.GetSection(sectionID); ok {
					heading := stripHeadingHashes(sec.Heading)
					var headingPath []string
					if heading != "" {
						headingPath = []string{heading}
					}
					return expansion{
						packID:       fmt.Sprintf("s:%s", sectionID),
						scope:        query.PackScope{Type: query.ExpandSection, SectionID: sectionID},
						paragraphIDs: append([]string(nil), sec.ParagraphIDs...),
						headingPath:  headingPath,
						entry:        entry,
					}
				}
			}
		}
		diag.Emit(sink, diag.Diagnostic{
			Kind:    diag.PackFallback,
			Message: "section expansion unavailable; falling back to neighbors mode",
			SpanID:  entry.SpanID,
		})
	}

	n := sr.GetSpanCount()
	start := entry.Order - perHitNeighbors
	if start < 0 {
		start = 0
	}
	end := entry.Order + perHitNeighbors
	if end > n-1 {
		end = n - 1
	}
	ids := make([]string, 0, end-start+1)
	for o := start; o <= end; o++ {
		if sp, ok := sr.GetByOrder(o); ok {
			ids = append(ids, sp.ID)
		}
	}
	return expansion{
		packID:       fmt.Sprintf("o:%d-%d", start, end),
		scope:        query.PackScope{Type: query.ExpandNeighbors, Range: query.Range{Start: start, End: end}},
		paragraphIDs: ids,
		headingPath:  entry.HeadingPath,
		entry:        entry,
	}
}

func stripHeadingHashes(heading string) string {
	return strings.TrimSpace(strings.TrimLeft(heading, "#"))
}

func mergeDedupe(expansions []expansion) []expansion {
	byID := make(map[string]*expansion)
	order := make([]string, 0, len(expansions))
	for _, exp := range expansions {
		existing, ok := byID[exp.packID]
		if !ok {
			e := exp
			e.paragraphIDs = dedupePreserveOrder(exp.paragraphIDs)
			byID[exp.packID] = &e
			order = append(order, exp.packID)
			continue
		}
		existing.paragraphIDs = unionPreserveOrder(existing.paragraphIDs, exp.paragraphIDs)
		if exp.entry.Score > existing.entry.Score ||
			(exp.entry.Score == existing.entry.Score && exp.entry.Order < existing.entry.Order) {
			existing.entry = exp.entry
			existing.scope = exp.scope
			existing.headingPath = exp.headingPath
		}
	}

	out := make([]expansion, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

func dedupePreserveOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionPreserveOrder(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func materialize(sr Resolver, exp expansion) query.RetrievalPack {
	texts := make([]string, 0, len(exp.paragraphIDs))
	for _, id := range exp.paragraphIDs {
		if sp, ok := sr.GetSpan(id); ok {
			texts = append(texts, sp.Text)
		}
	}
	text := strings.Join(texts, "\n\n")

	return query.RetrievalPack{
		PackID:       exp.packID,
		Scope:        exp.scope,
		ParagraphIDs: exp.paragraphIDs,
		Text:         text,
		Meta: query.PackMeta{
			HeadingPath: exp.headingPath,
			SpanCount:   len(exp.paragraphIDs),
			CharCount:   len([]rune(text)),
		},
		Entry: exp.entry,
	}
}

// applyBudget enforces the pack-count limit and the character budget
// with a greedy, input-order fit strategy. Packs dropped by either
// constraint raise a BudgetTruncated diagnostic.
func applyBudget(packs []query.RetrievalPack, limit int, maxTokens *int, sink diag.Sink) []query.RetrievalPack {
	out := make([]query.RetrievalPack, 0, limit)
	var running int
	dropping := false
	for _, p := range packs {
		if !dropping && len(out) < limit && (maxTokens == nil || running+p.Meta.CharCount <= *maxTokens) {
			out = append(out, p)
			running += p.Meta.CharCount
			continue
		}
		dropping = true
		diag.Emit(sink, diag.Diagnostic{
			Kind:    diag.BudgetTruncated,
			Message: "retrieval budget dropped this pack",
			SpanID:  p.Entry.SpanID,
		})
	}
	return out
}
