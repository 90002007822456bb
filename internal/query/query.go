// Package query holds the request/response shapes shared across the
// reader, retrieval-pack builder, and prompt assembler, so those
// packages can depend on a common vocabulary without depending on each
// other.
package query

import (
	"github.com/screenager/versum/internal/lexicon"
	"github.com/screenager/versum/internal/phrase"
	"github.com/screenager/versum/internal/rank/hybrid"
)

// RankMode selects how search results are scored.
type RankMode string

const (
	RankNone   RankMode = "none"
	RankTFIDF  RankMode = "tfidf"
	RankHybrid RankMode = "hybrid"
)

// SearchOptions configures Reader.Search. A nil Limit means unbounded.
type SearchOptions struct {
	Limit  *int
	Rank   RankMode
	Fuzzy  *lexicon.FuzzyOptions
	Hybrid *hybrid.Options
}

// SearchResult is one scored, hit-annotated span.
type SearchResult struct {
	SpanID      string
	Order       int
	Score       float64
	HeadingPath []string
	Hits        lexicon.Hits
}

// ExpandMode selects how a retrieval-pack builder widens a hit into a
// context window.
type ExpandMode string

const (
	ExpandNeighbors ExpandMode = "neighbors"
	ExpandSection   ExpandMode = "section"
)

// RetrieveOptions configures Reader.Retrieve / retrieve.Build.
type RetrieveOptions struct {
	Limit           int
	PerHitNeighbors int
	Expand          ExpandMode
	MaxTokens       *int
	Rank            RankMode
}

// DefaultRetrieveOptions returns the documented default options.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		Limit:           5,
		PerHitNeighbors: 1,
		Expand:          ExpandNeighbors,
		Rank:            RankTFIDF,
	}
}

// Range is the inclusive [Start, End] order range covered by a
// neighbors-mode pack.
type Range struct {
	Start, End int
}

// PackScope tags how a pack's span window was derived.
type PackScope struct {
	Type      ExpandMode
	Range     Range  // populated when Type == ExpandNeighbors
	SectionID string // populated when Type == ExpandSection
}

// RetrievalPackEntry is the scored hit a pack was expanded from.
type RetrievalPackEntry struct {
	SpanID      string
	Order       int
	Score       float64
	HeadingPath []string
	Hits        lexicon.Hits
}

// PackMeta carries the materialized pack's summary counters.
type PackMeta struct {
	HeadingPath []string
	SpanCount   int
	CharCount   int
}

// RetrievalPack is a merged, scope-annotated, budget-surviving context
// window produced by the retrieval-pack builder.
type RetrievalPack struct {
	PackID       string
	Scope        PackScope
	ParagraphIDs []string
	Text         string
	Meta         PackMeta
	Entry        RetrievalPackEntry
}

// PromptStyle selects the fixed system prompt used by Assemble.
type PromptStyle string

const (
	StyleQA        PromptStyle = "qa"
	StyleSummarize PromptStyle = "summarize"
)

// CitationStyle selects the citation marker scheme. Only numeric is
// currently implemented.
type CitationStyle string

const (
	CitationNumeric CitationStyle = "numeric"
)

// PromptRequest is the input to prompt.Assemble.
type PromptRequest struct {
	Question       string
	Packs          []RetrievalPack
	DocID          string
	HeadroomTokens int
	Style          PromptStyle
	CitationStyle  CitationStyle
	MaxPromptTokens *int // nil means effectively unbounded
}

// DefaultPromptRequest fills in the documented defaults, leaving
// Question/Packs/DocID for the caller to set.
func DefaultPromptRequest() PromptRequest {
	return PromptRequest{
		HeadroomTokens: 300,
		Style:          StyleQA,
		CitationStyle:  CitationNumeric,
	}
}

// Citation identifies one pack accepted into an assembled prompt.
type Citation struct {
	Marker      string
	PackID      string
	DocID       string
	HeadingPath []string
	SpanOffsets []phrase.Range // omitted (nil) when no phrase hit ranges exist
}

// AssembledPrompt is the result of prompt.Assemble.
type AssembledPrompt struct {
	System          string
	User            string
	Citations       []Citation
	TokensEstimated int
}
