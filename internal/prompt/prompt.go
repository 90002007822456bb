// Package prompt implements the prompt assembler: formats
// retrieval packs into a citable user prompt under a character budget,
// paired with a fixed system prompt per style.
package prompt

import (
	"fmt"
	"strings"

	"github.com/screenager/versum/internal/phrase"
	"github.com/screenager/versum/internal/query"
)

const (
	systemQA = "You are a careful assistant that answers only from the supplied " +
		"context. Cite every claim using the bracketed superscript markers. " +
		"If the context does not contain enough information to answer, say so " +
		"explicitly rather than guessing."
	systemSummarize = "You are a careful assistant that summarizes the supplied context " +
		"concisely. Cite every claim using the bracketed superscript markers. " +
		"Do not introduce information that is not present in the context."
)

var superscriptDigits = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
}

// marker renders n (1-based) as "[<superscript digits>]".
func marker(n int) string {
	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	b.WriteByte('[')
	for _, d := range digits {
		b.WriteRune(superscriptDigits[d])
	}
	b.WriteByte(']')
	return b.String()
}

func systemPrompt(style query.PromptStyle) string {
	if style == query.StyleSummarize {
		return systemSummarize
	}
	return systemQA
}

// Assemble formats req.Packs into a citable prompt, stopping as soon as
// adding the next block would exceed the character budget.
func Assemble(req query.PromptRequest) query.AssembledPrompt {
	var blocks []string
	var citations []query.Citation
	var totalChars int

	ceiling := req.HeadroomTokens // effectively unbounded budget minus headroom, when MaxPromptTokens is nil
	hasCeiling := req.MaxPromptTokens != nil
	if hasCeiling {
		ceiling = *req.MaxPromptTokens - req.HeadroomTokens
	}
	baseSize := len(req.Question)

	for i, pack := range req.Packs {
		n := i + 1
		mk := marker(n)
		block := formatBlock(mk, req.DocID, pack)

		if hasCeiling && baseSize+totalChars+len(block) > ceiling {
			break
		}

		blocks = append(blocks, block)
		totalChars += len(block)

		citations = append(citations, query.Citation{
			Marker:      mk,
			PackID:      pack.PackID,
			DocID:       req.DocID,
			HeadingPath: pack.Meta.HeadingPath,
			SpanOffsets: phraseOffsets(pack),
		})
	}

	user := assembleUser(req.Question, len(citations), blocks)

	return query.AssembledPrompt{
		System:          systemPrompt(req.Style),
		User:            user,
		Citations:       citations,
		TokensEstimated: len(user),
	}
}

func formatBlock(mk, docID string, pack query.RetrievalPack) string {
	var b strings.Builder
	b.WriteString(mk)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Doc: %s\n", docID)
	if len(pack.Meta.HeadingPath) > 0 {
		fmt.Fprintf(&b, "Path: %s\n", strings.Join(pack.Meta.HeadingPath, " > "))
	}
	b.WriteString("---\n")
	b.WriteString(pack.Text)
	return b.String()
}

func assembleUser(question string, acceptedCount int, blocks []string) string {
	if acceptedCount == 0 {
		return question
	}
	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n\nYou may reference ")
	b.WriteString(marker(1))
	b.WriteString("…")
	b.WriteString(marker(acceptedCount))
	b.WriteString(".\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String()
}

// phraseOffsets flattens the pack entry's phrase hit ranges, or nil when
// none exist.
func phraseOffsets(pack query.RetrievalPack) []phrase.Range {
	if len(pack.Entry.Hits.Phrases) == 0 {
		return nil
	}
	var out []phrase.Range
	for _, ph := range pack.Entry.Hits.Phrases {
		out = append(out, ph.Ranges...)
	}
	return out
}
