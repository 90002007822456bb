// Package hybrid implements the hybrid ranker: min-max
// normalization and weighted fusion of the TF-IDF lexical score and the
// mini-embedder's semantic cosine score.
package hybrid

import (
	"fmt"

	"github.com/screenager/versum/internal/diag"
	"github.com/screenager/versum/internal/lexicon"
	"github.com/screenager/versum/internal/rank/tfidf"
	"github.com/screenager/versum/internal/semantic"
)

// DefaultWeightLexical and DefaultWeightSemantic are the documented
// fusion weights.
const (
	DefaultWeightLexical  = 0.7
	DefaultWeightSemantic = 0.3
)

// Options tunes the fusion. Normalize defaults to true when constructed
// via DefaultOptions.
type Options struct {
	WeightLexical  float64
	WeightSemantic float64
	Normalize      bool
}

// DefaultOptions returns the documented default options.
func DefaultOptions() Options {
	return Options{
		WeightLexical:  DefaultWeightLexical,
		WeightSemantic: DefaultWeightSemantic,
		Normalize:      true,
	}
}

// InvalidArgumentError is returned when the supplied weights are
// negative or sum to more than 1.
type InvalidArgumentError struct {
	WeightLexical, WeightSemantic float64
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("hybrid: invalid weights lexical=%v semantic=%v", e.WeightLexical, e.WeightSemantic)
}

// SpanEmbeddingLookup resolves a span id to its persisted embedding, and
// whether one is present.
type SpanEmbeddingLookup func(spanID string) (embedding []float64, ok bool)

// Rank fuses lexical and semantic scores for results, returning a new
// slice with updated scores. Sorting is deferred to the caller.
func Rank(
	results []lexicon.Result,
	queryTokens []string,
	queryEmbedding []float64,
	opts Options,
	lexical *tfidf.Ranker,
	textLookup tfidf.SpanTextLookup,
	embeddingLookup SpanEmbeddingLookup,
	sink diag.Sink,
) ([]lexicon.Result, error) {
	if opts.WeightLexical < 0 || opts.WeightSemantic < 0 || opts.WeightLexical+opts.WeightSemantic > 1 {
		return nil, InvalidArgumentError{WeightLexical: opts.WeightLexical, WeightSemantic: opts.WeightSemantic}
	}

	lexScored := lexical.RankWithHits(results, queryTokens, 0, textLookup)

	lexScores := make(map[string]float64, len(lexScored))
	for _, r := range lexScored {
		lexScores[r.SpanID] = r.Score
	}

	semScores := make(map[string]float64, len(lexScored))
	for _, r := range lexScored {
		emb, ok := embeddingLookup(r.SpanID)
		if !ok {
			diag.Emit(sink, diag.Diagnostic{
				Kind:    diag.MissingEmbedding,
				Message: "span has no persisted embedding; skipped for semantic scoring",
				SpanID:  r.SpanID,
			})
			continue
		}
		sim, err := semantic.CosineSimilarity(emb, queryEmbedding)
		if err != nil {
			continue
		}
		semScores[r.SpanID] = sim
	}

	if opts.Normalize {
		lexScores = minMaxNormalize(lexScores)
		semScores = minMaxNormalize(semScores)
	}

	out := make([]lexicon.Result, len(lexScored))
	copy(out, lexScored)
	for i, r := range out {
		lex := lexScores[r.SpanID]
		sem := semScores[r.SpanID]
		out[i].Score = lex*opts.WeightLexical + sem*opts.WeightSemantic
	}
	return out, nil
}

// minMaxNormalize scales values into [0, 1]; when max == min, every
// present entry maps to 1.0 (avoids division by zero on uniform input).
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := 0.0, 0.0
	first := true
	for _, v := range scores {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make(map[string]float64, len(scores))
	if max == min {
		for k := range scores {
			out[k] = 1.0
		}
		return out
	}
	for k, v := range scores {
		out[k] = (v - min) / (max - min)
	}
	return out
}
