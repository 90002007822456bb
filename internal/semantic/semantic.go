// Package semantic implements the deterministic, dependency-free
// embedding signal: a 128-dimensional hash projection over a
// span's tokens, and cosine similarity between unit vectors. There is
// no trained model and no external call — the entire signal is a pure
// function of the text's tokens and how often each occurs.
package semantic

import (
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/screenager/versum/internal/tokenize"
)

// Dimensions is the fixed embedding width.
const Dimensions = 128

// EmbedText tokenizes text and returns its 128-dim unit vector. A
// text with no tokens yields the zero vector.
func EmbedText(text string) []float64 {
	tokens := tokenize.Tokenize(text)
	if len(tokens) == 0 {
		return make([]float64, Dimensions)
	}

	sum := make([]float64, Dimensions)
	for _, tok := range tokens {
		for d := 0; d < Dimensions; d++ {
			sum[d] += dimValue(tok, d)
		}
	}
	for d := range sum {
		sum[d] /= float64(len(tokens))
	}
	return normalize(sum)
}

// dimValue computes the deterministic per-token, per-dimension value:
// a 32-bit rolling hash ("shift left 5, minus self") of "{token}:{d}"
// over its UTF-16 code units, folded into [-1, 1].
func dimValue(token string, d int) float64 {
	s := fmt.Sprintf("%s:%d", token, d)
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(unit)
	}
	mod := int64(h) % 10000
	if mod < 0 {
		mod += 10000
	}
	return float64(mod)/5000 - 1
}

func normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	mag := math.Sqrt(sumSq)
	if mag == 0 {
		return make([]float64, len(v))
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / mag
	}
	return out
}

// DimensionMismatchError is returned by CosineSimilarity when its two
// inputs have unequal length.
type DimensionMismatchError struct {
	LenU, LenV int
}

func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("semantic: dimension mismatch (%d vs %d)", e.LenU, e.LenV)
}

// CosineSimilarity returns the dot product of two unit vectors, in
// [-1, 1]. u and v must be the same length.
func CosineSimilarity(u, v []float64) (float64, error) {
	if len(u) != len(v) {
		return 0, DimensionMismatchError{LenU: len(u), LenV: len(v)}
	}
	var dot float64
	for i := range u {
		dot += u[i] * v[i]
	}
	return dot, nil
}
