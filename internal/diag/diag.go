// Package diag defines the non-fatal diagnostic events raised by the
// reader and retrieval packages. Callers that care — typically a CLI
// command wiring output to zerolog — pass a Sink to collect them; library
// callers (tests, embedders) may pass nil and simply ignore diagnostics.
package diag

import "fmt"

// Kind identifies the category of a Diagnostic, matching the non-fatal
// branch of the error taxonomy (MissingEmbedding and friends).
type Kind string

const (
	// MissingEmbedding is raised once per span, per Reader, the first time
	// a semantic-scoring path needs an embedding a span doesn't have.
	MissingEmbedding Kind = "missing_embedding"
	// PackFallback is raised when section-mode retrieval expansion falls
	// back to neighbors mode because no section could be resolved.
	PackFallback Kind = "pack_fallback"
	// BudgetTruncated is raised when the retrieval budget drops packs that
	// would otherwise have been returned.
	BudgetTruncated Kind = "budget_truncated"
)

// Diagnostic is a single non-fatal event.
type Diagnostic struct {
	Kind    Kind
	Message string
	SpanID  string // set when the diagnostic concerns one span; else ""
}

func (d Diagnostic) String() string {
	if d.SpanID != "" {
		return fmt.Sprintf("%s: %s (span=%s)", d.Kind, d.Message, d.SpanID)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Sink receives diagnostics as they occur. Implementations must not block
// the caller for long; the reader invokes the sink synchronously on the
// query path.
type Sink func(Diagnostic)

// Emit calls sink if it is non-nil. It exists so call sites read as a
// single statement regardless of whether a sink was configured.
func Emit(sink Sink, d Diagnostic) {
	if sink != nil {
		sink(d)
	}
}
