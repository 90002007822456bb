// Package corpus defines the immutable data model shared by the build
// pipeline, the artifact loader, and the reader: Span, Manifest, NodeMap,
// and BuildReport. Values of these types are never mutated after
// construction — every component that "modifies" one instead builds a
// fresh value.
package corpus

import "fmt"

// Span is one paragraph of the normalized source document.
type Span struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Order        int       `json:"order"`
	HeadingPath  []string  `json:"headingPath,omitempty"`
	Embedding    []float64 `json:"embedding,omitempty"`
}

// HasEmbedding reports whether this span carries a persisted embedding.
func (s Span) HasEmbedding() bool { return len(s.Embedding) > 0 }

// Detection names how the build pipeline chose the source format.
type Detection string

const (
	DetectionAuto Detection = "auto"
	DetectionFlag Detection = "flag"
)

// Normalization records the text-normalization choices baked into a
// corpus at build time, so a loader can tell whether it understands them.
type Normalization struct {
	Unicode           string `json:"unicode"`           // "NFC"
	EOL               string `json:"eol"`               // "LF"
	BlankLineCollapse bool   `json:"blankLineCollapse"` // true
}

// SchemaVersions records the semantic version of each artifact's schema,
// so loaders can enforce the major-version compatibility rule.
type SchemaVersions struct {
	Manifest    string `json:"manifest"`
	Spans       string `json:"spans"`
	NodeMap     string `json:"nodeMap,omitempty"`
	BuildReport string `json:"buildReport,omitempty"`
}

// Manifest is the corpus's top-level metadata record.
type Manifest struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	CreatedAt     string         `json:"createdAt"` // ISO-8601
	SourcePath    string         `json:"sourcePath"`
	SourceHash    string         `json:"sourceHash"` // hex SHA-256
	ByteLength    int64          `json:"byteLength"`
	SpanCount     int            `json:"spanCount"`
	Version       string         `json:"version"` // compiler version
	Format        string         `json:"format"`
	Detection     Detection      `json:"detection"`
	Reader        string         `json:"reader"` // adapter name
	Normalization Normalization  `json:"normalization"`
	Schema        SchemaVersions `json:"schema"`
}

// Section holds the paragraph ids belonging to one section, in document
// order, plus the heading text that introduced it (empty for synthetic
// sections).
type Section struct {
	ParagraphIDs []string `json:"paragraphIds"`
	Heading      string   `json:"heading"`
}

// Book names the corpus a NodeMap belongs to.
type Book struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NodeMap is the hierarchical chapter/section/paragraph structure over a
// corpus's spans.
type NodeMap struct {
	Book       Book                `json:"book"`
	Chapters   map[string][]string `json:"chapters"`   // chapter id -> section ids
	Sections   map[string]Section  `json:"sections"`   // section id -> Section
	Paragraphs map[string]string   `json:"paragraphs"` // span id -> section id
}

// SectionOf returns the section id owning spanID, and whether one exists.
func (n NodeMap) SectionOf(spanID string) (string, bool) {
	id, ok := n.Paragraphs[spanID]
	return id, ok
}

// LengthStats holds the min/max and nearest-rank percentiles of span
// text length, in characters.
type LengthStats struct {
	Min int `json:"min"`
	Max int `json:"max"`
	P10 int `json:"p10"`
	P50 int `json:"p50"`
	P90 int `json:"p90"`
}

// Thresholds are the fixed cutoffs used to classify spans as short/long
// when building warnings.
type Thresholds struct {
	ShortSpanChars int `json:"shortSpanChars"`
	LongSpanChars  int `json:"longSpanChars"`
}

// DefaultThresholds returns the fixed short/long span thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{ShortSpanChars: 20, LongSpanChars: 2000}
}

// Warnings tallies spans that tripped a quality threshold.
type Warnings struct {
	ShortSpans      int `json:"shortSpans"`
	LongSpans       int `json:"longSpans"`
	DuplicateSpans  int `json:"duplicateSpans"`
}

// Summary is the headline span/chapter/section counts plus the
// multi-line / average-length rollups.
type Summary struct {
	SpanCount       int     `json:"spanCount"`
	ChapterCount    int     `json:"chapterCount"`
	SectionCount    int     `json:"sectionCount"`
	TotalChars      int     `json:"totalChars"`
	AverageChars    float64 `json:"averageChars"`
	MultiLineSpans  int     `json:"multiLineSpans"`
}

// Sample is a truncated text preview used by BuildReport's shortest/
// longest examples.
type Sample struct {
	SpanID string `json:"spanId"`
	Text   string `json:"text"`
}

// Samples carries the shortest and longest span previews.
type Samples struct {
	Shortest []Sample `json:"shortest"`
	Longest  []Sample `json:"longest"`
}

// Provenance back-references the manifest fields a report was generated
// against, so a report can be sanity-checked against its manifest without
// re-reading it.
type Provenance struct {
	ManifestID string `json:"manifestId"`
	SourceHash string `json:"sourceHash"`
}

// BuildReport carries the quality metrics emitted alongside a corpus.
type BuildReport struct {
	Summary     Summary     `json:"summary"`
	LengthStats LengthStats `json:"lengthStats"`
	Thresholds  Thresholds  `json:"thresholds"`
	Warnings    Warnings    `json:"warnings"`
	Samples     Samples     `json:"samples"`
	Provenance  Provenance  `json:"provenance"`
}

// TruncatePreview truncates text to at most n characters, appending an
// ellipsis marker when it was actually cut.
func TruncatePreview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}

// SpanID formats the 1-based, zero-padded, 6-digit identifier for the
// span at 0-based index order.
func SpanID(order int) string { return fmt.Sprintf("span:%06d", order+1) }

// ChapterID formats a chapter identifier for the 1-based chapter index.
func ChapterID(n int) string { return fmt.Sprintf("chap:%06d", n) }

// SectionID formats a section identifier for the 1-based section index.
func SectionID(n int) string { return fmt.Sprintf("sec:%06d", n) }

// CorpusID derives the content-addressed corpus id from a source hash:
// "corpus:" plus the first 12 hex characters.
func CorpusID(sourceHash string) string {
	if len(sourceHash) > 12 {
		sourceHash = sourceHash[:12]
	}
	return "corpus:" + sourceHash
}
