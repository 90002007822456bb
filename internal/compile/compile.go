// Package compile implements the build pipeline: turns a source
// document into the four-artifact corpus the reader consumes. It is the
// only component in this module that writes to disk.
package compile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/screenager/versum/internal/corpus"
)

// CompilerVersion is stamped into every manifest this package writes.
const CompilerVersion = "0.1.0"

// Format names a source document's detected or declared shape.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Options configures a Build run.
type Options struct {
	SourcePath string
	Format     Format    // empty triggers extension-based detection
	Now        time.Time // injected for determinism in tests; zero means time.Now()
}

// Result is the in-memory form of everything Build wrote to disk.
type Result struct {
	Manifest    corpus.Manifest
	Spans       []corpus.Span
	NodeMap     corpus.NodeMap
	BuildReport corpus.BuildReport
}

var headingPattern = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)

// Detect chooses a format by extension when opts.Format is empty.
func Detect(path string) (Format, corpus.Detection) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, corpus.DetectionAuto
	default:
		return FormatText, corpus.DetectionAuto
	}
}

// Build reads, normalizes, splits, and structures a source document
// into a Result, without writing anything to disk.
func Build(opts Options) (*Result, error) {
	raw, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("compile: read source: %w", err)
	}

	format := opts.Format
	detection := corpus.DetectionFlag
	if format == "" {
		format, detection = Detect(opts.SourcePath)
	}

	normalized := normalizeText(string(raw))
	sourceHash := sha256.Sum256([]byte(normalized))
	sourceHashHex := hex.EncodeToString(sourceHash[:])

	fragments := splitIntoFragments(normalized)

	var spans []corpus.Span
	var nodeMap corpus.NodeMap
	if format == FormatMarkdown {
		spans, nodeMap = buildMarkdownSpansAndNodeMap(fragments)
	} else {
		spans = buildPlainSpans(fragments)
		nodeMap = syntheticNodeMap(spans)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	manifest := corpus.Manifest{
		ID:         corpus.CorpusID(sourceHashHex),
		Title:      titleFromSpans(spans, opts.SourcePath),
		CreatedAt:  now.Format(time.RFC3339),
		SourcePath: opts.SourcePath,
		SourceHash: sourceHashHex,
		ByteLength: int64(len(normalized)),
		SpanCount:  len(spans),
		Version:    CompilerVersion,
		Format:     string(format),
		Detection:  detection,
		Reader:     string(format) + "-adapter",
		Normalization: corpus.Normalization{
			Unicode:           "NFC",
			EOL:               "LF",
			BlankLineCollapse: true,
		},
		Schema: corpus.SchemaVersions{
			Manifest:    "1.0.0",
			Spans:       "1.0.0",
			NodeMap:     "1.0.0",
			BuildReport: "1.0.0",
		},
	}

	report := buildReport(spans, nodeMap, manifest)

	return &Result{Manifest: manifest, Spans: spans, NodeMap: nodeMap, BuildReport: report}, nil
}

// normalizeText applies Unicode NFC, CRLF to LF, leading/trailing trim,
// and collapses runs of 3+ newlines to exactly two.
func normalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	text = collapseBlankRuns(text)
	return text
}

var threeOrMoreNewlines = regexp.MustCompile(`\n{3,}`)

func collapseBlankRuns(text string) string {
	return threeOrMoreNewlines.ReplaceAllString(text, "\n\n")
}

// splitIntoFragments splits on runs of 2+ newlines, trims each, and
// drops empties.
func splitIntoFragments(text string) []string {
	raw := regexp.MustCompile(`\n{2,}`).Split(text, -1)
	fragments := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		fragments = append(fragments, f)
	}
	return fragments
}

func buildPlainSpans(fragments []string) []corpus.Span {
	spans := make([]corpus.Span, len(fragments))
	for i, f := range fragments {
		spans[i] = corpus.Span{ID: corpus.SpanID(i), Text: f, Order: i}
	}
	return spans
}

// headingPathBuilder tracks the current H1/H2/H3 ancestry as a document
// is scanned top to bottom.
type headingPathBuilder struct {
	levels [3]string // index 0=H1, 1=H2, 2=H3
}

func (h *headingPathBuilder) path() []string {
	var out []string
	for _, l := range h.levels {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (h *headingPathBuilder) parentPath(level int) []string {
	var out []string
	for i := 0; i < level-1; i++ {
		if h.levels[i] != "" {
			out = append(out, h.levels[i])
		}
	}
	return out
}

func (h *headingPathBuilder) set(level int, text string) {
	h.levels[level-1] = text
	for i := level; i < len(h.levels); i++ {
		h.levels[i] = ""
	}
}

// buildMarkdownSpansAndNodeMap assigns heading paths to each fragment
// and constructs the chapter/section hierarchy in the same pass.
func buildMarkdownSpansAndNodeMap(fragments []string) ([]corpus.Span, corpus.NodeMap) {
	spans := make([]corpus.Span, 0, len(fragments))
	builder := headingPathBuilder{}

	type sectionAccum struct {
		id      string
		heading string
		spanIDs []string
	}
	var chapters []string
	chapterSections := map[string][]string{}
	sections := map[string]corpus.Section{}

	chapterCount := 0
	sectionCount := 0
	var currentChapter string
	var currentSection *sectionAccum

	flushSection := func() {
		if currentSection == nil {
			return
		}
		sections[currentSection.id] = corpus.Section{ParagraphIDs: currentSection.spanIDs, Heading: currentSection.heading}
		chapterSections[currentChapter] = append(chapterSections[currentChapter], currentSection.id)
		currentSection = nil
	}
	ensureChapter := func() {
		if currentChapter == "" {
			chapterCount++
			currentChapter = corpus.ChapterID(chapterCount)
			chapters = append(chapters, currentChapter)
		}
	}
	ensureSection := func() {
		ensureChapter()
		if currentSection == nil {
			sectionCount++
			currentSection = &sectionAccum{id: corpus.SectionID(sectionCount)}
		}
	}

	for _, f := range fragments {
		if m := headingPattern.FindStringSubmatch(f); m != nil {
			level := len(m[1])
			text := strings.TrimSpace(m[2])
			span := corpus.Span{ID: corpus.SpanID(len(spans)), Text: f, Order: len(spans), HeadingPath: builder.parentPath(level)}

			switch level {
			case 1:
				flushSection()
				chapterCount++
				currentChapter = corpus.ChapterID(chapterCount)
				chapters = append(chapters, currentChapter)
				ensureSection() // synthetic: holds the H1 itself plus any paragraph before the first H2
			case 2:
				flushSection()
				ensureChapter()
				sectionCount++
				currentSection = &sectionAccum{id: corpus.SectionID(sectionCount), heading: f}
			default:
				ensureSection()
			}
			builder.set(level, text)

			currentSection.spanIDs = append(currentSection.spanIDs, span.ID)
			spans = append(spans, span)
			continue
		}

		ensureSection()
		span := corpus.Span{ID: corpus.SpanID(len(spans)), Text: f, Order: len(spans), HeadingPath: builder.path()}
		currentSection.spanIDs = append(currentSection.spanIDs, span.ID)
		spans = append(spans, span)
	}
	flushSection()

	if len(chapters) == 0 {
		return spans, syntheticNodeMap(spans)
	}

	nm := corpus.NodeMap{
		Book:       corpus.Book{ID: "book:000001", Title: titleFromSpans(spans, "")},
		Chapters:   chapterSections,
		Sections:   sections,
		Paragraphs: map[string]string{},
	}
	for secID, sec := range sections {
		for _, spanID := range sec.ParagraphIDs {
			nm.Paragraphs[spanID] = secID
		}
	}
	return spans, nm
}

// syntheticNodeMap wraps every span in one chapter and one section, for
// plain-text documents or Markdown with no H1/H2.
func syntheticNodeMap(spans []corpus.Span) corpus.NodeMap {
	ids := make([]string, len(spans))
	paragraphs := make(map[string]string, len(spans))
	for i, sp := range spans {
		ids[i] = sp.ID
		paragraphs[sp.ID] = corpus.SectionID(1)
	}
	return corpus.NodeMap{
		Book:       corpus.Book{ID: "book:000001", Title: titleFromSpans(spans, "")},
		Chapters:   map[string][]string{corpus.ChapterID(1): {corpus.SectionID(1)}},
		Sections:   map[string]corpus.Section{corpus.SectionID(1): {ParagraphIDs: ids, Heading: ""}},
		Paragraphs: paragraphs,
	}
}

func titleFromSpans(spans []corpus.Span, fallbackPath string) string {
	for _, sp := range spans {
		if m := headingPattern.FindStringSubmatch(sp.Text); m != nil && len(m[1]) == 1 {
			return strings.TrimSpace(m[2])
		}
	}
	if fallbackPath != "" {
		return filepath.Base(fallbackPath)
	}
	return "untitled"
}

func buildReport(spans []corpus.Span, nodeMap corpus.NodeMap, manifest corpus.Manifest) corpus.BuildReport {
	lengths := make([]int, len(spans))
	var totalChars int
	var multiLine int
	seen := map[string]int{}
	var duplicates int
	for i, sp := range spans {
		n := len([]rune(sp.Text))
		lengths[i] = n
		totalChars += n
		if strings.Contains(sp.Text, "\n") {
			multiLine++
		}
		seen[sp.Text]++
		if seen[sp.Text] == 2 {
			duplicates++
		}
	}

	thresholds := corpus.DefaultThresholds()
	var shortCount, longCount int
	for _, n := range lengths {
		if n < thresholds.ShortSpanChars {
			shortCount++
		}
		if n > thresholds.LongSpanChars {
			longCount++
		}
	}

	sortedLengths := append([]int(nil), lengths...)
	sort.Ints(sortedLengths)

	var avgChars float64
	if len(spans) > 0 {
		avgChars = float64(totalChars) / float64(len(spans))
	}

	chapterCount, sectionCount := len(nodeMap.Chapters), len(nodeMap.Sections)

	return corpus.BuildReport{
		Summary: corpus.Summary{
			SpanCount:      len(spans),
			ChapterCount:   chapterCount,
			SectionCount:   sectionCount,
			TotalChars:     totalChars,
			AverageChars:   avgChars,
			MultiLineSpans: multiLine,
		},
		LengthStats: corpus.LengthStats{
			Min: minOrZero(sortedLengths),
			Max: maxOrZero(sortedLengths),
			P10: percentileNearestRank(sortedLengths, 10),
			P50: percentileNearestRank(sortedLengths, 50),
			P90: percentileNearestRank(sortedLengths, 90),
		},
		Thresholds: thresholds,
		Warnings: corpus.Warnings{
			ShortSpans:     shortCount,
			LongSpans:      longCount,
			DuplicateSpans: duplicates,
		},
		Samples:    buildSamples(spans, lengths),
		Provenance: corpus.Provenance{ManifestID: manifest.ID, SourceHash: manifest.SourceHash},
	}
}

func minOrZero(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[0]
}

func maxOrZero(sorted []int) int {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[len(sorted)-1]
}

// percentileNearestRank implements the nearest-rank method: rank =
// ceil(p/100 * n), 1-based, clamped to [1, n].
func percentileNearestRank(sorted []int, p int) int {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

const sampleSize = 3

func buildSamples(spans []corpus.Span, lengths []int) corpus.Samples {
	type indexed struct {
		span corpus.Span
		n    int
	}
	all := make([]indexed, len(spans))
	for i, sp := range spans {
		all[i] = indexed{span: sp, n: lengths[i]}
	}

	shortest := append([]indexed(nil), all...)
	sort.SliceStable(shortest, func(i, j int) bool { return shortest[i].n < shortest[j].n })
	longest := append([]indexed(nil), all...)
	sort.SliceStable(longest, func(i, j int) bool { return longest[i].n > longest[j].n })

	take := func(xs []indexed) []corpus.Sample {
		n := sampleSize
		if len(xs) < n {
			n = len(xs)
		}
		out := make([]corpus.Sample, n)
		for i := 0; i < n; i++ {
			out[i] = corpus.Sample{SpanID: xs[i].span.ID, Text: corpus.TruncatePreview(xs[i].span.Text, 200)}
		}
		return out
	}

	return corpus.Samples{Shortest: take(shortest), Longest: take(longest)}
}

// Write serializes a Result to the four-file artifact layout under dir.
func Write(dir string, result *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("compile: mkdir %s: %w", dir, err)
	}

	if err := writeJSON(filepath.Join(dir, "manifest.json"), result.Manifest); err != nil {
		return err
	}
	if err := writeSpansJSONL(filepath.Join(dir, "spans.jsonl"), result.Spans); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "nodeMap.json"), result.NodeMap); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "buildReport.json"), result.BuildReport); err != nil {
		return err
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("compile: marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("compile: write %s: %w", path, err)
	}
	return nil
}

func writeSpansJSONL(path string, spans []corpus.Span) error {
	var b strings.Builder
	for _, sp := range spans {
		line, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("compile: marshal span %s: %w", sp.ID, err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("compile: write %s: %w", path, err)
	}
	return nil
}
