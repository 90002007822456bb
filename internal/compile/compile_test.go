package compile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// samplePath locates testdata/sample.md relative to this package's
// directory, which go test uses as the working directory. The fixture
// package cannot be imported here: it imports compile itself.
func samplePath() string {
	return filepath.Join("..", "..", "testdata", "sample.md")
}

func writeTempSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildMarkdownProducesNineSpans(t *testing.T) {
	path := samplePath()
	result, err := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spans) != 9 {
		t.Fatalf("expected 9 spans, got %d: %+v", len(result.Spans), result.Spans)
	}
	for i, sp := range result.Spans {
		if sp.Order != i {
			t.Errorf("span %d has order %d, want %d", i, sp.Order, i)
		}
	}
}

func TestBuildOrderIsPermutation(t *testing.T) {
	path := samplePath()
	result, _ := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	seen := make(map[int]bool)
	for _, sp := range result.Spans {
		if seen[sp.Order] {
			t.Fatalf("duplicate order %d", sp.Order)
		}
		seen[sp.Order] = true
	}
	for i := 0; i < len(result.Spans); i++ {
		if !seen[i] {
			t.Fatalf("missing order %d", i)
		}
	}
}

func TestBuildHeadingPaths(t *testing.T) {
	path := samplePath()
	result, _ := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})

	// span 4 ("This paragraph belongs to section two...") should carry
	// heading path [Sample Markdown Document, Section Two].
	sp := result.Spans[4]
	want := []string{"Sample Markdown Document", "Section Two"}
	if len(sp.HeadingPath) != len(want) {
		t.Fatalf("span 4 headingPath = %v, want %v", sp.HeadingPath, want)
	}
	for i := range want {
		if sp.HeadingPath[i] != want[i] {
			t.Errorf("span 4 headingPath = %v, want %v", sp.HeadingPath, want)
		}
	}
}

func TestBuildNodeMapCoversAllSpans(t *testing.T) {
	path := samplePath()
	result, _ := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})

	covered := map[string]bool{}
	for _, sec := range result.NodeMap.Sections {
		for _, id := range sec.ParagraphIDs {
			if covered[id] {
				t.Fatalf("span %s covered by more than one section", id)
			}
			covered[id] = true
		}
	}
	if len(covered) != len(result.Spans) {
		t.Fatalf("node map covers %d spans, want %d", len(covered), len(result.Spans))
	}
}

func TestBuildReportPercentilesOrdered(t *testing.T) {
	path := samplePath()
	result, _ := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	ls := result.BuildReport.LengthStats
	if !(ls.P10 <= ls.P50 && ls.P50 <= ls.P90) {
		t.Errorf("expected p10 <= p50 <= p90, got %+v", ls)
	}
}

func TestBuildDeterministicHash(t *testing.T) {
	path := samplePath()
	a, err := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(Options{SourcePath: path, Now: time.Unix(99, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if a.Manifest.SourceHash != b.Manifest.SourceHash {
		t.Errorf("expected identical source hash across runs, got %s vs %s", a.Manifest.SourceHash, b.Manifest.SourceHash)
	}
}

func TestBuildPlainTextSyntheticSection(t *testing.T) {
	path := writeTempSource(t, "doc.txt", "first paragraph\n\nsecond paragraph\n\nthird paragraph\n")
	result, err := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.NodeMap.Sections) != 1 {
		t.Fatalf("expected exactly 1 synthetic section, got %d", len(result.NodeMap.Sections))
	}
	for _, sec := range result.NodeMap.Sections {
		if len(sec.ParagraphIDs) != 3 {
			t.Errorf("expected synthetic section to hold all 3 spans, got %d", len(sec.ParagraphIDs))
		}
	}
}

func TestWriteProducesFourFiles(t *testing.T) {
	path := samplePath()
	result, err := Build(Options{SourcePath: path, Now: time.Unix(0, 0).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "out")
	if err := Write(outDir, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"manifest.json", "spans.jsonl", "nodeMap.json", "buildReport.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestCollapseBlankRunsTo2(t *testing.T) {
	got := normalizeText("a\n\n\n\n\nb")
	if got != "a\n\nb" {
		t.Errorf("got %q, want %q", got, "a\n\nb")
	}
}
