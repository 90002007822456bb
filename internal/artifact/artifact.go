// Package artifact loads the four on-disk files a build pipeline
// produces — manifest.json, spans.jsonl, nodeMap.json, buildReport.json
// — into memory. It performs no transformation: node maps and
// build reports are trusted as given, never recomputed from spans.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/screenager/versum/internal/corpus"
)

const (
	manifestFile    = "manifest.json"
	spansFile       = "spans.jsonl"
	nodeMapFile     = "nodeMap.json"
	buildReportFile = "buildReport.json"
)

// ExpectedSchema is the major.minor.patch this loader was built against;
// only the major component is checked for compatibility.
var ExpectedSchema = corpus.SchemaVersions{
	Manifest:    "1.0.0",
	Spans:       "1.0.0",
	NodeMap:     "1.0.0",
	BuildReport: "1.0.0",
}

// MissingError reports a required artifact that does not exist.
type MissingError struct {
	Path string
}

func (e MissingError) Error() string { return fmt.Sprintf("artifact missing: %s", e.Path) }

// InvalidError reports an artifact present but failing validation.
// Index is the 0-based JSONL record index; -1 when not applicable.
type InvalidError struct {
	Path   string
	Index  int
	Reason string
}

func (e InvalidError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("artifact invalid: %s record %d: %s", e.Path, e.Index, e.Reason)
	}
	return fmt.Sprintf("artifact invalid: %s: %s", e.Path, e.Reason)
}

// Loaded is the in-memory result of loading an artifact directory.
type Loaded struct {
	Manifest    corpus.Manifest
	Spans       []corpus.Span
	NodeMap     *corpus.NodeMap
	BuildReport *corpus.BuildReport
}

// Load reads and validates the artifact set rooted at directory.
func Load(directory string) (*Loaded, error) {
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return nil, MissingError{Path: directory}
	}

	manifest, err := loadManifest(filepath.Join(directory, manifestFile))
	if err != nil {
		return nil, err
	}

	spans, err := loadSpans(filepath.Join(directory, spansFile))
	if err != nil {
		return nil, err
	}

	nodeMap, err := loadOptionalNodeMap(filepath.Join(directory, nodeMapFile), manifest.Schema)
	if err != nil {
		return nil, err
	}

	report, err := loadOptionalBuildReport(filepath.Join(directory, buildReportFile), manifest.Schema)
	if err != nil {
		return nil, err
	}

	return &Loaded{Manifest: manifest, Spans: spans, NodeMap: nodeMap, BuildReport: report}, nil
}

func loadManifest(path string) (corpus.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return corpus.Manifest{}, MissingError{Path: path}
	}
	var m corpus.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return corpus.Manifest{}, InvalidError{Path: path, Index: -1, Reason: err.Error()}
	}
	if m.ID == "" || m.SourceHash == "" {
		return corpus.Manifest{}, InvalidError{Path: path, Index: -1, Reason: "missing required fields"}
	}
	if !sameMajor(m.Schema.Manifest, ExpectedSchema.Manifest) {
		return corpus.Manifest{}, InvalidError{Path: path, Index: -1, Reason: fmt.Sprintf("schema major mismatch: got %s, want %s", m.Schema.Manifest, ExpectedSchema.Manifest)}
	}
	return m, nil
}

func loadSpans(path string) ([]corpus.Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, MissingError{Path: path}
	}

	text := string(data)
	// A trailing newline is tolerated: drop exactly one before splitting,
	// so it never produces a spurious final empty line.
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")

	spans := make([]corpus.Span, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			return nil, InvalidError{Path: path, Index: i, Reason: fmt.Sprintf("empty line %d", i+1)}
		}
		var sp corpus.Span
		if err := json.Unmarshal([]byte(line), &sp); err != nil {
			return nil, InvalidError{Path: path, Index: i, Reason: err.Error()}
		}
		if sp.ID == "" || strings.TrimSpace(sp.Text) == "" {
			return nil, InvalidError{Path: path, Index: i, Reason: "missing id or text"}
		}
		spans = append(spans, sp)
	}
	return spans, nil
}

func loadOptionalNodeMap(path string, schema corpus.SchemaVersions) (*corpus.NodeMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, InvalidError{Path: path, Index: -1, Reason: err.Error()}
	}
	var nm corpus.NodeMap
	if err := json.Unmarshal(data, &nm); err != nil {
		return nil, InvalidError{Path: path, Index: -1, Reason: err.Error()}
	}
	if !sameMajor(schema.NodeMap, ExpectedSchema.NodeMap) {
		return nil, InvalidError{Path: path, Index: -1, Reason: fmt.Sprintf("schema major mismatch: got %s, want %s", schema.NodeMap, ExpectedSchema.NodeMap)}
	}
	return &nm, nil
}

func loadOptionalBuildReport(path string, schema corpus.SchemaVersions) (*corpus.BuildReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, InvalidError{Path: path, Index: -1, Reason: err.Error()}
	}
	var br corpus.BuildReport
	if err := json.Unmarshal(data, &br); err != nil {
		return nil, InvalidError{Path: path, Index: -1, Reason: err.Error()}
	}
	if !sameMajor(schema.BuildReport, ExpectedSchema.BuildReport) {
		return nil, InvalidError{Path: path, Index: -1, Reason: fmt.Sprintf("schema major mismatch: got %s, want %s", schema.BuildReport, ExpectedSchema.BuildReport)}
	}
	return &br, nil
}

// sameMajor reports whether two "major.minor.patch" versions share a
// major component. A malformed version string never matches.
func sameMajor(a, b string) bool {
	return majorOf(a) != "" && majorOf(a) == majorOf(b)
}

func majorOf(v string) string {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return parts[0]
}
