// Package fixture compiles the repository's shared sample document for
// tests that need a real, NodeMap-backed corpus rather than a hand-built
// one. It has no _test.go suffix so package-internal test files (same
// package name as the code under test) can import it, while still only
// ever being linked into test binaries. The tests of artifact and
// compile cannot import it: this package imports both, so that would be
// an import cycle.
package fixture

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/screenager/versum/internal/artifact"
	"github.com/screenager/versum/internal/compile"
)

// SamplePath returns the absolute path to testdata/sample.md, resolved
// relative to this source file so it works regardless of the caller's
// working directory or package depth.
func SamplePath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", "sample.md")
}

// BuildSample runs the sample document through the real compiler, the
// same path versumc compile takes.
func BuildSample() (*compile.Result, error) {
	result, err := compile.Build(compile.Options{SourcePath: SamplePath(), Now: time.Unix(0, 0).UTC()})
	if err != nil {
		return nil, fmt.Errorf("fixture: build sample: %w", err)
	}
	return result, nil
}

// LoadedSample compiles the sample and reshapes it into artifact.Loaded,
// the input reader.New expects, without touching disk a second time.
func LoadedSample() (*artifact.Loaded, error) {
	result, err := BuildSample()
	if err != nil {
		return nil, err
	}
	return &artifact.Loaded{
		Manifest:    result.Manifest,
		Spans:       result.Spans,
		NodeMap:     result.NodeMap,
		BuildReport: result.BuildReport,
	}, nil
}
