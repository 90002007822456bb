// Package watcher watches a source document for changes and triggers a
// full recompilation into a fresh artifact directory using fsnotify.
// There is no incremental update path: a corpus's artifacts are
// immutable once built, so every change produces an entirely new build
// rather than patching the previous one in place.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/screenager/versum/internal/compile"
)

// BuildFunc performs one full compile of sourcePath, writing a fresh
// artifact set. It is called once up front and again after every
// debounced change.
type BuildFunc func(sourcePath string) error

// Watcher watches a single source document and rebuilds it on change.
type Watcher struct {
	fw    *fsnotify.Watcher
	build BuildFunc
}

// New creates a Watcher that invokes build on every debounced write to
// the watched source document.
func New(build BuildFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	return &Watcher{fw: fw, build: build}, nil
}

// Watch adds sourcePath's containing directory to the watch list (so
// renames and atomic-save editors are caught, not just the file's own
// inode) and begins processing events. It blocks until done is closed
// or an unrecoverable error occurs. Call this in a goroutine.
func (w *Watcher) Watch(sourcePath string, done <-chan struct{}) error {
	dir := filepath.Dir(sourcePath)
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return err
	}

	var pending *time.Timer
	rebuild := func() {
		fmt.Fprintf(os.Stderr, "[watch] recompiling %s\n", sourcePath)
		if err := w.build(sourcePath); err != nil {
			fmt.Fprintf(os.Stderr, "[watch] error: %v\n", err)
		}
	}

	for {
		select {
		case <-done:
			return w.fw.Close()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			eventAbs, err := filepath.Abs(event.Name)
			if err != nil || eventAbs != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(500*time.Millisecond, rebuild)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "[watch] error: %v\n", err)
		}
	}
}

// BuildAndWrite compiles sourcePath with opts and writes the resulting
// artifacts to outDir, overwriting any prior build there. It is the
// default BuildFunc used by cmd/versumc's watch subcommand.
func BuildAndWrite(outDir string, opts compile.Options) BuildFunc {
	return func(sourcePath string) error {
		opts.SourcePath = sourcePath
		result, err := compile.Build(opts)
		if err != nil {
			return err
		}
		return compile.Write(outDir, result)
	}
}
