// Package module implements the imported-pipeline cache: a process-wide
// mapping from canonical absolute path to parsed pipeline, with
// single-load semantics enforced by a mutual-exclusion guard. Rejecting a
// re-import of the same canonical path within one sub-execution is a
// narrower rule than this cache enforces — that check lives in
// internal/subexec, which tracks which canonical paths it has personally
// imported; this Manager only deduplicates parsing work across the whole
// process.
package module

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/titpetric/piped/internal/ast"
	"github.com/titpetric/piped/internal/compiler/parser"
	"github.com/titpetric/piped/internal/diag"
)

// ImportedPipeline is a parsed script identified by its canonical absolute
// path, immutable once loaded. ID is a ULID minted at load time; no
// diagnostic reads it, and it plays no part in caching or equality, both
// of which are keyed on Path.
type ImportedPipeline struct {
	ID      ulid.ULID
	Path    string
	Program ast.Program
}

// Manager is the process-wide cache from canonical path to ImportedPipeline.
// An entry is inserted on first successful import and never evicted during
// a run.
type Manager struct {
	mu    sync.Mutex
	cache map[string]*ImportedPipeline
	group singleflight.Group
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{cache: make(map[string]*ImportedPipeline)}
}

// Canonicalize resolves requestedPath (relative to baseDir when it isn't
// already absolute) to its canonical absolute form, following symlinks.
// Canonicalisation failure is a fatal error.
func Canonicalize(baseDir, requestedPath string) (string, error) {
	path := requestedPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", diag.Fatalf("import", "canonicalisation failed for %q: %s", requestedPath, err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", diag.Fatalf("import", "canonicalisation failed for %q: %s", requestedPath, err)
	}
	return abs, nil
}

// Import returns the cached ImportedPipeline for canonicalPath, parsing it
// from disk on first use. Concurrent imports of the same not-yet-cached path
// collapse into a single read+parse via a singleflight group, so the module
// cache's mutex never has to be held across file I/O or parsing.
func (m *Manager) Import(canonicalPath string) (*ImportedPipeline, error) {
	if cached, ok := m.lookup(canonicalPath); ok {
		return cached, nil
	}

	result, err, _ := m.group.Do(canonicalPath, func() (any, error) {
		if cached, ok := m.lookup(canonicalPath); ok {
			return cached, nil
		}

		src, err := os.ReadFile(canonicalPath)
		if err != nil {
			return nil, diag.Fatalf("import", "unable to read %q: %s", canonicalPath, err)
		}

		program, err := parser.Parse(string(src))
		if err != nil {
			return nil, diag.Fatalf("import", "parse failure in %q: %s", canonicalPath, err)
		}

		pipeline := &ImportedPipeline{ID: ulid.Make(), Path: canonicalPath, Program: program}
		m.mu.Lock()
		m.cache[canonicalPath] = pipeline
		m.mu.Unlock()
		return pipeline, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ImportedPipeline), nil
}

func (m *Manager) lookup(canonicalPath string) (*ImportedPipeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cached, ok := m.cache[canonicalPath]
	return cached, ok
}

// Seed inserts an already-parsed pipeline directly, used by the root
// execution to register the entry script without a redundant re-parse.
func (m *Manager) Seed(pipeline *ImportedPipeline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[pipeline.Path] = pipeline
}
