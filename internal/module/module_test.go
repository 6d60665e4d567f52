package module_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titpetric/piped/internal/module"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.piped", `@print "hi";`)

	m := module.NewManager()
	canonical, err := module.Canonicalize(dir, path)
	require.NoError(t, err)

	first, err := m.Import(canonical)
	require.NoError(t, err)
	require.Len(t, first.Program, 1)

	second, err := m.Import(canonical)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestImportMissingFileIsFatal(t *testing.T) {
	m := module.NewManager()
	_, err := m.Import(filepath.Join(t.TempDir(), "nope.piped"))
	assert.Error(t, err)
}

func TestImportParseFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "bad.piped", `@unknownkeyword;`)

	m := module.NewManager()
	canonical, err := module.Canonicalize(dir, path)
	require.NoError(t, err)

	_, err = m.Import(canonical)
	assert.Error(t, err)
}

func TestConcurrentImportsOfSamePathCollapse(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.piped", `@print "hi";`)

	m := module.NewManager()
	canonical, err := module.Canonicalize(dir, path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*module.ImportedPipeline, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.Import(canonical)
			require.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}
