package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/config"
)

func TestPutThenGetMemoryHit(t *testing.T) {
	c := New(t.TempDir(), "v1", nil)
	opts := config.CompileOptions{}
	require.NoError(t, c.Put("/proj/foo.jac", Artifact{Bytecode: []byte("BC"), SourceModTime: 100, Options: opts}))

	a, ok := c.Get("/proj/foo.jac", opts, 100)
	require.True(t, ok)
	assert.Equal(t, []byte("BC"), a.Bytecode)
}

func TestGetMissesOnStaleSource(t *testing.T) {
	c := New(t.TempDir(), "v1", nil)
	opts := config.CompileOptions{}
	require.NoError(t, c.Put("/proj/foo.jac", Artifact{Bytecode: []byte("BC"), SourceModTime: 100, Options: opts}))

	_, ok := c.Get("/proj/foo.jac", opts, 200)
	assert.False(t, ok)
}

func TestGetReadsFromDiskAfterReopening(t *testing.T) {
	dir := t.TempDir()
	opts := config.CompileOptions{TypeCheck: true}
	c1 := New(dir, "v1", nil)
	require.NoError(t, c1.Put("/proj/bar.jac", Artifact{Bytecode: []byte("DISK"), SourceModTime: 50, Options: opts}))

	c2 := New(dir, "v1", nil)
	a, ok := c2.Get("/proj/bar.jac", opts, 50)
	require.True(t, ok)
	assert.Equal(t, []byte("DISK"), a.Bytecode)
}

func TestLangVersionMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	opts := config.CompileOptions{}
	c1 := New(dir, "v1", nil)
	require.NoError(t, c1.Put("/proj/baz.jac", Artifact{Bytecode: []byte("X"), SourceModTime: 10, Options: opts}))

	c2 := New(dir, "v2", nil)
	_, ok := c2.Get("/proj/baz.jac", opts, 10)
	assert.False(t, ok)
}

func TestInvalidateDropsMemoryEntry(t *testing.T) {
	c := New("", "v1", nil) // no disk tier, so invalidate leaves a clean miss
	opts := config.CompileOptions{}
	require.NoError(t, c.Put("/proj/qux.jac", Artifact{Bytecode: []byte("Y"), SourceModTime: 1, Options: opts}))
	c.Invalidate("/proj/qux.jac")

	_, ok := c.Get("/proj/qux.jac", opts, 1)
	assert.False(t, ok)
}

func TestEntryFilenameIsStableForSameInput(t *testing.T) {
	opts := config.CompileOptions{Minimal: true}
	a := entryFilename("/proj/thing.jac", opts)
	b := entryFilename("/proj/thing.jac", opts)
	assert.Equal(t, a, b)
	assert.Equal(t, filepath.Ext(a), ".jbc")
}
