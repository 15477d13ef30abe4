package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/config"
)

func TestIndexRebuildEnumeratesDiskEntries(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", nil)
	opts := config.CompileOptions{}
	require.NoError(t, c.Put("/proj/a.jac", Artifact{Bytecode: []byte("A"), SourceModTime: 10, Options: opts}))
	require.NoError(t, c.Put("/proj/b.jac", Artifact{Bytecode: []byte("B"), SourceModTime: 20, Options: opts}))

	ix, err := OpenIndex(filepath.Join(dir, "index.sqlite"))
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Rebuild(dir))
	rows, err := ix.List()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestIndexRebuildIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", nil)
	opts := config.CompileOptions{}
	require.NoError(t, c.Put("/proj/a.jac", Artifact{Bytecode: []byte("A"), SourceModTime: 10, Options: opts}))

	ix, err := OpenIndex(filepath.Join(dir, "index.sqlite"))
	require.NoError(t, err)
	defer ix.Close()

	require.NoError(t, ix.Rebuild(dir))
	require.NoError(t, ix.Rebuild(dir))
	rows, err := ix.List()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
