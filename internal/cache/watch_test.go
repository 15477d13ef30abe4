package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/config"
)

func TestWatchInvalidatesOnFileChange(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "v1", nil)
	opts := config.CompileOptions{}
	target := filepath.Join(dir, "watched.jac")
	require.NoError(t, os.WriteFile(target, []byte("obj X {}"), 0644))
	require.NoError(t, c.Put(target, Artifact{Bytecode: []byte("BC"), SourceModTime: 1, Options: opts}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx, dir))

	require.NoError(t, os.WriteFile(target, []byte("obj X { has y: int; }"), 0644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.RLock()
		_, stillMem := c.mem[target+"|"+key(target, opts)]
		c.mu.RUnlock()
		if !stillMem {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	c.mu.RLock()
	_, stillMem := c.mem[target+"|"+key(target, opts)]
	c.mu.RUnlock()
	assert.False(t, stillMem, "expected watcher to invalidate the memory tier after a file write")
}
