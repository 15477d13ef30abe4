package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.UseRDParser)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jac.yaml")
	cfg := DefaultConfig()
	cfg.Compile.TypeCheck = true
	cfg.CacheDir = "/tmp/jac-cache"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Compile.TypeCheck)
	assert.Equal(t, "/tmp/jac-cache", loaded.CacheDir)
}

func TestCompileOptionsEquality(t *testing.T) {
	a := CompileOptions{Minimal: true}
	b := CompileOptions{Minimal: true}
	c := CompileOptions{Minimal: false}
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestScheduleNameSelection(t *testing.T) {
	assert.Equal(t, "symtab-only", CompileOptions{SymtabIROnly: true}.ScheduleName())
	assert.Equal(t, "minimal-ir", CompileOptions{Minimal: true}.ScheduleName())
	assert.Equal(t, "codegen", CompileOptions{}.ScheduleName())
}

func TestJacCacheDirEnvOverride(t *testing.T) {
	old, had := os.LookupEnv("JAC_CACHE_DIR")
	os.Setenv("JAC_CACHE_DIR", "/custom/cache")
	defer func() {
		if had {
			os.Setenv("JAC_CACHE_DIR", old)
		} else {
			os.Unsetenv("JAC_CACHE_DIR")
		}
	}()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/custom/cache", cfg.CacheDir)
}

func TestFindProjectRootWalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ManifestName), []byte("compile: {}\n"), 0644))
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, FindProjectRoot(nested))
}

func TestFindProjectRootFallsBackToStart(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, FindProjectRoot(dir))
}

func TestNoColorEnvPair(t *testing.T) {
	os.Unsetenv("NO_COLOR")
	os.Unsetenv("JAC_NO_COLOR")
	assert.False(t, NoColor())
	os.Setenv("NO_COLOR", "1")
	assert.True(t, NoColor())
	os.Unsetenv("NO_COLOR")
}
