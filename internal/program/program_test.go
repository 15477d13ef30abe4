package program

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/cache"
	"jacc/internal/config"
)

func TestCompileFileRegistersModule(t *testing.T) {
	p := New(nil, nil)
	mod, err := p.CompileFile("a.jac", []byte(`
obj Point {
    has x: int;
}
`))
	require.NoError(t, err)
	assert.False(t, mod.HasSyntaxErrors)

	got, ok := p.Module("a.jac")
	require.True(t, ok)
	assert.Same(t, mod, got)
}

func TestCompileFileSurfacesUnmatchedImplDiagnostic(t *testing.T) {
	p := New(nil, nil)
	_, err := p.CompileFile("b.jac", []byte(`
walker Greeter {
    can speak() -> str;
}
impl Greeter.shout() -> str {
    return "hi";
}
`))
	require.NoError(t, err)
	require.Len(t, p.Errors, 1)
}

func TestCompileFilesRunsInParallel(t *testing.T) {
	p := New(nil, nil)
	files := map[string][]byte{
		"x.jac": []byte(`obj X { has a: int; }`),
		"y.jac": []byte(`obj Y { has b: int; }`),
	}
	require.NoError(t, p.CompileFiles(context.Background(), files))
	_, okX := p.Module("x.jac")
	_, okY := p.Module("y.jac")
	assert.True(t, okX)
	assert.True(t, okY)
}

func TestGetBytecodeUsesCacheThenCompiles(t *testing.T) {
	c := cache.New(t.TempDir(), "v1", nil)
	p := New(c, nil)
	_, err := p.CompileFile("z.jac", []byte(`
def greet() -> str {
    return "hi";
}
`))
	require.NoError(t, err)

	bc, err := p.GetBytecode("z.jac", config.CompileOptions{}, 1)
	require.NoError(t, err)
	assert.Contains(t, string(bc), "func Greet")

	bc2, err := p.GetBytecode("z.jac", config.CompileOptions{}, 1)
	require.NoError(t, err)
	assert.Equal(t, bc, bc2)
}

func TestClearTypeSystemResetsTables(t *testing.T) {
	p := New(nil, nil)
	_, err := p.CompileFile("w.jac", []byte(`obj W { has v: int; }`))
	require.NoError(t, err)
	p.ClearTypeSystem(false)
	_, stillThere := p.Module("w.jac")
	assert.True(t, stillThere)

	p.ClearTypeSystem(true)
	_, gone := p.Module("w.jac")
	assert.False(t, gone)
}
