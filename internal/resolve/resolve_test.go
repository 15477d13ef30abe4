package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/ast"
)

func TestResolveSamePackage(t *testing.T) {
	r := New(nil)
	r.Exists = func(path string) bool { return path == "/proj/pkg/foo.jac" }
	imp := &ast.Import{Path: &ast.ModulePath{DotCount: 1, Parts: []string{"foo"}}}
	res := r.Resolve(imp, "/proj/pkg")
	require.True(t, res.Found)
	assert.Equal(t, "/proj/pkg/foo.jac", res.AbsPath)
	assert.Equal(t, LangJac, res.Language)
}

func TestResolveParentPackage(t *testing.T) {
	r := New(nil)
	r.Exists = func(path string) bool { return path == "/proj/foo.jac" }
	imp := &ast.Import{Path: &ast.ModulePath{DotCount: 2, Parts: []string{"foo"}}}
	res := r.Resolve(imp, "/proj/pkg")
	require.True(t, res.Found)
	assert.Equal(t, "/proj/foo.jac", res.AbsPath)
}

func TestResolveJSImport(t *testing.T) {
	r := New(nil)
	r.Exists = func(path string) bool { return path == "/proj/ui/comp.tsx" }
	imp := &ast.Import{Lang: "ts", Path: &ast.ModulePath{DotCount: 1, Parts: []string{"comp"}}}
	res := r.Resolve(imp, "/proj/ui")
	require.True(t, res.Found)
	assert.Equal(t, LangTypeScript, res.Language)
}

func TestResolveNotFound(t *testing.T) {
	r := New(nil)
	r.Exists = func(path string) bool { return false }
	imp := &ast.Import{Path: &ast.ModulePath{DotCount: 1, Parts: []string{"missing"}}}
	res := r.Resolve(imp, "/proj")
	assert.False(t, res.Found)
}

func TestToJSImportPath(t *testing.T) {
	got := ToJSImportPath("/proj/ui", "/proj/ui/widgets/button.tsx")
	assert.Equal(t, "./widgets/button", got)
}
