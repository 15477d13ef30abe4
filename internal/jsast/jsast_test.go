package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/ast"
)

func TestTransformFunctionDeclaration(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`function greet(name) { return name; }`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	ability, ok := mod.Body[0].(*ast.Ability)
	require.True(t, ok)
	assert.Equal(t, "greet", ability.Name)
	require.Len(t, ability.Signature.Params, 1)
	assert.Equal(t, "name", ability.Signature.Params[0].Name)
}

func TestTransformClassDeclarationLowersToArchObj(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`class Point { x = 0; move() { return 1; } }`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	arch, ok := mod.Body[0].(*ast.Archetype)
	require.True(t, ok)
	assert.Equal(t, ast.ArchObj, arch.Kind)
	assert.Equal(t, "Point", arch.Name)
}

func TestTransformInterfaceDeclaration(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`interface Shape { area(): number; }`), "a.ts")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	arch, ok := mod.Body[0].(*ast.Archetype)
	require.True(t, ok)
	assert.Equal(t, "Shape", arch.Name)
	require.Len(t, arch.Body, 1)
	ability, ok := arch.Body[0].(*ast.Ability)
	require.True(t, ok)
	assert.True(t, ability.DeclOnly)
}

func TestTransformEnumDeclaration(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`enum Color { Red, Green, Blue }`), "a.ts")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	enum, ok := mod.Body[0].(*ast.Enum)
	require.True(t, ok)
	assert.Equal(t, "Color", enum.Name)
	assert.Len(t, enum.Members, 3)
}

func TestTransformConstVariableDeclaration(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`const x = 1;`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	gv, ok := mod.Body[0].(*ast.GlobalVars)
	require.True(t, ok)
	require.Len(t, gv.Vars, 1)
	assert.Contains(t, gv.Vars[0].Name, "x")
}

func TestTransformImportStatement(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`import { foo, bar as baz } from "./utils";`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	imp, ok := mod.Body[0].(*ast.Import)
	require.True(t, ok)
	require.NotNil(t, imp.Path)
	assert.Equal(t, "./utils", imp.Path.Raw)
	require.Len(t, imp.Items, 2)
	assert.Equal(t, "foo", imp.Items[0].Name)
	assert.Equal(t, "bar", imp.Items[1].Name)
	assert.Equal(t, "baz", imp.Items[1].Alias)
}

func TestTransformImportSingleLevelParentDotCount(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`import { foo } from "../foo";`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	imp, ok := mod.Body[0].(*ast.Import)
	require.True(t, ok)
	require.NotNil(t, imp.Path)
	assert.Equal(t, 1, imp.Path.DotCount, "a single \"../\" walks up exactly one directory")
}

func TestTransformImportTwoLevelParentDotCount(t *testing.T) {
	tr := New(nil)
	mod := tr.Transform([]byte(`import { foo } from "../../foo";`), "a.js")
	require.False(t, mod.HasSyntaxErrors)
	imp := mod.Body[0].(*ast.Import)
	assert.Equal(t, 2, imp.Path.DotCount)
}
