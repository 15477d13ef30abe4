package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/ast"
	"jacc/internal/source"
)

func parse(t *testing.T, text string) *ast.Module {
	t.Helper()
	src := source.New([]byte(text), "test.jac")
	mod := Parse(src, nil)
	require.NotNil(t, mod)
	return mod
}

func TestParseArchetypeWithHasAndAbility(t *testing.T) {
	mod := parse(t, `
obj Point {
    has x: int = 0, y: int = 0;
    def dist() -> float {
        return x;
    }
}
`)
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 1)
	arch, ok := mod.Body[0].(*ast.Archetype)
	require.True(t, ok)
	assert.Equal(t, "Point", arch.Name)
	assert.Equal(t, ast.ArchObj, arch.Kind)
	require.Len(t, arch.Body, 2)
	has, ok := arch.Body[0].(*ast.ArchHas)
	require.True(t, ok)
	require.Len(t, has.Vars, 2)
	assert.Equal(t, "x", has.Vars[0].Name)
	ability, ok := arch.Body[1].(*ast.Ability)
	require.True(t, ok)
	assert.Equal(t, "dist", ability.Name)
}

func TestParseImplBinding(t *testing.T) {
	mod := parse(t, `
walker Greeter {
    can speak() -> str;
}
impl Greeter.speak() -> str {
    return "hi";
}
`)
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 2)
	_, ok := mod.Body[0].(*ast.Archetype)
	require.True(t, ok)
	impl, ok := mod.Body[1].(*ast.ImplDef)
	require.True(t, ok)
	assert.Equal(t, "Greeter", impl.TargetArch)
	assert.Equal(t, "speak", impl.TargetMember)
}

func TestParseImplMultiMethodBlock(t *testing.T) {
	mod := parse(t, `
obj Foo {
    has x: int = 0;
    def get() -> int;
    def bump();
}
impl Foo {
    def get() -> int {
        return self.x;
    }
    def bump() {
        self.x = self.x + 1;
    }
}
`)
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 3)
	impl0, ok := mod.Body[1].(*ast.ImplDef)
	require.True(t, ok)
	assert.Equal(t, "Foo", impl0.TargetArch)
	assert.Equal(t, "get", impl0.TargetMember)
	assert.False(t, impl0.IsHasImpl)
	impl1, ok := mod.Body[2].(*ast.ImplDef)
	require.True(t, ok)
	assert.Equal(t, "Foo", impl1.TargetArch)
	assert.Equal(t, "bump", impl1.TargetMember)
	assert.False(t, impl1.IsHasImpl)
}

func TestParseImportForms(t *testing.T) {
	mod := parse(t, `
import os;
import from ..pkg { foo as f, bar }
import:js from ./thing { Comp }
`)
	require.False(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 3)
	imp0 := mod.Body[0].(*ast.Import)
	assert.Equal(t, []string{"os"}, imp0.Path.Parts)
	imp1 := mod.Body[1].(*ast.Import)
	require.Len(t, imp1.Items, 2)
	assert.Equal(t, "foo", imp1.Items[0].Name)
	assert.Equal(t, "f", imp1.Items[0].Alias)
	imp2 := mod.Body[2].(*ast.Import)
	assert.Equal(t, "js", imp2.Lang)
}

func TestParseExpressionPrecedence(t *testing.T) {
	mod := parse(t, `def f() { return 1 + 2 * 3; }`)
	require.False(t, mod.HasSyntaxErrors)
	ability := mod.Body[0].(*ast.Ability)
	ret := ability.Body[0].(*ast.ReturnStmt)
	bin := ret.Value.(*ast.BinaryExpr)
	assert.Equal(t, "+", bin.Op)
	rhs := bin.Y.(*ast.BinaryExpr)
	assert.Equal(t, "*", rhs.Op)
}

func TestParseIfElifElse(t *testing.T) {
	mod := parse(t, `
def f() {
    if a { return 1; } elif b { return 2; } else { return 3; }
}
`)
	require.False(t, mod.HasSyntaxErrors)
	ability := mod.Body[0].(*ast.Ability)
	ifs := ability.Body[0].(*ast.IfStmt)
	require.Len(t, ifs.Elifs, 1)
	require.Len(t, ifs.Else, 1)
}

func TestParseForCStyle(t *testing.T) {
	mod := parse(t, `def f() { for i=0 to i<10 by i+=1 { x; } }`)
	require.False(t, mod.HasSyntaxErrors)
	ability := mod.Body[0].(*ast.Ability)
	forStmt := ability.Body[0].(*ast.ForStmt)
	assert.True(t, forStmt.IsCStyle)
}

func TestParseFStringExpression(t *testing.T) {
	mod := parse(t, `def f() { return f"hello {name}!"; }`)
	require.False(t, mod.HasSyntaxErrors)
	ability := mod.Body[0].(*ast.Ability)
	ret := ability.Body[0].(*ast.ReturnStmt)
	fs, ok := ret.Value.(*ast.FString)
	require.True(t, ok)
	require.Len(t, fs.Parts, 3)
	ident, ok := fs.Parts[1].(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "name", ident.Name)
}

func TestParseComprehension(t *testing.T) {
	mod := parse(t, `def f() { return [x for x in y if x]; }`)
	require.False(t, mod.HasSyntaxErrors)
	ability := mod.Body[0].(*ast.Ability)
	ret := ability.Body[0].(*ast.ReturnStmt)
	comp, ok := ret.Value.(*ast.Comprehension)
	require.True(t, ok)
	assert.Equal(t, "list", comp.Kind)
	require.Len(t, comp.Ifs, 1)
}

func TestParseEnum(t *testing.T) {
	mod := parse(t, `enum Color { Red, Green = 2, Blue }`)
	require.False(t, mod.HasSyntaxErrors)
	e := mod.Body[0].(*ast.Enum)
	require.Len(t, e.Members, 3)
	assert.Equal(t, "Green", e.Members[1].Name)
	assert.NotNil(t, e.Members[1].Value)
}

func TestParseMalformedArchRecovers(t *testing.T) {
	mod := parse(t, `
obj Broken {
    @@@
    has y: int;
}
obj Fine { has z: int; }
`)
	assert.True(t, mod.HasSyntaxErrors)
	require.Len(t, mod.Body, 2)
	fine, ok := mod.Body[1].(*ast.Archetype)
	require.True(t, ok)
	assert.Equal(t, "Fine", fine.Name)
}
