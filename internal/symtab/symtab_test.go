package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/parser"
	"jacc/internal/source"
)

func buildTable(t *testing.T, text string) (*Table, []string) {
	t.Helper()
	src := source.New([]byte(text), "test.jac")
	mod := parser.Parse(src, nil)
	require.False(t, mod.HasSyntaxErrors)
	table, alerts := Build(mod, nil)
	msgs := make([]string, len(alerts))
	for i, a := range alerts {
		msgs[i] = a.Message
	}
	return table, msgs
}

func TestDeclAndLookup(t *testing.T) {
	table, alerts := buildTable(t, `
obj Point {
    has x: int;
    def dist() -> float;
}
`)
	assert.Empty(t, alerts)
	root := ScopeID(0)
	sym, ok := table.Lookup(root, "Point")
	require.True(t, ok)
	assert.Equal(t, SymArchetype, sym.Kind)
}

func TestMatchedImplProducesNoDiagnostic(t *testing.T) {
	_, alerts := buildTable(t, `
walker Greeter {
    can speak() -> str;
}
impl Greeter.speak() -> str {
    return "hi";
}
`)
	assert.Empty(t, alerts)
}

func TestUnmatchedImplProducesDiagnostic(t *testing.T) {
	_, alerts := buildTable(t, `
walker Greeter {
    can speak() -> str;
}
impl Greeter.shout() -> str {
    return "HI";
}
`)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "shout")
}

func TestSiblingImplPath(t *testing.T) {
	assert.Equal(t, "pkg/foo.impl.jac", SiblingImplPath("pkg/foo.jac"))
}
