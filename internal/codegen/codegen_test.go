package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/parser"
	"jacc/internal/source"
	"jacc/internal/symtab"
)

func generate(t *testing.T, text string) string {
	t.Helper()
	src := source.New([]byte(text), "test.jac")
	mod := parser.Parse(src, nil)
	require.False(t, mod.HasSyntaxErrors)
	table, alerts := symtab.Build(mod, nil)
	require.Empty(t, alerts)
	g := New(Options{PackageName: "genpkg"}, nil)
	out, err := g.Generate(mod, table)
	require.NoError(t, err)
	return out
}

func TestGenerateArchetypeStruct(t *testing.T) {
	out := generate(t, `
obj Point {
    has x: int, y: int;
}
`)
	assert.Contains(t, out, "type Point struct")
	assert.Contains(t, out, "X int")
	assert.Contains(t, out, "Y int")
}

func TestGenerateAbilityMethod(t *testing.T) {
	out := generate(t, `
walker Greeter {
    can speak() -> str {
        return "hi";
    }
}
`)
	assert.Contains(t, out, "func (self *Greeter) Speak() string")
	assert.Contains(t, out, `return "hi"`)
}

func TestGenerateSplicesMatchedImpl(t *testing.T) {
	out := generate(t, `
walker Greeter {
    can speak() -> str;
}
impl Greeter.speak() -> str {
    return "hi from impl";
}
`)
	assert.Contains(t, out, "hi from impl")
}

func TestGenerateFStringLowersToSprintf(t *testing.T) {
	out := generate(t, `
def greet(name: str) -> str {
    return f"hello {name}";
}
`)
	assert.Contains(t, out, "fmt.Sprintf")
	assert.True(t, strings.Contains(out, `"fmt"`))
}

func TestGenerateMutableDefaultFactory(t *testing.T) {
	out := generate(t, `
obj Bag {
    has items: list = [];
}
`)
	assert.Contains(t, out, "func NewBag()")
}

func TestGenerateIfWhileFor(t *testing.T) {
	out := generate(t, `
def run() -> int {
    x = 0;
    if x > 0 {
        x = 1;
    } elif x < 0 {
        x = -1;
    } else {
        x = 2;
    }
    while x < 10 {
        x = x + 1;
    }
    for i = 0 to i < 3 by i += 1 {
        x = x + i;
    }
    return x;
}
`)
	assert.Contains(t, out, "if x > 0 {")
	assert.Contains(t, out, "} else if x < 0 {")
	assert.Contains(t, out, "for x < 10 {")
	assert.Contains(t, out, "for i = 0;")
}
