package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"jacc/internal/source"
)

// structural AST comparisons need to ignore Base (carries a source.Span
// with a *Source back-edge cmp can't usefully diff) and compare by value,
// not pointer identity — go-cmp's default reflect-based diff handles both,
// unlike testify's shallow ObjectsAreEqual.
var astCmpOpts = cmp.Options{
	cmpopts.IgnoreFields(Base{}, "Sp"),
}

func TestMakeStubProducesSyntaxErrorModule(t *testing.T) {
	src := source.New([]byte("x"), "t.jac")
	mod := MakeStub(src)
	if !mod.HasSyntaxErrors || !mod.IsStub {
		t.Fatalf("stub module must latch HasSyntaxErrors and IsStub, got %+v", mod)
	}
}

func TestArchetypeStructuralEquality(t *testing.T) {
	a := &Archetype{Kind: ArchObj, Name: "Point", Body: []Node{
		&ArchHas{Vars: []*HasVar{{Name: "x"}, {Name: "y"}}},
	}}
	b := &Archetype{Kind: ArchObj, Name: "Point", Body: []Node{
		&ArchHas{Vars: []*HasVar{{Name: "x"}, {Name: "y"}}},
	}}
	if diff := cmp.Diff(a, b, astCmpOpts); diff != "" {
		t.Fatalf("expected structurally equal archetypes, got diff:\n%s", diff)
	}
}

func TestArchetypeStructuralInequality(t *testing.T) {
	a := &Archetype{Kind: ArchObj, Name: "Point"}
	b := &Archetype{Kind: ArchNode, Name: "Point"}
	if diff := cmp.Diff(a, b, astCmpOpts); diff == "" {
		t.Fatalf("expected a Kind mismatch to produce a diff")
	}
}
