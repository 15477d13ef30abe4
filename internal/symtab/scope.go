// Package symtab builds the nested-scope symbol table of §4.5 over a parsed
// Module and matches that Module's top-level impl blocks to their
// declarations. Sibling `.impl.jac` files are not read or matched;
// SiblingImplPath only computes the conventional path of one.
package symtab

import (
	"path/filepath"
	"strconv"
	"strings"

	"jacc/internal/ast"
	"jacc/internal/diag"
	"jacc/internal/logging"
)

// Kind is the kind of entity a Scope represents.
type Kind int

const (
	ScopeModule Kind = iota
	ScopeClass
	ScopeFunc
	ScopeBlock
	ScopeImpl
)

func (k Kind) String() string {
	switch k {
	case ScopeClass:
		return "class"
	case ScopeFunc:
		return "func"
	case ScopeBlock:
		return "block"
	case ScopeImpl:
		return "impl"
	default:
		return "module"
	}
}

// SymbolKind is the kind of a declared symbol.
type SymbolKind int

const (
	SymArchetype SymbolKind = iota
	SymAbility
	SymHasVar
	SymEnum
	SymGlobal
	SymParam
	SymLocal
)

func (k SymbolKind) Tag() string {
	switch k {
	case SymArchetype:
		return "archetype"
	case SymAbility:
		return "ability"
	case SymEnum:
		return "enum"
	case SymGlobal:
		return "global"
	case SymParam:
		return "param"
	case SymLocal:
		return "local"
	default:
		return "hasvar"
	}
}

// ScopeID is a non-owning index into a Table's scope slice — back-edges
// (symbol -> declaring node, scope -> parent) are carried as indices, never
// pointers, so scopes stay a pure owning forest (§9 Design Notes).
type ScopeID int

// Symbol is one declared name within a Scope.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Node  ast.Node
	Scope ScopeID
}

// Scope is one node of the nested-scope tree.
type Scope struct {
	ID      ScopeID
	Kind    Kind
	Name    string
	Parent  ScopeID // -1 for the root module scope
	Symbols map[string]*Symbol
	Order   []string // declaration order, first-declaration-wins for collisions
}

// ImplRecord binds a top-level ImplDef to the archetype/member it
// implements, once match-decl-impl has run.
type ImplRecord struct {
	Impl       *ast.ImplDef
	ArchScope  ScopeID
	Matched    bool
}

// Table is the full symbol table for one Module; impl blocks from other
// files are not folded in.
type Table struct {
	Module *ast.Module
	Scopes []*Scope
	Impls  []*ImplRecord

	engine *Engine
	log    *logging.Logger
}

// Build constructs a Table by walking mod's top-level declarations and
// nested archetype/ability bodies into scopes, emitting decl/scope_parent
// facts as it goes.
func Build(mod *ast.Module, log *logging.Logger) (*Table, []diag.Alert) {
	t := &Table{Module: mod, log: log}
	var alerts []diag.Alert

	eng, err := NewEngine()
	if err != nil {
		alerts = append(alerts, diag.New(diag.InternalError, mod.Sp, "symtab: %v", err))
		return t, alerts
	}
	t.engine = eng

	root := t.newScope(ScopeModule, mod.Path, -1)
	var facts []Fact

	for _, item := range mod.Body {
		switch n := item.(type) {
		case *ast.Archetype:
			t.declare(root, n.Name, SymArchetype, n)
			facts = append(facts, Fact{"decl", []interface{}{mod.Path, n.Name, "archetype"}})
			archScope := t.newScope(ScopeClass, n.Name, root)
			facts = append(facts, Fact{"scope_parent", []interface{}{int(archScope), int(root)}})
			for _, m := range n.Body {
				switch mem := m.(type) {
				case *ast.ArchHas:
					for _, v := range mem.Vars {
						t.declare(archScope, v.Name, SymHasVar, v)
						facts = append(facts, Fact{"decl", []interface{}{n.Name, v.Name, "hasvar"}})
					}
				case *ast.Ability:
					if mem.Name != "" {
						t.declare(archScope, mem.Name, SymAbility, mem)
						facts = append(facts, Fact{"decl", []interface{}{n.Name, mem.Name, "ability"}})
					}
				}
			}
		case *ast.Enum:
			t.declare(root, n.Name, SymEnum, n)
			facts = append(facts, Fact{"decl", []interface{}{mod.Path, n.Name, "enum"}})
		case *ast.GlobalVars:
			for _, v := range n.Vars {
				t.declare(root, v.Name, SymGlobal, v)
				facts = append(facts, Fact{"decl", []interface{}{mod.Path, v.Name, "global"}})
			}
		case *ast.ImplDef:
			t.Impls = append(t.Impls, &ImplRecord{Impl: n})
			facts = append(facts, Fact{"impl_target", []interface{}{"impl" + strconv.Itoa(len(t.Impls)), n.TargetArch, implMemberTag(n)}})
		}
	}

	if err := t.engine.AddFacts(facts); err != nil {
		alerts = append(alerts, diag.New(diag.InternalError, mod.Sp, "symtab: fact insertion failed: %v", err))
	}

	alerts = append(alerts, t.matchImpls(mod)...)
	return t, alerts
}

func implMemberTag(impl *ast.ImplDef) string {
	if impl.IsHasImpl {
		return "__has__"
	}
	return impl.TargetMember
}

func (t *Table) newScope(kind Kind, name string, parent ScopeID) ScopeID {
	id := ScopeID(len(t.Scopes))
	t.Scopes = append(t.Scopes, &Scope{
		ID:      id,
		Kind:    kind,
		Name:    name,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
	})
	return id
}

// declare registers a symbol, preserving first-declaration-wins: a repeated
// name in the same scope is kept as the first Symbol and never overwritten.
func (t *Table) declare(scope ScopeID, name string, kind SymbolKind, n ast.Node) {
	s := t.Scopes[scope]
	if _, exists := s.Symbols[name]; exists {
		return
	}
	s.Symbols[name] = &Symbol{Name: name, Kind: kind, Node: n, Scope: scope}
	s.Order = append(s.Order, name)
}

// Lookup walks from scope up through its ancestors for name.
func (t *Table) Lookup(scope ScopeID, name string) (*Symbol, bool) {
	for id := scope; id >= 0; {
		s := t.Scopes[id]
		if sym, ok := s.Symbols[name]; ok {
			return sym, true
		}
		if s.Parent < 0 {
			break
		}
		id = s.Parent
	}
	return nil, false
}

// matchImpls evaluates unmatched_impl over the fact store and emits
// UnmatchedImpl diagnostics for every impl block lacking a declaration.
func (t *Table) matchImpls(mod *ast.Module) []diag.Alert {
	var alerts []diag.Alert
	rows, err := t.engine.GetFacts("unmatched_impl")
	if err != nil {
		alerts = append(alerts, diag.New(diag.InternalError, mod.Sp, "symtab: match-impl query failed: %v", err))
		return alerts
	}
	unmatched := make(map[string]bool, len(rows))
	for _, r := range rows {
		if implID, ok := r.Args[0].(string); ok {
			unmatched[implID] = true
		}
	}
	for i, rec := range t.Impls {
		implID := "impl" + strconv.Itoa(i+1)
		if unmatched[implID] {
			rec.Matched = false
			alerts = append(alerts, diag.New(diag.UnmatchedImpl, rec.Impl.Sp,
				"impl %s.%s has no matching declaration", rec.Impl.TargetArch, rec.Impl.TargetMember).
				WithHint("declare a forward signature inside the archetype body, or check for a typo"))
		} else {
			rec.Matched = true
		}
	}
	return alerts
}

// SiblingImplPath returns the conventional sibling impl-file path for a
// Jac source file, e.g. "foo.jac" -> "foo.impl.jac". It computes the path
// only; it does not check that the file exists, and nothing in this package
// reads it.
func SiblingImplPath(jacPath string) string {
	dir := filepath.Dir(jacPath)
	base := filepath.Base(jacPath)
	base = strings.TrimSuffix(base, ".jac")
	return filepath.Join(dir, base+".impl.jac")
}
