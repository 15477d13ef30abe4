// Datalog fact plumbing for the symbol table, adapted from the production
// Mangle engine wrapper in the teacher's internal/mangle/engine.go: a fixed
// schema of three base predicates (decl, impl_target, scope_parent) plus two
// derived rules (unmatched_impl, duplicate_definition) that the
// match-decl-impl and semantic-analysis passes of §4.5 evaluate instead of
// hand-rolled graph walks.
package symtab

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
)

// schema is the fixed Datalog program the symbol table evaluates.
//
//	decl(ScopeID, Name, Kind)          — a symbol Kind named Name declared in ScopeID
//	impl_target(ImplID, ArchName, Member) — a top-level `impl Arch.Member` block
//	scope_parent(Child, Parent)         — scope-tree edge
//	unmatched_impl/3                    — an impl with no matching declaration
//	duplicate_definition/2               — two different-kind decls sharing a name
const schema = `
decl(ScopeID, Name, Kind) :- decl(ScopeID, Name, Kind).
impl_target(ImplID, ArchName, Member) :- impl_target(ImplID, ArchName, Member).
scope_parent(Child, Parent) :- scope_parent(Child, Parent).

unmatched_impl(ImplID, ArchName, Member) :-
  impl_target(ImplID, ArchName, Member),
  !decl(ArchName, Member, "ability").

duplicate_definition(ScopeID, Name) :-
  decl(ScopeID, Name, K1),
  decl(ScopeID, Name, K2),
  K1 != K2.
`

// Fact mirrors the teacher's Fact shape: a predicate name plus positional
// args.
type Fact struct {
	Predicate string
	Args      []interface{}
}

func (f Fact) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		switch v := a.(type) {
		case string:
			parts[i] = fmt.Sprintf("%q", v)
		default:
			parts[i] = fmt.Sprintf("%v", v)
		}
	}
	out := f.Predicate + "("
	for i, a := range parts {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out + ")."
}

// Engine is a small, symtab-scoped Mangle wrapper: one fixed schema, an
// in-memory concurrent store, evaluated eagerly after each batch of facts.
type Engine struct {
	mu             sync.RWMutex
	store          factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
}

// NewEngine parses and analyzes the fixed schema and returns a ready Engine.
func NewEngine() (*Engine, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return nil, fmt.Errorf("symtab: parse schema: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: unit.Clauses, Decls: unit.Decls}, nil)
	if err != nil {
		return nil, fmt.Errorf("symtab: analyze schema: %w", err)
	}
	e := &Engine{
		store:          factstore.NewSimpleInMemoryStore(),
		programInfo:    info,
		predicateIndex: make(map[string]ast.PredicateSym, len(info.Decls)),
	}
	for sym := range info.Decls {
		e.predicateIndex[sym.Symbol] = sym
	}
	return e, nil
}

func (e *Engine) atomFor(f Fact) (ast.Atom, error) {
	sym, ok := e.predicateIndex[f.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("symtab: predicate %s not declared in schema", f.Predicate)
	}
	if len(f.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("symtab: predicate %s expects %d args, got %d", f.Predicate, sym.Arity, len(f.Args))
	}
	args := make([]ast.BaseTerm, len(f.Args))
	for i, raw := range f.Args {
		switch v := raw.(type) {
		case string:
			args[i] = ast.String(v)
		case int:
			args[i] = ast.Number(int64(v))
		default:
			return ast.Atom{}, fmt.Errorf("symtab: unsupported fact arg type %T", v)
		}
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// AddFacts inserts facts into the store and re-evaluates the program.
func (e *Engine) AddFacts(facts []Fact) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range facts {
		atom, err := e.atomFor(f)
		if err != nil {
			return err
		}
		e.store.Add(atom)
	}
	_, err := mengine.EvalProgramWithStats(e.programInfo, e.store)
	return err
}

// GetFacts returns every stored-or-derived fact for a predicate.
func (e *Engine) GetFacts(predicate string) ([]Fact, error) {
	e.mu.RLock()
	sym, ok := e.predicateIndex[predicate]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("symtab: predicate %s not declared", predicate)
	}

	var out []Fact
	err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]interface{}, len(atom.Args))
		for i, t := range atom.Args {
			args[i] = termValue(t)
		}
		out = append(out, Fact{Predicate: predicate, Args: args})
		return nil
	})
	return out, err
}

func termValue(t ast.BaseTerm) interface{} {
	if c, ok := t.(ast.Constant); ok {
		switch c.Type {
		case ast.StringType, ast.NameType:
			return c.Symbol
		case ast.NumberType:
			return int(c.NumValue)
		}
	}
	return fmt.Sprintf("%v", t)
}
