// Package ast defines the unified AST produced by the recursive-descent
// parser (§4.3) and consumed by every later pass. Nodes are tagged variants
// behind the Node interface; cross references between nodes (symbol to
// declaring node, scope to parent) are carried as NodeID indices rather than
// pointers, so the tree itself stays a pure owning DAG.
package ast

import "jacc/internal/source"

// NodeID is a non-owning back-reference to a node registered in a Module's
// node table. Zero is the nil ID.
type NodeID int

// Node is implemented by every AST variant.
type Node interface {
	Span() source.Span
	nodeTag() string
}

type Base struct {
	Sp source.Span
}

func (b Base) Span() source.Span { return b.Sp }

// Module is the root of one compiled file.
type Module struct {
	Base
	Name            string
	Path            string
	Context         source.CodeContext
	Body            []Node // top-level ModuleItem/Import/Archetype/Ability/ImplDef/GlobalVars
	HasSyntaxErrors bool   // latch: set once on first parse error, never cleared
	IsStub          bool   // true if this Module is a stub produced on unrecoverable parse failure
}

func (*Module) nodeTag() string { return "Module" }

// MakeStub builds a minimal stub Module for a source that failed to parse
// far enough to produce a real tree. The stub still carries a Span so later
// stages can report diagnostics against it.
func MakeStub(src *source.Source) *Module {
	sp := source.NewSpan(src, 0, len(src.Bytes))
	return &Module{
		Base:            Base{Sp: sp},
		Name:            src.Path,
		Path:            src.Path,
		Context:         src.Context,
		HasSyntaxErrors: true,
		IsStub:          true,
	}
}

// ModulePath is a dotted/relative import path, e.g. "..foo.bar".
type ModulePath struct {
	Base
	DotCount int      // leading dots (relative-import depth)
	Parts    []string // dotted segments after the leading dots
	Raw      string    // original textual form, for non-Jac (JS/TS) targets
}

func (*ModulePath) nodeTag() string { return "ModulePath" }

// ImportItem is one imported name, optionally aliased.
type ImportItem struct {
	Base
	Name  string
	Alias string // "" if unaliased
}

func (*ImportItem) nodeTag() string { return "ImportItem" }

// Import is a top-level `import`/`include` statement.
type Import struct {
	Base
	IsInclude bool
	Lang      string // detected foreign-language tag, "" for native .jac
	Path      *ModulePath
	Items     []*ImportItem // empty for a whole-module import
	Alias     string        // module-level alias, "" if none
}

func (*Import) nodeTag() string { return "Import" }

// ArchKind distinguishes the four archetype flavors.
type ArchKind int

const (
	ArchObj ArchKind = iota
	ArchNode
	ArchEdge
	ArchWalker
)

func (k ArchKind) String() string {
	switch k {
	case ArchNode:
		return "node"
	case ArchEdge:
		return "edge"
	case ArchWalker:
		return "walker"
	default:
		return "obj"
	}
}

// HasVar is one variable declared by a `has` statement.
type HasVar struct {
	Base
	Name        string
	TypeExpr    Node // may be nil if untyped
	Default     Node // may be nil
	HasMutableDefault bool // default is a literal list/dict/set that must be wrapped in a factory
}

func (*HasVar) nodeTag() string { return "HasVar" }

// ArchHas is a `has x: T = v, y: U;` statement inside an archetype body.
type ArchHas struct {
	Base
	Vars []*HasVar
}

func (*ArchHas) nodeTag() string { return "ArchHas" }

// Archetype is an obj/node/edge/walker declaration.
type Archetype struct {
	Base
	Kind    ArchKind
	Name    string
	Bases   []string // inherited archetype names
	Body    []Node   // ArchHas / Ability / nested declarations
	IsAbstract bool
}

func (*Archetype) nodeTag() string { return "Archetype" }

// EnumMember is one `name[ = value]` entry.
type EnumMember struct {
	Base
	Name  string
	Value Node // nil if unspecified
}

func (*EnumMember) nodeTag() string { return "EnumMember" }

// Enum is an `enum` declaration.
type Enum struct {
	Base
	Name    string
	Members []*EnumMember
}

func (*Enum) nodeTag() string { return "Enum" }

// ParamVar is one ability/function parameter.
type ParamVar struct {
	Base
	Name     string
	TypeExpr Node
	Default  Node // nil if required
	IsStar   bool // *args
	IsStarStar bool // **kwargs
}

func (*ParamVar) nodeTag() string { return "ParamVar" }

// FuncSignature is the `(params) -> ReturnType` portion of an ability.
type FuncSignature struct {
	Base
	Params     []*ParamVar
	ReturnType Node // nil if unspecified
}

func (*FuncSignature) nodeTag() string { return "FuncSignature" }

// EventKind distinguishes walker entry/exit abilities bound to an
// archetype-type filter from plain def/can methods.
type EventKind int

const (
	EventNone EventKind = iota
	EventEntry
	EventExit
)

// Ability is a `def`/`can` method, optionally a walker entry/exit handler.
type Ability struct {
	Base
	Name      string // "" for anonymous entry/exit handlers
	Signature *FuncSignature
	Body      []Node // nil for abstract/forward declarations awaiting an impl
	Event     EventKind
	EventFilter string // archetype-name filter for `can X with Y entry`, "" if unfiltered
	IsStatic  bool
	IsAbstract bool
	DeclOnly  bool // true when declared inside an archetype body without a body (impl provided elsewhere)
}

func (*Ability) nodeTag() string { return "Ability" }

// ImplDef is a top-level `impl Target.member { ... }` block, bound to its
// declaration later by the symbol table (§4.5) rather than at parse time.
type ImplDef struct {
	Base
	TargetArch   string
	TargetMember string // "" when implementing an archetype's has-block itself
	Signature    *FuncSignature // nil when implementing a has-block
	Body         []Node
	IsHasImpl    bool
}

func (*ImplDef) nodeTag() string { return "ImplDef" }

// GlobalVars is a top-level `global` declaration list.
type GlobalVars struct {
	Base
	Vars []*HasVar
}

func (*GlobalVars) nodeTag() string { return "GlobalVars" }

// ---- Statements ----

type ExprStmt struct {
	Base
	X Node
}

func (*ExprStmt) nodeTag() string { return "ExprStmt" }

type AssignStmt struct {
	Base
	Targets []Node
	Op      string // "=", "+=", "-=", ...
	Value   Node
}

func (*AssignStmt) nodeTag() string { return "AssignStmt" }

type IfStmt struct {
	Base
	Cond Node
	Then []Node
	Elifs []*ElifClause
	Else []Node
}

func (*IfStmt) nodeTag() string { return "IfStmt" }

type ElifClause struct {
	Base
	Cond Node
	Body []Node
}

func (*ElifClause) nodeTag() string { return "ElifClause" }

type WhileStmt struct {
	Base
	Cond Node
	Body []Node
}

func (*WhileStmt) nodeTag() string { return "WhileStmt" }

// ForStmt covers both `for x in y` and the Jac-specific `for i=0 to i<n by i+=1`.
type ForStmt struct {
	Base
	IsCStyle bool
	// `for x in y` form
	Target Node
	Iter   Node
	// `for i=0 to cond by step` form
	Init Node
	Cond Node
	Step Node
	Body []Node
}

func (*ForStmt) nodeTag() string { return "ForStmt" }

type ReturnStmt struct {
	Base
	Value Node // nil for bare return
}

func (*ReturnStmt) nodeTag() string { return "ReturnStmt" }

type YieldStmt struct {
	Base
	Value Node
}

func (*YieldStmt) nodeTag() string { return "YieldStmt" }

type BreakStmt struct{ Base }

func (*BreakStmt) nodeTag() string { return "BreakStmt" }

type ContinueStmt struct{ Base }

func (*ContinueStmt) nodeTag() string { return "ContinueStmt" }

type SkipStmt struct{ Base }

func (*SkipStmt) nodeTag() string { return "SkipStmt" }

type DeleteStmt struct {
	Base
	Targets []Node
}

func (*DeleteStmt) nodeTag() string { return "DeleteStmt" }

type AssertStmt struct {
	Base
	Cond Node
	Msg  Node // nil if absent
}

func (*AssertStmt) nodeTag() string { return "AssertStmt" }

type RaiseStmt struct {
	Base
	Exc  Node // nil for bare re-raise
	From Node // nil if no `from`
}

func (*RaiseStmt) nodeTag() string { return "RaiseStmt" }

type ExceptClause struct {
	Base
	ExcType Node // nil for bare except
	Name    string
	Body    []Node
}

func (*ExceptClause) nodeTag() string { return "ExceptClause" }

type TryStmt struct {
	Base
	Body    []Node
	Excepts []*ExceptClause
	Else    []Node
	Finally []Node
}

func (*TryStmt) nodeTag() string { return "TryStmt" }

type WithItem struct {
	Base
	Ctx  Node
	Bind string // "" if no `as` binding
}

type WithStmt struct {
	Base
	Items []*WithItem
	Body  []Node
}

func (*WithStmt) nodeTag() string { return "WithStmt" }

type MatchCase struct {
	Base
	Pattern Node
	Guard   Node // nil if no `if` guard
	Body    []Node
}

type MatchStmt struct {
	Base
	Subject Node
	Cases   []*MatchCase
}

func (*MatchStmt) nodeTag() string { return "MatchStmt" }

type GlobalStmt struct {
	Base
	Names []string
}

func (*GlobalStmt) nodeTag() string { return "GlobalStmt" }

type NonlocalStmt struct {
	Base
	Names []string
}

func (*NonlocalStmt) nodeTag() string { return "NonlocalStmt" }

// ---- Expressions ----

type Ident struct {
	Base
	Name string
}

func (*Ident) nodeTag() string { return "Ident" }

type IntLit struct {
	Base
	Raw string
}

func (*IntLit) nodeTag() string { return "IntLit" }

type FloatLit struct {
	Base
	Raw string
}

func (*FloatLit) nodeTag() string { return "FloatLit" }

type StringLit struct {
	Base
	Raw      string
	IsRaw    bool
	IsBytes  bool
}

func (*StringLit) nodeTag() string { return "StringLit" }

// FString is a sequence of text/expr fragments, lowered to a host
// joined-string node at codegen time (§4.7).
type FString struct {
	Base
	Parts []Node // *StringLit text fragments interleaved with expression Nodes
	IsRaw bool
}

func (*FString) nodeTag() string { return "FString" }

type BoolLit struct {
	Base
	Value bool
}

func (*BoolLit) nodeTag() string { return "BoolLit" }

type NoneLit struct{ Base }

func (*NoneLit) nodeTag() string { return "NoneLit" }

type ListLit struct {
	Base
	Elems []Node
}

func (*ListLit) nodeTag() string { return "ListLit" }

type SetLit struct {
	Base
	Elems []Node
}

func (*SetLit) nodeTag() string { return "SetLit" }

type TupleLit struct {
	Base
	Elems []Node
}

func (*TupleLit) nodeTag() string { return "TupleLit" }

type DictEntry struct {
	Base
	Key   Node
	Value Node
}

type DictLit struct {
	Base
	Entries []*DictEntry
}

func (*DictLit) nodeTag() string { return "DictLit" }

type Comprehension struct {
	Base
	Kind   string // "list" | "set" | "dict" | "gen"
	Elem   Node
	DictVal Node // set only for Kind=="dict"
	Target Node
	Iter   Node
	Ifs    []Node
}

func (*Comprehension) nodeTag() string { return "Comprehension" }

type BinaryExpr struct {
	Base
	Op    string
	X, Y  Node
}

func (*BinaryExpr) nodeTag() string { return "BinaryExpr" }

type UnaryExpr struct {
	Base
	Op string
	X  Node
}

func (*UnaryExpr) nodeTag() string { return "UnaryExpr" }

type BoolOpExpr struct {
	Base
	Op      string // "and" | "or"
	Operands []Node
}

func (*BoolOpExpr) nodeTag() string { return "BoolOpExpr" }

type CompareExpr struct {
	Base
	First Node
	Ops   []string // "==", "!=", "<", "in", "not in", "is", "is not", ...
	Rest  []Node
}

func (*CompareExpr) nodeTag() string { return "CompareExpr" }

type WalrusExpr struct {
	Base
	Name  string
	Value Node
}

func (*WalrusExpr) nodeTag() string { return "WalrusExpr" }

type TernaryExpr struct {
	Base
	Cond, Then, Else Node
}

func (*TernaryExpr) nodeTag() string { return "TernaryExpr" }

type LambdaExpr struct {
	Base
	Params []*ParamVar
	Body   Node
}

func (*LambdaExpr) nodeTag() string { return "LambdaExpr" }

type CallArg struct {
	Base
	Name  string // "" for positional
	Value Node
	IsStar bool
	IsStarStar bool
}

type CallExpr struct {
	Base
	Callee Node
	Args   []*CallArg
}

func (*CallExpr) nodeTag() string { return "CallExpr" }

type AttrExpr struct {
	Base
	X        Node
	Attr     string
	Optional bool // `?.`
}

func (*AttrExpr) nodeTag() string { return "AttrExpr" }

type IndexExpr struct {
	Base
	X     Node
	Index Node
}

func (*IndexExpr) nodeTag() string { return "IndexExpr" }

type SliceExpr struct {
	Base
	X                Node
	Low, High, Step  Node
}

func (*SliceExpr) nodeTag() string { return "SliceExpr" }

// EdgeOpExpr models the Jac-specific graph navigation operators
// (`-->`, `<--`, `<-->`, `++>`) retained from the original language surface
// even though walker-runtime execution itself is out of scope (§1 Non-goal).
// The recursive-descent parser never builds this node: the lexer has no
// edge-operator tokens, so source using these operators is reported as a
// syntax error.
type EdgeOpExpr struct {
	Base
	X        Node
	Op       string
	EdgeType string // "" if untyped
	Y        Node
}

func (*EdgeOpExpr) nodeTag() string { return "EdgeOpExpr" }

type SpawnExpr struct {
	Base
	Target Node
}

func (*SpawnExpr) nodeTag() string { return "SpawnExpr" }

type VisitStmt struct {
	Base
	Target Node
}

func (*VisitStmt) nodeTag() string { return "VisitStmt" }

type DisengageStmt struct{ Base }

func (*DisengageStmt) nodeTag() string { return "DisengageStmt" }
