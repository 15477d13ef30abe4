// Package codegen lowers a resolved ast.Module into Go source text (§4.7),
// the "host language" target that internal/hostvm compiles and runs.
// Archetypes become structs, has-vars become fields (with a factory
// function standing in for Python's mutable-default-argument trick),
// abilities become methods with an explicit receiver, enums become typed
// consts, impl blocks are spliced into their declaring archetype, and
// f-strings lower to fmt.Sprintf calls.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"jacc/internal/ast"
	"jacc/internal/logging"
	"jacc/internal/symtab"
)

// Options controls how a module is lowered.
type Options struct {
	PackageName string
}

// Generator lowers one Module (plus its symbol Table, for impl binding) to
// Go source.
type Generator struct {
	opts Options
	log  *logging.Logger
	buf  bytes.Buffer

	// implsByTarget maps "Arch.Member" to the ImplDef supplying its body,
	// populated from the Table so an Ability's own Body (possibly empty,
	// DeclOnly) can be overridden by an out-of-line impl.
	implsByTarget map[string]*ast.ImplDef
}

// New creates a Generator. log may be nil.
func New(opts Options, log *logging.Logger) *Generator {
	if opts.PackageName == "" {
		opts.PackageName = "main"
	}
	return &Generator{opts: opts, log: log}
}

// Generate lowers mod to formatted Go source. table may be nil, in which
// case impl blocks are not spliced in (useful for the seed compiler's
// reduced subset, §4.8, which has no symbol table at all).
func (g *Generator) Generate(mod *ast.Module, table *symtab.Table) (string, error) {
	g.buf.Reset()
	g.implsByTarget = make(map[string]*ast.ImplDef)
	if table != nil {
		for _, rec := range table.Impls {
			if rec.Matched {
				key := rec.Impl.TargetArch + "." + rec.Impl.TargetMember
				g.implsByTarget[key] = rec.Impl
			}
		}
	}

	g.writeln("package %s", g.opts.PackageName)
	g.writeln("")
	g.writeln("import (")
	for _, imp := range g.requiredImports(mod) {
		g.writeln("\t%q", imp)
	}
	g.writeln(")")
	g.writeln("")

	for _, item := range mod.Body {
		switch n := item.(type) {
		case *ast.Archetype:
			g.genArchetype(n)
		case *ast.Enum:
			g.genEnum(n)
		case *ast.GlobalVars:
			g.genGlobals(n)
		case *ast.Ability:
			g.genFunc(n, "")
		}
	}

	src := g.buf.Bytes()
	formatted, err := format.Source(src)
	if err != nil {
		g.debugf("format.Source failed, returning unformatted source: %v", err)
		return src2str(src), nil
	}
	return string(formatted), nil
}

func src2str(b []byte) string { return string(b) }

// requiredImports reports the host-language package set the generated file
// needs. Only fmt (for f-string lowering) is detected today; additional
// generated constructs that need an import should extend nodeUsesFString's
// sibling checks here rather than hand-editing the import block per module.
func (g *Generator) requiredImports(mod *ast.Module) []string {
	needed := map[string]bool{}
	for _, item := range mod.Body {
		if nodeUsesFString(item) {
			needed["fmt"] = true
			break
		}
	}
	out := make([]string, 0, len(needed))
	for k := range needed {
		out = append(out, k)
	}
	return out
}

// nodeUsesFString does a cheap, non-exhaustive recursive scan for an
// *ast.FString anywhere under n, covering the statement/expression forms
// genStmt/genExpr actually emit.
func nodeUsesFString(n ast.Node) bool {
	switch v := n.(type) {
	case nil:
		return false
	case *ast.FString:
		return true
	case *ast.Archetype:
		return anyUsesFString(v.Body)
	case *ast.ArchHas:
		for _, hv := range v.Vars {
			if nodeUsesFString(hv.Default) {
				return true
			}
		}
		return false
	case *ast.Ability:
		return anyUsesFString(v.Body)
	case *ast.ImplDef:
		return anyUsesFString(v.Body)
	case *ast.GlobalVars:
		for _, hv := range v.Vars {
			if nodeUsesFString(hv.Default) {
				return true
			}
		}
		return false
	case *ast.ExprStmt:
		return nodeUsesFString(v.X)
	case *ast.ReturnStmt:
		return nodeUsesFString(v.Value)
	case *ast.AssignStmt:
		return nodeUsesFString(v.Value)
	case *ast.IfStmt:
		if anyUsesFString(v.Then) || anyUsesFString(v.Else) {
			return true
		}
		for _, e := range v.Elifs {
			if anyUsesFString(e.Body) {
				return true
			}
		}
		return false
	case *ast.WhileStmt:
		return anyUsesFString(v.Body)
	case *ast.ForStmt:
		return anyUsesFString(v.Body)
	case *ast.CallExpr:
		for _, a := range v.Args {
			if nodeUsesFString(a.Value) {
				return true
			}
		}
		return false
	case *ast.BinaryExpr:
		return nodeUsesFString(v.X) || nodeUsesFString(v.Y)
	default:
		return false
	}
}

func anyUsesFString(ns []ast.Node) bool {
	for _, n := range ns {
		if nodeUsesFString(n) {
			return true
		}
	}
	return false
}

func (g *Generator) writeln(format string, args ...interface{}) {
	fmt.Fprintf(&g.buf, format+"\n", args...)
}

func (g *Generator) debugf(format string, args ...interface{}) {
	if g.log != nil {
		g.log.Debug(format, args...)
	}
}

// ---- Archetypes ----

func goArchKindComment(k ast.ArchKind) string {
	switch k {
	case ast.ArchNode:
		return "node archetype"
	case ast.ArchEdge:
		return "edge archetype"
	case ast.ArchWalker:
		return "walker archetype"
	default:
		return "obj archetype"
	}
}

func (g *Generator) genArchetype(n *ast.Archetype) {
	g.writeln("// %s is a generated %s.", n.Name, goArchKindComment(n.Kind))
	g.writeln("type %s struct {", n.Name)
	for _, base := range n.Bases {
		g.writeln("\t%s", base) // embedding
	}
	implHas := g.implsByTarget[n.Name+".__has__"]
	for _, m := range n.Body {
		if has, ok := m.(*ast.ArchHas); ok {
			g.genHasFields(has)
		}
	}
	if implHas != nil {
		for _, v := range implHas.Body {
			if hv, ok := v.(*ast.HasVar); ok {
				g.genHasFields(&ast.ArchHas{Vars: []*ast.HasVar{hv}})
			}
		}
	}
	g.writeln("}")
	g.writeln("")

	for _, m := range n.Body {
		if has, ok := m.(*ast.ArchHas); ok {
			g.genMutableDefaultFactory(n.Name, has)
		}
	}

	for _, m := range n.Body {
		if abil, ok := m.(*ast.Ability); ok {
			g.genFunc(abil, n.Name)
		}
	}
}

func (g *Generator) genHasFields(has *ast.ArchHas) {
	for _, v := range has.Vars {
		typ := goType(v.TypeExpr)
		g.writeln("\t%s %s", exportName(v.Name), typ)
	}
}

// genMutableDefaultFactory emits a NewX constructor when a has-var's default
// is a list/dict/set literal: Go has no per-call mutable-default pitfall
// like Python's, but the factory is the natural place to initialize one.
// Archetypes whose has-vars all have immutable defaults (or none) get no
// factory.
func (g *Generator) genMutableDefaultFactory(archName string, has *ast.ArchHas) {
	anyMutable := false
	for _, v := range has.Vars {
		if v.HasMutableDefault {
			anyMutable = true
		}
	}
	if !anyMutable {
		return
	}
	g.writeln("// New%s constructs %s with its mutable has-var defaults freshly allocated per call.", archName, archName)
	g.writeln("func New%s() *%s {", archName, archName)
	g.writeln("\treturn &%s{", archName)
	for _, v := range has.Vars {
		if v.HasMutableDefault {
			g.writeln("\t\t%s: %s{},", exportName(v.Name), goType(v.TypeExpr))
		}
	}
	g.writeln("\t}")
	g.writeln("}")
	g.writeln("")
}

// ---- Enums ----

func (g *Generator) genEnum(n *ast.Enum) {
	g.writeln("type %s int", n.Name)
	g.writeln("const (")
	for i, m := range n.Members {
		if i == 0 {
			g.writeln("\t%s%s %s = iota", n.Name, m.Name, n.Name)
		} else {
			g.writeln("\t%s%s", n.Name, m.Name)
		}
	}
	g.writeln(")")
	g.writeln("")
}

// ---- Globals ----

func (g *Generator) genGlobals(n *ast.GlobalVars) {
	for _, v := range n.Vars {
		g.writeln("var %s %s", exportName(v.Name), goType(v.TypeExpr))
	}
	g.writeln("")
}

// ---- Abilities / functions ----

func (g *Generator) genFunc(n *ast.Ability, receiver string) {
	body := n.Body
	if receiver != "" {
		if impl, ok := g.implsByTarget[receiver+"."+n.Name]; ok {
			body = impl.Body
		}
	}
	if n.DeclOnly && len(body) == 0 {
		g.writeln("// %s is declared in %s and implemented in a separate impl block.", n.Name, receiver)
		return
	}

	params := g.paramList(n.Signature)
	ret := goType(n.Signature.ReturnType)
	if receiver != "" {
		g.writeln("func (self *%s) %s(%s) %s {", receiver, exportName(n.Name), params, ret)
	} else {
		g.writeln("func %s(%s) %s {", exportName(n.Name), params, ret)
	}
	for _, s := range body {
		g.genStmt(s, 1)
	}
	g.writeln("}")
	g.writeln("")
}

func (g *Generator) paramList(sig *ast.FuncSignature) string {
	if sig == nil {
		return ""
	}
	parts := make([]string, 0, len(sig.Params))
	for _, p := range sig.Params {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name, goType(p.TypeExpr)))
	}
	return strings.Join(parts, ", ")
}

func exportName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// goType lowers a (possibly nil) type-annotation expression to a Go type
// name. Unannotated and unrecognized forms fall back to interface{}, the
// same "untyped" escape hatch the original dynamic language relies on.
func goType(n ast.Node) string {
	if n == nil {
		return "interface{}"
	}
	switch t := n.(type) {
	case *ast.Ident:
		switch t.Name {
		case "int", "float", "str", "bool":
			return map[string]string{"int": "int", "float": "float64", "str": "string", "bool": "bool"}[t.Name]
		default:
			return t.Name
		}
	case *ast.IndexExpr:
		return fmt.Sprintf("[]%s", goType(t.Index))
	default:
		return "interface{}"
	}
}

// genStmt and genExpr implement a direct, non-exhaustive-but-representative
// statement/expression lowering: enough of the grammar to faithfully
// round-trip the constructs SPEC_FULL.md names, using Go's control-flow
// forms 1:1 per §4.7 ("if/elif/else -> if/else if/else, while -> for, jac
// for-in -> range, f-string -> fmt.Sprintf").
func (g *Generator) genStmt(n ast.Node, depth int) {
	ind := strings.Repeat("\t", depth)
	switch s := n.(type) {
	case *ast.ReturnStmt:
		if s.Value == nil {
			g.writeln("%sreturn", ind)
		} else {
			g.writeln("%sreturn %s", ind, g.genExpr(s.Value))
		}
	case *ast.ExprStmt:
		g.writeln("%s%s", ind, g.genExpr(s.X))
	case *ast.AssignStmt:
		lhs := make([]string, len(s.Targets))
		for i, t := range s.Targets {
			lhs[i] = g.genExpr(t)
		}
		g.writeln("%s%s %s %s", ind, strings.Join(lhs, ", "), s.Op, g.genExpr(s.Value))
	case *ast.IfStmt:
		g.writeln("%sif %s {", ind, g.genExpr(s.Cond))
		for _, b := range s.Then {
			g.genStmt(b, depth+1)
		}
		for _, elif := range s.Elifs {
			g.writeln("%s} else if %s {", ind, g.genExpr(elif.Cond))
			for _, b := range elif.Body {
				g.genStmt(b, depth+1)
			}
		}
		if len(s.Else) > 0 {
			g.writeln("%s} else {", ind)
			for _, b := range s.Else {
				g.genStmt(b, depth+1)
			}
		}
		g.writeln("%s}", ind)
	case *ast.WhileStmt:
		g.writeln("%sfor %s {", ind, g.genExpr(s.Cond))
		for _, b := range s.Body {
			g.genStmt(b, depth+1)
		}
		g.writeln("%s}", ind)
	case *ast.ForStmt:
		if s.IsCStyle {
			g.writeln("%sfor %s; %s; %s {", ind, g.genSimpleForClause(s.Init), g.genExpr(s.Cond), g.genSimpleForClause(s.Step))
		} else {
			g.writeln("%sfor _, %s := range %s {", ind, g.genExpr(s.Target), g.genExpr(s.Iter))
		}
		for _, b := range s.Body {
			g.genStmt(b, depth+1)
		}
		g.writeln("%s}", ind)
	case *ast.BreakStmt:
		g.writeln("%sbreak", ind)
	case *ast.ContinueStmt:
		g.writeln("%scontinue", ind)
	case *ast.AssertStmt:
		g.writeln("%sif !(%s) { panic(%q) }", ind, g.genExpr(s.Cond), "assertion failed")
	default:
		g.writeln("%s_ = %q // unsupported statement form in generated output", ind, fmt.Sprintf("%T", n))
	}
}

func (g *Generator) genSimpleForClause(n ast.Node) string {
	if n == nil {
		return ""
	}
	if a, ok := n.(*ast.AssignStmt); ok && len(a.Targets) == 1 {
		return fmt.Sprintf("%s %s %s", g.genExpr(a.Targets[0]), a.Op, g.genExpr(a.Value))
	}
	return g.genExpr(n)
}

func (g *Generator) genExpr(n ast.Node) string {
	switch e := n.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.IntLit:
		return e.Raw
	case *ast.FloatLit:
		return e.Raw
	case *ast.BoolLit:
		if e.Value {
			return "true"
		}
		return "false"
	case *ast.NoneLit:
		return "nil"
	case *ast.StringLit:
		body := strings.TrimLeft(e.Raw, "rRbB")
		for _, q := range []string{`"""`, `'''`, `"`, `'`} {
			if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
				body = body[len(q) : len(body)-len(q)]
				break
			}
		}
		if v, err := strconv.Unquote(`"` + body + `"`); err == nil {
			body = v
		}
		return fmt.Sprintf("%q", body)
	case *ast.FString:
		return g.genFString(e)
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", g.genExpr(e.X), goBinOp(e.Op), g.genExpr(e.Y))
	case *ast.UnaryExpr:
		return fmt.Sprintf("(%s%s)", goUnaryOp(e.Op), g.genExpr(e.X))
	case *ast.BoolOpExpr:
		op := " && "
		if e.Op == "or" {
			op = " || "
		}
		parts := make([]string, len(e.Operands))
		for i, o := range e.Operands {
			parts[i] = g.genExpr(o)
		}
		return "(" + strings.Join(parts, op) + ")"
	case *ast.CompareExpr:
		return g.genCompare(e)
	case *ast.CallExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = g.genExpr(a.Value)
		}
		return fmt.Sprintf("%s(%s)", g.genExpr(e.Callee), strings.Join(args, ", "))
	case *ast.AttrExpr:
		return fmt.Sprintf("%s.%s", g.genExpr(e.X), exportName(e.Attr))
	case *ast.IndexExpr:
		return fmt.Sprintf("%s[%s]", g.genExpr(e.X), g.genExpr(e.Index))
	case *ast.ListLit:
		elems := make([]string, len(e.Elems))
		for i, el := range e.Elems {
			elems[i] = g.genExpr(el)
		}
		return fmt.Sprintf("[]interface{}{%s}", strings.Join(elems, ", "))
	case *ast.TernaryExpr:
		return fmt.Sprintf("func() interface{} { if %s { return %s }; return %s }()", g.genExpr(e.Cond), g.genExpr(e.Then), g.genExpr(e.Else))
	default:
		return fmt.Sprintf("nil /* unsupported expr %T */", n)
	}
}

func (g *Generator) genCompare(e *ast.CompareExpr) string {
	parts := []string{}
	left := g.genExpr(e.First)
	for i, op := range e.Ops {
		right := g.genExpr(e.Rest[i])
		parts = append(parts, fmt.Sprintf("%s %s %s", left, goCompareOp(op), right))
		left = right
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

// goCompareOp lowers a comparison operator to its Go equivalent. "in"/"not
// in" have no Go operator (no native membership test); they are returned
// unchanged, so a comparison using either renders as Go source that does
// not compile.
func goCompareOp(op string) string {
	switch op {
	case "is":
		return "=="
	case "is not":
		return "!="
	default:
		return op
	}
}

func goBinOp(op string) string {
	if op == "//" {
		return "/"
	}
	return op
}

func goUnaryOp(op string) string {
	if op == "not" {
		return "!"
	}
	return op
}

// genFString lowers an interpolated string to a fmt.Sprintf call using a
// Go-style printf template built from its text/expression fragments.
func (g *Generator) genFString(fs *ast.FString) string {
	var tmpl strings.Builder
	var args []string
	for _, part := range fs.Parts {
		if lit, ok := part.(*ast.StringLit); ok {
			tmpl.WriteString(strings.ReplaceAll(lit.Raw, "%", "%%"))
			continue
		}
		tmpl.WriteString("%v")
		args = append(args, g.genExpr(part))
	}
	if len(args) == 0 {
		return fmt.Sprintf("%q", tmpl.String())
	}
	return fmt.Sprintf("fmt.Sprintf(%q, %s)", tmpl.String(), strings.Join(args, ", "))
}
