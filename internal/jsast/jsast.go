// Package jsast implements the foreign-language transformer of §4.11:
// TypeScript/JavaScript sources lowered onto the same shared AST variants
// the native parser produces. Rather than shelling out to an external
// ESTree-producing subprocess, it parses in-process with
// github.com/smacker/go-tree-sitter (as the teacher's
// internal/world/typescript_parser.go already does for its own code-graph
// extraction) and maps tree-sitter node kinds directly onto ast.Node
// variants — functionally equivalent to the spec's "ESTree-JSON -> shared
// AST" contract, without the subprocess.
package jsast

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tsgrammar "github.com/smacker/go-tree-sitter/typescript/typescript"

	"jacc/internal/ast"
	"jacc/internal/logging"
	"jacc/internal/source"
)

// Transformer parses JS/TS source in-process and lowers it to ast.Module.
type Transformer struct {
	log       *logging.Logger
	jsParser  *sitter.Parser
	tsParser  *sitter.Parser
}

// New creates a Transformer. log may be nil.
func New(log *logging.Logger) *Transformer {
	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())
	ts := sitter.NewParser()
	ts.SetLanguage(tsgrammar.GetLanguage())
	return &Transformer{log: log, jsParser: js, tsParser: ts}
}

// Transform parses src (a .js/.jsx/.ts/.tsx file) and lowers it to a
// Module. Parse failures — tree-sitter producing an ERROR-rooted tree —
// yield a stub Module with HasSyntaxErrors set, per §4.11's "parse
// failures produce a stub Module".
func (t *Transformer) Transform(src []byte, path string) *ast.Module {
	s := source.New(src, path)
	parser := t.jsParser
	if strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".tsx") {
		parser = t.tsParser
	}

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.debugf("jsast: parse failed for %s: %v", path, err)
		return ast.MakeStub(s)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		t.debugf("jsast: %s parsed with errors, emitting stub", path)
		return ast.MakeStub(s)
	}

	mod := &ast.Module{
		Base: ast.Base{Sp: spanOf(s, root)},
		Name: path,
		Path: path,
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if n := t.lowerTopLevel(child, s, src); n != nil {
			mod.Body = append(mod.Body, n)
		}
	}
	return mod
}

func spanOf(s *source.Source, n *sitter.Node) source.Span {
	return source.NewSpan(s, int(n.StartByte()), int(n.EndByte()))
}

func text(src []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// lowerTopLevel implements §4.11's one-line-per-variant mapping table.
func (t *Transformer) lowerTopLevel(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	switch n.Type() {
	case "export_statement":
		// ExportNamedDeclaration/ExportDefaultDeclaration passthrough; a bare
		// `export *` re-export has no inner declaration child and lowers to
		// an Import with IsInclude set to mark it a re-export.
		if inner := n.NamedChild(0); inner != nil && inner.Type() != "string" {
			return t.lowerTopLevel(inner, s, src)
		}
		return &ast.Import{Base: ast.Base{Sp: spanOf(s, n)}, IsInclude: true}
	case "lexical_declaration", "variable_declaration":
		return t.lowerVariableDeclaration(n, s, src)
	case "function_declaration":
		return t.lowerFunctionDeclaration(n, s, src)
	case "class_declaration":
		return t.lowerClassDeclaration(n, s, src, ast.ArchObj)
	case "interface_declaration":
		return t.lowerInterfaceDeclaration(n, s, src)
	case "type_alias_declaration":
		return t.lowerTypeAlias(n, s, src)
	case "enum_declaration":
		return t.lowerEnumDeclaration(n, s, src)
	case "import_statement":
		return t.lowerImport(n, s, src)
	default:
		return nil
	}
}

// lowerVariableDeclaration maps `const` to a frozen GlobalVars and
// `let`/`var` to a non-frozen one. Jac's ast.HasVar has no Frozen field, so
// constness is recorded via a synthetic `const ` name prefix convention the
// rest of the pipeline does not otherwise produce.
func (t *Transformer) lowerVariableDeclaration(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	isConst := strings.HasPrefix(text(src, n), "const")
	gv := &ast.GlobalVars{Base: ast.Base{Sp: spanOf(s, n)}}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := text(src, nameNode)
		if isConst {
			name = "const " + name
		}
		gv.Vars = append(gv.Vars, &ast.HasVar{Base: ast.Base{Sp: spanOf(s, decl)}, Name: name})
	}
	return gv
}

func (t *Transformer) lowerFunctionDeclaration(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	nameNode := n.ChildByFieldName("name")
	name := text(src, nameNode)
	sig := &ast.FuncSignature{Base: ast.Base{Sp: spanOf(s, n)}}
	if params := n.ChildByFieldName("parameters"); params != nil {
		sig.Params = t.lowerParams(params, s, src)
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		sig.ReturnType = &ast.Ident{Base: ast.Base{Sp: spanOf(s, rt)}, Name: text(src, rt)}
	}
	return &ast.Ability{Base: ast.Base{Sp: spanOf(s, n)}, Name: name, Signature: sig}
}

func (t *Transformer) lowerParams(n *sitter.Node, s *source.Source, src []byte) []*ast.ParamVar {
	var out []*ast.ParamVar
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		name := text(src, p)
		if nameNode := p.ChildByFieldName("pattern"); nameNode != nil {
			name = text(src, nameNode)
		}
		out = append(out, &ast.ParamVar{Base: ast.Base{Sp: spanOf(s, p)}, Name: name})
	}
	return out
}

func (t *Transformer) lowerClassDeclaration(n *sitter.Node, s *source.Source, src []byte, kind ast.ArchKind) ast.Node {
	nameNode := n.ChildByFieldName("name")
	arch := &ast.Archetype{Base: ast.Base{Sp: spanOf(s, n)}, Kind: kind, Name: text(src, nameNode)}

	if heritage := n.ChildByFieldName("heritage"); heritage != nil {
		arch.Bases = append(arch.Bases, text(src, heritage))
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return arch
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition":
			nameN := member.ChildByFieldName("name")
			ability := &ast.Ability{Base: ast.Base{Sp: spanOf(s, member)}, Name: text(src, nameN)}
			if params := member.ChildByFieldName("parameters"); params != nil {
				ability.Signature = &ast.FuncSignature{Base: ast.Base{Sp: spanOf(s, params)}, Params: t.lowerParams(params, s, src)}
			}
			arch.Body = append(arch.Body, ability)
		case "public_field_definition", "property_definition", "field_definition":
			nameN := member.ChildByFieldName("property")
			if nameN == nil {
				nameN = member.ChildByFieldName("name")
			}
			has := &ast.ArchHas{Base: ast.Base{Sp: spanOf(s, member)}}
			has.Vars = append(has.Vars, &ast.HasVar{Base: ast.Base{Sp: spanOf(s, member)}, Name: text(src, nameN)})
			arch.Body = append(arch.Body, has)
		}
	}
	return arch
}

func (t *Transformer) lowerInterfaceDeclaration(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	nameNode := n.ChildByFieldName("name")
	arch := &ast.Archetype{Base: ast.Base{Sp: spanOf(s, n)}, Kind: ast.ArchObj, Name: text(src, nameNode)}

	body := n.ChildByFieldName("body")
	if body == nil {
		return arch
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "property_signature":
			nameN := member.ChildByFieldName("name")
			has := &ast.ArchHas{Base: ast.Base{Sp: spanOf(s, member)}}
			has.Vars = append(has.Vars, &ast.HasVar{Base: ast.Base{Sp: spanOf(s, member)}, Name: text(src, nameN)})
			arch.Body = append(arch.Body, has)
		case "method_signature":
			nameN := member.ChildByFieldName("name")
			arch.Body = append(arch.Body, &ast.Ability{
				Base:     ast.Base{Sp: spanOf(s, member)},
				Name:     text(src, nameN),
				DeclOnly: true,
			})
		}
	}
	return arch
}

func (t *Transformer) lowerTypeAlias(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	nameNode := n.ChildByFieldName("name")
	name := "const " + text(src, nameNode) // frozen, per §4.11
	return &ast.GlobalVars{
		Base: ast.Base{Sp: spanOf(s, n)},
		Vars: []*ast.HasVar{{Base: ast.Base{Sp: spanOf(s, n)}, Name: name}},
	}
}

func (t *Transformer) lowerEnumDeclaration(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	nameNode := n.ChildByFieldName("name")
	enum := &ast.Enum{Base: ast.Base{Sp: spanOf(s, n)}, Name: text(src, nameNode)}
	body := n.ChildByFieldName("body")
	if body == nil {
		return enum
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "enum_assignment" && member.Type() != "property_identifier" {
			continue
		}
		nameN := member.ChildByFieldName("name")
		if nameN == nil {
			nameN = member
		}
		em := &ast.EnumMember{Base: ast.Base{Sp: spanOf(s, member)}, Name: text(src, nameN)}
		if val := member.ChildByFieldName("value"); val != nil {
			em.Value = &ast.Ident{Base: ast.Base{Sp: spanOf(s, val)}, Name: text(src, val)}
		}
		enum.Members = append(enum.Members, em)
	}
	return enum
}

func (t *Transformer) lowerImport(n *sitter.Node, s *source.Source, src []byte) ast.Node {
	imp := &ast.Import{Base: ast.Base{Sp: spanOf(s, n)}, Lang: "ts"}
	if src_ := n.ChildByFieldName("source"); src_ != nil {
		raw := strings.Trim(text(src, src_), `"'`)
		imp.Path = &ast.ModulePath{
			Base:     ast.Base{Sp: spanOf(s, src_)},
			DotCount: dotCount(raw),
			Parts:    strings.Split(strings.TrimLeft(raw, "./"), "/"),
			Raw:      raw,
		}
	}
	clause := n.ChildByFieldName("import_clause")
	if clause == nil {
		return imp
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		switch spec.Type() {
		case "identifier":
			// default import -> synthetic name, per §4.11
			imp.Items = append(imp.Items, &ast.ImportItem{Base: ast.Base{Sp: spanOf(s, spec)}, Name: "default", Alias: text(src, spec)})
		case "namespace_import":
			imp.Items = append(imp.Items, &ast.ImportItem{Base: ast.Base{Sp: spanOf(s, spec)}, Name: "*", Alias: text(src, spec)})
		case "named_imports":
			for j := 0; j < int(spec.NamedChildCount()); j++ {
				item := spec.NamedChild(j)
				nameN := item.ChildByFieldName("name")
				aliasN := item.ChildByFieldName("alias")
				ii := &ast.ImportItem{Base: ast.Base{Sp: spanOf(s, item)}, Name: text(src, nameN)}
				if aliasN != nil {
					ii.Alias = text(src, aliasN)
				}
				imp.Items = append(imp.Items, ii)
			}
		}
	}
	return imp
}

func dotCount(raw string) int {
	switch {
	case strings.HasPrefix(raw, "../"):
		n := 0
		rest := raw
		for strings.HasPrefix(rest, "../") {
			n++
			rest = rest[3:]
		}
		return n
	case strings.HasPrefix(raw, "./"):
		return 1
	default:
		return 0
	}
}

func (t *Transformer) debugf(format string, args ...interface{}) {
	if t.log != nil {
		t.log.Debug(format, args...)
	}
}
