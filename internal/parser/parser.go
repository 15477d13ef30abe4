// Package parser implements the recursive-descent parser of §4.3: tokens in,
// a unified ast.Module out. On a syntax error the parser records a
// diagnostic, skips ahead and keeps going; the Module it returns holds
// whatever parsed and has HasSyntaxErrors latched — it never panics out to
// the embedder.
package parser

import (
	"jacc/internal/ast"
	"jacc/internal/diag"
	"jacc/internal/lexer"
	"jacc/internal/logging"
	"jacc/internal/source"
	"jacc/internal/token"
)

// Parser consumes a token stream produced by the lexer and builds an
// ast.Module.
type Parser struct {
	src  *source.Source
	toks []token.Token
	pos  int

	Diagnostics []diag.Alert
	hasErrors   bool
	log         *logging.Logger
}

// Parse tokenizes and parses src, returning a Module. It never returns nil:
// on lexer or parser errors it returns the partially parsed Module with
// HasSyntaxErrors set.
func Parse(src *source.Source, log *logging.Logger) *ast.Module {
	lx := lexer.New(src, log)
	toks := lx.Tokenize()
	p := &Parser{src: src, toks: toks, log: log}
	p.Diagnostics = append(p.Diagnostics, lx.Diagnostics...)
	if len(lx.Diagnostics) > 0 {
		p.hasErrors = true
	}

	mod := p.parseModule()
	if p.hasErrors {
		mod.HasSyntaxErrors = true
	}
	p.debugf("parsed %s: %d top-level items, syntax errors=%v", src.Path, len(mod.Body), mod.HasSyntaxErrors)
	return mod
}

func (p *Parser) debugf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Debug(format, args...)
	}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.hasErrors = true
	p.Diagnostics = append(p.Diagnostics, diag.New(diag.SyntaxError, p.cur().Span, format, args...))
}

// expect consumes a token of kind k or records a diagnostic and synchronizes
// by skipping ahead. It never aborts the parse.
func (p *Parser) expect(k token.Kind) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorf("expected %s, got %s %q", k, p.cur().Kind, p.cur().Literal)
	return p.cur()
}

// recoverTo advances until one of the given kinds (or EOF) is reached,
// without consuming it. Used to resynchronize after a malformed top-level
// item.
func (p *Parser) recoverTo(kinds ...token.Kind) {
	for !p.at(token.EOF) {
		for _, k := range kinds {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseModule() *ast.Module {
	startSpan := p.cur().Span
	mod := &ast.Module{
		Path:    p.src.Path,
		Name:    p.src.Path,
		Context: p.src.Context,
	}
	var body []ast.Node
	for !p.at(token.EOF) {
		before := p.pos
		if p.at(token.KW_IMPL) {
			for _, impl := range p.parseImplDef() {
				body = append(body, impl)
			}
		} else if item := p.parseTopLevel(); item != nil {
			body = append(body, item)
		}
		if p.pos == before {
			// Parser made no progress; force it forward to avoid looping.
			p.advance()
		}
	}
	mod.Body = body
	endSpan := p.cur().Span
	mod.Sp = source.Join(startSpan, endSpan)
	return mod
}

func (p *Parser) parseTopLevel() ast.Node {
	switch p.cur().Kind {
	case token.KW_IMPORT, token.KW_INCLUDE:
		return p.parseImport()
	case token.KW_OBJ, token.KW_CLASS, token.KW_NODE, token.KW_EDGE, token.KW_WALKER:
		return p.parseArchetype()
	case token.KW_ENUM:
		return p.parseEnum()
	case token.KW_GLOBAL:
		return p.parseGlobalVars()
	case token.KW_DEF, token.KW_CAN, token.KW_TEST:
		return p.parseAbility(false)
	case token.SEMI:
		p.advance()
		return nil
	default:
		stmt := p.parseStatement()
		return stmt
	}
}

func (p *Parser) parseModulePath() *ast.ModulePath {
	start := p.cur().Span
	dots := 0
	for p.at(token.DOT) || p.at(token.DOTDOT) {
		if p.at(token.DOTDOT) {
			dots += 2
		} else {
			dots++
		}
		p.advance()
	}
	var parts []string
	if p.at(token.IDENT) {
		parts = append(parts, p.advance().Literal)
		for p.at(token.DOT) {
			p.advance()
			parts = append(parts, p.expect(token.IDENT).Literal)
		}
	}
	end := p.cur().Span
	return &ast.ModulePath{Base: node(source.Join(start, end)), DotCount: dots, Parts: parts}
}

func node(sp source.Span) ast.Base { return ast.Base{Sp: sp} }

func (p *Parser) parseImport() *ast.Import {
	start := p.cur().Span
	isInclude := p.at(token.KW_INCLUDE)
	p.advance()

	lang := ""
	if p.at(token.COLON) {
		p.advance()
		lang = p.expect(token.IDENT).Literal
	}

	imp := &ast.Import{IsInclude: isInclude, Lang: lang}

	if p.at(token.KW_FROM) {
		p.advance()
		imp.Path = p.parseModulePath()
		p.expect(token.LBRACE)
		for !p.at(token.RBRACE) && !p.at(token.EOF) {
			name := p.expect(token.IDENT).Literal
			alias := ""
			if p.at(token.KW_AS) {
				p.advance()
				alias = p.expect(token.IDENT).Literal
			}
			imp.Items = append(imp.Items, &ast.ImportItem{Name: name, Alias: alias})
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(token.RBRACE)
	} else {
		imp.Path = p.parseModulePath()
		if p.at(token.KW_AS) {
			p.advance()
			imp.Alias = p.expect(token.IDENT).Literal
		}
	}
	p.consumeSemi()
	imp.Sp = source.Join(start, p.prevSpan())
	return imp
}

func (p *Parser) prevSpan() source.Span {
	if p.pos == 0 {
		return p.cur().Span
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) consumeSemi() {
	if p.at(token.SEMI) {
		p.advance()
	}
}

func (p *Parser) parseGlobalVars() *ast.GlobalVars {
	start := p.cur().Span
	p.advance()
	gv := &ast.GlobalVars{}
	gv.Vars = p.parseHasVarList()
	p.consumeSemi()
	gv.Sp = source.Join(start, p.prevSpan())
	return gv
}

func (p *Parser) parseHasVarList() []*ast.HasVar {
	var vars []*ast.HasVar
	for {
		vStart := p.cur().Span
		name := p.expect(token.IDENT).Literal
		var typ ast.Node
		if p.at(token.COLON) {
			p.advance()
			typ = p.parseTypeExpr()
		}
		var def ast.Node
		mutableDefault := false
		if p.at(token.ASSIGN) {
			p.advance()
			def = p.parseExpr()
			switch def.(type) {
			case *ast.ListLit, *ast.DictLit, *ast.SetLit:
				mutableDefault = true
			}
		}
		vars = append(vars, &ast.HasVar{
			Base:              node(source.Join(vStart, p.prevSpan())),
			Name:              name,
			TypeExpr:          typ,
			Default:           def,
			HasMutableDefault: mutableDefault,
		})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return vars
}

// parseTypeExpr parses a type annotation. Types reuse the expression grammar
// (names, attribute paths, subscripted generics) rather than a separate
// grammar.
func (p *Parser) parseTypeExpr() ast.Node {
	return p.parsePostfix()
}

func (p *Parser) parseArchetype() *ast.Archetype {
	start := p.cur().Span
	kind := ast.ArchObj
	switch p.cur().Kind {
	case token.KW_NODE:
		kind = ast.ArchNode
	case token.KW_EDGE:
		kind = ast.ArchEdge
	case token.KW_WALKER:
		kind = ast.ArchWalker
	}
	p.advance()
	name := p.expect(token.IDENT).Literal
	arch := &ast.Archetype{Kind: kind, Name: name}
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			arch.Bases = append(arch.Bases, p.expect(token.IDENT).Literal)
			if p.at(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RPAREN)
	}
	if p.at(token.SEMI) {
		// forward declaration with no body
		p.advance()
		arch.IsAbstract = true
		arch.Sp = source.Join(start, p.prevSpan())
		return arch
	}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		item := p.parseArchMember()
		if item != nil {
			arch.Body = append(arch.Body, item)
		}
	}
	p.expect(token.RBRACE)
	arch.Sp = source.Join(start, p.prevSpan())
	return arch
}

func (p *Parser) parseArchMember() ast.Node {
	switch p.cur().Kind {
	case token.KW_HAS:
		start := p.cur().Span
		p.advance()
		h := &ast.ArchHas{Vars: p.parseHasVarList()}
		p.consumeSemi()
		h.Sp = source.Join(start, p.prevSpan())
		return h
	case token.KW_DEF, token.KW_CAN:
		return p.parseAbility(true)
	case token.SEMI:
		p.advance()
		return nil
	default:
		p.errorf("unexpected token %s in archetype body", p.cur().Kind)
		p.recoverTo(token.KW_HAS, token.KW_DEF, token.KW_CAN, token.RBRACE)
		return nil
	}
}

func (p *Parser) parseAbility(inArch bool) *ast.Ability {
	start := p.cur().Span
	p.advance() // def/can/test

	abil := &ast.Ability{}

	// `can X with Y entry/exit` event-handler form.
	name := ""
	if p.at(token.IDENT) {
		name = p.advance().Literal
	}
	abil.Name = name

	if p.at(token.KW_WITH) {
		p.advance()
		if p.at(token.IDENT) {
			abil.EventFilter = p.advance().Literal
		}
		switch p.cur().Kind {
		case token.KW_ENTRY:
			abil.Event = ast.EventEntry
			p.advance()
		case token.KW_EXIT:
			abil.Event = ast.EventExit
			p.advance()
		}
	}

	sig := &ast.FuncSignature{}
	if p.at(token.LPAREN) {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			sig.Params = append(sig.Params, p.parseParam())
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	if p.at(token.ARROW) {
		p.advance()
		sig.ReturnType = p.parseTypeExpr()
	}
	abil.Signature = sig

	if p.at(token.SEMI) {
		p.advance()
		abil.DeclOnly = inArch
		abil.IsAbstract = true
		abil.Sp = source.Join(start, p.prevSpan())
		return abil
	}
	p.expect(token.LBRACE)
	abil.Body = p.parseBlockStatements()
	p.expect(token.RBRACE)
	abil.Sp = source.Join(start, p.prevSpan())
	return abil
}

func (p *Parser) parseParam() *ast.ParamVar {
	start := p.cur().Span
	param := &ast.ParamVar{}
	if p.at(token.STARSTAR) {
		param.IsStarStar = true
		p.advance()
	} else if p.at(token.STAR) {
		param.IsStar = true
		p.advance()
	}
	param.Name = p.expect(token.IDENT).Literal
	if p.at(token.COLON) {
		p.advance()
		param.TypeExpr = p.parseTypeExpr()
	}
	if p.at(token.ASSIGN) {
		p.advance()
		param.Default = p.parseExpr()
	}
	param.Sp = source.Join(start, p.prevSpan())
	return param
}

func (p *Parser) parseEnum() *ast.Enum {
	start := p.cur().Span
	p.advance()
	name := p.expect(token.IDENT).Literal
	e := &ast.Enum{Name: name}
	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		mStart := p.cur().Span
		mName := p.expect(token.IDENT).Literal
		var val ast.Node
		if p.at(token.ASSIGN) {
			p.advance()
			val = p.parseExpr()
		}
		e.Members = append(e.Members, &ast.EnumMember{Base: node(source.Join(mStart, p.prevSpan())), Name: mName, Value: val})
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBRACE)
	e.Sp = source.Join(start, p.prevSpan())
	return e
}

// parseImplSignature parses an impl/method's `(params) -> RetType` clause,
// with the caller positioned at LPAREN.
func (p *Parser) parseImplSignature() *ast.FuncSignature {
	sig := &ast.FuncSignature{}
	p.advance()
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		sig.Params = append(sig.Params, p.parseParam())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	if p.at(token.ARROW) {
		p.advance()
		sig.ReturnType = p.parseTypeExpr()
	}
	return sig
}

// parseImplDef parses a top-level `impl` block. `impl Target.member(sig) {}`
// and `impl Target(sig) {}` bind one method. `impl Target { IDENT: Type =
// default, ... }` supplies Target's has-block. `impl Target { def a() {}
// def b() {} }` contributes several methods by name, one ImplDef per
// method, since symtab/codegen key impl records by (Arch, Member).
func (p *Parser) parseImplDef() []*ast.ImplDef {
	start := p.cur().Span
	p.advance()
	target := p.expect(token.IDENT).Literal

	if p.at(token.DOT) {
		p.advance()
		impl := &ast.ImplDef{TargetArch: target, TargetMember: p.expect(token.IDENT).Literal}
		if p.at(token.LPAREN) {
			impl.Signature = p.parseImplSignature()
		}
		p.expect(token.LBRACE)
		impl.Body = p.parseBlockStatements()
		p.expect(token.RBRACE)
		impl.Sp = source.Join(start, p.prevSpan())
		return []*ast.ImplDef{impl}
	}

	if p.at(token.LPAREN) {
		impl := &ast.ImplDef{TargetArch: target, Signature: p.parseImplSignature()}
		p.expect(token.LBRACE)
		impl.Body = p.parseBlockStatements()
		p.expect(token.RBRACE)
		impl.Sp = source.Join(start, p.prevSpan())
		return []*ast.ImplDef{impl}
	}

	p.expect(token.LBRACE)
	if p.at(token.KW_DEF) || p.at(token.KW_CAN) {
		var impls []*ast.ImplDef
		for !p.at(token.RBRACE) && !p.at(token.EOF) {
			mStart := p.cur().Span
			p.advance() // def/can
			impl := &ast.ImplDef{TargetArch: target, TargetMember: p.expect(token.IDENT).Literal}
			if p.at(token.LPAREN) {
				impl.Signature = p.parseImplSignature()
			} else {
				impl.Signature = &ast.FuncSignature{}
			}
			p.expect(token.LBRACE)
			impl.Body = p.parseBlockStatements()
			p.expect(token.RBRACE)
			impl.Sp = source.Join(mStart, p.prevSpan())
			impls = append(impls, impl)
		}
		p.expect(token.RBRACE)
		return impls
	}

	impl := &ast.ImplDef{TargetArch: target, IsHasImpl: true}
	impl.Body = toNodeSlice(p.parseHasVarList())
	p.consumeSemi()
	p.expect(token.RBRACE)
	impl.Sp = source.Join(start, p.prevSpan())
	return []*ast.ImplDef{impl}
}

func toNodeSlice(vars []*ast.HasVar) []ast.Node {
	out := make([]ast.Node, len(vars))
	for i, v := range vars {
		out[i] = v
	}
	return out
}

// ---- Statements ----

func (p *Parser) parseBlockStatements() []ast.Node {
	var stmts []ast.Node
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		before := p.pos
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == before {
			p.advance()
		}
	}
	return stmts
}

func (p *Parser) parseStatement() ast.Node {
	switch p.cur().Kind {
	case token.KW_IF:
		return p.parseIf()
	case token.KW_WHILE:
		return p.parseWhile()
	case token.KW_FOR:
		return p.parseFor()
	case token.KW_RETURN:
		return p.parseReturn()
	case token.KW_YIELD:
		return p.parseYield()
	case token.KW_BREAK:
		sp := p.advance().Span
		p.consumeSemi()
		return &ast.BreakStmt{Base: node(sp)}
	case token.KW_CONTINUE:
		sp := p.advance().Span
		p.consumeSemi()
		return &ast.ContinueStmt{Base: node(sp)}
	case token.KW_SKIP:
		sp := p.advance().Span
		p.consumeSemi()
		return &ast.SkipStmt{Base: node(sp)}
	case token.KW_DEL:
		return p.parseDelete()
	case token.KW_ASSERT:
		return p.parseAssert()
	case token.KW_RAISE:
		return p.parseRaise()
	case token.KW_TRY:
		return p.parseTry()
	case token.KW_WITH:
		return p.parseWith()
	case token.KW_MATCH:
		return p.parseMatch()
	case token.KW_GLOBAL:
		return p.parseGlobalStmt()
	case token.KW_NONLOCAL:
		return p.parseNonlocalStmt()
	case token.KW_HAS:
		start := p.cur().Span
		p.advance()
		h := &ast.ArchHas{Vars: p.parseHasVarList()}
		p.consumeSemi()
		h.Sp = source.Join(start, p.prevSpan())
		return h
	case token.SEMI:
		p.advance()
		return nil
	default:
		return p.parseSimpleStatement()
	}
}

func (p *Parser) parseIf() *ast.IfStmt {
	start := p.cur().Span
	p.advance()
	cond := p.parseExpr()
	p.expect(token.LBRACE)
	body := p.parseBlockStatements()
	p.expect(token.RBRACE)
	stmt := &ast.IfStmt{Cond: cond, Then: body}
	for p.at(token.KW_ELIF) {
		eStart := p.cur().Span
		p.advance()
		eCond := p.parseExpr()
		p.expect(token.LBRACE)
		eBody := p.parseBlockStatements()
		p.expect(token.RBRACE)
		stmt.Elifs = append(stmt.Elifs, &ast.ElifClause{Base: node(source.Join(eStart, p.prevSpan())), Cond: eCond, Body: eBody})
	}
	if p.at(token.KW_ELSE) {
		p.advance()
		p.expect(token.LBRACE)
		stmt.Else = p.parseBlockStatements()
		p.expect(token.RBRACE)
	}
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

func (p *Parser) parseWhile() *ast.WhileStmt {
	start := p.cur().Span
	p.advance()
	cond := p.parseExpr()
	p.expect(token.LBRACE)
	body := p.parseBlockStatements()
	p.expect(token.RBRACE)
	return &ast.WhileStmt{Base: node(source.Join(start, p.prevSpan())), Cond: cond, Body: body}
}

// parseFor handles both `for x in y { }` and the Jac C-style
// `for i=0 to i<n by i+=1 { }` form.
func (p *Parser) parseFor() *ast.ForStmt {
	start := p.cur().Span
	p.advance()
	stmt := &ast.ForStmt{}

	// Try `for <ident> in <expr>` first.
	if p.at(token.IDENT) && p.peekAt(1).Kind == token.KW_IN {
		target := p.parseAtom()
		p.advance() // KW_IN
		iter := p.parseExpr()
		p.expect(token.LBRACE)
		body := p.parseBlockStatements()
		p.expect(token.RBRACE)
		stmt.Target, stmt.Iter, stmt.Body = target, iter, body
		stmt.Sp = source.Join(start, p.prevSpan())
		return stmt
	}

	stmt.IsCStyle = true
	stmt.Init = p.parseSimpleExprStatement()
	p.expect(token.KW_TO)
	stmt.Cond = p.parseExpr()
	p.expect(token.KW_BY)
	stmt.Step = p.parseSimpleExprStatement()
	p.expect(token.LBRACE)
	stmt.Body = p.parseBlockStatements()
	p.expect(token.RBRACE)
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

// parseSimpleExprStatement parses one assignment/expression without
// consuming a trailing semicolon — used for the init/step clauses of a
// C-style for loop.
func (p *Parser) parseSimpleExprStatement() ast.Node {
	start := p.cur().Span
	expr := p.parseExpr()
	if isAssignOp(p.cur().Kind) {
		op := p.advance().Literal
		rhs := p.parseExpr()
		return &ast.AssignStmt{Base: node(source.Join(start, p.prevSpan())), Targets: []ast.Node{expr}, Op: op, Value: rhs}
	}
	return &ast.ExprStmt{Base: node(source.Join(start, p.prevSpan())), X: expr}
}

func (p *Parser) parseReturn() *ast.ReturnStmt {
	start := p.cur().Span
	p.advance()
	var val ast.Node
	if !p.at(token.SEMI) && !p.at(token.RBRACE) {
		val = p.parseExpr()
	}
	p.consumeSemi()
	return &ast.ReturnStmt{Base: node(source.Join(start, p.prevSpan())), Value: val}
}

func (p *Parser) parseYield() *ast.YieldStmt {
	start := p.cur().Span
	p.advance()
	var val ast.Node
	if !p.at(token.SEMI) && !p.at(token.RBRACE) {
		val = p.parseExpr()
	}
	p.consumeSemi()
	return &ast.YieldStmt{Base: node(source.Join(start, p.prevSpan())), Value: val}
}

func (p *Parser) parseDelete() *ast.DeleteStmt {
	start := p.cur().Span
	p.advance()
	var targets []ast.Node
	targets = append(targets, p.parseExpr())
	for p.at(token.COMMA) {
		p.advance()
		targets = append(targets, p.parseExpr())
	}
	p.consumeSemi()
	return &ast.DeleteStmt{Base: node(source.Join(start, p.prevSpan())), Targets: targets}
}

func (p *Parser) parseAssert() *ast.AssertStmt {
	start := p.cur().Span
	p.advance()
	cond := p.parseExpr()
	var msg ast.Node
	if p.at(token.COMMA) {
		p.advance()
		msg = p.parseExpr()
	}
	p.consumeSemi()
	return &ast.AssertStmt{Base: node(source.Join(start, p.prevSpan())), Cond: cond, Msg: msg}
}

func (p *Parser) parseRaise() *ast.RaiseStmt {
	start := p.cur().Span
	p.advance()
	stmt := &ast.RaiseStmt{}
	if !p.at(token.SEMI) && !p.at(token.RBRACE) {
		stmt.Exc = p.parseExpr()
		if p.at(token.KW_FROM) {
			p.advance()
			stmt.From = p.parseExpr()
		}
	}
	p.consumeSemi()
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

func (p *Parser) parseTry() *ast.TryStmt {
	start := p.cur().Span
	p.advance()
	p.expect(token.LBRACE)
	body := p.parseBlockStatements()
	p.expect(token.RBRACE)
	stmt := &ast.TryStmt{Body: body}
	for p.at(token.KW_EXCEPT) {
		eStart := p.cur().Span
		p.advance()
		clause := &ast.ExceptClause{}
		if !p.at(token.LBRACE) {
			clause.ExcType = p.parsePostfix()
			if p.at(token.KW_AS) {
				p.advance()
				clause.Name = p.expect(token.IDENT).Literal
			}
		}
		p.expect(token.LBRACE)
		clause.Body = p.parseBlockStatements()
		p.expect(token.RBRACE)
		clause.Sp = source.Join(eStart, p.prevSpan())
		stmt.Excepts = append(stmt.Excepts, clause)
	}
	if p.at(token.KW_ELSE) {
		p.advance()
		p.expect(token.LBRACE)
		stmt.Else = p.parseBlockStatements()
		p.expect(token.RBRACE)
	}
	if p.at(token.KW_FINALLY) {
		p.advance()
		p.expect(token.LBRACE)
		stmt.Finally = p.parseBlockStatements()
		p.expect(token.RBRACE)
	}
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

func (p *Parser) parseWith() *ast.WithStmt {
	start := p.cur().Span
	p.advance()
	stmt := &ast.WithStmt{}
	for {
		iStart := p.cur().Span
		ctx := p.parseExpr()
		bind := ""
		if p.at(token.KW_AS) {
			p.advance()
			bind = p.expect(token.IDENT).Literal
		}
		stmt.Items = append(stmt.Items, &ast.WithItem{Base: node(source.Join(iStart, p.prevSpan())), Ctx: ctx, Bind: bind})
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.LBRACE)
	stmt.Body = p.parseBlockStatements()
	p.expect(token.RBRACE)
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

func (p *Parser) parseMatch() *ast.MatchStmt {
	start := p.cur().Span
	p.advance()
	subj := p.parseExpr()
	p.expect(token.LBRACE)
	stmt := &ast.MatchStmt{Subject: subj}
	for p.at(token.KW_CASE) {
		cStart := p.cur().Span
		p.advance()
		pat := p.parseExpr()
		var guard ast.Node
		if p.at(token.KW_IF) {
			p.advance()
			guard = p.parseExpr()
		}
		p.expect(token.COLON)
		var body []ast.Node
		for !p.at(token.KW_CASE) && !p.at(token.RBRACE) && !p.at(token.EOF) {
			before := p.pos
			s := p.parseStatement()
			if s != nil {
				body = append(body, s)
			}
			if p.pos == before {
				p.advance()
			}
		}
		stmt.Cases = append(stmt.Cases, &ast.MatchCase{Base: node(source.Join(cStart, p.prevSpan())), Pattern: pat, Guard: guard, Body: body})
	}
	p.expect(token.RBRACE)
	stmt.Sp = source.Join(start, p.prevSpan())
	return stmt
}

func (p *Parser) parseGlobalStmt() *ast.GlobalStmt {
	start := p.cur().Span
	p.advance()
	var names []string
	names = append(names, p.expect(token.IDENT).Literal)
	for p.at(token.COMMA) {
		p.advance()
		names = append(names, p.expect(token.IDENT).Literal)
	}
	p.consumeSemi()
	return &ast.GlobalStmt{Base: node(source.Join(start, p.prevSpan())), Names: names}
}

func (p *Parser) parseNonlocalStmt() *ast.NonlocalStmt {
	start := p.cur().Span
	p.advance()
	var names []string
	names = append(names, p.expect(token.IDENT).Literal)
	for p.at(token.COMMA) {
		p.advance()
		names = append(names, p.expect(token.IDENT).Literal)
	}
	p.consumeSemi()
	return &ast.NonlocalStmt{Base: node(source.Join(start, p.prevSpan())), Names: names}
}

var assignOps = map[token.Kind]bool{
	token.ASSIGN: true, token.PLUS_ASSIGN: true, token.MINUS_ASSIGN: true,
	token.STAR_ASSIGN: true, token.SLASH_ASSIGN: true,
}

func isAssignOp(k token.Kind) bool { return assignOps[k] }

// parseSimpleStatement parses a bare expression/assignment statement. The
// walker-only `visit <expr>` and `disengage` forms are soft keywords spelled
// as plain identifiers (visit) and disambiguated here rather than in the
// lexer, since the graph-traversal runtime itself is out of scope and these
// only need to round-trip through the AST.
func (p *Parser) parseSimpleStatement() ast.Node {
	start := p.cur().Span
	if id, ok := p.cur(), p.at(token.IDENT); ok && id.Literal == "disengage" && p.peekAt(1).Kind == token.SEMI {
		p.advance()
		p.consumeSemi()
		return &ast.DisengageStmt{Base: node(start)}
	}
	expr := p.parseExpr()
	if p.at(token.IDENT) && expr != nil {
		if id, ok := expr.(*ast.Ident); ok && id.Name == "visit" {
			target := p.parseExpr()
			p.consumeSemi()
			return &ast.VisitStmt{Base: node(source.Join(start, p.prevSpan())), Target: target}
		}
	}
	if isAssignOp(p.cur().Kind) {
		targets := []ast.Node{expr}
		for p.at(token.COMMA) {
			p.advance()
			targets = append(targets, p.parseExpr())
		}
		op := p.advance().Literal
		rhs := p.parseExpr()
		p.consumeSemi()
		return &ast.AssignStmt{Base: node(source.Join(start, p.prevSpan())), Targets: targets, Op: op, Value: rhs}
	}
	p.consumeSemi()
	return &ast.ExprStmt{Base: node(source.Join(start, p.prevSpan())), X: expr}
}

// ---- Expressions (precedence climbing) ----

// precedence table, lowest to highest binding.
var binPrec = map[token.Kind]int{
	token.KW_OR:  1,
	token.KW_AND: 2,
}

func (p *Parser) parseExpr() ast.Node {
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Node {
	start := p.cur().Span
	x := p.parseWalrus()
	if p.at(token.KW_IF) {
		p.advance()
		cond := p.parseWalrus()
		p.expect(token.KW_ELSE)
		els := p.parseTernary()
		return &ast.TernaryExpr{Base: node(source.Join(start, p.prevSpan())), Cond: cond, Then: x, Else: els}
	}
	return x
}

func (p *Parser) parseWalrus() ast.Node {
	if p.at(token.IDENT) && p.peekAt(1).Kind == token.WALRUS {
		start := p.cur().Span
		name := p.advance().Literal
		p.advance() // :=
		val := p.parseOr()
		return &ast.WalrusExpr{Base: node(source.Join(start, p.prevSpan())), Name: name, Value: val}
	}
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Node {
	start := p.cur().Span
	x := p.parseAnd()
	if p.at(token.KW_OR) {
		ops := []ast.Node{x}
		for p.at(token.KW_OR) {
			p.advance()
			ops = append(ops, p.parseAnd())
		}
		return &ast.BoolOpExpr{Base: node(source.Join(start, p.prevSpan())), Op: "or", Operands: ops}
	}
	return x
}

func (p *Parser) parseAnd() ast.Node {
	start := p.cur().Span
	x := p.parseNot()
	if p.at(token.KW_AND) {
		ops := []ast.Node{x}
		for p.at(token.KW_AND) {
			p.advance()
			ops = append(ops, p.parseNot())
		}
		return &ast.BoolOpExpr{Base: node(source.Join(start, p.prevSpan())), Op: "and", Operands: ops}
	}
	return x
}

func (p *Parser) parseNot() ast.Node {
	if p.at(token.KW_NOT) {
		start := p.cur().Span
		p.advance()
		x := p.parseNot()
		return &ast.UnaryExpr{Base: node(source.Join(start, p.prevSpan())), Op: "not", X: x}
	}
	return p.parseComparison()
}

var compareOps = map[token.Kind]string{
	token.EQ: "==", token.NE: "!=", token.LT: "<", token.LE: "<=",
	token.GT: ">", token.GE: ">=", token.KW_IN: "in", token.KW_NIN: "not in",
	token.KW_IS: "is", token.KW_ISN: "is not",
}

func (p *Parser) parseComparison() ast.Node {
	start := p.cur().Span
	x := p.parseBitOr()
	var ops []string
	var rest []ast.Node
	for {
		op, ok := compareOps[p.cur().Kind]
		if !ok {
			break
		}
		p.advance()
		ops = append(ops, op)
		rest = append(rest, p.parseBitOr())
	}
	if len(ops) == 0 {
		return x
	}
	return &ast.CompareExpr{Base: node(source.Join(start, p.prevSpan())), First: x, Ops: ops, Rest: rest}
}

func (p *Parser) parseBitOr() ast.Node {
	return p.parseBinaryLevel(token.PIPE, p.parseBitXor)
}
func (p *Parser) parseBitXor() ast.Node {
	return p.parseBinaryLevel(token.CARET, p.parseBitAnd)
}
func (p *Parser) parseBitAnd() ast.Node {
	return p.parseBinaryLevel(token.AMP, p.parseShift)
}
func (p *Parser) parseShift() ast.Node {
	return p.parseBinaryLevel2(p.parseAdd, token.LSHIFT, token.RSHIFT)
}
func (p *Parser) parseAdd() ast.Node {
	return p.parseBinaryLevel2(p.parseMul, token.PLUS, token.MINUS)
}
func (p *Parser) parseMul() ast.Node {
	return p.parseBinaryLevel2(p.parseUnary, token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT)
}

func (p *Parser) parseBinaryLevel(k token.Kind, next func() ast.Node) ast.Node {
	start := p.cur().Span
	x := next()
	for p.at(k) {
		op := p.advance().Literal
		y := next()
		x = &ast.BinaryExpr{Base: node(source.Join(start, p.prevSpan())), Op: op, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseBinaryLevel2(next func() ast.Node, kinds ...token.Kind) ast.Node {
	start := p.cur().Span
	x := next()
	for {
		matched := false
		for _, k := range kinds {
			if p.at(k) {
				op := p.advance().Literal
				y := next()
				x = &ast.BinaryExpr{Base: node(source.Join(start, p.prevSpan())), Op: op, X: x, Y: y}
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}
	return x
}

func (p *Parser) parseUnary() ast.Node {
	if p.at(token.MINUS) || p.at(token.PLUS) || p.at(token.TILDE) {
		start := p.cur().Span
		op := p.advance().Literal
		x := p.parseUnary()
		return &ast.UnaryExpr{Base: node(source.Join(start, p.prevSpan())), Op: op, X: x}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() ast.Node {
	start := p.cur().Span
	x := p.parsePostfix()
	if p.at(token.STARSTAR) {
		p.advance()
		y := p.parseUnary() // right-associative
		return &ast.BinaryExpr{Base: node(source.Join(start, p.prevSpan())), Op: "**", X: x, Y: y}
	}
	return x
}

func (p *Parser) parsePostfix() ast.Node {
	start := p.cur().Span
	x := p.parseAtom()
	for {
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			attr := p.expect(token.IDENT).Literal
			x = &ast.AttrExpr{Base: node(source.Join(start, p.prevSpan())), X: x, Attr: attr}
		case token.QDOT:
			p.advance()
			attr := p.expect(token.IDENT).Literal
			x = &ast.AttrExpr{Base: node(source.Join(start, p.prevSpan())), X: x, Attr: attr, Optional: true}
		case token.LPAREN:
			x = p.parseCallTail(x, start)
		case token.LBRACK:
			x = p.parseIndexOrSlice(x, start)
		default:
			return x
		}
	}
}

func (p *Parser) parseCallTail(callee ast.Node, start source.Span) ast.Node {
	p.advance() // (
	call := &ast.CallExpr{Callee: callee}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		argStart := p.cur().Span
		arg := &ast.CallArg{}
		if p.at(token.STARSTAR) {
			arg.IsStarStar = true
			p.advance()
		} else if p.at(token.STAR) {
			arg.IsStar = true
			p.advance()
		} else if p.at(token.IDENT) && p.peekAt(1).Kind == token.ASSIGN {
			arg.Name = p.advance().Literal
			p.advance()
		}
		arg.Value = p.parseExpr()
		arg.Sp = source.Join(argStart, p.prevSpan())
		call.Args = append(call.Args, arg)
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	call.Sp = source.Join(start, p.prevSpan())
	return call
}

func (p *Parser) parseIndexOrSlice(x ast.Node, start source.Span) ast.Node {
	p.advance() // [
	var low, high, step ast.Node
	isSlice := false
	if !p.at(token.COLON) {
		low = p.parseExpr()
	}
	if p.at(token.COLON) {
		isSlice = true
		p.advance()
		if !p.at(token.COLON) && !p.at(token.RBRACK) {
			high = p.parseExpr()
		}
		if p.at(token.COLON) {
			p.advance()
			if !p.at(token.RBRACK) {
				step = p.parseExpr()
			}
		}
	}
	p.expect(token.RBRACK)
	if isSlice {
		return &ast.SliceExpr{Base: node(source.Join(start, p.prevSpan())), X: x, Low: low, High: high, Step: step}
	}
	return &ast.IndexExpr{Base: node(source.Join(start, p.prevSpan())), X: x, Index: low}
}

func (p *Parser) parseAtom() ast.Node {
	start := p.cur().Span
	switch p.cur().Kind {
	case token.IDENT:
		t := p.advance()
		return &ast.Ident{Base: node(t.Span), Name: t.Literal}
	case token.INT:
		t := p.advance()
		return &ast.IntLit{Base: node(t.Span), Raw: t.Literal}
	case token.FLOAT:
		t := p.advance()
		return &ast.FloatLit{Base: node(t.Span), Raw: t.Literal}
	case token.STRING:
		t := p.advance()
		return &ast.StringLit{Base: node(t.Span), Raw: t.Literal}
	case token.KW_TRUE:
		t := p.advance()
		return &ast.BoolLit{Base: node(t.Span), Value: true}
	case token.KW_FALSE:
		t := p.advance()
		return &ast.BoolLit{Base: node(t.Span), Value: false}
	case token.KW_NONE:
		t := p.advance()
		return &ast.NoneLit{Base: node(t.Span)}
	case token.FSTR_START, token.RAW_FSTR_START:
		return p.parseFString()
	case token.LPAREN:
		p.advance()
		if p.at(token.RPAREN) {
			p.advance()
			return &ast.TupleLit{Base: node(source.Join(start, p.prevSpan()))}
		}
		first := p.parseExpr()
		if p.at(token.COMMA) {
			elems := []ast.Node{first}
			for p.at(token.COMMA) {
				p.advance()
				if p.at(token.RPAREN) {
					break
				}
				elems = append(elems, p.parseExpr())
			}
			p.expect(token.RPAREN)
			return &ast.TupleLit{Base: node(source.Join(start, p.prevSpan())), Elems: elems}
		}
		p.expect(token.RPAREN)
		return first
	case token.LBRACK:
		return p.parseListOrComprehension(start)
	case token.LBRACE:
		return p.parseDictOrSetOrComprehension(start)
	case token.KW_LAMBDA:
		return p.parseLambda(start)
	case token.ESCAPED_NAME:
		t := p.advance()
		return &ast.Ident{Base: node(t.Span), Name: t.Literal}
	default:
		p.errorf("unexpected token %s %q in expression", p.cur().Kind, p.cur().Literal)
		t := p.advance()
		return &ast.Ident{Base: node(t.Span), Name: t.Literal}
	}
}

func (p *Parser) parseLambda(start source.Span) ast.Node {
	p.advance()
	lam := &ast.LambdaExpr{}
	for !p.at(token.COLON) && !p.at(token.EOF) {
		lam.Params = append(lam.Params, p.parseParam())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.COLON)
	lam.Body = p.parseExpr()
	lam.Sp = source.Join(start, p.prevSpan())
	return lam
}

func (p *Parser) parseListOrComprehension(start source.Span) ast.Node {
	p.advance() // [
	if p.at(token.RBRACK) {
		p.advance()
		return &ast.ListLit{Base: node(source.Join(start, p.prevSpan()))}
	}
	first := p.parseExpr()
	if p.at(token.KW_FOR) {
		comp := p.parseComprehensionTail("list", first, nil)
		p.expect(token.RBRACK)
		comp.Sp = source.Join(start, p.prevSpan())
		return comp
	}
	elems := []ast.Node{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACK) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(token.RBRACK)
	return &ast.ListLit{Base: node(source.Join(start, p.prevSpan())), Elems: elems}
}

func (p *Parser) parseComprehensionTail(kind string, elem ast.Node, dictVal ast.Node) *ast.Comprehension {
	p.advance() // for
	target := p.parseAtom()
	p.expect(token.KW_IN)
	iter := p.parseOr()
	comp := &ast.Comprehension{Kind: kind, Elem: elem, DictVal: dictVal, Target: target, Iter: iter}
	for p.at(token.KW_IF) {
		p.advance()
		comp.Ifs = append(comp.Ifs, p.parseOr())
	}
	return comp
}

func (p *Parser) parseDictOrSetOrComprehension(start source.Span) ast.Node {
	p.advance() // {
	if p.at(token.RBRACE) {
		p.advance()
		return &ast.DictLit{Base: node(source.Join(start, p.prevSpan()))}
	}
	firstKey := p.parseExpr()
	if p.at(token.COLON) {
		p.advance()
		firstVal := p.parseExpr()
		if p.at(token.KW_FOR) {
			comp := p.parseComprehensionTail("dict", firstKey, firstVal)
			p.expect(token.RBRACE)
			comp.Sp = source.Join(start, p.prevSpan())
			return comp
		}
		entries := []*ast.DictEntry{{Key: firstKey, Value: firstVal}}
		for p.at(token.COMMA) {
			p.advance()
			if p.at(token.RBRACE) {
				break
			}
			k := p.parseExpr()
			p.expect(token.COLON)
			v := p.parseExpr()
			entries = append(entries, &ast.DictEntry{Key: k, Value: v})
		}
		p.expect(token.RBRACE)
		return &ast.DictLit{Base: node(source.Join(start, p.prevSpan())), Entries: entries}
	}
	if p.at(token.KW_FOR) {
		comp := p.parseComprehensionTail("set", firstKey, nil)
		p.expect(token.RBRACE)
		comp.Sp = source.Join(start, p.prevSpan())
		return comp
	}
	elems := []ast.Node{firstKey}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACE) {
			break
		}
		elems = append(elems, p.parseExpr())
	}
	p.expect(token.RBRACE)
	return &ast.SetLit{Base: node(source.Join(start, p.prevSpan())), Elems: elems}
}

// parseFString consumes the FSTR_START ... FSTR_END fragment run emitted by
// the lexer's mode stack, parsing embedded expressions recursively.
func (p *Parser) parseFString() *ast.FString {
	start := p.cur().Span
	isRaw := p.at(token.RAW_FSTR_START)
	p.advance()
	fs := &ast.FString{IsRaw: isRaw}
	for {
		switch p.cur().Kind {
		case token.FSTR_TEXT:
			t := p.advance()
			fs.Parts = append(fs.Parts, &ast.StringLit{Base: node(t.Span), Raw: t.Literal})
		case token.FSTR_ESC_LBRACE, token.FSTR_ESC_RBRACE:
			t := p.advance()
			lit := "{"
			if t.Kind == token.FSTR_ESC_RBRACE {
				lit = "}"
			}
			fs.Parts = append(fs.Parts, &ast.StringLit{Base: node(t.Span), Raw: lit})
		case token.FSTR_LBRACE:
			p.advance()
			expr := p.parseExpr()
			fs.Parts = append(fs.Parts, expr)
			if p.at(token.FSTR_RBRACE) {
				p.advance()
			} else {
				p.errorf("expected closing brace in f-string expression")
			}
		case token.FSTR_END, token.RAW_FSTR_END:
			p.advance()
			fs.Sp = source.Join(start, p.prevSpan())
			return fs
		case token.EOF:
			p.errorf("unterminated f-string")
			fs.Sp = source.Join(start, p.prevSpan())
			return fs
		default:
			p.errorf("unexpected token %s inside f-string", p.cur().Kind)
			p.advance()
		}
	}
}
