// Package lexer turns a source buffer into an ordered token stream. It is a
// single-pass, non-restartable, deterministic scanner: it never aborts
// mid-stream (unknown bytes become a single ERROR token) and always
// terminates the stream with an EOF sentinel.
package lexer

import (
	"strings"

	"jacc/internal/diag"
	"jacc/internal/logging"
	"jacc/internal/source"
	"jacc/internal/token"
)

// mode is one entry of the lexer's mode stack (§4.2).
type mode int

const (
	modeNormal mode = iota
	modeFStrSingle
	modeFStrTriple
	modeFStrRawSingle
	modeFStrRawTriple
)

type modeFrame struct {
	m         mode
	quote     byte
	braceDepth int // nesting counter for the FSTRING_EXPR sub-mode that owns this frame
}

// Lexer scans one Source into a token list.
type Lexer struct {
	src    *source.Source
	buf    []byte
	offset int

	modes []modeFrame // mode stack; modes[len-1] is current
	// Auxiliary stack of saved brace-nesting counters, one per FSTRING_EXPR
	// entered from a text-scanning mode (§4.2).
	exprDepths []int

	Diagnostics []diag.Alert
	log         *logging.Logger
}

// New creates a Lexer over src. log may be nil.
func New(src *source.Source, log *logging.Logger) *Lexer {
	return &Lexer{
		src:   src,
		buf:   src.Bytes,
		modes: []modeFrame{{m: modeNormal}},
		log:   log,
	}
}

func (l *Lexer) debugf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Debug(format, args...)
	}
}

func (l *Lexer) curMode() *modeFrame { return &l.modes[len(l.modes)-1] }
func (l *Lexer) pushMode(f modeFrame) { l.modes = append(l.modes, f) }
func (l *Lexer) popMode() {
	if len(l.modes) > 1 {
		l.modes = l.modes[:len(l.modes)-1]
	}
}

func (l *Lexer) peek(off int) byte {
	i := l.offset + off
	if i < 0 || i >= len(l.buf) {
		return 0
	}
	return l.buf[i]
}

func (l *Lexer) cur() byte { return l.peek(0) }
func (l *Lexer) atEOF() bool { return l.offset >= len(l.buf) }

func (l *Lexer) emit(kind token.Kind, start int) token.Token {
	return token.Token{Kind: kind, Literal: string(l.buf[start:l.offset]), Span: source.NewSpan(l.src, start, l.offset)}
}

// Tokenize runs the full single pass and returns the ordered token list,
// always ending with EOF.
func (l *Lexer) Tokenize() []token.Token {
	var toks []token.Token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	l.debugf("tokenize produced %d tokens (%d diagnostics)", len(toks), len(l.Diagnostics))
	return toks
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || isDigit(b) }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }
func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

func (l *Lexer) next() token.Token {
	if l.curMode().m != modeNormal {
		if tok, ok := l.scanFStringFragment(); ok {
			return tok
		}
	}
	l.skipSpaceAndComments()
	start := l.offset
	if l.atEOF() {
		return token.Token{Kind: token.EOF, Span: source.NewSpan(l.src, start, start)}
	}

	b := l.cur()
	switch {
	case isIdentStart(b):
		return l.scanIdentOrStringPrefix(start)
	case isDigit(b):
		return l.scanNumber(start)
	case b == '"' || b == '\'':
		return l.scanPlainString(start, b, "")
	case b == '<':
		if l.peek(1) == '>' {
			l.offset += 2
			// <>name escaped identifier
			idStart := l.offset
			for !l.atEOF() && isIdentCont(l.cur()) {
				l.offset++
			}
			_ = idStart
			return l.emit(token.ESCAPED_NAME, start)
		}
		return l.scanOperator(start)
	default:
		return l.scanOperator(start)
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		for !l.atEOF() && isSpace(l.cur()) {
			l.offset++
		}
		if l.atEOF() {
			return
		}
		if l.cur() == '#' && l.peek(1) == '*' {
			l.skipBlockComment()
			continue
		}
		if l.cur() == '#' {
			for !l.atEOF() && l.cur() != '\n' {
				l.offset++
			}
			continue
		}
		return
	}
}

// skipBlockComment consumes a #* ... *# comment whose nesting must balance.
func (l *Lexer) skipBlockComment() {
	start := l.offset
	depth := 0
	for !l.atEOF() {
		if l.cur() == '#' && l.peek(1) == '*' {
			depth++
			l.offset += 2
			continue
		}
		if l.cur() == '*' && l.peek(1) == '#' {
			depth--
			l.offset += 2
			if depth == 0 {
				return
			}
			continue
		}
		l.offset++
	}
	l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, l.offset), "unterminated block comment"))
}

// scanIdentOrStringPrefix handles identifiers, keywords, two-word keywords
// (not in / is not), and the f/r/b string-prefix forms.
func (l *Lexer) scanIdentOrStringPrefix(start int) token.Token {
	for !l.atEOF() && isIdentCont(l.cur()) {
		l.offset++
	}
	text := string(l.buf[start:l.offset])
	lower := strings.ToLower(text)

	if (lower == "f" || lower == "r" || lower == "b" || lower == "rf" || lower == "fr" || lower == "rb" || lower == "br") && !l.atEOF() && (l.cur() == '"' || l.cur() == '\'') {
		quote := l.cur()
		isF := strings.Contains(lower, "f")
		isRaw := strings.Contains(lower, "r")
		if isF {
			return l.openFString(start, quote, isRaw)
		}
		return l.scanPlainString(start, quote, lower)
	}

	kind, ok := token.Lookup(lower)
	if !ok {
		return token.Token{Kind: token.IDENT, Literal: text, Span: source.NewSpan(l.src, start, l.offset)}
	}

	// Two-word tokens: "not in" -> KW_NIN, "is not" -> KW_ISN.
	if kind == token.KW_NOT {
		save := l.offset
		l.skipSpaceAndComments()
		if l.matchKeyword("in") {
			return token.Token{Kind: token.KW_NIN, Literal: string(l.buf[start:l.offset]), Span: source.NewSpan(l.src, start, l.offset)}
		}
		l.offset = save
	}
	if kind == token.KW_IS {
		save := l.offset
		l.skipSpaceAndComments()
		if l.matchKeyword("not") {
			return token.Token{Kind: token.KW_ISN, Literal: string(l.buf[start:l.offset]), Span: source.NewSpan(l.src, start, l.offset)}
		}
		l.offset = save
	}

	return token.Token{Kind: kind, Literal: text, Span: source.NewSpan(l.src, start, l.offset)}
}

// matchKeyword consumes `word` at the current offset if it matches exactly
// (word boundary respected); returns false and leaves offset untouched
// otherwise.
func (l *Lexer) matchKeyword(word string) bool {
	end := l.offset + len(word)
	if end > len(l.buf) {
		return false
	}
	if !strings.EqualFold(string(l.buf[l.offset:end]), word) {
		return false
	}
	if end < len(l.buf) && isIdentCont(l.buf[end]) {
		return false
	}
	l.offset = end
	return true
}

func (l *Lexer) scanNumber(start int) token.Token {
	isFloat := false
	if l.cur() == '0' && (l.peek(1) == 'x' || l.peek(1) == 'X') {
		l.offset += 2
		for !l.atEOF() && (isHex(l.cur()) || l.cur() == '_') {
			l.offset++
		}
		return l.emit(token.INT, start)
	}
	if l.cur() == '0' && (l.peek(1) == 'b' || l.peek(1) == 'B') {
		l.offset += 2
		for !l.atEOF() && (l.cur() == '0' || l.cur() == '1' || l.cur() == '_') {
			l.offset++
		}
		return l.emit(token.INT, start)
	}
	if l.cur() == '0' && (l.peek(1) == 'o' || l.peek(1) == 'O') {
		l.offset += 2
		for !l.atEOF() && (l.cur() >= '0' && l.cur() <= '7' || l.cur() == '_') {
			l.offset++
		}
		return l.emit(token.INT, start)
	}
	for !l.atEOF() && (isDigit(l.cur()) || l.cur() == '_') {
		l.offset++
	}
	if l.cur() == '.' && isDigit(l.peek(1)) {
		isFloat = true
		l.offset++
		for !l.atEOF() && (isDigit(l.cur()) || l.cur() == '_') {
			l.offset++
		}
	}
	if l.cur() == 'e' || l.cur() == 'E' {
		save := l.offset
		l.offset++
		if l.cur() == '+' || l.cur() == '-' {
			l.offset++
		}
		if isDigit(l.cur()) {
			isFloat = true
			for !l.atEOF() && isDigit(l.cur()) {
				l.offset++
			}
		} else {
			l.offset = save
		}
	}
	if isFloat {
		return l.emit(token.FLOAT, start)
	}
	return l.emit(token.INT, start)
}

// scanPlainString scans a non-interpolated string literal (optionally
// prefixed by r/b/rb/br). Triple-quoted strings may contain newlines;
// single-quoted ones stop at end-of-line if unterminated.
func (l *Lexer) scanPlainString(start int, quote byte, prefix string) token.Token {
	l.offset++ // consume opening quote
	triple := false
	if l.cur() == quote && l.peek(1) == quote {
		triple = true
		l.offset += 2
	}
	for {
		if l.atEOF() {
			l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, l.offset), "unterminated string literal"))
			return l.emit(token.STRING, start)
		}
		if !triple && l.cur() == '\n' {
			l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, l.offset), "unterminated string literal"))
			return l.emit(token.STRING, start)
		}
		if l.cur() == '\\' && !strings.Contains(prefix, "r") {
			l.offset += 2
			continue
		}
		if l.cur() == quote {
			if triple {
				if l.peek(1) == quote && l.peek(2) == quote {
					l.offset += 3
					return l.emit(token.STRING, start)
				}
				l.offset++
				continue
			}
			l.offset++
			return l.emit(token.STRING, start)
		}
		l.offset++
	}
}

// openFString opens an interpolated-string literal: pushes the matching
// text-scanning mode and emits the FSTR_START/RAW_FSTR_START token.
func (l *Lexer) openFString(start int, quote byte, raw bool) token.Token {
	l.offset++ // opening quote
	triple := false
	if l.cur() == quote && l.peek(1) == quote {
		triple = true
		l.offset += 2
	}
	var m mode
	switch {
	case raw && triple:
		m = modeFStrRawTriple
	case raw && !triple:
		m = modeFStrRawSingle
	case !raw && triple:
		m = modeFStrTriple
	default:
		m = modeFStrSingle
	}
	l.pushMode(modeFrame{m: m, quote: quote})
	kind := token.FSTR_START
	if raw {
		kind = token.RAW_FSTR_START
	}
	return l.emit(kind, start)
}

func (l *Lexer) curFrameIsTriple() bool {
	m := l.curMode().m
	return m == modeFStrTriple || m == modeFStrRawTriple
}

// scanFStringFragment implements the interpolated-string mode discipline of
// §4.2: emits F_TEXT fragments until the closing quote, a doubled brace, or
// a single '{' that re-enters expression mode.
func (l *Lexer) scanFStringFragment() (token.Token, bool) {
	frame := l.curMode()
	quote := frame.quote
	triple := l.curFrameIsTriple()
	start := l.offset

	if l.atEOF() {
		l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, start), "unterminated f-string"))
		l.popMode()
		return token.Token{Kind: token.FSTR_END, Span: source.NewSpan(l.src, start, start)}, true
	}

	// Closing quote.
	if l.cur() == quote {
		if triple {
			if l.peek(1) == quote && l.peek(2) == quote {
				l.offset += 3
				l.popMode()
				return l.emit(token.FSTR_END, start), true
			}
		} else {
			l.offset++
			l.popMode()
			return l.emit(token.FSTR_END, start), true
		}
	}

	// Doubled-brace escapes.
	if l.cur() == '{' && l.peek(1) == '{' {
		l.offset += 2
		return l.emit(token.FSTR_ESC_LBRACE, start), true
	}
	if l.cur() == '}' && l.peek(1) == '}' {
		l.offset += 2
		return l.emit(token.FSTR_ESC_RBRACE, start), true
	}

	// Single '{' re-enters expression mode.
	if l.cur() == '{' {
		l.offset++
		l.exprDepths = append(l.exprDepths, 0)
		l.pushMode(modeFrame{m: modeNormal})
		return l.emit(token.FSTR_LBRACE, start), true
	}

	if !triple && l.cur() == '\n' {
		l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, start), "unterminated f-string"))
		l.popMode()
		return l.emit(token.FSTR_END, start), true
	}

	// Literal text fragment: consume until the next quote/brace boundary.
	for !l.atEOF() {
		if l.cur() == quote || l.cur() == '{' || l.cur() == '}' {
			break
		}
		if !triple && l.cur() == '\n' {
			break
		}
		l.offset++
	}
	if l.offset == start {
		// Shouldn't happen, but avoid an infinite loop.
		l.offset++
	}
	return l.emit(token.FSTR_TEXT, start), true
}

// handleExprBrace is invoked from the normal-mode operator scanner when a
// literal '{' or '}' appears while inside an FSTRING_EXPR sub-mode: it
// adjusts the nesting counter and, on '}' returning to zero, pops back to
// the surrounding text-scanning mode (§4.2).
func (l *Lexer) handleExprBrace(open bool) (popped bool, closeTok bool) {
	if len(l.exprDepths) == 0 {
		return false, false
	}
	top := len(l.exprDepths) - 1
	if open {
		l.exprDepths[top]++
		return false, false
	}
	if l.exprDepths[top] == 0 {
		l.exprDepths = l.exprDepths[:top]
		l.popMode() // leave modeNormal, restore the text-scanning mode
		return true, true
	}
	l.exprDepths[top]--
	return false, false
}

func (l *Lexer) scanOperator(start int) token.Token {
	b := l.cur()

	if b == '{' {
		l.offset++
		l.handleExprBrace(true)
		return l.emit(token.LBRACE, start)
	}
	if b == '}' {
		l.offset++
		popped, isClose := l.handleExprBrace(false)
		if popped && isClose {
			return l.emit(token.FSTR_RBRACE, start)
		}
		return l.emit(token.RBRACE, start)
	}

	four := l.window(4)
	if k, ok := fourCharOps[four]; ok {
		l.offset += 4
		return l.emit(k, start)
	}
	three := l.window(3)
	if k, ok := threeCharOps[three]; ok {
		l.offset += 3
		return l.emit(k, start)
	}
	two := l.window(2)
	if k, ok := twoCharOps[two]; ok {
		l.offset += 2
		return l.emit(k, start)
	}
	if k, ok := oneCharOps[string(b)]; ok {
		l.offset++
		return l.emit(k, start)
	}

	l.offset++
	l.Diagnostics = append(l.Diagnostics, diag.New(diag.SyntaxError, source.NewSpan(l.src, start, l.offset), "unexpected character %q", b))
	return l.emit(token.ERROR, start)
}

func (l *Lexer) window(n int) string {
	end := l.offset + n
	if end > len(l.buf) {
		end = len(l.buf)
	}
	return string(l.buf[l.offset:end])
}

var fourCharOps = map[string]token.Kind{}

var threeCharOps = map[string]token.Kind{}

var twoCharOps = map[string]token.Kind{
	"**": token.STARSTAR, "//": token.SLASHSLASH, "<<": token.LSHIFT, ">>": token.RSHIFT,
	"==": token.EQ, "!=": token.NE, "<=": token.LE, ">=": token.GE,
	"+=": token.PLUS_ASSIGN, "-=": token.MINUS_ASSIGN, "*=": token.STAR_ASSIGN, "/=": token.SLASH_ASSIGN,
	":=": token.WALRUS, "->": token.ARROW, "..": token.DOTDOT, "?.": token.QDOT,
}

var oneCharOps = map[string]token.Kind{
	"+": token.PLUS, "-": token.MINUS, "*": token.STAR, "/": token.SLASH, "%": token.PERCENT,
	"&": token.AMP, "|": token.PIPE, "^": token.CARET, "~": token.TILDE,
	"=": token.ASSIGN, "<": token.LT, ">": token.GT,
	"(": token.LPAREN, ")": token.RPAREN, "[": token.LBRACK, "]": token.RBRACK,
	"{": token.LBRACE, "}": token.RBRACE,
	",": token.COMMA, ":": token.COLON, ";": token.SEMI, ".": token.DOT,
	"?": token.QUESTION, "@": token.AT,
}
