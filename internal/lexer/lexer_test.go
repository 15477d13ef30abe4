package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacc/internal/source"
	"jacc/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func lex(t *testing.T, text string) []token.Token {
	t.Helper()
	src := source.New([]byte(text), "test.jac")
	l := New(src, nil)
	toks := l.Tokenize()
	require.Empty(t, l.Diagnostics, "unexpected diagnostics: %v", l.Diagnostics)
	return toks
}

func TestKeywordsAndIdent(t *testing.T) {
	toks := lex(t, "walker Foo can bar")
	assert.Equal(t, []token.Kind{token.KW_WALKER, token.IDENT, token.KW_CAN, token.IDENT, token.EOF}, kinds(toks))
}

func TestNotInAndIsNot(t *testing.T) {
	toks := lex(t, "x not in y; a is not b")
	assert.Equal(t, []token.Kind{
		token.IDENT, token.KW_NIN, token.IDENT, token.SEMI,
		token.IDENT, token.KW_ISN, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestNumbers(t *testing.T) {
	toks := lex(t, "0x1F 0b101 1_000 3.14 2e10")
	require.Len(t, toks, 6)
	assert.Equal(t, token.INT, toks[0].Kind)
	assert.Equal(t, token.INT, toks[1].Kind)
	assert.Equal(t, token.INT, toks[2].Kind)
	assert.Equal(t, token.FLOAT, toks[3].Kind)
	assert.Equal(t, token.FLOAT, toks[4].Kind)
}

func TestBlockComment(t *testing.T) {
	toks := lex(t, "x #* nested #* comment *# still *# y")
	assert.Equal(t, []token.Kind{token.IDENT, token.IDENT, token.EOF}, kinds(toks))
}

func TestUnknownCharacterProducesErrorAndContinues(t *testing.T) {
	src := source.New([]byte("x $ y"), "test.jac")
	l := New(src, nil)
	toks := l.Tokenize()
	require.Len(t, l.Diagnostics, 1)
	assert.Equal(t, []token.Kind{token.IDENT, token.ERROR, token.IDENT, token.EOF}, kinds(toks))
}

func TestUnterminatedSingleQuoteStopsAtEOL(t *testing.T) {
	src := source.New([]byte("'abc\ndef"), "test.jac")
	l := New(src, nil)
	toks := l.Tokenize()
	require.NotEmpty(t, l.Diagnostics)
	assert.Equal(t, token.STRING, toks[0].Kind)
}

func TestSimpleFString(t *testing.T) {
	toks := lex(t, `f"hi {name}!"`)
	assert.Equal(t, []token.Kind{
		token.FSTR_START, token.FSTR_TEXT, token.FSTR_LBRACE,
		token.IDENT, token.FSTR_RBRACE, token.FSTR_TEXT, token.FSTR_END, token.EOF,
	}, kinds(toks))
}

func TestFStringEscapedBraces(t *testing.T) {
	toks := lex(t, `f"{{literal}}"`)
	assert.Equal(t, []token.Kind{
		token.FSTR_START, token.FSTR_ESC_LBRACE, token.FSTR_TEXT, token.FSTR_ESC_RBRACE, token.FSTR_END, token.EOF,
	}, kinds(toks))
}

func TestFStringNestedBracesInExpr(t *testing.T) {
	toks := lex(t, `f"{ {1:2}[1] }"`)
	// The dict literal's own '{'/'}' must nest the expression's brace
	// counter, not be mistaken for the f-string expression's closing brace.
	assert.Equal(t, []token.Kind{
		token.FSTR_START, token.FSTR_LBRACE,
		token.LBRACE, token.INT, token.COLON, token.INT, token.RBRACE,
		token.LBRACK, token.INT, token.RBRACK,
		token.FSTR_RBRACE, token.FSTR_END, token.EOF,
	}, kinds(toks))
}

func TestEscapedName(t *testing.T) {
	toks := lex(t, "<>type")
	assert.Equal(t, []token.Kind{token.ESCAPED_NAME, token.EOF}, kinds(toks))
}

func TestOperators(t *testing.T) {
	toks := lex(t, "a:=1 b->c ?. ** // <= >=")
	assert.Equal(t, []token.Kind{
		token.IDENT, token.WALRUS, token.INT,
		token.IDENT, token.ARROW, token.IDENT,
		token.QDOT, token.STARSTAR, token.SLASHSLASH, token.LE, token.GE, token.EOF,
	}, kinds(toks))
}

func TestTripleQuotedStringSpansNewlines(t *testing.T) {
	toks := lex(t, "\"\"\"line1\nline2\"\"\"")
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
}
