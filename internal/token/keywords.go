package token

// keywords maps a lowercased identifier to its keyword Kind. True/False/
// None keep their Jac surface casing in kindNames but are matched
// case-insensitively here, as the lexer lowercases before lookup.
var keywords = map[string]Kind{
	"and": KW_AND, "as": KW_AS, "assert": KW_ASSERT, "break": KW_BREAK, "by": KW_BY,
	"can": KW_CAN, "case": KW_CASE, "class": KW_CLASS, "continue": KW_CONTINUE,
	"def": KW_DEF, "del": KW_DEL, "edge": KW_EDGE, "elif": KW_ELIF, "else": KW_ELSE,
	"entry": KW_ENTRY, "enum": KW_ENUM, "except": KW_EXCEPT, "exit": KW_EXIT,
	"false": KW_FALSE, "finally": KW_FINALLY, "for": KW_FOR, "from": KW_FROM,
	"global": KW_GLOBAL, "has": KW_HAS, "if": KW_IF, "impl": KW_IMPL,
	"import": KW_IMPORT, "in": KW_IN, "include": KW_INCLUDE, "is": KW_IS,
	"lambda": KW_LAMBDA, "match": KW_MATCH, "node": KW_NODE, "none": KW_NONE,
	"nonlocal": KW_NONLOCAL, "not": KW_NOT, "obj": KW_OBJ, "or": KW_OR,
	"raise": KW_RAISE, "return": KW_RETURN, "skip": KW_SKIP, "test": KW_TEST,
	"to": KW_TO, "true": KW_TRUE, "try": KW_TRY, "walker": KW_WALKER,
	"while": KW_WHILE, "with": KW_WITH, "yield": KW_YIELD,
}

// Lookup resolves a lowercased identifier text to a keyword Kind.
func Lookup(lower string) (Kind, bool) {
	k, ok := keywords[lower]
	return k, ok
}
