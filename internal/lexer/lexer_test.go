package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kindsOf(toks []Token) []Kind {
	var out []Kind
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func Test_Lex_kindSequence(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect []Kind
	}{
		{name: "empty file", input: "", expect: []Kind{EOF}},
		{name: "identifier", input: "foo", expect: []Kind{Identifier, EOF}},
		{name: "keyword", input: "class", expect: []Kind{Keyword, EOF}},
		{name: "int literal", input: "42", expect: []Kind{IntLiteral, EOF}},
		{name: "long literal", input: "42L", expect: []Kind{IntLiteral, EOF}},
		{name: "float literal", input: "3.14", expect: []Kind{FloatLiteral, EOF}},
		{name: "float with exponent", input: "1.5e10", expect: []Kind{FloatLiteral, EOF}},
		{name: "double suffix on int", input: "7d", expect: []Kind{FloatLiteral, EOF}},
		{name: "string literal", input: `"hi"`, expect: []Kind{StringLiteral, EOF}},
		{name: "char literal", input: `'a'`, expect: []Kind{CharLiteral, EOF}},
		{name: "line comment is whitespace", input: "// hello\nint", expect: []Kind{Keyword, EOF}},
		{name: "block comment is whitespace", input: "/* hi */ int", expect: []Kind{Keyword, EOF}},
		{
			name:  "operators longest match",
			input: "== != <= >= && || ++ -- += -=",
			expect: []Kind{
				Eq, NotEq, LtEq, GtEq, AndAnd, OrOr, PlusPlus, MinusMinus, PlusEq, MinusEq, EOF,
			},
		},
		{
			name:  "member access call",
			input: "a.b(1, 2)",
			expect: []Kind{
				Identifier, Dot, Identifier, LParen, IntLiteral, Comma, IntLiteral, RParen, EOF,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stream, errs := Lex(tc.input, "test.nova")
			assert.Empty(t, errs)
			assert.Equal(t, tc.expect, kindsOf(stream.Tokens))
		})
	}
}

func Test_Lex_unterminatedString_oneError(t *testing.T) {
	_, errs := Lex(`"hello`, "test.nova")
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Location.ColStart)
}

func Test_Lex_unknownEscape(t *testing.T) {
	_, errs := Lex(`"a\qb"`, "test.nova")
	assert.Len(t, errs, 1)
}

func Test_Lex_emptyCharLiteral(t *testing.T) {
	_, errs := Lex(`''`, "test.nova")
	assert.Len(t, errs, 1)
}

func Test_Lex_multiCharLiteral(t *testing.T) {
	_, errs := Lex(`'ab'`, "test.nova")
	assert.Len(t, errs, 1)
}

func Test_Lex_exponentNoDigits(t *testing.T) {
	_, errs := Lex(`1.0e`, "test.nova")
	assert.Len(t, errs, 1)
}

func Test_Lex_unterminatedBlockComment(t *testing.T) {
	_, errs := Lex(`/* never closed`, "test.nova")
	assert.Len(t, errs, 1)
}

func Test_Lex_locationsAreOneBasedAndOrdered(t *testing.T) {
	stream, errs := Lex("int x\n= 5;", "test.nova")
	assert.Empty(t, errs)
	for _, tok := range stream.Tokens {
		assert.True(t, tok.Location.Valid())
		assert.GreaterOrEqual(t, tok.Location.LineStart, 1)
		assert.GreaterOrEqual(t, tok.Location.ColStart, 1)
	}
	assert.Equal(t, 2, stream.Tokens[2].Location.LineStart) // '=' on second line
}

func Test_Lex_deterministic(t *testing.T) {
	src := "class C { int add(int a, int b) { return a + b; } }"
	s1, _ := Lex(src, "f.nova")
	s2, _ := Lex(src, "f.nova")
	assert.Equal(t, kindsOf(s1.Tokens), kindsOf(s2.Tokens))
}
