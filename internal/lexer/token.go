package lexer

import "github.com/dekarrin/nova/internal/source"

// Kind is the discriminator for a Token, analogous to the teacher's
// tokenClass in internal/tunascript/lexer.go but covering the full Nova
// surface grammar (keywords, identifiers, the three literal families,
// punctuation, and the multi-character operators from spec §4.1) rather
// than tunascript's small operator-only set.
type Kind int

const (
	EOF Kind = iota
	Error

	Identifier
	Keyword

	IntLiteral
	FloatLiteral
	StringLiteral
	CharLiteral

	// Punctuation and operators.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Dot
	Colon
	Tilde

	Assign     // =
	Eq         // ==
	NotEq      // !=
	Lt         // <
	Gt         // >
	LtEq       // <=
	GtEq       // >=
	AndAnd     // &&
	OrOr       // ||
	Not        // !
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %
	PlusPlus   // ++
	MinusMinus // --
	PlusEq     // +=
	MinusEq    // -=
	StarEq     // *=
	SlashEq    // /=
	PercentEq  // %=
)

// keywords is the fixed keyword table from spec §4.1/§6. A lexeme that
// exactly matches one of these is classified Keyword instead of
// Identifier.
var keywords = map[string]bool{
	"namespace": true, "class": true, "void": true, "bool": true,
	"char": true, "int": true, "long": true, "float": true,
	"double": true, "string": true, "this": true, "new": true,
	"if": true, "else": true, "while": true, "for": true,
	"return": true, "break": true, "continue": true, "using": true,
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "readonly": true, "virtual": true, "override": true,
	"abstract": true, "extern": true, "true": true, "false": true,
	"null": true,
}

// IsKeyword reports whether lexeme exactly matches an entry of the fixed
// keyword table.
func IsKeyword(lexeme string) bool {
	return keywords[lexeme]
}

// LiteralSuffix records the optional trailing type-suffix letter on a
// numeric literal (spec §4.1: L/l, F/f, D/d).
type LiteralSuffix int

const (
	NoSuffix LiteralSuffix = iota
	LongSuffix
	FloatSuffix
	DoubleSuffix
)

// Token is one lexed unit: its class, its exact source slice, its
// location, and (for literals) a decoded value. A stream always ends with
// an explicit EOF token, per spec §4.1.
type Token struct {
	Kind     Kind
	Lexeme   string
	Location source.Location

	// Suffix is valid only for IntLiteral/FloatLiteral.
	Suffix LiteralSuffix

	// IntValue/FloatValue/StringValue hold the decoded literal value. Only
	// the field matching Kind is meaningful.
	IntValue    int64
	FloatValue  float64
	StringValue string // decoded StringLiteral/CharLiteral text (escapes resolved)
}

func (t Token) String() string {
	return t.Lexeme
}
