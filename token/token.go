package token

import "fmt"

type Kind int

const (
	EOF Kind = iota
	ERROR
	COMMENT

	// Literals and identifiers.
	IDENT
	LIFETIME
	INTEGER
	STRING
	CHAR

	// Keywords.
	AS
	BREAK
	CONST
	CONTINUE
	CRATE
	DYN
	ELSE
	ENUM
	EXTERN
	FALSE
	FN
	FOR
	IF
	IMPL
	IN
	LET
	LOOP
	MATCH
	MOD
	MOVE
	MUT
	PUB
	REF
	RETURN
	SELFVALUE
	SELFTYPE
	STATIC
	STRUCT
	SUPER
	TRAIT
	TRUE
	TYPE
	UNSAFE
	USE
	WHERE
	WHILE

	// Delimiters.
	LEFTPAREN
	RIGHTPAREN
	LEFTBRACE
	RIGHTBRACE
	LEFTBRACKET
	RIGHTBRACKET

	// Punctuation and operators.
	COMMA
	SEMICOLON
	COLON
	COLONCOLON
	DOT
	DOTDOT
	DOTDOTDOT
	DOTDOTEQ
	QUESTION
	SHARP
	AT
	DOLLAR
	UNDERSCORE
	ARROW
	FATARROW
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	CARET
	BANG
	AMP
	PIPE
	AMPAMP
	PIPEPIPE
	SHL
	SHR
	EQ
	EQEQ
	NE
	LT
	LE
	GT
	GE
	PLUSEQ
	MINUSEQ
	STAREQ
	SLASHEQ
	PERCENTEQ
	CARETEQ
	AMPEQ
	PIPEEQ
	SHLEQ
	SHREQ

	kindCount
)

// Span locates a token or node in the source. Line and Column are 1-based,
// Column counts runes; Offset and Length are in bytes.
type Span struct {
	Line   int
	Column int
	Offset int
	Length int
}

func (s Span) End() int {
	return s.Offset + s.Length
}

// To returns the span covering s through other.
func (s Span) To(other Span) Span {
	if other.End() <= s.Offset {
		return s
	}
	s.Length = other.End() - s.Offset
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

type Token struct {
	Kind   Kind
	Lexeme string
	Span   Span
	// Literal holds the decoded value: IntLit for INTEGER, StrLit for STRING,
	// CharLit for CHAR, the bool value for TRUE and FALSE, and a reason for ERROR.
	Literal any
	// Raw is set for raw identifiers (r#type): the lexeme is the bare name and
	// the token is never a keyword.
	Raw bool
}

func (t Token) Pretty() string {
	if t.Kind == EOF {
		return "end of file"
	}
	if t.Raw {
		return "r#" + t.Lexeme
	}
	return t.Lexeme
}

func (t Token) String() string {
	return fmt.Sprintf("{%v, %q, %v, %v}", t.Kind, t.Lexeme, t.Span, t.Literal)
}

// IsTrivia reports whether the token carries no syntax.
func (t Token) IsTrivia() bool {
	return t.Kind == COMMENT
}

type Radix int

const (
	Decimal Radix = 10
	Hex     Radix = 16
	Octal   Radix = 8
	Binary  Radix = 2
)

func (r Radix) Prefix() string {
	switch r {
	case Hex:
		return "0x"
	case Octal:
		return "0o"
	case Binary:
		return "0b"
	default:
		return ""
	}
}

type IntLit struct {
	Value  uint64
	Radix  Radix
	Suffix string
	// Overflow is set when the digits do not fit in 64 bits.
	Overflow bool
}

func (i IntLit) String() string {
	if i.Overflow {
		return "overflow" + i.Suffix
	}
	return fmt.Sprintf("%d%s", i.Value, i.Suffix)
}

type StrLit struct {
	Value string
	// Prefix is one of "", "r", "b", "br", "c", "cr".
	Prefix string
}

func (s StrLit) String() string {
	return s.Prefix + fmt.Sprintf("%q", s.Value)
}

func (s StrLit) IsRaw() bool {
	return s.Prefix == "r" || s.Prefix == "br" || s.Prefix == "cr"
}

type CharLit struct {
	Value rune
	Byte  bool
}

func (c CharLit) String() string {
	if c.Byte {
		return "b" + fmt.Sprintf("%q", c.Value)
	}
	return fmt.Sprintf("%q", c.Value)
}
