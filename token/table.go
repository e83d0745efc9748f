package token

// The tables below are built once at package initialization and never
// mutated, so concurrent lexers share them without locking.

var kindNames = [kindCount]string{
	EOF:      "EOF",
	ERROR:    "ERROR",
	COMMENT:  "COMMENT",
	IDENT:    "IDENT",
	LIFETIME: "LIFETIME",
	INTEGER:  "INTEGER",
	STRING:   "STRING",
	CHAR:     "CHAR",
}

var keywords = map[string]Kind{
	"as":       AS,
	"break":    BREAK,
	"const":    CONST,
	"continue": CONTINUE,
	"crate":    CRATE,
	"dyn":      DYN,
	"else":     ELSE,
	"enum":     ENUM,
	"extern":   EXTERN,
	"false":    FALSE,
	"fn":       FN,
	"for":      FOR,
	"if":       IF,
	"impl":     IMPL,
	"in":       IN,
	"let":      LET,
	"loop":     LOOP,
	"match":    MATCH,
	"mod":      MOD,
	"move":     MOVE,
	"mut":      MUT,
	"pub":      PUB,
	"ref":      REF,
	"return":   RETURN,
	"self":     SELFVALUE,
	"Self":     SELFTYPE,
	"static":   STATIC,
	"struct":   STRUCT,
	"super":    SUPER,
	"trait":    TRAIT,
	"true":     TRUE,
	"type":     TYPE,
	"unsafe":   UNSAFE,
	"use":      USE,
	"where":    WHERE,
	"while":    WHILE,
}

var operators = map[string]Kind{
	"(":   LEFTPAREN,
	")":   RIGHTPAREN,
	"{":   LEFTBRACE,
	"}":   RIGHTBRACE,
	"[":   LEFTBRACKET,
	"]":   RIGHTBRACKET,
	",":   COMMA,
	";":   SEMICOLON,
	":":   COLON,
	"::":  COLONCOLON,
	".":   DOT,
	"..":  DOTDOT,
	"...": DOTDOTDOT,
	"..=": DOTDOTEQ,
	"?":   QUESTION,
	"#":   SHARP,
	"@":   AT,
	"$":   DOLLAR,
	"->":  ARROW,
	"=>":  FATARROW,
	"+":   PLUS,
	"-":   MINUS,
	"*":   STAR,
	"/":   SLASH,
	"%":   PERCENT,
	"^":   CARET,
	"!":   BANG,
	"&":   AMP,
	"|":   PIPE,
	"&&":  AMPAMP,
	"||":  PIPEPIPE,
	"<<":  SHL,
	">>":  SHR,
	"=":   EQ,
	"==":  EQEQ,
	"!=":  NE,
	"<":   LT,
	"<=":  LE,
	">":   GT,
	">=":  GE,
	"+=":  PLUSEQ,
	"-=":  MINUSEQ,
	"*=":  STAREQ,
	"/=":  SLASHEQ,
	"%=":  PERCENTEQ,
	"^=":  CARETEQ,
	"&=":  AMPEQ,
	"|=":  PIPEEQ,
	"<<=": SHLEQ,
	">>=": SHREQ,
}

// MaxOperatorLen is the length of the longest operator spelling.
const MaxOperatorLen = 3

func init() {
	for text, kind := range keywords {
		kindNames[kind] = text
	}
	for text, kind := range operators {
		kindNames[kind] = text
	}
	kindNames[UNDERSCORE] = "_"
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount || kindNames[k] == "" {
		return "Kind(?)"
	}
	return kindNames[k]
}

// Describe renders the kind the way diagnostics name an expected token.
func (k Kind) Describe() string {
	switch k {
	case EOF:
		return "end of file"
	case IDENT:
		return "identifier"
	case LIFETIME:
		return "lifetime"
	case INTEGER:
		return "integer literal"
	case STRING:
		return "string literal"
	case CHAR:
		return "character literal"
	case ERROR, COMMENT:
		return k.String()
	default:
		return "`" + k.String() + "`"
	}
}

// Keyword returns the keyword kind for an identifier spelling.
func Keyword(text string) (Kind, bool) {
	k, ok := keywords[text]
	return k, ok
}

// Operator returns the kind for an exact operator spelling.
func Operator(text string) (Kind, bool) {
	k, ok := operators[text]
	return k, ok
}

func (k Kind) IsKeyword() bool {
	return k >= AS && k <= WHILE
}

// IsAssign reports whether k is `=` or a compound assignment operator.
func (k Kind) IsAssign() bool {
	return k == EQ || (k >= PLUSEQ && k <= SHREQ)
}

// BinaryOf maps a compound assignment operator to its binary operator.
func (k Kind) BinaryOf() Kind {
	switch k {
	case PLUSEQ:
		return PLUS
	case MINUSEQ:
		return MINUS
	case STAREQ:
		return STAR
	case SLASHEQ:
		return SLASH
	case PERCENTEQ:
		return PERCENT
	case CARETEQ:
		return CARET
	case AMPEQ:
		return AMP
	case PIPEEQ:
		return PIPE
	case SHLEQ:
		return SHL
	case SHREQ:
		return SHR
	default:
		return k
	}
}

// IntSuffixes lists the integer type suffixes accepted on literals.
var IntSuffixes = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
}
