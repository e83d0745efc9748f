package diag

type Category string

// Lexer categories.
const (
	UnexpectedCharacter Category = "unexpected-character"
	UnterminatedString  Category = "unterminated-string"
	UnterminatedChar    Category = "unterminated-char"
	UnterminatedComment Category = "unterminated-comment"
	InvalidEscape       Category = "invalid-escape"
	InvalidDigit        Category = "invalid-digit"
	InvalidSuffix       Category = "invalid-suffix"
	InvalidCharLiteral  Category = "invalid-char-literal"
)

// Parser categories.
const (
	UnexpectedToken     Category = "unexpected-token"
	UnbalancedDelimiter Category = "unbalanced-delimiter"
	MalformedItem       Category = "malformed-item"
	MisplacedAssignment Category = "misplaced-assignment"
)

// Semantic categories.
const (
	UndeclaredIdentifier Category = "undeclared-identifier"
	UndeclaredType       Category = "undeclared-type"
	DuplicateDeclaration Category = "duplicate-declaration"
	ArityMismatch        Category = "arity-mismatch"
	UnknownField         Category = "unknown-field"
	Mutability           Category = "mutability"
	UnresolvedMethod     Category = "unresolved-method"
	InvalidControlFlow   Category = "invalid-control-flow"
	MissingReturn        Category = "missing-return"
	TypeMismatch         Category = "type-mismatch"
	NonConstantLength    Category = "non-constant-length"
	MissingPartialEq     Category = "missing-partial-eq"
	IntegerOverflow      Category = "integer-overflow"
)
