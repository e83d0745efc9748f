package lexer

import (
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

// Error is the Literal payload of an ERROR token.
type Error struct {
	Category diag.Category
	Reason   string
}

func (e Error) Error() string {
	return e.Reason
}

func (e Error) String() string {
	return e.Reason
}

// ErrorOf converts an ERROR token into its diagnostic.
func ErrorOf(tok token.Token) diag.Diagnostic {
	e, ok := tok.Literal.(Error)
	if !ok {
		e = Error{Category: diag.UnexpectedCharacter, Reason: "malformed token"}
	}
	return diag.Diagnostic{
		Severity: diag.Error,
		Phase:    diag.LexPhase,
		Category: e.Category,
		Message:  e.Reason,
		Span:     tok.Span,
	}
}
