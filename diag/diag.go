// Package diag holds the diagnostics shared by the lexer, the parser and the
// semantic analyzer.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Phase is the pipeline stage that produced a diagnostic.
type Phase int

const (
	LexPhase Phase = iota
	SyntaxPhase
	SemanticPhase
)

func (p Phase) String() string {
	switch p {
	case LexPhase:
		return "LexError"
	case SyntaxPhase:
		return "SyntaxError"
	case SemanticPhase:
		return "SemanticError"
	default:
		return "UnknownError"
	}
}

type Diagnostic struct {
	Severity Severity
	Phase    Phase
	Category Category
	Message  string
	Span     token.Span
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%v: %v[%s]: %s", d.Span, d.Severity, d.Category, d.Message)
}

// List is an ordered collection of diagnostics for one compilation unit.
type List []Diagnostic

func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Errorf appends an error-severity diagnostic.
func (l *List) Errorf(phase Phase, category Category, span token.Span, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Error,
		Phase:    phase,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Warnf appends a warning; warnings never block acceptance.
func (l *List) Warnf(phase Phase, category Category, span token.Span, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Warning,
		Phase:    phase,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

func (l List) HasErrors() bool {
	return slices.ContainsFunc(l, func(d Diagnostic) bool { return d.Severity == Error })
}

func (l List) ErrorCount() int {
	n := 0
	for _, d := range l {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// Count returns the number of diagnostics with the given category.
func (l List) Count(category Category) int {
	n := 0
	for _, d := range l {
		if d.Category == category {
			n++
		}
	}
	return n
}

// Sorted returns a copy ordered by source position. Diagnostics at the same
// position keep their emission order.
func (l List) Sorted() List {
	sorted := slices.Clone(l)
	slices.SortStableFunc(sorted, func(a, b Diagnostic) int {
		return a.Span.Offset - b.Span.Offset
	})
	return sorted
}

// Err joins the error-severity diagnostics, or returns nil when there are none.
func (l List) Err() error {
	var errs []error
	for _, d := range l {
		if d.Severity == Error {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}

func (l List) String() string {
	var b strings.Builder
	for _, d := range l {
		b.WriteString(d.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// ErrorAt attaches a token position to a plain error.
type ErrorAt struct {
	Where token.Token
	Err   error
}

func (e ErrorAt) Error() string {
	if e.Where.Kind == token.EOF {
		return fmt.Sprintf("at end: %s", e.Err.Error())
	}
	return fmt.Sprintf("at %v: `%s`, %s", e.Where.Span, e.Where.Pretty(), e.Err.Error())
}

func (e ErrorAt) Unwrap() error {
	return e.Err
}
