package parser

import (
	"errors"
	"strings"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

type Options struct {
	// Script accepts statements at the top level and gathers them into an
	// implicit main function.
	Script bool
}

type Parser struct {
	tokens  []token.Token
	current int
	file    *ast.File
	diags   diag.List
	opts    Options

	// open holds the closers of the delimiters consumed so far, innermost
	// last.
	open []token.Kind
	// unbalanced is set when the last error was a delimiter mismatch.
	unbalanced bool
	// noStruct is set while parsing the head of if, while, for and match, where
	// `{` opens the body instead of a struct literal.
	noStruct bool
	// lastErr is the offset of the last reported error, so one bad token is
	// reported once.
	lastErr int
}

// bailout unwinds the parser to the nearest item boundary.
type bailout struct{}

// Parse builds a best-effort AST for tokens. Syntax errors are reported as
// diagnostics; parsing resumes at the next item boundary.
func Parse(tokens []token.Token, opts Options) (*ast.File, diag.List) {
	return NewParser(tokens, opts).ParseFile()
}

func NewParser(tokens []token.Token, opts Options) *Parser {
	// The parser splits `>>` in place, so it works on its own copy.
	tokens = slices.Clone(tokens)
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.EOF {
		var span token.Span
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1].Span
			span = token.Span{Line: last.Line, Column: last.Column + last.Length, Offset: last.End()}
		}
		tokens = append(tokens, token.Token{Kind: token.EOF, Span: span})
	}
	return &Parser{
		tokens:  tokens,
		file:    &ast.File{Arena: ast.NewArena()},
		opts:    opts,
		lastErr: -1,
	}
}

// file = innerAttr* (item | stmt)* EOF ;
func (p *Parser) ParseFile() (*ast.File, diag.List) {
	for p.match(token.SHARP) && p.peekNth(1).Kind == token.BANG {
		p.file.Attrs = append(p.file.Attrs, p.attribute())
	}

	var script []ast.ID
	scriptTail := ast.NoID
	var scriptStart token.Token
	for !p.IsAtEnd() {
		if closer(p.peek().Kind) {
			tok := p.advance()
			p.report(diag.UnbalancedDelimiter, tok.Span, "unexpected closing delimiter %s", tok.Kind.Describe())
			continue
		}
		if p.atItemStart() || !p.opts.Script {
			p.file.Items = append(p.file.Items, p.item())
			continue
		}
		if len(script) == 0 && !scriptTail.Valid() {
			scriptStart = p.peek()
		}
		if scriptTail.Valid() {
			script = append(script, p.file.Add(&ast.ExprStmt{Meta: ast.Meta{Span: p.file.Span(scriptTail)}, X: scriptTail}))
			scriptTail = ast.NoID
		}
		stmt, tail := p.topLevelStmt()
		if stmt.Valid() {
			script = append(script, stmt)
		}
		scriptTail = tail
	}

	if len(script) > 0 || scriptTail.Valid() {
		body := p.file.Add(&ast.Block{Meta: p.meta(scriptStart), Stmts: script, Tail: scriptTail})
		main := &ast.Function{
			Meta:     p.meta(scriptStart),
			Name:     ast.Ident{Name: "main", Span: scriptStart.Span},
			Body:     body,
			Implicit: true,
		}
		p.file.Items = append(p.file.Items, p.file.Add(main))
	}

	return p.file, p.diags
}

// topLevelStmt parses one script statement, recovering like an item.
func (p *Parser) topLevelStmt() (stmt ast.ID, tail ast.ID) {
	start := p.current
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize(0, start)
			p.closeTo(0)
			if name := p.declaredName(start); name.Name != "" {
				first := p.tokens[start]
				p.file.Items = append(p.file.Items, p.add(&ast.BadItem{Meta: p.meta(first), Name: name}))
			}
			stmt, tail = ast.NoID, ast.NoID
		}
	}()
	return p.statement(token.EOF)
}

// synchronize skips tokens after a syntax error until the next item
// boundary at depth: an item keyword, or just past the `}` or `;` that
// returns to depth. After a delimiter mismatch an item keyword ends the
// skip at any depth.
func (p *Parser) synchronize(depth, start int) {
	anyDepth := p.unbalanced
	p.unbalanced = false
	if p.current == start && !p.IsAtEnd() {
		p.advance()
	}
	for !p.IsAtEnd() {
		if p.depth() <= depth {
			if closer(p.peek().Kind) && depth > 0 {
				return
			}
			if p.atItemStart() {
				return
			}
		} else if anyDepth && p.atItemStart() {
			return
		}
		tok := p.advance()
		if anyDepth && tok.Kind == token.SEMICOLON {
			p.closeGroups()
		}
		if p.depth() <= depth && (tok.Kind == token.RIGHTBRACE || tok.Kind == token.SEMICOLON) {
			return
		}
	}
}

// depth is the number of open delimiters.
func (p Parser) depth() int {
	return len(p.open)
}

// closeGroups drops the parentheses and brackets opened inside the innermost
// brace, which a `;` cannot be part of.
func (p *Parser) closeGroups() {
	for len(p.open) > 0 && p.open[len(p.open)-1] != token.RIGHTBRACE {
		p.open = p.open[:len(p.open)-1]
	}
}

// closeTo drops the delimiters opened past depth.
func (p *Parser) closeTo(depth int) {
	if len(p.open) > depth {
		p.open = p.open[:depth]
	}
}

func (p *Parser) meta(start token.Token) ast.Meta {
	return ast.Meta{Span: start.Span.To(p.previous().Span)}
}

func (p *Parser) add(n ast.Node) ast.ID {
	return p.file.Add(n)
}

// report records a syntax diagnostic unless one was already reported at the
// same position.
func (p *Parser) report(category diag.Category, span token.Span, format string, args ...any) {
	if span.Offset == p.lastErr {
		return
	}
	p.lastErr = span.Offset
	p.diags.Errorf(diag.SyntaxPhase, category, span, format, args...)
}

// recover records err and keeps parsing.
func (p *Parser) recover(err error) {
	where := p.peek()
	var at diag.ErrorAt
	if errors.As(err, &at) {
		where = at.Where
		err = at.Err
	}
	if where.Kind == token.ERROR {
		// Already reported by the lexer.
		p.lastErr = where.Span.Offset
		return
	}
	category := diag.UnexpectedToken
	if p.mismatched(where, err) {
		category = diag.UnbalancedDelimiter
	}
	p.unbalanced = category == diag.UnbalancedDelimiter
	p.report(category, where.Span, "%s", err.Error())
}

// mismatched reports whether err at where means a delimiter was left open or
// closed by the wrong closer.
func (p Parser) mismatched(where token.Token, err error) bool {
	if where.Kind == token.EOF {
		return p.depth() > 0
	}
	var unexpected UnexpectedTokenError
	if !errors.As(err, &unexpected) {
		return false
	}
	if p.depth() == 0 {
		return closer(where.Kind)
	}
	innermost := p.open[len(p.open)-1]
	if closer(where.Kind) {
		return where.Kind != innermost
	}
	// `(1;` and `[1, 2;` end a statement inside an open group.
	return where.Kind == token.SEMICOLON && innermost != token.RIGHTBRACE
}

// fail records err and abandons the current item.
func (p *Parser) fail(err error) {
	p.recover(err)
	panic(bailout{})
}

func (p Parser) peek() token.Token {
	return p.peekNth(0)
}

func (p Parser) peekNth(n int) token.Token {
	if p.current+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+n]
}

func (p *Parser) advance() token.Token {
	if !p.IsAtEnd() {
		switch kind := p.peek().Kind; {
		case opener(kind):
			p.open = append(p.open, closerOf(kind))
		case closer(kind):
			// A closer also closes the groups left open inside its own. A
			// closer with no opener is ignored.
			for i := len(p.open) - 1; i >= 0; i-- {
				if p.open[i] == kind {
					p.open = p.open[:i]
					break
				}
			}
		}
		p.current++
	}
	return p.previous()
}

func (p Parser) previous() token.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

func (p Parser) IsAtEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p Parser) match(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

func (p Parser) matchNth(n int, kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peekNth(n).Kind)
}

// eat consumes the current token if it has kind.
func (p *Parser) eat(kind token.Kind) bool {
	if p.match(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(kind token.Kind) token.Token {
	if p.match(kind) {
		return p.advance()
	}
	p.fail(unexpectedToken(p.peek(), kind.Describe()))
	return p.peek()
}

func (p *Parser) ident() ast.Ident {
	tok := p.consume(token.IDENT)
	return ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw}
}

// expectGT consumes one `>` closing a generic list. A token starting with
// `>` (`>>`, `>=`, `>>=`) is split: its first character is consumed and the
// remainder stays as the current token.
func (p *Parser) expectGT() {
	tok := p.peek()
	var rest token.Kind
	switch tok.Kind {
	case token.GT:
		p.advance()
		return
	case token.SHR:
		rest = token.GT
	case token.GE:
		rest = token.EQ
	case token.SHREQ:
		rest = token.GE
	default:
		p.fail(unexpectedToken(tok, "`>`"))
	}
	p.tokens[p.current] = token.Token{
		Kind:   rest,
		Lexeme: tok.Lexeme[1:],
		Span: token.Span{
			Line:   tok.Span.Line,
			Column: tok.Span.Column + 1,
			Offset: tok.Span.Offset + 1,
			Length: tok.Span.Length - 1,
		},
	}
}

func opener(k token.Kind) bool {
	return k == token.LEFTPAREN || k == token.LEFTBRACE || k == token.LEFTBRACKET
}

func closer(k token.Kind) bool {
	return k == token.RIGHTPAREN || k == token.RIGHTBRACE || k == token.RIGHTBRACKET
}

func closerOf(k token.Kind) token.Kind {
	switch k {
	case token.LEFTPAREN:
		return token.RIGHTPAREN
	case token.LEFTBRACKET:
		return token.RIGHTBRACKET
	default:
		return token.RIGHTBRACE
	}
}

// delimited consumes a balanced token group starting at an opening
// delimiter and returns the tokens strictly inside it.
func (p *Parser) delimited() []token.Token {
	open := p.peek()
	if !opener(open.Kind) {
		p.fail(unexpectedToken(open, "`(`", "`[`", "`{`"))
	}
	p.advance()
	var stack []token.Kind
	stack = append(stack, closerOf(open.Kind))
	var inner []token.Token
	for {
		tok := p.peek()
		switch {
		case tok.Kind == token.EOF:
			p.fail(unexpectedToken(tok, stack[len(stack)-1].Describe()))
		case opener(tok.Kind):
			stack = append(stack, closerOf(tok.Kind))
		case closer(tok.Kind):
			if tok.Kind != stack[len(stack)-1] {
				p.fail(unexpectedToken(tok, stack[len(stack)-1].Describe()))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				p.advance()
				return inner
			}
		}
		inner = append(inner, p.advance())
	}
}

type UnexpectedTokenError struct {
	Expected []string
	Found    token.Token
}

func (e UnexpectedTokenError) Error() string {
	var b strings.Builder
	b.WriteString("expected ")
	for i, exp := range e.Expected {
		switch {
		case i == 0:
		case i == len(e.Expected)-1:
			b.WriteString(" or ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(exp)
	}
	b.WriteString(", found ")
	if e.Found.Kind == token.EOF {
		b.WriteString("end of file")
	} else {
		b.WriteString("`" + e.Found.Pretty() + "`")
	}
	return b.String()
}

func unexpectedToken(t token.Token, expected ...string) error {
	return diag.ErrorAt{Where: t, Err: UnexpectedTokenError{Expected: expected, Found: t}}
}
