package parser

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// Binding power of binary operators, loosest first.
const (
	precLowest = iota
	precAssign
	precRange
	precOr
	precAnd
	precCmp
	precBitOr
	precXor
	precBitAnd
	precShift
	precAdd
	precMul
	precCast
)

func binaryPrec(k token.Kind) int {
	switch k {
	case token.PIPEPIPE:
		return precOr
	case token.AMPAMP:
		return precAnd
	case token.EQEQ, token.NE, token.LT, token.LE, token.GT, token.GE:
		return precCmp
	case token.PIPE:
		return precBitOr
	case token.CARET:
		return precXor
	case token.AMP:
		return precBitAnd
	case token.SHL, token.SHR:
		return precShift
	case token.PLUS, token.MINUS:
		return precAdd
	case token.STAR, token.SLASH, token.PERCENT:
		return precMul
	case token.AS:
		return precCast
	}
	return precLowest
}

// allowStruct runs f with struct literals re-enabled, as inside delimiters.
func allowStruct[T any](p *Parser, f func() T) T {
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()
	return f()
}

// expr = assignment ;
//
// Assignment outside statement position is reported but still parsed.
func (p *Parser) expr() ast.ID {
	return p.assignment(false)
}

// assignment = range (("=" | "+=" | "-=" | ...) assignment)? ;
func (p *Parser) assignment(allowed bool) ast.ID {
	left := p.rangeExpr()
	if !p.peek().Kind.IsAssign() {
		return left
	}
	op := p.advance()
	right := p.assignment(allowed)
	if !allowed {
		p.report(diag.MisplacedAssignment, op.Span, "assignment `%s` is only allowed as a statement", op.Lexeme)
	}
	return p.add(&ast.Assign{Meta: ast.Meta{Span: p.file.Span(left).To(p.previous().Span)}, Op: op, Left: left, Right: right})
}

// range = (".." | "..=") or? | or ((".." | "..=") or?)? ;
func (p *Parser) rangeExpr() ast.ID {
	start := p.peek()
	lo := ast.NoID
	if !p.match(token.DOTDOT, token.DOTDOTEQ) {
		lo = p.binary(precOr)
		if !p.match(token.DOTDOT, token.DOTDOTEQ) {
			return lo
		}
	}
	op := p.advance()
	r := &ast.Range{Lo: lo, Inclusive: op.Kind == token.DOTDOTEQ}
	if p.canStartExpr() {
		r.Hi = p.binary(precOr)
	} else if r.Inclusive {
		p.fail(unexpectedToken(p.peek(), "expression"))
	}
	r.Meta = p.meta(start)
	return p.add(r)
}

// canStartExpr reports whether the current token can begin an expression.
func (p Parser) canStartExpr() bool {
	switch p.peek().Kind {
	case token.IDENT, token.INTEGER, token.STRING, token.CHAR, token.TRUE, token.FALSE, token.ERROR,
		token.SELFVALUE, token.SELFTYPE, token.CRATE, token.SUPER, token.COLONCOLON,
		token.LEFTPAREN, token.LEFTBRACKET, token.MINUS, token.BANG, token.STAR, token.AMP, token.AMPAMP,
		token.PIPE, token.PIPEPIPE, token.MOVE, token.IF, token.MATCH, token.LOOP, token.WHILE, token.FOR,
		token.UNSAFE, token.RETURN, token.BREAK, token.CONTINUE, token.LIFETIME, token.DOTDOT, token.DOTDOTEQ:
		return true
	case token.LEFTBRACE:
		return !p.noStruct
	}
	return false
}

// binary = unary (binop unary | "as" type)* ;
//
// Operators are climbed by binaryPrec; all binary operators are left
// associative.
func (p *Parser) binary(minPrec int) ast.ID {
	return p.binaryFrom(p.unary(), minPrec)
}

func (p *Parser) binaryFrom(left ast.ID, minPrec int) ast.ID {
	for {
		op := p.peek()
		prec := binaryPrec(op.Kind)
		if prec == precLowest || prec < minPrec {
			return left
		}
		p.advance()
		span := p.file.Span(left)
		if op.Kind == token.AS {
			typ := p.typ()
			left = p.add(&ast.Cast{Meta: ast.Meta{Span: span.To(p.previous().Span)}, X: left, Type: typ})
			continue
		}
		right := p.binary(prec + 1)
		left = p.add(&ast.Binary{Meta: ast.Meta{Span: span.To(p.previous().Span)}, Op: op, Left: left, Right: right})
	}
}

// unary = ("-" | "!" | "*") unary | ("&" | "&&") "mut"? unary | postfix ;
func (p *Parser) unary() ast.ID {
	start := p.peek()
	switch start.Kind {
	case token.MINUS, token.BANG, token.STAR:
		p.advance()
		x := p.unary()
		return p.add(&ast.Unary{Meta: p.meta(start), Op: start.Kind, X: x})
	case token.AMP, token.AMPAMP:
		p.advance()
		mut := p.eat(token.MUT)
		x := p.unary()
		id := p.add(&ast.Ref{Meta: p.meta(start), Mut: mut, X: x})
		if start.Kind == token.AMPAMP {
			id = p.add(&ast.Ref{Meta: p.meta(start), X: id})
		}
		return id
	}
	return p.postfixOps(p.primary())
}

// postfix = primary ("?" | "." (IDENT | INTEGER) ("::" genericArgs)? callArgs? | callArgs | "[" expr "]")* ;
func (p *Parser) postfixOps(x ast.ID) ast.ID {
	for {
		span := p.file.Span(x)
		switch p.peek().Kind {
		case token.QUESTION:
			p.advance()
			x = p.add(&ast.Try{Meta: ast.Meta{Span: span.To(p.previous().Span)}, X: x})
		case token.DOT:
			p.advance()
			var name ast.Ident
			if p.match(token.INTEGER) {
				tok := p.advance()
				name = ast.Ident{Name: tok.Lexeme, Span: tok.Span}
				x = p.add(&ast.FieldAccess{Meta: ast.Meta{Span: span.To(tok.Span)}, X: x, Name: name})
				continue
			}
			name = p.ident()
			var generics []ast.ID
			if p.match(token.COLONCOLON) && p.matchNth(1, token.LT) {
				p.advance()
				generics = p.genericArgs()
			}
			if p.match(token.LEFTPAREN) {
				args := p.callArgs()
				x = p.add(&ast.MethodCall{Meta: ast.Meta{Span: span.To(p.previous().Span)}, Receiver: x, Name: name, Generics: generics, Args: args})
				continue
			}
			x = p.add(&ast.FieldAccess{Meta: ast.Meta{Span: span.To(p.previous().Span)}, X: x, Name: name})
		case token.LEFTPAREN:
			args := p.callArgs()
			x = p.add(&ast.Call{Meta: ast.Meta{Span: span.To(p.previous().Span)}, Func: x, Args: args})
		case token.LEFTBRACKET:
			p.advance()
			index := allowStruct(p, p.expr)
			p.consume(token.RIGHTBRACKET)
			x = p.add(&ast.Index{Meta: ast.Meta{Span: span.To(p.previous().Span)}, X: x, Index: index})
		default:
			return x
		}
	}
}

// callArgs = "(" (expr ("," expr)* ","?)? ")" ;
func (p *Parser) callArgs() []ast.ID {
	p.consume(token.LEFTPAREN)
	return allowStruct(p, func() []ast.ID {
		var args []ast.ID
		for !p.match(token.RIGHTPAREN) {
			args = append(args, p.expr())
			if !p.match(token.RIGHTPAREN) {
				p.consume(token.COMMA)
			}
		}
		p.consume(token.RIGHTPAREN)
		return args
	})
}

// primary = literal | path | macroCall | structLit | tuple | paren | array
//
//	| blockLike | closure | "return" expr? | "break" LIFETIME? expr? | "continue" LIFETIME? ;
func (p *Parser) primary() ast.ID {
	start := p.peek()
	switch start.Kind {
	case token.INTEGER, token.STRING, token.CHAR, token.TRUE, token.FALSE:
		p.advance()
		return p.add(&ast.Literal{Meta: p.meta(start), Token: start})
	case token.ERROR:
		// The lexer already reported it.
		p.advance()
		return p.add(&ast.BadExpr{Meta: p.meta(start)})
	case token.IDENT, token.SELFVALUE, token.SELFTYPE, token.CRATE, token.SUPER, token.COLONCOLON:
		return p.pathExpr()
	case token.LEFTPAREN:
		return allowStruct(p, p.tuple)
	case token.LEFTBRACKET:
		return allowStruct(p, p.array)
	case token.PIPE, token.PIPEPIPE, token.MOVE:
		return p.closure()
	case token.RETURN:
		p.advance()
		r := &ast.Return{}
		if p.canStartExpr() {
			r.Value = p.expr()
		}
		r.Meta = p.meta(start)
		return p.add(r)
	case token.BREAK:
		p.advance()
		b := &ast.Break{}
		if p.match(token.LIFETIME) {
			b.Label = p.advance().Lexeme[1:]
		}
		if p.canStartExpr() {
			b.Value = p.expr()
		}
		b.Meta = p.meta(start)
		return p.add(b)
	case token.CONTINUE:
		p.advance()
		c := &ast.Continue{}
		if p.match(token.LIFETIME) {
			c.Label = p.advance().Lexeme[1:]
		}
		c.Meta = p.meta(start)
		return p.add(c)
	}
	if p.atBlockLike() {
		return p.blockLike()
	}
	p.fail(unexpectedToken(start, "expression"))
	return ast.NoID
}

// path = "::"? pathSeg ("::" pathSeg)* ;
// pathSeg = (IDENT | "self" | "Self" | "super" | "crate") ("::" genericArgs)? ;
// macroCall = IDENT "!" delimited ;
func (p *Parser) pathExpr() ast.ID {
	start := p.peek()
	path := &ast.Path{Global: p.eat(token.COLONCOLON)}
	for {
		tok := p.advance()
		switch tok.Kind {
		case token.IDENT, token.SELFVALUE, token.SELFTYPE, token.CRATE, token.SUPER:
		default:
			p.fail(unexpectedToken(tok, "identifier"))
		}
		seg := ast.PathSegment{Name: ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw}}
		if p.match(token.COLONCOLON) && p.matchNth(1, token.LT) {
			p.advance()
			seg.Args = p.genericArgs()
		}
		path.Segments = append(path.Segments, seg)
		if !p.match(token.COLONCOLON) || !p.matchNth(1, token.IDENT, token.SELFVALUE, token.SELFTYPE, token.SUPER, token.CRATE) {
			break
		}
		p.advance()
	}

	if len(path.Segments) == 1 && !path.Global && p.match(token.BANG) && opener(p.peekNth(1).Kind) {
		return p.macroCall(start, path.Segments[0].Name)
	}
	path.Meta = p.meta(start)
	id := p.add(path)
	if p.match(token.LEFTBRACE) && !p.noStruct && p.looksLikeStructLit() {
		return p.structLit(start, id)
	}
	return id
}

// looksLikeStructLit peeks past `{` for `}`, `..`, or a field followed by
// `:`, `,` or `}`.
func (p Parser) looksLikeStructLit() bool {
	switch p.peekNth(1).Kind {
	case token.RIGHTBRACE, token.DOTDOT:
		return true
	case token.IDENT, token.INTEGER:
		return p.matchNth(2, token.COLON, token.COMMA, token.RIGHTBRACE)
	}
	return false
}

// structLit = path "{" (fieldInit ("," fieldInit)* ","?)? (".." expr)? "}" ;
// fieldInit = (IDENT | INTEGER) ":" expr | IDENT ;
func (p *Parser) structLit(start token.Token, path ast.ID) ast.ID {
	p.consume(token.LEFTBRACE)
	s := &ast.StructLit{Path: path}
	allowStruct(p, func() bool {
		for !p.match(token.RIGHTBRACE) {
			if p.eat(token.DOTDOT) {
				s.Base = p.expr()
				break
			}
			fieldStart := p.peek()
			if !p.match(token.IDENT, token.INTEGER) {
				p.fail(unexpectedToken(fieldStart, "identifier", "`..`"))
			}
			tok := p.advance()
			f := ast.FieldInit{Name: ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw}}
			if p.eat(token.COLON) {
				f.Value = p.expr()
			} else if tok.Kind == token.IDENT {
				f.Shorthand = true
				f.Value = p.add(&ast.Path{
					Meta:     ast.Meta{Span: tok.Span},
					Segments: []ast.PathSegment{{Name: f.Name}},
				})
			} else {
				p.fail(unexpectedToken(p.peek(), "`:`"))
			}
			f.Span = p.meta(fieldStart).Span
			s.Fields = append(s.Fields, f)
			if !p.match(token.RIGHTBRACE) {
				p.consume(token.COMMA)
			}
		}
		return true
	})
	p.consume(token.RIGHTBRACE)
	s.Meta = p.meta(start)
	return p.add(s)
}

// tuple = "(" ")" | "(" expr ")" | "(" expr "," (expr ("," expr)* ","?)? ")" ;
func (p *Parser) tuple() ast.ID {
	start := p.consume(token.LEFTPAREN)
	if p.eat(token.RIGHTPAREN) {
		return p.add(&ast.Tuple{Meta: p.meta(start)})
	}
	first := p.expr()
	if p.eat(token.RIGHTPAREN) {
		return p.add(&ast.Paren{Meta: p.meta(start), X: first})
	}
	elems := []ast.ID{first}
	for p.eat(token.COMMA) {
		if p.match(token.RIGHTPAREN) {
			break
		}
		elems = append(elems, p.expr())
	}
	p.consume(token.RIGHTPAREN)
	return p.add(&ast.Tuple{Meta: p.meta(start), Elems: elems})
}

// array = "[" "]" | "[" expr ";" expr "]" | "[" expr ("," expr)* ","? "]" ;
func (p *Parser) array() ast.ID {
	start := p.consume(token.LEFTBRACKET)
	if p.eat(token.RIGHTBRACKET) {
		return p.add(&ast.ArrayLit{Meta: p.meta(start)})
	}
	first := p.expr()
	if p.eat(token.SEMICOLON) {
		count := p.expr()
		p.consume(token.RIGHTBRACKET)
		return p.add(&ast.Repeat{Meta: p.meta(start), Value: first, Count: count})
	}
	elems := []ast.ID{first}
	for p.eat(token.COMMA) {
		if p.match(token.RIGHTBRACKET) {
			break
		}
		elems = append(elems, p.expr())
	}
	p.consume(token.RIGHTBRACKET)
	return p.add(&ast.ArrayLit{Meta: p.meta(start), Elems: elems})
}

// closure = "move"? ("||" | "|" (closureParam ("," closureParam)* ","?)? "|") ("->" type block | assignment) ;
// closureParam = patternNoTop (":" type)? ;
func (p *Parser) closure() ast.ID {
	start := p.peek()
	c := &ast.Closure{Move: p.eat(token.MOVE)}
	if !p.eat(token.PIPEPIPE) {
		p.consume(token.PIPE)
		for !p.match(token.PIPE) {
			paramStart := p.peek()
			param := ast.Param{Pattern: p.patternNoTop()}
			if p.eat(token.COLON) {
				param.Type = p.typ()
			}
			param.Span = p.meta(paramStart).Span
			c.Params = append(c.Params, param)
			if !p.match(token.PIPE) {
				p.consume(token.COMMA)
			}
		}
		p.consume(token.PIPE)
	}
	if p.eat(token.ARROW) {
		c.Ret = p.typ()
		c.Body = p.block()
	} else {
		c.Body = p.assignment(true)
	}
	c.Meta = p.meta(start)
	return p.add(c)
}

// macroCall parses the token group after `name!`. When the group is a
// comma separated expression list (or `value; count`) it is also parsed, so
// names used inside println! and vec! are visible to the analyzer.
func (p *Parser) macroCall(start token.Token, name ast.Ident) ast.ID {
	p.consume(token.BANG)
	delim := p.peek().Kind
	tokens := p.delimited()
	mc := &ast.MacroCall{Name: name, Delim: delim, Tokens: tokens}
	mc.Args, mc.ArgsParsed = p.macroArgs(tokens, p.previous())
	mc.Meta = p.meta(start)
	return p.add(mc)
}

func (p *Parser) macroArgs(tokens []token.Token, end token.Token) (args []ast.ID, ok bool) {
	sub := &Parser{
		tokens:  append(slices.Clone(tokens), token.Token{Kind: token.EOF, Span: end.Span}),
		file:    p.file,
		opts:    p.opts,
		lastErr: -1,
	}
	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}
			args, ok = nil, false
		}
	}()
	for !sub.IsAtEnd() {
		start := sub.peek()
		x := sub.expr()
		if sub.eat(token.SEMICOLON) {
			count := sub.expr()
			x = sub.add(&ast.Repeat{Meta: sub.meta(start), Value: x, Count: count})
		}
		args = append(args, x)
		if !sub.IsAtEnd() {
			sub.consume(token.COMMA)
		}
	}
	return args, len(sub.diags) == 0
}
