package parser

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/token"
)

// pattern = "|"? patternNoTop ("|" patternNoTop)* ;
func (p *Parser) pattern() ast.ID {
	start := p.peek()
	p.eat(token.PIPE)
	first := p.patternNoTop()
	if !p.match(token.PIPE) {
		return first
	}
	alts := []ast.ID{first}
	for p.eat(token.PIPE) {
		alts = append(alts, p.patternNoTop())
	}
	return p.add(&ast.OrPat{Meta: p.meta(start), Alts: alts})
}

// patternNoTop = rangePattern
//
//	| "_" | ".."
//	| ("&" | "&&") "mut"? patternNoTop
//	| "(" (pattern ("," pattern)* ","?)? ")"
//	| "[" (pattern ("," pattern)* ","?)? "]"
//	| "ref"? "mut"? IDENT ("@" patternNoTop)?
//	| path ("(" patterns ")" | "{" fieldPatterns "}")? ;
func (p *Parser) patternNoTop() ast.ID {
	start := p.peek()
	switch start.Kind {
	case token.UNDERSCORE:
		p.advance()
		return p.add(&ast.WildPat{Meta: p.meta(start)})
	case token.DOTDOT:
		p.advance()
		return p.add(&ast.RestPat{Meta: p.meta(start)})
	case token.AMP, token.AMPAMP:
		p.advance()
		mut := p.eat(token.MUT)
		pat := p.patternNoTop()
		inner := p.add(&ast.RefPat{Meta: p.meta(start), Mut: mut, Pattern: pat})
		if start.Kind == token.AMPAMP {
			return p.add(&ast.RefPat{Meta: p.meta(start), Pattern: inner})
		}
		return inner
	case token.LEFTPAREN:
		p.advance()
		var elems []ast.ID
		trailingComma := false
		for !p.match(token.RIGHTPAREN) {
			elems = append(elems, p.pattern())
			trailingComma = false
			if !p.match(token.RIGHTPAREN) {
				p.consume(token.COMMA)
				trailingComma = true
			}
		}
		p.consume(token.RIGHTPAREN)
		if len(elems) == 1 && !trailingComma {
			return elems[0]
		}
		return p.add(&ast.TuplePat{Meta: p.meta(start), Elems: elems})
	case token.LEFTBRACKET:
		p.advance()
		var elems []ast.ID
		for !p.match(token.RIGHTBRACKET) {
			elems = append(elems, p.pattern())
			if !p.match(token.RIGHTBRACKET) {
				p.consume(token.COMMA)
			}
		}
		p.consume(token.RIGHTBRACKET)
		return p.add(&ast.SlicePat{Meta: p.meta(start), Elems: elems})
	case token.INTEGER, token.STRING, token.CHAR, token.TRUE, token.FALSE, token.MINUS:
		return p.rangePattern(start, p.literalPattern())
	case token.REF, token.MUT:
		return p.identPattern()
	case token.IDENT:
		if !p.matchNth(1, token.COLONCOLON, token.LEFTPAREN, token.LEFTBRACE, token.DOTDOTEQ, token.DOTDOTDOT) &&
			!p.matchNth(1, token.DOTDOT) {
			return p.identPattern()
		}
		return p.pathPattern()
	case token.SELFTYPE, token.SELFVALUE, token.CRATE, token.SUPER, token.COLONCOLON:
		return p.pathPattern()
	}
	p.fail(unexpectedToken(start, "pattern"))
	return ast.NoID
}

func (p *Parser) literalPattern() ast.ID {
	start := p.peek()
	neg := p.eat(token.MINUS)
	if neg && !p.match(token.INTEGER) {
		p.fail(unexpectedToken(p.peek(), "integer literal"))
	}
	if !p.match(token.INTEGER, token.STRING, token.CHAR, token.TRUE, token.FALSE) {
		p.fail(unexpectedToken(p.peek(), "literal"))
	}
	lit := p.advance()
	return p.add(&ast.LitPat{Meta: p.meta(start), Token: lit, Neg: neg})
}

// rangePattern = rangeBound (("..=" | "...") rangeBound | ".." rangeBound?)? ;
// rangeBound = "-"? literal | path ;
func (p *Parser) rangePattern(start token.Token, lo ast.ID) ast.ID {
	if !p.match(token.DOTDOT, token.DOTDOTEQ, token.DOTDOTDOT) {
		return lo
	}
	op := p.advance()
	r := &ast.RangePat{Lo: lo, Inclusive: op.Kind != token.DOTDOT}
	switch {
	case p.match(token.INTEGER, token.CHAR, token.MINUS):
		r.Hi = p.literalPattern()
	case p.match(token.IDENT, token.SELFTYPE, token.COLONCOLON):
		r.Hi = p.pathPattern()
	case r.Inclusive:
		p.fail(unexpectedToken(p.peek(), "range end"))
	}
	r.Meta = p.meta(start)
	return p.add(r)
}

// identPattern = "ref"? "mut"? IDENT ("@" patternNoTop)? ;
func (p *Parser) identPattern() ast.ID {
	start := p.peek()
	pat := &ast.IdentPat{}
	pat.Ref = p.eat(token.REF)
	pat.Mut = p.eat(token.MUT)
	if p.match(token.SELFVALUE) {
		// `mut self` style bindings in closures
		tok := p.advance()
		pat.Name = ast.Ident{Name: tok.Lexeme, Span: tok.Span}
	} else {
		pat.Name = p.ident()
	}
	if p.eat(token.AT) {
		pat.Sub = p.patternNoTop()
	}
	pat.Meta = p.meta(start)
	return p.add(pat)
}

// pathPattern = pathIdents ("(" (pattern ("," pattern)* ","?)? ")" | "{" fieldPatterns "}")? ;
func (p *Parser) pathPattern() ast.ID {
	start := p.peek()
	p.eat(token.COLONCOLON)
	var path []ast.Ident
	for {
		tok := p.advance()
		switch tok.Kind {
		case token.IDENT, token.SELFTYPE, token.SELFVALUE, token.CRATE, token.SUPER:
		default:
			p.fail(unexpectedToken(tok, "identifier"))
		}
		path = append(path, ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw})
		if p.match(token.COLONCOLON) && p.matchNth(1, token.LT) {
			p.advance()
			p.genericArgs()
		}
		if !p.eat(token.COLONCOLON) {
			break
		}
	}

	switch {
	case p.match(token.LEFTPAREN):
		p.advance()
		var elems []ast.ID
		for !p.match(token.RIGHTPAREN) {
			elems = append(elems, p.pattern())
			if !p.match(token.RIGHTPAREN) {
				p.consume(token.COMMA)
			}
		}
		p.consume(token.RIGHTPAREN)
		return p.add(&ast.TupleStructPat{Meta: p.meta(start), Path: path, Elems: elems})
	case p.match(token.LEFTBRACE):
		return p.structPattern(start, path)
	}
	id := p.add(&ast.PathPat{Meta: p.meta(start), Path: path})
	return p.rangePattern(start, id)
}

// fieldPatterns = (fieldPattern ("," fieldPattern)* ","?)? ".."? ;
// fieldPattern = INTEGER ":" pattern | IDENT ":" pattern | "ref"? "mut"? IDENT ;
func (p *Parser) structPattern(start token.Token, path []ast.Ident) ast.ID {
	p.consume(token.LEFTBRACE)
	s := &ast.StructPat{Path: path}
	for !p.match(token.RIGHTBRACE) {
		if p.eat(token.DOTDOT) {
			s.Rest = true
			break
		}
		switch {
		case p.match(token.IDENT, token.INTEGER) && p.matchNth(1, token.COLON):
			tok := p.advance()
			p.advance()
			s.Fields = append(s.Fields, ast.FieldPat{
				Name:    ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw},
				Pattern: p.pattern(),
			})
		default:
			id := p.identPattern()
			bind := p.file.Node(id).(*ast.IdentPat)
			s.Fields = append(s.Fields, ast.FieldPat{Name: bind.Name, Pattern: id, Shorthand: true})
		}
		if !p.match(token.RIGHTBRACE) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTBRACE)
	s.Meta = p.meta(start)
	return p.add(s)
}
