package parser

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// primitives never take generic arguments, so `x as i32 < y` stays a
// comparison.
var primitives = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
	"bool", "char", "str",
}

// type = "&" LIFETIME? "mut"? type
//
//	| "&&" LIFETIME? "mut"? type
//	| "[" type (";" expr)? "]"
//	| "(" (type ("," type)* ","?)? ")"
//	| "!" | "_"
//	| "fn" "(" (type ("," type)*)? ")" ("->" type)?
//	| ("impl" | "dyn") bounds
//	| typePath ;
func (p *Parser) typ() ast.ID {
	start := p.peek()
	switch start.Kind {
	case token.AMP, token.AMPAMP:
		p.advance()
		ref := &ast.RefType{}
		if p.match(token.LIFETIME) {
			ref.Lifetime = p.advance().Lexeme[1:]
		}
		ref.Mut = p.eat(token.MUT)
		ref.Elem = p.typ()
		ref.Meta = p.meta(start)
		id := p.add(ref)
		if start.Kind == token.AMPAMP {
			id = p.add(&ast.RefType{Meta: p.meta(start), Elem: id})
		}
		return id
	case token.LEFTBRACKET:
		p.advance()
		elem := p.typ()
		if p.eat(token.SEMICOLON) {
			n := p.expr()
			p.consume(token.RIGHTBRACKET)
			return p.add(&ast.ArrayType{Meta: p.meta(start), Elem: elem, Len: n})
		}
		p.consume(token.RIGHTBRACKET)
		return p.add(&ast.SliceType{Meta: p.meta(start), Elem: elem})
	case token.LEFTPAREN:
		p.advance()
		var elems []ast.ID
		trailingComma := false
		for !p.match(token.RIGHTPAREN) {
			elems = append(elems, p.typ())
			trailingComma = false
			if !p.match(token.RIGHTPAREN) {
				p.consume(token.COMMA)
				trailingComma = true
			}
		}
		p.consume(token.RIGHTPAREN)
		if len(elems) == 1 && !trailingComma {
			// (T) is just T.
			return elems[0]
		}
		return p.add(&ast.TupleType{Meta: p.meta(start), Elems: elems})
	case token.BANG:
		p.advance()
		return p.add(&ast.NeverType{Meta: p.meta(start)})
	case token.UNDERSCORE:
		p.advance()
		return p.add(&ast.InferType{Meta: p.meta(start)})
	case token.FN, token.UNSAFE, token.EXTERN:
		p.eat(token.UNSAFE)
		if p.eat(token.EXTERN) {
			p.eat(token.STRING)
		}
		p.consume(token.FN)
		return p.fnTypeTail(start)
	case token.IMPL, token.DYN:
		p.advance()
		bounds := p.bounds()
		return p.add(&ast.ImplType{Meta: p.meta(start), Dyn: start.Kind == token.DYN, Bounds: bounds})
	case token.IDENT, token.SELFTYPE, token.SELFVALUE, token.CRATE, token.SUPER, token.COLONCOLON:
		return p.typePath()
	}
	p.fail(unexpectedToken(start, "type"))
	return ast.NoID
}

// fnTypeTail = "(" (type ("," type)* ","?)? ")" ("->" type)? ;
func (p *Parser) fnTypeTail(start token.Token) ast.ID {
	p.consume(token.LEFTPAREN)
	fn := &ast.FnType{}
	for !p.match(token.RIGHTPAREN) {
		// Named parameters are allowed in fn pointer types.
		if p.match(token.IDENT, token.UNDERSCORE) && p.matchNth(1, token.COLON) {
			p.advance()
			p.advance()
		}
		fn.Params = append(fn.Params, p.typ())
		if !p.match(token.RIGHTPAREN) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTPAREN)
	if p.eat(token.ARROW) {
		fn.Ret = p.typ()
	}
	fn.Meta = p.meta(start)
	return p.add(fn)
}

// typePath = "::"? typeSeg ("::" typeSeg)* ;
// typeSeg = IDENT ("::"? genericArgs | "(" types ")" ("->" type)?)? ;
func (p *Parser) typePath() ast.ID {
	start := p.peek()
	p.eat(token.COLONCOLON)
	var segs []ast.PathSegment
	for {
		tok := p.advance()
		switch tok.Kind {
		case token.IDENT, token.SELFTYPE, token.SELFVALUE, token.CRATE, token.SUPER:
		default:
			p.fail(unexpectedToken(tok, "identifier"))
		}
		seg := ast.PathSegment{Name: ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw}}
		switch {
		case p.match(token.LT) && !slices.Contains(primitives, tok.Lexeme):
			seg.Args = p.genericArgs()
		case p.match(token.COLONCOLON) && p.matchNth(1, token.LT):
			p.advance()
			seg.Args = p.genericArgs()
		case p.match(token.LEFTPAREN) && len(segs) == 0 && isFnTrait(tok.Lexeme):
			// Fn(A) -> B sugar
			return p.fnTypeTail(start)
		}
		segs = append(segs, seg)
		if !p.match(token.COLONCOLON) || !p.matchNth(1, token.IDENT, token.SELFTYPE) {
			break
		}
		p.advance()
	}
	return p.add(&ast.PathType{Meta: p.meta(start), Segments: segs})
}

func isFnTrait(name string) bool {
	return name == "Fn" || name == "FnMut" || name == "FnOnce"
}

// genericArgs = "<" (genericArg ("," genericArg)* ","?)? ">" ;
// genericArg = LIFETIME | IDENT "=" type | type | blockExpr | literal ;
//
// The closing `>` may be the first half of a `>>`, which expectGT splits.
func (p *Parser) genericArgs() []ast.ID {
	p.consume(token.LT)
	var args []ast.ID
	for !p.match(token.GT, token.SHR, token.GE, token.SHREQ) {
		switch {
		case p.match(token.LIFETIME):
			tok := p.advance()
			args = append(args, p.add(&ast.LifetimeArg{Meta: p.meta(tok), Name: tok.Lexeme[1:]}))
		case p.match(token.IDENT) && p.matchNth(1, token.EQ):
			// Associated type binding: Iterator<Item = T>.
			p.advance()
			p.advance()
			args = append(args, p.typ())
		case p.match(token.LEFTBRACE):
			args = append(args, p.block())
		case p.match(token.INTEGER, token.MINUS, token.TRUE, token.FALSE, token.CHAR, token.STRING):
			args = append(args, p.unary())
		default:
			args = append(args, p.typ())
		}
		if !p.match(token.GT, token.SHR, token.GE, token.SHREQ) {
			p.consume(token.COMMA)
		}
	}
	p.expectGT()
	return args
}
