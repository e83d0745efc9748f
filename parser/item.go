package parser

import (
	"strconv"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

// atItemStart reports whether the current token can begin an item.
func (p Parser) atItemStart() bool {
	switch p.peek().Kind {
	case token.FN, token.STRUCT, token.ENUM, token.IMPL, token.MOD, token.TRAIT,
		token.USE, token.STATIC, token.TYPE, token.PUB, token.EXTERN:
		return true
	case token.SHARP:
		return p.matchNth(1, token.LEFTBRACKET, token.BANG)
	case token.CONST:
		return p.matchNth(1, token.IDENT, token.UNDERSCORE, token.FN, token.UNSAFE)
	case token.UNSAFE:
		return p.matchNth(1, token.FN, token.IMPL, token.TRAIT)
	}
	return false
}

// item parses one item. A syntax error inside it yields a BadItem and
// parsing resumes at the next item boundary.
func (p *Parser) item() (id ast.ID) {
	start := p.current
	startDepth := p.depth()
	first := p.peek()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize(startDepth, start)
			p.closeTo(startDepth)
			id = p.add(&ast.BadItem{Meta: p.meta(first), Name: p.declaredName(start)})
		}
	}()
	return p.itemBody()
}

// item = outerAttr* visibility? (fn | struct | enum | impl | trait | mod | use | const | static | typeAlias) ;
func (p *Parser) itemBody() ast.ID {
	first := p.peek()
	var attrs []ast.Attr
	for p.match(token.SHARP) {
		attr := p.attribute()
		if attr.Inner {
			p.report(diag.MalformedItem, attr.Span, "inner attribute is not permitted here")
		}
		attrs = append(attrs, attr)
	}
	pub := p.visibility()

	switch p.peek().Kind {
	case token.FN, token.EXTERN:
		return p.function(first, attrs, pub)
	case token.CONST:
		if p.matchNth(1, token.FN, token.UNSAFE, token.EXTERN) {
			return p.function(first, attrs, pub)
		}
		return p.constItem(first, pub)
	case token.UNSAFE:
		switch p.peekNth(1).Kind {
		case token.IMPL:
			p.advance()
			return p.impl(first)
		case token.TRAIT:
			p.advance()
			return p.trait(first, pub)
		}
		return p.function(first, attrs, pub)
	case token.STRUCT:
		return p.structItem(first, attrs, pub)
	case token.ENUM:
		return p.enum(first, attrs, pub)
	case token.IMPL:
		return p.impl(first)
	case token.TRAIT:
		return p.trait(first, pub)
	case token.MOD:
		return p.module(first, attrs, pub)
	case token.USE:
		return p.use(first, pub)
	case token.STATIC:
		return p.constItem(first, pub)
	case token.TYPE:
		return p.typeAlias(first, pub)
	}
	tok := p.peek()
	p.report(diag.MalformedItem, tok.Span, "expected item, found %s", describeFound(tok))
	panic(bailout{})
}

// declaredName returns the name declared by the item or let statement that
// starts at tokens[start], if it was consumed before the item's body.
func (p Parser) declaredName(start int) ast.Ident {
	for i := start; i < p.current; i++ {
		switch p.tokens[i].Kind {
		case token.FN, token.STRUCT, token.ENUM, token.TRAIT, token.MOD, token.TYPE,
			token.CONST, token.STATIC, token.LET:
			j := i + 1
			if j < p.current && p.tokens[j].Kind == token.MUT {
				j++
			}
			if j < p.current && p.tokens[j].Kind == token.IDENT {
				tok := p.tokens[j]
				return ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw}
			}
			return ast.Ident{}
		case token.LEFTBRACE:
			return ast.Ident{}
		}
	}
	return ast.Ident{}
}

func describeFound(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of file"
	}
	return "`" + tok.Pretty() + "`"
}

// attribute = "#" "!"? "[" tokens "]" ;
func (p *Parser) attribute() ast.Attr {
	start := p.consume(token.SHARP)
	inner := p.eat(token.BANG)
	if !p.match(token.LEFTBRACKET) {
		p.fail(unexpectedToken(p.peek(), "`[`"))
	}
	tokens := p.delimited()
	return ast.Attr{Span: start.Span.To(p.previous().Span), Inner: inner, Tokens: tokens}
}

// visibility = ("pub" ("(" ("crate" | "self" | "super" | "in" path) ")")?)? ;
func (p *Parser) visibility() bool {
	if !p.eat(token.PUB) {
		return false
	}
	if p.match(token.LEFTPAREN) && p.matchNth(1, token.CRATE, token.SELFVALUE, token.SUPER, token.IN) {
		p.delimited()
	}
	return true
}

// fn = "const"? "unsafe"? ("extern" STRING?)? "fn" IDENT generics? "(" params ")" ("->" type)? whereClause? (block | ";") ;
func (p *Parser) function(first token.Token, attrs []ast.Attr, pub bool) ast.ID {
	fn := &ast.Function{Pub: pub, Attrs: attrs}
	fn.Const = p.eat(token.CONST)
	p.eat(token.UNSAFE)
	if p.eat(token.EXTERN) {
		p.eat(token.STRING)
	}
	p.consume(token.FN)
	fn.Name = p.ident()
	fn.Generics = p.generics()

	p.consume(token.LEFTPAREN)
	fn.Receiver = p.receiver()
	if fn.Receiver.Kind != ast.NoReceiver && !p.match(token.RIGHTPAREN) {
		p.consume(token.COMMA)
	}
	for !p.match(token.RIGHTPAREN) {
		fn.Params = append(fn.Params, p.param())
		if !p.match(token.RIGHTPAREN) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTPAREN)

	if p.eat(token.ARROW) {
		fn.Ret = p.typ()
	}
	p.whereClause()
	if !p.eat(token.SEMICOLON) {
		fn.Body = p.block()
	}
	fn.Meta = p.meta(first)
	return p.add(fn)
}

// receiver = "&" LIFETIME? "mut"? "self" | "mut"? "self" (":" type)? ;
func (p *Parser) receiver() ast.Receiver {
	start := p.peek()
	switch {
	case p.match(token.AMP) && p.matchNth(1, token.SELFVALUE):
		p.advance()
		p.advance()
		return ast.Receiver{Kind: ast.RefReceiver, Span: p.meta(start).Span}
	case p.match(token.AMP) && p.matchNth(1, token.MUT) && p.matchNth(2, token.SELFVALUE):
		p.advance()
		p.advance()
		p.advance()
		return ast.Receiver{Kind: ast.RefMutReceiver, Span: p.meta(start).Span}
	case p.match(token.AMP) && p.matchNth(1, token.LIFETIME) && (p.matchNth(2, token.SELFVALUE) || p.matchNth(2, token.MUT) && p.matchNth(3, token.SELFVALUE)):
		p.advance()
		p.advance()
		kind := ast.RefReceiver
		if p.eat(token.MUT) {
			kind = ast.RefMutReceiver
		}
		p.advance()
		return ast.Receiver{Kind: kind, Span: p.meta(start).Span}
	case p.match(token.SELFVALUE), p.match(token.MUT) && p.matchNth(1, token.SELFVALUE):
		r := ast.Receiver{Kind: ast.ValueReceiver, Mut: p.eat(token.MUT)}
		p.advance()
		if p.eat(token.COLON) {
			r.Type = p.typ()
			if ref, ok := p.file.Node(r.Type).(*ast.RefType); ok {
				r.Kind = ast.RefReceiver
				if ref.Mut {
					r.Kind = ast.RefMutReceiver
				}
			}
		}
		r.Span = p.meta(start).Span
		return r
	}
	return ast.Receiver{}
}

// param = outerAttr* pattern ":" type ;
func (p *Parser) param() ast.Param {
	for p.match(token.SHARP) {
		p.attribute()
	}
	start := p.peek()
	pat := p.patternNoTop()
	p.consume(token.COLON)
	typ := p.typ()
	return ast.Param{Pattern: pat, Type: typ, Span: p.meta(start).Span}
}

// generics = "<" (generic ("," generic)* ","?)? ">" ;
// generic = LIFETIME (":" LIFETIME ("+" LIFETIME)*)? | "const" IDENT ":" type | IDENT (":" bounds)? ("=" type)? ;
func (p *Parser) generics() []ast.Generic {
	if !p.eat(token.LT) {
		return nil
	}
	var gs []ast.Generic
	for !p.match(token.GT, token.SHR, token.GE, token.SHREQ) {
		var g ast.Generic
		switch {
		case p.match(token.LIFETIME):
			tok := p.advance()
			g = ast.Generic{Name: ast.Ident{Name: tok.Lexeme[1:], Span: tok.Span}, Lifetime: true}
			if p.eat(token.COLON) {
				g.Bounds = p.bounds()
			}
		case p.eat(token.CONST):
			g = ast.Generic{Name: p.ident()}
			p.consume(token.COLON)
			g.Bounds = []ast.ID{p.typ()}
		default:
			g = ast.Generic{Name: p.ident()}
			if p.eat(token.COLON) {
				g.Bounds = p.bounds()
			}
			if p.eat(token.EQ) {
				p.typ()
			}
		}
		gs = append(gs, g)
		if !p.match(token.GT, token.SHR, token.GE, token.SHREQ) {
			p.consume(token.COMMA)
		}
	}
	p.expectGT()
	return gs
}

// bounds = bound ("+" bound)* ;
// bound = LIFETIME | "?"? type ;
func (p *Parser) bounds() []ast.ID {
	var bs []ast.ID
	for {
		switch {
		case p.match(token.LIFETIME):
			tok := p.advance()
			bs = append(bs, p.add(&ast.LifetimeArg{Meta: p.meta(tok), Name: tok.Lexeme[1:]}))
		case p.eat(token.QUESTION):
			bs = append(bs, p.typ())
		case p.match(token.LEFTPAREN):
			// (Trait + 'a)
			p.advance()
			bs = append(bs, p.bounds()...)
			p.consume(token.RIGHTPAREN)
		default:
			bs = append(bs, p.typ())
		}
		if !p.eat(token.PLUS) {
			return bs
		}
		if !p.match(token.LIFETIME, token.QUESTION, token.IDENT, token.SELFTYPE, token.LEFTPAREN, token.COLONCOLON, token.FN) {
			return bs
		}
	}
}

// whereClause = ("where" (type | LIFETIME) ":" bounds ("," ...)* ","?)? ;
func (p *Parser) whereClause() {
	if !p.eat(token.WHERE) {
		return
	}
	for !p.match(token.LEFTBRACE, token.SEMICOLON, token.EOF) {
		if p.match(token.LIFETIME) {
			p.advance()
		} else {
			p.typ()
		}
		p.consume(token.COLON)
		p.bounds()
		if !p.eat(token.COMMA) {
			return
		}
	}
}

// struct = "struct" IDENT generics? whereClause? (";" | "{" fields "}" | "(" tupleFields ")" whereClause? ";") ;
func (p *Parser) structItem(first token.Token, attrs []ast.Attr, pub bool) ast.ID {
	p.consume(token.STRUCT)
	s := &ast.Struct{Pub: pub, Attrs: attrs, Name: p.ident()}
	s.Generics = p.generics()
	p.whereClause()
	switch {
	case p.eat(token.SEMICOLON):
		s.Kind = ast.UnitStruct
	case p.match(token.LEFTPAREN):
		s.Kind = ast.TupleFields
		s.Fields = p.tupleFields()
		p.whereClause()
		p.consume(token.SEMICOLON)
	default:
		s.Kind = ast.NamedFields
		s.Fields = p.namedFields()
	}
	s.Meta = p.meta(first)
	return p.add(s)
}

// fields = (outerAttr* visibility? IDENT ":" type ("," ...)* ","?)? ;
func (p *Parser) namedFields() []ast.FieldDecl {
	p.consume(token.LEFTBRACE)
	var fields []ast.FieldDecl
	for !p.match(token.RIGHTBRACE) {
		start := p.peek()
		var f ast.FieldDecl
		for p.match(token.SHARP) {
			f.Attrs = append(f.Attrs, p.attribute())
		}
		f.Pub = p.visibility()
		f.Name = p.ident()
		p.consume(token.COLON)
		f.Type = p.typ()
		f.Span = p.meta(start).Span
		fields = append(fields, f)
		if !p.match(token.RIGHTBRACE) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTBRACE)
	return fields
}

// tupleFields = "(" (outerAttr* visibility? type ("," ...)* ","?)? ")" ;
func (p *Parser) tupleFields() []ast.FieldDecl {
	p.consume(token.LEFTPAREN)
	var fields []ast.FieldDecl
	for i := 0; !p.match(token.RIGHTPAREN); i++ {
		start := p.peek()
		var f ast.FieldDecl
		for p.match(token.SHARP) {
			f.Attrs = append(f.Attrs, p.attribute())
		}
		f.Pub = p.visibility()
		f.Type = p.typ()
		f.Span = p.meta(start).Span
		f.Name = ast.Ident{Name: strconv.Itoa(i), Span: f.Span}
		fields = append(fields, f)
		if !p.match(token.RIGHTPAREN) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTPAREN)
	return fields
}

// enum = "enum" IDENT generics? whereClause? "{" (variant ("," variant)* ","?)? "}" ;
// variant = outerAttr* IDENT ("{" fields "}" | tupleFields)? ("=" expr)? ;
func (p *Parser) enum(first token.Token, attrs []ast.Attr, pub bool) ast.ID {
	p.consume(token.ENUM)
	e := &ast.Enum{Pub: pub, Attrs: attrs, Name: p.ident()}
	e.Generics = p.generics()
	p.whereClause()
	p.consume(token.LEFTBRACE)
	for !p.match(token.RIGHTBRACE) {
		for p.match(token.SHARP) {
			p.attribute()
		}
		start := p.peek()
		v := ast.Variant{Name: p.ident(), Kind: ast.UnitStruct}
		switch {
		case p.match(token.LEFTBRACE):
			v.Kind = ast.NamedFields
			v.Fields = p.namedFields()
		case p.match(token.LEFTPAREN):
			v.Kind = ast.TupleFields
			v.Fields = p.tupleFields()
		}
		if p.eat(token.EQ) {
			v.Discriminant = p.expr()
		}
		v.Span = p.meta(start).Span
		e.Variants = append(e.Variants, v)
		if !p.match(token.RIGHTBRACE) {
			p.consume(token.COMMA)
		}
	}
	p.consume(token.RIGHTBRACE)
	e.Meta = p.meta(first)
	return p.add(e)
}

// impl = "unsafe"? "impl" generics? "!"? type ("for" type)? whereClause? "{" innerAttr* assocItem* "}" ;
func (p *Parser) impl(first token.Token) ast.ID {
	p.consume(token.IMPL)
	im := &ast.Impl{}
	// impl<T> vs impl <T as Trait>: generics directly follow the keyword.
	if p.match(token.LT) {
		im.Generics = p.generics()
	}
	p.eat(token.BANG)
	target := p.typ()
	if p.eat(token.FOR) {
		im.Trait = target
		target = p.typ()
	}
	im.Target = target
	im.TargetName = p.typeName(target)
	p.whereClause()
	im.Items = p.assocItems()
	im.Meta = p.meta(first)
	return p.add(im)
}

// typeName returns the name an impl binds methods under.
func (p *Parser) typeName(id ast.ID) string {
	switch t := p.file.Node(id).(type) {
	case *ast.PathType:
		return t.Name()
	case *ast.RefType:
		return p.typeName(t.Elem)
	default:
		return p.file.Print(id)
	}
}

// assocItem = outerAttr* visibility? (fn | const | typeAlias) ;
func (p *Parser) assocItems() []ast.ID {
	p.consume(token.LEFTBRACE)
	for p.match(token.SHARP) && p.matchNth(1, token.BANG) {
		p.attribute()
	}
	var items []ast.ID
	for !p.match(token.RIGHTBRACE) && !p.IsAtEnd() {
		items = append(items, p.item())
	}
	p.consume(token.RIGHTBRACE)
	return items
}

// trait = "unsafe"? "trait" IDENT generics? (":" bounds)? whereClause? "{" assocItem* "}" ;
func (p *Parser) trait(first token.Token, pub bool) ast.ID {
	p.consume(token.TRAIT)
	t := &ast.Trait{Pub: pub, Name: p.ident()}
	t.Generics = p.generics()
	if p.eat(token.COLON) {
		p.bounds()
	}
	p.whereClause()
	t.Items = p.assocItems()
	t.Meta = p.meta(first)
	return p.add(t)
}

// mod = "mod" IDENT (";" | "{" innerAttr* item* "}") ;
func (p *Parser) module(first token.Token, attrs []ast.Attr, pub bool) ast.ID {
	p.consume(token.MOD)
	m := &ast.Module{Pub: pub, Attrs: attrs, Name: p.ident()}
	if !p.eat(token.SEMICOLON) {
		m.Inline = true
		p.consume(token.LEFTBRACE)
		for p.match(token.SHARP) && p.matchNth(1, token.BANG) {
			m.Attrs = append(m.Attrs, p.attribute())
		}
		for !p.match(token.RIGHTBRACE) && !p.IsAtEnd() {
			m.Items = append(m.Items, p.item())
		}
		p.consume(token.RIGHTBRACE)
	}
	m.Meta = p.meta(first)
	return p.add(m)
}

// use = "use" useTree ";" ;
func (p *Parser) use(first token.Token, pub bool) ast.ID {
	p.consume(token.USE)
	tree := p.useTree()
	p.consume(token.SEMICOLON)
	return p.add(&ast.Use{Meta: p.meta(first), Pub: pub, Tree: tree})
}

// useTree = "::"? (pathSeg ("::" pathSeg)*)? ("::"? ("*" | "{" (useTree ("," useTree)* ","?)? "}"))? ("as" (IDENT | "_"))? ;
func (p *Parser) useTree() ast.UseTree {
	var tree ast.UseTree
	p.eat(token.COLONCOLON)
	for p.match(token.IDENT, token.SELFVALUE, token.SUPER, token.CRATE) {
		tok := p.advance()
		tree.Path = append(tree.Path, ast.Ident{Name: tok.Lexeme, Span: tok.Span, Raw: tok.Raw})
		if !p.match(token.COLONCOLON) {
			break
		}
		p.advance()
	}
	switch {
	case p.eat(token.STAR):
		tree.Glob = true
	case p.eat(token.LEFTBRACE):
		tree.Nested = true
		for !p.match(token.RIGHTBRACE) {
			tree.Children = append(tree.Children, p.useTree())
			if !p.match(token.RIGHTBRACE) {
				p.consume(token.COMMA)
			}
		}
		p.consume(token.RIGHTBRACE)
	case len(tree.Path) == 0:
		p.fail(unexpectedToken(p.peek(), "identifier", "`*`", "`{`"))
	}
	if p.eat(token.AS) {
		if p.match(token.UNDERSCORE) {
			tok := p.advance()
			tree.Alias = ast.Ident{Name: "_", Span: tok.Span}
		} else {
			tree.Alias = p.ident()
		}
	}
	return tree
}

// const = "const" (IDENT | "_") ":" type ("=" expr)? ";" ;
// static = "static" "mut"? IDENT ":" type ("=" expr)? ";" ;
func (p *Parser) constItem(first token.Token, pub bool) ast.ID {
	c := &ast.Const{Pub: pub}
	if p.eat(token.STATIC) {
		c.Static = true
		c.Mut = p.eat(token.MUT)
	} else {
		p.consume(token.CONST)
	}
	if p.match(token.UNDERSCORE) {
		tok := p.advance()
		c.Name = ast.Ident{Name: "_", Span: tok.Span}
	} else {
		c.Name = p.ident()
	}
	p.consume(token.COLON)
	c.Type = p.typ()
	if p.eat(token.EQ) {
		c.Value = p.expr()
	}
	p.consume(token.SEMICOLON)
	c.Meta = p.meta(first)
	return p.add(c)
}

// typeAlias = "type" IDENT generics? (":" bounds)? ("=" type)? ";" ;
func (p *Parser) typeAlias(first token.Token, pub bool) ast.ID {
	p.consume(token.TYPE)
	t := &ast.TypeAlias{Pub: pub, Name: p.ident()}
	p.generics()
	if p.eat(token.COLON) {
		p.bounds()
	}
	if p.eat(token.EQ) {
		t.Type = p.typ()
	}
	p.consume(token.SEMICOLON)
	t.Meta = p.meta(first)
	return p.add(t)
}
