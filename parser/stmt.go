package parser

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/token"
)

// block = "{" innerAttr* stmt* expr? "}" ;
func (p *Parser) block() ast.ID {
	start := p.consume(token.LEFTBRACE)
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	for p.match(token.SHARP) && p.matchNth(1, token.BANG) {
		p.attribute()
	}
	b := &ast.Block{}
	for !p.match(token.RIGHTBRACE) {
		if p.IsAtEnd() {
			p.fail(unexpectedToken(p.peek(), "`}`"))
		}
		if p.eat(token.SEMICOLON) {
			continue
		}
		stmt, tail := p.statement(token.RIGHTBRACE)
		if tail.Valid() {
			b.Tail = tail
			break
		}
		b.Stmts = append(b.Stmts, stmt)
	}
	p.consume(token.RIGHTBRACE)
	b.Meta = p.meta(start)
	return p.add(b)
}

// stmt = ";" | let | item | blockLikeExpr ("." postfix | "?")* ";"? | expr ";" ;
//
// statement returns either a statement, or the trailing expression of the
// enclosing block when the expression is directly followed by end.
func (p *Parser) statement(end token.Kind) (stmt ast.ID, tail ast.ID) {
	start := p.peek()
	switch {
	case p.match(token.LET):
		return p.let(), ast.NoID
	case p.atItemStart():
		item := p.item()
		return p.add(&ast.ItemStmt{Meta: p.meta(start), Item: item}), ast.NoID
	}

	if p.atBlockLike() {
		x := p.blockLike()
		if p.match(token.DOT, token.QUESTION) {
			x = p.postfixOps(x)
			return p.finishExprStmt(start, x, end)
		}
		if p.match(end) {
			return ast.NoID, x
		}
		semi := p.eat(token.SEMICOLON)
		return p.add(&ast.ExprStmt{Meta: p.meta(start), X: x, Semi: semi}), ast.NoID
	}

	x := p.assignment(true)
	if mc, ok := p.file.Node(x).(*ast.MacroCall); ok && mc.Delim == token.LEFTBRACE && !p.match(end) {
		semi := p.eat(token.SEMICOLON)
		return p.add(&ast.ExprStmt{Meta: p.meta(start), X: x, Semi: semi}), ast.NoID
	}
	return p.finishExprStmt(start, x, end)
}

func (p *Parser) finishExprStmt(start token.Token, x ast.ID, end token.Kind) (ast.ID, ast.ID) {
	if p.match(end) {
		return ast.NoID, x
	}
	p.consume(token.SEMICOLON)
	return p.add(&ast.ExprStmt{Meta: p.meta(start), X: x, Semi: true}), ast.NoID
}

// let = "let" pattern (":" type)? ("=" expr ("else" block)?)? ";" ;
func (p *Parser) let() ast.ID {
	start := p.consume(token.LET)
	l := &ast.Let{Pattern: p.pattern()}
	if p.eat(token.COLON) {
		l.Type = p.typ()
	}
	if p.eat(token.EQ) {
		l.Init = p.expr()
		if p.eat(token.ELSE) {
			l.Else = p.block()
		}
	}
	p.consume(token.SEMICOLON)
	l.Meta = p.meta(start)
	return p.add(l)
}

// atBlockLike reports whether the current token starts an expression that
// ends a statement without a semicolon.
func (p Parser) atBlockLike() bool {
	switch p.peek().Kind {
	case token.LEFTBRACE, token.IF, token.MATCH, token.LOOP, token.WHILE, token.FOR:
		return true
	case token.UNSAFE:
		return p.matchNth(1, token.LEFTBRACE)
	case token.LIFETIME:
		return p.matchNth(1, token.COLON)
	}
	return false
}

// blockLike = (LIFETIME ":")? (block | loop | while | for) | "unsafe" block | if | match ;
func (p *Parser) blockLike() ast.ID {
	start := p.peek()
	label := ""
	if p.match(token.LIFETIME) {
		label = p.advance().Lexeme[1:]
		p.consume(token.COLON)
	}
	switch p.peek().Kind {
	case token.LEFTBRACE:
		id := p.block()
		p.file.Node(id).(*ast.Block).Label = label
		return id
	case token.UNSAFE:
		p.advance()
		id := p.block()
		b := p.file.Node(id).(*ast.Block)
		b.Unsafe = true
		b.Meta = p.meta(start)
		return id
	case token.LOOP:
		p.advance()
		body := p.block()
		return p.add(&ast.Loop{Meta: p.meta(start), Label: label, Body: body})
	case token.WHILE:
		p.advance()
		cond := p.condition()
		body := p.block()
		return p.add(&ast.While{Meta: p.meta(start), Label: label, Cond: cond, Body: body})
	case token.FOR:
		p.advance()
		pat := p.pattern()
		p.consume(token.IN)
		iter := p.noStructExpr()
		body := p.block()
		return p.add(&ast.For{Meta: p.meta(start), Label: label, Pattern: pat, Iter: iter, Body: body})
	case token.IF:
		if label != "" {
			break
		}
		return p.ifExpr()
	case token.MATCH:
		if label != "" {
			break
		}
		return p.matchExpr()
	}
	p.fail(unexpectedToken(p.peek(), "`loop`", "`while`", "`for`", "`{`"))
	return ast.NoID
}

// if = "if" condition block ("else" (if | block))? ;
func (p *Parser) ifExpr() ast.ID {
	start := p.consume(token.IF)
	n := &ast.If{Cond: p.condition()}
	n.Then = p.block()
	if p.eat(token.ELSE) {
		if p.match(token.IF) {
			n.Else = p.ifExpr()
		} else {
			n.Else = p.block()
		}
	}
	n.Meta = p.meta(start)
	return p.add(n)
}

// condition = "let" pattern "=" expr | expr ;
//
// Struct literals are not allowed in a condition.
func (p *Parser) condition() ast.ID {
	if !p.match(token.LET) {
		return p.noStructExpr()
	}
	start := p.advance()
	pat := p.pattern()
	p.consume(token.EQ)
	value := p.noStructExpr()
	return p.add(&ast.LetCond{Meta: p.meta(start), Pattern: pat, Value: value})
}

func (p *Parser) noStructExpr() ast.ID {
	saved := p.noStruct
	p.noStruct = true
	defer func() { p.noStruct = saved }()
	return p.expr()
}

// match = "match" expr "{" innerAttr* (arm ","?)* "}" ;
// arm = outerAttr* pattern ("if" expr)? "=>" (blockLike | expr) ;
func (p *Parser) matchExpr() ast.ID {
	start := p.consume(token.MATCH)
	m := &ast.Match{Scrutinee: p.noStructExpr()}
	p.consume(token.LEFTBRACE)
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()
	for p.match(token.SHARP) && p.matchNth(1, token.BANG) {
		p.attribute()
	}
	for !p.match(token.RIGHTBRACE) {
		for p.match(token.SHARP) {
			p.attribute()
		}
		armStart := p.peek()
		arm := ast.Arm{Pattern: p.pattern()}
		if p.eat(token.IF) {
			arm.Guard = p.expr()
		}
		p.consume(token.FATARROW)
		if p.atBlockLike() {
			arm.Body = p.blockLike()
			if p.match(token.DOT, token.QUESTION) {
				arm.Body = p.postfixOps(arm.Body)
				arm.Body = p.binaryFrom(arm.Body, 0)
			}
			p.eat(token.COMMA)
		} else {
			arm.Body = p.assignment(true)
			if !p.match(token.RIGHTBRACE) {
				p.consume(token.COMMA)
			}
		}
		arm.Span = p.meta(armStart).Span
		m.Arms = append(m.Arms, arm)
	}
	p.consume(token.RIGHTBRACE)
	m.Meta = p.meta(start)
	return p.add(m)
}
