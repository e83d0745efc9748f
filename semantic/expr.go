package semantic

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// checkExpr checks id and records its type.
func (a *Analyzer) checkExpr(id ast.ID) *Type {
	if !id.Valid() {
		return UnknownType
	}
	return a.record(id, a.expr(id))
}

// expect checks id and requires its type to fit want.
func (a *Analyzer) expect(id ast.ID, want *Type) *Type {
	got := a.checkExpr(id)
	a.coerce(id, want, got)
	return got
}

// coerce reports a mismatch between want and the type got of id, and
// integer literals out of range for want.
func (a *Analyzer) coerce(id ast.ID, want, got *Type) bool {
	if !Assignable(want, got) {
		a.errorf(diag.TypeMismatch, a.span(id), "mismatched types: expected `%v`, found `%v`", want, got)
		return false
	}
	a.checkLiteralFits(id, want)
	return true
}

// checkLiteralFits reports an unsuffixed integer literal, possibly negated,
// that does not fit the integer type want.
func (a *Analyzer) checkLiteralFits(id ast.ID, want *Type) {
	if want.Kind != Int {
		return
	}
	neg := false
	node := a.file.Node(id)
	for {
		switch n := node.(type) {
		case *ast.Paren:
			node = a.file.Node(n.X)
			continue
		case *ast.Unary:
			if n.Op == token.MINUS {
				neg = !neg
				node = a.file.Node(n.X)
				continue
			}
		}
		break
	}
	lit, ok := node.(*ast.Literal)
	if !ok || lit.Token.Kind != token.INTEGER {
		return
	}
	v, ok := lit.Token.Literal.(token.IntLit)
	if !ok || v.Suffix != "" || v.Overflow {
		return
	}
	if !intFits(v.Value, neg, want.Name) {
		sign := ""
		if neg {
			sign = "-"
		}
		a.errorf(diag.IntegerOverflow, a.span(id), "literal `%s%s` out of range for `%v`", sign, lit.Token.Lexeme, want)
	}
}

func (a *Analyzer) expr(id ast.ID) *Type {
	switch n := a.file.Node(id).(type) {
	case *ast.Literal:
		return a.literal(n)
	case *ast.Path:
		return a.valuePath(id, n)
	case *ast.Unary:
		return a.unary(n)
	case *ast.Ref:
		t := a.checkExpr(n.X)
		if n.Mut {
			a.requireMutable(n.X, "borrow")
		}
		return RefTo(t, n.Mut)
	case *ast.Binary:
		return a.binary(n)
	case *ast.Assign:
		return a.assign(n)
	case *ast.Cast:
		return a.cast(n)
	case *ast.Call:
		return a.call(n)
	case *ast.MethodCall:
		return a.methodCall(id, n)
	case *ast.FieldAccess:
		return a.fieldAccess(n)
	case *ast.Index:
		return a.index(n)
	case *ast.StructLit:
		return a.structLit(n)
	case *ast.ArrayLit:
		return a.arrayLit(n)
	case *ast.Repeat:
		elem := a.checkExpr(n.Value)
		length := a.arrayLength(n.Count)
		a.record(n.Count, UsizeType)
		return ArrayOf(elem, length)
	case *ast.Tuple:
		elems := make([]*Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = a.checkExpr(e)
		}
		return TupleOf(elems...)
	case *ast.Paren:
		return a.checkExpr(n.X)
	case *ast.Range:
		return a.rangeExpr(n)
	case *ast.Closure:
		return a.closure(n)
	case *ast.Match:
		return a.matchExpr(n)
	case *ast.LetCond:
		return a.letCond(n)
	case *ast.If:
		return a.ifExpr(n)
	case *ast.Block:
		return a.block(n)
	case *ast.Loop:
		return a.loopExpr(n)
	case *ast.While:
		return a.whileExpr(n)
	case *ast.For:
		return a.forExpr(n)
	case *ast.Return:
		return a.returnExpr(id, n)
	case *ast.Break:
		return a.breakExpr(id, n)
	case *ast.Continue:
		return a.continueExpr(id, n)
	case *ast.Try:
		return a.try(n)
	case *ast.MacroCall:
		return a.macroCall(n)
	case *ast.BadExpr:
		return UnknownType
	default:
		log.Panicf("unexpected expression %T", n)
		return nil
	}
}

func (a *Analyzer) literal(n *ast.Literal) *Type {
	switch n.Token.Kind {
	case token.INTEGER:
		lit, _ := n.Token.Literal.(token.IntLit)
		t := IntLitType
		if lit.Suffix != "" {
			t = IntType(lit.Suffix)
		}
		switch {
		case lit.Overflow:
			a.errorf(diag.IntegerOverflow, n.Pos(), "integer literal `%s` is too large", n.Token.Lexeme)
		case lit.Suffix != "" && !intFits(lit.Value, false, lit.Suffix):
			a.errorf(diag.IntegerOverflow, n.Pos(), "literal `%s` out of range for `%s`", n.Token.Lexeme, lit.Suffix)
		}
		return t
	case token.STRING:
		lit, _ := n.Token.Literal.(token.StrLit)
		switch lit.Prefix {
		case "b", "br":
			return RefTo(ArrayOf(U8Type, int64(len(lit.Value))), false)
		case "c", "cr":
			return RefTo(OpaqueOf("CStr"), false)
		}
		return strRef
	case token.CHAR:
		if lit, _ := n.Token.Literal.(token.CharLit); lit.Byte {
			return U8Type
		}
		return CharType
	case token.TRUE, token.FALSE:
		return BoolType
	}
	return UnknownType
}

func (a *Analyzer) unary(n *ast.Unary) *Type {
	t := a.checkExpr(n.X)
	if t.IsLenient() || t.Kind == Never {
		return t
	}
	switch n.Op {
	case token.MINUS:
		if t.IsSigned() {
			return t
		}
		if base := peelRefs(t); base.IsSigned() {
			return base
		}
		a.errorf(diag.TypeMismatch, n.Pos(), "cannot apply unary operator `-` to type `%v`", t)
	case token.BANG:
		if t.Kind == Bool || t.IsInteger() {
			return t
		}
		if base := peelRefs(t); base.Kind == Bool || base.IsInteger() {
			return base
		}
		a.errorf(diag.TypeMismatch, n.Pos(), "cannot apply unary operator `!` to type `%v`", t)
	case token.STAR:
		return a.deref(n, t)
	}
	return UnknownType
}

func (a *Analyzer) deref(n *ast.Unary, t *Type) *Type {
	switch {
	case t.Kind == Ref:
		return t.Elem
	case t.Kind == Opaque && (t.Name == "Box" || t.Name == "Rc"):
		return t.Arg(0)
	case t.Kind == String:
		return StrType
	case t.Kind == Opaque:
		return UnknownType
	}
	a.errorf(diag.TypeMismatch, n.Pos(), "type `%v` cannot be dereferenced", t)
	return UnknownType
}

// operand strips references from integer and bool operands; arithmetic on
// &i32 works like on i32.
func operand(t *Type) *Type {
	if base := peelRefs(t); t.Kind == Ref && (base.IsInteger() || base.Kind == Bool || base.Kind == Char) {
		return base
	}
	return t
}

func (a *Analyzer) binary(n *ast.Binary) *Type {
	l := a.checkExpr(n.Left)
	r := a.checkExpr(n.Right)
	switch n.Op.Kind {
	case token.AMPAMP, token.PIPEPIPE:
		a.coerce(n.Left, BoolType, l)
		a.coerce(n.Right, BoolType, r)
		return BoolType
	case token.EQEQ, token.NE, token.LT, token.LE, token.GT, token.GE:
		a.comparison(n, l, r)
		return BoolType
	}
	return a.arith(n.Op, n.Pos(), n.Right, l, r)
}

// arith checks an arithmetic, bitwise or shift operator, also for the
// compound assignment forms.
func (a *Analyzer) arith(op token.Token, span token.Span, right ast.ID, l, r *Type) *Type {
	l, r = operand(l), operand(r)
	switch {
	case l.Kind == Never:
		return r
	case r.Kind == Never:
		return l
	case l.IsLenient() && r.IsLenient():
		return UnknownType
	case l.IsLenient():
		if r.IsInteger() {
			return r
		}
		return UnknownType
	case r.IsLenient():
		return l
	}
	kind := strings.TrimSuffix(op.Lexeme, "=")
	switch kind {
	case "+":
		if l.Kind == String && Assignable(strRef, r) {
			return StringType
		}
	case "<<", ">>":
		if l.IsInteger() && r.IsInteger() {
			a.checkLiteralFits(right, U32Type)
			return l
		}
	case "&", "|", "^":
		if l.Kind == Bool && r.Kind == Bool {
			return BoolType
		}
	}
	if l.IsInteger() && r.IsInteger() {
		if t := Join(l, r); t != nil {
			a.checkLiteralFits(right, t)
			return t
		}
	}
	a.errorf(diag.TypeMismatch, span, "cannot apply binary operator `%s` to types `%v` and `%v`", kind, l, r)
	return UnknownType
}

func strLike(t *Type) bool {
	base := peelRefs(t)
	return base.Kind == Str || base.Kind == String
}

func (a *Analyzer) comparison(n *ast.Binary, l, r *Type) {
	if l.IsLenient() || r.IsLenient() || l.Kind == Never || r.Kind == Never {
		return
	}
	if Join(l, r) == nil && !(strLike(l) && strLike(r)) && Join(operand(l), operand(r)) == nil {
		a.errorf(diag.TypeMismatch, n.Pos(), "mismatched types: cannot compare `%v` with `%v`", l, r)
		return
	}
	base := peelRefs(l)
	if base.Kind != Adt || !a.opts.RequirePartialEq {
		return
	}
	trait := "PartialEq"
	if n.Op.Kind != token.EQEQ && n.Op.Kind != token.NE {
		trait = "PartialOrd"
	}
	if !base.Info.Implements(trait) {
		a.errorf(diag.MissingPartialEq, n.Op.Span, "binary operation `%s` cannot be applied to type `%v`: `%v` does not implement `%s`", n.Op.Lexeme, base, base, trait)
	}
}

func (a *Analyzer) assign(n *ast.Assign) *Type {
	l := a.checkExpr(n.Left)
	r := a.checkExpr(n.Right)
	if n.Op.Kind == token.EQ {
		a.coerce(n.Right, l, r)
	} else if t := a.arith(n.Op, n.Pos(), n.Right, l, r); !t.IsLenient() && !Assignable(operand(l), t) {
		a.errorf(diag.TypeMismatch, n.Pos(), "cannot apply `%s` to `%v` and `%v`", n.Op.Lexeme, l, r)
	}
	a.requireMutable(n.Left, "assign")
	return UnitType
}

func (a *Analyzer) cast(n *ast.Cast) *Type {
	from := a.checkExpr(n.X)
	to := a.resolveType(n.Type)
	if from.IsLenient() || to.IsLenient() || from.Kind == Never {
		return to
	}
	from = operand(from)
	ok := false
	switch to.Kind {
	case Int:
		ok = from.IsInteger() || from.Kind == Bool || from.Kind == Char ||
			from.Kind == Adt && from.Info.Kind == EnumSym
	case Char:
		ok = from.Kind == Char || from.Kind == IntLit || from.Kind == Int && from.Name == "u8"
	default:
		ok = Assignable(to, from)
	}
	if !ok {
		a.errorf(diag.TypeMismatch, n.Pos(), "non-primitive cast: `%v` as `%v`", from, to)
	}
	return to
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// checkArgs checks call arguments against params.
func (a *Analyzer) checkArgs(span token.Span, what string, params []*Type, args []ast.ID) []*Type {
	types := make([]*Type, len(args))
	if len(params) != len(args) {
		a.errorf(diag.ArityMismatch, span, "this %s takes %s but %s supplied", what, plural(len(params), "argument"), plural(len(args), "argument"))
	}
	for i, arg := range args {
		if i < len(params) {
			types[i] = a.expect(arg, params[i])
		} else {
			types[i] = a.checkExpr(arg)
		}
	}
	return types
}

func (a *Analyzer) call(n *ast.Call) *Type {
	ft := a.checkExpr(n.Func)
	sym := a.out.Symbols[n.Func]
	if sym != nil && sym.Builtin && sym.Name == "exit" && (a.fn == nil || !a.fn.main) {
		a.errorf(diag.InvalidControlFlow, a.span(n.Func), "`exit` can only be called within the `main` function")
	}
	if ft.IsLenient() || ft.Kind == Never {
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		return UnknownType
	}
	if ft.Kind != Fn {
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		a.errorf(diag.TypeMismatch, a.span(n.Func), "expected function, found `%v`", ft)
		return UnknownType
	}
	args := a.checkArgs(n.Pos(), "function", ft.Elems, n.Args)
	if sym != nil && sym.Builtin && len(args) == 1 {
		// Prelude constructors carry their payload type.
		switch sym.Name {
		case "Some":
			return OpaqueOf("Option", args[0])
		case "Ok":
			return OpaqueOf("Result", args[0], UnknownType)
		case "Err":
			return OpaqueOf("Result", UnknownType, args[0])
		}
	}
	if m := a.out.Methods[n.Func]; m == boxAssoc["new"] && len(args) == 1 {
		return OpaqueOf("Box", args[0])
	}
	return ft.Ret
}

func (a *Analyzer) arrayLit(n *ast.ArrayLit) *Type {
	elem := UnknownType
	for _, e := range n.Elems {
		t := a.checkExpr(e)
		j := Join(elem, t)
		if j == nil {
			a.errorf(diag.TypeMismatch, a.span(e), "mismatched types: expected `%v`, found `%v`", elem, t)
			continue
		}
		elem = j
	}
	return ArrayOf(elem, int64(len(n.Elems)))
}

func (a *Analyzer) rangeExpr(n *ast.Range) *Type {
	elem := UnknownType
	for _, bound := range []ast.ID{n.Lo, n.Hi} {
		if !bound.Valid() {
			continue
		}
		t := operand(a.checkExpr(bound))
		if !t.IsLenient() && !t.IsInteger() && t.Kind != Char && t.Kind != Never {
			a.errorf(diag.TypeMismatch, a.span(bound), "range bounds must be integers or characters, found `%v`", t)
			continue
		}
		j := Join(elem, t)
		if j == nil {
			a.errorf(diag.TypeMismatch, a.span(bound), "mismatched types: expected `%v`, found `%v`", elem, t)
			continue
		}
		elem = j
	}
	return RangeOf(elem)
}

func (a *Analyzer) try(n *ast.Try) *Type {
	t := a.checkExpr(n.X)
	switch {
	case t.IsLenient():
		return UnknownType
	case t.Kind == Opaque && (t.Name == "Option" || t.Name == "Result"):
		return t.Arg(0)
	}
	a.errorf(diag.TypeMismatch, n.Pos(), "the `?` operator can only be applied to values of type `Option` or `Result`, found `%v`", t)
	return UnknownType
}

var formatMacros = []string{"println", "print", "eprintln", "eprint", "format", "panic", "write", "writeln"}

func (a *Analyzer) macroCall(n *ast.MacroCall) *Type {
	name := n.Name.Name
	if n.ArgsParsed {
		a.macroArgs(n)
	}
	switch name {
	case "println", "print", "eprintln", "eprint", "assert", "assert_eq", "assert_ne",
		"debug_assert", "debug_assert_eq", "debug_assert_ne":
		return UnitType
	case "format":
		return StringType
	case "panic", "unreachable", "todo", "unimplemented":
		return NeverType
	case "matches":
		return BoolType
	case "vec":
		if !n.ArgsParsed {
			return OpaqueOf("Vec", UnknownType)
		}
		elem := UnknownType
		for _, arg := range n.Args {
			t := a.out.TypeOf(arg)
			if r, ok := a.file.Node(arg).(*ast.Repeat); ok {
				t = a.out.TypeOf(r.Value)
			}
			if j := Join(elem, t); j != nil {
				elem = j
			}
		}
		return OpaqueOf("Vec", elem)
	}
	return UnknownType
}

func (a *Analyzer) macroArgs(n *ast.MacroCall) {
	for i, arg := range n.Args {
		switch {
		case n.Name.Name == "vec" && len(n.Args) == 1:
			if r, ok := a.file.Node(arg).(*ast.Repeat); ok {
				// The count of vec![v; n] need not be constant.
				elem := a.checkExpr(r.Value)
				a.expect(r.Count, UsizeType)
				a.record(arg, ArrayOf(elem, -1))
				continue
			}
		case n.Name.Name == "matches" && i == 1:
			// The second argument is a pattern.
			continue
		case i == 0 && slices.Contains(formatMacros, n.Name.Name):
			a.formatArgs(arg)
		}
		a.checkExpr(arg)
	}
}

// formatArgs resolves the names captured inline by a format string, as in
// println!("{x}").
func (a *Analyzer) formatArgs(id ast.ID) {
	lit, ok := a.file.Node(id).(*ast.Literal)
	if !ok || lit.Token.Kind != token.STRING {
		return
	}
	s, _ := lit.Token.Literal.(token.StrLit)
	text := s.Value
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexAny(text[i+1:], ":}")
		if end < 0 {
			return
		}
		name := text[i+1 : i+1+end]
		i += end
		if name == "" || !isIdent(name) {
			continue
		}
		if _, err := a.scope.LookupValue(name); err != nil {
			a.errorf(diag.UndeclaredIdentifier, lit.Pos(), "%v", err)
		}
	}
}

func isIdent(s string) bool {
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || i > 0 && unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
