package semantic

import (
	"math"
	"math/bits"
	"strings"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

type constState struct {
	scope      *Scope
	evaluating bool
	done       bool
	value      int64
	ok         bool
}

// intBits returns the width of an integer type name.
func intBits(name string) int {
	switch strings.TrimLeft(name, "iu") {
	case "8":
		return 8
	case "16":
		return 16
	case "32":
		return 32
	case "128":
		return 128
	default:
		return 64
	}
}

// intFits reports whether the literal magnitude v, negated when neg is
// set, is in range for the integer type name.
func intFits(v uint64, neg bool, name string) bool {
	n := intBits(name)
	if strings.HasPrefix(name, "u") {
		if neg {
			return v == 0
		}
		return n >= 64 || v <= 1<<n-1
	}
	if n >= 128 {
		return true
	}
	if neg {
		return v <= 1<<(n-1)
	}
	return v <= 1<<(n-1)-1
}

// intBounds returns the range of an integer type clipped to int64.
func intBounds(name string) (lo, hi int64) {
	n := intBits(name)
	if strings.HasPrefix(name, "u") {
		if n >= 64 {
			return 0, math.MaxInt64
		}
		return 0, 1<<n - 1
	}
	if n >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	return -(1 << (n - 1)), 1<<(n-1) - 1
}

// wrap truncates v to the width of the integer type name, as `as` does.
func wrap(v int64, name string) int64 {
	n := intBits(name)
	if n >= 64 {
		if strings.HasPrefix(name, "u") && v < 0 {
			return math.MaxInt64
		}
		return v
	}
	mask := uint64(1)<<n - 1
	u := uint64(v) & mask
	if strings.HasPrefix(name, "i") && u&(1<<(n-1)) != 0 {
		return int64(u) - int64(1)<<n
	}
	return int64(u)
}

// arrayLength evaluates an array length or repeat count.
func (a *Analyzer) arrayLength(id ast.ID) int64 {
	v, ok := a.evalConst(id)
	if !ok {
		return -1
	}
	if v < 0 {
		a.errorf(diag.NonConstantLength, a.span(id), "array length must be non-negative, found %d", v)
		return -1
	}
	return v
}

// evalConst evaluates an integer constant expression, reporting why it is
// not one when it fails.
func (a *Analyzer) evalConst(id ast.ID) (int64, bool) {
	switch n := a.file.Node(id).(type) {
	case *ast.Literal:
		lit, ok := n.Token.Literal.(token.IntLit)
		if n.Token.Kind != token.INTEGER || !ok {
			a.errorf(diag.NonConstantLength, n.Pos(), "expected an integer constant, found `%s`", n.Token.Lexeme)
			return 0, false
		}
		if lit.Overflow || lit.Value > math.MaxInt64 {
			a.errorf(diag.IntegerOverflow, n.Pos(), "integer literal `%s` is too large", n.Token.Lexeme)
			return 0, false
		}
		return int64(lit.Value), true
	case *ast.Paren:
		return a.evalConst(n.X)
	case *ast.Block:
		if len(n.Stmts) == 0 && n.Tail.Valid() {
			return a.evalConst(n.Tail)
		}
	case *ast.Unary:
		v, ok := a.evalConst(n.X)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case token.MINUS:
			if v == math.MinInt64 {
				a.errorf(diag.IntegerOverflow, n.Pos(), "attempt to negate with overflow")
				return 0, false
			}
			return -v, true
		case token.BANG:
			return ^v, true
		}
	case *ast.Cast:
		v, ok := a.evalConst(n.X)
		if !ok {
			return 0, false
		}
		if t := a.resolveType(n.Type); t.Kind == Int {
			return wrap(v, t.Name), true
		}
		return v, true
	case *ast.Binary:
		return a.evalBinary(n)
	case *ast.Path:
		return a.evalConstPath(id, n)
	}
	a.errorf(diag.NonConstantLength, a.span(id), "array length must be a constant expression")
	return 0, false
}

func (a *Analyzer) evalBinary(n *ast.Binary) (int64, bool) {
	l, ok := a.evalConst(n.Left)
	if !ok {
		return 0, false
	}
	r, ok := a.evalConst(n.Right)
	if !ok {
		return 0, false
	}
	overflow := func() (int64, bool) {
		a.errorf(diag.IntegerOverflow, n.Pos(), "attempt to compute `%d %s %d`, which would overflow", l, n.Op.Lexeme, r)
		return 0, false
	}
	switch n.Op.Kind {
	case token.PLUS:
		s := l + r
		if (s > l) != (r > 0) {
			return overflow()
		}
		return s, true
	case token.MINUS:
		d := l - r
		if (d < l) != (r > 0) {
			return overflow()
		}
		return d, true
	case token.STAR:
		hi, lo := bits.Mul64(uint64(abs(l)), uint64(abs(r)))
		if hi != 0 || lo > math.MaxInt64 {
			return overflow()
		}
		return l * r, true
	case token.SLASH, token.PERCENT:
		if r == 0 {
			a.errorf(diag.NonConstantLength, n.Pos(), "attempt to divide `%d` by zero", l)
			return 0, false
		}
		if n.Op.Kind == token.SLASH {
			return l / r, true
		}
		return l % r, true
	case token.SHL:
		if r < 0 || r >= 64 {
			return overflow()
		}
		return l << r, true
	case token.SHR:
		if r < 0 || r >= 64 {
			return overflow()
		}
		return l >> r, true
	case token.AMP:
		return l & r, true
	case token.PIPE:
		return l | r, true
	case token.CARET:
		return l ^ r, true
	}
	a.errorf(diag.NonConstantLength, n.Pos(), "operator `%s` is not allowed in an array length", n.Op.Lexeme)
	return 0, false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (a *Analyzer) evalConstPath(id ast.ID, n *ast.Path) (int64, bool) {
	var sym *Symbol
	switch len(n.Segments) {
	case 1:
		found, err := a.scope.LookupValue(n.Segments[0].Name.Name)
		if err != nil {
			a.errorf(diag.UndeclaredIdentifier, n.Pos(), "%v", err)
			return 0, false
		}
		sym = found
	case 2:
		name := n.Segments[1].Name.Name
		if t := IntType(n.Segments[0].Name.Name); t != nil {
			lo, hi := intBounds(t.Name)
			switch name {
			case "MAX":
				return hi, true
			case "MIN":
				return lo, true
			case "BITS":
				return int64(intBits(t.Name)), true
			}
		}
		_, t, ok := a.resolvePrefix(n.Segments[:1])
		if !ok {
			return 0, false
		}
		if t != nil && t.Kind == Adt {
			sym = t.Info.Consts[name]
		}
	}
	if sym == nil || sym.Kind != ConstSym {
		a.errorf(diag.NonConstantLength, n.Pos(), "attempt to use a non-constant value in a constant")
		return 0, false
	}
	a.out.Symbols[id] = sym
	return a.constValue(sym)
}

// constValue evaluates the initializer of a const item once.
func (a *Analyzer) constValue(sym *Symbol) (int64, bool) {
	state, ok := a.consts[sym.Decl]
	decl, isConst := a.file.Node(sym.Decl).(*ast.Const)
	if !ok || !isConst || !decl.Value.Valid() {
		return 0, false
	}
	switch {
	case state.done:
		return state.value, state.ok
	case state.evaluating:
		a.errorf(diag.NonConstantLength, sym.Span, "cycle detected when evaluating constant `%s`", sym.Name)
		return 0, false
	}
	state.evaluating = true
	a.within(state.scope, func() { state.value, state.ok = a.evalConst(decl.Value) })
	state.evaluating = false
	state.done = true
	if state.ok && sym.Type.Kind == Int {
		if lo, hi := intBounds(sym.Type.Name); state.value < lo || state.value > hi {
			a.errorf(diag.IntegerOverflow, sym.Span, "constant `%s` evaluates to %d, out of range for `%s`", sym.Name, state.value, sym.Type)
		}
	}
	return state.value, state.ok
}
