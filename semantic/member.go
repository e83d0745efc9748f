package semantic

import (
	"strconv"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"golang.org/x/exp/slices"
)

// lookup is the result of method resolution.
type lookup struct {
	method *Method
	// self is the receiver type after auto-deref.
	self *Type
	// mutable reports whether the place reached through the peeled
	// references may be borrowed mutably.
	mutable bool
	// viaRef is set when at least one reference was peeled.
	viaRef bool
	// lenient is set when the receiver's type is not known well enough to
	// resolve anything.
	lenient bool
}

// derefStep returns the type one auto-deref step below t.
func derefStep(t *Type) (*Type, bool) {
	switch {
	case t.Kind == Ref:
		return t.Elem, true
	case t.Kind == String:
		return StrType, true
	case t.Kind == Array:
		return SliceOf(t.Elem), true
	case t.Kind == Opaque && t.Name == "Vec":
		return SliceOf(t.Arg(0)), true
	case t.Kind == Opaque && (t.Name == "Box" || t.Name == "Rc"):
		return t.Arg(0), true
	}
	return nil, false
}

// lookupMethod searches recv and the types reachable from it by auto-deref,
// at most MaxDerefDepth steps deep. Every receiver spelling that derefs to
// the same type resolves to the same *Method.
func (a *Analyzer) lookupMethod(recv *Type, name string, mutable bool) lookup {
	t := recv
	viaRef := false
	for depth := 0; ; depth++ {
		if t.IsLenient() || t.Kind == Never {
			return lookup{lenient: true}
		}
		if m := a.findMethod(t, name); m != nil {
			return lookup{method: m, self: t, mutable: mutable, viaRef: viaRef}
		}
		if depth >= a.opts.MaxDerefDepth {
			return lookup{}
		}
		next, ok := derefStep(t)
		if !ok {
			if t.Kind == Opaque {
				return lookup{lenient: true}
			}
			return lookup{}
		}
		switch t.Kind {
		case Ref:
			// Mutability through a reference chain is that of the innermost
			// reference.
			mutable = t.Mut
			viaRef = true
		case Opaque:
			if t.Name == "Rc" {
				mutable = false
			}
		}
		t = next
	}
}

// findMethod returns the method name declared for exactly t.
func (a *Analyzer) findMethod(t *Type, name string) *Method {
	if t.Kind == Adt {
		if m, ok := t.Info.Methods[name]; ok {
			return m
		}
		switch {
		case name == "clone" && (t.Info.Implements("Clone") || t.Info.Implements("Copy")):
			return derivedClone
		case (name == "eq" || name == "ne") && t.Info.Implements("PartialEq"):
			return derivedEq
		case name == "to_string" && t.Info.Implements("Display"):
			return displayToString
		}
		return nil
	}
	key := t.String()
	if t.Kind == IntLit {
		key = "i32"
	}
	if m, ok := a.primImpls[key][name]; ok {
		return m
	}
	if m, ok := builtinMethods(t)[name]; ok && m.Receiver != ast.NoReceiver {
		return m
	}
	return nil
}

func (a *Analyzer) methodCall(id ast.ID, n *ast.MethodCall) *Type {
	recv := a.checkExpr(n.Receiver)
	for _, g := range n.Generics {
		a.resolveType(g)
	}
	place := a.placeMutability(n.Receiver)
	res := a.lookupMethod(recv, n.Name.Name, !place.ok || place.mutable)
	if res.lenient {
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		return UnknownType
	}
	if res.method == nil {
		for _, arg := range n.Args {
			a.checkExpr(arg)
		}
		a.errorf(diag.UnresolvedMethod, n.Name.Span, "no method named `%s` found for `%v` in the current scope", n.Name.Name, recv)
		return UnknownType
	}
	m := res.method
	a.out.Methods[id] = m
	if m.Receiver == ast.NoReceiver {
		a.errorf(diag.UnresolvedMethod, n.Name.Span, "`%s` is an associated function, not a method; call it as `%v::%s`", n.Name.Name, res.self, n.Name.Name)
	}
	if m.Receiver == ast.RefMutReceiver && !res.mutable {
		a.mutableReceiver(n, res)
	}
	params, ret := m.Signature(res.self)
	if !m.Builtin {
		params = slices.Clone(params)
		for i := range params {
			params[i] = substSelf(params[i], res.self)
		}
	}
	a.checkArgs(n.Pos(), "method", params, n.Args)
	return substSelf(ret, res.self)
}

// mutableReceiver reports a &mut self call on a place that cannot be
// borrowed mutably.
func (a *Analyzer) mutableReceiver(n *ast.MethodCall, res lookup) {
	if res.viaRef {
		a.errorf(diag.Mutability, a.span(n.Receiver), "cannot borrow data in a `&` reference as mutable for method `%s`", n.Name.Name)
		return
	}
	a.requireMutable(n.Receiver, "borrow")
}

func (a *Analyzer) fieldAccess(n *ast.FieldAccess) *Type {
	recv := a.checkExpr(n.X)
	t := recv
	for depth := 0; depth <= a.opts.MaxDerefDepth; depth++ {
		switch {
		case t.IsLenient() || t.Kind == Never:
			return UnknownType
		case t.Kind == Ref:
			t = t.Elem
			continue
		case t.Kind == Opaque && (t.Name == "Box" || t.Name == "Rc"):
			t = t.Arg(0)
			continue
		case t.Kind == Opaque:
			return UnknownType
		case t.Kind == Adt && t.Info.Kind == StructSym:
			if f, ok := t.Info.Field(n.Name.Name); ok {
				return f.Type
			}
		case t.Kind == Tuple:
			if i, err := strconv.Atoi(n.Name.Name); err == nil && i >= 0 && i < len(t.Elems) {
				return t.Elems[i]
			}
		}
		break
	}
	a.errorf(diag.UnknownField, n.Name.Span, "no field `%s` on type `%v`", n.Name.Name, recv)
	return UnknownType
}

func (a *Analyzer) index(n *ast.Index) *Type {
	recv := a.checkExpr(n.X)
	idx := a.checkExpr(n.Index)
	isRange := idx.Kind == Range
	position := idx
	if isRange {
		position = idx.Elem
	}
	t := recv
	for depth := 0; depth <= a.opts.MaxDerefDepth; depth++ {
		var elem *Type
		switch {
		case t.IsLenient() || t.Kind == Never:
			return UnknownType
		case t.Kind == Ref:
			t = t.Elem
			continue
		case t.Kind == Opaque && (t.Name == "Box" || t.Name == "Rc"):
			t = t.Arg(0)
			continue
		case t.Kind == Array || t.Kind == Slice:
			elem = t.Elem
		case t.Kind == Opaque && t.Name == "Vec":
			elem = t.Arg(0)
		case t.Kind == Opaque:
			return UnknownType
		case (t.Kind == Str || t.Kind == String) && isRange:
			return StrType
		}
		if elem == nil {
			break
		}
		if !Assignable(UsizeType, operand(position)) {
			a.errorf(diag.TypeMismatch, a.span(n.Index), "the type `[%v]` cannot be indexed by `%v`", elem, idx)
		}
		if isRange {
			return SliceOf(elem)
		}
		return elem
	}
	a.errorf(diag.TypeMismatch, n.Pos(), "cannot index into a value of type `%v`", recv)
	return UnknownType
}
