package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

// place describes an assignable or borrowable location.
type place struct {
	// ok is false for temporaries such as call results.
	ok      bool
	mutable bool
	// root is the variable the place starts from, if any.
	root *Symbol
	// behindRef is set when the place is reached through a shared reference.
	behindRef bool
}

// placeMutability classifies the expression id as a place.
func (a *Analyzer) placeMutability(id ast.ID) place {
	switch n := a.file.Node(id).(type) {
	case *ast.Paren:
		return a.placeMutability(n.X)
	case *ast.Path:
		sym := a.out.Symbols[id]
		if sym == nil {
			return place{}
		}
		switch sym.Kind {
		case Variable:
			// `let x;` may be assigned once it is declared without a value.
			return place{ok: true, mutable: sym.Mutable || !sym.Initialized, root: sym}
		case StaticSym:
			return place{ok: true, mutable: sym.Mutable, root: sym}
		}
		return place{}
	case *ast.FieldAccess:
		return a.projection(n.X)
	case *ast.Index:
		return a.projection(n.X)
	case *ast.Unary:
		if n.Op != token.STAR {
			return place{}
		}
		t := a.out.TypeOf(n.X)
		switch {
		case t.Kind == Ref:
			return place{ok: true, mutable: t.Mut, root: a.placeMutability(n.X).root, behindRef: !t.Mut}
		case t.Kind == Opaque && t.Name == "Box":
			return a.placeMutability(n.X)
		}
		return place{ok: true, mutable: true}
	}
	return place{}
}

// projection classifies a field or element of base. Projections through a
// reference are mutable only when every reference on the way is &mut.
func (a *Analyzer) projection(base ast.ID) place {
	t := a.out.TypeOf(base)
	if t.Kind == Ref {
		mutable := refChainMut(t)
		return place{ok: true, mutable: mutable, root: a.placeMutability(base).root, behindRef: !mutable}
	}
	if t.IsLenient() {
		return place{ok: true, mutable: true}
	}
	inner := a.placeMutability(base)
	if !inner.ok {
		// Fields of temporaries are mutable locations.
		return place{ok: true, mutable: true}
	}
	return inner
}

func refChainMut(t *Type) bool {
	for t.Kind == Ref {
		if !t.Mut {
			return false
		}
		t = t.Elem
	}
	return true
}

// requireMutable reports an assignment to, or a mutable borrow of, a place
// that is not mutable. action is "assign" or "borrow".
func (a *Analyzer) requireMutable(id ast.ID, action string) {
	p := a.placeMutability(id)
	if !p.ok {
		if action == "assign" {
			a.errorf(diag.Mutability, a.span(id), "invalid left-hand side of assignment")
		}
		return
	}
	if p.mutable {
		return
	}
	name := "value"
	if p.root != nil {
		name = "`" + p.root.Name + "`"
	}
	switch {
	case p.behindRef && action == "assign":
		a.errorf(diag.Mutability, a.span(id), "cannot assign to data behind a `&` reference")
	case p.behindRef:
		a.errorf(diag.Mutability, a.span(id), "cannot borrow data behind a `&` reference as mutable")
	case p.root != nil && p.root.Kind == StaticSym && action == "assign":
		a.errorf(diag.Mutability, a.span(id), "cannot assign to immutable static item %s", name)
	case action == "assign" && a.isRootPath(id):
		a.errorf(diag.Mutability, a.span(id), "cannot assign twice to immutable variable %s", name)
	case action == "assign":
		a.errorf(diag.Mutability, a.span(id), "cannot assign to a field of %s, as %s is not declared as mutable", name, name)
	default:
		a.errorf(diag.Mutability, a.span(id), "cannot borrow %s as mutable, as it is not declared as mutable", name)
	}
}

func (a *Analyzer) isRootPath(id ast.ID) bool {
	for {
		switch n := a.file.Node(id).(type) {
		case *ast.Paren:
			id = n.X
			continue
		case *ast.Path:
			return true
		}
		return false
	}
}
