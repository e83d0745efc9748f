package ast

import "log"

// Children returns the direct child IDs of id in source order.
func (a *Arena) Children(id ID) []ID {
	var out []ID
	add := func(ids ...ID) {
		for _, c := range ids {
			if c.Valid() {
				out = append(out, c)
			}
		}
	}
	params := func(ps []Param) {
		for _, p := range ps {
			add(p.Pattern, p.Type)
		}
	}
	segments := func(ss []PathSegment) {
		for _, s := range ss {
			add(s.Args...)
		}
	}
	generics := func(gs []Generic) {
		for _, g := range gs {
			add(g.Bounds...)
		}
	}
	fields := func(fs []FieldDecl) {
		for _, f := range fs {
			add(f.Type)
		}
	}

	switch n := a.Node(id).(type) {
	case nil:
	case *Function:
		generics(n.Generics)
		add(n.Receiver.Type)
		params(n.Params)
		add(n.Ret, n.Body)
	case *Struct:
		generics(n.Generics)
		fields(n.Fields)
	case *Enum:
		generics(n.Generics)
		for _, v := range n.Variants {
			fields(v.Fields)
			add(v.Discriminant)
		}
	case *Impl:
		generics(n.Generics)
		add(n.Trait, n.Target)
		add(n.Items...)
	case *Trait:
		generics(n.Generics)
		add(n.Items...)
	case *Module:
		add(n.Items...)
	case *Use, *BadItem:
	case *Const:
		add(n.Type, n.Value)
	case *TypeAlias:
		add(n.Type)

	case *Let:
		add(n.Pattern, n.Type, n.Init, n.Else)
	case *ExprStmt:
		add(n.X)
	case *ItemStmt:
		add(n.Item)

	case *Literal, *Continue, *BadExpr:
	case *Path:
		segments(n.Segments)
	case *Unary:
		add(n.X)
	case *Ref:
		add(n.X)
	case *Binary:
		add(n.Left, n.Right)
	case *Assign:
		add(n.Left, n.Right)
	case *Cast:
		add(n.X, n.Type)
	case *Call:
		add(n.Func)
		add(n.Args...)
	case *MethodCall:
		add(n.Receiver)
		add(n.Generics...)
		add(n.Args...)
	case *FieldAccess:
		add(n.X)
	case *Index:
		add(n.X, n.Index)
	case *StructLit:
		add(n.Path)
		for _, f := range n.Fields {
			add(f.Value)
		}
		add(n.Base)
	case *ArrayLit:
		add(n.Elems...)
	case *Repeat:
		add(n.Value, n.Count)
	case *Tuple:
		add(n.Elems...)
	case *Paren:
		add(n.X)
	case *Range:
		add(n.Lo, n.Hi)
	case *Closure:
		params(n.Params)
		add(n.Ret, n.Body)
	case *Match:
		add(n.Scrutinee)
		for _, arm := range n.Arms {
			add(arm.Pattern, arm.Guard, arm.Body)
		}
	case *LetCond:
		add(n.Pattern, n.Value)
	case *If:
		add(n.Cond, n.Then, n.Else)
	case *Block:
		add(n.Stmts...)
		add(n.Tail)
	case *Loop:
		add(n.Body)
	case *While:
		add(n.Cond, n.Body)
	case *For:
		add(n.Pattern, n.Iter, n.Body)
	case *Return:
		add(n.Value)
	case *Break:
		add(n.Value)
	case *Try:
		add(n.X)
	case *MacroCall:
		add(n.Args...)

	case *LitPat, *WildPat, *RestPat, *PathPat:
	case *IdentPat:
		add(n.Sub)
	case *TuplePat:
		add(n.Elems...)
	case *TupleStructPat:
		add(n.Elems...)
	case *StructPat:
		for _, f := range n.Fields {
			add(f.Pattern)
		}
	case *OrPat:
		add(n.Alts...)
	case *RangePat:
		add(n.Lo, n.Hi)
	case *RefPat:
		add(n.Pattern)
	case *SlicePat:
		add(n.Elems...)

	case *PathType:
		segments(n.Segments)
	case *RefType:
		add(n.Elem)
	case *ArrayType:
		add(n.Elem, n.Len)
	case *SliceType:
		add(n.Elem)
	case *TupleType:
		add(n.Elems...)
	case *NeverType, *InferType, *LifetimeArg:
	case *FnType:
		add(n.Params...)
		add(n.Ret)
	case *ImplType:
		add(n.Bounds...)
	default:
		log.Panicf("unexpected node %T", n)
	}
	return out
}

// Walk visits id and its descendants in depth-first pre-order. Returning
// false from f skips the children of that node.
func (a *Arena) Walk(id ID, f func(ID, Node) bool) {
	if !id.Valid() {
		return
	}
	if !f(id, a.Node(id)) {
		return
	}
	for _, c := range a.Children(id) {
		a.Walk(c, f)
	}
}
