package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// externalRoots are crate names whose paths are accepted without checks.
var externalRoots = []string{"std", "core", "alloc"}

type aliasState struct {
	scope     *Scope
	resolving bool
	t         *Type
}

func (a *Analyzer) resolveType(id ast.ID) *Type {
	if !id.Valid() {
		return UnknownType
	}
	switch n := a.file.Node(id).(type) {
	case *ast.PathType:
		return a.resolvePathType(n)
	case *ast.RefType:
		return RefTo(a.resolveType(n.Elem), n.Mut)
	case *ast.ArrayType:
		return ArrayOf(a.resolveType(n.Elem), a.arrayLength(n.Len))
	case *ast.SliceType:
		return SliceOf(a.resolveType(n.Elem))
	case *ast.TupleType:
		elems := make([]*Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = a.resolveType(e)
		}
		return TupleOf(elems...)
	case *ast.NeverType:
		return NeverType
	case *ast.FnType:
		params := make([]*Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = a.resolveType(p)
		}
		ret := UnitType
		if n.Ret.Valid() {
			ret = a.resolveType(n.Ret)
		}
		return FnOf(params, ret)
	}
	return UnknownType
}

// primitiveType returns the builtin type spelled name, or nil.
func primitiveType(name string) *Type {
	if t := IntType(name); t != nil {
		return t
	}
	switch name {
	case "bool":
		return BoolType
	case "char":
		return CharType
	case "str":
		return StrType
	}
	return nil
}

func (a *Analyzer) resolvePathType(n *ast.PathType) *Type {
	segs := n.Segments
	if len(segs) == 0 {
		return UnknownType
	}
	if len(segs) == 1 {
		seg := segs[0]
		if t := primitiveType(seg.Name.Name); t != nil {
			return t
		}
		if seg.Name.Name == "Self" {
			if a.self == nil {
				a.errorf(diag.UndeclaredType, seg.Name.Span, "cannot find type `Self` in this scope")
				return UnknownType
			}
			return a.self
		}
		sym, err := a.scope.LookupType(seg.Name.Name)
		if err != nil {
			a.errorf(diag.UndeclaredType, seg.Name.Span, "%v", err)
			return UnknownType
		}
		return a.symbolType(sym, seg)
	}

	first := segs[0].Name.Name
	if slices.Contains(externalRoots, first) {
		last := segs[len(segs)-1]
		if sym, err := a.root.LookupType(last.Name.Name); err == nil && sym.Builtin {
			return a.symbolType(sym, last)
		}
		return UnknownType
	}
	scope, t, ok := a.resolvePrefix(segs[:len(segs)-1])
	switch {
	case !ok:
		return UnknownType
	case t != nil:
		// Associated types are not tracked.
		return UnknownType
	}
	last := segs[len(segs)-1]
	sym, found := scope.LocalType(last.Name.Name)
	if !found {
		a.errorf(diag.UndeclaredType, last.Name.Span, "cannot find type `%s` in module", last.Name.Name)
		return UnknownType
	}
	return a.symbolType(sym, last)
}

// symbolType is the type a type-namespace symbol denotes.
func (a *Analyzer) symbolType(sym *Symbol, seg ast.PathSegment) *Type {
	switch sym.Kind {
	case StructSym, EnumSym:
		return sym.Info.Type
	case TypeParam:
		return sym.Type
	case TypeAliasSym:
		return a.aliasType(sym)
	case ModuleSym:
		a.errorf(diag.UndeclaredType, seg.Name.Span, "expected type, found module `%s`", sym.Name)
		return UnknownType
	case External:
		if sym.Type.Kind != Opaque {
			return sym.Type
		}
		var args []*Type
		for _, arg := range seg.Args {
			switch a.file.Node(arg).(type) {
			case *ast.LifetimeArg:
			case ast.Type:
				args = append(args, a.resolveType(arg))
			}
		}
		return OpaqueOf(sym.Name, args...)
	}
	return UnknownType
}

func (a *Analyzer) aliasType(sym *Symbol) *Type {
	state, ok := a.aliases[sym.Decl]
	n, isAlias := a.file.Node(sym.Decl).(*ast.TypeAlias)
	if !ok || !isAlias {
		return UnknownType
	}
	switch {
	case state.t != nil:
		return state.t
	case state.resolving:
		a.errorf(diag.TypeMismatch, sym.Span, "cycle detected when expanding type alias `%s`", sym.Name)
		return UnknownType
	}
	state.resolving = true
	var t *Type
	a.within(state.scope, func() { t = a.resolveType(n.Type) })
	state.resolving = false
	state.t = t
	return t
}

// parentModule returns the nearest module scope enclosing s.
func parentModule(s *Scope) *Scope {
	for e := s.parent; e != nil; e = e.parent {
		if e.kind == ModuleScope {
			return e
		}
	}
	return s
}

// resolvePrefix resolves the leading segments of a qualified path to a
// module scope or a type. It reports unresolved segments and returns false
// for them.
func (a *Analyzer) resolvePrefix(prefix []ast.PathSegment) (*Scope, *Type, bool) {
	cur := a.scope
	walked := false
	for i, seg := range prefix {
		name := seg.Name.Name
		last := i == len(prefix)-1
		switch name {
		case "crate":
			cur, walked = a.root, true
			continue
		case "self":
			continue
		case "super":
			cur, walked = parentModule(cur), true
			continue
		case "Self":
			if a.self == nil {
				a.errorf(diag.UndeclaredType, seg.Name.Span, "cannot find type `Self` in this scope")
				return nil, nil, false
			}
			if last {
				return nil, a.self, true
			}
			return nil, UnknownType, true
		}
		if t := primitiveType(name); t != nil && !walked {
			if last {
				return nil, t, true
			}
			return nil, UnknownType, true
		}

		var sym *Symbol
		if walked {
			found, ok := cur.LocalType(name)
			if !ok {
				a.errorf(diag.UndeclaredType, seg.Name.Span, "failed to resolve: could not find `%s` in module", name)
				return nil, nil, false
			}
			sym = found
		} else {
			found, err := cur.LookupType(name)
			if err != nil {
				a.errorf(diag.UndeclaredType, seg.Name.Span, "failed to resolve: use of undeclared type `%s`", name)
				return nil, nil, false
			}
			sym = found
		}
		walked = true
		if sym.Kind == ModuleSym {
			cur = sym.Members
			continue
		}
		if last {
			return nil, a.symbolType(sym, seg), true
		}
		return nil, UnknownType, true
	}
	return cur, nil, true
}

func variantSymbol(v *VariantInfo) *Symbol {
	t := v.Owner.Type
	if v.Shape == ast.TupleFields {
		t = FnOf(fieldTypes(v.Fields), v.Owner.Type)
	}
	return &Symbol{Name: v.Name, Kind: EnumVariant, Type: t, Span: v.Span, Info: v.Owner, Variant: v, Initialized: true}
}

func (a *Analyzer) importTree(tree ast.UseTree, prefix []ast.Ident, span token.Span) {
	path := append(slices.Clone(prefix), tree.Path...)
	if tree.Nested {
		for _, child := range tree.Children {
			a.importTree(child, path, span)
		}
		return
	}
	if len(path) == 0 {
		return
	}
	if tree.Glob {
		a.importGlob(path)
		return
	}
	if path[len(path)-1].Name == "self" && len(path) > 1 {
		path = path[:len(path)-1]
	}
	last := path[len(path)-1]
	name := last.Name
	if tree.Alias.Name != "" {
		name = tree.Alias.Name
	}
	if name == "_" {
		return
	}

	value, typ := a.lookupUsePath(path)
	if value == nil && typ == nil {
		a.declareExternal(name, last.Span)
		return
	}
	if value != nil {
		if prev, ok := a.scope.Local(name); !ok || prev != value {
			alias := *value
			alias.Name = name
			alias.Span = last.Span
			a.defineValue(&alias)
		}
	}
	if typ != nil {
		if prev, ok := a.scope.LocalType(name); !ok || prev != typ {
			alias := *typ
			alias.Name = name
			alias.Span = last.Span
			a.defineType(&alias)
		}
	}
}

// lookupUsePath resolves an import path inside the unit. Paths into
// external crates resolve to nothing.
func (a *Analyzer) lookupUsePath(path []ast.Ident) (value, typ *Symbol) {
	owner, ok := a.useOwner(path[:len(path)-1])
	if !ok {
		return nil, nil
	}
	name := path[len(path)-1].Name
	switch {
	case owner.scope != nil:
		if len(path) == 1 {
			return nil, nil
		}
		value, _ = owner.scope.Local(name)
		typ, _ = owner.scope.LocalType(name)
	case owner.enum != nil:
		if v, ok := owner.enum.Variant(name); ok {
			value = variantSymbol(v)
		}
	}
	return value, typ
}

type useOwner struct {
	scope *Scope
	enum  *TypeInfo
}

func (a *Analyzer) useOwner(path []ast.Ident) (useOwner, bool) {
	cur := a.scope
	walked := false
	for i, id := range path {
		switch id.Name {
		case "crate":
			cur, walked = a.root, true
			continue
		case "self":
			walked = true
			continue
		case "super":
			cur, walked = parentModule(cur), true
			continue
		}
		if i == 0 && slices.Contains(externalRoots, id.Name) {
			return useOwner{}, false
		}
		var sym *Symbol
		if walked {
			found, ok := cur.LocalType(id.Name)
			if !ok {
				return useOwner{}, false
			}
			sym = found
		} else {
			found, err := cur.LookupType(id.Name)
			if err != nil {
				return useOwner{}, false
			}
			sym = found
		}
		walked = true
		switch {
		case sym.Kind == ModuleSym:
			cur = sym.Members
		case sym.Kind == EnumSym && i == len(path)-1:
			return useOwner{enum: sym.Info}, true
		default:
			return useOwner{}, false
		}
	}
	return useOwner{scope: cur}, true
}

func (a *Analyzer) importGlob(path []ast.Ident) {
	owner, ok := a.useOwner(path)
	if !ok {
		return
	}
	switch {
	case owner.enum != nil:
		for _, v := range owner.enum.Variants {
			if _, exists := a.scope.Local(v.Name); !exists {
				a.scope.values[v.Name] = variantSymbol(v)
			}
		}
	case owner.scope != nil && owner.scope != a.scope:
		for name, sym := range owner.scope.values {
			if _, exists := a.scope.Local(name); !exists {
				a.scope.values[name] = sym
			}
		}
		for name, sym := range owner.scope.types {
			if _, exists := a.scope.LocalType(name); !exists {
				a.scope.types[name] = sym
			}
		}
	}
}
