package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"golang.org/x/exp/slices"
)

// collect declares the items of the current scope. Names go first, then
// signatures, then imports and impl blocks, so items may refer to each
// other in any order.
func (a *Analyzer) collect(items []ast.ID) {
	a.eachItem(items, a.declare)
	a.eachItem(items, a.placeholder)
	a.eachItem(items, a.signature)
	a.eachItem(items, a.importUses)
	a.eachItem(items, a.registerImpl)
}

// eachItem applies f to items, descending into inline modules with their
// member scope current.
func (a *Analyzer) eachItem(items []ast.ID, f func(ast.ID)) {
	for _, id := range items {
		f(id)
		if m, ok := a.file.Node(id).(*ast.Module); ok {
			if members, ok := a.modules[id]; ok {
				a.within(members, func() { a.eachItem(m.Items, f) })
			}
		}
	}
}

func derives(attrs []ast.Attr) []string {
	var names []string
	for _, attr := range attrs {
		names = append(names, attr.Derives()...)
	}
	return names
}

func genericNames(gs []ast.Generic) []string {
	var names []string
	for _, g := range gs {
		if !g.Lifetime {
			names = append(names, g.Name.Name)
		}
	}
	return names
}

func (a *Analyzer) declare(id ast.ID) {
	switch n := a.file.Node(id).(type) {
	case *ast.Function:
		a.defineValue(&Symbol{Name: n.Name.Name, Kind: Function, Span: n.Name.Span, Decl: id, Initialized: true, Type: UnknownType})
	case *ast.Struct:
		info := newTypeInfo(n.Name.Name, StructSym, id)
		info.Shape = n.Kind
		info.Traits = derives(n.Attrs)
		info.Generics = genericNames(n.Generics)
		defined := a.defineType(&Symbol{Name: info.Name, Kind: StructSym, Type: info.Type, Span: n.Name.Span, Decl: id, Info: info})
		if defined && n.Kind != ast.NamedFields {
			// Tuple and unit structs are also values. A redeclaration is
			// reported once, by the type namespace.
			a.defineValue(&Symbol{Name: info.Name, Kind: StructSym, Type: info.Type, Span: n.Name.Span, Decl: id, Info: info, Initialized: true})
		}
	case *ast.Enum:
		info := newTypeInfo(n.Name.Name, EnumSym, id)
		info.Traits = derives(n.Attrs)
		info.Generics = genericNames(n.Generics)
		for i, v := range n.Variants {
			if prev, ok := info.Variant(v.Name.Name); ok {
				a.errorf(diag.DuplicateDeclaration, v.Name.Span, "the name `%s` is defined multiple times (previous variant at %v)", v.Name.Name, prev.Span)
				continue
			}
			info.Variants = append(info.Variants, &VariantInfo{Name: v.Name.Name, Owner: info, Shape: v.Kind, Index: i, Span: v.Name.Span})
		}
		a.defineType(&Symbol{Name: info.Name, Kind: EnumSym, Type: info.Type, Span: n.Name.Span, Decl: id, Info: info})
	case *ast.Trait:
		info := newTypeInfo(n.Name.Name, TraitSym, id)
		info.Generics = genericNames(n.Generics)
		a.defineType(&Symbol{Name: info.Name, Kind: TraitSym, Type: UnknownType, Span: n.Name.Span, Decl: id, Info: info})
	case *ast.TypeAlias:
		a.aliases[id] = &aliasState{scope: a.scope}
		a.defineType(&Symbol{Name: n.Name.Name, Kind: TypeAliasSym, Span: n.Name.Span, Decl: id})
	case *ast.Const:
		kind := ConstSym
		if n.Static {
			kind = StaticSym
		}
		a.consts[id] = &constState{scope: a.scope}
		a.defineValue(&Symbol{Name: n.Name.Name, Kind: kind, Mutable: n.Mut, Span: n.Name.Span, Decl: id, Initialized: true, Type: UnknownType})
	case *ast.Module:
		members := NewScope(a.scope, ModuleScope)
		a.modules[id] = members
		a.defineType(&Symbol{Name: n.Name.Name, Kind: ModuleSym, Type: UnknownType, Span: n.Name.Span, Decl: id, Members: members})
	}
}

// placeholder declares the name of an item that failed to parse, unless a
// real declaration owns it, so its uses are not reported again.
func (a *Analyzer) placeholder(id ast.ID) {
	if n, ok := a.file.Node(id).(*ast.BadItem); ok && n.Name.Name != "" {
		a.declareExternal(n.Name.Name, n.Name.Span)
	}
}

func (a *Analyzer) signature(id ast.ID) {
	switch n := a.file.Node(id).(type) {
	case *ast.Function:
		sig := a.fnSignature(n, nil)
		a.sigs[id] = sig
		if sym, ok := a.scope.Local(n.Name.Name); ok && sym.Decl == id {
			sym.Type = FnOf(sig.params, sig.ret)
		}
	case *ast.Struct:
		sym, ok := a.scope.LocalType(n.Name.Name)
		if !ok || sym.Decl != id {
			return
		}
		info := sym.Info
		generics := a.genericScope(n.Generics, nil, BlockScope)
		a.within(generics, func() {
			info.Fields = a.fields(n.Fields)
		})
		if n.Kind == ast.TupleFields {
			if ctor, ok := a.scope.Local(n.Name.Name); ok && ctor.Decl == id {
				ctor.Type = FnOf(fieldTypes(info.Fields), info.Type)
			}
		}
	case *ast.Enum:
		sym, ok := a.scope.LocalType(n.Name.Name)
		if !ok || sym.Decl != id {
			return
		}
		generics := a.genericScope(n.Generics, nil, BlockScope)
		a.within(generics, func() {
			for _, decl := range n.Variants {
				if v, ok := sym.Info.Variant(decl.Name.Name); ok && v.Span == decl.Name.Span {
					v.Fields = a.fields(decl.Fields)
				}
			}
		})
	case *ast.Trait:
		sym, ok := a.scope.LocalType(n.Name.Name)
		if !ok || sym.Decl != id {
			return
		}
		saved := a.self
		a.self = &Type{Kind: Param, Name: "Self"}
		defer func() { a.self = saved }()
		generics := a.genericScope(n.Generics, nil, BlockScope)
		a.within(generics, func() {
			for _, item := range n.Items {
				f, ok := a.file.Node(item).(*ast.Function)
				if !ok {
					continue
				}
				sig := a.fnSignature(f, generics)
				a.sigs[item] = sig
				sym.Info.Methods[f.Name.Name] = &Method{
					Name: f.Name.Name, Owner: n.Name.Name, Receiver: f.Receiver.Kind,
					Params: sig.params, Ret: sig.ret, Decl: item,
				}
			}
		})
	case *ast.Const:
		sym, ok := a.scope.Local(n.Name.Name)
		if !ok || sym.Decl != id {
			return
		}
		if n.Type.Valid() {
			sym.Type = a.resolveType(n.Type)
		}
	}
}

func fieldTypes(fields []FieldInfo) []*Type {
	ts := make([]*Type, len(fields))
	for i, f := range fields {
		ts[i] = f.Type
	}
	return ts
}

func (a *Analyzer) fields(decls []ast.FieldDecl) []FieldInfo {
	var fields []FieldInfo
	for _, d := range decls {
		if prev, ok := findField(fields, d.Name.Name); ok {
			a.errorf(diag.DuplicateDeclaration, d.Name.Span, "field `%s` is already declared (previous at %v)", d.Name.Name, prev.Span)
			continue
		}
		fields = append(fields, FieldInfo{Name: d.Name.Name, Type: a.resolveType(d.Type), Span: d.Name.Span})
	}
	return fields
}

// genericScope opens a scope holding the type parameters gs, plus those of
// inherited when set.
func (a *Analyzer) genericScope(gs []ast.Generic, inherited *Scope, kind ScopeKind) *Scope {
	s := NewScope(a.scope, kind)
	if inherited != nil {
		for name, sym := range inherited.types {
			s.types[name] = sym
		}
	}
	for _, g := range gs {
		if g.Lifetime {
			continue
		}
		sym := &Symbol{Name: g.Name.Name, Kind: TypeParam, Type: &Type{Kind: Param, Name: g.Name.Name}, Span: g.Name.Span}
		if prev, ok := s.types[sym.Name]; ok && (inherited == nil || inherited.types[sym.Name] != prev) {
			a.errorf(diag.DuplicateDeclaration, g.Name.Span, "%v", AlreadyDefinedError{Name: sym.Name, Previous: prev})
			continue
		}
		s.types[sym.Name] = sym
	}
	return s
}

// fnSignature resolves parameter and result types. The returned generics
// scope is a function scope, so the body cannot see enclosing locals.
func (a *Analyzer) fnSignature(n *ast.Function, inherited *Scope) *fnSig {
	generics := a.genericScope(n.Generics, inherited, FunctionScope)
	sig := &fnSig{ret: UnitType, generics: generics}
	a.within(generics, func() {
		for _, p := range n.Params {
			sig.params = append(sig.params, a.resolveType(p.Type))
		}
		if n.Ret.Valid() {
			sig.ret = a.resolveType(n.Ret)
		}
	})
	return sig
}

// stdTraits are library traits that impl blocks may name without a
// declaration in the unit.
var stdTraits = []string{
	"PartialEq", "Eq", "PartialOrd", "Ord", "Clone", "Copy", "Debug", "Display",
	"Default", "Hash", "Iterator", "IntoIterator", "From", "Into", "Drop",
	"Add", "Sub", "Mul", "Div", "Rem", "Neg", "Not", "AddAssign", "SubAssign",
	"Index", "IndexMut", "Deref", "DerefMut", "Fn", "FnMut", "FnOnce", "ToString",
}

func (a *Analyzer) registerImpl(id ast.ID) {
	n, ok := a.file.Node(id).(*ast.Impl)
	if !ok {
		return
	}
	generics := a.genericScope(n.Generics, nil, BlockScope)
	impl := &implInfo{generics: generics}
	a.within(generics, func() { impl.self = a.resolveType(n.Target) })
	a.impls[id] = impl

	var traitInfo *TypeInfo
	if n.Trait.Valid() {
		if pt, ok := a.file.Node(n.Trait).(*ast.PathType); ok {
			impl.trait = pt.Name()
			sym, err := a.scope.LookupType(impl.trait)
			switch {
			case err == nil && sym.Kind == TraitSym:
				traitInfo = sym.Info
			case err == nil && sym.Kind != External:
				a.errorf(diag.UndeclaredType, pt.Pos(), "expected trait, found %s `%s`", sym.Kind, impl.trait)
			case err != nil && len(pt.Segments) == 1 && !slices.Contains(stdTraits, impl.trait):
				a.errorf(diag.UndeclaredType, pt.Pos(), "cannot find trait `%s` in this scope", impl.trait)
			}
		}
	}

	table := a.methodsFor(impl.self)
	var info *TypeInfo
	if impl.self.Kind == Adt {
		info = impl.self.Info
		if impl.trait != "" && !info.Implements(impl.trait) {
			info.Traits = append(info.Traits, impl.trait)
		}
	}

	saved := a.self
	a.self = impl.self
	defer func() { a.self = saved }()
	a.within(generics, func() {
		for _, item := range n.Items {
			switch m := a.file.Node(item).(type) {
			case *ast.Function:
				sig := a.fnSignature(m, generics)
				a.sigs[item] = sig
				if table == nil {
					continue
				}
				if prev, ok := table[m.Name.Name]; ok && !prev.Builtin {
					a.errorf(diag.DuplicateDeclaration, m.Name.Span, "duplicate definitions with name `%s`", m.Name.Name)
					continue
				}
				table[m.Name.Name] = &Method{
					Name: m.Name.Name, Owner: impl.self.String(), Receiver: m.Receiver.Kind,
					Params: sig.params, Ret: sig.ret, Decl: item,
				}
			case *ast.Const:
				if info == nil {
					continue
				}
				t := UnknownType
				if m.Type.Valid() {
					t = a.resolveType(m.Type)
				}
				sym := &Symbol{Name: m.Name.Name, Kind: ConstSym, Type: t, Span: m.Name.Span, Decl: item, Initialized: true}
				a.consts[item] = &constState{scope: generics}
				if _, ok := info.Consts[sym.Name]; ok {
					a.errorf(diag.DuplicateDeclaration, m.Name.Span, "duplicate definitions with name `%s`", m.Name.Name)
					continue
				}
				info.Consts[sym.Name] = sym
			}
		}
	})

	// Provided trait methods become methods of the implementing type.
	if traitInfo != nil && table != nil {
		for name, m := range traitInfo.Methods {
			if _, ok := table[name]; ok {
				continue
			}
			if f, ok := a.file.Node(m.Decl).(*ast.Function); ok && f.Body.Valid() {
				table[name] = m
			}
		}
	}
}

// methodsFor returns the user method table for t, creating it for builtin
// types. It returns nil for types that cannot carry methods.
func (a *Analyzer) methodsFor(t *Type) map[string]*Method {
	switch t.Kind {
	case Adt:
		return t.Info.Methods
	case Unknown, Param:
		return nil
	}
	key := t.String()
	table, ok := a.primImpls[key]
	if !ok {
		table = make(map[string]*Method)
		a.primImpls[key] = table
	}
	return table
}

// importUses binds the names a use declaration brings into scope.
func (a *Analyzer) importUses(id ast.ID) {
	if n, ok := a.file.Node(id).(*ast.Use); ok {
		a.importTree(n.Tree, nil, n.Pos())
	}
}
