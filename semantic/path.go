package semantic

import (
	"sort"
	"strings"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

// valuePath resolves a path in expression position.
func (a *Analyzer) valuePath(id ast.ID, n *ast.Path) *Type {
	if len(n.Segments) == 1 && !n.Global {
		return a.localValue(id, n.Segments[0].Name)
	}
	if slices.Contains(externalRoots, n.Segments[0].Name.Name) {
		return UnknownType
	}
	last := n.Segments[len(n.Segments)-1]
	scope, t, ok := a.resolvePrefix(n.Segments[:len(n.Segments)-1])
	switch {
	case !ok:
		return UnknownType
	case t != nil:
		return a.associated(id, t, last.Name)
	}
	sym, found := scope.Local(last.Name.Name)
	if !found {
		if _, isType := scope.LocalType(last.Name.Name); isType {
			a.errorf(diag.UndeclaredIdentifier, last.Name.Span, "expected value, found type `%s`", last.Name.Name)
		} else {
			a.errorf(diag.UndeclaredIdentifier, last.Name.Span, "cannot find value `%s` in module", last.Name.Name)
		}
		return UnknownType
	}
	a.out.Symbols[id] = sym
	return valueType(sym)
}

func (a *Analyzer) localValue(id ast.ID, name ast.Ident) *Type {
	if name.Name == "Self" {
		if a.self == nil {
			a.errorf(diag.UndeclaredIdentifier, name.Span, "cannot find value `Self` in this scope")
			return UnknownType
		}
		if a.self.Kind == Adt && a.self.Info.Kind == StructSym {
			if ctor, err := a.scope.LookupValue(a.self.Info.Name); err == nil && ctor.Info == a.self.Info {
				a.out.Symbols[id] = ctor
				return ctor.Type
			}
		}
		return a.self
	}
	sym, err := a.scope.LookupValue(name.Name)
	if err != nil {
		if ty, terr := a.scope.LookupType(name.Name); terr == nil && ty.Kind != TypeParam {
			a.errorf(diag.UndeclaredIdentifier, name.Span, "expected value, found %s `%s`", ty.Kind, name.Name)
			return UnknownType
		}
		a.errorf(diag.UndeclaredIdentifier, name.Span, "%v", err)
		return UnknownType
	}
	a.out.Symbols[id] = sym
	return valueType(sym)
}

func valueType(sym *Symbol) *Type {
	if sym.Type == nil {
		return UnknownType
	}
	return sym.Type
}

// associated resolves Type::name.
func (a *Analyzer) associated(id ast.ID, t *Type, name ast.Ident) *Type {
	if t.IsLenient() {
		return UnknownType
	}
	if t.Kind == Adt {
		info := t.Info
		if v, ok := info.Variant(name.Name); ok {
			sym := variantSymbol(v)
			a.out.Symbols[id] = sym
			return sym.Type
		}
		if m, ok := info.Methods[name.Name]; ok {
			a.out.Methods[id] = m
			return methodValueType(m, t)
		}
		if c, ok := info.Consts[name.Name]; ok {
			a.out.Symbols[id] = c
			return c.Type
		}
		if slices.Contains(info.Traits, "Clone") && name.Name == "clone" {
			a.out.Methods[id] = derivedClone
			return methodValueType(derivedClone, t)
		}
	}
	if t.Kind == Int && slices.Contains(intConsts, name.Name) {
		if name.Name == "BITS" {
			return U32Type
		}
		return t
	}
	if m, ok := a.primImpls[t.String()][name.Name]; ok {
		a.out.Methods[id] = m
		return methodValueType(m, t)
	}
	if m, ok := builtinAssoc(assocKey(t))[name.Name]; ok {
		a.out.Methods[id] = m
		return methodValueType(m, t)
	}
	if m, ok := builtinMethods(t)[name.Name]; ok {
		a.out.Methods[id] = m
		return methodValueType(m, t)
	}
	if t.Kind == Opaque {
		return UnknownType
	}
	a.errorf(diag.UnresolvedMethod, name.Span, "no function or associated item named `%s` found for `%v` in the current scope", name.Name, t)
	return UnknownType
}

func assocKey(t *Type) string {
	switch t.Kind {
	case String:
		return "String"
	case Opaque:
		return t.Name
	}
	return ""
}

// methodValueType is the function type of a method named through its type,
// with the receiver as the first parameter.
func methodValueType(m *Method, self *Type) *Type {
	params, ret := m.Signature(self)
	ret = substSelf(ret, self)
	switch m.Receiver {
	case ast.NoReceiver:
		return FnOf(params, ret)
	case ast.RefReceiver:
		return FnOf(append([]*Type{RefTo(self, false)}, params...), ret)
	case ast.RefMutReceiver:
		return FnOf(append([]*Type{RefTo(self, true)}, params...), ret)
	}
	return FnOf(append([]*Type{self}, params...), ret)
}

// substSelf replaces the trait placeholder Self in t.
func substSelf(t, self *Type) *Type {
	if t == nil || self == nil {
		return t
	}
	if t.Kind == Param && t.Name == "Self" {
		return self
	}
	if t.Kind == Ref && t.Elem.Kind == Param && t.Elem.Name == "Self" {
		return RefTo(self, t.Mut)
	}
	return t
}

// resolveStructPath resolves the path of a struct literal or pattern to the
// fields it declares.
func (a *Analyzer) resolveStructPath(segments []ast.Ident, span token.Span) (owner *Type, fields []FieldInfo, shape ast.StructKind, ok bool) {
	if len(segments) == 1 && segments[0].Name == "Self" {
		if a.self == nil {
			a.errorf(diag.UndeclaredType, span, "cannot find type `Self` in this scope")
			return nil, nil, 0, false
		}
		if a.self.Kind != Adt || a.self.Info.Kind != StructSym {
			return a.self, nil, 0, false
		}
		return a.self, a.self.Info.Fields, a.self.Info.Shape, true
	}
	if len(segments) > 1 {
		prefix := make([]ast.PathSegment, len(segments)-1)
		for i, s := range segments[:len(segments)-1] {
			prefix[i] = ast.PathSegment{Name: s}
		}
		last := segments[len(segments)-1]
		scope, t, ok := a.resolvePrefix(prefix)
		switch {
		case !ok:
			return nil, nil, 0, false
		case t != nil && t.Kind == Adt:
			v, found := t.Info.Variant(last.Name)
			if !found {
				a.errorf(diag.UndeclaredIdentifier, last.Span, "no variant named `%s` found for enum `%v`", last.Name, t)
				return nil, nil, 0, false
			}
			return t, v.Fields, v.Shape, true
		case t != nil:
			return t, nil, 0, false
		}
		sym, found := scope.LocalType(last.Name)
		if !found {
			a.errorf(diag.UndeclaredType, last.Span, "cannot find struct `%s` in module", last.Name)
			return nil, nil, 0, false
		}
		return a.structSymbol(sym, last)
	}
	name := segments[0]
	sym, err := a.scope.LookupType(name.Name)
	if err != nil {
		// A bare variant brought in by `use Enum::*`.
		if v, verr := a.scope.LookupValue(name.Name); verr == nil && v.Variant != nil {
			return v.Info.Type, v.Variant.Fields, v.Variant.Shape, true
		}
		a.errorf(diag.UndeclaredType, name.Span, "cannot find struct, variant or union type `%s` in this scope", name.Name)
		return nil, nil, 0, false
	}
	return a.structSymbol(sym, name)
}

func (a *Analyzer) structSymbol(sym *Symbol, name ast.Ident) (*Type, []FieldInfo, ast.StructKind, bool) {
	switch sym.Kind {
	case StructSym:
		return sym.Info.Type, sym.Info.Fields, sym.Info.Shape, true
	case TypeAliasSym:
		t := a.aliasType(sym)
		if t.Kind == Adt && t.Info.Kind == StructSym {
			return t, t.Info.Fields, t.Info.Shape, true
		}
		return t, nil, 0, false
	case External, TypeParam:
		return UnknownType, nil, 0, false
	}
	a.errorf(diag.UndeclaredType, name.Span, "expected struct, variant or union type, found %s `%s`", sym.Kind, name.Name)
	return nil, nil, 0, false
}

func pathIdents(p *ast.Path) []ast.Ident {
	idents := make([]ast.Ident, len(p.Segments))
	for i, s := range p.Segments {
		idents[i] = s.Name
	}
	return idents
}

func (a *Analyzer) structLit(n *ast.StructLit) *Type {
	path, ok := a.file.Node(n.Path).(*ast.Path)
	if !ok {
		a.fieldValues(n)
		return UnknownType
	}
	owner, fields, _, ok := a.resolveStructPath(pathIdents(path), path.Pos())
	if !ok {
		a.fieldValues(n)
		if owner == nil {
			return UnknownType
		}
		return owner
	}
	seen := make(map[string]bool, len(n.Fields))
	for _, init := range n.Fields {
		got := a.checkExpr(init.Value)
		if seen[init.Name.Name] {
			a.errorf(diag.DuplicateDeclaration, init.Name.Span, "field `%s` specified more than once", init.Name.Name)
			continue
		}
		seen[init.Name.Name] = true
		f, found := findField(fields, init.Name.Name)
		if !found {
			a.errorf(diag.UnknownField, init.Name.Span, "struct `%v` has no field named `%s`", owner, init.Name.Name)
			continue
		}
		a.coerce(init.Value, f.Type, got)
	}
	if n.Base.Valid() {
		a.expect(n.Base, owner)
		return owner
	}
	var missing []string
	for _, f := range fields {
		if !seen[f.Name] {
			missing = append(missing, "`"+f.Name+"`")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		a.errorf(diag.ArityMismatch, n.Pos(), "missing fields %s in initializer of `%v`", strings.Join(missing, ", "), owner)
	}
	return owner
}

// fieldValues checks the initializers of a struct literal whose type could
// not be resolved.
func (a *Analyzer) fieldValues(n *ast.StructLit) {
	for _, init := range n.Fields {
		a.checkExpr(init.Value)
	}
	if n.Base.Valid() {
		a.checkExpr(n.Base)
	}
}
