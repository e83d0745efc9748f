package semantic

import (
	"fmt"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/exp/slices"
)

type SymbolKind int

const (
	Variable SymbolKind = iota
	Function
	StructSym
	EnumSym
	EnumVariant
	ConstSym
	StaticSym
	TraitSym
	TypeAliasSym
	TypeParam
	ModuleSym
	// External stands for a name imported from outside the unit; it is
	// accepted without checks.
	External
)

func (k SymbolKind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Function:
		return "function"
	case StructSym:
		return "struct"
	case EnumSym:
		return "enum"
	case EnumVariant:
		return "variant"
	case ConstSym:
		return "constant"
	case StaticSym:
		return "static"
	case TraitSym:
		return "trait"
	case TypeAliasSym:
		return "type alias"
	case TypeParam:
		return "type parameter"
	case ModuleSym:
		return "module"
	case External:
		return "external item"
	default:
		return "symbol"
	}
}

type Symbol struct {
	Name    string
	Kind    SymbolKind
	Type    *Type
	Mutable bool
	// Initialized is false for `let x;` until the first assignment.
	Initialized bool
	Span        token.Span
	Decl        ast.ID
	// Info is the type a struct, enum, trait or variant symbol names.
	Info    *TypeInfo
	Variant *VariantInfo
	// Members is the scope of a module symbol.
	Members *Scope
	Builtin bool
}

type ScopeKind int

const (
	ModuleScope ScopeKind = iota
	// FunctionScope bodies cannot see the local variables of enclosing
	// functions.
	FunctionScope
	BlockScope
)

// Scope is a lexical scope with separate value and type namespaces.
type Scope struct {
	parent *Scope
	kind   ScopeKind
	values map[string]*Symbol
	types  map[string]*Symbol
}

func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{
		parent: parent,
		kind:   kind,
		values: make(map[string]*Symbol),
		types:  make(map[string]*Symbol),
	}
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

type AlreadyDefinedError struct {
	Name     string
	Previous *Symbol
}

func (e AlreadyDefinedError) Error() string {
	return fmt.Sprintf("the name `%s` is defined multiple times (previous %s at %v)", e.Name, e.Previous.Kind, e.Previous.Span)
}

type NotDefinedError struct {
	Name string
	Type bool
}

func (e NotDefinedError) Error() string {
	if e.Type {
		return fmt.Sprintf("cannot find type `%s` in this scope", e.Name)
	}
	return fmt.Sprintf("cannot find value `%s` in this scope", e.Name)
}

// DefineValue binds sym in the value namespace. Local variables may shadow
// anything; every other kind clashes with an existing non-variable binding
// of the same scope.
func (s *Scope) DefineValue(sym *Symbol) error {
	if prev, ok := s.values[sym.Name]; ok && sym.Kind != Variable && prev.Kind != Variable {
		return AlreadyDefinedError{Name: sym.Name, Previous: prev}
	}
	s.values[sym.Name] = sym
	return nil
}

func (s *Scope) DefineType(sym *Symbol) error {
	if prev, ok := s.types[sym.Name]; ok {
		return AlreadyDefinedError{Name: sym.Name, Previous: prev}
	}
	s.types[sym.Name] = sym
	return nil
}

// LookupValue walks the scope chain. Once the walk leaves a function scope,
// only items are visible.
func (s *Scope) LookupValue(name string) (*Symbol, error) {
	itemsOnly := false
	for e := s; e != nil; e = e.parent {
		if sym, ok := e.values[name]; ok && !(itemsOnly && sym.Kind == Variable) {
			return sym, nil
		}
		if e.kind == FunctionScope {
			itemsOnly = true
		}
	}
	return nil, NotDefinedError{Name: name}
}

// LookupType walks the scope chain. Generic parameters of an enclosing
// function are not visible past a nested function boundary.
func (s *Scope) LookupType(name string) (*Symbol, error) {
	itemsOnly := false
	for e := s; e != nil; e = e.parent {
		if sym, ok := e.types[name]; ok && !(itemsOnly && sym.Kind == TypeParam) {
			return sym, nil
		}
		if e.kind == FunctionScope {
			itemsOnly = true
		}
	}
	return nil, NotDefinedError{Name: name, Type: true}
}

// Local returns a value bound directly in s.
func (s *Scope) Local(name string) (*Symbol, bool) {
	sym, ok := s.values[name]
	return sym, ok
}

// LocalType returns a type bound directly in s.
func (s *Scope) LocalType(name string) (*Symbol, bool) {
	sym, ok := s.types[name]
	return sym, ok
}

// FieldInfo is one field of a struct or variant. Tuple fields are named
// "0", "1", ...
type FieldInfo struct {
	Name string
	Type *Type
	Span token.Span
}

type VariantInfo struct {
	Name   string
	Owner  *TypeInfo
	Shape  ast.StructKind
	Fields []FieldInfo
	Index  int
	Span   token.Span
}

func (v *VariantInfo) Field(name string) (*FieldInfo, bool) {
	return findField(v.Fields, name)
}

// TypeInfo describes a user-defined struct, enum or trait.
type TypeInfo struct {
	Name     string
	Kind     SymbolKind
	Decl     ast.ID
	Shape    ast.StructKind
	Fields   []FieldInfo
	Variants []*VariantInfo
	Methods  map[string]*Method
	Consts   map[string]*Symbol
	// Traits lists the traits implemented for the type, by impl or derive.
	Traits   []string
	Generics []string
	Type     *Type
}

func newTypeInfo(name string, kind SymbolKind, decl ast.ID) *TypeInfo {
	info := &TypeInfo{
		Name:    name,
		Kind:    kind,
		Decl:    decl,
		Methods: make(map[string]*Method),
		Consts:  make(map[string]*Symbol),
	}
	info.Type = &Type{Kind: Adt, Info: info}
	return info
}

func (t *TypeInfo) Field(name string) (*FieldInfo, bool) {
	return findField(t.Fields, name)
}

func (t *TypeInfo) Variant(name string) (*VariantInfo, bool) {
	for _, v := range t.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

func (t *TypeInfo) Implements(trait string) bool {
	return slices.Contains(t.Traits, trait)
}

func findField(fields []FieldInfo, name string) (*FieldInfo, bool) {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i], true
		}
	}
	return nil, false
}
