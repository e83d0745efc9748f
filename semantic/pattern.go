package semantic

import (
	"sort"
	"strings"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

// binder collects the names one pattern, or one parameter list, binds.
type binder struct {
	seen        map[string]token.Span
	initialized bool
	// param is set while binding function or closure parameters.
	param bool
}

func newBinder(initialized bool) *binder {
	return &binder{seen: make(map[string]token.Span), initialized: initialized}
}

// bindMode is the default binding mode: matching a non-reference pattern
// against a reference makes the bindings below it references.
type bindMode int

const (
	byValue bindMode = iota
	byRef
	byRefMut
)

// bindPattern checks pattern id against the scrutinee type t and defines
// its bindings in the current scope.
func (a *Analyzer) bindPattern(id ast.ID, t *Type, b *binder) {
	if !id.Valid() {
		return
	}
	a.pattern(id, t, b, byValue)
}

// peelPattern strips the references a structural pattern auto-derefs.
func peelPattern(t *Type, mode bindMode) (*Type, bindMode) {
	for t.Kind == Ref {
		switch {
		case !t.Mut:
			mode = byRef
		case mode == byValue:
			mode = byRefMut
		}
		t = t.Elem
	}
	return t, mode
}

func (a *Analyzer) pattern(id ast.ID, t *Type, b *binder, mode bindMode) {
	a.record(id, t)
	switch n := a.file.Node(id).(type) {
	case *ast.IdentPat:
		a.identPattern(id, n, t, b, mode)
	case *ast.WildPat, *ast.RestPat:
	case *ast.LitPat:
		inner, _ := peelPattern(t, mode)
		a.checkPatType(id, inner, a.litPatType(n, inner))
	case *ast.RangePat:
		inner, mode := peelPattern(t, mode)
		if !inner.IsLenient() && !inner.IsInteger() && inner.Kind != Char {
			a.errorf(diag.TypeMismatch, n.Pos(), "range patterns require integer or char types, found `%v`", inner)
		}
		for _, bound := range []ast.ID{n.Lo, n.Hi} {
			if bound.Valid() {
				a.pattern(bound, inner, b, mode)
			}
		}
	case *ast.TuplePat:
		inner, mode := peelPattern(t, mode)
		var elems []*Type
		switch {
		case inner.Kind == Tuple:
			elems = inner.Elems
		case inner.Kind == Unit:
		case inner.IsLenient() || inner.Kind == Never:
			a.patternList(n.Elems, nil, true, n.Pos(), b, mode)
			return
		default:
			a.errorf(diag.TypeMismatch, n.Pos(), "mismatched types: expected `%v`, found tuple", inner)
			a.patternList(n.Elems, nil, true, n.Pos(), b, mode)
			return
		}
		a.patternList(n.Elems, elems, false, n.Pos(), b, mode)
	case *ast.SlicePat:
		a.slicePattern(n, t, b, mode)
	case *ast.TupleStructPat:
		a.tupleStructPattern(id, n, t, b, mode)
	case *ast.PathPat:
		inner, _ := peelPattern(t, mode)
		a.checkPatType(id, inner, a.pathPatType(id, n.Path))
	case *ast.StructPat:
		a.structPattern(id, n, t, b, mode)
	case *ast.OrPat:
		a.orPattern(n, t, b, mode)
	case *ast.RefPat:
		switch {
		case t.Kind == Ref:
			a.pattern(n.Pattern, t.Elem, b, byValue)
		case t.IsLenient():
			a.pattern(n.Pattern, UnknownType, b, byValue)
		default:
			a.errorf(diag.TypeMismatch, n.Pos(), "mismatched types: expected `%v`, found `&_`", t)
			a.pattern(n.Pattern, UnknownType, b, byValue)
		}
	}
}

// checkPatType reports a pattern of type got that cannot match a value of
// type want.
func (a *Analyzer) checkPatType(id ast.ID, want, got *Type) {
	if want.IsLenient() || got.IsLenient() || want.Kind == Never {
		return
	}
	if Join(want, got) == nil && !(strLike(want) && strLike(got)) {
		a.errorf(diag.TypeMismatch, a.span(id), "mismatched types: expected `%v`, found `%v`", want, got)
	}
}

func (a *Analyzer) litPatType(n *ast.LitPat, want *Type) *Type {
	switch n.Token.Kind {
	case token.INTEGER:
		lit, _ := n.Token.Literal.(token.IntLit)
		t := IntLitType
		if lit.Suffix != "" {
			t = IntType(lit.Suffix)
		}
		fit := t
		if t.Kind == IntLit && want.Kind == Int {
			fit = want
		}
		if fit.Kind == Int && !lit.Overflow && !intFits(lit.Value, n.Neg, fit.Name) {
			a.errorf(diag.IntegerOverflow, n.Pos(), "literal out of range for `%v`", fit)
		}
		return t
	case token.STRING:
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

func (a *Analyzer) identPattern(id ast.ID, n *ast.IdentPat, t *Type, b *binder, mode bindMode) {
	if !n.Sub.Valid() && !n.Mut && !n.Ref && !b.param {
		// A bare name that resolves to a unit variant, unit struct or
		// constant matches that value instead of binding.
		if sym, err := a.scope.LookupValue(n.Name.Name); err == nil && isPathValue(sym) {
			inner, _ := peelPattern(t, mode)
			a.checkPatType(id, inner, a.pathSymbolType(id, sym, n.Name))
			return
		}
	}
	bound := t
	switch {
	case n.Ref:
		bound = RefTo(t, n.Mut)
	case mode == byRef:
		bound = RefTo(t, false)
	case mode == byRefMut:
		bound = RefTo(t, true)
	}
	if prev, ok := b.seen[n.Name.Name]; ok {
		where := "the same pattern"
		if b.param {
			where = "this parameter list"
		}
		a.errorf(diag.DuplicateDeclaration, n.Name.Span, "identifier `%s` is bound more than once in %s (previous at %v)", n.Name.Name, where, prev)
	}
	b.seen[n.Name.Name] = n.Name.Span
	sym := &Symbol{
		Name:        n.Name.Name,
		Kind:        Variable,
		Type:        bound,
		Mutable:     n.Mut && !n.Ref,
		Initialized: b.initialized,
		Span:        n.Name.Span,
		Decl:        id,
	}
	a.defineValue(sym)
	a.out.Symbols[id] = sym
	a.record(id, bound)
	if n.Sub.Valid() {
		a.pattern(n.Sub, t, b, mode)
	}
}

func isPathValue(sym *Symbol) bool {
	switch sym.Kind {
	case EnumVariant:
		return sym.Variant == nil && sym.Name == "None" || sym.Variant != nil && sym.Variant.Shape == ast.UnitStruct
	case StructSym:
		return sym.Info != nil && sym.Info.Shape == ast.UnitStruct
	case ConstSym:
		return true
	}
	return false
}

// pathSymbolType is the type a path pattern naming sym matches.
func (a *Analyzer) pathSymbolType(id ast.ID, sym *Symbol, name ast.Ident) *Type {
	a.out.Symbols[id] = sym
	switch {
	case sym.Kind == EnumVariant && sym.Variant == nil:
		return valueType(sym)
	case sym.Kind == EnumVariant && sym.Variant.Shape != ast.UnitStruct,
		sym.Kind == StructSym && sym.Info.Shape != ast.UnitStruct:
		a.errorf(diag.TypeMismatch, name.Span, "expected unit struct, unit variant or constant, found %s `%s`", sym.Kind, name.Name)
		return UnknownType
	case sym.Kind == EnumVariant:
		return sym.Variant.Owner.Type
	case sym.Kind == ConstSym, sym.Kind == StructSym:
		return valueType(sym)
	case sym.Kind == External:
		return UnknownType
	}
	a.errorf(diag.TypeMismatch, name.Span, "expected unit struct, unit variant or constant, found %s `%s`", sym.Kind, name.Name)
	return UnknownType
}

// pathPatType resolves the path of a PathPat.
func (a *Analyzer) pathPatType(id ast.ID, path []ast.Ident) *Type {
	last := path[len(path)-1]
	if len(path) == 1 {
		sym, err := a.scope.LookupValue(last.Name)
		if err != nil {
			a.errorf(diag.UndeclaredIdentifier, last.Span, "%v", err)
			return UnknownType
		}
		return a.pathSymbolType(id, sym, last)
	}
	sym, t, ok := a.patternPathSymbol(path)
	switch {
	case !ok:
		return UnknownType
	case sym != nil:
		return a.pathSymbolType(id, sym, last)
	}
	return t
}

// patternPathSymbol resolves a qualified pattern path to a variant or
// constant symbol, or to a lenient type when it leaves the unit.
func (a *Analyzer) patternPathSymbol(path []ast.Ident) (*Symbol, *Type, bool) {
	last := path[len(path)-1]
	prefix := make([]ast.PathSegment, len(path)-1)
	for i, s := range path[:len(path)-1] {
		prefix[i] = ast.PathSegment{Name: s}
	}
	if externalRoot(path) {
		return nil, UnknownType, true
	}
	scope, t, ok := a.resolvePrefix(prefix)
	switch {
	case !ok:
		return nil, nil, false
	case t != nil && t.Kind == Adt:
		if v, found := t.Info.Variant(last.Name); found {
			return variantSymbol(v), nil, true
		}
		if c, found := t.Info.Consts[last.Name]; found {
			return c, nil, true
		}
		a.errorf(diag.UndeclaredIdentifier, last.Span, "no variant or associated item named `%s` found for `%v`", last.Name, t)
		return nil, nil, false
	case t != nil:
		return nil, UnknownType, true
	}
	sym, found := scope.Local(last.Name)
	if !found {
		a.errorf(diag.UndeclaredIdentifier, last.Span, "cannot find `%s` in module", last.Name)
		return nil, nil, false
	}
	return sym, nil, true
}

func externalRoot(path []ast.Ident) bool {
	for _, root := range externalRoots {
		if path[0].Name == root {
			return true
		}
	}
	return false
}

// patternList matches elems against types, expanding one rest pattern to
// cover the elements it skips. lenient accepts any count.
func (a *Analyzer) patternList(elems []ast.ID, types []*Type, lenient bool, span token.Span, b *binder, mode bindMode) {
	rest := -1
	for i, e := range elems {
		if _, ok := a.file.Node(e).(*ast.RestPat); ok {
			if rest >= 0 {
				a.errorf(diag.ArityMismatch, a.span(e), "`..` can only be used once per pattern")
				continue
			}
			rest = i
		}
	}
	fixed := len(elems)
	if rest >= 0 {
		fixed--
	}
	if !lenient && (rest < 0 && fixed != len(types) || rest >= 0 && fixed > len(types)) {
		a.errorf(diag.ArityMismatch, span, "this pattern has %s, but the corresponding value has %s", plural(fixed, "field"), plural(len(types), "field"))
		lenient = true
	}
	for i, e := range elems {
		t := UnknownType
		if !lenient {
			switch {
			case rest < 0 || i < rest:
				t = types[i]
			case i > rest:
				t = types[len(types)-(len(elems)-i)]
			}
		}
		a.pattern(e, t, b, mode)
	}
}

func (a *Analyzer) slicePattern(n *ast.SlicePat, t *Type, b *binder, mode bindMode) {
	inner, mode := peelPattern(t, mode)
	elem := UnknownType
	switch {
	case inner.Kind == Array || inner.Kind == Slice:
		elem = inner.Elem
	case inner.IsLenient() || inner.Kind == Never:
	default:
		a.errorf(diag.TypeMismatch, n.Pos(), "expected an array or slice, found `%v`", inner)
	}
	hasRest := false
	for _, e := range n.Elems {
		switch p := a.file.Node(e).(type) {
		case *ast.RestPat:
			hasRest = true
			a.record(e, SliceOf(elem))
			continue
		case *ast.IdentPat:
			if _, ok := a.file.Node(p.Sub).(*ast.RestPat); ok {
				// `rest @ ..` binds the remaining elements.
				hasRest = true
				a.pattern(e, SliceOf(elem), b, mode)
				continue
			}
		}
		a.pattern(e, elem, b, mode)
	}
	if inner.Kind == Array && inner.Len >= 0 {
		fixed := len(n.Elems)
		if hasRest {
			fixed--
		}
		if !hasRest && int64(fixed) != inner.Len || hasRest && int64(fixed) > inner.Len {
			a.errorf(diag.ArityMismatch, n.Pos(), "pattern requires %s but array has %d", plural(fixed, "element"), inner.Len)
		}
	}
}

func (a *Analyzer) tupleStructPattern(id ast.ID, n *ast.TupleStructPat, t *Type, b *binder, mode bindMode) {
	inner, mode := peelPattern(t, mode)
	last := n.Path[len(n.Path)-1]
	if len(n.Path) == 1 {
		if sym, err := a.scope.LookupValue(last.Name); err == nil && sym.Builtin {
			a.out.Symbols[id] = sym
			a.preludePattern(n, sym.Name, inner, b, mode)
			return
		}
	}
	owner, fields, shape, ok := a.resolvePatternOwner(n.Path, n.Pos())
	if !ok {
		a.patternList(n.Elems, nil, true, n.Pos(), b, mode)
		return
	}
	if shape != ast.TupleFields {
		a.errorf(diag.TypeMismatch, n.Pos(), "expected tuple struct or tuple variant, found `%s`", joinIdents(n.Path))
		a.patternList(n.Elems, nil, true, n.Pos(), b, mode)
		return
	}
	a.checkPatType(id, inner, owner)
	a.patternList(n.Elems, fieldTypes(fields), false, n.Pos(), b, mode)
}

// preludePattern matches Some(p), Ok(p) and Err(p).
func (a *Analyzer) preludePattern(n *ast.TupleStructPat, name string, t *Type, b *binder, mode bindMode) {
	var payload *Type
	switch {
	case t.IsLenient() || t.Kind == Never:
		payload = UnknownType
	case name == "Some" && t.Kind == Opaque && t.Name == "Option":
		payload = t.Arg(0)
	case name == "Ok" && t.Kind == Opaque && t.Name == "Result":
		payload = t.Arg(0)
	case name == "Err" && t.Kind == Opaque && t.Name == "Result":
		payload = t.Arg(1)
	default:
		a.errorf(diag.TypeMismatch, n.Pos(), "mismatched types: expected `%v`, found `%s(_)`", t, name)
		payload = UnknownType
	}
	a.patternList(n.Elems, []*Type{payload}, false, n.Pos(), b, mode)
}

// resolvePatternOwner resolves the path of a tuple-struct or struct pattern,
// including variants imported by name.
func (a *Analyzer) resolvePatternOwner(path []ast.Ident, span token.Span) (*Type, []FieldInfo, ast.StructKind, bool) {
	if len(path) == 1 && path[0].Name != "Self" {
		if sym, err := a.scope.LookupValue(path[0].Name); err == nil {
			switch {
			case sym.Variant != nil:
				return sym.Variant.Owner.Type, sym.Variant.Fields, sym.Variant.Shape, true
			case sym.Kind == External:
				return UnknownType, nil, 0, false
			}
		}
	}
	if externalRoot(path) {
		return UnknownType, nil, 0, false
	}
	return a.resolveStructPath(path, span)
}

func joinIdents(path []ast.Ident) string {
	names := make([]string, len(path))
	for i, id := range path {
		names[i] = id.Name
	}
	return strings.Join(names, "::")
}

func (a *Analyzer) structPattern(id ast.ID, n *ast.StructPat, t *Type, b *binder, mode bindMode) {
	inner, mode := peelPattern(t, mode)
	owner, fields, _, ok := a.resolvePatternOwner(n.Path, n.Pos())
	if !ok {
		for _, f := range n.Fields {
			a.pattern(f.Pattern, UnknownType, b, mode)
		}
		return
	}
	a.checkPatType(id, inner, owner)
	seen := make(map[string]bool, len(n.Fields))
	for _, f := range n.Fields {
		ft := UnknownType
		switch info, found := findField(fields, f.Name.Name); {
		case seen[f.Name.Name]:
			a.errorf(diag.DuplicateDeclaration, f.Name.Span, "field `%s` bound multiple times in the pattern", f.Name.Name)
		case !found:
			a.errorf(diag.UnknownField, f.Name.Span, "`%s` does not have a field named `%s`", joinIdents(n.Path), f.Name.Name)
		default:
			ft = info.Type
		}
		seen[f.Name.Name] = true
		a.pattern(f.Pattern, ft, b, mode)
	}
	if n.Rest {
		return
	}
	var missing []string
	for _, f := range fields {
		if !seen[f.Name] {
			missing = append(missing, "`"+f.Name+"`")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		a.errorf(diag.ArityMismatch, n.Pos(), "pattern does not mention fields %s", strings.Join(missing, ", "))
	}
}

// orPattern checks every alternative against t. The first alternative
// defines the bindings; the rest are checked in a scratch scope.
func (a *Analyzer) orPattern(n *ast.OrPat, t *Type, b *binder, mode bindMode) {
	for i, alt := range n.Alts {
		if i == 0 {
			a.pattern(alt, t, b, mode)
			continue
		}
		scratch := &binder{seen: make(map[string]token.Span), initialized: b.initialized, param: b.param}
		a.within(NewScope(a.scope, BlockScope), func() { a.pattern(alt, t, scratch, mode) })
	}
}
