package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
)

// Method is a resolved method or associated function.
type Method struct {
	Name  string
	Owner string
	// Receiver is NoReceiver for associated functions.
	Receiver ast.RecvKind
	Params   []*Type
	Ret      *Type
	Decl     ast.ID
	Builtin  bool
	// sig computes the signature from the type the method was found on, for
	// builtins whose signature depends on it.
	sig func(recv *Type) ([]*Type, *Type)
}

// Signature returns the parameter and result types for a call on recv.
func (m *Method) Signature(recv *Type) ([]*Type, *Type) {
	if m.sig != nil {
		return m.sig(recv)
	}
	return m.Params, m.Ret
}

func builtin(owner, name string, recv ast.RecvKind, ret *Type, params ...*Type) *Method {
	return &Method{Name: name, Owner: owner, Receiver: recv, Params: params, Ret: ret, Builtin: true}
}

func dependent(owner, name string, recv ast.RecvKind, sig func(recv *Type) ([]*Type, *Type)) *Method {
	return &Method{Name: name, Owner: owner, Receiver: recv, Builtin: true, sig: sig}
}

func methodTable(ms ...*Method) map[string]*Method {
	t := make(map[string]*Method, len(ms))
	for _, m := range ms {
		t[m.Name] = m
	}
	return t
}

var strRef = RefTo(StrType, false)

func returnsSelf(recv *Type) ([]*Type, *Type) {
	return nil, recv
}

func selfToSelf(recv *Type) ([]*Type, *Type) {
	return []*Type{recv}, recv
}

func selfToBool(recv *Type) ([]*Type, *Type) {
	return []*Type{recv}, BoolType
}

func firstArg(recv *Type) ([]*Type, *Type) {
	return nil, recv.Arg(0)
}

func optionOfFirst(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Option", recv.Arg(0))
}

func elemRefOption(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Option", RefTo(recv.Elem, false))
}

func elemIter(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Iter", RefTo(recv.Elem, false))
}

func elemIterMut(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Iter", RefTo(recv.Elem, true))
}

func containsElem(recv *Type) ([]*Type, *Type) {
	return []*Type{RefTo(recv.Elem, false)}, BoolType
}

func toVec(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Vec", recv.Elem)
}

func pushArg(recv *Type) ([]*Type, *Type) {
	return []*Type{recv.Arg(0)}, UnitType
}

func insertArg(recv *Type) ([]*Type, *Type) {
	return []*Type{UsizeType, recv.Arg(0)}, UnitType
}

func removeArg(recv *Type) ([]*Type, *Type) {
	return []*Type{UsizeType}, recv.Arg(0)
}

func unwrapOrFirst(recv *Type) ([]*Type, *Type) {
	return []*Type{recv.Arg(0)}, recv.Arg(0)
}

func expectFirst(recv *Type) ([]*Type, *Type) {
	return []*Type{strRef}, recv.Arg(0)
}

func optionAsRef(recv *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Option", RefTo(recv.Arg(0), false))
}

func boxNew(_ *Type) ([]*Type, *Type) {
	return []*Type{UnknownType}, OpaqueOf("Box", UnknownType)
}

func vecNew(_ *Type) ([]*Type, *Type) {
	return nil, OpaqueOf("Vec", UnknownType)
}

func vecWithCapacity(_ *Type) ([]*Type, *Type) {
	return []*Type{UsizeType}, OpaqueOf("Vec", UnknownType)
}

func intPow(recv *Type) ([]*Type, *Type) {
	return []*Type{U32Type}, recv
}

func intToOption(recv *Type) ([]*Type, *Type) {
	return []*Type{recv}, OpaqueOf("Option", recv)
}

// Builtin method tables. Entries are shared, so every receiver that
// resolves to the same builtin gets the same *Method.
var (
	strMethods = methodTable(
		builtin("str", "len", ast.RefReceiver, UsizeType),
		builtin("str", "is_empty", ast.RefReceiver, BoolType),
		builtin("str", "to_string", ast.RefReceiver, StringType),
		builtin("str", "to_owned", ast.RefReceiver, StringType),
		builtin("str", "to_uppercase", ast.RefReceiver, StringType),
		builtin("str", "to_lowercase", ast.RefReceiver, StringType),
		builtin("str", "trim", ast.RefReceiver, strRef),
		builtin("str", "chars", ast.RefReceiver, OpaqueOf("Chars", CharType)),
		builtin("str", "bytes", ast.RefReceiver, OpaqueOf("Bytes", U8Type)),
		builtin("str", "as_bytes", ast.RefReceiver, RefTo(SliceOf(U8Type), false)),
		builtin("str", "contains", ast.RefReceiver, BoolType, strRef),
		builtin("str", "starts_with", ast.RefReceiver, BoolType, strRef),
		builtin("str", "ends_with", ast.RefReceiver, BoolType, strRef),
		builtin("str", "split_whitespace", ast.RefReceiver, OpaqueOf("SplitWhitespace", strRef)),
		builtin("str", "parse", ast.RefReceiver, OpaqueOf("Result", UnknownType, UnknownType)),
		builtin("str", "eq", ast.RefReceiver, BoolType, strRef),
	)

	stringMethods = methodTable(
		builtin("String", "as_str", ast.RefReceiver, strRef),
		builtin("String", "push_str", ast.RefMutReceiver, UnitType, strRef),
		builtin("String", "push", ast.RefMutReceiver, UnitType, CharType),
		builtin("String", "pop", ast.RefMutReceiver, OpaqueOf("Option", CharType)),
		builtin("String", "clear", ast.RefMutReceiver, UnitType),
		builtin("String", "clone", ast.RefReceiver, StringType),
		builtin("String", "capacity", ast.RefReceiver, UsizeType),
		builtin("String", "insert", ast.RefMutReceiver, UnitType, UsizeType, CharType),
	)

	intMethods = methodTable(
		dependent("int", "abs", ast.ValueReceiver, returnsSelf),
		dependent("int", "pow", ast.ValueReceiver, intPow),
		dependent("int", "min", ast.ValueReceiver, selfToSelf),
		dependent("int", "max", ast.ValueReceiver, selfToSelf),
		dependent("int", "clone", ast.RefReceiver, returnsSelf),
		dependent("int", "wrapping_add", ast.ValueReceiver, selfToSelf),
		dependent("int", "wrapping_sub", ast.ValueReceiver, selfToSelf),
		dependent("int", "wrapping_mul", ast.ValueReceiver, selfToSelf),
		dependent("int", "checked_add", ast.ValueReceiver, intToOption),
		dependent("int", "checked_sub", ast.ValueReceiver, intToOption),
		dependent("int", "checked_mul", ast.ValueReceiver, intToOption),
		dependent("int", "checked_div", ast.ValueReceiver, intToOption),
		dependent("int", "eq", ast.RefReceiver, selfToBool),
		builtin("int", "to_string", ast.RefReceiver, StringType),
		builtin("int", "count_ones", ast.ValueReceiver, U32Type),
		builtin("int", "leading_zeros", ast.ValueReceiver, U32Type),
		builtin("int", "trailing_zeros", ast.ValueReceiver, U32Type),
		builtin("int", "is_positive", ast.ValueReceiver, BoolType),
		builtin("int", "is_negative", ast.ValueReceiver, BoolType),
	)

	charMethods = methodTable(
		builtin("char", "is_digit", ast.ValueReceiver, BoolType, U32Type),
		builtin("char", "is_alphabetic", ast.ValueReceiver, BoolType),
		builtin("char", "is_alphanumeric", ast.ValueReceiver, BoolType),
		builtin("char", "is_numeric", ast.ValueReceiver, BoolType),
		builtin("char", "is_whitespace", ast.ValueReceiver, BoolType),
		builtin("char", "is_ascii_digit", ast.RefReceiver, BoolType),
		builtin("char", "is_ascii_lowercase", ast.RefReceiver, BoolType),
		builtin("char", "is_ascii_uppercase", ast.RefReceiver, BoolType),
		builtin("char", "to_digit", ast.ValueReceiver, OpaqueOf("Option", U32Type), U32Type),
		builtin("char", "to_ascii_uppercase", ast.RefReceiver, CharType),
		builtin("char", "to_ascii_lowercase", ast.RefReceiver, CharType),
		builtin("char", "to_string", ast.RefReceiver, StringType),
		builtin("char", "clone", ast.RefReceiver, CharType),
	)

	boolMethods = methodTable(
		builtin("bool", "clone", ast.RefReceiver, BoolType),
		builtin("bool", "to_string", ast.RefReceiver, StringType),
		builtin("bool", "then_some", ast.ValueReceiver, OpaqueOf("Option", UnknownType), UnknownType),
	)

	arrayMethods = methodTable(
		dependent("array", "clone", ast.RefReceiver, returnsSelf),
	)

	sliceMethods = methodTable(
		builtin("slice", "len", ast.RefReceiver, UsizeType),
		builtin("slice", "is_empty", ast.RefReceiver, BoolType),
		builtin("slice", "swap", ast.RefMutReceiver, UnitType, UsizeType, UsizeType),
		builtin("slice", "sort", ast.RefMutReceiver, UnitType),
		builtin("slice", "sort_unstable", ast.RefMutReceiver, UnitType),
		builtin("slice", "reverse", ast.RefMutReceiver, UnitType),
		builtin("slice", "fill", ast.RefMutReceiver, UnitType, UnknownType),
		dependent("slice", "iter", ast.RefReceiver, elemIter),
		dependent("slice", "iter_mut", ast.RefMutReceiver, elemIterMut),
		dependent("slice", "contains", ast.RefReceiver, containsElem),
		dependent("slice", "first", ast.RefReceiver, elemRefOption),
		dependent("slice", "last", ast.RefReceiver, elemRefOption),
		dependent("slice", "to_vec", ast.RefReceiver, toVec),
	)

	vecMethods = methodTable(
		dependent("Vec", "push", ast.RefMutReceiver, pushArg),
		dependent("Vec", "pop", ast.RefMutReceiver, optionOfFirst),
		dependent("Vec", "insert", ast.RefMutReceiver, insertArg),
		dependent("Vec", "remove", ast.RefMutReceiver, removeArg),
		dependent("Vec", "clone", ast.RefReceiver, returnsSelf),
		builtin("Vec", "clear", ast.RefMutReceiver, UnitType),
		builtin("Vec", "truncate", ast.RefMutReceiver, UnitType, UsizeType),
		builtin("Vec", "capacity", ast.RefReceiver, UsizeType),
	)

	optionMethods = methodTable(
		builtin("Option", "is_some", ast.RefReceiver, BoolType),
		builtin("Option", "is_none", ast.RefReceiver, BoolType),
		dependent("Option", "unwrap", ast.ValueReceiver, firstArg),
		dependent("Option", "expect", ast.ValueReceiver, expectFirst),
		dependent("Option", "unwrap_or", ast.ValueReceiver, unwrapOrFirst),
		dependent("Option", "take", ast.RefMutReceiver, returnsSelf),
		dependent("Option", "clone", ast.RefReceiver, returnsSelf),
		dependent("Option", "as_ref", ast.RefReceiver, optionAsRef),
	)

	resultMethods = methodTable(
		builtin("Result", "is_ok", ast.RefReceiver, BoolType),
		builtin("Result", "is_err", ast.RefReceiver, BoolType),
		dependent("Result", "unwrap", ast.ValueReceiver, firstArg),
		dependent("Result", "expect", ast.ValueReceiver, expectFirst),
		dependent("Result", "unwrap_or", ast.ValueReceiver, unwrapOrFirst),
	)

	// derivedClone serves `clone` for user types that derive or implement
	// Clone without writing the method.
	derivedClone = dependent("derive", "clone", ast.RefReceiver, returnsSelf)
	derivedEq    = dependent("derive", "eq", ast.RefReceiver, func(recv *Type) ([]*Type, *Type) {
		return []*Type{RefTo(recv, false)}, BoolType
	})
	displayToString = builtin("Display", "to_string", ast.RefReceiver, StringType)
)

// Associated functions and constants reachable as `Type::name` on builtin
// types.
var (
	stringAssoc = methodTable(
		builtin("String", "new", ast.NoReceiver, StringType),
		builtin("String", "from", ast.NoReceiver, StringType, strRef),
		builtin("String", "with_capacity", ast.NoReceiver, StringType, UsizeType),
	)
	vecAssoc = methodTable(
		dependent("Vec", "new", ast.NoReceiver, vecNew),
		dependent("Vec", "with_capacity", ast.NoReceiver, vecWithCapacity),
	)
	boxAssoc = methodTable(
		dependent("Box", "new", ast.NoReceiver, boxNew),
	)
)

// intConsts are the associated constants of every integer type.
var intConsts = []string{"MAX", "MIN", "BITS"}

type builtinFunc struct {
	name   string
	params []*Type
	ret    *Type
}

// builtinFuncs are the I/O and process functions available without
// declaration.
var builtinFuncs = []builtinFunc{
	{"print", []*Type{strRef}, UnitType},
	{"println", []*Type{strRef}, UnitType},
	{"printInt", []*Type{I32Type}, UnitType},
	{"printlnInt", []*Type{I32Type}, UnitType},
	{"getString", nil, StringType},
	{"getInt", nil, I32Type},
	{"exit", []*Type{I32Type}, NeverType},
}

// opaqueTypes are library types known by name.
var opaqueTypes = []string{
	"Vec", "Option", "Result", "Box", "HashMap", "HashSet", "BTreeMap", "BTreeSet",
	"VecDeque", "Rc", "RefCell", "Cell",
}

// universe builds the outermost scope with builtin functions, prelude
// constructors and library types.
func universe() *Scope {
	s := NewScope(nil, ModuleScope)
	for _, f := range builtinFuncs {
		s.values[f.name] = &Symbol{
			Name:        f.name,
			Kind:        Function,
			Type:        FnOf(f.params, f.ret),
			Initialized: true,
			Builtin:     true,
		}
	}
	prelude := map[string]*Type{
		"Some": FnOf([]*Type{UnknownType}, OpaqueOf("Option", UnknownType)),
		"None": OpaqueOf("Option", UnknownType),
		"Ok":   FnOf([]*Type{UnknownType}, OpaqueOf("Result", UnknownType, UnknownType)),
		"Err":  FnOf([]*Type{UnknownType}, OpaqueOf("Result", UnknownType, UnknownType)),
		"drop": FnOf([]*Type{UnknownType}, UnitType),
	}
	for name, t := range prelude {
		s.values[name] = &Symbol{Name: name, Kind: Function, Type: t, Initialized: true, Builtin: true}
	}
	s.values["None"].Kind = EnumVariant
	for _, name := range opaqueTypes {
		s.types[name] = &Symbol{Name: name, Kind: External, Type: OpaqueOf(name), Builtin: true}
	}
	s.types["String"] = &Symbol{Name: "String", Kind: External, Type: StringType, Builtin: true}
	return s
}

// builtinMethods returns the method table of a builtin type, or nil.
func builtinMethods(t *Type) map[string]*Method {
	switch t.Kind {
	case Str:
		return strMethods
	case String:
		return stringMethods
	case Int, IntLit:
		return intMethods
	case Char:
		return charMethods
	case Bool:
		return boolMethods
	case Array:
		return arrayMethods
	case Slice:
		return sliceMethods
	case Opaque:
		switch t.Name {
		case "Vec":
			return vecMethods
		case "Option":
			return optionMethods
		case "Result":
			return resultMethods
		}
	}
	return nil
}

// builtinAssoc returns the associated functions of a builtin type name.
func builtinAssoc(name string) map[string]*Method {
	switch name {
	case "String":
		return stringAssoc
	case "Vec":
		return vecAssoc
	case "Box":
		return boxAssoc
	}
	return nil
}
