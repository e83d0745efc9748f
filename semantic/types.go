package semantic

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type Kind int

const (
	// Unknown is the type of expressions that failed to check. It is
	// compatible with every type so one error is not reported twice.
	Unknown Kind = iota
	Unit
	Bool
	Char
	Int
	// IntLit is an unsuffixed integer literal that has not met a concrete
	// integer type yet.
	IntLit
	Str
	String
	Never
	Ref
	Array
	Slice
	Tuple
	Adt
	Fn
	Range
	// Opaque covers library types (Vec, Option, HashMap, Box, ...) that are
	// tracked by name and arguments only.
	Opaque
	// Param is a generic type parameter.
	Param
)

type Type struct {
	Kind Kind
	// Name is the integer type name for Int, and the type name for Opaque
	// and Param.
	Name string
	// Mut marks &mut for Ref.
	Mut bool
	// Elem is the referent of Ref, the element of Array, Slice and Range.
	Elem *Type
	// Len is the length of Array, or -1 when it could not be evaluated.
	Len int64
	// Elems holds tuple elements, function parameters and Opaque arguments.
	Elems []*Type
	Ret   *Type
	// Variadic functions accept any number of arguments.
	Variadic bool
	Info     *TypeInfo
}

var (
	UnknownType = &Type{Kind: Unknown}
	UnitType    = &Type{Kind: Unit}
	BoolType    = &Type{Kind: Bool}
	CharType    = &Type{Kind: Char}
	StrType     = &Type{Kind: Str}
	StringType  = &Type{Kind: String}
	NeverType   = &Type{Kind: Never}
	IntLitType  = &Type{Kind: IntLit}
)

var intNames = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
}

var intTypes = func() map[string]*Type {
	m := make(map[string]*Type, len(intNames))
	for _, name := range intNames {
		m[name] = &Type{Kind: Int, Name: name}
	}
	return m
}()

// IntType returns the shared type for an integer type name.
func IntType(name string) *Type {
	if t, ok := intTypes[name]; ok {
		return t
	}
	return nil
}

var (
	I32Type   = IntType("i32")
	U8Type    = IntType("u8")
	U32Type   = IntType("u32")
	UsizeType = IntType("usize")
)

func RefTo(elem *Type, mut bool) *Type {
	return &Type{Kind: Ref, Elem: elem, Mut: mut}
}

func ArrayOf(elem *Type, n int64) *Type {
	return &Type{Kind: Array, Elem: elem, Len: n}
}

func SliceOf(elem *Type) *Type {
	return &Type{Kind: Slice, Elem: elem}
}

func TupleOf(elems ...*Type) *Type {
	if len(elems) == 0 {
		return UnitType
	}
	return &Type{Kind: Tuple, Elems: elems}
}

func FnOf(params []*Type, ret *Type) *Type {
	return &Type{Kind: Fn, Elems: params, Ret: ret}
}

func RangeOf(elem *Type) *Type {
	return &Type{Kind: Range, Elem: elem}
}

func OpaqueOf(name string, args ...*Type) *Type {
	return &Type{Kind: Opaque, Name: name, Elems: args}
}

// Arg returns the i-th Opaque argument, or Unknown.
func (t *Type) Arg(i int) *Type {
	if i < len(t.Elems) && t.Elems[i] != nil {
		return t.Elems[i]
	}
	return UnknownType
}

func (t *Type) IsInteger() bool {
	return t.Kind == Int || t.Kind == IntLit
}

func (t *Type) IsSigned() bool {
	return t.Kind == IntLit || t.Kind == Int && strings.HasPrefix(t.Name, "i")
}

// IsLenient reports whether t takes part in checks at all.
func (t *Type) IsLenient() bool {
	return t == nil || t.Kind == Unknown || t.Kind == Param
}

func (t *Type) String() string {
	if t == nil {
		return "{unknown}"
	}
	switch t.Kind {
	case Unknown:
		return "{unknown}"
	case Unit:
		return "()"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Int, Param:
		return t.Name
	case IntLit:
		return "{integer}"
	case Str:
		return "str"
	case String:
		return "String"
	case Never:
		return "!"
	case Ref:
		if t.Mut {
			return "&mut " + t.Elem.String()
		}
		return "&" + t.Elem.String()
	case Array:
		if t.Len < 0 {
			return "[" + t.Elem.String() + "; _]"
		}
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	case Slice:
		return "[" + t.Elem.String() + "]"
	case Tuple:
		if len(t.Elems) == 1 {
			return "(" + t.Elems[0].String() + ",)"
		}
		return "(" + joinTypes(t.Elems) + ")"
	case Adt:
		return t.Info.Name
	case Fn:
		s := "fn(" + joinTypes(t.Elems) + ")"
		if t.Ret != nil && t.Ret.Kind != Unit {
			s += " -> " + t.Ret.String()
		}
		return s
	case Range:
		return "Range<" + t.Elem.String() + ">"
	case Opaque:
		if len(t.Elems) == 0 {
			return t.Name
		}
		return t.Name + "<" + joinTypes(t.Elems) + ">"
	}
	return "{invalid}"
}

func joinTypes(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Assignable reports whether a value of type got can be used where want is
// expected. It allows the coercions the language performs implicitly:
// integer literals to any integer type, `!` to anything, &mut T to &T, and
// deref coercion of references (&String to &str, &[T; N] to &[T], &&T to &T).
func Assignable(want, got *Type) bool {
	if want.IsLenient() || got.IsLenient() || got.Kind == Never {
		return true
	}
	switch want.Kind {
	case Int:
		return got.Kind == IntLit || got.Kind == Int && got.Name == want.Name
	case IntLit:
		return got.IsInteger()
	case Ref:
		return got.Kind == Ref && coerceRef(want, got, 0)
	case Array:
		return got.Kind == Array && Assignable(want.Elem, got.Elem) &&
			(want.Len < 0 || got.Len < 0 || want.Len == got.Len)
	case Slice:
		return got.Kind == Slice && Assignable(want.Elem, got.Elem)
	case Tuple:
		return got.Kind == Tuple && allAssignable(want.Elems, got.Elems)
	case Adt:
		return got.Kind == Adt && got.Info == want.Info
	case Fn:
		return got.Kind == Fn && (want.Variadic || got.Variadic || allAssignable(got.Elems, want.Elems)) &&
			Assignable(want.Ret, got.Ret)
	case Range:
		return got.Kind == Range && Assignable(want.Elem, got.Elem)
	case Opaque:
		return got.Kind == Opaque && got.Name == want.Name &&
			(len(want.Elems) == 0 || len(got.Elems) == 0 || allAssignable(want.Elems, got.Elems))
	case Never:
		return false
	}
	return want.Kind == got.Kind
}

func allAssignable(want, got []*Type) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !Assignable(want[i], got[i]) {
			return false
		}
	}
	return true
}

// coerceRef peels references off got until its referent fits want's.
func coerceRef(want, got *Type, depth int) bool {
	if want.Mut && !got.Mut {
		return false
	}
	if Assignable(want.Elem, got.Elem) {
		return true
	}
	if depth >= maxCoerceDepth {
		return false
	}
	switch elem := got.Elem; {
	case want.Elem.Kind == Str && elem.Kind == String:
		return true
	case want.Elem.Kind == Slice && elem.Kind == Array:
		return Assignable(want.Elem.Elem, elem.Elem)
	case want.Elem.Kind == Slice && elem.Kind == Opaque && elem.Name == "Vec":
		return Assignable(want.Elem.Elem, elem.Arg(0))
	case elem.Kind == Ref:
		return coerceRef(want, elem, depth+1)
	case elem.Kind == Opaque && elem.Name == "Box":
		return coerceRef(want, RefTo(elem.Arg(0), got.Mut), depth+1)
	}
	return false
}

const maxCoerceDepth = 16

// Join returns the type of a value that is either a or b, as for the arms
// of if and match. It returns nil when they do not agree.
func Join(a, b *Type) *Type {
	switch {
	case a.Kind == Never:
		return b
	case b.Kind == Never:
		return a
	case a.Kind == Unknown:
		return b
	case b.Kind == Unknown:
		return a
	case a.Kind == IntLit && b.IsInteger():
		return b
	case b.Kind == IntLit && a.IsInteger():
		return a
	case Assignable(a, b):
		return a
	case Assignable(b, a):
		return b
	}
	return nil
}

// Equal reports structural equality, used when comparison operands must
// agree without coercion.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a.Kind != b.Kind || a.Name != b.Name || a.Mut != b.Mut || a.Info != b.Info || a.Len != b.Len {
		return false
	}
	if (a.Elem == nil) != (b.Elem == nil) || a.Elem != nil && !Equal(a.Elem, b.Elem) {
		return false
	}
	if (a.Ret == nil) != (b.Ret == nil) || a.Ret != nil && !Equal(a.Ret, b.Ret) {
		return false
	}
	return slices.EqualFunc(a.Elems, b.Elems, Equal)
}

// peelRefs strips every reference layer.
func peelRefs(t *Type) *Type {
	for t.Kind == Ref {
		t = t.Elem
	}
	return t
}
