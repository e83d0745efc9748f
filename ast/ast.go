package ast

import (
	"github.com/takoeight0821/rustsub/token"
)

// ID addresses a node in an Arena. Children refer to each other by ID, never
// by pointer, so recursive shapes are plain index relations.
type ID int32

// NoID marks an absent optional child.
const NoID ID = 0

func (id ID) Valid() bool {
	return id > NoID
}

type Node interface {
	Pos() token.Span
	node()
}

// Meta is embedded in every node.
type Meta struct {
	Span token.Span
}

func (m Meta) Pos() token.Span { return m.Span }
func (Meta) node()             {}

type (
	itemMarker    struct{}
	exprMarker    struct{}
	stmtMarker    struct{}
	patternMarker struct{}
	typeMarker    struct{}
)

func (itemMarker) itemNode()       {}
func (exprMarker) exprNode()       {}
func (stmtMarker) stmtNode()       {}
func (patternMarker) patternNode() {}
func (typeMarker) typeNode()       {}

type Item interface {
	Node
	itemNode()
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

type Pattern interface {
	Node
	patternNode()
}

type Type interface {
	Node
	typeNode()
}

// Arena owns every node of one compilation unit. Slot 0 is reserved for NoID.
type Arena struct {
	nodes []Node
}

func NewArena() *Arena {
	return &Arena{nodes: []Node{nil}}
}

func (a *Arena) Add(n Node) ID {
	a.nodes = append(a.nodes, n)
	return ID(len(a.nodes) - 1)
}

// Node returns the node for id, or nil for NoID.
func (a *Arena) Node(id ID) Node {
	if !id.Valid() || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

func (a *Arena) Len() int {
	return len(a.nodes) - 1
}

func (a *Arena) Span(id ID) token.Span {
	if n := a.Node(id); n != nil {
		return n.Pos()
	}
	return token.Span{}
}

// File is the parse result of one compilation unit.
type File struct {
	*Arena
	Items []ID
	// Attrs holds inner attributes (#![...]) at the top of the file.
	Attrs []Attr
}

// Ident is a name with its position. Raw is set for r#name spellings.
type Ident struct {
	Name string
	Span token.Span
	Raw  bool
}

func (i Ident) String() string {
	return i.Name
}

// Attr is an attribute kept as an opaque, balanced token group.
type Attr struct {
	Span   token.Span
	Inner  bool
	Tokens []token.Token
}

// Name returns the leading identifier of the attribute, e.g. "derive".
func (a Attr) Name() string {
	if len(a.Tokens) > 0 && a.Tokens[0].Kind == token.IDENT {
		return a.Tokens[0].Lexeme
	}
	return ""
}

// Derives lists the trait names of a derive attribute.
func (a Attr) Derives() []string {
	if a.Name() != "derive" {
		return nil
	}
	var names []string
	for _, tok := range a.Tokens[1:] {
		if tok.Kind == token.IDENT {
			names = append(names, tok.Lexeme)
		}
	}
	return names
}

type StructKind int

const (
	NamedFields StructKind = iota
	TupleFields
	UnitStruct
)

type Generic struct {
	Name     Ident
	Lifetime bool
	Bounds   []ID
}

type RecvKind int

const (
	NoReceiver RecvKind = iota
	ValueReceiver
	RefReceiver
	RefMutReceiver
)

type Receiver struct {
	Kind RecvKind
	// Mut is set for `mut self`.
	Mut  bool
	Type ID
	Span token.Span
}

type Param struct {
	Pattern ID
	Type    ID
	Span    token.Span
}

type FieldDecl struct {
	Name  Ident
	Type  ID
	Pub   bool
	Attrs []Attr
	Span  token.Span
}

type Variant struct {
	Name         Ident
	Kind         StructKind
	Fields       []FieldDecl
	Discriminant ID
	Span         token.Span
}

// Items.

type Function struct {
	Meta
	itemMarker
	Name     Ident
	Pub      bool
	Const    bool
	Attrs    []Attr
	Generics []Generic
	Receiver Receiver
	Params   []Param
	Ret      ID
	// Body is NoID for signatures inside traits.
	Body ID
	// Implicit is set for the main function synthesized from top-level statements.
	Implicit bool
}

type Struct struct {
	Meta
	itemMarker
	Name     Ident
	Pub      bool
	Attrs    []Attr
	Generics []Generic
	Kind     StructKind
	Fields   []FieldDecl
}

type Enum struct {
	Meta
	itemMarker
	Name     Ident
	Pub      bool
	Attrs    []Attr
	Generics []Generic
	Variants []Variant
}

type Impl struct {
	Meta
	itemMarker
	Generics []Generic
	Target   ID
	// TargetName is the last path segment of Target ("Point" for impl Point).
	TargetName string
	// Trait is NoID for inherent impls.
	Trait ID
	Items []ID
}

type Trait struct {
	Meta
	itemMarker
	Name     Ident
	Pub      bool
	Generics []Generic
	Items    []ID
}

type Module struct {
	Meta
	itemMarker
	Name  Ident
	Pub   bool
	Attrs []Attr
	// Items is nil for `mod name;` declarations.
	Items  []ID
	Inline bool
}

// UseTree is one node of `use a::b::{c, d as e, *}`.
type UseTree struct {
	Path     []Ident
	Alias    Ident
	Glob     bool
	Children []UseTree
	Nested   bool
}

type Use struct {
	Meta
	itemMarker
	Pub  bool
	Tree UseTree
}

type Const struct {
	Meta
	itemMarker
	Name   Ident
	Pub    bool
	Static bool
	Mut    bool
	Type   ID
	Value  ID
}

type TypeAlias struct {
	Meta
	itemMarker
	Name Ident
	Pub  bool
	Type ID
}

// BadItem stands in for an item, or a top-level statement, that failed to
// parse. Name is the name it declared, when parsing got that far.
type BadItem struct {
	Meta
	itemMarker
	Name Ident
}

// Statements.

type Let struct {
	Meta
	stmtMarker
	Pattern ID
	Type    ID
	Init    ID
	Else    ID
}

type ExprStmt struct {
	Meta
	stmtMarker
	X    ID
	Semi bool
}

type ItemStmt struct {
	Meta
	stmtMarker
	Item ID
}

// Expressions.

type Literal struct {
	Meta
	exprMarker
	Token token.Token
}

type PathSegment struct {
	Name Ident
	Args []ID
}

// Path is a (possibly single-segment) name reference: x, Point::new, Self.
type Path struct {
	Meta
	exprMarker
	Segments []PathSegment
	// Global is set for paths starting with `::`.
	Global bool
}

// Name returns the last segment's name.
func (p *Path) Name() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name.Name
}

type Unary struct {
	Meta
	exprMarker
	Op token.Kind // MINUS, BANG, STAR
	X  ID
}

type Ref struct {
	Meta
	exprMarker
	Mut bool
	X   ID
}

type Binary struct {
	Meta
	exprMarker
	Op    token.Token
	Left  ID
	Right ID
}

type Assign struct {
	Meta
	exprMarker
	Op    token.Token
	Left  ID
	Right ID
}

type Cast struct {
	Meta
	exprMarker
	X    ID
	Type ID
}

type Call struct {
	Meta
	exprMarker
	Func ID
	Args []ID
}

type MethodCall struct {
	Meta
	exprMarker
	Receiver ID
	Name     Ident
	Generics []ID
	Args     []ID
}

// FieldAccess reads a named field or a tuple index (Name "0").
type FieldAccess struct {
	Meta
	exprMarker
	X    ID
	Name Ident
}

type Index struct {
	Meta
	exprMarker
	X     ID
	Index ID
}

type FieldInit struct {
	Name      Ident
	Value     ID
	Shorthand bool
	Span      token.Span
}

type StructLit struct {
	Meta
	exprMarker
	Path   ID
	Fields []FieldInit
	Base   ID
}

type ArrayLit struct {
	Meta
	exprMarker
	Elems []ID
}

// Repeat is the [value; count] array form.
type Repeat struct {
	Meta
	exprMarker
	Value ID
	Count ID
}

// Tuple with no elements is the unit value.
type Tuple struct {
	Meta
	exprMarker
	Elems []ID
}

type Paren struct {
	Meta
	exprMarker
	X ID
}

type Range struct {
	Meta
	exprMarker
	Lo        ID
	Hi        ID
	Inclusive bool
}

type Closure struct {
	Meta
	exprMarker
	Move   bool
	Params []Param
	Ret    ID
	Body   ID
}

type Arm struct {
	Pattern ID
	Guard   ID
	Body    ID
	Span    token.Span
}

type Match struct {
	Meta
	exprMarker
	Scrutinee ID
	Arms      []Arm
}

// LetCond is the `let PAT = EXPR` condition of if-let and while-let.
type LetCond struct {
	Meta
	exprMarker
	Pattern ID
	Value   ID
}

type If struct {
	Meta
	exprMarker
	Cond ID
	Then ID
	// Else is a Block, an If, or NoID.
	Else ID
}

type Block struct {
	Meta
	exprMarker
	Stmts  []ID
	Tail   ID
	Unsafe bool
	Label  string
}

type Loop struct {
	Meta
	exprMarker
	Label string
	Body  ID
}

type While struct {
	Meta
	exprMarker
	Label string
	Cond  ID
	Body  ID
}

type For struct {
	Meta
	exprMarker
	Label   string
	Pattern ID
	Iter    ID
	Body    ID
}

type Return struct {
	Meta
	exprMarker
	Value ID
}

type Break struct {
	Meta
	exprMarker
	Label string
	Value ID
}

type Continue struct {
	Meta
	exprMarker
	Label string
}

// Try is the postfix `?` operator.
type Try struct {
	Meta
	exprMarker
	X ID
}

// MacroCall keeps the invocation as an opaque token group. Args is filled
// when the group also parses as a comma separated expression list.
type MacroCall struct {
	Meta
	exprMarker
	Name   Ident
	Delim  token.Kind
	Tokens []token.Token
	Args   []ID
	// ArgsParsed is set when Args holds the full contents of the group.
	ArgsParsed bool
}

// BadExpr stands in for an expression that failed to lex or parse.
type BadExpr struct {
	Meta
	exprMarker
}

// Patterns.

type LitPat struct {
	Meta
	patternMarker
	Token token.Token
	Neg   bool
}

type IdentPat struct {
	Meta
	patternMarker
	Name Ident
	Mut  bool
	Ref  bool
	Sub  ID
}

type WildPat struct {
	Meta
	patternMarker
}

type RestPat struct {
	Meta
	patternMarker
}

type TuplePat struct {
	Meta
	patternMarker
	Elems []ID
}

// PathPat is a unit variant or constant: Color::Red.
type PathPat struct {
	Meta
	patternMarker
	Path []Ident
}

type TupleStructPat struct {
	Meta
	patternMarker
	Path  []Ident
	Elems []ID
}

type FieldPat struct {
	Name      Ident
	Pattern   ID
	Shorthand bool
}

type StructPat struct {
	Meta
	patternMarker
	Path   []Ident
	Fields []FieldPat
	Rest   bool
}

type OrPat struct {
	Meta
	patternMarker
	Alts []ID
}

type RangePat struct {
	Meta
	patternMarker
	Lo        ID
	Hi        ID
	Inclusive bool
}

type RefPat struct {
	Meta
	patternMarker
	Mut     bool
	Pattern ID
}

type SlicePat struct {
	Meta
	patternMarker
	Elems []ID
}

// Types.

type PathType struct {
	Meta
	typeMarker
	Segments []PathSegment
}

func (p *PathType) Name() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1].Name.Name
}

type RefType struct {
	Meta
	typeMarker
	Lifetime string
	Mut      bool
	Elem     ID
}

type ArrayType struct {
	Meta
	typeMarker
	Elem ID
	Len  ID
}

type SliceType struct {
	Meta
	typeMarker
	Elem ID
}

// TupleType with no elements is the unit type.
type TupleType struct {
	Meta
	typeMarker
	Elems []ID
}

type NeverType struct {
	Meta
	typeMarker
}

type InferType struct {
	Meta
	typeMarker
}

type FnType struct {
	Meta
	typeMarker
	Params []ID
	Ret    ID
}

// LifetimeArg appears inside generic argument lists: Foo<'a>.
type LifetimeArg struct {
	Meta
	typeMarker
	Name string
}

// ImplType is `impl Trait` or `dyn Trait` in type position; it is parsed but
// carries no semantics.
type ImplType struct {
	Meta
	typeMarker
	Dyn    bool
	Bounds []ID
}
