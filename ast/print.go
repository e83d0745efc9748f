package ast

import (
	"fmt"
	"log"
	"strings"

	"github.com/takoeight0821/rustsub/token"
)

type text string

func (t text) String() string { return string(t) }

// String renders the whole file, one item per line.
func (f *File) String() string {
	var b strings.Builder
	for i, item := range f.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.Arena.Print(item))
	}
	return b.String()
}

// Print renders the subtree at id as an s-expression. Types are rendered in
// source syntax.
func (a *Arena) Print(id ID) string {
	return a.print(id).String()
}

func (a *Arena) print(id ID) fmt.Stringer {
	switch n := a.Node(id).(type) {
	case nil:
		return text("")
	case Item:
		return a.printItem(n)
	case Stmt:
		return a.printStmt(n)
	case Expr:
		return a.printExpr(n)
	case Pattern:
		return a.printPattern(n)
	case Type:
		return text(a.printType(n))
	default:
		log.Panicf("unexpected node %T", n)
		return nil
	}
}

func (a *Arena) all(ids []ID) []fmt.Stringer {
	out := make([]fmt.Stringer, len(ids))
	for i, id := range ids {
		out[i] = a.print(id)
	}
	return out
}

func (a *Arena) printItem(n Item) fmt.Stringer {
	switch n := n.(type) {
	case *Function:
		elems := []fmt.Stringer{text(n.Name.Name)}
		if len(n.Generics) > 0 {
			elems = append(elems, a.printGenerics(n.Generics))
		}
		params := []fmt.Stringer{}
		if n.Receiver.Kind != NoReceiver {
			params = append(params, text(n.Receiver.String()))
		}
		for _, p := range n.Params {
			params = append(params, parenthesize("", a.print(p.Pattern), a.print(p.Type)))
		}
		elems = append(elems, parenthesize("params", params...))
		if n.Ret.Valid() {
			elems = append(elems, parenthesize("->", a.print(n.Ret)))
		}
		elems = append(elems, a.print(n.Body))
		return parenthesize("fn", elems...)
	case *Struct:
		elems := []fmt.Stringer{text(n.Name.Name)}
		if len(n.Generics) > 0 {
			elems = append(elems, a.printGenerics(n.Generics))
		}
		elems = append(elems, a.printFields(n.Fields)...)
		return parenthesize("struct", elems...)
	case *Enum:
		elems := []fmt.Stringer{text(n.Name.Name)}
		if len(n.Generics) > 0 {
			elems = append(elems, a.printGenerics(n.Generics))
		}
		for _, v := range n.Variants {
			elems = append(elems, a.printVariant(v))
		}
		return parenthesize("enum", elems...)
	case *Impl:
		var elems []fmt.Stringer
		if n.Trait.Valid() {
			elems = append(elems, a.print(n.Trait), text("for"))
		}
		elems = append(elems, a.print(n.Target))
		elems = append(elems, a.all(n.Items)...)
		return parenthesize("impl", elems...)
	case *Trait:
		return parenthesize("trait", append([]fmt.Stringer{text(n.Name.Name)}, a.all(n.Items)...)...)
	case *Module:
		return parenthesize("mod", append([]fmt.Stringer{text(n.Name.Name)}, a.all(n.Items)...)...)
	case *Use:
		return parenthesize("use", text(n.Tree.String()))
	case *Const:
		head := "const"
		if n.Static {
			head = "static"
		}
		return parenthesize(head, text(n.Name.Name), a.print(n.Type), a.print(n.Value))
	case *TypeAlias:
		return parenthesize("type", text(n.Name.Name), a.print(n.Type))
	case *BadItem:
		return text("(bad-item)")
	}
	log.Panicf("unexpected item %T", n)
	return nil
}

func (a *Arena) printGenerics(gs []Generic) fmt.Stringer {
	names := make([]fmt.Stringer, len(gs))
	for i, g := range gs {
		if g.Lifetime {
			names[i] = text("'" + g.Name.Name)
		} else {
			names[i] = text(g.Name.Name)
		}
	}
	return parenthesize("generics", names...)
}

func (a *Arena) printFields(fs []FieldDecl) []fmt.Stringer {
	out := make([]fmt.Stringer, len(fs))
	for i, f := range fs {
		out[i] = parenthesize("", text(f.Name.Name), a.print(f.Type))
	}
	return out
}

func (a *Arena) printVariant(v Variant) fmt.Stringer {
	var s fmt.Stringer = text(v.Name.Name)
	if v.Kind != UnitStruct {
		s = parenthesize(v.Name.Name, a.printFields(v.Fields)...)
	}
	if v.Discriminant.Valid() {
		return parenthesize("=", s, a.print(v.Discriminant))
	}
	return s
}

func (r Receiver) String() string {
	var s string
	switch r.Kind {
	case RefReceiver:
		s = "&self"
	case RefMutReceiver:
		s = "&mut self"
	case ValueReceiver:
		s = "self"
		if r.Mut {
			s = "mut self"
		}
	}
	return s
}

func (u UseTree) String() string {
	var b strings.Builder
	for i, seg := range u.Path {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Name)
	}
	prefix := func() {
		if len(u.Path) > 0 {
			b.WriteString("::")
		}
	}
	switch {
	case u.Glob:
		prefix()
		b.WriteString("*")
	case u.Nested:
		prefix()
		b.WriteString("{")
		for i, c := range u.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.String())
		}
		b.WriteString("}")
	}
	if u.Alias.Name != "" {
		b.WriteString(" as ")
		b.WriteString(u.Alias.Name)
	}
	return b.String()
}

func (a *Arena) printStmt(n Stmt) fmt.Stringer {
	switch n := n.(type) {
	case *Let:
		elems := []fmt.Stringer{a.print(n.Pattern)}
		if n.Type.Valid() {
			elems = append(elems, parenthesize(":", a.print(n.Type)))
		}
		if n.Init.Valid() {
			elems = append(elems, parenthesize("=", a.print(n.Init)))
		}
		if n.Else.Valid() {
			elems = append(elems, parenthesize("else", a.print(n.Else)))
		}
		return parenthesize("let", elems...)
	case *ExprStmt:
		return a.print(n.X)
	case *ItemStmt:
		return a.print(n.Item)
	}
	log.Panicf("unexpected statement %T", n)
	return nil
}

func label(l string) fmt.Stringer {
	if l == "" {
		return text("")
	}
	return text("'" + l)
}

func (a *Arena) printExpr(n Expr) fmt.Stringer {
	switch n := n.(type) {
	case *Literal:
		return text(n.Token.Lexeme)
	case *Path:
		return text(a.pathString(n.Segments, n.Global, "::"))
	case *Unary:
		head := map[token.Kind]string{token.MINUS: "neg", token.BANG: "not", token.STAR: "deref"}[n.Op]
		return parenthesize(head, a.print(n.X))
	case *Ref:
		if n.Mut {
			return parenthesize("ref", text("mut"), a.print(n.X))
		}
		return parenthesize("ref", a.print(n.X))
	case *Binary:
		return parenthesize(n.Op.Kind.String(), a.print(n.Left), a.print(n.Right))
	case *Assign:
		return parenthesize(n.Op.Kind.String(), a.print(n.Left), a.print(n.Right))
	case *Cast:
		return parenthesize("as", a.print(n.X), a.print(n.Type))
	case *Call:
		return parenthesize("call", append([]fmt.Stringer{a.print(n.Func)}, a.all(n.Args)...)...)
	case *MethodCall:
		name := n.Name.Name
		if len(n.Generics) > 0 {
			name += "::<" + a.typeList(n.Generics) + ">"
		}
		return parenthesize("method", append([]fmt.Stringer{a.print(n.Receiver), text(name)}, a.all(n.Args)...)...)
	case *FieldAccess:
		return parenthesize("field", a.print(n.X), text(n.Name.Name))
	case *Index:
		return parenthesize("index", a.print(n.X), a.print(n.Index))
	case *StructLit:
		elems := []fmt.Stringer{a.print(n.Path)}
		for _, f := range n.Fields {
			elems = append(elems, parenthesize("", text(f.Name.Name), a.print(f.Value)))
		}
		if n.Base.Valid() {
			elems = append(elems, parenthesize("..", a.print(n.Base)))
		}
		return parenthesize("struct", elems...)
	case *ArrayLit:
		return parenthesize("array", a.all(n.Elems)...)
	case *Repeat:
		return parenthesize("repeat", a.print(n.Value), a.print(n.Count))
	case *Tuple:
		return parenthesize("tuple", a.all(n.Elems)...)
	case *Paren:
		return parenthesize("paren", a.print(n.X))
	case *Range:
		head := ".."
		if n.Inclusive {
			head = "..="
		}
		return parenthesize(head, a.orBlank(n.Lo), a.orBlank(n.Hi))
	case *Closure:
		params := make([]fmt.Stringer, len(n.Params))
		for i, p := range n.Params {
			if p.Type.Valid() {
				params[i] = parenthesize("", a.print(p.Pattern), a.print(p.Type))
			} else {
				params[i] = a.print(p.Pattern)
			}
		}
		return parenthesize("closure", parenthesize("params", params...), a.print(n.Body))
	case *Match:
		elems := []fmt.Stringer{a.print(n.Scrutinee)}
		for _, arm := range n.Arms {
			parts := []fmt.Stringer{a.print(arm.Pattern)}
			if arm.Guard.Valid() {
				parts = append(parts, parenthesize("if", a.print(arm.Guard)))
			}
			parts = append(parts, a.print(arm.Body))
			elems = append(elems, parenthesize("arm", parts...))
		}
		return parenthesize("match", elems...)
	case *LetCond:
		return parenthesize("let", a.print(n.Pattern), a.print(n.Value))
	case *If:
		return parenthesize("if", a.print(n.Cond), a.print(n.Then), a.print(n.Else))
	case *Block:
		elems := []fmt.Stringer{label(n.Label)}
		if n.Unsafe {
			elems = append(elems, text("unsafe"))
		}
		elems = append(elems, a.all(n.Stmts)...)
		if n.Tail.Valid() {
			elems = append(elems, parenthesize("tail", a.print(n.Tail)))
		}
		return parenthesize("block", elems...)
	case *Loop:
		return parenthesize("loop", label(n.Label), a.print(n.Body))
	case *While:
		return parenthesize("while", label(n.Label), a.print(n.Cond), a.print(n.Body))
	case *For:
		return parenthesize("for", label(n.Label), a.print(n.Pattern), a.print(n.Iter), a.print(n.Body))
	case *Return:
		return parenthesize("return", a.print(n.Value))
	case *Break:
		return parenthesize("break", label(n.Label), a.print(n.Value))
	case *Continue:
		return parenthesize("continue", label(n.Label))
	case *Try:
		return parenthesize("?", a.print(n.X))
	case *MacroCall:
		if n.ArgsParsed {
			return parenthesize("macro", append([]fmt.Stringer{text(n.Name.Name + "!")}, a.all(n.Args)...)...)
		}
		return parenthesize("macro", text(n.Name.Name+"!"), text(fmt.Sprintf("%q", joinTokens(n.Tokens))))
	case *BadExpr:
		return text("(bad)")
	}
	log.Panicf("unexpected expression %T", n)
	return nil
}

func (a *Arena) orBlank(id ID) fmt.Stringer {
	if !id.Valid() {
		return text("_")
	}
	return a.print(id)
}

func joinTokens(tokens []token.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Lexeme
	}
	return strings.Join(parts, " ")
}

func (a *Arena) printPattern(n Pattern) fmt.Stringer {
	switch n := n.(type) {
	case *LitPat:
		if n.Neg {
			return text("-" + n.Token.Lexeme)
		}
		return text(n.Token.Lexeme)
	case *IdentPat:
		var s fmt.Stringer = text(n.Name.Name)
		if n.Mut {
			s = parenthesize("mut", s)
		}
		if n.Ref {
			s = parenthesize("ref", s)
		}
		if n.Sub.Valid() {
			s = parenthesize("@", s, a.print(n.Sub))
		}
		return s
	case *WildPat:
		return text("_")
	case *RestPat:
		return text("..")
	case *TuplePat:
		return parenthesize("tuple", a.all(n.Elems)...)
	case *PathPat:
		return text(joinIdents(n.Path))
	case *TupleStructPat:
		return parenthesize(joinIdents(n.Path), a.all(n.Elems)...)
	case *StructPat:
		var elems []fmt.Stringer
		for _, f := range n.Fields {
			elems = append(elems, parenthesize("", text(f.Name.Name), a.print(f.Pattern)))
		}
		if n.Rest {
			elems = append(elems, text(".."))
		}
		return parenthesize(joinIdents(n.Path), elems...)
	case *OrPat:
		return parenthesize("|", a.all(n.Alts)...)
	case *RangePat:
		head := ".."
		if n.Inclusive {
			head = "..="
		}
		return parenthesize(head, a.orBlank(n.Lo), a.orBlank(n.Hi))
	case *RefPat:
		if n.Mut {
			return parenthesize("&mut", a.print(n.Pattern))
		}
		return parenthesize("&", a.print(n.Pattern))
	case *SlicePat:
		return parenthesize("slice", a.all(n.Elems)...)
	}
	log.Panicf("unexpected pattern %T", n)
	return nil
}

func joinIdents(ids []Ident) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return strings.Join(names, "::")
}

func (a *Arena) typeList(ids []ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = a.print(id).String()
	}
	return strings.Join(parts, ", ")
}

func (a *Arena) pathString(segs []PathSegment, global bool, argSep string) string {
	var b strings.Builder
	if global {
		b.WriteString("::")
	}
	for i, seg := range segs {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(seg.Name.Name)
		if len(seg.Args) > 0 {
			b.WriteString(argSep)
			b.WriteString("<" + a.typeList(seg.Args) + ">")
		}
	}
	return b.String()
}

// printType renders types in source syntax, so nested generics read as
// Vec<Vec<i32>>.
func (a *Arena) printType(n Type) string {
	switch n := n.(type) {
	case *PathType:
		return a.pathString(n.Segments, false, "")
	case *RefType:
		s := "&"
		if n.Lifetime != "" {
			s += "'" + n.Lifetime + " "
		}
		if n.Mut {
			s += "mut "
		}
		return s + a.Print(n.Elem)
	case *ArrayType:
		return "[" + a.Print(n.Elem) + "; " + a.Print(n.Len) + "]"
	case *SliceType:
		return "[" + a.Print(n.Elem) + "]"
	case *TupleType:
		if len(n.Elems) == 1 {
			return "(" + a.Print(n.Elems[0]) + ",)"
		}
		return "(" + a.typeList(n.Elems) + ")"
	case *NeverType:
		return "!"
	case *InferType:
		return "_"
	case *FnType:
		s := "fn(" + a.typeList(n.Params) + ")"
		if n.Ret.Valid() {
			s += " -> " + a.Print(n.Ret)
		}
		return s
	case *LifetimeArg:
		return "'" + n.Name
	case *ImplType:
		head := "impl "
		if n.Dyn {
			head = "dyn "
		}
		parts := make([]string, len(n.Bounds))
		for i, b := range n.Bounds {
			parts[i] = a.Print(b)
		}
		return head + strings.Join(parts, " + ")
	}
	log.Panicf("unexpected type %T", n)
	return ""
}

// parenthesize builds "(head elem1 elem2 ...)", skipping empty elements.
func parenthesize(head string, elems ...fmt.Stringer) fmt.Stringer {
	var b strings.Builder
	b.WriteString("(")
	elemsStr := concat(elems).String()
	if head != "" {
		b.WriteString(head)
	}
	if elemsStr != "" {
		if head != "" {
			b.WriteString(" ")
		}
		b.WriteString(elemsStr)
	}
	b.WriteString(")")
	return &b
}

// concat joins the non-empty renderings of elems with single spaces.
func concat[T fmt.Stringer](elems []T) fmt.Stringer {
	var b strings.Builder
	for _, elem := range elems {
		str := elem.String()
		if str == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(str)
	}
	return &b
}
