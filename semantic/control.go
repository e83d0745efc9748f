package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
)

func (a *Analyzer) checkItems(items []ast.ID) {
	for _, id := range items {
		a.checkItem(id)
	}
}

func (a *Analyzer) checkItem(id ast.ID) {
	switch n := a.file.Node(id).(type) {
	case *ast.Function:
		isMain := a.scope == a.root && n.Name.Name == "main"
		a.checkFunction(n, a.sigs[id], isMain)
	case *ast.Impl:
		impl, ok := a.impls[id]
		if !ok {
			return
		}
		saved := a.self
		a.self = impl.self
		defer func() { a.self = saved }()
		a.within(impl.generics, func() {
			for _, item := range n.Items {
				switch m := a.file.Node(item).(type) {
				case *ast.Function:
					a.checkFunction(m, a.sigs[item], false)
				case *ast.Const:
					if impl.self.Kind == Adt {
						a.checkConst(m, impl.self.Info.Consts[m.Name.Name])
					}
				}
			}
		})
	case *ast.Trait:
		saved := a.self
		a.self = &Type{Kind: Param, Name: "Self"}
		defer func() { a.self = saved }()
		for _, item := range n.Items {
			if m, ok := a.file.Node(item).(*ast.Function); ok {
				a.checkFunction(m, a.sigs[item], false)
			}
		}
	case *ast.Module:
		if members, ok := a.modules[id]; ok {
			a.within(members, func() { a.checkItems(n.Items) })
		}
	case *ast.Const:
		if sym, ok := a.scope.Local(n.Name.Name); ok && sym.Decl == id {
			a.checkConst(n, sym)
		}
	case *ast.Enum:
		for _, v := range n.Variants {
			if v.Discriminant.Valid() {
				a.constContext(func() { a.expect(v.Discriminant, IntLitType) })
			}
		}
	case *ast.TypeAlias:
		if sym, ok := a.scope.LocalType(n.Name.Name); ok && sym.Decl == id {
			a.aliasType(sym)
		}
	}
}

// constContext runs f outside any function body.
func (a *Analyzer) constContext(f func()) {
	saved := a.fn
	a.fn = &fnContext{konst: true}
	defer func() { a.fn = saved }()
	f()
}

func (a *Analyzer) checkConst(n *ast.Const, sym *Symbol) {
	if sym == nil || !n.Value.Valid() {
		return
	}
	a.constContext(func() {
		got := a.checkExpr(n.Value)
		if n.Type.Valid() {
			a.coerce(n.Value, sym.Type, got)
		} else {
			sym.Type = got
		}
	})
	if !n.Static && sym.Type.IsInteger() {
		a.constValue(sym)
	}
}

func (a *Analyzer) checkFunction(n *ast.Function, sig *fnSig, isMain bool) {
	if sig == nil || !n.Body.Valid() {
		return
	}
	savedScope, savedFn := a.scope, a.fn
	defer func() { a.scope, a.fn = savedScope, savedFn }()
	a.scope = NewScope(sig.generics, BlockScope)
	a.fn = &fnContext{name: n.Name.Name, ret: sig.ret, main: isMain}

	if n.Receiver.Kind != ast.NoReceiver {
		a.bindSelf(n)
	}
	b := newBinder(true)
	b.param = true
	for i, p := range n.Params {
		a.bindPattern(p.Pattern, sig.params[i], b)
	}
	body := a.checkExpr(n.Body)
	a.checkResult(n, sig.ret, body)
	if isMain {
		a.checkFinalExit(n.Body)
	}
}

func (a *Analyzer) bindSelf(n *ast.Function) {
	r := n.Receiver
	if a.self == nil {
		a.errorf(diag.UndeclaredIdentifier, r.Span, "`self` parameter is only allowed in associated functions")
		return
	}
	var t *Type
	switch r.Kind {
	case ast.ValueReceiver:
		t = a.self
	case ast.RefReceiver:
		t = RefTo(a.self, false)
	case ast.RefMutReceiver:
		t = RefTo(a.self, true)
	}
	if r.Type.Valid() {
		t = a.resolveType(r.Type)
	}
	a.defineValue(&Symbol{Name: "self", Kind: Variable, Type: t, Mutable: r.Mut, Initialized: true, Span: r.Span})
}

// checkResult matches the body's value against the declared result. A body
// that ends without a value where one is required is a missing return,
// unless every path diverges.
func (a *Analyzer) checkResult(n *ast.Function, ret, body *Type) {
	blk, _ := a.file.Node(n.Body).(*ast.Block)
	switch {
	case body.Kind == Never || body.IsLenient() || ret.IsLenient():
	case ret.Kind == Unit:
		if !Assignable(UnitType, body) && blk != nil && blk.Tail.Valid() {
			a.errorf(diag.TypeMismatch, a.span(blk.Tail), "mismatched types: expected `()`, found `%v`", body)
		}
	case body.Kind == Unit && ret.Kind != Unit:
		a.errorf(diag.MissingReturn, n.Name.Span, "function `%s` declares return type `%v` but not all paths return a value", n.Name.Name, ret)
	case blk != nil && blk.Tail.Valid():
		a.coerce(blk.Tail, ret, body)
	}
}

// checkFinalExit reports calls to the builtin exit in main that are
// followed by further statements.
func (a *Analyzer) checkFinalExit(body ast.ID) {
	blk, ok := a.file.Node(body).(*ast.Block)
	if !ok {
		return
	}
	stmts := blk.Stmts
	if !blk.Tail.Valid() && len(stmts) > 0 {
		stmts = stmts[:len(stmts)-1]
	}
	for _, s := range stmts {
		es, ok := a.file.Node(s).(*ast.ExprStmt)
		if !ok {
			continue
		}
		if a.isExitCall(es.X) {
			a.errorf(diag.InvalidControlFlow, es.Pos(), "built-in function `exit` must be the final statement in `main`")
		}
	}
}

func (a *Analyzer) isExitCall(id ast.ID) bool {
	call, ok := a.file.Node(id).(*ast.Call)
	if !ok {
		return false
	}
	sym := a.out.Symbols[call.Func]
	return sym != nil && sym.Builtin && sym.Name == "exit"
}

func (a *Analyzer) block(n *ast.Block) *Type {
	defer a.enter(BlockScope)()

	var items []ast.ID
	for _, s := range n.Stmts {
		if is, ok := a.file.Node(s).(*ast.ItemStmt); ok {
			items = append(items, is.Item)
		}
	}
	a.collect(items)
	a.checkItems(items)

	var frame *loopFrame
	if n.Label != "" {
		frame = a.pushFrame(n.Label, loopFrameBlock)
		defer a.popFrame()
	}

	diverges := false
	for _, s := range n.Stmts {
		if a.stmt(s) {
			diverges = true
		}
	}
	t := UnitType
	switch {
	case n.Tail.Valid():
		t = a.checkExpr(n.Tail)
	case diverges:
		t = NeverType
	}
	if frame != nil && frame.broken {
		if j := Join(t, frame.value); j != nil {
			t = j
		}
	}
	return t
}

// stmt checks one statement and reports whether it diverges.
func (a *Analyzer) stmt(id ast.ID) bool {
	switch n := a.file.Node(id).(type) {
	case *ast.Let:
		return a.let(n)
	case *ast.ExprStmt:
		t := a.checkExpr(n.X)
		if !n.Semi && !Assignable(UnitType, t) {
			a.errorf(diag.TypeMismatch, a.span(n.X), "mismatched types: expected `()`, found `%v`", t)
		}
		return t.Kind == Never
	}
	return false
}

func (a *Analyzer) let(n *ast.Let) bool {
	t := UnknownType
	if n.Type.Valid() {
		t = a.resolveType(n.Type)
	}
	diverges := false
	if n.Init.Valid() {
		got := a.checkExpr(n.Init)
		if n.Type.Valid() {
			a.coerce(n.Init, t, got)
		} else {
			t = got
		}
		diverges = got.Kind == Never
	}
	if n.Else.Valid() {
		if et := a.checkExpr(n.Else); et.Kind != Never && !et.IsLenient() {
			a.errorf(diag.TypeMismatch, a.span(n.Else), "`else` clause of `let...else` does not diverge: expected `!`, found `%v`", et)
		}
	}
	a.bindPattern(n.Pattern, t, newBinder(n.Init.Valid()))
	return diverges
}

// condition checks an if or while condition; `let` conditions bind into
// the current scope.
func (a *Analyzer) condition(id ast.ID) {
	if lc, ok := a.file.Node(id).(*ast.LetCond); ok {
		a.record(id, a.letCond(lc))
		return
	}
	a.expect(id, BoolType)
}

func (a *Analyzer) letCond(n *ast.LetCond) *Type {
	value := a.checkExpr(n.Value)
	a.bindPattern(n.Pattern, value, newBinder(true))
	return BoolType
}

func (a *Analyzer) ifExpr(n *ast.If) *Type {
	restore := a.enter(BlockScope)
	a.condition(n.Cond)
	then := a.checkExpr(n.Then)
	restore()
	if !n.Else.Valid() {
		if !Assignable(UnitType, then) {
			a.errorf(diag.TypeMismatch, a.span(n.Then), "`if` may be missing an `else` clause: expected `()`, found `%v`", then)
		}
		return UnitType
	}
	els := a.checkExpr(n.Else)
	t := Join(then, els)
	if t == nil {
		a.errorf(diag.TypeMismatch, a.span(n.Else), "`if` and `else` have incompatible types: expected `%v`, found `%v`", then, els)
		return UnknownType
	}
	return t
}

func (a *Analyzer) matchExpr(n *ast.Match) *Type {
	scrutinee := a.checkExpr(n.Scrutinee)
	result := NeverType
	for _, arm := range n.Arms {
		restore := a.enter(BlockScope)
		a.bindPattern(arm.Pattern, scrutinee, newBinder(true))
		if arm.Guard.Valid() {
			a.condition(arm.Guard)
		}
		body := a.checkExpr(arm.Body)
		restore()
		j := Join(result, body)
		if j == nil {
			a.errorf(diag.TypeMismatch, a.span(arm.Body), "`match` arms have incompatible types: expected `%v`, found `%v`", result, body)
			continue
		}
		result = j
	}
	return result
}

func (a *Analyzer) pushFrame(label string, kind frameKind) *loopFrame {
	if a.fn == nil {
		a.fn = &fnContext{konst: true}
	}
	f := &loopFrame{label: label, kind: kind}
	a.fn.loops = append(a.fn.loops, f)
	return f
}

func (a *Analyzer) popFrame() {
	a.fn.loops = a.fn.loops[:len(a.fn.loops)-1]
}

func (a *Analyzer) loopBody(body ast.ID) {
	if t := a.checkExpr(body); !Assignable(UnitType, t) {
		a.errorf(diag.TypeMismatch, a.span(body), "mismatched types: expected `()`, found `%v`", t)
	}
}

func (a *Analyzer) loopExpr(n *ast.Loop) *Type {
	frame := a.pushFrame(n.Label, loopFrameLoop)
	a.loopBody(n.Body)
	a.popFrame()
	switch {
	case !frame.broken:
		// Only a break leaves an unconditional loop.
		return NeverType
	case frame.value == nil:
		return UnitType
	}
	return frame.value
}

func (a *Analyzer) whileExpr(n *ast.While) *Type {
	defer a.enter(BlockScope)()
	a.condition(n.Cond)
	a.pushFrame(n.Label, loopFrameWhile)
	a.loopBody(n.Body)
	a.popFrame()
	return UnitType
}

func (a *Analyzer) forExpr(n *ast.For) *Type {
	iter := a.checkExpr(n.Iter)
	elem := a.iterElem(n.Iter, iter)
	defer a.enter(BlockScope)()
	a.bindPattern(n.Pattern, elem, newBinder(true))
	a.pushFrame(n.Label, loopFrameFor)
	a.loopBody(n.Body)
	a.popFrame()
	return UnitType
}

// iterElem returns the item type of iterating over a value of type t.
func (a *Analyzer) iterElem(id ast.ID, t *Type) *Type {
	switch t.Kind {
	case Range:
		return t.Elem
	case Array, Slice:
		return t.Elem
	case Ref:
		switch inner := peelRefs(t); {
		case inner.Kind == Array || inner.Kind == Slice:
			return RefTo(inner.Elem, t.Mut)
		case inner.Kind == Opaque && inner.Name == "Vec":
			return RefTo(inner.Arg(0), t.Mut)
		case inner.Kind == Opaque || inner.IsLenient():
			return UnknownType
		}
	case Opaque:
		switch t.Name {
		case "Vec", "Iter", "Chars", "Bytes", "SplitWhitespace", "Option":
			return t.Arg(0)
		}
		return UnknownType
	case Unknown, Param, Never:
		return UnknownType
	}
	a.errorf(diag.TypeMismatch, a.span(id), "`%v` is not an iterator", t)
	return UnknownType
}

// findFrame returns the loop or labeled block a break or continue targets.
func (a *Analyzer) findFrame(label, keyword string, id ast.ID) *loopFrame {
	if a.fn != nil {
		for i := len(a.fn.loops) - 1; i >= 0; i-- {
			f := a.fn.loops[i]
			if label == "" && f.kind != loopFrameBlock || label != "" && f.label == label {
				return f
			}
		}
	}
	if label != "" {
		a.errorf(diag.InvalidControlFlow, a.span(id), "use of undeclared label `'%s`", label)
		return nil
	}
	a.errorf(diag.InvalidControlFlow, a.span(id), "`%s` outside of a loop", keyword)
	return nil
}

func (a *Analyzer) breakExpr(id ast.ID, n *ast.Break) *Type {
	frame := a.findFrame(n.Label, "break", id)
	value := UnitType
	if n.Value.Valid() {
		value = a.checkExpr(n.Value)
	}
	if frame == nil {
		return NeverType
	}
	frame.broken = true
	if n.Value.Valid() && (frame.kind == loopFrameWhile || frame.kind == loopFrameFor) {
		a.errorf(diag.InvalidControlFlow, a.span(id), "`break` with value from a `%s` loop", frameKeyword(frame.kind))
		return NeverType
	}
	if frame.kind == loopFrameLoop || frame.kind == loopFrameBlock {
		if frame.value == nil {
			frame.value = value
		} else if j := Join(frame.value, value); j != nil {
			frame.value = j
		} else {
			a.errorf(diag.TypeMismatch, a.span(id), "mismatched types: expected `%v`, found `%v`", frame.value, value)
		}
	}
	return NeverType
}

func frameKeyword(k frameKind) string {
	switch k {
	case loopFrameWhile:
		return "while"
	case loopFrameFor:
		return "for"
	case loopFrameLoop:
		return "loop"
	default:
		return "block"
	}
}

func (a *Analyzer) continueExpr(id ast.ID, n *ast.Continue) *Type {
	frame := a.findFrame(n.Label, "continue", id)
	if frame != nil && frame.kind == loopFrameBlock {
		a.errorf(diag.InvalidControlFlow, a.span(id), "`continue` pointing to a labeled block")
	}
	return NeverType
}

func (a *Analyzer) returnExpr(id ast.ID, n *ast.Return) *Type {
	if a.fn == nil || a.fn.konst {
		if n.Value.Valid() {
			a.checkExpr(n.Value)
		}
		a.errorf(diag.InvalidControlFlow, a.span(id), "return statement outside of function body")
		return NeverType
	}
	if n.Value.Valid() {
		got := a.checkExpr(n.Value)
		a.coerce(n.Value, a.fn.ret, got)
		return NeverType
	}
	if !Assignable(a.fn.ret, UnitType) {
		a.errorf(diag.TypeMismatch, a.span(id), "`return;` in a function whose return type is not `()`: expected `%v`", a.fn.ret)
	}
	return NeverType
}

func (a *Analyzer) closure(n *ast.Closure) *Type {
	defer a.enter(BlockScope)()
	b := newBinder(true)
	b.param = true
	params := make([]*Type, len(n.Params))
	for i, p := range n.Params {
		params[i] = UnknownType
		if p.Type.Valid() {
			params[i] = a.resolveType(p.Type)
		}
		a.bindPattern(p.Pattern, params[i], b)
	}
	ret := UnknownType
	if n.Ret.Valid() {
		ret = a.resolveType(n.Ret)
	}
	saved := a.fn
	a.fn = &fnContext{name: "closure", ret: ret, closure: true, main: saved != nil && saved.main}
	body := a.checkExpr(n.Body)
	a.fn = saved
	if n.Ret.Valid() {
		a.coerce(n.Body, ret, body)
	} else {
		ret = body
	}
	return FnOf(params, ret)
}
