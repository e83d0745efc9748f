// Package semantic resolves names and checks the types of a parsed unit.
package semantic

import (
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/token"
)

type Options struct {
	// MaxDerefDepth bounds auto-deref during method and field lookup.
	MaxDerefDepth int
	// RequirePartialEq rejects == and != on user types that neither derive
	// nor implement PartialEq.
	RequirePartialEq bool
}

func DefaultOptions() Options {
	return Options{MaxDerefDepth: 16, RequirePartialEq: true}
}

// Annotated is the analysis result. The tables are keyed by node ID; the
// syntax tree itself is never modified.
type Annotated struct {
	File *ast.File
	// Types holds the type of every checked expression and pattern.
	Types map[ast.ID]*Type
	// Symbols maps path expressions and binding patterns to their symbol.
	Symbols map[ast.ID]*Symbol
	// Methods maps method calls to the resolved method.
	Methods map[ast.ID]*Method
}

// TypeOf returns the recorded type of id, or Unknown.
func (a *Annotated) TypeOf(id ast.ID) *Type {
	if t, ok := a.Types[id]; ok {
		return t
	}
	return UnknownType
}

type Analyzer struct {
	opts  Options
	file  *ast.File
	out   *Annotated
	diags diag.List

	root  *Scope
	scope *Scope
	fn    *fnContext
	// self is the type Self stands for inside impl and trait bodies.
	self *Type

	sigs    map[ast.ID]*fnSig
	modules map[ast.ID]*Scope
	impls   map[ast.ID]*implInfo
	consts  map[ast.ID]*constState
	aliases map[ast.ID]*aliasState
	// primImpls holds methods from impl blocks on builtin types, keyed by
	// the type's printed form.
	primImpls map[string]map[string]*Method
}

type fnSig struct {
	params []*Type
	ret    *Type
	// generics is the scope holding the function's type parameters; the
	// body scope hangs below it.
	generics *Scope
}

type implInfo struct {
	self     *Type
	generics *Scope
	trait    string
}

type fnContext struct {
	name    string
	ret     *Type
	loops   []*loopFrame
	closure bool
	// konst is set while checking constant initializers.
	konst bool
	// main is set inside the program's main function and its closures.
	main bool
}

type frameKind int

const (
	loopFrameLoop frameKind = iota
	loopFrameWhile
	loopFrameFor
	loopFrameBlock
)

type loopFrame struct {
	label string
	kind  frameKind
	// broken is set once a break targets the frame.
	broken bool
	value  *Type
}

func NewAnalyzer(file *ast.File, opts Options) *Analyzer {
	if opts.MaxDerefDepth <= 0 {
		opts.MaxDerefDepth = DefaultOptions().MaxDerefDepth
	}
	return &Analyzer{
		opts: opts,
		file: file,
		out: &Annotated{
			File:    file,
			Types:   make(map[ast.ID]*Type),
			Symbols: make(map[ast.ID]*Symbol),
			Methods: make(map[ast.ID]*Method),
		},
		sigs:      make(map[ast.ID]*fnSig),
		modules:   make(map[ast.ID]*Scope),
		impls:     make(map[ast.ID]*implInfo),
		consts:    make(map[ast.ID]*constState),
		aliases:   make(map[ast.ID]*aliasState),
		primImpls: make(map[string]map[string]*Method),
	}
}

// Analyze checks file and returns the annotations with the diagnostics
// ordered by position. Every call starts from fresh state, so analyzing the
// same tree twice gives the same result.
func Analyze(file *ast.File, opts Options) (*Annotated, diag.List) {
	a := NewAnalyzer(file, opts)
	a.Run()
	return a.out, a.diags.Sorted()
}

// Run analyzes the file given to NewAnalyzer.
func (a *Analyzer) Run() {
	a.root = NewScope(universe(), ModuleScope)
	a.scope = a.root
	a.collect(a.file.Items)
	a.checkItems(a.file.Items)
}

func (a *Analyzer) Diagnostics() diag.List {
	return a.diags.Sorted()
}

func (a *Analyzer) Annotated() *Annotated {
	return a.out
}

func (a *Analyzer) errorf(category diag.Category, span token.Span, format string, args ...any) {
	a.diags.Errorf(diag.SemanticPhase, category, span, format, args...)
}

func (a *Analyzer) span(id ast.ID) token.Span {
	return a.file.Span(id)
}

func (a *Analyzer) record(id ast.ID, t *Type) *Type {
	a.out.Types[id] = t
	return t
}

// enter opens a child scope and returns the function that closes it.
func (a *Analyzer) enter(kind ScopeKind) func() {
	saved := a.scope
	a.scope = NewScope(saved, kind)
	return func() { a.scope = saved }
}

// within runs f with scope as the current scope.
func (a *Analyzer) within(scope *Scope, f func()) {
	saved := a.scope
	a.scope = scope
	defer func() { a.scope = saved }()
	f()
}

func (a *Analyzer) defineValue(sym *Symbol) {
	if err := a.scope.DefineValue(sym); err != nil {
		a.errorf(diag.DuplicateDeclaration, sym.Span, "%v", err)
	}
}

// declareExternal makes name resolve, in both namespaces where it is still
// free, to a symbol accepted without checks.
func (a *Analyzer) declareExternal(name string, span token.Span) {
	ext := &Symbol{Name: name, Kind: External, Type: UnknownType, Span: span, Initialized: true}
	if _, ok := a.scope.Local(name); !ok {
		a.scope.values[name] = ext
	}
	if _, err := a.scope.LookupType(name); err != nil {
		a.scope.types[name] = ext
	}
}

// defineType reports whether sym was added.
func (a *Analyzer) defineType(sym *Symbol) bool {
	if err := a.scope.DefineType(sym); err != nil {
		a.errorf(diag.DuplicateDeclaration, sym.Span, "%v", err)
		return false
	}
	return true
}
