// Package driver runs the front end over compilation units.
package driver

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/lexer"
	"github.com/takoeight0821/rustsub/parser"
	"github.com/takoeight0821/rustsub/semantic"
	"github.com/takoeight0821/rustsub/token"
	"golang.org/x/sync/errgroup"
)

// Unit is one compilation unit and everything the front end derived from it.
// A unit is owned by the goroutine checking it.
type Unit struct {
	Path   string
	Source string
	Tokens []token.Token
	File   *ast.File
	// Annotated is nil unless the semantic pass ran.
	Annotated   *semantic.Annotated
	Diagnostics diag.List
}

// Accepted reports whether the unit produced no error diagnostics.
func (u *Unit) Accepted() bool {
	return !u.Diagnostics.HasErrors()
}

// Err returns the unit's errors joined, or nil for an accepted unit.
func (u *Unit) Err() error {
	err := u.Diagnostics.Err()
	if err == nil {
		return nil
	}
	if u.Path == "" {
		return err
	}
	return fmt.Errorf("%s:\n%w", u.Path, err)
}

type Pass interface {
	Name() string
	Run(unit *Unit)
}

type PassRunner struct {
	passes  []Pass
	verbose bool
}

func NewPassRunner() *PassRunner {
	return &PassRunner{}
}

// AddPass adds a pass to the end of the pass list.
func (r *PassRunner) AddPass(pass Pass) {
	r.passes = append(r.passes, pass)
}

// Run executes passes in order.
// A pass that reports errors stops the execution; later passes never see a
// unit an earlier pass rejected.
func (r *PassRunner) Run(unit *Unit) {
	for _, pass := range r.passes {
		before := len(unit.Diagnostics)
		errs := unit.Diagnostics.ErrorCount()
		pass.Run(unit)
		if r.verbose {
			log.Printf("%s: %s: %d diagnostics", unitName(unit), pass.Name(), len(unit.Diagnostics)-before)
		}
		if unit.Diagnostics.ErrorCount() > errs {
			return
		}
	}
}

func unitName(u *Unit) string {
	if u.Path == "" {
		return "<input>"
	}
	return u.Path
}

// AnalysisPass runs the semantic analyzer.
type AnalysisPass struct {
	Options semantic.Options
}

func (AnalysisPass) Name() string {
	return "semantic"
}

func (p AnalysisPass) Run(unit *Unit) {
	a := semantic.NewAnalyzer(unit.File, p.Options)
	a.Run()
	unit.Annotated = a.Annotated()
	unit.Diagnostics = append(unit.Diagnostics, a.Diagnostics()...)
}

type Options struct {
	// Script gathers top-level statements into an implicit main.
	Script   bool
	Semantic semantic.Options
	// Workers bounds the units checked at once by CheckFiles.
	Workers int
	Verbose bool
}

func DefaultOptions() Options {
	return Options{Script: true, Semantic: semantic.DefaultOptions(), Workers: 4}
}

// NewRunner returns a runner with the analysis passes for opts.
func NewRunner(opts Options) *PassRunner {
	r := NewPassRunner()
	r.verbose = opts.Verbose
	r.AddPass(AnalysisPass{Options: opts.Semantic})
	return r
}

// Check lexes and parses source, then executes passes in order.
// A unit with syntax errors is still analyzed: items that failed to parse
// are skipped and the names they declared resolve without checks.
func (r *PassRunner) Check(path, source string, opts Options) *Unit {
	unit := &Unit{Path: path, Source: source}
	tokens, lexDiags := lexer.Lex(source)
	unit.Tokens = tokens
	file, parseDiags := parser.Parse(tokens, parser.Options{Script: opts.Script})
	unit.File = file
	unit.Diagnostics = append(lexDiags, parseDiags...).Sorted()
	if r.verbose {
		log.Printf("%s: %d tokens, %d items, %d syntax diagnostics", unitName(unit), len(tokens), len(file.Items), len(unit.Diagnostics))
	}
	r.Run(unit)
	unit.Diagnostics = unit.Diagnostics.Sorted()
	return unit
}

// Check runs the whole front end over source.
func Check(source string, opts Options) *Unit {
	return NewRunner(opts).Check("", source, opts)
}

// CheckFiles checks every file in parallel, at most opts.Workers at a time,
// and returns the units in the order of paths. Cancelling ctx stops
// scheduling; units already running finish. The error reports unreadable
// files and cancellation, not rejected units.
func CheckFiles(ctx context.Context, paths []string, opts Options) ([]*Unit, error) {
	units := make([]*Unit, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			source, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if opts.Verbose {
				log.Printf("checking %s", path)
			}
			units[i] = NewRunner(opts).Check(path, string(source), opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return units, err
	}
	return units, ctx.Err()
}
