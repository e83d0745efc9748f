package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/config"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/driver"
	"github.com/takoeight0821/rustsub/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	const (
		interactiveUsage = "start an interactive prompt"
		dumpUsage        = "print `tokens`, `ast` or `types` instead of checking"
	)
	var (
		interactive bool
		dump        string
		verdict     bool
		noScript    bool
	)
	flag.BoolVar(&interactive, "interactive", false, interactiveUsage)
	flag.BoolVar(&interactive, "i", false, interactiveUsage+" (shorthand)")
	flag.StringVar(&dump, "dump", "", dumpUsage)
	flag.IntVar(&cfg.Workers, "j", cfg.Workers, "number of files checked in parallel")
	flag.BoolVar(&cfg.RequirePartialEq, "strict-eq", cfg.RequirePartialEq, "reject == on types without PartialEq")
	flag.BoolVar(&verdict, "verdict", false, "compare each result with the Verdict header of the file")
	flag.BoolVar(&noScript, "no-script", !cfg.ScriptMode, "reject statements at the top level")
	verbose := flag.Bool("v", false, "log progress to stderr")
	flag.Parse()

	opts := driver.DefaultOptions()
	opts.Script = !noScript
	opts.Workers = cfg.Workers
	opts.Verbose = *verbose
	opts.Semantic.MaxDerefDepth = cfg.MaxDerefDepth
	opts.Semantic.RequirePartialEq = cfg.RequirePartialEq
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	if interactive || flag.NArg() == 0 {
		if err := RunPrompt(cfg, opts); err != nil && err != io.EOF && err != liner.ErrPromptAborted {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	paths, err := expandPaths(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ok, err := RunFiles(ctx, paths, opts, cfg, dump, verdict)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !ok {
		os.Exit(1)
	}
}

// expandPaths replaces directories by the source files below them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := utils.FindSourceFiles(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

// RunFiles checks paths and reports every unit. It returns false when a
// unit is rejected, or, with verdict set, when a unit disagrees with its
// Verdict header.
func RunFiles(ctx context.Context, paths []string, opts driver.Options, cfg config.Config, dump string, verdict bool) (bool, error) {
	units, err := driver.CheckFiles(ctx, paths, opts)
	if err != nil {
		return false, err
	}
	ok := true
	for _, unit := range units {
		if dump != "" {
			if err := Dump(os.Stdout, unit, dump); err != nil {
				return false, err
			}
			continue
		}
		printDiagnostics(os.Stderr, unit.Path, unit.Diagnostics, cfg.Color)
		if !verdict {
			ok = ok && unit.Accepted()
			continue
		}
		want := utils.ReadVerdict(unit.Source)
		got := utils.Fail
		if unit.Accepted() {
			got = utils.Success
		}
		if want != utils.NoVerdict && want != got {
			ok = false
			fmt.Fprintf(os.Stderr, "%s: verdict %v, got %v\n", unit.Path, want, got)
		}
	}
	return ok, nil
}

// Dump prints the tokens or the syntax tree of unit.
func Dump(w io.Writer, unit *driver.Unit, what string) error {
	switch what {
	case "tokens":
		for _, tok := range unit.Tokens {
			fmt.Fprintln(w, tok)
		}
	case "ast":
		fmt.Fprintln(w, unit.File)
	case "types":
		if unit.Annotated == nil {
			return errors.New("no type information: the unit has syntax errors")
		}
		for _, item := range unit.File.Items {
			unit.File.Walk(item, func(id ast.ID, n ast.Node) bool {
				if _, ok := n.(ast.Expr); !ok {
					return true
				}
				if t, ok := unit.Annotated.Types[id]; ok {
					fmt.Fprintf(w, "%v\t%s\t%v\n", n.Pos(), unit.File.Print(id), t)
				}
				return true
			})
		}
	default:
		return fmt.Errorf("unknown dump %q, want tokens, ast or types", what)
	}
	return nil
}

func printDiagnostics(w io.Writer, path string, diags diag.List, color bool) {
	for _, d := range diags {
		severity := d.Severity.String()
		if color && d.Severity == diag.Error {
			severity = "\x1b[31m" + severity + "\x1b[0m"
		}
		prefix := d.Span.String()
		if path != "" {
			prefix = path + ":" + prefix
		}
		fmt.Fprintf(w, "%s: %s[%s]: %s: %s\n", prefix, severity, d.Category, d.Phase, d.Message)
	}
}

func RunPrompt(cfg config.Config, opts driver.Options) error {
	history := cfg.HistoryFile
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer func() {
		if err := os.MkdirAll(filepath.Dir(history), os.ModePerm); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if f, err := os.Create(history); err == nil {
			defer f.Close()
			if _, err := line.WriteHistory(f); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		line.Close()
	}()

	if f, err := os.Open(history); err == nil {
		defer f.Close()
		if _, err := line.ReadHistory(f); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	// Lines are checked as script units; `:tokens`, `:ast` and `:types`
	// print the unit as well.
	opts.Script = true
	r := driver.NewRunner(opts)
	for {
		input, err := line.Prompt("> ")
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		dump := ""
		for _, cmd := range []string{"tokens", "ast", "types"} {
			if rest, ok := strings.CutPrefix(input, ":"+cmd+" "); ok {
				dump, input = cmd, rest
			}
		}
		unit := r.Check("", input, opts)
		if dump != "" {
			if err := Dump(os.Stdout, unit, dump); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
		if unit.Accepted() {
			fmt.Println("ok")
			continue
		}
		printDiagnostics(os.Stderr, "", unit.Diagnostics, cfg.Color)
	}
}
