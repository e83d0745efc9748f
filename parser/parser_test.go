package parser_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/lexer"
	"github.com/takoeight0821/rustsub/parser"
	"github.com/takoeight0821/rustsub/token"
	"github.com/takoeight0821/rustsub/utils"
)

func parse(source string, script bool) (*ast.File, diag.List) {
	tokens, lexDiags := lexer.Lex(source)
	file, diags := parser.Parse(tokens, parser.Options{Script: script})
	return file, append(lexDiags, diags...)
}

func TestParseFromTestData(t *testing.T) {
	t.Parallel()
	testcases, err := utils.ReadTestFile("../testdata/testcase.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, testcase := range testcases {
		expected, ok := testcase.Expected["parser"]
		if !ok {
			continue
		}
		file, diags := parse(testcase.Input, true)
		if diags.HasErrors() {
			t.Errorf("%s: unexpected errors:\n%v", testcase.Label, diags)
			continue
		}
		if diff := cmp.Diff(strings.TrimSpace(expected), file.String()); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", testcase.Label, diff)
		}
	}
}

func BenchmarkFromTestData(b *testing.B) {
	testcases, err := utils.ReadTestFile("../testdata/testcase.yaml")
	if err != nil {
		b.Fatal(err)
	}

	for _, testcase := range testcases {
		tokens, _ := lexer.Lex(testcase.Input)
		b.Run(testcase.Label, func(b *testing.B) {
			for range b.N {
				parser.Parse(tokens, parser.Options{Script: true})
			}
		})
	}
}

func TestParseDoesNotModifyTokens(t *testing.T) {
	t.Parallel()

	tokens, _ := lexer.Lex("let m: Vec<Vec<i32>> = Vec::new();")
	before := make([]token.Token, len(tokens))
	copy(before, tokens)
	parser.Parse(tokens, parser.Options{Script: true})
	if diff := cmp.Diff(before, tokens); diff != "" {
		t.Errorf("tokens were modified (-before +after):\n%s", diff)
	}
}

func TestShiftInsideGenericArgument(t *testing.T) {
	t.Parallel()

	// The array length is an expression, so its `>>` is a shift; the `>`
	// after it closes the generic list.
	file, diags := parse("let a: Vec<[u8; 16 >> 2]> = Vec::new();", true)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors:\n%v", diags)
	}
	expected := "(fn main (params) (block (let a (: Vec<[u8; (>> 16 2)]>) (= (call Vec::new)))))"
	if diff := cmp.Diff(expected, file.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func itemNames(file *ast.File) []string {
	var names []string
	for _, id := range file.Items {
		switch n := file.Node(id).(type) {
		case *ast.Function:
			names = append(names, "fn "+n.Name.Name)
		case *ast.Struct:
			names = append(names, "struct "+n.Name.Name)
		case *ast.BadItem:
			names = append(names, "bad")
		}
	}
	return names
}

func TestRecoverAtItemBoundary(t *testing.T) {
	t.Parallel()

	source := `fn broken() {
    let x = ;
}

fn fine() {}

struct S { x: i32 }
`
	file, diags := parse(source, false)
	if !diags.HasErrors() {
		t.Fatal("expected a syntax error")
	}
	if diags.ErrorCount() != 1 {
		t.Errorf("expected exactly one error, got:\n%v", diags)
	}
	if diff := cmp.Diff([]string{"bad", "fn fine", "struct S"}, itemNames(file)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	if bad, ok := file.Node(file.Items[0]).(*ast.BadItem); !ok || bad.Name.Name != "broken" {
		t.Errorf("expected the broken item to keep its name, got %v", file.Node(file.Items[0]))
	}
}

func TestRecoverAfterUnclosedDelimiter(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		source   string
		expected []string
	}{
		{"fn a() { let x = (1; }\nfn b() {}\nstruct S { x: i32 }\n", []string{"bad", "fn b", "struct S"}},
		{"fn a() { foo(1, 2; }\nfn b() {}", []string{"bad", "fn b"}},
		{"fn a() { let v = [1, 2; }\nfn b() {}", []string{"bad", "fn b"}},
		{"fn a() { let x = (1;\nfn b() {}", []string{"bad", "fn b"}},
		{"fn a() { foo(1 }\nfn b() {}", []string{"bad", "fn b"}},
	}

	for _, testcase := range testcases {
		file, diags := parse(testcase.source, false)
		if diags.ErrorCount() != 1 || diags.Count(diag.UnbalancedDelimiter) != 1 {
			t.Errorf("%q: expected one unbalanced delimiter, got:\n%v", testcase.source, diags)
		}
		if diff := cmp.Diff(testcase.expected, itemNames(file)); diff != "" {
			t.Errorf("%q: items mismatch (-want +got):\n%s", testcase.source, diff)
		}
	}
}

func TestStrayClosingDelimiter(t *testing.T) {
	t.Parallel()

	file, diags := parse("}\nfn main() {}", false)
	if diags.Count(diag.UnbalancedDelimiter) != 1 {
		t.Errorf("expected one unbalanced delimiter, got:\n%v", diags)
	}
	if diff := cmp.Diff([]string{"fn main"}, itemNames(file)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestUnclosedDelimiterAtEOF(t *testing.T) {
	t.Parallel()

	_, diags := parse("fn main() {\n    let x = 1;\n", false)
	if diags.Count(diag.UnbalancedDelimiter) == 0 {
		t.Errorf("expected an unbalanced delimiter, got:\n%v", diags)
	}
}

func TestStatementsRequireScriptMode(t *testing.T) {
	t.Parallel()

	_, diags := parse("let x = 1;", false)
	if !diags.HasErrors() {
		t.Error("a top-level statement must be rejected outside script mode")
	}

	file, diags := parse("let x = 1;", true)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors:\n%v", diags)
	}
	main, ok := file.Node(file.Items[0]).(*ast.Function)
	if !ok || main.Name.Name != "main" || !main.Implicit {
		t.Errorf("expected an implicit main, got %s", file)
	}
}

func TestLexErrorsAreNotRepeated(t *testing.T) {
	t.Parallel()

	_, diags := parse("let x = 0b2;", true)
	if diags.ErrorCount() != 1 || diags[0].Phase != diag.LexPhase {
		t.Errorf("expected the lexer's error only, got:\n%v", diags)
	}
}

func TestSpansCoverSource(t *testing.T) {
	t.Parallel()

	source := "fn add(a: i32, b: i32) -> i32 { a + b }"
	file, diags := parse(source, false)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors:\n%v", diags)
	}
	span := file.Span(file.Items[0])
	if got := source[span.Offset:span.End()]; got != source {
		t.Errorf("function span covers %q", got)
	}
}
