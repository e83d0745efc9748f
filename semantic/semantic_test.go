package semantic_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/rustsub/ast"
	"github.com/takoeight0821/rustsub/diag"
	"github.com/takoeight0821/rustsub/driver"
	"github.com/takoeight0821/rustsub/lexer"
	"github.com/takoeight0821/rustsub/parser"
	"github.com/takoeight0821/rustsub/semantic"
	"github.com/takoeight0821/rustsub/utils"
)

func check(source string) *driver.Unit {
	return driver.Check(source, driver.DefaultOptions())
}

type testcase struct {
	label    string
	input    string
	expected string
}

func runTable(t *testing.T, testcases []testcase) {
	t.Helper()
	for _, testcase := range testcases {
		unit := check(testcase.input)
		if diff := cmp.Diff(testcase.expected, utils.Categories(unit.Diagnostics)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s\n%v", testcase.label, diff, unit.Diagnostics)
		}
	}
}

func TestAnalyzeFromTestData(t *testing.T) {
	t.Parallel()
	table, err := utils.ReadTestFile("../testdata/testcase.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var testcases []testcase
	for _, data := range table {
		if expected, ok := data.Expected["semantic"]; ok {
			testcases = append(testcases, testcase{data.Label, data.Input, expected})
		}
	}
	runTable(t, testcases)
}

// methodCalls returns the method call nodes of file in source order.
func methodCalls(file *ast.File) []ast.ID {
	var ids []ast.ID
	for _, item := range file.Items {
		file.Walk(item, func(id ast.ID, n ast.Node) bool {
			if _, ok := n.(*ast.MethodCall); ok {
				ids = append(ids, id)
			}
			return true
		})
	}
	return ids
}

func TestAutoDerefResolvesSameMethod(t *testing.T) {
	t.Parallel()

	unit := check(`let s = String::from("hi");
let r3 = &&&s;
let a = s.len();
let b = r3.len();
let c = (&s).len();
`)
	if !unit.Accepted() {
		t.Fatalf("unexpected errors:\n%v", unit.Diagnostics)
	}
	calls := methodCalls(unit.File)
	if len(calls) != 3 {
		t.Fatalf("expected 3 method calls, got %d", len(calls))
	}
	first := unit.Annotated.Methods[calls[0]]
	if first == nil {
		t.Fatal("s.len() was not resolved")
	}
	for _, id := range calls[1:] {
		if unit.Annotated.Methods[id] != first {
			t.Errorf("%s resolved to a different method", unit.File.Print(id))
		}
	}
}

func TestDerefDepthIsBounded(t *testing.T) {
	t.Parallel()

	source := `let s = String::from("hi");
let r = &&&s;
let n = r.len();
`
	opts := driver.DefaultOptions()
	opts.Semantic.MaxDerefDepth = 1
	unit := driver.Check(source, opts)
	if unit.Diagnostics.Count(diag.UnresolvedMethod) != 1 {
		t.Errorf("expected the lookup to give up, got:\n%v", unit.Diagnostics)
	}
}

func TestDuplicateReportedOnce(t *testing.T) {
	t.Parallel()

	for _, source := range []string{
		"struct A { x: i32 }\nstruct A { y: i32 }\nfn main() {}",
		"fn f() {}\nfn f() {}\nfn main() {}",
		"enum E { X }\nstruct E;\nfn main() {}",
		"struct Foo;\nstruct Foo;\nfn main() {}",
		"struct Foo(i32);\nstruct Foo(i32);\nfn main() {}",
		"fn Foo() {}\nstruct Foo;\nfn main() {}",
	} {
		unit := check(source)
		if n := unit.Diagnostics.Count(diag.DuplicateDeclaration); n != 1 {
			t.Errorf("%q: expected one duplicate, got %d:\n%v", source, n, unit.Diagnostics)
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	t.Parallel()

	source := `struct P { x: i32 }
fn main() {
    let p = P { x: 1 };
    p.x = 2;
    let q = undefined;
}
`
	tokens, _ := lexer.Lex(source)
	file, _ := parser.Parse(tokens, parser.Options{Script: true})
	first, firstDiags := semantic.Analyze(file, semantic.DefaultOptions())
	second, secondDiags := semantic.Analyze(file, semantic.DefaultOptions())
	if diff := cmp.Diff(firstDiags, secondDiags); diff != "" {
		t.Errorf("diagnostics differ between runs (-first +second):\n%s", diff)
	}
	if len(first.Types) != len(second.Types) || len(first.Symbols) != len(second.Symbols) {
		t.Error("annotations differ between runs")
	}
	if len(firstDiags) != 2 {
		t.Errorf("expected two diagnostics, got:\n%v", firstDiags)
	}
}

func TestMutability(t *testing.T) {
	t.Parallel()

	runTable(t, []testcase{
		{"push on immutable vec", "let v = vec![1];\nv.push(2);", "mutability"},
		{"push through shared ref", "let mut v = vec![1];\nlet r = &v;\nr.push(2);", "mutability"},
		{"push through mut ref", "let mut v = vec![1];\nlet r = &mut v;\nr.push(2);", "ok"},
		{"field of immutable struct", "struct P { x: i32 }\nlet p = P { x: 1 };\np.x = 2;", "mutability"},
		{"field of mutable struct", "struct P { x: i32 }\nlet mut p = P { x: 1 };\np.x = 2;", "ok"},
		{"deferred initialization", "let x;\nx = 1;", "ok"},
		{"mut borrow of immutable", "let a = 1;\nlet r = &mut a;", "mutability"},
		{"assign through mut ref param", "fn bump(p: &mut i32) {\n    *p += 1;\n}\nlet mut a = 1;\nbump(&mut a);", "ok"},
		{"assign through shared ref param", "fn bump(p: &i32) {\n    *p += 1;\n}", "mutability"},
		{"self by shared ref", "struct C { n: i32 }\nimpl C {\n    fn reset(&self) {\n        self.n = 0;\n    }\n}", "mutability"},
		{"self by mut ref", "struct C { n: i32 }\nimpl C {\n    fn reset(&mut self) {\n        self.n = 0;\n    }\n}", "ok"},
	})
}

func TestControlFlow(t *testing.T) {
	t.Parallel()

	runTable(t, []testcase{
		{"continue outside loop", "continue;", "invalid-control-flow"},
		{"undeclared label", "loop {\n    break 'nowhere;\n}", "invalid-control-flow"},
		{"break value from loop", "let v: i32 = loop {\n    break 5;\n};", "ok"},
		{"break value from while", "while true {\n    break 1;\n}", "invalid-control-flow"},
		{"return from match arm", "fn f(n: i32) -> i32 {\n    match n {\n        0 => return 1,\n        _ => n,\n    }\n}", "ok"},
		{"diverging body", "fn f() -> i32 {\n    loop {}\n}", "ok"},
		{"wrong tail type", "fn f() -> i32 {\n    true\n}", "type-mismatch"},
	})
}

func TestExit(t *testing.T) {
	t.Parallel()

	runTable(t, []testcase{
		{"exit last in main", "fn main() {\n    println!(\"bye\");\n    exit(0);\n}", "ok"},
		{"exit before other statements", "fn main() {\n    exit(0);\n    println!(\"bye\");\n}", "invalid-control-flow"},
		{"exit outside main", "fn helper() {\n    exit(1);\n}\nfn main() {\n    helper();\n}", "invalid-control-flow"},
	})
}

func TestPartialEqIsConfigurable(t *testing.T) {
	t.Parallel()

	source := "struct P { x: i32 }\nlet a = P { x: 1 };\nlet b = P { x: 2 };\nlet same = a == b;"
	if got := utils.Categories(check(source).Diagnostics); got != "missing-partial-eq" {
		t.Errorf("expected missing-partial-eq, got %s", got)
	}

	opts := driver.DefaultOptions()
	opts.Semantic.RequirePartialEq = false
	if unit := driver.Check(source, opts); !unit.Accepted() {
		t.Errorf("expected acceptance, got:\n%v", unit.Diagnostics)
	}
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	runTable(t, []testcase{
		{"tuple arity", "let (a, b) = (1, 2, 3);", "arity-mismatch"},
		{"bound twice", "let (a, a) = (1, 2);", "duplicate-declaration"},
		{"rest in slice pattern", "let [first, .., last] = [1, 2, 3];\nlet s = first + last;", "ok"},
		{"option match", "let x = Some(3);\nlet y = match x {\n    Some(v) => v,\n    None => 0,\n};", "ok"},
		{"struct pattern missing field", "struct P { x: i32, y: i32 }\nlet p = P { x: 1, y: 2 };\nlet P { x } = p;", "arity-mismatch"},
		{"struct pattern with rest", "struct P { x: i32, y: i32 }\nlet p = P { x: 1, y: 2 };\nlet P { x, .. } = p;", "ok"},
		{"enum variant pattern", "enum Op { Add(i32), Neg }\nlet o = Op::Add(1);\nlet n = match o {\n    Op::Add(v) => v,\n    Op::Neg => 0,\n};", "ok"},
		{"or pattern", "let n = 2;\nlet small = match n {\n    0 | 1 | 2 => true,\n    _ => false,\n};", "ok"},
	})
}

func TestConstEvaluation(t *testing.T) {
	t.Parallel()

	runTable(t, []testcase{
		{"computed length", "const A: usize = 2 * 3;\nlet a: [i32; A] = [0; 6];", "ok"},
		{"length mismatch", "let a: [i32; 2] = [1, 2, 3];", "type-mismatch"},
		{"constant overflow", "const B: u8 = 200 + 100;", "integer-overflow"},
		{"division by zero", "const C: usize = 1 / 0;\nlet a: [i32; C] = [];", "non-constant-length"},
	})
}

func TestExpressionTypes(t *testing.T) {
	t.Parallel()

	unit := check("let a = 1u8 + 2;")
	if !unit.Accepted() {
		t.Fatalf("unexpected errors:\n%v", unit.Diagnostics)
	}
	var found bool
	for _, item := range unit.File.Items {
		unit.File.Walk(item, func(id ast.ID, n ast.Node) bool {
			if _, ok := n.(*ast.Binary); ok {
				found = true
				if got := unit.Annotated.TypeOf(id).String(); got != "u8" {
					t.Errorf("expected u8, got %s", got)
				}
			}
			return true
		})
	}
	if !found {
		t.Error("no binary expression in the tree")
	}
}
