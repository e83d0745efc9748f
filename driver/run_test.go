package driver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/rustsub/driver"
	"github.com/takoeight0821/rustsub/utils"
)

func fixtures(t *testing.T) []string {
	t.Helper()
	paths, err := utils.FindSourceFiles("../testdata/fixtures")
	if err != nil {
		t.Fatalf("failed to find fixtures: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no fixtures found")
	}
	return paths
}

func TestFixtureVerdicts(t *testing.T) {
	t.Parallel()

	paths := fixtures(t)
	units, err := driver.CheckFiles(context.Background(), paths, driver.DefaultOptions())
	if err != nil {
		t.Fatalf("CheckFiles: %v", err)
	}
	for _, unit := range units {
		verdict := utils.ReadVerdict(unit.Source)
		if verdict == utils.NoVerdict {
			t.Errorf("%s has no verdict", unit.Path)
			continue
		}
		if got := unit.Accepted(); got != (verdict == utils.Success) {
			t.Errorf("%s: expected %v, diagnostics:\n%v", unit.Path, verdict, unit.Diagnostics)
		}
	}
}

func TestCheckFilesKeepsOrder(t *testing.T) {
	t.Parallel()

	paths := fixtures(t)
	opts := driver.DefaultOptions()
	opts.Workers = 2
	units, err := driver.CheckFiles(context.Background(), paths, opts)
	if err != nil {
		t.Fatalf("CheckFiles: %v", err)
	}
	got := make([]string, len(units))
	for i, unit := range units {
		got[i] = unit.Path
	}
	if diff := cmp.Diff(paths, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckFilesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := driver.CheckFiles(context.Background(), []string{"../testdata/fixtures/does-not-exist.rs"}, driver.DefaultOptions())
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestCheckFilesCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.CheckFiles(ctx, fixtures(t), driver.DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSyntaxErrorsKeepAnalysis(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		label    string
		source   string
		expected string
	}{
		{
			"broken item",
			"fn broken() {\n    let x = ;\n}\nfn main() {\n    broken();\n    let y = undefined;\n}",
			"unexpected-token, undeclared-identifier",
		},
		{
			"broken top-level let",
			"let x = (1;\nlet y = x + undefined;",
			"unbalanced-delimiter, undeclared-identifier",
		},
		{
			"broken struct",
			"struct P { x: }\nfn make() -> P {\n    loop {}\n}\nfn main() {}",
			"unexpected-token",
		},
	}

	for _, testcase := range testcases {
		unit := driver.Check(testcase.source, driver.DefaultOptions())
		if unit.Annotated == nil {
			t.Errorf("%s: the semantic pass did not run", testcase.label)
		}
		if diff := cmp.Diff(testcase.expected, utils.Categories(unit.Diagnostics)); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s\n%v", testcase.label, diff, unit.Diagnostics)
		}
	}
}

type recorder struct {
	ran bool
}

func (*recorder) Name() string { return "recorder" }

func (r *recorder) Run(*driver.Unit) { r.ran = true }

func TestPassRunnerStopsOnError(t *testing.T) {
	t.Parallel()

	opts := driver.DefaultOptions()
	testcases := []struct {
		source string
		runs   bool
	}{
		{"let x = 1;", true},
		{"let x = y;", false},
	}
	for _, testcase := range testcases {
		rec := &recorder{}
		runner := driver.NewRunner(opts)
		runner.AddPass(rec)
		runner.Check("", testcase.source, opts)
		if rec.ran != testcase.runs {
			t.Errorf("%q: expected the later pass to run: %v", testcase.source, testcase.runs)
		}
	}
}

func TestUnitErrNamesPath(t *testing.T) {
	t.Parallel()

	opts := driver.DefaultOptions()
	unit := driver.NewRunner(opts).Check("bad.rs", "let x = y;", opts)
	err := unit.Err()
	if err == nil || !strings.HasPrefix(err.Error(), "bad.rs:") {
		t.Errorf("expected an error naming bad.rs, got %v", err)
	}

	if err := driver.Check("let x = 1;", opts).Err(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
