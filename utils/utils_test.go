package utils_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/rustsub/utils"
)

func TestReadVerdict(t *testing.T) {
	t.Parallel()
	cases := []struct {
		source string
		want   utils.Verdict
	}{
		{"/*\nTest Package: Semantic-1\nTest Target: basic\nVerdict: Success\n*/\nfn main() {}", utils.Success},
		{"/*\nVerdict: Fail\nComment: x is immutable\n*/\n", utils.Fail},
		{"fn main() {}\n/* Verdict: Fail */", utils.NoVerdict},
		{"/* Verdict: Maybe */", utils.NoVerdict},
		{"/* unterminated", utils.NoVerdict},
	}
	for _, c := range cases {
		if got := utils.ReadVerdict(c.source); got != c.want {
			t.Errorf("ReadVerdict(%q) = %v, want %v", c.source, got, c.want)
		}
	}
}

func TestReadTestDataSkipsDisabled(t *testing.T) {
	t.Parallel()
	data, err := utils.ReadTestData([]byte(`
- label: enabled
  enable: true
  input: "fn main() {}"
  expected:
    semantic: ok
- label: disabled
  enable: false
  input: "fn"
`))
	if err != nil {
		t.Fatal(err)
	}
	want := []utils.TestData{{Label: "enabled", Enable: true, Input: "fn main() {}", Expected: map[string]string{"semantic": "ok"}}}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("ReadTestData mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTestDataRejectsBadTables(t *testing.T) {
	t.Parallel()
	for _, table := range []string{
		"- label: [unclosed",
		"- label: no input\n  enable: true\n",
		"- input: no label\n  enable: true\n",
	} {
		if _, err := utils.ReadTestData([]byte(table)); err == nil {
			t.Errorf("expected an error for %q", table)
		}
	}
}

func TestReadTestFile(t *testing.T) {
	t.Parallel()
	data, err := utils.ReadTestFile("../testdata/testcase.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("no enabled test cases")
	}
	if _, err := utils.ReadTestFile("../testdata/missing.yaml"); err == nil {
		t.Error("expected an error for a missing table")
	}
}
