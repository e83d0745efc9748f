package config_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/takoeight0821/rustsub/config"
)

func TestParseKeepsDefaults(t *testing.T) {
	t.Parallel()
	got, err := config.Parse([]byte("workers: 8\nrequire_partial_eq: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := config.Default()
	want.Workers = 8
	want.RequirePartialEq = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()
	got, err := config.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Default(), got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"workers: 0\n", "max_deref_depth: -1\n", "workers: [1\n"} {
		if _, err := config.Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}
