// Package utils holds helpers for table-driven and fixture tests.
package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/takoeight0821/rustsub/diag"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// TestData is one entry of a yaml test table. Expected maps a stage name
// (parser, semantic) to the output that stage must produce.
type TestData struct {
	Label    string
	Enable   bool
	Input    string
	Expected map[string]string
}

// ReadTestData decodes a test table and drops the disabled entries.
func ReadTestData(s []byte) ([]TestData, error) {
	var data []TestData
	if err := yaml.Unmarshal(s, &data); err != nil {
		return nil, fmt.Errorf("test table: %w", err)
	}
	for i, d := range data {
		if d.Label == "" || d.Input == "" {
			return nil, fmt.Errorf("test table: entry %d needs a label and an input", i)
		}
	}
	return slices.DeleteFunc(data, func(d TestData) bool { return !d.Enable }), nil
}

// ReadTestFile reads the test table at path.
func ReadTestFile(path string) ([]TestData, error) {
	s, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := ReadTestData(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// FindSourceFiles lists the .rs files under dir in lexical order.
func FindSourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".rs" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

type Verdict int

const (
	NoVerdict Verdict = iota
	Success
	Fail
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "Success"
	case Fail:
		return "Fail"
	default:
		return "none"
	}
}

// ReadVerdict finds the `Verdict:` line of the block comment that opens a
// fixture.
func ReadVerdict(source string) Verdict {
	text := strings.TrimSpace(source)
	if !strings.HasPrefix(text, "/*") {
		return NoVerdict
	}
	end := strings.Index(text, "*/")
	if end < 0 {
		return NoVerdict
	}
	for _, line := range strings.Split(text[2:end], "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "Verdict:")
		if !ok {
			continue
		}
		switch strings.TrimSpace(value) {
		case "Success":
			return Success
		case "Fail":
			return Fail
		}
	}
	return NoVerdict
}

// Categories summarizes the error categories of l in position order, each
// named once, or "ok" when l holds no errors.
func Categories(l diag.List) string {
	var names []string
	seen := make(map[diag.Category]bool)
	for _, d := range l.Sorted() {
		if d.Severity != diag.Error || seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		names = append(names, string(d.Category))
	}
	if len(names) == 0 {
		return "ok"
	}
	return strings.Join(names, ", ")
}
