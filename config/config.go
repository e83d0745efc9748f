// Package config loads user settings for the rustsub command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const appName = "rustsub"

type Config struct {
	// Workers bounds the files checked in parallel.
	Workers       int `yaml:"workers"`
	MaxDerefDepth int `yaml:"max_deref_depth"`
	// RequirePartialEq rejects == on user types without PartialEq.
	RequirePartialEq bool `yaml:"require_partial_eq"`
	// ScriptMode accepts statements at the top level of a file.
	ScriptMode  bool   `yaml:"script_mode"`
	Color       bool   `yaml:"color"`
	HistoryFile string `yaml:"history_file"`
}

func Default() Config {
	return Config{
		Workers:          4,
		MaxDerefDepth:    16,
		RequirePartialEq: true,
		ScriptMode:       true,
		HistoryFile:      filepath.Join(xdg.DataHome, appName, "history"),
	}
}

// Path is the config file location under the XDG config directory.
func Path() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load reads the config file. A missing file yields the defaults.
func Load() (Config, error) {
	data, err := os.ReadFile(Path())
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so omitted keys keep their default.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Default(), fmt.Errorf("config: %w", err)
	}
	if c.Workers <= 0 {
		return Default(), fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.MaxDerefDepth <= 0 {
		return Default(), fmt.Errorf("config: max_deref_depth must be positive, got %d", c.MaxDerefDepth)
	}
	return c, nil
}
