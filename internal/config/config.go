// Package config adapts the teacher's yaml-driven Config pattern
// (internal/config/config.go: DefaultConfig/Load/Save/applyEnvOverrides
// over a gopkg.in/yaml.v3-marshaled struct) to this module's §6 compile-
// options tuple, cache/log directory settings, and environment-toggle
// resolution.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompileOptions is the compile-options tuple named throughout §4 and §6.
// All fields are plain bool so two CompileOptions compare equal with `==`
// iff every field matches, as §6's cache-key contract requires.
type CompileOptions struct {
	Minimal          bool `yaml:"minimal"`
	TypeCheck        bool `yaml:"type_check"`
	SymtabIROnly     bool `yaml:"symtab_ir_only"`
	NoCgen           bool `yaml:"no_cgen"`
	SkipNativeEngine bool `yaml:"skip_native_engine"`
}

// ScheduleName maps a tuple onto the pass.Schedule it implies. Kept as a
// string (rather than importing internal/pass.Name) so internal/config
// never depends on internal/pass; internal/pass has no lookup from this
// name back to a Schedule.
func (o CompileOptions) ScheduleName() string {
	switch {
	case o.SymtabIROnly:
		return "symtab-only"
	case o.Minimal:
		return "minimal-ir"
	case o.NoCgen && o.TypeCheck:
		return "type-check"
	case o.NoCgen:
		return "full-ir"
	default:
		return "codegen"
	}
}

// Config holds the compiler's top-level, file-backed configuration.
type Config struct {
	Compile      CompileOptions `yaml:"compile"`
	CacheDir     string         `yaml:"cache_dir"`
	LogDir       string         `yaml:"log_dir"`
	LogLevel     string         `yaml:"log_level"`
	UseRDParser  bool           `yaml:"use_rd_parser"`
	NoColor      bool           `yaml:"no_color"`
	NoEmoji      bool           `yaml:"no_emoji"`
}

// DefaultConfig returns the built-in defaults, applied before any manifest
// file or environment override is consulted.
func DefaultConfig() *Config {
	return &Config{
		Compile:     CompileOptions{},
		CacheDir:    "",
		LogDir:      "",
		LogLevel:    "info",
		UseRDParser: true,
	}
}

// Load reads a project manifest (conventionally jac.yaml, discovered via
// FindProjectRoot) and applies it over the defaults. A missing file is not
// an error — compiling a single file outside any project must still work
// — but a malformed one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg back out as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
