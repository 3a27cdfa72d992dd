// Package config loads the optional `--config FILE` YAML document
// (SPEC_FULL §A.3): non-functional tuning knobs, not language features —
// reader limits, heap sizing, and which backend the CLI defaults to absent
// an explicit `--backend` flag. Grounded on
// internal/ext/config.go's LoadConfig/ParseConfig/validate/setDefaults
// shape (itself funxy.yaml's loader), adapted from a dependency-binding
// manifest to a tuning-knob document.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clj-core/clj/internal/reader"
)

// Config is the top-level shape of a clj config YAML file.
type Config struct {
	Reader  ReaderConfig  `yaml:"reader"`
	Heap    HeapConfig    `yaml:"heap"`
	Backend BackendConfig `yaml:"backend"`
}

// ReaderConfig bounds internal/reader.Limits (spec §4.1).
type ReaderConfig struct {
	MaxDepth int `yaml:"max-depth"`
	// MaxSize bounds the total number of Forms one Reader will produce
	// before failing with errs.ReaderLimit; it maps onto
	// internal/reader.Limits.MaxForms.
	MaxSize int `yaml:"max-size"`
}

// HeapStrategy names a managed-heap collection strategy.
type HeapStrategy string

const (
	StrategyCopying   HeapStrategy = "copying"
	StrategyMarkSweep HeapStrategy = "marksweep"
)

// HeapConfig tunes internal/heap.Arena.
type HeapConfig struct {
	// SemispaceBytes maps onto heap.Arena.Threshold: the allocation count
	// between safe-point collections. Named for the semispace the spec's
	// copying-GC discipline is modeled on, though this arena allocates
	// Go-GC-backed values rather than raw bytes in an explicit region, so
	// the number is read as "allocations," not literal bytes.
	SemispaceBytes int `yaml:"semispace-bytes"`
	// Strategy must be "copying" — the only collection discipline
	// internal/heap.Arena implements (see its package doc: Go's own
	// collector is already non-moving, so there is no second, distinct
	// mark-sweep code path to select). "marksweep" is accepted as a
	// recognized value but rejected by Validate, rather than silently
	// falling back to copying, so a config author asking for it finds out
	// immediately instead of getting a heap that behaves differently from
	// what they configured.
	Strategy HeapStrategy `yaml:"strategy"`
}

// BackendConfig selects which backend.Backend the CLI uses absent an
// explicit `--backend` flag.
type BackendConfig struct {
	Default string `yaml:"default"` // "treewalk" or "vm"
}

// ReaderLimits converts the reader config section into the
// internal/reader.Limits the CLI's reader.NewWithLimits call expects.
func (c *Config) ReaderLimits() reader.Limits {
	return reader.Limits{MaxDepth: c.Reader.MaxDepth, MaxForms: c.Reader.MaxSize}
}

// Default returns the built-in configuration the CLI uses when no
// --config file is given.
func Default() *Config {
	return &Config{
		Reader:  ReaderConfig{MaxDepth: 512, MaxSize: 1_000_000},
		Heap:    HeapConfig{SemispaceBytes: 4096, Strategy: StrategyCopying},
		Backend: BackendConfig{Default: "treewalk"},
	}
}

// Load reads and parses a config YAML file, filling in Default()'s values
// for any field the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses config YAML content from bytes. path is used only in error
// messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for semantic errors a zero-value YAML
// field (an empty file, or one that sets only a subset of keys) should not
// trigger — Parse always starts from Default() first, so Validate only
// needs to catch genuinely bad explicit values.
func (c *Config) Validate() error {
	if c.Reader.MaxDepth <= 0 {
		return fmt.Errorf("reader.max-depth must be positive, got %d", c.Reader.MaxDepth)
	}
	if c.Reader.MaxSize <= 0 {
		return fmt.Errorf("reader.max-size must be positive, got %d", c.Reader.MaxSize)
	}
	if c.Heap.SemispaceBytes <= 0 {
		return fmt.Errorf("heap.semispace-bytes must be positive, got %d", c.Heap.SemispaceBytes)
	}
	switch c.Heap.Strategy {
	case StrategyCopying:
		// implemented
	case StrategyMarkSweep:
		return fmt.Errorf("heap.strategy: marksweep is not implemented, only %q is", StrategyCopying)
	default:
		return fmt.Errorf("heap.strategy: unrecognized value %q", c.Heap.Strategy)
	}
	switch c.Backend.Default {
	case "treewalk", "vm":
	default:
		return fmt.Errorf("backend.default: unrecognized value %q, want \"treewalk\" or \"vm\"", c.Backend.Default)
	}
	return nil
}
