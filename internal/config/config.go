// Package config loads the YAML configuration of the callgraph command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-callgraph-precision/internal/analysis"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full configuration. Zero fields in a loaded file keep
// their defaults.
type Config struct {
	// Dir is the root of the Go module to analyse.
	Dir string `yaml:"dir"`
	// Module overrides the module path read from Dir/go.mod.
	Module string `yaml:"module"`
	// Patterns are the package patterns to load.
	Patterns []string `yaml:"patterns"`
	// Algorithms to run, by name.
	Algorithms []string `yaml:"algorithms"`
	// EntryPoints are pkgpath.Func or pkgpath.Type.Method names. Empty
	// means init and main of every main package.
	EntryPoints []string `yaml:"entryPoints"`
	// Scope lists the package path prefixes whose calls are expanded.
	// Empty means the module path.
	Scope       []string `yaml:"scope"`
	LogLevel    string   `yaml:"logLevel"`
	MetricsFile string   `yaml:"metricsFile"`
	Store       Store    `yaml:"store"`
	Neo4j       Neo4j    `yaml:"neo4j"`
}

// Store configures the run store.
type Store struct {
	Path string `yaml:"path"`
}

// Neo4j configures the graph export.
type Neo4j struct {
	URI  string `yaml:"uri"`
	User string `yaml:"user"`
	// Password may reference environment variables, e.g. ${NEO4J_PASSWORD}.
	Password  string `yaml:"password"`
	Clean     bool   `yaml:"clean"`
	BatchSize int    `yaml:"batchSize"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Dir:        ".",
		Patterns:   []string{"./..."},
		Algorithms: []string{"CHA", "RTA", "VTA"},
		LogLevel:   "info",
		Store:      Store{Path: ".callgraph"},
		Neo4j: Neo4j{
			URI:       "bolt://localhost:7687",
			User:      "neo4j",
			BatchSize: 500,
		},
	}
}

// Load reads path and merges it onto Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Neo4j.Password = os.ExpandEnv(cfg.Neo4j.Password)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: dir must not be empty", ErrInvalidConfig)
	}
	if len(c.Algorithms) == 0 {
		return fmt.Errorf("%w: at least one algorithm is required", ErrInvalidConfig)
	}
	if _, err := c.ParsedAlgorithms(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Neo4j.BatchSize <= 0 {
		return fmt.Errorf("%w: neo4j.batchSize must be positive", ErrInvalidConfig)
	}
	return nil
}

// ParsedAlgorithms returns Algorithms without duplicates, in file order.
func (c *Config) ParsedAlgorithms() ([]analysis.Algorithm, error) {
	var out []analysis.Algorithm
	seen := make(map[analysis.Algorithm]bool)
	for _, name := range c.Algorithms {
		alg, err := analysis.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		if !seen[alg] {
			seen[alg] = true
			out = append(out, alg)
		}
	}
	return out, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
