// Package config loads and validates loom.toml, the per-repository compiler
// configuration. A config names one or more projects; each project pairs a
// schema with document globs and an output directory, and may extend another
// project as its base.
package config

import "sort"

// Config represents the core loom configuration
type Config struct {
	// RequiredVersion optionally constrains which loom versions may run
	// this config, as a semver range (e.g. ">= 0.3, < 1.0").
	RequiredVersion string `mapstructure:"required_version"`

	Watch    WatchConfig         `mapstructure:"watch"`
	Projects map[string]*Project `mapstructure:"projects"`

	// Dir is the directory containing the config file. All relative paths
	// in the config resolve against it. Filled at load, never read from file.
	Dir string `mapstructure:"-"`
}

// Project configures one compilation unit: a schema, the documents compiled
// against it, and where artifacts land.
type Project struct {
	// Name is the project's key in the projects table. Filled at load.
	Name string `mapstructure:"-"`

	Schema     string   `mapstructure:"schema"`     // Path to the base SDL file
	Extensions []string `mapstructure:"extensions"` // Paths to project SDL extension files
	Documents  []string `mapstructure:"documents"`  // Doublestar globs selecting executable documents
	Output     string   `mapstructure:"output"`     // Directory artifacts are written into

	// Base names another project whose fragments this project may spread.
	// Empty for standalone projects.
	Base string `mapstructure:"base"`

	Rules   RulesConfig    `mapstructure:"rules"`
	Persist *PersistConfig `mapstructure:"persist"` // nil = operation text persistence disabled
}

// RulesConfig tunes the semantic validation rules applied after type checking.
type RulesConfig struct {
	// OperationSuffix requires operation names to end with their kind
	// (FooQuery, FooMutation, FooSubscription).
	OperationSuffix bool `mapstructure:"operation_suffix"`

	// FragmentPrefix requires fragment names to start with this prefix.
	// Empty disables the rule.
	FragmentPrefix string `mapstructure:"fragment_prefix"`

	// MaxDepth bounds selection nesting. 0 disables the rule.
	MaxDepth int `mapstructure:"max_depth"`
}

// PersistConfig configures where a project's operation texts are persisted
// during artifact generation. Presence of the section opts the project in.
type PersistConfig struct {
	Kind string `mapstructure:"kind"` // sqlite | remote | memory

	// sqlite
	Path string `mapstructure:"path"`

	// remote
	URL            string  `mapstructure:"url"`
	Token          string  `mapstructure:"token"`            // bearer token; prefer LOOM_PERSIST_TOKEN
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`  // per-request timeout (default: 10)
	RatePerSecond  float64 `mapstructure:"rate_per_second"`  // 0 = unlimited
}

// Persist store kinds
const (
	PersistKindSQLite = "sqlite"
	PersistKindRemote = "remote"
	PersistKindMemory = "memory"
)

// WatchConfig configures watch mode rebuild behavior.
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"` // Quiet period before a rebuild (default: 250)
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// ProjectNames returns the configured project names in sorted order.
func (c *Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for name := range c.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BaseOf returns the base project of p, or nil when p stands alone.
func (c *Config) BaseOf(p *Project) *Project {
	if p == nil || p.Base == "" {
		return nil
	}
	return c.Projects[p.Base]
}

// PersistEnabled reports whether the project opts into operation persistence.
func (p *Project) PersistEnabled() bool {
	return p != nil && p.Persist != nil
}
