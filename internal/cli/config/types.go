// Package config provides configuration management for the steplint CLI.
package config

// LintConfig holds rule configuration from the project config file.
type LintConfig struct {
	Disabled []string                  `koanf:"disabled"`
	Enabled  []string                  `koanf:"enabled"`
	Severity map[string]string         `koanf:"severity"`
	Rules    map[string]map[string]any `koanf:"rules"`
}

// Config holds all CLI configuration options.
type Config struct {
	Paths        []string    `koanf:"paths"`
	Exclude      []string    `koanf:"exclude"`
	SchemaFile   string      `koanf:"schema_file"`
	Workers      int         `koanf:"workers"`
	MaxFixPasses int         `koanf:"max_fix_passes"`
	Verbose      bool        `koanf:"verbose"`
	OutputFormat string      `koanf:"output"`
	ProjectRoot  string      `koanf:"-"`
	Lint         *LintConfig `koanf:"lint"`
}

// Default configuration values.
const (
	DefaultOutput = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPath   = "."
)
