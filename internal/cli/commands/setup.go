// Package commands implements the steplint subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steplint-dev/steplint/internal/cli/config"
	"github.com/steplint-dev/steplint/internal/cli/output"
	"github.com/steplint-dev/steplint/pkg/analyzer"
	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/lint/rules"
	"github.com/steplint-dev/steplint/pkg/schema"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's environment.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to defaults when
// no config has been loaded (e.g. in tests that call a command directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Paths:        []string{config.DefaultPath},
		OutputFormat: config.DefaultOutput,
	}
}

// newRegistry builds the frozen registry of built-in rules plus the schema
// validation rule.
func newRegistry() (*lint.Registry, error) {
	reg := lint.NewRegistry()
	if err := rules.RegisterBuiltin(reg); err != nil {
		return nil, err
	}
	if err := reg.Register(schema.Rule); err != nil {
		return nil, err
	}
	return reg.Freeze(), nil
}

// buildLintConfig merges project config and CLI flags into a lint.Config.
// CLI flags take precedence over the config file.
func buildLintConfig(cfg *config.Config, disable, only []string) *lint.Config {
	lintCfg := lint.NewConfig()

	if cfg != nil && cfg.Lint != nil {
		for _, id := range cfg.Lint.Disabled {
			lintCfg.Disable(strings.TrimSpace(id))
		}
		for _, id := range cfg.Lint.Enabled {
			lintCfg.Enable(strings.TrimSpace(id))
		}
		for id, sev := range cfg.Lint.Severity {
			if s, ok := lint.ParseSeverity(sev); ok {
				lintCfg.SetSeverity(id, s)
			}
		}
		for id, ruleOpts := range cfg.Lint.Rules {
			lintCfg.SetRuleOptions(id, ruleOpts)
		}
	}

	for _, id := range disable {
		lintCfg.Disable(strings.TrimSpace(id))
	}

	// --rule restricts the run to exactly the named rules
	for _, id := range only {
		lintCfg.Enable(strings.TrimSpace(id))
	}

	return lintCfg
}

// loadCatalog loads the module schema catalog named in the config, if any.
// Schema errors inside the catalog are non-fatal; a missing or unreadable
// file is.
func loadCatalog(cfg *config.Config, logger *slog.Logger) (*schema.Catalog, error) {
	if cfg == nil || cfg.SchemaFile == "" {
		return nil, nil
	}
	catalog, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema catalog: %w", err)
	}
	for _, se := range catalog.Errors() {
		logger.Warn("skipping unusable module schema", "module", se.Module, "reason", se.Msg)
	}
	return catalog, nil
}

// newAnalyzer wires the registry, lint config, and schema catalog into an
// analyzer using the context's settings.
func (c *CommandContext) newAnalyzer(lintCfg *lint.Config) (*analyzer.Analyzer, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(c.Cfg, c.Logger)
	if err != nil {
		return nil, err
	}
	return analyzer.New(analyzer.Options{
		Registry:     reg,
		Config:       lintCfg,
		Schemas:      catalog,
		Workers:      c.Cfg.Workers,
		MaxFixPasses: c.Cfg.MaxFixPasses,
		Logger:       c.Logger,
	})
}

// yamlExtensions are the file extensions treated as lintable input.
var yamlExtensions = map[string]bool{".yml": true, ".yaml": true}

// discoverFiles expands the given paths into the list of lintable files.
// Directories are walked recursively; explicit file arguments are always
// included regardless of extension. Exclude patterns match against the
// file's base name or any path segment.
func discoverFiles(paths, exclude []string) ([]analyzer.File, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var ordered []string
	seen := make(map[string]bool)
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			ordered = append(ordered, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if excluded(p, exclude) || strings.HasPrefix(d.Name(), ".") && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if yamlExtensions[filepath.Ext(p)] && !excluded(p, exclude) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	files := make([]analyzer.File, 0, len(ordered))
	for _, p := range ordered {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		files = append(files, analyzer.File{Path: p, Source: string(data)})
	}
	return files, nil
}

// excluded reports whether any exclude pattern matches the path's base name
// or one of its segments.
func excluded(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
		for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
			if ok, _ := filepath.Match(pat, seg); ok {
				return true
			}
		}
	}
	return false
}

// severityThreshold parses the --severity flag, defaulting to hint (report
// everything).
func severityThreshold(s string) lint.Severity {
	if t, ok := lint.ParseSeverity(s); ok {
		return t
	}
	return lint.SeverityHint
}

// filterBySeverity keeps findings at or above the threshold. Severity
// ordering puts errors lowest, so "at or above" compares <=.
func filterBySeverity(findings []lint.Finding, threshold lint.Severity) []lint.Finding {
	var out []lint.Finding
	for _, f := range findings {
		if f.Severity <= threshold {
			out = append(out, f)
		}
	}
	return out
}
