package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/steplint-dev/steplint/internal/cli/output"
	"github.com/steplint-dev/steplint/pkg/analyzer"
	"github.com/steplint-dev/steplint/pkg/lint"
)

// LintOptions holds options for the lint command.
type LintOptions struct {
	Paths    []string // Files or directories to lint
	Format   string   // Output format: text, markdown, json
	Disable  []string // Rule IDs to disable
	Rules    []string // Run only specific rules
	Severity string   // Minimum severity: error, warning, info, hint
	Watch    bool     // Re-lint on file changes
}

// ErrFindings is returned when the run produced lint findings; the caller
// maps it to the findings exit code.
var ErrFindings = fmt.Errorf("lint findings reported")

// ErrRunFailed is returned when the engine itself failed on some input.
var ErrRunFailed = fmt.Errorf("lint run failed")

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [path...]",
		Short: "Run lint rules on task files",
		Long: `Analyze playbooks and task files for potential issues.

Runs the built-in rules plus module schema validation against every
YAML file found under the given paths and reports any violations.
Rules can be configured in steplint.yaml.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint the current project
  steplint lint

  # Lint specific paths
  steplint lint playbooks/ roles/common/tasks/main.yml

  # Output as JSON
  steplint lint --format json

  # Disable specific rules
  steplint lint --disable fqcn,key-order

  # Only report errors (ignore warnings/hints)
  steplint lint --severity error

  # Re-lint whenever a file changes
  steplint lint --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Paths = args
			}
			return runLint(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs to disable")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Run only specific rules")
	cmd.Flags().StringVar(&opts.Severity, "severity", "hint", "Minimum severity: error, warning, info, hint")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-lint when files change")

	return cmd
}

func runLint(cmd *cobra.Command, opts *LintOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	paths := opts.Paths
	if len(paths) == 0 {
		paths = cmdCtx.Cfg.Paths
	}

	lintCfg := buildLintConfig(cmdCtx.Cfg, opts.Disable, opts.Rules)
	a, err := cmdCtx.newAnalyzer(lintCfg)
	if err != nil {
		return err
	}

	if opts.Watch {
		return watchLint(cmd, cmdCtx, a, r, paths, opts)
	}

	return lintOnce(cmd.Context(), cmdCtx, a, r, paths, opts)
}

func lintOnce(ctx context.Context, cmdCtx *CommandContext, a *analyzer.Analyzer, r *output.Renderer, paths []string, opts *LintOptions) error {
	files, err := discoverFiles(paths, cmdCtx.Cfg.Exclude)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("starting lint run", "files", len(files))

	report := a.Analyze(ctx, files)
	findings := filterBySeverity(report.Ordered(), severityThreshold(opts.Severity))
	renderFindings(r, report, findings, len(files))

	switch report.ExitCategory() {
	case analyzer.CategoryError:
		return ErrRunFailed
	case analyzer.CategoryFindings:
		if len(findings) > 0 {
			return ErrFindings
		}
	}
	return nil
}

// watchDebounce coalesces editor write bursts into one re-run.
const watchDebounce = 250 * time.Millisecond

func watchLint(cmd *cobra.Command, cmdCtx *CommandContext, a *analyzer.Analyzer, r *output.Renderer, paths []string, opts *LintOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range watchDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	run := func() {
		if err := lintOnce(cmd.Context(), cmdCtx, a, r, paths, opts); err != nil &&
			err != ErrFindings && err != ErrRunFailed {
			r.Errorf("lint run failed: %v", err)
		}
	}
	run()
	r.Println("")
	r.Println(r.Styles().Muted("Watching for changes... (Ctrl+C to stop)"))

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !yamlExtensions[filepath.Ext(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", "error", err)
		}
	}
}

// watchDirs expands lint paths to the directory set to watch: every
// directory under each path argument, or the file's directory for file
// arguments.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(filepath.Dir(p))
			continue
		}
		_ = filepath.WalkDir(p, func(sub string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				add(sub)
			}
			return nil
		})
	}
	return dirs
}

// lintJSONOutput is the JSON output shape for lint runs.
type lintJSONOutput struct {
	RunID     string            `json:"run_id"`
	Files     int               `json:"files_analyzed"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Summary   lintJSONSummary   `json:"summary"`
	Findings  []analyzer.Record `json:"findings"`
}

type lintJSONSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
	Hints    int `json:"hints"`
	Total    int `json:"total"`
}

func renderFindings(r *output.Renderer, report *analyzer.Report, findings []lint.Finding, fileCount int) {
	if r.EffectiveMode() == output.ModeJSON {
		records := make([]analyzer.Record, 0, len(findings))
		for _, f := range findings {
			records = append(records, analyzer.NewRecord(f))
		}
		summary := countSeverities(findings)
		_ = r.JSON(lintJSONOutput{
			RunID:     report.RunID,
			Files:     fileCount,
			Cancelled: report.Cancelled,
			Summary:   summary,
			Findings:  records,
		})
		return
	}

	if len(findings) == 0 {
		r.Success(fmt.Sprintf("No issues found in %d files", fileCount))
		return
	}

	styles := r.Styles()
	currentFile := ""
	for _, f := range findings {
		if f.File != currentFile {
			if currentFile != "" {
				r.Println("")
			}
			currentFile = f.File
			r.Println(styles.Path(currentFile))
		}
		loc := fmt.Sprintf("%d:%d", f.Span.Start.Line, f.Span.Start.Column)
		r.Printf("  %-8s %-8s %s  %s\n",
			styles.Muted(loc),
			severityStyle(styles, f.Severity)(f.Severity.String()),
			styles.Bold(f.RuleID),
			f.Message,
		)
		for _, rel := range f.Related {
			r.Printf("           %s %s at %d:%d\n",
				styles.Muted("related:"), rel.Message, rel.Span.Start.Line, rel.Span.Start.Column)
		}
	}

	r.Println("")
	renderSummaryTable(r, findings, fileCount)
	if report.Cancelled {
		r.Println(styles.Warning("Run was cancelled; results are partial"))
	}
}

func renderSummaryTable(r *output.Renderer, findings []lint.Finding, fileCount int) {
	s := countSeverities(findings)

	t := r.NewTable()
	t.AppendHeader(table.Row{"Severity", "Count"})
	for _, row := range []struct {
		name  string
		count int
	}{
		{"error", s.Errors},
		{"warning", s.Warnings},
		{"info", s.Infos},
		{"hint", s.Hints},
	} {
		if row.count > 0 {
			t.AppendRow(table.Row{row.name, row.count})
		}
	}
	t.AppendFooter(table.Row{"total", s.Total})
	r.RenderTable(t)
	r.Printf("Analyzed %d files\n", fileCount)
}

func countSeverities(findings []lint.Finding) lintJSONSummary {
	var s lintJSONSummary
	for _, f := range findings {
		s.Total++
		switch f.Severity {
		case lint.SeverityError:
			s.Errors++
		case lint.SeverityWarning:
			s.Warnings++
		case lint.SeverityInfo:
			s.Infos++
		case lint.SeverityHint:
			s.Hints++
		}
	}
	return s
}

func severityStyle(styles *output.Styles, sev lint.Severity) output.Style {
	switch sev {
	case lint.SeverityError:
		return styles.Error
	case lint.SeverityWarning:
		return styles.Warning
	case lint.SeverityInfo:
		return styles.Info
	default:
		return styles.Hint
	}
}
