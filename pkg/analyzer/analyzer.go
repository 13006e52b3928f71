// Package analyzer orchestrates the per-file pipeline: parse, build the
// entity model, run rules, and optionally apply fixes to a fixed point.
//
// Files are embarrassingly parallel: each file's pipeline touches no shared
// mutable state beyond the frozen rule registry, so pipelines run on an
// errgroup-bounded worker pool. Cancellation is cooperative at file
// granularity; a cancelled run reports the partial results it computed.
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/steplint-dev/steplint/pkg/fix"
	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/schema"
)

// File is one unit of input: an identifier and its full text. Reading the
// file is the discovery collaborator's responsibility.
type File struct {
	Path   string
	Source string
}

// Options configures an Analyzer.
type Options struct {
	Registry *lint.Registry
	Config   *lint.Config
	Schemas  *schema.Catalog
	Workers  int // per-file parallelism; defaults to GOMAXPROCS
	// MaxFixPasses bounds the fixed-point re-run of the fix pipeline.
	MaxFixPasses int
	Logger       *slog.Logger
}

// Analyzer runs the analysis pipeline. It is safe for concurrent use once
// constructed: all its state is read-only.
type Analyzer struct {
	runner       *lint.Runner
	registry     *lint.Registry
	config       *lint.Config
	schemas      *schema.Catalog
	workers      int
	maxFixPasses int
	logger       *slog.Logger
}

const defaultMaxFixPasses = 4

// New creates an Analyzer. The registry is frozen here if the caller has not
// already frozen it: it must be fully initialized before any worker starts.
func New(opts Options) (*Analyzer, error) {
	if opts.Registry == nil {
		return nil, errors.New("analyzer: registry is required")
	}
	opts.Registry.Freeze()

	runner, err := lint.NewRunner(opts.Registry, opts.Config)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	passes := opts.MaxFixPasses
	if passes <= 0 {
		passes = defaultMaxFixPasses
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		runner:       runner,
		registry:     opts.Registry,
		config:       opts.Config,
		schemas:      opts.Schemas,
		workers:      workers,
		maxFixPasses: passes,
		logger:       logger,
	}, nil
}

// Analyze runs the full pipeline over the file set and returns the merged
// report. Per-file failures surface as findings, never as a run error.
func (a *Analyzer) Analyze(ctx context.Context, files []File) *Report {
	report := newReport()
	results := make([][]lint.Finding, len(files))
	processed := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil // cancelled; keep partial results
			}
			results[i] = a.analyzeSource(f.Path, f.Source)
			processed[i] = true
			a.logger.Debug("analyzed file", "file", f.Path, "findings", len(results[i]))
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		if processed[i] {
			report.merge(f.Path, results[i])
		}
	}
	report.Cancelled = ctx.Err() != nil
	return report
}

// analyzeSource runs one file's pipeline on the given text.
func (a *Analyzer) analyzeSource(path, source string) []lint.Finding {
	doc, err := parser.Parse(path, source)
	if err != nil {
		return []lint.Finding{parseFailureFinding(path, err)}
	}
	tree := model.Build(doc)
	return a.runner.Run(&lint.Context{Tree: tree, Schemas: a.schemas})
}

// parseFailureFinding surfaces a file-fatal parse error as a finding of the
// reserved internal rule id so it stays visible but distinguishable.
func parseFailureFinding(path string, err error) lint.Finding {
	f := lint.Finding{
		RuleID:   lint.InternalRuleID,
		Severity: lint.SeverityError,
		Message:  err.Error(),
		File:     path,
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		f.Span = pe.Span
		f.Message = pe.Kind.String() + ": " + pe.Msg
	}
	return f
}

// FixOutcome is the result of fixing one file.
type FixOutcome struct {
	NewText        string
	Applied        int
	Passes         int
	Conflicts      []fix.Conflict
	Rejected       []fix.Rejection
	RolledBack     bool
	ExceededPasses bool
	// Findings holds the violations remaining after the final pass.
	Findings []lint.Finding
}

// Fix analyzes and rewrites each file to a bounded fixed point. Only
// findings from ruleIDs (or, when empty, every autofix-capable rule) are
// applied. Edits within one file are serialized; files run in parallel.
func (a *Analyzer) Fix(ctx context.Context, files []File, ruleIDs []string) map[string]*FixOutcome {
	outcomes := make([]*FixOutcome, len(files))
	selected := a.selectedFixRules(ruleIDs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcomes[i] = a.fixFile(f.Path, f.Source, selected)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*FixOutcome, len(files))
	for i, f := range files {
		if outcomes[i] != nil {
			out[f.Path] = outcomes[i]
		}
	}
	return out
}

func (a *Analyzer) selectedFixRules(ruleIDs []string) map[string]bool {
	selected := make(map[string]bool)
	if len(ruleIDs) > 0 {
		for _, id := range ruleIDs {
			selected[id] = true
		}
		return selected
	}
	for _, def := range a.registry.All() {
		if def.AutoFix {
			selected[def.ID] = true
		}
	}
	return selected
}

func (a *Analyzer) fixFile(path, source string, selected map[string]bool) *FixOutcome {
	out := &FixOutcome{NewText: source}
	text := source

	for pass := 0; pass < a.maxFixPasses; pass++ {
		findings := a.analyzeSource(path, text)
		fixable := fixableSubset(findings, selected)
		if len(fixable) == 0 {
			out.Findings = findings
			return out
		}
		out.Passes++

		res := fix.Apply(path, text, fixable)
		out.Conflicts = append(out.Conflicts, res.Conflicts...)
		out.Rejected = append(out.Rejected, res.Rejected...)
		if res.RolledBack {
			// The batch corrupted the file; text stays pre-fix.
			out.RolledBack = true
			out.Findings = findings
			a.logger.Warn("fix batch rolled back", "file", path, "error", res.Err)
			return out
		}
		if res.Applied == 0 {
			out.Findings = findings
			return out
		}
		out.Applied += res.Applied
		text = res.NewText
		out.NewText = text
	}

	// Bound reached: report, do not guess further.
	final := a.analyzeSource(path, text)
	out.Findings = final
	out.ExceededPasses = len(fixableSubset(final, selected)) > 0
	return out
}

func fixableSubset(findings []lint.Finding, selected map[string]bool) []lint.Finding {
	var out []lint.Finding
	for _, f := range findings {
		if f.Fix != nil && len(f.Fix.Edits) > 0 && selected[f.RuleID] {
			out = append(out, f)
		}
	}
	return out
}
