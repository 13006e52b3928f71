package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/steplint-dev/steplint/internal/cli/output"
	"github.com/steplint-dev/steplint/pkg/analyzer"
)

// FixOptions holds options for the fix command.
type FixOptions struct {
	Paths   []string // Files or directories to fix
	Format  string   // Output format
	Rules   []string // Apply fixes only from specific rules
	Disable []string // Rule IDs to disable entirely
	DryRun  bool     // Report what would change without writing
}

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	opts := &FixOptions{}
	cmd := &cobra.Command{
		Use:   "fix [path...]",
		Short: "Apply automatic fixes to task files",
		Long: `Rewrite task files to resolve violations that have safe automatic fixes.

Each file is re-analyzed after applying fixes, repeating until no
fixable violations remain or the pass limit is reached. A batch of
edits that would corrupt a file is rolled back and reported; the file
is left untouched.`,
		Example: `  # Fix everything fixable under the current project
  steplint fix

  # Preview without writing
  steplint fix --dry-run

  # Apply fixes from one rule only
  steplint fix --rule fqcn playbooks/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Paths = args
			}
			return runFix(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Apply fixes only from specific rules")
	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs to disable")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "Report changes without writing files")

	return cmd
}

func runFix(cmd *cobra.Command, opts *FixOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	paths := opts.Paths
	if len(paths) == 0 {
		paths = cmdCtx.Cfg.Paths
	}

	lintCfg := buildLintConfig(cmdCtx.Cfg, opts.Disable, nil)
	a, err := cmdCtx.newAnalyzer(lintCfg)
	if err != nil {
		return err
	}

	files, err := discoverFiles(paths, cmdCtx.Cfg.Exclude)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("starting fix run", "files", len(files), "dry_run", opts.DryRun)

	outcomes := a.Fix(cmd.Context(), files, opts.Rules)

	changed := 0
	for _, f := range files {
		out, ok := outcomes[f.Path]
		if !ok || out.Applied == 0 || out.NewText == f.Source {
			continue
		}
		changed++
		if opts.DryRun {
			continue
		}
		if err := writeFilePreservingMode(f.Path, out.NewText); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}

	renderFixOutcomes(r, files, outcomes, changed, opts.DryRun)

	if cmd.Context().Err() != nil {
		return ErrRunFailed
	}
	return nil
}

// writeFilePreservingMode replaces the file contents without changing its
// permission bits.
func writeFilePreservingMode(path, text string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), info.Mode().Perm())
}

// fixJSONOutput is the JSON output shape for fix runs.
type fixJSONOutput struct {
	DryRun bool            `json:"dry_run"`
	Files  []fixJSONResult `json:"files"`
}

type fixJSONResult struct {
	Path           string            `json:"path"`
	Applied        int               `json:"applied"`
	Passes         int               `json:"passes"`
	Conflicts      int               `json:"conflicts,omitempty"`
	Rejected       int               `json:"rejected,omitempty"`
	RolledBack     bool              `json:"rolled_back,omitempty"`
	ExceededPasses bool              `json:"exceeded_passes,omitempty"`
	Remaining      []analyzer.Record `json:"remaining,omitempty"`
}

func renderFixOutcomes(r *output.Renderer, files []analyzer.File, outcomes map[string]*analyzer.FixOutcome, changed int, dryRun bool) {
	paths := make([]string, 0, len(outcomes))
	for p := range outcomes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if r.EffectiveMode() == output.ModeJSON {
		out := fixJSONOutput{DryRun: dryRun}
		for _, p := range paths {
			o := outcomes[p]
			res := fixJSONResult{
				Path:           p,
				Applied:        o.Applied,
				Passes:         o.Passes,
				Conflicts:      len(o.Conflicts),
				Rejected:       len(o.Rejected),
				RolledBack:     o.RolledBack,
				ExceededPasses: o.ExceededPasses,
			}
			for _, f := range o.Findings {
				res.Remaining = append(res.Remaining, analyzer.NewRecord(f))
			}
			out.Files = append(out.Files, res)
		}
		_ = r.JSON(out)
		return
	}

	styles := r.Styles()
	totalApplied := 0
	for _, p := range paths {
		o := outcomes[p]
		totalApplied += o.Applied
		if o.Applied == 0 && !o.RolledBack {
			continue
		}
		verb := "fixed"
		if dryRun {
			verb = "would fix"
		}
		r.Printf("%s  %s %d violations in %d passes\n", styles.Path(p), verb, o.Applied, o.Passes)
		if o.RolledBack {
			r.Println(styles.Warning("  batch rolled back: edits would have produced unparseable output"))
		}
		if o.ExceededPasses {
			r.Println(styles.Warning("  pass limit reached with fixable violations remaining"))
		}
		for _, c := range o.Conflicts {
			r.Printf("  %s fix from %s skipped; overlaps a fix from %s\n",
				styles.Muted("conflict:"), c.RuleID, c.WinnerID)
		}
		for _, rej := range o.Rejected {
			r.Printf("  %s fix from %s rejected: %s\n",
				styles.Muted("rejected:"), rej.RuleID, rej.Reason)
		}
	}

	if totalApplied == 0 {
		r.Success("Nothing to fix")
		return
	}
	if dryRun {
		r.Printf("\n%d files would change (dry run, nothing written)\n", changed)
		return
	}
	r.Success(fmt.Sprintf("Applied %d fixes across %d files", totalApplied, changed))
}
