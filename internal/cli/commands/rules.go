package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/steplint-dev/steplint/internal/cli/output"
	"github.com/steplint-dev/steplint/pkg/lint"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Tag     string // Filter by tag
	Verbose bool   // Show full documentation
	Format  string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available lint rules",
		Long: `List all available lint rules with their documentation.

Use --verbose to see full documentation including examples and fix
guidance, or name a rule to see its details.`,
		Example: `  # List all rules
  steplint rules

  # Show details for a specific rule
  steplint rules fqcn

  # List rules carrying a tag
  steplint rules --tag idiom

  # Output as JSON
  steplint rules --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Tag, "tag", "", "Filter by tag")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")

	return cmd
}

func ruleInfos(tag string) ([]lint.Info, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}
	var infos []lint.Info
	for _, def := range reg.All() {
		info := lint.GetInfo(def)
		if tag != "" && !hasTag(info.Tags, tag) {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	infos, err := ruleInfos(opts.Tag)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"rules": infos, "count": len(infos)})
	}

	styles := r.Styles()
	r.Println("")
	r.Println(styles.Header(fmt.Sprintf("Lint Rules (%d)", len(infos))))
	r.Println("")

	t := r.NewTable()
	t.AppendHeader(table.Row{"ID", "Severity", "Autofix", "Description"})
	for _, info := range infos {
		autofix := ""
		if info.AutoFix {
			autofix = "yes"
		}
		t.AppendRow(table.Row{info.ID, info.Severity, autofix, info.Description})
	}
	r.RenderTable(t)

	if opts.Verbose {
		for _, info := range infos {
			r.Println("")
			renderRuleDetail(r, info)
		}
		return nil
	}

	r.Println("")
	r.Println(styles.Muted("Use 'steplint rules <rule-id>' for detailed documentation"))
	return nil
}

func showRule(cmd *cobra.Command, ruleID string, opts *RulesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	def, ok := reg.Get(ruleID)
	if !ok {
		return fmt.Errorf("rule %q not found", ruleID)
	}
	info := lint.GetInfo(def)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Println("")
	renderRuleDetail(r, info)
	return nil
}

func renderRuleDetail(r *output.Renderer, info lint.Info) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Printf("# %s\n\n", info.ID)
		r.Printf("**Severity:** `%s`", info.Severity)
		if info.AutoFix {
			r.Printf(" | **Autofix:** yes")
		}
		r.Println("")
		r.Println("")
		r.Println(info.Description)
		if info.Rationale != "" {
			r.Println("")
			r.Println(info.Rationale)
		}
		if info.BadExample != "" {
			r.Printf("\n## Bad\n\n```yaml\n%s\n```\n", info.BadExample)
		}
		if info.GoodExample != "" {
			r.Printf("\n## Good\n\n```yaml\n%s\n```\n", info.GoodExample)
		}
		if info.FixHint != "" {
			r.Printf("\n## How to Fix\n\n%s\n", info.FixHint)
		}
		return
	}

	styles := r.Styles()
	r.Println(styles.Header(info.ID))
	r.Printf("  %s: %s\n", styles.Bold("Severity"), info.Severity)
	if len(info.Kinds) > 0 {
		r.Printf("  %s: %s\n", styles.Bold("Applies to"), strings.Join(info.Kinds, ", "))
	}
	if len(info.Tags) > 0 {
		r.Printf("  %s: %s\n", styles.Bold("Tags"), strings.Join(info.Tags, ", "))
	}
	if info.AutoFix {
		r.Printf("  %s: yes\n", styles.Bold("Autofix"))
	}
	r.Println("")
	r.Println("  " + info.Description)
	if info.Rationale != "" {
		r.Println("")
		r.Println("  " + info.Rationale)
	}
	if info.BadExample != "" {
		r.Println("")
		r.Println(styles.Bold("Bad"))
		for _, line := range strings.Split(info.BadExample, "\n") {
			r.Println(styles.Muted("  " + line))
		}
	}
	if info.GoodExample != "" {
		r.Println("")
		r.Println(styles.Bold("Good"))
		for _, line := range strings.Split(info.GoodExample, "\n") {
			r.Println(styles.Success("  " + line))
		}
	}
	if info.FixHint != "" {
		r.Println("")
		r.Println(styles.Bold("How to Fix"))
		r.Println("  " + info.FixHint)
	}
}
