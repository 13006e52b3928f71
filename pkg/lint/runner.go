package lint

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/model"
)

// InternalRuleID is the reserved rule id under which model errors and other
// engine-produced diagnostics surface. It keeps them visible in reports while
// staying distinguishable from ordinary lint findings.
const InternalRuleID = "internal"

// Runner dispatches entities to every applicable rule and collects findings.
type Runner struct {
	registry *Registry
	config   *Config
}

// NewRunner creates a runner over a frozen registry. Running against an
// unfrozen registry is a programming error.
func NewRunner(registry *Registry, config *Config) (*Runner, error) {
	if registry == nil {
		return nil, &RuleRegistrationError{Msg: "registry is nil"}
	}
	if !registry.Frozen() {
		return nil, &RuleRegistrationError{Msg: "registry must be frozen before running"}
	}
	if config == nil {
		config = NewConfig()
	}
	return &Runner{registry: registry, config: config}, nil
}

// Run executes every active applicable rule against every entity of the tree
// in pre-order, applies suppressions, and returns findings sorted by
// (file, line, column, rule id).
func (r *Runner) Run(ctx *Context) []Finding {
	tree := ctx.Tree
	findings := r.modelErrorFindings(tree)
	rules := r.registry.All()

	tree.Walk(func(e *model.Entity) bool {
		suppressions := effectiveSuppressions(tree, e)
		for _, rule := range rules {
			if r.config.IsDisabled(rule.ID) || !rule.AppliesTo(e.Kind) {
				continue
			}
			opts := r.config.GetRuleOptions(rule.ID)
			for _, f := range rule.Check(ctx, e, opts) {
				if suppressed(suppressions, f.RuleID) {
					continue
				}
				f.File = tree.File
				f.Severity = r.config.GetSeverity(rule.ID, f.Severity)
				findings = append(findings, f)
			}
		}
		return true
	})

	findings = append(findings, r.staleSuppressionWarnings(tree)...)
	Sort(findings)
	return findings
}

// modelErrorFindings surfaces collected model errors as findings of the
// reserved internal rule id.
func (r *Runner) modelErrorFindings(tree *model.Tree) []Finding {
	var out []Finding
	for _, me := range tree.Errors {
		sev := SeverityError
		if me.Warning {
			sev = SeverityWarning
		}
		out = append(out, Finding{
			RuleID:   InternalRuleID,
			Severity: sev,
			Message:  fmt.Sprintf("%s: %s", me.Kind, me.Msg),
			File:     tree.File,
			Span:     me.Span,
		})
	}
	return out
}

// staleSuppressionWarnings flags noqa directives naming rule ids that do not
// exist, so stale suppressions never go silently inert.
func (r *Runner) staleSuppressionWarnings(tree *model.Tree) []Finding {
	var out []Finding
	tree.Walk(func(e *model.Entity) bool {
		for _, s := range e.Suppress {
			for _, id := range s.Rules {
				if r.registry.Has(id) || id == InternalRuleID {
					continue
				}
				out = append(out, Finding{
					RuleID:   InternalRuleID,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("suppression names unknown rule id %q", id),
					File:     tree.File,
					Span:     s.Span,
				})
			}
		}
		return true
	})
	return out
}

// effectiveSuppressions returns the entity's own directives plus those of all
// ancestors; the nearest enclosing directive is as good as any since matching
// is a set union.
func effectiveSuppressions(tree *model.Tree, e *model.Entity) []model.Suppression {
	out := append([]model.Suppression(nil), e.Suppress...)
	for _, anc := range tree.Ancestors(e) {
		out = append(out, anc.Suppress...)
	}
	return out
}

func suppressed(suppressions []model.Suppression, ruleID string) bool {
	for _, s := range suppressions {
		if s.Matches(ruleID) {
			return true
		}
	}
	return false
}
