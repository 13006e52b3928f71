package rules

import (
	"regexp"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
	"github.com/steplint-dev/steplint/pkg/parser"
)

var (
	literalComparePattern = regexp.MustCompile(`(==|!=)\s*(True|true|False|false)\b`)
	simpleEqTruePattern   = regexp.MustCompile(`^([\w.]+)\s*==\s*(?:True|true)$`)
	simpleEqFalsePattern  = regexp.MustCompile(`^([\w.]+)\s*==\s*(?:False|false)$`)
)

// LiteralCompare flags comparisons against boolean literals in conditionals.
var LiteralCompare = lint.RuleDef{
	ID:          "literal-compare",
	Description: "Conditionals should not compare against boolean literals.",
	Severity:    lint.SeverityWarning,
	Kinds:       []model.Kind{model.KindTask, model.KindHandler, model.KindBlock},
	Check:       checkLiteralCompare,
	AutoFix:     true,

	Rationale: `when: var == True passes for the boolean but also for truthy
coercions the author did not intend, and it reads redundantly. The bare variable
(or "not var") states the test directly.`,

	BadExample: `- name: Restart if requested
  ansible.builtin.service:
    name: nginx
    state: restarted
  when: restart_needed == True`,

	GoodExample: `- name: Restart if requested
  ansible.builtin.service:
    name: nginx
    state: restarted
  when: restart_needed`,

	FixHint: "Drop the comparison: use the variable itself, or negate it with not.",
}

func checkLiteralCompare(_ *lint.Context, e *model.Entity, _ map[string]any) []lint.Finding {
	if e.WhenNode == nil || !literalComparePattern.MatchString(e.When) {
		return nil
	}

	f := lint.Finding{
		RuleID:   "literal-compare",
		Severity: lint.SeverityWarning,
		Message:  "conditional compares against a boolean literal",
		Span:     e.WhenNode.Span,
	}

	// Only the trivially safe shapes get a fix: a single scalar condition that
	// is exactly one comparison. Anything else is report-only.
	if node := e.WhenNode.Resolve(); node.IsScalar() && node == e.WhenNode {
		if m := simpleEqTruePattern.FindStringSubmatch(node.Value); m != nil {
			f.Fix = simpleWhenFix(node, m[1])
		} else if m := simpleEqFalsePattern.FindStringSubmatch(node.Value); m != nil {
			f.Fix = simpleWhenFix(node, "not "+m[1])
		}
	}
	return []lint.Finding{f}
}

func simpleWhenFix(node *parser.Node, replacement string) *lint.Fix {
	return &lint.Fix{
		Description: "replace the comparison with " + replacement,
		Edits: []lint.TextEdit{{
			Span:    node.Span,
			NewText: replacement,
		}},
	}
}
