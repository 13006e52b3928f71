package rules

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
)

// freeFormAllowed are modules whose free-form invocation is conventional.
var freeFormAllowed = map[string]bool{
	"ansible.builtin.command": true,
	"ansible.builtin.shell":   true,
	"ansible.builtin.script":  true,
	"ansible.builtin.raw":     true,
	"ansible.builtin.meta":    true,
	"command":                 true,
	"shell":                   true,
	"script":                  true,
	"raw":                     true,
	"meta":                    true,
}

// NoFreeForm discourages inline-string module invocations.
var NoFreeForm = lint.RuleDef{
	ID:          "no-free-form",
	Description: "Module arguments should use the mapping style, not an inline string.",
	Severity:    lint.SeverityInfo,
	Kinds:       []model.Kind{model.KindTask, model.KindHandler},
	Check:       checkNoFreeForm,
	ConfigKeys:  []string{"allow"},

	Rationale: `Inline key=value strings are parsed by each module with its own
splitting quirks; typos become silent behavior changes instead of unknown-option
errors. The mapping style is checked option by option.`,

	BadExample: `- name: Create the marker
  ansible.builtin.file: path=/tmp/marker state=touch`,

	GoodExample: `- name: Create the marker
  ansible.builtin.file:
    path: /tmp/marker
    state: touch`,

	FixHint: "Split the inline string into an argument mapping. Conversion is not automated because the inline form's quoting rules are module-specific.",
}

func checkNoFreeForm(_ *lint.Context, e *model.Entity, opts map[string]any) []lint.Finding {
	call := e.Call
	if call == nil || call.Style != model.StyleInline {
		return nil
	}
	if freeFormAllowed[call.Module] {
		return nil
	}
	for _, allowed := range lint.GetStringSliceOption(opts, "allow", nil) {
		if allowed == call.Module {
			return nil
		}
	}
	return []lint.Finding{{
		RuleID:   "no-free-form",
		Severity: lint.SeverityInfo,
		Message:  fmt.Sprintf("%s uses free-form arguments; prefer the mapping style", call.Module),
		Span:     call.Span,
	}}
}
