package rules

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
)

// commandModules are the modules whose changed state cannot be inferred.
var commandModules = map[string]bool{
	"ansible.builtin.command": true,
	"ansible.builtin.shell":   true,
	"ansible.builtin.script":  true,
	"ansible.builtin.raw":     true,
	"command":                 true,
	"shell":                   true,
	"script":                  true,
	"raw":                     true,
}

// ChangedWhen requires command-like tasks to declare their changed state.
var ChangedWhen = lint.RuleDef{
	ID:          "no-changed-when",
	Description: "Command modules should declare changed_when or an idempotency guard.",
	Severity:    lint.SeverityWarning,
	Kinds:       []model.Kind{model.KindTask},
	Check:       checkChangedWhen,

	Rationale: `Command and shell tasks always report "changed" because the engine
cannot know whether they altered the host. Declaring changed_when (or a
creates/removes guard) keeps change reporting truthful and check mode usable.`,

	BadExample: `- name: Reload service configs
  ansible.builtin.command: systemctl daemon-reload`,

	GoodExample: `- name: Reload service configs
  ansible.builtin.command: systemctl daemon-reload
  changed_when: false`,

	FixHint: "Add changed_when with an expression describing when the command changes the host, or changed_when: false if it never does.",
}

func checkChangedWhen(_ *lint.Context, e *model.Entity, _ map[string]any) []lint.Finding {
	call := e.Call
	if call == nil || !commandModules[call.Module] {
		return nil
	}
	if e.HasAttr("changed_when") {
		return nil
	}
	// creates/removes make the task conditionally skipped, which bounds the
	// change reporting well enough.
	if call.HasArg("creates") || call.HasArg("removes") {
		return nil
	}
	return []lint.Finding{{
		RuleID:   "no-changed-when",
		Severity: lint.SeverityWarning,
		Message:  fmt.Sprintf("%s task does not declare changed_when", call.Module),
		Span:     call.Span,
	}}
}
