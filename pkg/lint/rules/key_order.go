package rules

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
)

// KeyOrder requires the conditional to precede the loop in a task mapping.
// The declaration order of mapping keys is preserved by the parser exactly so
// rules like this one can see it.
var KeyOrder = lint.RuleDef{
	ID:          "key-order",
	Description: "when must be declared before the loop it guards.",
	Severity:    lint.SeverityWarning,
	Kinds:       []model.Kind{model.KindTask, model.KindHandler},
	Check:       checkKeyOrder,

	Rationale: `The conditional is evaluated per loop item, so writing the loop first
reads as if the condition applied once. Keeping when ahead of the loop states the
eval order the way it actually happens.`,

	BadExample: `- name: Install packages
  ansible.builtin.package:
    name: "{{ item }}"
  loop: "{{ packages }}"
  when: packages is defined`,

	GoodExample: `- name: Install packages
  ansible.builtin.package:
    name: "{{ item }}"
  when: packages is defined
  loop: "{{ packages }}"`,
}

func checkKeyOrder(_ *lint.Context, e *model.Entity, _ map[string]any) []lint.Finding {
	if e.Loop == nil || e.WhenNode == nil {
		return nil
	}
	whenIdx, loopIdx := -1, -1
	for i, key := range e.AttrOrder {
		switch key {
		case "when":
			whenIdx = i
		case e.Loop.Keyword:
			loopIdx = i
		}
	}
	if whenIdx < 0 || loopIdx < 0 || whenIdx < loopIdx {
		return nil
	}

	whenKey := e.Node.KeyNode("when")
	if whenKey == nil {
		return nil
	}
	return []lint.Finding{{
		RuleID:   "key-order",
		Severity: lint.SeverityWarning,
		Message:  fmt.Sprintf("when should be declared before %s", e.Loop.Keyword),
		Span:     whenKey.Span,
		Related: []lint.Related{{
			Span:    e.Loop.KeyNode.Span,
			Message: "loop declared here",
		}},
	}}
}
