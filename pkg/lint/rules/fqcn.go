package rules

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
)

// moduleRedirects maps short and legacy module names to their canonical
// fully-qualified forms. The table is data: collection packagers extend it
// through the rule's "redirects" option.
var moduleRedirects = map[string]string{
	"apt":         "ansible.builtin.apt",
	"assert":      "ansible.builtin.assert",
	"command":     "ansible.builtin.command",
	"copy":        "ansible.builtin.copy",
	"cron":        "ansible.builtin.cron",
	"debug":       "ansible.builtin.debug",
	"fail":        "ansible.builtin.fail",
	"fetch":       "ansible.builtin.fetch",
	"file":        "ansible.builtin.file",
	"get_url":     "ansible.builtin.get_url",
	"git":         "ansible.builtin.git",
	"group":       "ansible.builtin.group",
	"import_role": "ansible.builtin.import_role",
	"include_role": "ansible.builtin.include_role",
	"lineinfile":  "ansible.builtin.lineinfile",
	"meta":        "ansible.builtin.meta",
	"package":     "ansible.builtin.package",
	"pip":         "ansible.builtin.pip",
	"raw":         "ansible.builtin.raw",
	"script":      "ansible.builtin.script",
	"service":     "ansible.builtin.service",
	"set_fact":    "ansible.builtin.set_fact",
	"setup":       "ansible.builtin.setup",
	"shell":       "ansible.builtin.shell",
	"stat":        "ansible.builtin.stat",
	"systemd":     "ansible.builtin.systemd",
	"template":    "ansible.builtin.template",
	"unarchive":   "ansible.builtin.unarchive",
	"uri":         "ansible.builtin.uri",
	"user":        "ansible.builtin.user",
	"yum":         "ansible.builtin.yum",
}

// FQCN requires canonical fully-qualified module names.
var FQCN = lint.RuleDef{
	ID:          "fqcn",
	Description: "Module names should use the canonical fully-qualified form.",
	Severity:    lint.SeverityWarning,
	Kinds:       []model.Kind{model.KindTask, model.KindHandler},
	Check:       checkFQCN,
	ConfigKeys:  []string{"redirects"},
	AutoFix:     true,

	Rationale: `Short module names are resolved through a search path that depends on
installed collections, so the module a task runs can change when the environment
does. Fully-qualified names pin the module unambiguously.`,

	BadExample: `- name: Install a package
  yum:
    name: httpd`,

	GoodExample: `- name: Install a package
  ansible.builtin.yum:
    name: httpd`,

	FixHint: "Replace the short module name with its fully-qualified form.",
}

func checkFQCN(_ *lint.Context, e *model.Entity, opts map[string]any) []lint.Finding {
	call := e.Call
	if call == nil || call.IsFullyQualified() {
		return nil
	}

	canonical, ok := moduleRedirects[call.Module]
	if !ok {
		// Rule options may carry extra redirects for third-party collections.
		extra := lint.GetOption[map[string]any](opts, "redirects", nil)
		if v, found := extra[call.Module]; found {
			canonical, ok = v.(string)
		}
	}
	if !ok || canonical == "" {
		return nil
	}

	return []lint.Finding{{
		RuleID:   "fqcn",
		Severity: lint.SeverityWarning,
		Message:  fmt.Sprintf("use the fully-qualified module name %s instead of %s", canonical, call.Module),
		Span:     call.Span,
		Fix: &lint.Fix{
			Description: fmt.Sprintf("replace %s with %s", call.Module, canonical),
			Edits: []lint.TextEdit{{
				Span:    call.KeyNode.Span,
				NewText: canonical,
			}},
		},
	}}
}
