package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
	"github.com/steplint-dev/steplint/pkg/parser"
)

// RuleID is the schema validator's rule id.
const RuleID = "schema"

// Rule is the schema validator. It is one rule among many in the registry;
// it reads the catalog from the lint context and degrades to skipped when a
// module's schema is missing.
var Rule = lint.RuleDef{
	ID:          RuleID,
	Description: "Module arguments must match the module's options schema.",
	Severity:    lint.SeverityError,
	Kinds:       []model.Kind{model.KindTask, model.KindHandler},
	Check:       checkSchema,
	AutoFix:     true,

	Rationale: `Typos in option names, illegal option combinations and literal type
mismatches fail at execution time on the target host. The schema check surfaces
them before anything runs.`,

	BadExample: `- name: Fetch the tarball
  ansible.builtin.get_url:
    dest: /tmp/app.tar.gz
    timeout: "ten"`,

	GoodExample: `- name: Fetch the tarball
  ansible.builtin.get_url:
    url: https://example.com/app.tar.gz
    dest: /tmp/app.tar.gz
    timeout: 10`,

	FixHint: "Deprecated aliases are rewritten to the canonical option name; other violations need manual attention.",
}

func checkSchema(ctx *lint.Context, e *model.Entity, _ map[string]any) []lint.Finding {
	catalog, _ := ctx.Schemas.(*Catalog)
	if catalog == nil {
		return nil
	}
	call := e.Call
	if call == nil || call.Style != model.StyleMapping {
		// Inline argument strings are split by module-specific rules the
		// engine does not model; treat them as indeterminate.
		return nil
	}
	ms, ok := catalog.Lookup(call.Module)
	if !ok {
		return nil
	}

	v := &validator{call: call, schema: ms}
	v.checkArgs()
	v.checkExclusive()
	v.checkRequiredTogether()
	v.checkRequired()
	return v.findings
}

type validator struct {
	call     *model.ModuleCall
	schema   ModuleSchema
	findings []lint.Finding
}

func (v *validator) emit(f lint.Finding) {
	f.RuleID = RuleID
	v.findings = append(v.findings, f)
}

// present returns the canonical options supplied, in declaration order.
func (v *validator) present() []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range v.call.ArgOrder {
		if res, ok := v.schema.resolve(name); ok && !seen[res.canonical] {
			seen[res.canonical] = true
			out = append(out, res.canonical)
		}
	}
	return out
}

func (v *validator) has(canonical string) (string, bool) {
	for _, name := range v.call.ArgOrder {
		if res, ok := v.schema.resolve(name); ok && res.canonical == canonical {
			return name, true
		}
	}
	return "", false
}

func (v *validator) checkArgs() {
	for _, name := range v.call.ArgOrder {
		keyNode := v.call.ArgKeys[name]
		valueNode := v.call.Args[name]

		res, known := v.schema.resolve(name)
		if !known {
			if model.IsTaskKeyword(name) {
				continue
			}
			v.emit(lint.Finding{
				Severity: lint.SeverityError,
				Message:  fmt.Sprintf("unknown option %s for module %s", name, v.call.Module),
				Span:     keyNode.Span,
			})
			continue
		}

		opt := v.schema.Options[res.canonical]
		if res.deprecated {
			f := lint.Finding{
				Severity: lint.SeverityWarning,
				Message:  fmt.Sprintf("option %s is a deprecated alias of %s", name, res.canonical),
				Span:     keyNode.Span,
				Fix: &lint.Fix{
					Description: fmt.Sprintf("rename %s to %s", name, res.canonical),
					Edits: []lint.TextEdit{{
						Span:    keyNode.Span,
						NewText: res.canonical,
					}},
				},
			}
			if opt.DeprecatedSince != "" {
				f.Message += fmt.Sprintf(" (deprecated since %s)", opt.DeprecatedSince)
			}
			v.emit(f)
		}

		v.checkValue(res.canonical, opt, valueNode)
	}
}

func (v *validator) checkValue(name string, opt Option, value *parser.Node) {
	actual, determinate := staticType(value)
	if !determinate {
		// Template-valued arguments cannot be resolved statically; skip,
		// never guess.
		return
	}
	if !typeAccepts(opt.Type, actual) {
		v.emit(lint.Finding{
			Severity: lint.SeverityError,
			Message:  fmt.Sprintf("option %s expects %s, got %s", name, opt.Type, actual),
			Span:     value.Span,
		})
		return
	}
	if len(opt.Choices) > 0 && value.Resolve().IsScalar() {
		got := value.Resolve().Value
		for _, choice := range opt.Choices {
			if got == choice {
				return
			}
		}
		v.emit(lint.Finding{
			Severity: lint.SeverityError,
			Message: fmt.Sprintf("option %s must be one of %s, got %q",
				name, strings.Join(opt.Choices, ", "), got),
			Span: value.Span,
		})
	}
}

func (v *validator) checkExclusive() {
	for _, group := range v.schema.MutuallyExclusive {
		var hits []string // argument names as written, declaration order
		for _, canonical := range group {
			if name, ok := v.has(canonical); ok {
				hits = append(hits, name)
			}
		}
		if len(hits) < 2 {
			continue
		}
		// Exactly one finding per violated group, anchored at the second
		// option so the message reads in declaration order.
		second := v.call.ArgKeys[hits[1]]
		first := v.call.ArgKeys[hits[0]]
		v.emit(lint.Finding{
			Severity: lint.SeverityError,
			Message: fmt.Sprintf("options %s are mutually exclusive",
				strings.Join(hits, " and ")),
			Span: second.Span,
			Related: []lint.Related{{
				Span:    first.Span,
				Message: hits[0] + " declared here",
			}},
		})
	}
}

func (v *validator) checkRequiredTogether() {
	for _, group := range v.schema.RequiredTogether {
		var present, missing []string
		for _, canonical := range group {
			if _, ok := v.has(canonical); ok {
				present = append(present, canonical)
			} else {
				missing = append(missing, canonical)
			}
		}
		if len(present) == 0 || len(missing) == 0 {
			continue
		}
		anchor := v.call.Span
		if name, ok := v.has(present[0]); ok {
			anchor = v.call.ArgKeys[name].Span
		}
		v.emit(lint.Finding{
			Severity: lint.SeverityError,
			Message: fmt.Sprintf("option %s requires %s",
				strings.Join(present, ", "), strings.Join(missing, ", ")),
			Span: anchor,
		})
	}
}

func (v *validator) checkRequired() {
	supplied := map[string]bool{}
	for _, canonical := range v.present() {
		supplied[canonical] = true
	}
	for _, name := range sortedOptionNames(v.schema.Options) {
		opt := v.schema.Options[name]
		if opt.Required && !supplied[name] {
			v.emit(lint.Finding{
				Severity: lint.SeverityError,
				Message:  fmt.Sprintf("module %s requires option %s", v.call.Module, name),
				Span:     v.call.Span,
			})
		}
	}
}

// staticType computes the best-effort static type of an argument node.
// Returns false for template-dependent values: those are indeterminate.
func staticType(n *parser.Node) (string, bool) {
	n = n.Resolve()
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case parser.KindMapping:
		return "dict", true
	case parser.KindSequence:
		return "list", true
	case parser.KindScalar:
		if strings.Contains(n.Value, "{{") {
			return "", false
		}
		switch n.Style {
		case parser.StyleSingleQuoted, parser.StyleDoubleQuoted, parser.StyleLiteral, parser.StyleFolded:
			// A quoted scalar is a string even if it looks numeric.
			return "str", true
		}
		switch n.Tag {
		case "!!int":
			return "int", true
		case "!!bool":
			return "bool", true
		case "!!float":
			return "float", true
		case "!!null":
			return "", false
		default:
			return "str", true
		}
	}
	return "", false
}

// typeAccepts applies the coercion rules the runtime itself allows, so only
// literal mismatches are flagged.
func typeAccepts(declared, actual string) bool {
	switch declared {
	case "", "raw", "any":
		return true
	case "str", "path":
		return actual != "dict" && actual != "list"
	case "int":
		return actual == "int"
	case "float":
		return actual == "float" || actual == "int"
	case "bool":
		return actual == "bool"
	case "list":
		// Comma-separated strings coerce to lists at runtime.
		return actual == "list" || actual == "str"
	case "dict":
		return actual == "dict"
	default:
		return true
	}
}

func sortedOptionNames(options map[string]Option) []string {
	out := make([]string, 0, len(options))
	for name := range options {
		out = append(out, name)
	}
	// Deterministic finding order across runs.
	sort.Strings(out)
	return out
}
