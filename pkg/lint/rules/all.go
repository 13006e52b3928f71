// Package rules contains the built-in rule catalog.
//
// Each rule lives in its own file as a data-driven descriptor. The catalog is
// assembled explicitly through Builtin rather than init-time side effects, so
// registries stay explicit values built once at process start.
//
// Built-in rules:
//   - fqcn: module names should use the canonical fully-qualified form
//   - no-changed-when: command modules should declare changed_when
//   - key-order: when must precede the loop it guards
//   - no-free-form: prefer mapping-style module arguments
//   - literal-compare: no comparisons against boolean literals
package rules

import "github.com/steplint-dev/steplint/pkg/lint"

// Builtin returns the built-in rule descriptors in catalog order.
func Builtin() []lint.RuleDef {
	return []lint.RuleDef{
		FQCN,
		ChangedWhen,
		KeyOrder,
		NoFreeForm,
		LiteralCompare,
	}
}

// RegisterBuiltin adds the built-in catalog to a registry.
func RegisterBuiltin(reg *lint.Registry) error {
	for _, def := range Builtin() {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
