package lint

import (
	"github.com/steplint-dev/steplint/pkg/model"
)

// Context carries the per-file state a matcher may read. Matchers are
// read-only over it.
type Context struct {
	Tree *model.Tree

	// Schemas supplies per-module option schemas to rules that need them.
	// Typed any to avoid an import cycle with the schema package; the schema
	// validator asserts the concrete type itself.
	Schemas any
}

// CheckFunc analyzes one entity and returns findings. Matchers must be pure
// with respect to the tree and must not observe other rules' findings.
// The opts parameter carries rule-specific options from configuration.
type CheckFunc func(ctx *Context, e *model.Entity, opts map[string]any) []Finding

// RuleDef is a data-driven rule descriptor. Rules are stateless; all context
// arrives through the check function's parameters. Descriptors are registered
// once at process start and immutable thereafter.
type RuleDef struct {
	ID          string     // stable identifier, e.g. "no-changed-when"
	Description string     // human-readable description
	Severity    Severity   // default severity
	Kinds       []model.Kind // applicable entity kinds; empty means all
	Check       CheckFunc
	ConfigKeys  []string // configuration keys this rule accepts
	Tags        []string // grouping tags, e.g. "idiom", "safety"
	AutoFix     bool     // true when findings may carry applicable fixes

	// Documentation fields for tooling.
	Rationale   string // why this rule exists
	BadExample  string // source showing the anti-pattern
	GoodExample string // source showing the correct pattern
	FixHint     string // how to fix violations when not obvious
}

// AppliesTo reports whether the rule declares applicability to the kind.
func (d RuleDef) AppliesTo(k model.Kind) bool {
	if len(d.Kinds) == 0 {
		return true
	}
	for _, dk := range d.Kinds {
		if dk == k {
			return true
		}
	}
	return false
}

// Info is rule metadata exposed to documentation and listing tooling.
type Info struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Kinds       []string `json:"kinds,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AutoFix     bool     `json:"autofix"`
	Rationale   string   `json:"rationale,omitempty"`
	BadExample  string   `json:"bad_example,omitempty"`
	GoodExample string   `json:"good_example,omitempty"`
	FixHint     string   `json:"fix_hint,omitempty"`
}

// GetInfo extracts metadata from a rule descriptor.
func GetInfo(d RuleDef) Info {
	info := Info{
		ID:          d.ID,
		Description: d.Description,
		Severity:    d.Severity.String(),
		Tags:        d.Tags,
		AutoFix:     d.AutoFix,
		Rationale:   d.Rationale,
		BadExample:  d.BadExample,
		GoodExample: d.GoodExample,
		FixHint:     d.FixHint,
	}
	for _, k := range d.Kinds {
		info.Kinds = append(info.Kinds, k.String())
	}
	return info
}
