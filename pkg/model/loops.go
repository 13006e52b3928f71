package model

import (
	"fmt"
	"strings"

	"github.com/steplint-dev/steplint/pkg/parser"
)

// LoopSpec is the normalized representation of a task's loop construct,
// whichever of the legal spellings was used.
type LoopSpec struct {
	Keyword string // the spelling used in the source: "loop", "with_items", ...
	Value   *parser.Node
	KeyNode *parser.Node
}

// loopKeywords are the mutually exclusive loop spellings, beyond the generic
// with_* family.
func isLoopKeyword(key string) bool {
	return key == "loop" || strings.HasPrefix(key, "with_")
}

// resolveLoop normalizes the task's loop construct. If more than one spelling
// is present, the first-seen spelling is kept for further analysis and a
// ConflictingKeys error is recorded.
func (b *builder) resolveLoop(task *parser.Node) *LoopSpec {
	var spec *LoopSpec
	for _, e := range task.Entries() {
		if !e.Key.IsScalar() || !isLoopKeyword(e.Key.Value) {
			continue
		}
		if spec != nil {
			b.tree.Errors = append(b.tree.Errors, ModelError{
				Kind: ConflictingKeys,
				File: b.tree.File,
				Span: e.Key.Span,
				Msg: fmt.Sprintf("conflicting loop spellings %q and %q; using %q",
					spec.Keyword, e.Key.Value, spec.Keyword),
			})
			continue
		}
		spec = &LoopSpec{Keyword: e.Key.Value, Value: e.Value, KeyNode: e.Key}
	}
	return spec
}
