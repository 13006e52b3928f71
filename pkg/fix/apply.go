// Package fix applies the text edits attached to findings back onto the
// original source.
//
// Edits are anchored at exact byte spans, applied rightmost first so earlier
// offsets stay valid, and the whole batch is rolled back if the rewritten
// text no longer parses. Partial corruption is never acceptable.
package fix

import (
	"fmt"
	"sort"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/token"
)

// Conflict records a fix dropped because one of its edits overlapped an edit
// from a lexically earlier finding. The caller reports it and may retry on
// the next pass.
type Conflict struct {
	RuleID   string
	Span     token.Span
	WinnerID string
}

// Rejection records a fix that violated the engine invariants (unsorted,
// overlapping or out-of-span edits). Violated fixes are rejected, not
// applied.
type Rejection struct {
	RuleID string
	Span   token.Span
	Reason string
}

// RollbackError reports that an applied batch failed to re-parse and the
// file's text was reverted to its pre-fix state.
type RollbackError struct {
	File string
	Err  error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("fix rollback: %s: rewritten text failed to re-parse: %v", e.File, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// Result is the outcome of applying one file's fixes.
type Result struct {
	NewText    string
	Applied    int // number of findings whose fixes were applied
	Conflicts  []Conflict
	Rejected   []Rejection
	RolledBack bool
	Err        *RollbackError
}

type acceptedFix struct {
	findingIdx int
	edits      []lint.TextEdit
}

// Apply computes the minimal text rewrite for the findings' fixes and applies
// it to source. Findings are considered in the canonical (file, line, column,
// rule id) order; on overlap the earliest finding wins. After applying, the
// new text is re-parsed: a parse failure rolls the whole batch back.
func Apply(file, source string, findings []lint.Finding) Result {
	ordered := make([]lint.Finding, len(findings))
	copy(ordered, findings)
	lint.Sort(ordered)

	res := Result{NewText: source}
	var accepted []acceptedFix
	var taken []token.Span

	for i, f := range ordered {
		if f.Fix == nil || len(f.Fix.Edits) == 0 {
			continue
		}
		if err := f.Fix.Validate(f.Span); err != nil {
			res.Rejected = append(res.Rejected, Rejection{
				RuleID: f.RuleID,
				Span:   f.Span,
				Reason: err.Error(),
			})
			continue
		}
		if winner, clash := overlapsAny(f.Fix.Edits, taken, accepted, ordered); clash {
			res.Conflicts = append(res.Conflicts, Conflict{
				RuleID:   f.RuleID,
				Span:     f.Span,
				WinnerID: winner,
			})
			continue
		}
		accepted = append(accepted, acceptedFix{findingIdx: i, edits: f.Fix.Edits})
		for _, e := range f.Fix.Edits {
			taken = append(taken, e.Span)
		}
	}

	if len(accepted) == 0 {
		return res
	}

	res.NewText = splice(source, accepted)
	res.Applied = len(accepted)

	// Soundness gate: the rewritten document must re-parse cleanly.
	if _, err := parser.Parse(file, res.NewText); err != nil {
		return Result{
			NewText:    source,
			Conflicts:  res.Conflicts,
			Rejected:   res.Rejected,
			RolledBack: true,
			Err:        &RollbackError{File: file, Err: err},
		}
	}
	return res
}

// overlapsAny reports whether any edit overlaps an already-taken span, and
// which finding's rule id owns the winning span.
func overlapsAny(edits []lint.TextEdit, taken []token.Span, accepted []acceptedFix, ordered []lint.Finding) (string, bool) {
	for _, e := range edits {
		for ti, span := range taken {
			if e.Span.Overlaps(span) {
				return ownerOf(ti, accepted, ordered), true
			}
		}
	}
	return "", false
}

func ownerOf(takenIdx int, accepted []acceptedFix, ordered []lint.Finding) string {
	n := 0
	for _, a := range accepted {
		if takenIdx < n+len(a.edits) {
			return ordered[a.findingIdx].RuleID
		}
		n += len(a.edits)
	}
	return ""
}

// splice applies all accepted edits in reverse offset order so earlier
// offsets remain valid as the text shrinks or grows.
func splice(source string, accepted []acceptedFix) string {
	var edits []lint.TextEdit
	for _, a := range accepted {
		edits = append(edits, a.edits...)
	}
	sort.Slice(edits, func(i, j int) bool {
		return edits[i].Span.Start.Offset > edits[j].Span.Start.Offset
	})
	out := source
	for _, e := range edits {
		start, end := e.Span.Start.Offset, e.Span.End.Offset
		if start < 0 || end > len(out) || start > end {
			continue
		}
		out = out[:start] + e.NewText + out[end:]
	}
	return out
}
