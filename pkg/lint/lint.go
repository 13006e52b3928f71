// Package lint defines rule descriptors, findings and the engine that runs
// rules against an entity tree.
//
// Rules are pure with respect to the tree: a matcher reads entities and their
// ancestor context and never observes other rules' findings. That
// independence is what allows per-file pipelines to run in parallel.
package lint

import (
	"fmt"
	"sort"

	"github.com/steplint-dev/steplint/pkg/token"
)

// Severity indicates the importance of a finding.
type Severity int

// Severity levels.
const (
	// SeverityError indicates a critical issue that should be fixed.
	SeverityError Severity = iota
	// SeverityWarning indicates a potential issue that should be reviewed.
	SeverityWarning
	// SeverityInfo indicates informational feedback.
	SeverityInfo
	// SeverityHint indicates a suggestion for improvement.
	SeverityHint
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "error":
		return SeverityError, true
	case "warning":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	case "hint":
		return SeverityHint, true
	}
	return SeverityError, false
}

// Finding is one diagnostic produced by a rule against a source span.
type Finding struct {
	RuleID   string
	Severity Severity
	Message  string
	File     string
	Span     token.Span
	Related  []Related // optional secondary spans for context
	Fix      *Fix      // optional attached fix
}

// Related provides an additional location for a finding.
type Related struct {
	File    string
	Span    token.Span
	Message string
}

// Less orders findings by (file, start line, start column, rule id). The
// runner stable-sorts with this ordering before handing findings to the
// aggregator, and the transform engine uses it to break fix conflicts.
func Less(a, b Finding) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Span.Start.Line != b.Span.Start.Line {
		return a.Span.Start.Line < b.Span.Start.Line
	}
	if a.Span.Start.Column != b.Span.Start.Column {
		return a.Span.Start.Column < b.Span.Start.Column
	}
	return a.RuleID < b.RuleID
}

// Sort stable-sorts findings in place by the canonical ordering.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return Less(findings[i], findings[j])
	})
}

// Fix is an ordered list of disjoint text edits attached to a finding.
type Fix struct {
	Description string
	Edits       []TextEdit
}

// TextEdit replaces the text covered by Span with NewText.
type TextEdit struct {
	Span    token.Span
	NewText string
}

// Validate checks the engine invariants on a fix: edits are sorted by start
// offset, mutually disjoint, and contained within the finding's span. A rule
// must never claim to fix something outside what it inspected. Violations
// reject the fix rather than apply it.
func (f *Fix) Validate(within token.Span) error {
	if len(f.Edits) == 0 {
		return fmt.Errorf("fix has no edits")
	}
	for i, e := range f.Edits {
		if !e.Span.IsValid() {
			return fmt.Errorf("edit %d has an invalid span", i)
		}
		if !within.ContainsSpan(e.Span) {
			return fmt.Errorf("edit %d at %s lies outside the finding's span", i, e.Span.Start)
		}
		if i > 0 {
			prev := f.Edits[i-1]
			if e.Span.Start.Offset < prev.Span.Start.Offset {
				return fmt.Errorf("edit %d is not sorted by start offset", i)
			}
			if prev.Span.Overlaps(e.Span) {
				return fmt.Errorf("edits %d and %d overlap", i-1, i)
			}
		}
	}
	return nil
}
