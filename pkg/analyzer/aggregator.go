package analyzer

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/steplint-dev/steplint/pkg/lint"
)

// Report is the merged, deduplicated result of a run. Ordering is stable:
// two runs on identical input produce byte-identical ordered sequences.
type Report struct {
	RunID     string
	Files     map[string][]lint.Finding
	Cancelled bool
}

func newReport() *Report {
	return &Report{
		RunID: uuid.NewString(),
		Files: make(map[string][]lint.Finding),
	}
}

// merge adds one file's findings, deduplicating exact (span, rule id)
// repeats, which occur when multiple rule-application passes re-run.
func (r *Report) merge(file string, findings []lint.Finding) {
	existing := r.Files[file]
	seen := make(map[string]bool, len(existing)+len(findings))
	for _, f := range existing {
		seen[dedupeKey(f)] = true
	}
	for _, f := range findings {
		key := dedupeKey(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, f)
	}
	lint.Sort(existing)
	r.Files[file] = existing
}

func dedupeKey(f lint.Finding) string {
	return fmt.Sprintf("%s\x00%d\x00%d", f.RuleID, f.Span.Start.Offset, f.Span.End.Offset)
}

// Ordered returns every finding across files in the canonical order.
func (r *Report) Ordered() []lint.Finding {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var out []lint.Finding
	for _, p := range paths {
		out = append(out, r.Files[p]...)
	}
	return out
}

// Summary counts findings by severity.
type Summary struct {
	Errors   int
	Warnings int
	Infos    int
	Hints    int
	Total    int
}

// Summary computes severity counts over the merged findings.
func (r *Report) Summary() Summary {
	var s Summary
	for _, findings := range r.Files {
		for _, f := range findings {
			s.Total++
			switch f.Severity {
			case lint.SeverityError:
				s.Errors++
			case lint.SeverityWarning:
				s.Warnings++
			case lint.SeverityInfo:
				s.Infos++
			case lint.SeverityHint:
				s.Hints++
			}
		}
	}
	return s
}

// Category is the process exit-status category derived from a report.
type Category uint8

// Exit categories.
const (
	// CategoryClean means no findings at all.
	CategoryClean Category = iota
	// CategoryFindings means ordinary lint findings were produced.
	CategoryFindings
	// CategoryError means the engine itself failed on some input: a file
	// would not parse or the model could not be built.
	CategoryError
)

// ExitCategory determines the process exit-status category from the merged
// state.
func (r *Report) ExitCategory() Category {
	category := CategoryClean
	for _, findings := range r.Files {
		for _, f := range findings {
			if f.RuleID == lint.InternalRuleID && f.Severity == lint.SeverityError {
				return CategoryError
			}
			category = CategoryFindings
		}
	}
	return category
}
