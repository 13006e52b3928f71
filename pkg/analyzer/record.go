package analyzer

import "github.com/steplint-dev/steplint/pkg/lint"

// Record is the stable machine-readable shape of one finding, consumed by
// reporting collaborators. Field names are part of the output contract.
type Record struct {
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
}

// NewRecord converts a finding to its serialization shape.
func NewRecord(f lint.Finding) Record {
	return Record{
		Rule:      f.RuleID,
		Severity:  f.Severity.String(),
		Message:   f.Message,
		File:      f.File,
		Line:      f.Span.Start.Line,
		Column:    f.Span.Start.Column,
		EndLine:   f.Span.End.Line,
		EndColumn: f.Span.End.Column,
	}
}

// Records returns all findings in canonical order as serialization records.
func (r *Report) Records() []Record {
	ordered := r.Ordered()
	out := make([]Record, len(ordered))
	for i, f := range ordered {
		out[i] = NewRecord(f)
	}
	return out
}
