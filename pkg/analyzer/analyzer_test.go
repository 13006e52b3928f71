package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/lint/rules"
	"github.com/steplint-dev/steplint/pkg/model"
	"github.com/steplint-dev/steplint/pkg/token"
)

const cleanSource = `- name: Install nginx
  ansible.builtin.yum:
    name: nginx
    state: present
`

const shortNameSource = `- name: Install nginx
  yum:
    name: nginx
    state: present
`

func newTestAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()
	if opts.Registry == nil {
		reg := lint.NewRegistry()
		require.NoError(t, rules.RegisterBuiltin(reg))
		opts.Registry = reg
	}
	a, err := New(opts)
	require.NoError(t, err)
	return a
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestAnalyzeCleanFile(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	report := a.Analyze(context.Background(), []File{{Path: "site.yml", Source: cleanSource}})

	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Cancelled)
	assert.Empty(t, report.Ordered())
	assert.Equal(t, CategoryClean, report.ExitCategory())
	assert.Equal(t, 0, report.Summary().Total)
}

func TestAnalyzeReportsFindings(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	report := a.Analyze(context.Background(), []File{{Path: "site.yml", Source: shortNameSource}})

	findings := report.Ordered()
	require.Len(t, findings, 1)
	assert.Equal(t, "fqcn", findings[0].RuleID)
	assert.Equal(t, "site.yml", findings[0].File)
	assert.Equal(t, CategoryFindings, report.ExitCategory())

	s := report.Summary()
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 1, s.Total)
}

func TestAnalyzeParseFailure(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	report := a.Analyze(context.Background(), []File{
		{Path: "broken.yml", Source: "key: value\n  bad indent: [\n"},
	})

	findings := report.Ordered()
	require.Len(t, findings, 1)
	assert.Equal(t, lint.InternalRuleID, findings[0].RuleID)
	assert.Equal(t, lint.SeverityError, findings[0].Severity)
	assert.Equal(t, CategoryError, report.ExitCategory())
}

func TestAnalyzeOrderedAcrossFiles(t *testing.T) {
	a := newTestAnalyzer(t, Options{Workers: 4})
	files := []File{
		{Path: "b.yml", Source: shortNameSource},
		{Path: "a.yml", Source: shortNameSource},
	}

	first := a.Analyze(context.Background(), files)
	second := a.Analyze(context.Background(), files)

	assert.NotEqual(t, first.RunID, second.RunID)

	ordered := first.Ordered()
	require.Len(t, ordered, 2)
	assert.Equal(t, "a.yml", ordered[0].File)
	assert.Equal(t, "b.yml", ordered[1].File)

	require.Len(t, second.Ordered(), 2)
	for i := range ordered {
		assert.Equal(t, ordered[i].File, second.Ordered()[i].File)
		assert.Equal(t, ordered[i].Message, second.Ordered()[i].Message)
	}
}

func TestAnalyzeDeduplicatesRepeatedInput(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	report := a.Analyze(context.Background(), []File{
		{Path: "site.yml", Source: shortNameSource},
		{Path: "site.yml", Source: shortNameSource},
	})

	assert.Len(t, report.Ordered(), 1)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := a.Analyze(ctx, []File{{Path: "site.yml", Source: shortNameSource}})

	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Ordered())
}

func TestAnalyzeHonorsConfig(t *testing.T) {
	cfg := lint.NewConfig().Disable("fqcn")
	a := newTestAnalyzer(t, Options{Config: cfg})

	report := a.Analyze(context.Background(), []File{{Path: "site.yml", Source: shortNameSource}})
	assert.Empty(t, report.Ordered())
}

func TestFixRewritesToFixedPoint(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	outcomes := a.Fix(context.Background(), []File{{Path: "site.yml", Source: shortNameSource}}, nil)

	out := outcomes["site.yml"]
	require.NotNil(t, out)
	assert.Equal(t, 1, out.Applied)
	assert.Equal(t, 1, out.Passes)
	assert.False(t, out.RolledBack)
	assert.False(t, out.ExceededPasses)
	assert.Contains(t, out.NewText, "ansible.builtin.yum:")
	assert.Empty(t, out.Findings, "the rewrite leaves nothing to report")
}

func TestFixLeavesCleanFileAlone(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	outcomes := a.Fix(context.Background(), []File{{Path: "site.yml", Source: cleanSource}}, nil)

	out := outcomes["site.yml"]
	require.NotNil(t, out)
	assert.Equal(t, 0, out.Applied)
	assert.Equal(t, 0, out.Passes)
	assert.Equal(t, cleanSource, out.NewText)
}

func TestFixRuleSelection(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	outcomes := a.Fix(context.Background(), []File{{Path: "site.yml", Source: shortNameSource}}, []string{"key-order"})

	out := outcomes["site.yml"]
	require.NotNil(t, out)
	assert.Equal(t, 0, out.Applied)
	assert.Equal(t, shortNameSource, out.NewText)
	require.Len(t, out.Findings, 1, "the unselected violation remains")
	assert.Equal(t, "fqcn", out.Findings[0].RuleID)
}

func TestFixPassBound(t *testing.T) {
	// A rule whose fix never removes its own finding must hit the pass bound
	// instead of looping.
	stuck := lint.RuleDef{
		ID:          "stuck",
		Description: "always flags the module key and rewrites it to itself",
		Severity:    lint.SeverityWarning,
		Kinds:       []model.Kind{model.KindTask},
		AutoFix:     true,
		Check: func(_ *lint.Context, e *model.Entity, _ map[string]any) []lint.Finding {
			if e.Call == nil {
				return nil
			}
			return []lint.Finding{{
				RuleID:   "stuck",
				Severity: lint.SeverityWarning,
				Message:  "stuck on module key",
				Span:     e.Call.Span,
				Fix: &lint.Fix{
					Edits: []lint.TextEdit{{
						Span:    e.Call.KeyNode.Span,
						NewText: "yum",
					}},
				},
			}}
		},
	}
	reg := lint.NewRegistry()
	require.NoError(t, reg.Register(stuck))

	a := newTestAnalyzer(t, Options{Registry: reg, MaxFixPasses: 2})
	outcomes := a.Fix(context.Background(), []File{{Path: "site.yml", Source: shortNameSource}}, nil)

	out := outcomes["site.yml"]
	require.NotNil(t, out)
	assert.Equal(t, 2, out.Passes)
	assert.True(t, out.ExceededPasses)
	assert.Equal(t, shortNameSource, out.NewText, "identity rewrites leave the text unchanged")
	require.Len(t, out.Findings, 1)
}

func TestFixCancelledContext(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := a.Fix(ctx, []File{{Path: "site.yml", Source: shortNameSource}}, nil)
	assert.Empty(t, outcomes)
}

func TestRecordShape(t *testing.T) {
	f := lint.Finding{
		RuleID:   "fqcn",
		Severity: lint.SeverityWarning,
		Message:  "use the fully-qualified module name",
		File:     "site.yml",
		Span: token.Span{
			Start: token.Position{Line: 2, Column: 3, Offset: 25},
			End:   token.Position{Line: 2, Column: 6, Offset: 28},
		},
	}
	rec := NewRecord(f)

	assert.Equal(t, "fqcn", rec.Rule)
	assert.Equal(t, "warning", rec.Severity)
	assert.Equal(t, "site.yml", rec.File)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, 3, rec.Column)
	assert.Equal(t, 2, rec.EndLine)
	assert.Equal(t, 6, rec.EndColumn)
}

func TestReportRecordsFollowCanonicalOrder(t *testing.T) {
	a := newTestAnalyzer(t, Options{})
	report := a.Analyze(context.Background(), []File{
		{Path: "b.yml", Source: shortNameSource},
		{Path: "a.yml", Source: shortNameSource},
	})

	records := report.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "a.yml", records[0].File)
	assert.Equal(t, "b.yml", records[1].File)
}
