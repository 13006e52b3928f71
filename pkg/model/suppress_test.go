package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steplint-dev/steplint/pkg/token"
)

func TestParseNoqa(t *testing.T) {
	span := token.Span{Start: token.Position{Line: 1, Column: 1}, End: token.Position{Line: 1, Column: 10}}

	tests := []struct {
		name    string
		comment string
		ok      bool
		all     bool
		rules   []string
	}{
		{"bare noqa", "# noqa", true, true, nil},
		{"noqa all", "# noqa: all", true, true, nil},
		{"single rule", "# noqa: fqcn", true, false, []string{"fqcn"}},
		{"multiple rules", "# noqa: fqcn no-changed-when", true, false, []string{"fqcn", "no-changed-when"}},
		{"comma separated", "# noqa: fqcn, key-order", true, false, []string{"fqcn", "key-order"}},
		{"no colon", "# noqa fqcn", true, false, []string{"fqcn"}},
		{"ordinary comment", "# this task is fine", false, false, nil},
		{"empty", "", false, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := parseNoqa(tt.comment, span)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.all, s.All)
			assert.Equal(t, tt.rules, s.Rules)
		})
	}
}

func TestSuppressionMatches(t *testing.T) {
	all := Suppression{All: true}
	assert.True(t, all.Matches("fqcn"))
	assert.True(t, all.Matches("anything"))

	scoped := Suppression{Rules: []string{"fqcn", "key-order"}}
	assert.True(t, scoped.Matches("fqcn"))
	assert.False(t, scoped.Matches("no-changed-when"))
}

func TestCollectSuppressionsFromTask(t *testing.T) {
	source := `- name: Legacy invocation # noqa: fqcn
  yum:
    name: httpd
`
	tree := buildSource(t, source)

	task := tree.Entity(tree.Roots[0])
	require.Len(t, task.Suppress, 1)
	assert.Equal(t, []string{"fqcn"}, task.Suppress[0].Rules)
}
