package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExtraction(t *testing.T) {
	source := `- name: Deploy
  ansible.builtin.template:
    src: "{{ app_name }}.conf.j2"
    dest: "/etc/{{ app_name }}/{{ env | default('prod') }}.conf"
`
	tree := buildSource(t, source)
	require.Empty(t, tree.Errors)

	task := tree.Entity(tree.Roots[0])
	require.Len(t, task.Vars, 3)

	assert.Equal(t, "app_name", task.Vars[0].Expr)
	assert.Equal(t, "app_name", task.Vars[1].Expr)
	assert.Equal(t, "env | default('prod')", task.Vars[2].Expr)

	// spans slice back to the literal delimiters
	for _, ref := range task.Vars {
		text := tree.Doc.Slice(ref.Span)
		assert.Contains(t, text, "{{")
		assert.Contains(t, text, "}}")
	}
}

func TestTemplateIdentifiers(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"app_name", []string{"app_name"}},
		{"env | default('prod')", []string{"env"}},
		{"a and b or not c", []string{"a", "b", "c"}},
		{"user.home", []string{"user"}},
		{"item", nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ref := VariableReference{Expr: tt.expr}
			assert.Equal(t, tt.want, ref.Identifiers())
		})
	}
}

func TestUnclosedTemplateIsWarning(t *testing.T) {
	source := `- name: Broken
  ansible.builtin.debug:
    msg: "{{ app_name"
`
	tree := buildSource(t, source)

	require.Len(t, tree.Errors, 1)
	err := tree.Errors[0]
	assert.Equal(t, UnbalancedDelimiters, err.Kind)
	assert.True(t, err.Warning)
	assert.Contains(t, err.Msg, "never closed")

	// the rest of the entity is still built
	task := tree.Entity(tree.Roots[0])
	require.NotNil(t, task.Call)
}

func TestStrayCloserIsWarning(t *testing.T) {
	source := `- name: Broken
  ansible.builtin.debug:
    msg: "app_name }} extra"
`
	tree := buildSource(t, source)

	require.Len(t, tree.Errors, 1)
	assert.Equal(t, UnbalancedDelimiters, tree.Errors[0].Kind)
	assert.Contains(t, tree.Errors[0].Msg, "never opened")
}
