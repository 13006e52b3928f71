package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModeExplicit(t *testing.T) {
	buf := new(bytes.Buffer)
	for _, mode := range []Mode{ModeText, ModeMarkdown, ModeJSON} {
		r := NewRenderer(buf, buf, mode)
		assert.Equal(t, mode, r.EffectiveMode())
	}
}

func TestResolveModeAutoFallsBackToMarkdown(t *testing.T) {
	// A buffer is not a terminal, so auto resolves to markdown.
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, buf, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestStylesAreIdentityWithoutColor(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, buf, ModeMarkdown)

	s := r.Styles()
	assert.Equal(t, "hello", s.Bold("hello"))
	assert.Equal(t, "hello", s.Error("hello"))
	assert.Equal(t, "hello", s.Path("hello"))
}

func TestSuccessOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, buf, ModeMarkdown)
	r.Success("all done")
	assert.Equal(t, "all done\n", buf.String())
}

func TestErrorfWritesToErrWriter(t *testing.T) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	r := NewRenderer(out, errOut, ModeMarkdown)

	r.Errorf("failed: %d", 7)
	assert.Empty(t, out.String())
	assert.Equal(t, "failed: 7\n", errOut.String())
}

func TestJSONOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, buf, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"count": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["count"])
	assert.Contains(t, buf.String(), "\n  ", "output should be indented")
}

func TestRenderTableMarkdown(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewRenderer(buf, buf, ModeMarkdown)

	tw := r.NewTable()
	tw.AppendHeader(table.Row{"ID", "Count"})
	tw.AppendRow(table.Row{"fqcn", 2})
	r.RenderTable(tw)

	out := buf.String()
	assert.Contains(t, out, "| ID ")
	assert.Contains(t, out, "| fqcn ")
}
