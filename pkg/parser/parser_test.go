package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, source string) *Document {
	t.Helper()
	doc, err := Parse("test.yml", source)
	require.NoError(t, err)
	return doc
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse("empty.yml", "")
	require.NoError(t, err)
	assert.Nil(t, doc.Root)

	doc, err = Parse("comment.yml", "# nothing here\n")
	require.NoError(t, err)
	assert.Nil(t, doc.Root)
}

func TestParseInvalidUTF8(t *testing.T) {
	_, err := Parse("bad.yml", "key: \xff\xfe")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, EncodingError, pe.Kind)
	assert.Equal(t, "bad.yml", pe.File)
}

func TestParseMalformedSyntax(t *testing.T) {
	source := "key: value\n  bad indent: [\n"
	_, err := Parse("broken.yml", source)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, MalformedSyntax, pe.Kind)
	assert.NotEmpty(t, pe.Msg)
}

func TestScalarSpanFidelity(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		key     string
		literal string
	}{
		{
			name:    "plain scalar",
			source:  "hosts: all\n",
			key:     "hosts",
			literal: "all",
		},
		{
			name:    "plain scalar with trailing comment",
			source:  "hosts: webservers # primary group\n",
			key:     "hosts",
			literal: "webservers",
		},
		{
			name:    "double quoted",
			source:  "msg: \"hello: world\"\n",
			key:     "msg",
			literal: "\"hello: world\"",
		},
		{
			name:    "double quoted with escape",
			source:  "msg: \"a \\\"b\\\" c\"\n",
			key:     "msg",
			literal: "\"a \\\"b\\\" c\"",
		},
		{
			name:    "single quoted with doubled quote",
			source:  "msg: 'it''s fine'\n",
			key:     "msg",
			literal: "'it''s fine'",
		},
		{
			name:    "integer literal",
			source:  "retries: 3\n",
			key:     "retries",
			literal: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.source)
			value := doc.Root.Get(tt.key)
			require.NotNil(t, value)
			assert.Equal(t, tt.literal, doc.Slice(value.Span))
		})
	}
}

func TestScalarSpanAfterMultibyteRunes(t *testing.T) {
	// The decoder reports rune columns; spans on a line containing
	// multibyte runes must still slice to the literal text.
	source := "- {name: café, cmd: hello}\n"
	doc := mustParse(t, source)

	task := doc.Root.Items()[0]
	assert.Equal(t, "café", doc.Slice(task.Get("name").Span))
	assert.Equal(t, "hello", doc.Slice(task.Get("cmd").Span))

	source = "- name: déploiement\n  shell: echo début # résumé\n"
	doc = mustParse(t, source)
	task = doc.Root.Items()[0]
	assert.Equal(t, "déploiement", doc.Slice(task.Get("name").Span))
	assert.Equal(t, "echo début", doc.Slice(task.Get("shell").Span))
}

func TestMultilinePlainScalarSpan(t *testing.T) {
	source := "- name: guarded\n  when: foo is defined\n    and bar\n  debug:\n    msg: hi\n"
	doc := mustParse(t, source)

	task := doc.Root.Items()[0]
	when := task.Get("when")
	require.NotNil(t, when)
	assert.Equal(t, StylePlain, when.Style)
	assert.Equal(t, "foo is defined\n    and bar", doc.Slice(when.Span))
	assert.Equal(t, "hi", doc.Slice(task.Get("debug").Get("msg").Span))
}

func TestMultilinePlainScalarStopsAtSibling(t *testing.T) {
	source := "msg: spans two\n  lines here\ntail: x\n"
	doc := mustParse(t, source)

	assert.Equal(t, "spans two\n  lines here", doc.Slice(doc.Root.Get("msg").Span))
	assert.Equal(t, "x", doc.Slice(doc.Root.Get("tail").Span))
}

func TestBlockScalarSpan(t *testing.T) {
	source := "script: |\n  line one\n  line two\nnext: 1\n"
	doc := mustParse(t, source)

	value := doc.Root.Get("script")
	require.NotNil(t, value)
	assert.Equal(t, StyleLiteral, value.Style)
	assert.Equal(t, "|\n  line one\n  line two", doc.Slice(value.Span))
}

func TestBlockScalarWithBlankLine(t *testing.T) {
	source := "content: |\n  first\n\n  second\ntail: x\n"
	doc := mustParse(t, source)

	value := doc.Root.Get("content")
	require.NotNil(t, value)
	assert.Equal(t, "|\n  first\n\n  second", doc.Slice(value.Span))
}

func TestFlowCollectionSpan(t *testing.T) {
	source := "tags: [web, 'db', \"cache\"]\nwhen: ready\n"
	doc := mustParse(t, source)

	tags := doc.Root.Get("tags")
	require.NotNil(t, tags)
	assert.Equal(t, KindSequence, tags.Kind)
	assert.Equal(t, StyleFlow, tags.Style)
	assert.Equal(t, "[web, 'db', \"cache\"]", doc.Slice(tags.Span))

	items := tags.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "web", doc.Slice(items[0].Span))
	assert.Equal(t, "'db'", doc.Slice(items[1].Span))
	assert.Equal(t, "\"cache\"", doc.Slice(items[2].Span))
}

func TestFlowScalarStopsAtComma(t *testing.T) {
	source := "ports: {http: 80, https: 443}\n"
	doc := mustParse(t, source)

	ports := doc.Root.Get("ports")
	require.NotNil(t, ports)
	assert.Equal(t, "80", doc.Slice(ports.Get("http").Span))
	assert.Equal(t, "443", doc.Slice(ports.Get("https").Span))
}

func TestMappingSpanCoversEntries(t *testing.T) {
	source := "- name: demo task\n  debug:\n    msg: hi\n"
	doc := mustParse(t, source)

	require.True(t, doc.Root.IsSequence())
	task := doc.Root.Items()[0]
	require.True(t, task.IsMapping())

	slice := doc.Slice(task.Span)
	assert.Contains(t, slice, "name: demo task")
	assert.Contains(t, slice, "msg: hi")
	assert.Equal(t, []string{"name", "debug"}, task.Keys())
}

func TestAnchorAliasResolution(t *testing.T) {
	source := "defaults: &d\n  retries: 3\ntask:\n  args: *d\n"
	doc := mustParse(t, source)

	alias := doc.Root.Get("task").Get("args")
	require.NotNil(t, alias)
	assert.Equal(t, KindAlias, alias.Kind)
	assert.Equal(t, "*d", doc.Slice(alias.Span))

	target := alias.Resolve()
	require.NotNil(t, target)
	assert.True(t, target.IsMapping())
	assert.Equal(t, "3", target.Get("retries").Value)
}

func TestResolveOnNonAliasIsIdentity(t *testing.T) {
	doc := mustParse(t, "hosts: all\n")
	n := doc.Root.Get("hosts")
	assert.Same(t, n, n.Resolve())
}

func TestComments(t *testing.T) {
	source := "- name: guarded # noqa: fqcn\n  shell: echo hi\n"
	doc := mustParse(t, source)

	task := doc.Root.Items()[0]
	value := task.Get("name")
	require.NotNil(t, value)
	assert.Contains(t, value.LineComment, "noqa: fqcn")
}

func TestKeyNode(t *testing.T) {
	source := "- yum:\n    name: httpd\n"
	doc := mustParse(t, source)

	task := doc.Root.Items()[0]
	key := task.KeyNode("yum")
	require.NotNil(t, key)
	assert.Equal(t, "yum", doc.Slice(key.Span))
	assert.Nil(t, task.KeyNode("missing"))
}

func TestBoolValue(t *testing.T) {
	source := "a: true\nb: false\nc: maybe\nd: \"true\"\n"
	doc := mustParse(t, source)

	v, ok := doc.Root.Get("a").BoolValue()
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = doc.Root.Get("b").BoolValue()
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = doc.Root.Get("c").BoolValue()
	assert.False(t, ok)

	_, ok = doc.Root.Get("d").BoolValue()
	assert.False(t, ok, "quoted scalars are strings, not booleans")
}

func TestParseErrorUnwrap(t *testing.T) {
	wrapped := errors.New("inner")
	pe := &ParseError{Kind: MalformedSyntax, File: "f.yml", Msg: "bad", Err: wrapped}
	assert.ErrorIs(t, pe, wrapped)
}
