package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steplint-dev/steplint/pkg/lint"
	"github.com/steplint-dev/steplint/pkg/model"
	"github.com/steplint-dev/steplint/pkg/parser"
)

const getURLCatalog = `
ansible.builtin.get_url:
  options:
    url:
      type: str
      required: true
    dest:
      type: path
      required: true
    timeout:
      type: int
    mode:
      type: str
      deprecated_aliases: [perm]
      deprecated_since: "2.9"
    validate_certs:
      type: bool
    checksum:
      type: str
    state:
      type: str
      choices: [present, absent]
  mutually_exclusive:
    - [checksum, validate_certs]
  required_together:
    - [url, dest]
`

func catalogFromYAML(t *testing.T, data string) *Catalog {
	t.Helper()
	cat, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Empty(t, cat.Errors())
	return cat
}

// validate lints the source against the catalog and returns schema findings.
func validate(t *testing.T, cat *Catalog, source string) []lint.Finding {
	t.Helper()
	reg := lint.NewRegistry()
	require.NoError(t, reg.Register(Rule))
	runner, err := lint.NewRunner(reg.Freeze(), nil)
	require.NoError(t, err)

	doc, err := parser.Parse("test.yml", source)
	require.NoError(t, err)
	tree := model.Build(doc)

	var out []lint.Finding
	for _, f := range runner.Run(&lint.Context{Tree: tree, Schemas: cat}) {
		if f.RuleID == RuleID {
			out = append(out, f)
		}
	}
	return out
}

func TestSchemaValidConfiguration(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/app.tar.gz
    dest: /tmp/app.tar.gz
    timeout: 10
`
	assert.Empty(t, validate(t, cat, source))
}

func TestSchemaUnknownOption(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    tiemout: 10
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1)
	assert.Equal(t, lint.SeverityError, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "tiemout")
}

func TestSchemaTypeMismatch(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    timeout: ten
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "expects int")
}

func TestSchemaQuotedNumberIsString(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    timeout: "10"
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1, "a quoted scalar is a string even when it looks numeric")
	assert.Contains(t, findings[0].Message, "timeout")
}

func TestSchemaTemplateValueIndeterminate(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    timeout: "{{ fetch_timeout }}"
`
	assert.Empty(t, validate(t, cat, source), "template values are never guessed")
}

func TestSchemaChoices(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    state: sideways
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "must be one of present, absent")
}

func TestSchemaMutuallyExclusive(t *testing.T) {
	sources := []string{
		`- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    checksum: sha256:abc
    validate_certs: true
`,
		// reversed declaration order must still yield exactly one finding
		`- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    validate_certs: true
    checksum: sha256:abc
`,
	}
	cat := catalogFromYAML(t, getURLCatalog)

	for _, source := range sources {
		findings := validate(t, cat, source)
		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Message, "mutually exclusive")
		require.Len(t, findings[0].Related, 1)
	}
}

func TestSchemaRequiredTogether(t *testing.T) {
	cat := catalogFromYAML(t, `
acme.net.probe:
  options:
    host:
      type: str
    port:
      type: int
  required_together:
    - [host, port]
`)
	source := `- name: Probe
  acme.net.probe:
    host: example.com
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "requires port")
}

func TestSchemaRequiredOption(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
`
	// url and dest are required together, so the lone url trips that
	// group as well as the plain required check.
	findings := validate(t, cat, source)
	require.Len(t, findings, 2)
	var messages []string
	for _, f := range findings {
		messages = append(messages, f.Message)
	}
	assert.Contains(t, messages, "module ansible.builtin.get_url requires option dest")
	assert.Contains(t, messages, "option url requires dest")
}

func TestSchemaDeprecatedAliasGetsRenameFix(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    perm: "0644"
`
	findings := validate(t, cat, source)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, lint.SeverityWarning, f.Severity)
	assert.Contains(t, f.Message, "deprecated alias of mode")
	assert.Contains(t, f.Message, "2.9")

	require.NotNil(t, f.Fix)
	require.Len(t, f.Fix.Edits, 1)
	edit := f.Fix.Edits[0]
	assert.Equal(t, "mode", edit.NewText)
	assert.Equal(t, "perm", source[edit.Span.Start.Offset:edit.Span.End.Offset])
}

func TestSchemaUnknownModuleSkipped(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Unmodeled
  acme.tools.widget:
    whatever: true
`
	assert.Empty(t, validate(t, cat, source))
}

func TestSchemaInlineCallSkipped(t *testing.T) {
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Inline
  ansible.builtin.get_url: url=https://example.com/a dest=/tmp/a
`
	assert.Empty(t, validate(t, cat, source), "free-form argument strings are indeterminate")
}

func TestSchemaTaskKeywordInArgsIgnored(t *testing.T) {
	// "args" style injection of task keywords must not count as unknown
	cat := catalogFromYAML(t, getURLCatalog)
	source := `- name: Fetch
  ansible.builtin.get_url:
    url: https://example.com/a
    dest: /tmp/a
    register: result
`
	assert.Empty(t, validate(t, cat, source))
}

func TestCatalogParseDegradesPerModule(t *testing.T) {
	cat, err := Parse([]byte(`
good.module.one:
  options:
    path:
      type: path
bad.module.two:
  options: "not a mapping"
`))
	require.NoError(t, err)

	_, ok := cat.Lookup("good.module.one")
	assert.True(t, ok)
	_, ok = cat.Lookup("bad.module.two")
	assert.False(t, ok)

	require.Len(t, cat.Errors(), 1)
	assert.Equal(t, "bad.module.two", cat.Errors()[0].Module)
	assert.Equal(t, []string{"good.module.one"}, cat.Modules())
}

func TestCatalogParseRejectsUnreadableYAML(t *testing.T) {
	_, err := Parse([]byte("just a bare scalar"))
	require.Error(t, err)
	var se *Error
	assert.ErrorAs(t, err, &se)
}

func TestResolveAliasDeterministic(t *testing.T) {
	ms := ModuleSchema{Options: map[string]Option{
		"zeta":  {Aliases: []string{"shared"}},
		"alpha": {Aliases: []string{"shared"}},
		"mode":  {DeprecatedAliases: []string{"perm"}},
	}}

	for i := 0; i < 50; i++ {
		r, ok := ms.resolve("shared")
		require.True(t, ok)
		assert.Equal(t, "alpha", r.canonical, "alias resolution must not depend on map order")
	}

	r, ok := ms.resolve("perm")
	require.True(t, ok)
	assert.Equal(t, "mode", r.canonical)
	assert.True(t, r.deprecated)

	r, ok = ms.resolve("mode")
	require.True(t, ok)
	assert.Equal(t, "mode", r.canonical)
	assert.False(t, r.deprecated)

	_, ok = ms.resolve("absent")
	assert.False(t, ok)
}
