package model

import (
	"regexp"
	"strings"

	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/token"
)

// noqaPattern matches inline suppression directives:
//
//	# noqa            (suppress all rules)
//	# noqa: fqcn no-changed-when
var noqaPattern = regexp.MustCompile(`#\s*noqa(?::?\s+(.+))?\s*$`)

func parseNoqa(comment string, span token.Span) (Suppression, bool) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Suppression{}, false
	}
	m := noqaPattern.FindStringSubmatch(comment)
	if m == nil {
		return Suppression{}, false
	}
	s := Suppression{Span: span}
	ids := strings.Fields(m[1])
	if len(ids) == 0 {
		s.All = true
		return s, true
	}
	for _, id := range ids {
		if id == "all" {
			s.All = true
			continue
		}
		s.Rules = append(s.Rules, strings.TrimSuffix(id, ","))
	}
	return s, true
}

// collectSuppressions gathers noqa directives from an entity's mapping node:
// its own comments plus the line comments of its immediate keys and values.
func (b *builder) collectSuppressions(n *parser.Node) []Suppression {
	if n == nil {
		return nil
	}
	var out []Suppression
	add := func(comment string, span token.Span) {
		if s, ok := parseNoqa(comment, span); ok {
			out = append(out, s)
		}
	}
	add(n.HeadComment, n.Span)
	add(n.LineComment, n.Span)
	for _, e := range n.Entries() {
		add(e.Key.HeadComment, e.Key.Span)
		add(e.Key.LineComment, e.Key.Span)
		if e.Value != nil {
			add(e.Value.LineComment, e.Value.Span)
		}
	}
	return out
}
