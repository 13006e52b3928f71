package model

import (
	"regexp"
	"strings"

	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/token"
)

// VariableReference is one detected {{ expr }} occurrence inside a scalar.
// The engine never evaluates expressions; it only extracts identifier-like
// tokens for cross-checks.
type VariableReference struct {
	Expr string // raw expression text between the delimiters, trimmed
	Span token.Span
}

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// templateKeywords are expression-language words that are not variable names.
var templateKeywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"if": true, "else": true, "true": true, "false": true,
	"True": true, "False": true, "none": true, "None": true, "item": true,
}

var stringLiteralPattern = regexp.MustCompile(`'[^']*'|"[^"]*"`)

// Identifiers returns the identifier-like tokens of the expression, skipping
// keywords, string literals, attribute accesses and filter names.
func (v VariableReference) Identifiers() []string {
	// Blank out string literals, keeping offsets stable.
	expr := stringLiteralPattern.ReplaceAllStringFunc(v.Expr, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
	var out []string
	for _, loc := range identPattern.FindAllStringIndex(expr, -1) {
		name := expr[loc[0]:loc[1]]
		if templateKeywords[name] {
			continue
		}
		if prev := lastNonSpace(expr[:loc[0]]); prev == '.' || prev == '|' {
			continue
		}
		out = append(out, name)
	}
	return out
}

func lastNonSpace(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

// scanTemplates scans a scalar node's literal source text for template
// expressions. Working on the source slice (not the decoded value) keeps the
// reported spans exact regardless of quoting style.
func (b *builder) scanTemplates(n *parser.Node) []VariableReference {
	if n == nil || !n.IsScalar() {
		return nil
	}
	text := b.tree.Doc.Slice(n.Span)
	base := n.Span.Start.Offset
	ix := b.tree.Doc.Index

	var refs []VariableReference
	pos := 0
	for {
		open := strings.Index(text[pos:], openDelim)
		if open < 0 {
			break
		}
		open += pos
		close := strings.Index(text[open+len(openDelim):], closeDelim)
		if close < 0 {
			b.tree.Errors = append(b.tree.Errors, ModelError{
				Kind:    UnbalancedDelimiters,
				File:    b.tree.File,
				Span:    ix.Span(base+open, base+open+len(openDelim)),
				Msg:     "template expression opened but never closed",
				Warning: true,
			})
			break
		}
		close += open + len(openDelim)
		end := close + len(closeDelim)
		refs = append(refs, VariableReference{
			Expr: strings.TrimSpace(text[open+len(openDelim) : close]),
			Span: ix.Span(base+open, base+end),
		})
		pos = end
	}

	// A stray closer with no matching opener is also unbalanced.
	if strings.Contains(stripTemplates(text), closeDelim) {
		b.tree.Errors = append(b.tree.Errors, ModelError{
			Kind:    UnbalancedDelimiters,
			File:    b.tree.File,
			Span:    n.Span,
			Msg:     "template expression closed but never opened",
			Warning: true,
		})
	}
	return refs
}

var templatePattern = regexp.MustCompile(`\{\{.*?\}\}`)

func stripTemplates(s string) string {
	return templatePattern.ReplaceAllString(s, "")
}

// collectTemplates walks a node subtree gathering references from every
// scalar value.
func (b *builder) collectTemplates(n *parser.Node) []VariableReference {
	if n == nil || n.Kind == parser.KindAlias {
		// Alias targets are scanned at their anchor site; re-scanning here
		// would double-report the same spans.
		return nil
	}
	if n.IsScalar() {
		return b.scanTemplates(n)
	}
	var refs []VariableReference
	for _, child := range n.Content {
		refs = append(refs, b.collectTemplates(child)...)
	}
	return refs
}
