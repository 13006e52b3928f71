package parser

import (
	"github.com/steplint-dev/steplint/pkg/token"
)

// Kind identifies the structural kind of a parsed node.
type Kind uint8

// Node kinds.
const (
	KindMapping Kind = iota + 1
	KindSequence
	KindScalar
	KindAlias
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	case KindScalar:
		return "scalar"
	case KindAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// Style records the source representation style of a node. Fixes must
// preserve or convert style deliberately, so it is kept on every node.
type Style uint8

// Node styles.
const (
	StylePlain Style = iota
	StyleSingleQuoted
	StyleDoubleQuoted
	StyleLiteral
	StyleFolded
	StyleFlow
)

// Node is one raw parsed unit of the document tree. Nodes are produced by
// Parse and are read-only downstream; the model builder never mutates them.
type Node struct {
	Kind   Kind
	Style  Style
	Tag    string // resolved YAML tag, e.g. "!!str", "!!int"
	Value  string // scalar value; anchor name for alias nodes
	Anchor string

	// Target is the anchored node an alias refers to. It is a back-reference,
	// never a copy: duplicating content would corrupt span tracking for the
	// aliased node's unique appearance.
	Target *Node

	// Span covers exactly the node's literal source representation.
	Span token.Span

	// Content holds children in declaration order. For mappings it alternates
	// key, value, key, value; for sequences it holds the items. Declaration
	// order is semantically meaningful for some rules and must be preserved.
	Content []*Node

	HeadComment string
	LineComment string
	FootComment string
}

// MapEntry is one key/value pair of a mapping node.
type MapEntry struct {
	Key   *Node
	Value *Node
}

// IsMapping reports whether the node is a mapping.
func (n *Node) IsMapping() bool { return n != nil && n.Kind == KindMapping }

// IsSequence reports whether the node is a sequence.
func (n *Node) IsSequence() bool { return n != nil && n.Kind == KindSequence }

// IsScalar reports whether the node is a scalar.
func (n *Node) IsScalar() bool { return n != nil && n.Kind == KindScalar }

// Resolve follows alias back-references to the anchored node.
func (n *Node) Resolve() *Node {
	seen := 0
	for n != nil && n.Kind == KindAlias && n.Target != nil {
		n = n.Target
		if seen++; seen > 64 {
			return nil
		}
	}
	return n
}

// Entries returns the mapping's key/value pairs in declaration order.
// Returns nil for non-mapping nodes.
func (n *Node) Entries() []MapEntry {
	if !n.IsMapping() {
		return nil
	}
	entries := make([]MapEntry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		entries = append(entries, MapEntry{Key: n.Content[i], Value: n.Content[i+1]})
	}
	return entries
}

// Get returns the value node for a scalar key, or nil if absent.
func (n *Node) Get(key string) *Node {
	for _, e := range n.Entries() {
		if e.Key.IsScalar() && e.Key.Value == key {
			return e.Value
		}
	}
	return nil
}

// KeyNode returns the key node itself for a scalar key, or nil if absent.
// Fixes that rewrite a key (e.g. canonicalizing a module name) target this
// node's span rather than the whole entry.
func (n *Node) KeyNode(key string) *Node {
	for _, e := range n.Entries() {
		if e.Key.IsScalar() && e.Key.Value == key {
			return e.Key
		}
	}
	return nil
}

// Keys returns the mapping's scalar keys in declaration order.
func (n *Node) Keys() []string {
	entries := n.Entries()
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Key.IsScalar() {
			keys = append(keys, e.Key.Value)
		}
	}
	return keys
}

// Items returns the sequence items, or nil for non-sequence nodes.
func (n *Node) Items() []*Node {
	if !n.IsSequence() {
		return nil
	}
	return n.Content
}

// BoolValue returns the scalar's boolean value and whether it is a literal
// boolean. Quoted scalars are strings, never booleans.
func (n *Node) BoolValue() (bool, bool) {
	if !n.IsScalar() || n.Tag != "!!bool" || n.Style != StylePlain {
		return false, false
	}
	switch n.Value {
	case "true", "True", "TRUE", "yes", "Yes", "on", "On":
		return true, true
	case "false", "False", "FALSE", "no", "No", "off", "Off":
		return false, true
	}
	return false, false
}

// Document is the result of parsing one file.
type Document struct {
	File   string
	Source string
	Index  *token.Index
	Root   *Node // nil for an empty document
}

// Slice returns the source text covered by a span.
func (d *Document) Slice(s token.Span) string {
	return d.Index.Slice(s)
}
