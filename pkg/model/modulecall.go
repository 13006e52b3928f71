package model

import (
	"regexp"
	"strings"

	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/token"
)

// CallStyle tags how a module invocation was spelled in the source. Some
// legal constructs only exist in one style, so fixes must preserve or convert
// style deliberately.
type CallStyle uint8

// Invocation styles.
const (
	// StyleMapping is the argument-mapping form:
	//   ansible.builtin.command:
	//     cmd: echo hi
	StyleMapping CallStyle = iota + 1
	// StyleInline is the free-form string form:
	//   ansible.builtin.command: echo hi
	StyleInline
)

func (s CallStyle) String() string {
	switch s {
	case StyleMapping:
		return "mapping"
	case StyleInline:
		return "inline"
	}
	return "unknown"
}

// ModuleCall is the invocation of a named module with its argument mapping.
type ModuleCall struct {
	// Module is the module identifier as written, dot-normalized
	// (surrounding whitespace stripped). Canonicalization to the
	// fully-qualified form is a rule concern, not a model concern.
	Module string
	Style  CallStyle

	// Args holds named arguments for mapping-style calls, in declaration
	// order; ArgKeys holds the corresponding key nodes so a fix can target an
	// argument name without rewriting its value. Inline calls keep their raw
	// argument string in FreeForm.
	Args     map[string]*parser.Node
	ArgKeys  map[string]*parser.Node
	ArgOrder []string
	FreeForm string

	// KeyNode is the module-name key; fixes that rename the module rewrite
	// exactly this node's span. ValueNode is the argument node, nil when the
	// call has no arguments.
	KeyNode   *parser.Node
	ValueNode *parser.Node

	// Span covers the key through the end of the arguments.
	Span token.Span
}

// Arg returns the named argument's value node, or nil.
func (c *ModuleCall) Arg(name string) *parser.Node {
	if c == nil {
		return nil
	}
	return c.Args[name]
}

// HasArg reports whether the named argument is present.
func (c *ModuleCall) HasArg(name string) bool {
	_, ok := c.Args[name]
	return ok
}

// ShortName returns the last segment of the module identifier.
func (c *ModuleCall) ShortName() string {
	if i := strings.LastIndexByte(c.Module, '.'); i >= 0 {
		return c.Module[i+1:]
	}
	return c.Module
}

// IsFullyQualified reports whether the module identifier carries a
// namespace.collection prefix.
func (c *ModuleCall) IsFullyQualified() bool {
	return strings.Count(c.Module, ".") == 2
}

// moduleNamePattern matches plausible module identifiers: one to three
// dot-separated lowercase segments.
var moduleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*){0,2}$`)

// IsModuleKey reports whether a task mapping key names a module rather than a
// reserved task-level keyword.
func IsModuleKey(key string) bool {
	if IsTaskKeyword(key) {
		return false
	}
	return moduleNamePattern.MatchString(key)
}

func resolveModuleCall(keyNode, valueNode *parser.Node) *ModuleCall {
	call := &ModuleCall{
		Module:    strings.TrimSpace(keyNode.Value),
		KeyNode:   keyNode,
		ValueNode: valueNode,
		Span:      token.Span{Start: keyNode.Span.Start, End: keyNode.Span.End},
	}

	value := valueNode.Resolve()
	switch {
	case value.IsMapping():
		call.Style = StyleMapping
		call.Args = make(map[string]*parser.Node, len(value.Content)/2)
		call.ArgKeys = make(map[string]*parser.Node, len(value.Content)/2)
		for _, e := range value.Entries() {
			if !e.Key.IsScalar() {
				continue
			}
			if _, dup := call.Args[e.Key.Value]; dup {
				continue
			}
			call.Args[e.Key.Value] = e.Value
			call.ArgKeys[e.Key.Value] = e.Key
			call.ArgOrder = append(call.ArgOrder, e.Key.Value)
		}
	case value.IsScalar() && value.Tag == "!!null":
		// Bare invocation such as "ansible.builtin.setup:".
		call.Style = StyleMapping
		call.Args = map[string]*parser.Node{}
	default:
		call.Style = StyleInline
		if value.IsScalar() {
			call.FreeForm = value.Value
		}
	}
	if valueNode.Span.End.Offset > call.Span.End.Offset {
		call.Span.End = valueNode.Span.End
	}
	return call
}
