// Package parser turns raw playbook text into a position-tracked node tree.
//
// Every node carries an exact byte span into the original text: slicing the
// source by a node's span reproduces the node's literal representation, not a
// reserialization. The transform engine depends on that property.
package parser

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/steplint-dev/steplint/pkg/token"
)

// Parse parses one document of playbook text. It returns a ParseError for
// malformed input and an InternalError if span tracking produced a span
// outside the file's bounds.
func Parse(file, source string) (*Document, error) {
	if !utf8.ValidString(source) {
		return nil, &ParseError{
			Kind: EncodingError,
			File: file,
			Msg:  "source is not valid UTF-8",
		}
	}

	ix := token.NewIndex(source)
	doc := &Document{File: file, Source: source, Index: ix}

	var root yaml.Node
	dec := yaml.NewDecoder(strings.NewReader(source))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil // empty document
		}
		return nil, syntaxError(file, ix, err)
	}

	content := &root
	if content.Kind == yaml.DocumentNode {
		if len(content.Content) == 0 {
			return doc, nil
		}
		content = content.Content[0]
	}

	c := &converter{ix: ix, anchors: make(map[*yaml.Node]*Node)}
	node, err := c.convert(content, false)
	if err != nil {
		return nil, err
	}
	if node != nil {
		if node.Span.Start.Offset < 0 || node.Span.End.Offset > len(source) {
			return nil, &InternalError{File: file, Msg: "node span outside file bounds"}
		}
	}
	doc.Root = node
	return doc, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

func syntaxError(file string, ix *token.Index, err error) *ParseError {
	pe := &ParseError{
		Kind: MalformedSyntax,
		File: file,
		Msg:  strings.TrimPrefix(err.Error(), "yaml: "),
		Err:  err,
	}
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil && line >= 1 {
			start := ix.Pos(ix.LineStart(line))
			end := ix.Pos(ix.LineStart(line) + len(ix.LineText(line)))
			pe.Span = token.Span{Start: start, End: end}
		}
	}
	return pe
}

type converter struct {
	ix      *token.Index
	anchors map[*yaml.Node]*Node
}

func (c *converter) convert(yn *yaml.Node, inFlow bool) (*Node, error) {
	switch yn.Kind {
	case yaml.DocumentNode:
		if len(yn.Content) == 0 {
			return nil, nil
		}
		return c.convert(yn.Content[0], inFlow)
	case yaml.ScalarNode:
		return c.scalar(yn, inFlow), nil
	case yaml.AliasNode:
		return c.alias(yn), nil
	case yaml.MappingNode, yaml.SequenceNode:
		return c.collection(yn, inFlow)
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d", yn.Kind)
	}
}

func (c *converter) register(yn *yaml.Node, n *Node) {
	if yn.Anchor != "" {
		c.anchors[yn] = n
	}
}

func (c *converter) scalar(yn *yaml.Node, inFlow bool) *Node {
	text := c.ix.Text()
	start := c.ix.Offset(yn.Line, yn.Column)

	var end int
	style := StylePlain
	switch {
	case yn.Style&yaml.DoubleQuotedStyle != 0:
		style = StyleDoubleQuoted
		end = scanDoubleQuoted(text, start)
	case yn.Style&yaml.SingleQuotedStyle != 0:
		style = StyleSingleQuoted
		end = scanSingleQuoted(text, start)
	case yn.Style&yaml.LiteralStyle != 0:
		style = StyleLiteral
		end = scanBlockScalar(c.ix, yn.Line, start)
	case yn.Style&yaml.FoldedStyle != 0:
		style = StyleFolded
		end = scanBlockScalar(c.ix, yn.Line, start)
	default:
		end = scanPlain(c.ix, start, yn.Value, inFlow)
	}

	n := &Node{
		Kind:        KindScalar,
		Style:       style,
		Tag:         yn.Tag,
		Value:       yn.Value,
		Anchor:      yn.Anchor,
		Span:        c.ix.Span(start, end),
		HeadComment: yn.HeadComment,
		LineComment: yn.LineComment,
		FootComment: yn.FootComment,
	}
	c.register(yn, n)
	return n
}

func (c *converter) alias(yn *yaml.Node) *Node {
	start := c.ix.Offset(yn.Line, yn.Column)
	end := start + 1 + len(yn.Value) // "*name"
	n := &Node{
		Kind:        KindAlias,
		Value:       yn.Value,
		Span:        c.ix.Span(start, end),
		HeadComment: yn.HeadComment,
		LineComment: yn.LineComment,
		FootComment: yn.FootComment,
	}
	if yn.Alias != nil {
		n.Target = c.anchors[yn.Alias]
	}
	return n
}

func (c *converter) collection(yn *yaml.Node, inFlow bool) (*Node, error) {
	flow := inFlow || yn.Style&yaml.FlowStyle != 0
	start := c.ix.Offset(yn.Line, yn.Column)

	kind := KindMapping
	if yn.Kind == yaml.SequenceNode {
		kind = KindSequence
	}
	n := &Node{
		Kind:        kind,
		Tag:         yn.Tag,
		Anchor:      yn.Anchor,
		HeadComment: yn.HeadComment,
		LineComment: yn.LineComment,
		FootComment: yn.FootComment,
		Content:     make([]*Node, 0, len(yn.Content)),
	}
	if flow {
		n.Style = StyleFlow
	}
	c.register(yn, n)

	end := start
	for _, child := range yn.Content {
		converted, err := c.convert(child, flow)
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, converted)
		if converted != nil && converted.Span.End.Offset > end {
			end = converted.Span.End.Offset
		}
	}

	if flow {
		end = scanFlow(c.ix.Text(), start)
	}
	n.Span = c.ix.Span(start, end)
	return n, nil
}
