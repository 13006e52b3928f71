package parser

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/token"
)

// ParseErrorKind classifies why a document failed to parse.
type ParseErrorKind uint8

// Parse error kinds.
const (
	// MalformedSyntax means the text is not well-formed YAML.
	MalformedSyntax ParseErrorKind = iota + 1
	// EncodingError means the text is not valid UTF-8.
	EncodingError
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedSyntax:
		return "malformed-syntax"
	case EncodingError:
		return "encoding-error"
	default:
		return "unknown"
	}
}

// ParseError reports a document that could not be parsed. It is fatal for the
// file it names; other files continue.
type ParseError struct {
	Kind ParseErrorKind
	File string
	Span token.Span
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%s:%s: %s", e.File, e.Span.Start, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InternalError reports a parser-internal invariant violation, e.g. a node
// span outside the file's bounds. It is a defect in the engine, never a
// user-facing finding.
type InternalError struct {
	File string
	Msg  string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal: %s: %s", e.File, e.Msg)
}
