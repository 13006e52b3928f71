package model

import (
	"fmt"

	"github.com/steplint-dev/steplint/pkg/token"
)

// ModelErrorKind classifies a malformed domain construct.
type ModelErrorKind uint8

// Model error kinds.
const (
	// UnknownEntityShape means a node could not be classified as any entity.
	UnknownEntityShape ModelErrorKind = iota + 1
	// ConflictingKeys means mutually exclusive keys were both declared,
	// e.g. two loop spellings on one task.
	ConflictingKeys
	// MissingRequiredKey means a structurally required key is absent.
	MissingRequiredKey
	// UnbalancedDelimiters means a template expression's delimiters do not
	// balance. Reported at warning level, never fatal.
	UnbalancedDelimiters
)

func (k ModelErrorKind) String() string {
	switch k {
	case UnknownEntityShape:
		return "unknown-entity-shape"
	case ConflictingKeys:
		return "conflicting-keys"
	case MissingRequiredKey:
		return "missing-required-key"
	case UnbalancedDelimiters:
		return "unbalanced-delimiters"
	default:
		return "unknown"
	}
}

// ModelError reports one malformed construct. Errors are collected and the
// builder continues, so a single bad task never blocks analysis of the rest
// of the file.
type ModelError struct {
	Kind    ModelErrorKind
	File    string
	Span    token.Span
	Msg     string
	Warning bool
}

func (e ModelError) Error() string {
	return fmt.Sprintf("%s:%s: %s: %s", e.File, e.Span.Start, e.Kind, e.Msg)
}
