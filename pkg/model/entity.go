// Package model builds the domain entity tree from a parsed node tree.
//
// Entities live in an arena owned by the Tree; parent links are indices into
// that arena, never owning references, so ancestor walks are O(1) per step
// without cyclic ownership.
package model

import (
	"github.com/steplint-dev/steplint/pkg/parser"
	"github.com/steplint-dev/steplint/pkg/token"
)

// Kind discriminates the entity variants.
type Kind uint8

// Entity kinds.
const (
	KindPlay Kind = iota + 1
	KindRole
	KindBlock
	KindTask
	KindHandler
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlay:
		return "play"
	case KindRole:
		return "role"
	case KindBlock:
		return "block"
	case KindTask:
		return "task"
	case KindHandler:
		return "handler"
	default:
		return "unknown"
	}
}

// Group tags which child group of a block an entity belongs to. Rescue and
// always children are never merged into the main child list; rules that care
// about error-handling semantics query these groups explicitly.
type Group uint8

// Child groups.
const (
	GroupMain Group = iota
	GroupRescue
	GroupAlways
)

// NoParent marks a root entity's parent index.
const NoParent = -1

// Entity is one classified unit of the playbook: a play, role, block, task or
// handler. Fields that only apply to tasks are zero-valued elsewhere.
type Entity struct {
	ID   int
	Kind Kind
	Name string

	// Node is the defining parsed node; Span is its exact source extent.
	Node *parser.Node
	Span token.Span

	// Attrs is the raw attribute mapping in declaration order.
	Attrs     map[string]*parser.Node
	AttrOrder []string

	Parent   int // arena index, NoParent for roots
	Group    Group
	Children []int
	Rescue   []int // blocks only
	Always   []int // blocks only

	// Task fields.
	Call     *ModuleCall
	When     string // raw conditional expression, unparsed
	WhenNode *parser.Node
	Loop     *LoopSpec
	Tags     []string
	Become   bool

	Vars     []VariableReference
	Suppress []Suppression
}

// Attr returns the raw value node of an attribute, or nil.
func (e *Entity) Attr(key string) *parser.Node {
	return e.Attrs[key]
}

// HasAttr reports whether the entity declares the attribute.
func (e *Entity) HasAttr(key string) bool {
	_, ok := e.Attrs[key]
	return ok
}

// Suppression is an inline noqa directive attached to an entity.
type Suppression struct {
	All   bool
	Rules []string
	Span  token.Span
}

// Matches reports whether the directive names the rule id.
func (s Suppression) Matches(ruleID string) bool {
	if s.All {
		return true
	}
	for _, r := range s.Rules {
		if r == ruleID {
			return true
		}
	}
	return false
}

// Tree is the arena-owned entity tree for one file. It is rebuilt from
// scratch per file per analysis pass; nothing persists across files.
type Tree struct {
	File     string
	Doc      *parser.Document
	Entities []Entity
	Roots    []int
	Errors   []ModelError
}

// Entity returns the entity at an arena index, or nil if out of range.
func (t *Tree) Entity(id int) *Entity {
	if id < 0 || id >= len(t.Entities) {
		return nil
	}
	return &t.Entities[id]
}

// ParentOf returns the parent entity, or nil for roots.
func (t *Tree) ParentOf(e *Entity) *Entity {
	if e == nil || e.Parent == NoParent {
		return nil
	}
	return t.Entity(e.Parent)
}

// Ancestors returns the chain of ancestors from the immediate parent up.
func (t *Tree) Ancestors(e *Entity) []*Entity {
	var out []*Entity
	for p := t.ParentOf(e); p != nil; p = t.ParentOf(p) {
		out = append(out, p)
	}
	return out
}

// InRescue reports whether the entity sits inside a rescue group of any
// ancestor block.
func (t *Tree) InRescue(e *Entity) bool {
	for cur := e; cur != nil; cur = t.ParentOf(cur) {
		if cur.Group == GroupRescue {
			return true
		}
	}
	return false
}

// Walk visits entities in pre-order, main children before rescue and always
// groups. The walk stops when fn returns false.
func (t *Tree) Walk(fn func(*Entity) bool) {
	var visit func(id int) bool
	visit = func(id int) bool {
		e := t.Entity(id)
		if e == nil {
			return true
		}
		if !fn(e) {
			return false
		}
		for _, groups := range [][]int{e.Children, e.Rescue, e.Always} {
			for _, child := range groups {
				if !visit(child) {
					return false
				}
			}
		}
		return true
	}
	for _, root := range t.Roots {
		if !visit(root) {
			return
		}
	}
}
