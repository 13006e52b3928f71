package model

import (
	"strings"

	"github.com/steplint-dev/steplint/pkg/parser"
)

// taskKeywords are the reserved task-level keys that never name a module.
var taskKeywords = map[string]bool{
	"action": true, "any_errors_fatal": true, "args": true, "async": true,
	"become": true, "become_flags": true, "become_method": true,
	"become_user": true, "block": true, "changed_when": true,
	"check_mode": true, "collections": true, "connection": true,
	"delay": true, "delegate_facts": true, "delegate_to": true,
	"diff": true, "environment": true, "failed_when": true,
	"ignore_errors": true, "ignore_unreachable": true, "listen": true,
	"local_action": true, "loop": true, "loop_control": true,
	"module_defaults": true, "name": true, "no_log": true, "notify": true,
	"poll": true, "port": true, "register": true, "remote_user": true,
	"rescue": true, "always": true, "retries": true, "run_once": true,
	"tags": true, "throttle": true, "timeout": true, "until": true,
	"vars": true, "when": true,
}

// IsTaskKeyword reports whether the key is a reserved task-level keyword.
func IsTaskKeyword(key string) bool {
	return taskKeywords[key] || strings.HasPrefix(key, "with_")
}

// playKeys identify a mapping as a play rather than a task.
var playKeys = []string{"hosts", "import_playbook", "gather_facts"}

// Build classifies a parsed document into an entity tree. Malformed
// constructs are recorded as ModelErrors and building continues; the returned
// tree always covers everything that could be classified.
func Build(doc *parser.Document) *Tree {
	t := &Tree{File: doc.File, Doc: doc}
	b := &builder{tree: t}
	root := doc.Root
	if root == nil {
		return t
	}
	root = root.Resolve()

	if !root.IsSequence() {
		t.Errors = append(t.Errors, ModelError{
			Kind: UnknownEntityShape,
			File: t.File,
			Span: root.Span,
			Msg:  "document root must be a sequence of plays or tasks",
		})
		return t
	}

	if isPlaybook(root) {
		for _, item := range root.Items() {
			b.buildPlay(item)
		}
	} else {
		// Bare task file (a role's tasks/ or handlers/ entry).
		for _, item := range root.Items() {
			b.buildTaskOrBlock(item, NoParent, GroupMain, KindTask)
		}
	}
	return t
}

func isPlaybook(root *parser.Node) bool {
	for _, item := range root.Items() {
		item = item.Resolve()
		if !item.IsMapping() {
			continue
		}
		for _, key := range playKeys {
			if item.Get(key) != nil {
				return true
			}
		}
	}
	return false
}

type builder struct {
	tree *Tree
}

// alloc appends an entity and returns its arena index. Entities must be
// addressed by index afterwards: the arena slice may move as it grows.
func (b *builder) alloc(e Entity) int {
	e.ID = len(b.tree.Entities)
	b.tree.Entities = append(b.tree.Entities, e)
	if e.Parent == NoParent {
		b.tree.Roots = append(b.tree.Roots, e.ID)
	}
	return e.ID
}

func (b *builder) errf(kind ModelErrorKind, n *parser.Node, msg string) {
	b.tree.Errors = append(b.tree.Errors, ModelError{
		Kind: kind,
		File: b.tree.File,
		Span: n.Span,
		Msg:  msg,
	})
}

func (b *builder) buildPlay(n *parser.Node) {
	n = n.Resolve()
	if !n.IsMapping() {
		b.errf(UnknownEntityShape, n, "play must be a mapping")
		return
	}
	attrs, order := attrMap(n)
	id := b.alloc(Entity{
		Kind:      KindPlay,
		Name:      scalarValue(n.Get("name")),
		Node:      n,
		Span:      n.Span,
		Attrs:     attrs,
		AttrOrder: order,
		Parent:    NoParent,
		Suppress:  b.collectSuppressions(n),
	})

	for _, section := range []string{"pre_tasks", "tasks", "post_tasks"} {
		b.buildTaskList(n.Get(section), id, KindTask)
	}
	b.buildTaskList(n.Get("handlers"), id, KindHandler)
	b.buildRoles(n.Get("roles"), id)
}

func (b *builder) buildTaskList(list *parser.Node, parent int, kind Kind) {
	if list == nil {
		return
	}
	list = list.Resolve()
	if !list.IsSequence() {
		b.errf(UnknownEntityShape, list, "expected a sequence of tasks")
		return
	}
	for _, item := range list.Items() {
		b.buildTaskOrBlock(item, parent, GroupMain, kind)
	}
}

func (b *builder) buildRoles(list *parser.Node, parent int) {
	if list == nil {
		return
	}
	list = list.Resolve()
	if !list.IsSequence() {
		b.errf(UnknownEntityShape, list, "roles must be a sequence")
		return
	}
	for _, item := range list.Items() {
		item = item.Resolve()
		role := Entity{Kind: KindRole, Node: item, Span: item.Span, Parent: parent}
		switch {
		case item.IsScalar():
			role.Name = item.Value
		case item.IsMapping():
			name := item.Get("role")
			if name == nil {
				b.errf(MissingRequiredKey, item, "role entry is missing the role key")
				continue
			}
			role.Name = scalarValue(name)
			role.Attrs, role.AttrOrder = attrMap(item)
			role.Suppress = b.collectSuppressions(item)
		default:
			b.errf(UnknownEntityShape, item, "role entry must be a string or mapping")
			continue
		}
		id := b.alloc(role)
		b.link(parent, id, GroupMain)
	}
}

// buildTaskOrBlock classifies one item of a task list. kind selects between
// KindTask and KindHandler for leaf entities; blocks keep their own kind.
func (b *builder) buildTaskOrBlock(n *parser.Node, parent int, group Group, kind Kind) {
	n = n.Resolve()
	if !n.IsMapping() {
		b.errf(UnknownEntityShape, n, "task must be a mapping")
		return
	}

	if n.Get("block") != nil {
		b.buildBlock(n, parent, group, kind)
		return
	}

	attrs, order := attrMap(n)
	e := Entity{
		Kind:      kind,
		Name:      scalarValue(n.Get("name")),
		Node:      n,
		Span:      n.Span,
		Attrs:     attrs,
		AttrOrder: order,
		Parent:    parent,
		Group:     group,
		Loop:      b.resolveLoop(n),
		Tags:      scalarList(n.Get("tags")),
		Suppress:  b.collectSuppressions(n),
	}

	if when := n.Get("when"); when != nil {
		e.WhenNode = when
		e.When = conditionText(when)
	}
	if become := n.Get("become"); become != nil {
		if v, ok := become.Resolve().BoolValue(); ok {
			e.Become = v
		}
	}

	var moduleKey, moduleValue *parser.Node
	for _, entry := range n.Entries() {
		if !entry.Key.IsScalar() || !IsModuleKey(entry.Key.Value) {
			continue
		}
		if moduleKey != nil {
			b.errf(ConflictingKeys, entry.Key,
				"task invokes both "+moduleKey.Value+" and "+entry.Key.Value+"; using "+moduleKey.Value)
			continue
		}
		moduleKey, moduleValue = entry.Key, entry.Value
	}
	if moduleKey != nil {
		e.Call = resolveModuleCall(moduleKey, moduleValue)
	} else {
		b.errf(MissingRequiredKey, n, "task does not invoke a module")
	}

	// Variable references from every scalar attribute value.
	for _, entry := range n.Entries() {
		e.Vars = append(e.Vars, b.collectTemplates(entry.Value)...)
	}

	id := b.alloc(e)
	b.link(parent, id, group)
}

func (b *builder) buildBlock(n *parser.Node, parent int, group Group, childKind Kind) {
	attrs, order := attrMap(n)
	id := b.alloc(Entity{
		Kind:      KindBlock,
		Name:      scalarValue(n.Get("name")),
		Node:      n,
		Span:      n.Span,
		Attrs:     attrs,
		AttrOrder: order,
		Parent:    parent,
		Group:     group,
		Tags:      scalarList(n.Get("tags")),
		Suppress:  b.collectSuppressions(n),
	})
	b.link(parent, id, group)

	b.buildBlockGroup(n.Get("block"), id, GroupMain, childKind)
	b.buildBlockGroup(n.Get("rescue"), id, GroupRescue, childKind)
	b.buildBlockGroup(n.Get("always"), id, GroupAlways, childKind)
}

func (b *builder) buildBlockGroup(list *parser.Node, parent int, group Group, childKind Kind) {
	if list == nil {
		return
	}
	list = list.Resolve()
	if !list.IsSequence() {
		b.errf(UnknownEntityShape, list, "block section must be a sequence of tasks")
		return
	}
	for _, item := range list.Items() {
		b.buildTaskOrBlock(item, parent, group, childKind)
	}
}

func (b *builder) link(parent, child int, group Group) {
	p := b.tree.Entity(parent)
	if p == nil {
		return
	}
	switch group {
	case GroupRescue:
		p.Rescue = append(p.Rescue, child)
	case GroupAlways:
		p.Always = append(p.Always, child)
	default:
		p.Children = append(p.Children, child)
	}
}

func attrMap(n *parser.Node) (map[string]*parser.Node, []string) {
	entries := n.Entries()
	attrs := make(map[string]*parser.Node, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Key.IsScalar() {
			continue
		}
		if _, dup := attrs[e.Key.Value]; dup {
			continue
		}
		attrs[e.Key.Value] = e.Value
		order = append(order, e.Key.Value)
	}
	return attrs, order
}

func scalarValue(n *parser.Node) string {
	if n = n.Resolve(); n.IsScalar() {
		return n.Value
	}
	return ""
}

func scalarList(n *parser.Node) []string {
	if n == nil {
		return nil
	}
	n = n.Resolve()
	switch {
	case n.IsScalar():
		if n.Value == "" {
			return nil
		}
		return []string{n.Value}
	case n.IsSequence():
		var out []string
		for _, item := range n.Items() {
			if item = item.Resolve(); item.IsScalar() {
				out = append(out, item.Value)
			}
		}
		return out
	}
	return nil
}

// conditionText flattens a when value to its raw expression text. List-form
// conditions are implicitly conjunctive.
func conditionText(n *parser.Node) string {
	n = n.Resolve()
	switch {
	case n.IsScalar():
		return n.Value
	case n.IsSequence():
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Items() {
			if item = item.Resolve(); item.IsScalar() {
				parts = append(parts, item.Value)
			}
		}
		return strings.Join(parts, " and ")
	}
	return ""
}
