package lint

import (
	"fmt"
	"sync"
)

// RuleRegistrationError is fatal at startup: a broken rule registry must not
// silently run partial rules.
type RuleRegistrationError struct {
	ID  string
	Msg string
}

func (e *RuleRegistrationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("rule registration: %s: %s", e.ID, e.Msg)
	}
	return "rule registration: " + e.Msg
}

// Registry holds rule descriptors. It is built explicitly at process start,
// frozen, and then passed by reference into the engines; after Freeze it is
// read-only and safe for unsynchronized concurrent reads.
type Registry struct {
	mu     sync.RWMutex
	rules  map[string]RuleDef
	order  []string
	frozen bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]RuleDef)}
}

// Register adds a rule descriptor. Duplicate ids, missing check functions and
// registration after Freeze are RuleRegistrationErrors.
func (r *Registry) Register(def RuleDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return &RuleRegistrationError{ID: def.ID, Msg: "registry is frozen"}
	}
	if def.ID == "" {
		return &RuleRegistrationError{Msg: "rule id must not be empty"}
	}
	if def.ID == InternalRuleID {
		return &RuleRegistrationError{ID: def.ID, Msg: "rule id is reserved"}
	}
	if def.Check == nil {
		return &RuleRegistrationError{ID: def.ID, Msg: "rule has no check function"}
	}
	if _, dup := r.rules[def.ID]; dup {
		return &RuleRegistrationError{ID: def.ID, Msg: "duplicate rule id"}
	}
	r.rules[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// MustRegister is Register for static catalogs whose ids are known good.
func (r *Registry) MustRegister(def RuleDef) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Freeze makes the registry immutable. It returns the registry for chaining.
func (r *Registry) Freeze() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	return r
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns a rule by id.
func (r *Registry) Get(id string) (RuleDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.rules[id]
	return def, ok
}

// Has reports whether the id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// All returns descriptors in registration order. Deterministic ordering here
// is part of the determinism contract for whole runs.
func (r *Registry) All() []RuleDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RuleDef, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
