// Package schema validates module call arguments against externally supplied
// per-module option schemas.
package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Option describes one module option.
type Option struct {
	// Type is the declared value type: str, int, bool, float, list, dict,
	// path or raw. Empty and raw accept anything.
	Type     string   `mapstructure:"type"`
	Required bool     `mapstructure:"required"`
	Aliases  []string `mapstructure:"aliases"`

	// DeprecatedAliases are accepted spellings that should be rewritten to
	// the canonical option name.
	DeprecatedAliases []string `mapstructure:"deprecated_aliases"`
	DeprecatedSince   string   `mapstructure:"deprecated_since"`

	Choices []string `mapstructure:"choices"`
}

// ModuleSchema is the options schema of one module.
type ModuleSchema struct {
	Options           map[string]Option `mapstructure:"options"`
	MutuallyExclusive [][]string        `mapstructure:"mutually_exclusive"`
	RequiredTogether  [][]string        `mapstructure:"required_together"`
}

// resolution describes how an argument name maps into the schema.
type resolution struct {
	canonical  string
	deprecated bool
}

// resolve maps an argument name to its canonical option. Options are checked
// in sorted order so an alias declared on two options always resolves the
// same way.
func (m ModuleSchema) resolve(name string) (resolution, bool) {
	if _, ok := m.Options[name]; ok {
		return resolution{canonical: name}, true
	}
	for _, canonical := range sortedOptionNames(m.Options) {
		opt := m.Options[canonical]
		for _, alias := range opt.Aliases {
			if alias == name {
				return resolution{canonical: canonical}, true
			}
		}
		for _, alias := range opt.DeprecatedAliases {
			if alias == name {
				return resolution{canonical: canonical, deprecated: true}, true
			}
		}
	}
	return resolution{}, false
}

// Error reports missing or unparseable schema data for one module. It
// degrades that module's validation to skipped; it is never fatal.
type Error struct {
	Module string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Module, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Catalog maps module ids to their schemas. It is read-only after loading.
type Catalog struct {
	modules map[string]ModuleSchema
	errors  []*Error
}

// NewCatalog builds a catalog from already-decoded schemas.
func NewCatalog(modules map[string]ModuleSchema) *Catalog {
	if modules == nil {
		modules = map[string]ModuleSchema{}
	}
	return &Catalog{modules: modules}
}

// Lookup returns the schema for a module id.
func (c *Catalog) Lookup(module string) (ModuleSchema, bool) {
	if c == nil {
		return ModuleSchema{}, false
	}
	m, ok := c.modules[module]
	return m, ok
}

// Modules returns the catalogued module ids, sorted.
func (c *Catalog) Modules() []string {
	out := make([]string, 0, len(c.modules))
	for id := range c.modules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Errors returns per-module load errors. Affected modules are absent from the
// catalog; their validation is skipped.
func (c *Catalog) Errors() []*Error { return c.errors }

// Parse decodes schema data: a YAML mapping from module id to module schema.
// A module whose entry cannot be decoded is skipped and recorded, never
// fatal; only unreadable YAML fails the whole load.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Msg: "unparseable schema data", Err: err}
	}
	cat := NewCatalog(nil)
	for module, entry := range raw {
		var ms ModuleSchema
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &ms,
			ErrorUnused: true,
		})
		if err == nil {
			err = dec.Decode(entry)
		}
		if err != nil {
			cat.errors = append(cat.errors, &Error{
				Module: module,
				Msg:    "unparseable module schema, validation skipped",
				Err:    err,
			})
			continue
		}
		cat.modules[module] = ms
	}
	return cat, nil
}

// LoadFile reads and parses a schema catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Msg: "missing schema data", Err: err}
	}
	return Parse(data)
}
