// Package mode defines the editor modes and the mode registry.
//
// The built-in modes form a closed set; plugins may register additional
// modes through the registry, each anchored to a built-in parent that
// supplies its dispatch semantics.
package mode

import (
	"errors"
	"fmt"
	"regexp"
)

// Errors returned by registry operations.
var (
	ErrModeExists    = errors.New("mode already registered")
	ErrModeUnknown   = errors.New("unknown mode")
	ErrInvalidName   = errors.New("invalid mode name")
	ErrInvalidParent = errors.New("parent must be a built-in mode")
	ErrBuiltinMode   = errors.New("built-in modes cannot be unregistered")
)

// Name identifies a mode.
type Name string

// Built-in modes.
const (
	Normal      Name = "normal"
	Insert      Name = "insert"
	CommandLine Name = "command-line"
)

// IsBuiltin reports whether n names a built-in mode.
func (n Name) IsBuiltin() bool {
	return n == Normal || n == Insert || n == CommandLine
}

// Definition describes one registered mode.
type Definition struct {
	// Name is the unique mode identifier.
	Name Name

	// Parent supplies dispatch semantics for plugin-defined modes: the
	// engine treats unbound tokens in this mode as it would in Parent.
	// Built-in modes have no parent.
	Parent Name

	// Owner names the plugin that registered the mode; empty for
	// built-in modes.
	Owner string
}

// Builtin reports whether the definition is one of the built-in modes.
func (d Definition) Builtin() bool {
	return d.Owner == "" && d.Name.IsBuiltin()
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Registry holds every known mode. The built-in modes are always
// present; plugin modes come and go with their owner.
type Registry struct {
	modes map[Name]Definition
}

// NewRegistry creates a registry seeded with the built-in modes.
func NewRegistry() *Registry {
	r := &Registry{modes: make(map[Name]Definition)}
	for _, n := range []Name{Normal, Insert, CommandLine} {
		r.modes[n] = Definition{Name: n}
	}
	return r
}

// Register validates and adds a plugin-defined mode. The name must be
// lowercase kebab-case and unused; the parent must be built-in; the
// owner must be non-empty.
func (r *Registry) Register(def Definition) error {
	if def.Owner == "" {
		return fmt.Errorf("%w: registration requires an owner", ErrInvalidName)
	}
	if !nameRe.MatchString(string(def.Name)) {
		return fmt.Errorf("%w: %q", ErrInvalidName, def.Name)
	}
	if !def.Parent.IsBuiltin() {
		return fmt.Errorf("%w: %q", ErrInvalidParent, def.Parent)
	}
	if _, ok := r.modes[def.Name]; ok {
		return fmt.Errorf("%w: %q", ErrModeExists, def.Name)
	}
	r.modes[def.Name] = def
	return nil
}

// Unregister removes a plugin-defined mode. Built-in modes cannot be
// removed.
func (r *Registry) Unregister(name Name) error {
	def, ok := r.modes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrModeUnknown, name)
	}
	if def.Builtin() {
		return fmt.Errorf("%w: %q", ErrBuiltinMode, name)
	}
	delete(r.modes, name)
	return nil
}

// UnregisterOwned removes every mode registered by the named plugin.
func (r *Registry) UnregisterOwned(owner string) {
	for name, def := range r.modes {
		if def.Owner == owner {
			delete(r.modes, name)
		}
	}
}

// Lookup returns the definition for a mode name.
func (r *Registry) Lookup(name Name) (Definition, bool) {
	def, ok := r.modes[name]
	return def, ok
}

// Resolve returns the built-in mode whose semantics apply in the given
// mode: the mode itself if built-in, otherwise its parent. Unknown
// modes resolve to Normal.
func (r *Registry) Resolve(name Name) Name {
	def, ok := r.modes[name]
	if !ok {
		return Normal
	}
	if def.Builtin() {
		return def.Name
	}
	return def.Parent
}
