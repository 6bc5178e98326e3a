// Package register stores yanked text. A register holds one string per
// selection that was active at yank time, so a multi-selection paste
// can put each piece back at its own selection.
package register

import "errors"

// ErrInvalidName is returned for a register name outside '"' and a-z.
var ErrInvalidName = errors.New("invalid register name")

// Name identifies a register: the default register '"' or a named
// register 'a' through 'z'.
type Name byte

// Default is the register used when no name is given.
const Default Name = '"'

// IsValid reports whether n names a register.
func (n Name) IsValid() bool {
	return n == Default || (n >= 'a' && n <= 'z')
}

// String returns the register name as a string.
func (n Name) String() string {
	return string(rune(n))
}

// Registers is the set of all registers for one session.
// The zero value is not usable; use New.
type Registers struct {
	slots map[Name][]string
}

// New creates an empty register set.
func New() *Registers {
	return &Registers{slots: make(map[Name][]string)}
}

// Set stores the per-selection values into register n, replacing its
// previous content.
func (r *Registers) Set(n Name, values []string) error {
	if !n.IsValid() {
		return ErrInvalidName
	}
	stored := make([]string, len(values))
	copy(stored, values)
	r.slots[n] = stored
	return nil
}

// Get returns the per-selection values of register n. An unset or
// invalid register yields nil.
func (r *Registers) Get(n Name) []string {
	values, ok := r.slots[n]
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Clear empties register n.
func (r *Registers) Clear(n Name) {
	delete(r.slots, n)
}
