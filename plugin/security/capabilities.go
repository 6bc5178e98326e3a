// Package security provides the capability and resource-limit
// primitives the plugin sandbox enforces.
package security

import (
	"errors"
	"fmt"
	"sort"
)

// Errors raised at the sandbox boundary.
var (
	// ErrCapabilityDenied rejects a plugin load whose manifest requests
	// a capability the host policy does not allow.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrCapabilityViolation rejects a single plugin call outside the
	// granted capability set.
	ErrCapabilityViolation = errors.New("capability violation")

	// ErrResourceExhausted aborts a plugin call that exceeded its time
	// or instruction budget.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Capability names a permission a plugin can request.
type Capability string

// Capabilities plugins can request.
const (
	// CapBufferRead allows reading buffer content.
	CapBufferRead Capability = "buffer.read"

	// CapBufferMutate allows inserting and deleting buffer content.
	// Mutations always run inside a host-managed transaction, so this
	// implies CapTransaction.
	CapBufferMutate Capability = "buffer.mutate"

	// CapSelectionRead allows reading the selection set.
	CapSelectionRead Capability = "selection.read"

	// CapSelectionMove allows applying movements to the selection set.
	CapSelectionMove Capability = "selection.move"

	// CapTransaction allows the plugin's mutations to spawn undoable
	// transactions.
	CapTransaction Capability = "transaction.spawn"

	// CapFilesystem allows filesystem access through host-provided
	// functions. No core operation needs it; it exists so hosts can
	// gate their own extensions.
	CapFilesystem Capability = "filesystem.access"
)

// implies maps a capability to the ones it grants transitively.
var implies = map[Capability][]Capability{
	CapBufferMutate:  {CapBufferRead, CapTransaction},
	CapSelectionMove: {CapSelectionRead},
}

var known = map[Capability]bool{
	CapBufferRead:    true,
	CapBufferMutate:  true,
	CapSelectionRead: true,
	CapSelectionMove: true,
	CapTransaction:   true,
	CapFilesystem:    true,
}

// Known reports whether c names a defined capability.
func Known(c Capability) bool {
	return known[c]
}

// Token is the immutable capability set granted to one plugin instance
// at load time.
type Token struct {
	caps map[Capability]bool
}

// NewToken creates a token granting exactly the given capabilities.
func NewToken(caps ...Capability) Token {
	t := Token{caps: make(map[Capability]bool, len(caps))}
	for _, c := range caps {
		t.caps[c] = true
	}
	return t
}

// Has reports whether the token grants c, directly or through an
// implying capability.
func (t Token) Has(c Capability) bool {
	if t.caps[c] {
		return true
	}
	for granted := range t.caps {
		for _, implied := range implies[granted] {
			if implied == c {
				return true
			}
		}
	}
	return false
}

// List returns the directly granted capabilities, sorted.
func (t Token) List() []Capability {
	out := make([]Capability, 0, len(t.caps))
	for c := range t.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check returns ErrCapabilityViolation if the token does not grant c.
func (t Token) Check(c Capability) error {
	if !t.Has(c) {
		return fmt.Errorf("%w: %s", ErrCapabilityViolation, c)
	}
	return nil
}

// Grant computes the capability token for a load request: every
// requested capability must be known and allowed by the host policy,
// otherwise the load is rejected with ErrCapabilityDenied. The granted
// set is exactly the requested set.
func Grant(requested []Capability, policy Token) (Token, error) {
	for _, c := range requested {
		if !Known(c) {
			return Token{}, fmt.Errorf("%w: unknown capability %q", ErrCapabilityDenied, c)
		}
		if !policy.Has(c) {
			return Token{}, fmt.Errorf("%w: %s", ErrCapabilityDenied, c)
		}
	}
	return NewToken(requested...), nil
}
