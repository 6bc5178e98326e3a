package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/dshills/selkie/plugin/security"
)

// Errors returned by manifest handling.
var (
	ErrNilManifest     = errors.New("nil manifest")
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Manifest describes a plugin's identity and requirements. It is the
// load-time contract: the capability list is everything the plugin may
// ever do, immutable for its lifetime.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Author      string `json:"author"`

	// Capabilities the plugin requests. Loading fails if any is not
	// allowed by the host policy.
	Capabilities []security.Capability `json:"capabilities"`

	// Modes the plugin contributes. Each is registered with the mode
	// registry under the plugin's ownership and removed on unload.
	Modes []ModeContribution `json:"modes"`
}

// ModeContribution declares a plugin-defined mode.
type ModeContribution struct {
	Name   string `json:"name"`   // Mode identifier (lowercase kebab-case)
	Parent string `json:"parent"` // Built-in mode supplying dispatch semantics
}

var manifestNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ParseManifest decodes and validates a JSON manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural problems.
func (m *Manifest) Validate() error {
	if m == nil {
		return ErrNilManifest
	}
	if !manifestNameRe.MatchString(m.Name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidManifest, m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidManifest)
	}
	for _, c := range m.Capabilities {
		if !security.Known(c) {
			return fmt.Errorf("%w: unknown capability %q", ErrInvalidManifest, c)
		}
	}
	for _, mc := range m.Modes {
		if !manifestNameRe.MatchString(mc.Name) {
			return fmt.Errorf("%w: bad mode name %q", ErrInvalidManifest, mc.Name)
		}
	}
	return nil
}
