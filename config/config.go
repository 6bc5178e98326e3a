// Package config holds the editor options and their TOML loader.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/selkie/plugin/security"
)

// ErrInvalidOptions is returned for out-of-range option values.
var ErrInvalidOptions = errors.New("invalid options")

// Options configures one editing session.
type Options struct {
	// TabWidth is the display width of a tab stop.
	TabWidth int `toml:"tab_width"`

	// HistoryLimit caps the undo depth per buffer. 0 means unlimited.
	HistoryLimit int `toml:"history_limit"`

	// Plugins configures the sandbox policy and budgets.
	Plugins Plugins `toml:"plugins"`
}

// Plugins is the plugin sandbox configuration.
type Plugins struct {
	// AllowedCapabilities is the host policy: the capabilities plugins
	// may request. A load requesting anything else is denied.
	AllowedCapabilities []string `toml:"allowed_capabilities"`

	// MemoryLimit in bytes per plugin (advisory).
	MemoryLimit int64 `toml:"memory_limit"`

	// ExecutionTimeoutMS bounds each plugin call, in milliseconds.
	ExecutionTimeoutMS int64 `toml:"execution_timeout_ms"`

	// InstructionLimit caps host-API crossings per plugin call.
	InstructionLimit int64 `toml:"instruction_limit"`
}

// Default returns the options used when no configuration is given:
// plugins may touch buffers and selections but not the filesystem.
func Default() Options {
	return Options{
		TabWidth:     4,
		HistoryLimit: 1000,
		Plugins: Plugins{
			AllowedCapabilities: []string{
				string(security.CapBufferRead),
				string(security.CapBufferMutate),
				string(security.CapSelectionRead),
				string(security.CapSelectionMove),
				string(security.CapTransaction),
			},
			MemoryLimit:        10 * 1024 * 1024,
			ExecutionTimeoutMS: 5000,
			InstructionLimit:   10_000_000,
		},
	}
}

// Load decodes TOML over the defaults, so absent keys keep their
// default values.
func Load(data []byte) (Options, error) {
	opts := Default()
	if err := toml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks option values for range errors.
func (o Options) Validate() error {
	if o.TabWidth < 1 {
		return fmt.Errorf("%w: tab_width must be at least 1", ErrInvalidOptions)
	}
	if o.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalidOptions)
	}
	if o.Plugins.ExecutionTimeoutMS < 0 {
		return fmt.Errorf("%w: execution_timeout_ms must not be negative", ErrInvalidOptions)
	}
	if o.Plugins.MemoryLimit < 0 {
		return fmt.Errorf("%w: memory_limit must not be negative", ErrInvalidOptions)
	}
	if o.Plugins.InstructionLimit < 0 {
		return fmt.Errorf("%w: instruction_limit must not be negative", ErrInvalidOptions)
	}
	for _, c := range o.Plugins.AllowedCapabilities {
		if !security.Known(security.Capability(c)) {
			return fmt.Errorf("%w: unknown capability %q", ErrInvalidOptions, c)
		}
	}
	return nil
}

// Policy returns the capability token plugins are granted against.
func (p Plugins) Policy() security.Token {
	caps := make([]security.Capability, len(p.AllowedCapabilities))
	for i, c := range p.AllowedCapabilities {
		caps[i] = security.Capability(c)
	}
	return security.NewToken(caps...)
}

// ResourceLimits returns the per-call budgets as the sandbox expects
// them.
func (p Plugins) ResourceLimits() security.ResourceLimits {
	return security.ResourceLimits{
		ExecutionTimeout: time.Duration(p.ExecutionTimeoutMS) * time.Millisecond,
		MemoryLimit:      p.MemoryLimit,
		InstructionLimit: p.InstructionLimit,
	}
}
