// Package plugin is the sandbox boundary: it loads untrusted Lua guest
// code into a restricted runtime and mediates every call the guest
// makes against its capability token and resource budget.
//
// The guest sees a single global table `ed` whose functions map onto
// the editing core. Mutations run inside host-managed transactions (via
// the Target implementation), so plugin edits are undoable like any
// user edit. A guest can never panic the host: guest errors, capability
// violations, and budget overruns all surface as error returns from
// Load and Call.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/selkie/plugin/security"
)

// Errors returned by host operations.
var (
	ErrNotLoaded     = errors.New("plugin not loaded")
	ErrAlreadyLoaded = errors.New("plugin already loaded")
	ErrNoFunction    = errors.New("plugin function not found")
	ErrNilTarget     = errors.New("nil plugin target")
)

// SelectionPos is one selection as seen across the boundary.
type SelectionPos struct {
	Anchor int64
	Cursor int64
}

// Target is the editing surface a plugin acts on. The session
// implements it; Insert and Delete must wrap their edits in
// transactions so plugin mutations remain undoable.
type Target interface {
	Text() string
	Len() int64
	TextRange(start, end int64) (string, error)
	Selections() []SelectionPos
	Insert(at int64, text string) error
	Delete(start, end int64) error
	Move(movement string, count int) error
}

// Host owns one plugin instance: its Lua state, capability token, and
// resource monitor. All guest execution is serialized under the host
// mutex; gopher-lua states are not goroutine-safe.
type Host struct {
	mu sync.Mutex

	name     string
	manifest *Manifest
	token    security.Token
	monitor  *security.Monitor
	target   Target

	state *lua.LState

	// callErr carries the boundary error of the current guest call:
	// API functions set it before raising a Lua error so the sentinel
	// survives the trip through the VM.
	callErr error
}

// Option configures a Host.
type Option func(*Host)

// WithResourceLimits overrides the default per-call budgets.
func WithResourceLimits(limits security.ResourceLimits) Option {
	return func(h *Host) {
		h.monitor = security.NewMonitor(limits)
	}
}

// NewHost grants the manifest's requested capabilities against the
// host policy and prepares a host. Fails with ErrCapabilityDenied when
// the policy does not allow a requested capability.
func NewHost(manifest *Manifest, policy security.Token, target Target, opts ...Option) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNilTarget
	}

	token, err := security.Grant(manifest.Capabilities, policy)
	if err != nil {
		return nil, err
	}

	h := &Host{
		name:     manifest.Name,
		manifest: manifest,
		token:    token,
		monitor:  security.NewMonitor(security.DefaultResourceLimits()),
		target:   target,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// Capabilities returns the granted capability token.
func (h *Host) Capabilities() security.Token {
	return h.token
}

// Load creates the sandboxed Lua state and executes the plugin source
// under the call budget. The source's top level typically defines the
// functions later invoked through Call.
func (h *Host) Load(ctx context.Context, src []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != nil {
		return ErrAlreadyLoaded
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	h.installAPI(L)
	h.state = L

	if err := h.runLocked(ctx, func(L *lua.LState) error {
		return L.DoString(string(src))
	}); err != nil {
		L.Close()
		h.state = nil
		return err
	}
	return nil
}

// Call invokes a global function defined by the plugin, with no
// arguments. Each call gets a fresh resource budget.
func (h *Host) Call(ctx context.Context, fn string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == nil {
		return ErrNotLoaded
	}
	return h.runLocked(ctx, func(L *lua.LState) error {
		f := L.GetGlobal(fn)
		if f == lua.LNil {
			return fmt.Errorf("%w: %s", ErrNoFunction, fn)
		}
		return L.CallByParam(lua.P{Fn: f, NRet: 0, Protect: true})
	})
}

// Close tears down the Lua state. Safe to call repeatedly.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
}

// runLocked executes one guest entry under panic recovery, the call
// timeout, and a fresh instruction budget. Must hold h.mu.
func (h *Host) runLocked(ctx context.Context, fn func(L *lua.LState) error) error {
	h.callErr = nil
	h.monitor.Reset()

	cctx, cancel := h.monitor.CallContext(ctx)
	defer cancel()
	h.state.SetContext(cctx)
	defer h.state.RemoveContext()

	err := protect(func() error { return fn(h.state) })

	if h.callErr != nil {
		return fmt.Errorf("plugin %s: %w", h.name, h.callErr)
	}
	if err != nil {
		if cctx.Err() != nil {
			return fmt.Errorf("plugin %s: %w: %v", h.name, security.ErrResourceExhausted, cctx.Err())
		}
		return fmt.Errorf("plugin %s: %w", h.name, err)
	}
	return nil
}

// protect converts a guest panic into an error so a misbehaving plugin
// cannot take down the host process.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = fmt.Errorf("plugin panic: %v", r)
			}
		}
	}()
	return fn()
}

// openSafeLibraries opens only the side-effect-free parts of the Lua
// standard library. io, os, debug, and package stay closed; load and
// its variants are removed so guests cannot smuggle code past the
// sandboxed source.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}
