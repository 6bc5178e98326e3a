// Package selkie is the editing core of a modal, selection-centric
// text editor: buffers with reversible edit history, multi-selection
// command dispatch, and a capability-restricted plugin boundary, all
// behind one Session facade. Rendering, input decoding, and file I/O
// belong to the host front-end.
package selkie

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/selkie/buffer"
	"github.com/dshills/selkie/config"
	"github.com/dshills/selkie/engine"
	"github.com/dshills/selkie/history"
	"github.com/dshills/selkie/mode"
	"github.com/dshills/selkie/plugin"
	"github.com/dshills/selkie/register"
	"github.com/dshills/selkie/selection"
)

// Errors returned by session operations.
var (
	ErrUnknownBuffer = errors.New("unknown buffer")
	ErrUnknownPlugin = errors.New("unknown plugin")
	ErrPluginExists  = errors.New("plugin already loaded")
)

// BufferID is the stable handle for one open buffer.
type BufferID string

// bufferState bundles everything scoped to one buffer: its content,
// its selection set, and its history. Switching the active buffer
// switches all three together.
type bufferState struct {
	buf  *buffer.Buffer
	sels *selection.Set
	hist *history.History
}

// Session is one independent editing context. Multiple sessions can
// coexist in a process; nothing is shared between them.
//
// All methods are safe for concurrent use, but editing itself is
// serialized: one command (or plugin call) runs at a time.
type Session struct {
	mu sync.Mutex

	opts    config.Options
	modes   *mode.Registry
	regs    *register.Registers
	eng     *engine.Engine
	buffers map[BufferID]*bufferState
	plugins map[string]*plugin.Host
	active  BufferID
}

// NewSession creates a session with the given options.
func NewSession(opts config.Options) *Session {
	modes := mode.NewRegistry()
	regs := register.New()
	return &Session{
		opts:    opts,
		modes:   modes,
		regs:    regs,
		eng:     engine.New(modes, regs),
		buffers: make(map[BufferID]*bufferState),
		plugins: make(map[string]*plugin.Host),
	}
}

// Open creates a buffer with the given content and makes it active.
func (s *Session) Open(content string) BufferID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := BufferID(uuid.NewString())
	s.buffers[id] = &bufferState{
		buf:  buffer.FromString(content),
		sels: selection.NewSetAt(0),
		hist: history.New(s.opts.HistoryLimit),
	}
	s.active = id
	return id
}

// Close discards a buffer, its selections, and its history.
func (s *Session) Close(id BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buffers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	delete(s.buffers, id)
	if s.active == id {
		s.active = ""
		for other := range s.buffers {
			s.active = other
			break
		}
	}
	return nil
}

// SetActive selects the buffer plugin calls act on.
func (s *Session) SetActive(id BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buffers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	s.active = id
	return nil
}

// Active returns the active buffer handle, or "" if none is open.
func (s *Session) Active() BufferID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SelectionPos is one selection in a view state or snapshot.
type SelectionPos struct {
	Anchor int64 `json:"anchor"`
	Cursor int64 `json:"cursor"`
}

// ViewState is what a front-end needs to render after a command.
type ViewState struct {
	Selections []SelectionPos
	Primary    int
	Mode       mode.Name
	Dirty      bool
}

// Submit dispatches one key token against a buffer. The view state is
// valid even when an error (such as an empty undo stack) is returned.
func (s *Session) Submit(id BufferID, token string, prefix int) (ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return ViewState{}, fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}

	err := s.eng.Handle(engine.Context{
		Buffer:     st.buf,
		Selections: st.sels,
		History:    st.hist,
	}, token, prefix)

	return s.viewLocked(st), err
}

// Undo reverts the most recent transaction on a buffer.
func (s *Session) Undo(id BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	sels, err := st.hist.Undo(st.buf)
	if err != nil {
		return err
	}
	st.sels.Restore(sels)
	return nil
}

// Redo replays the most recently undone transaction on a buffer.
func (s *Session) Redo(id BufferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	sels, err := st.hist.Redo(st.buf)
	if err != nil {
		return err
	}
	st.sels.Restore(sels)
	return nil
}

// Dump is the full buffer content plus its revision, for persistence
// by the host's file writer.
type Dump struct {
	Content  string
	Revision buffer.Revision
}

// Dump returns the content and revision of a buffer.
func (s *Session) Dump(id BufferID) (Dump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return Dump{}, fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	return Dump{Content: st.buf.Text(), Revision: st.buf.Revision()}, nil
}

// View returns the current view state of a buffer without dispatching
// a command.
func (s *Session) View(id BufferID) (ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return ViewState{}, fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}
	return s.viewLocked(st), nil
}

func (s *Session) viewLocked(st *bufferState) ViewState {
	sels := st.sels.All()
	out := make([]SelectionPos, len(sels))
	for i, sel := range sels {
		out[i] = SelectionPos{Anchor: sel.Anchor, Cursor: sel.Cursor}
	}
	return ViewState{
		Selections: out,
		Primary:    st.sels.PrimaryIndex(),
		Mode:       s.eng.Mode(),
		Dirty:      st.hist.Depth() > 0,
	}
}

// LoadPlugin grants capabilities per the session policy, registers the
// plugin's contributed modes, and executes its source in the sandbox.
// The returned host is owned by the session until UnloadPlugin.
func (s *Session) LoadPlugin(src []byte, manifest *plugin.Manifest) (*plugin.Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if manifest == nil {
		return nil, plugin.ErrNilManifest
	}
	if _, ok := s.plugins[manifest.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginExists, manifest.Name)
	}

	host, err := plugin.NewHost(manifest, s.opts.Plugins.Policy(), &pluginTarget{s: s},
		plugin.WithResourceLimits(s.opts.Plugins.ResourceLimits()))
	if err != nil {
		return nil, err
	}

	for _, mc := range manifest.Modes {
		err := s.modes.Register(mode.Definition{
			Name:   mode.Name(mc.Name),
			Parent: mode.Name(mc.Parent),
			Owner:  manifest.Name,
		})
		if err != nil {
			s.modes.UnregisterOwned(manifest.Name)
			return nil, err
		}
	}

	if err := host.Load(context.Background(), src); err != nil {
		s.modes.UnregisterOwned(manifest.Name)
		host.Close()
		return nil, err
	}

	s.plugins[manifest.Name] = host
	return host, nil
}

// CallPlugin invokes a function a loaded plugin defined, under its
// capability token and budgets.
func (s *Session) CallPlugin(name, fn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	host, ok := s.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	return host.Call(context.Background(), fn)
}

// UnloadPlugin tears down a plugin, removing its contributed modes.
func (s *Session) UnloadPlugin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	host, ok := s.plugins[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}
	host.Close()
	delete(s.plugins, name)
	s.modes.UnregisterOwned(name)

	// The active mode may have just been unregistered.
	if _, ok := s.modes.Lookup(s.eng.Mode()); !ok {
		_ = s.eng.SetMode(mode.Normal)
	}
	return nil
}

// activeState returns the state plugin calls act on. Must be called
// with s.mu held; plugin targets run re-entrantly inside LoadPlugin
// and CallPlugin, which hold the lock.
func (s *Session) activeState() (*bufferState, error) {
	st, ok := s.buffers[s.active]
	if !ok {
		return nil, fmt.Errorf("%w: no active buffer", ErrUnknownBuffer)
	}
	return st, nil
}
