package selkie

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/selkie/mode"
	"github.com/dshills/selkie/selection"
)

// ErrInvalidSnapshot is returned when a snapshot cannot be decoded.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot serializes the restorable state of a buffer: content,
// selections, and the active mode. The host owns where it is stored;
// the core defines only this shape.
func (s *Session) Snapshot(id BufferID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.buffers[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBuffer, id)
	}

	out := "{}"
	out, _ = sjson.Set(out, "content", st.buf.Text())
	out, _ = sjson.Set(out, "mode", string(s.eng.Mode()))
	for i, sel := range st.sels.All() {
		out, _ = sjson.Set(out, fmt.Sprintf("selections.%d.anchor", i), sel.Anchor)
		out, _ = sjson.Set(out, fmt.Sprintf("selections.%d.cursor", i), sel.Cursor)
	}
	return out, nil
}

// OpenSnapshot restores a buffer from a snapshot produced by Snapshot:
// a new buffer with the content, selections clamped to it, and the
// recorded mode if it is still registered.
func (s *Session) OpenSnapshot(snapshot string) (BufferID, error) {
	if !gjson.Valid(snapshot) {
		return "", ErrInvalidSnapshot
	}
	content := gjson.Get(snapshot, "content")
	if !content.Exists() {
		return "", fmt.Errorf("%w: missing content", ErrInvalidSnapshot)
	}

	id := s.Open(content.String())

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.buffers[id]

	var sels []selection.Selection
	for _, entry := range gjson.Get(snapshot, "selections").Array() {
		sels = append(sels, selection.New(
			entry.Get("anchor").Int(),
			entry.Get("cursor").Int(),
		))
	}
	if len(sels) > 0 {
		set := selection.FromSlice(sels)
		set.Clamp(st.buf.Len())
		st.sels.Restore(set)
	}

	if name := mode.Name(gjson.Get(snapshot, "mode").String()); name != "" {
		if _, ok := s.modes.Lookup(name); ok {
			_ = s.eng.SetMode(name)
		}
	}
	return id, nil
}
