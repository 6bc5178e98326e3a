package selkie

import (
	"fmt"

	"github.com/dshills/selkie/history"
	"github.com/dshills/selkie/plugin"
	"github.com/dshills/selkie/selection"
)

// pluginTarget adapts the session's active buffer to the plugin
// boundary. Its methods run re-entrantly during LoadPlugin/CallPlugin
// while the session lock is held, so they must not lock again.
//
// Every mutation is wrapped in its own transaction, keeping plugin
// edits undoable exactly like user edits.
type pluginTarget struct {
	s *Session
}

func (t *pluginTarget) Text() string {
	st, err := t.s.activeState()
	if err != nil {
		return ""
	}
	return st.buf.Text()
}

func (t *pluginTarget) Len() int64 {
	st, err := t.s.activeState()
	if err != nil {
		return 0
	}
	return st.buf.Len()
}

func (t *pluginTarget) TextRange(start, end int64) (string, error) {
	st, err := t.s.activeState()
	if err != nil {
		return "", err
	}
	return st.buf.TextRange(start, end)
}

func (t *pluginTarget) Selections() []plugin.SelectionPos {
	st, err := t.s.activeState()
	if err != nil {
		return nil
	}
	sels := st.sels.All()
	out := make([]plugin.SelectionPos, len(sels))
	for i, sel := range sels {
		out[i] = plugin.SelectionPos{Anchor: sel.Anchor, Cursor: sel.Cursor}
	}
	return out
}

func (t *pluginTarget) Insert(at int64, text string) error {
	st, err := t.s.activeState()
	if err != nil {
		return err
	}

	tx := history.Begin(st.buf, st.sels)
	if err := tx.Insert(at, text); err != nil {
		_ = tx.Abort()
		return err
	}
	selection.Remap(st.sels, tx.Edits())
	return st.hist.Commit(tx, st.sels)
}

func (t *pluginTarget) Delete(start, end int64) error {
	st, err := t.s.activeState()
	if err != nil {
		return err
	}

	tx := history.Begin(st.buf, st.sels)
	if err := tx.Delete(start, end); err != nil {
		_ = tx.Abort()
		return err
	}
	selection.Remap(st.sels, tx.Edits())
	return st.hist.Commit(tx, st.sels)
}

func (t *pluginTarget) Move(movement string, count int) error {
	st, err := t.s.activeState()
	if err != nil {
		return err
	}

	m, ok := selection.MovementByName(movement)
	if !ok {
		return fmt.Errorf("unknown movement %q", movement)
	}
	selection.Move(st.buf, st.sels, m, count, 0)
	return nil
}
