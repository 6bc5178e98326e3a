package history

import (
	"errors"

	"github.com/dshills/selkie/buffer"
	"github.com/dshills/selkie/selection"
)

// Errors returned by undo/redo.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// entry is one committed transaction: its changes in application order
// plus the selection sets bracketing it.
type entry struct {
	changes []buffer.Change
	before  *selection.Set
	after   *selection.Set
}

// History holds the undo and redo stacks for one buffer.
// It is not safe for concurrent use; the owning session serializes
// access the same way it serializes edits.
type History struct {
	undo  []entry
	redo  []entry
	limit int
}

// New creates a history with the given depth limit.
// A limit of 0 or less means unlimited.
func New(limit int) *History {
	return &History{limit: limit}
}

// Commit seals a transaction into the undo stack and clears the redo
// stack. An empty transaction is discarded without touching history.
func (h *History) Commit(t *Transaction, after *selection.Set) error {
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	if len(t.changes) == 0 {
		return nil
	}

	h.undo = append(h.undo, entry{
		changes: t.changes,
		before:  t.before,
		after:   after.Clone(),
	})
	h.redo = h.redo[:0]

	if h.limit > 0 && len(h.undo) > h.limit {
		drop := len(h.undo) - h.limit
		h.undo = append(h.undo[:0], h.undo[drop:]...)
	}
	return nil
}

// Undo reverts the most recent transaction by applying the inverse of
// each of its changes in reverse order. Returns the selection set from
// before the transaction. The buffer revision advances; revisions mark
// distinct states, not distinct contents.
func (h *History) Undo(buf *buffer.Buffer) (*selection.Set, error) {
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	for i := len(e.changes) - 1; i >= 0; i-- {
		inv := e.changes[i].Invert()
		if _, err := buf.Apply(inv.Edit); err != nil {
			return nil, err
		}
	}

	h.redo = append(h.redo, e)
	return e.before.Clone(), nil
}

// Redo replays the most recently undone transaction, applying its
// changes in their original order. Returns the selection set from
// after the transaction.
func (h *History) Redo(buf *buffer.Buffer) (*selection.Set, error) {
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	for _, c := range e.changes {
		if _, err := buf.Apply(c.Edit); err != nil {
			return nil, err
		}
	}

	h.undo = append(h.undo, e)
	return e.after.Clone(), nil
}

// CanUndo returns true if the undo stack is non-empty.
func (h *History) CanUndo() bool {
	return len(h.undo) > 0
}

// CanRedo returns true if the redo stack is non-empty.
func (h *History) CanRedo() bool {
	return len(h.redo) > 0
}

// Depth returns the number of committed transactions that can be
// undone. A depth of 0 means the buffer is at its oldest known state.
func (h *History) Depth() int {
	return len(h.undo)
}
