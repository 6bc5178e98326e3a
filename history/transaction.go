package history

import (
	"errors"

	"github.com/dshills/selkie/buffer"
	"github.com/dshills/selkie/selection"
)

// Errors returned by transaction operations.
var (
	ErrTransactionClosed = errors.New("transaction already committed or aborted")
)

// Transaction groups the edits of one logical user action. Edits apply
// to the buffer as they are recorded; Commit seals them into a single
// history entry and Abort rolls them back.
//
// Edit coordinates are interpreted against the buffer state at the
// moment the edit is recorded, so a caller issuing several edits must
// account for the shifts of the earlier ones (selection.Remap does
// exactly this for selections).
type Transaction struct {
	buf     *buffer.Buffer
	before  *selection.Set
	changes []buffer.Change
	closed  bool
}

// Begin opens a transaction against a buffer, capturing the current
// selection set as the state undo will restore.
func Begin(buf *buffer.Buffer, sels *selection.Set) *Transaction {
	return &Transaction{
		buf:    buf,
		before: sels.Clone(),
	}
}

// Insert inserts text at the given offset.
func (t *Transaction) Insert(offset buffer.ByteOffset, text string) error {
	return t.apply(buffer.NewInsert(offset, text))
}

// Delete removes the bytes in [start, end).
func (t *Transaction) Delete(start, end buffer.ByteOffset) error {
	return t.apply(buffer.NewDelete(start, end))
}

// Replace substitutes the bytes in [start, end) with text.
func (t *Transaction) Replace(start, end buffer.ByteOffset, text string) error {
	return t.apply(buffer.Edit{
		Range:   buffer.Range{Start: start, End: end},
		NewText: text,
	})
}

func (t *Transaction) apply(edit buffer.Edit) error {
	if t.closed {
		return ErrTransactionClosed
	}
	change, err := t.buf.Apply(edit)
	if err != nil {
		return err
	}
	t.changes = append(t.changes, change)
	return nil
}

// Edits returns the edits applied so far, in application order.
func (t *Transaction) Edits() []buffer.Edit {
	edits := make([]buffer.Edit, len(t.changes))
	for i, c := range t.changes {
		edits[i] = c.Edit
	}
	return edits
}

// IsEmpty returns true if no edits have been applied.
func (t *Transaction) IsEmpty() bool {
	return len(t.changes) == 0
}

// Abort rolls back every applied edit in reverse order and closes the
// transaction. The buffer content returns to its state at Begin; its
// revision keeps advancing, so observers still see the churn.
func (t *Transaction) Abort() error {
	if t.closed {
		return ErrTransactionClosed
	}
	t.closed = true
	for i := len(t.changes) - 1; i >= 0; i-- {
		inv := t.changes[i].Invert()
		if _, err := t.buf.Apply(inv.Edit); err != nil {
			return err
		}
	}
	t.changes = nil
	return nil
}
