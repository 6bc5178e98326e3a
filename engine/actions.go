package engine

import (
	"strings"

	"github.com/dshills/selkie/buffer"
	"github.com/dshills/selkie/history"
	"github.com/dshills/selkie/mode"
	"github.com/dshills/selkie/selection"
)

// Actions mutate the buffer. Each one opens a single transaction,
// applies its edits selection by selection in ascending order, and
// remaps the whole set after every edit so later selections see the
// cumulative shift of earlier ones.

func (e *Engine) deleteSelections(ctx Context) error {
	set := ctx.Selections
	tx := history.Begin(ctx.Buffer, set)
	yanked := make([]string, set.Count())
	deleted := false

	for i := 0; i < set.Count(); i++ {
		sel := set.Get(i)
		if sel.IsEmpty() {
			continue
		}
		r := sel.Range()
		text, err := ctx.Buffer.TextRange(r.Start, r.End)
		if err != nil {
			return abort(tx, err)
		}
		yanked[i] = text
		edit := buffer.NewDelete(r.Start, r.End)
		if err := tx.Delete(r.Start, r.End); err != nil {
			return abort(tx, err)
		}
		selection.Remap(set, []buffer.Edit{edit})
		deleted = true
	}

	if deleted {
		if err := e.regs.Set(e.reg, yanked); err != nil {
			return abort(tx, err)
		}
	}
	return ctx.History.Commit(tx, set)
}

func (e *Engine) yankSelections(ctx Context) error {
	set := ctx.Selections
	yanked := make([]string, set.Count())
	for i := 0; i < set.Count(); i++ {
		r := set.Get(i).Range()
		text, err := ctx.Buffer.TextRange(r.Start, r.End)
		if err != nil {
			return err
		}
		yanked[i] = text
	}
	return e.regs.Set(e.reg, yanked)
}

// pasteAfter inserts register content after each selection, aligned
// slot to selection; when the register holds fewer slots than there
// are selections, the last slot repeats.
func (e *Engine) pasteAfter(ctx Context, count int) error {
	slots := e.regs.Get(e.reg)
	if len(slots) == 0 {
		return nil
	}

	set := ctx.Selections
	tx := history.Begin(ctx.Buffer, set)

	for i := 0; i < set.Count(); i++ {
		slot := slots[len(slots)-1]
		if i < len(slots) {
			slot = slots[i]
		}
		if slot == "" {
			continue
		}
		text := strings.Repeat(slot, count)
		at := set.Get(i).End()
		edit := buffer.NewInsert(at, text)
		if err := tx.Insert(at, text); err != nil {
			return abort(tx, err)
		}
		selection.Remap(set, []buffer.Edit{edit})
	}

	return ctx.History.Commit(tx, set)
}

// insertText types text at every cursor.
func (e *Engine) insertText(ctx Context, text string) error {
	set := ctx.Selections
	tx := history.Begin(ctx.Buffer, set)

	for i := 0; i < set.Count(); i++ {
		at := set.Get(i).Cursor
		edit := buffer.NewInsert(at, text)
		if err := tx.Insert(at, text); err != nil {
			return abort(tx, err)
		}
		selection.Remap(set, []buffer.Edit{edit})
	}

	return ctx.History.Commit(tx, set)
}

// backspace removes the grapheme cluster before every cursor.
func (e *Engine) backspace(ctx Context) error {
	set := ctx.Selections
	tx := history.Begin(ctx.Buffer, set)

	for i := 0; i < set.Count(); i++ {
		cursor := set.Get(i).Cursor
		from := selection.PrevGrapheme(ctx.Buffer, cursor)
		if from >= cursor {
			continue
		}
		edit := buffer.NewDelete(from, cursor)
		if err := tx.Delete(from, cursor); err != nil {
			return abort(tx, err)
		}
		selection.Remap(set, []buffer.Edit{edit})
	}

	return ctx.History.Commit(tx, set)
}

// openBelow inserts a fresh line under each selection, leaves a caret
// at its start, and enters Insert mode.
func (e *Engine) openBelow(ctx Context) error {
	set := ctx.Selections
	tx := history.Begin(ctx.Buffer, set)
	carets := make([]selection.Selection, set.Count())

	for i := 0; i < set.Count(); i++ {
		end := ctx.Buffer.LineEnd(set.Get(i).End())
		edit := buffer.NewInsert(end, "\n")
		if err := tx.Insert(end, "\n"); err != nil {
			return abort(tx, err)
		}
		selection.Remap(set, []buffer.Edit{edit})
		carets[i] = selection.Caret(end + 1)
	}

	set.SetAll(carets)
	if err := ctx.History.Commit(tx, set); err != nil {
		return err
	}
	e.current = mode.Insert
	return nil
}

func (e *Engine) undo(ctx Context) error {
	sels, err := ctx.History.Undo(ctx.Buffer)
	if err != nil {
		return err
	}
	ctx.Selections.Restore(sels)
	return nil
}

func (e *Engine) redo(ctx Context) error {
	sels, err := ctx.History.Redo(ctx.Buffer)
	if err != nil {
		return err
	}
	ctx.Selections.Restore(sels)
	return nil
}

// abort rolls the transaction back, preferring the original error over
// any rollback failure.
func abort(tx *history.Transaction, err error) error {
	_ = tx.Abort()
	return err
}
