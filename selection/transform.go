package selection

import "github.com/dshills/selkie/buffer"

// Edit is an alias for buffer.Edit for convenience.
type Edit = buffer.Edit

// TransformOffset remaps an offset after an edit.
//
// Rules:
//   - A position before an insertion point is unaffected; a position at
//     or after it shifts forward by the inserted length.
//   - A position inside a deleted range collapses to the range start; a
//     position after it shifts back by the deleted length.
func TransformOffset(offset ByteOffset, edit Edit) ByteOffset {
	r := edit.Range

	// Entirely before the edit: unaffected.
	if offset < r.Start {
		return offset
	}

	// Inside the removed span: collapse to its start, then the inserted
	// text pushes nothing past it.
	if offset < r.End {
		return r.Start
	}

	// At or after the edit: shift by the delta. For a pure insertion at
	// exactly this offset this shifts forward by the inserted length.
	return offset + edit.Delta()
}

// transformOffsetSticky is TransformOffset except that an insertion at
// exactly the offset leaves a sticky offset in place instead of pushing
// it forward.
func transformOffsetSticky(offset ByteOffset, edit Edit) ByteOffset {
	if edit.Range.IsEmpty() && edit.Range.Start == offset {
		return offset
	}
	return TransformOffset(offset, edit)
}

// TransformSelection remaps a selection after an edit.
//
// The low boundary shifts when text is inserted exactly at it, the high
// boundary does not: inserting at a selection's end must not grow the
// selection. Carets shift entirely so that typing advances the caret
// past the inserted text.
func TransformSelection(sel Selection, edit Edit) Selection {
	if sel.IsEmpty() {
		return Caret(TransformOffset(sel.Cursor, edit))
	}

	low := TransformOffset(sel.Start(), edit)
	high := transformOffsetSticky(sel.End(), edit)
	if high < low {
		high = low
	}

	if sel.IsForward() {
		return Selection{Anchor: low, Cursor: high}
	}
	return Selection{Anchor: high, Cursor: low}
}

// Remap recomputes every selection in the set after a sequence of edits.
// The edits must be given in application order, each expressed in the
// coordinates of the buffer state it was applied to; the transform is
// therefore applied front to back. Every selection is remapped, including
// ones an edit did not target, because multi-selection commands apply
// ops selection by selection and each later op must see already-shifted
// positions.
func Remap(set *Set, edits []Edit) {
	for _, edit := range edits {
		set.MapInPlace(func(sel Selection) Selection {
			return TransformSelection(sel, edit)
		})
	}
}
