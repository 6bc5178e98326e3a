package buffer

import "fmt"

// Edit is a primitive buffer mutation: an insertion or a deletion.
// A replace is expressed as a delete followed by an insert, never as an
// in-place update, so every edit has a trivial inverse.
type Edit struct {
	Range   Range  // The range to remove (empty for pure insertion)
	NewText string // The text to insert (empty for pure deletion)
}

// NewInsert creates an Edit that inserts text at an offset.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{
		Range:   Range{Start: offset, End: offset},
		NewText: text,
	}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(start, end ByteOffset) Edit {
	return Edit{Range: Range{Start: start, End: end}}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range.String())
	}
	return fmt.Sprintf("Replace%s with %q", e.Range.String(), e.NewText)
}

// IsInsert returns true if this is a pure insertion.
func (e Edit) IsInsert() bool {
	return e.Range.IsEmpty() && e.NewText != ""
}

// IsDelete returns true if this is a pure deletion.
func (e Edit) IsDelete() bool {
	return !e.Range.IsEmpty() && e.NewText == ""
}

// Delta returns the change in buffer length caused by this edit.
func (e Edit) Delta() ByteOffset {
	return ByteOffset(len(e.NewText)) - e.Range.Len()
}

// Change records an applied edit together with the text it removed,
// which is everything needed to invert it.
type Change struct {
	Edit    Edit   // The edit as applied
	OldText string // The text the edit removed, if any
}

// Invert returns the change that exactly undoes this one, expressed in
// the coordinates of the buffer state after this change was applied.
func (c Change) Invert() Change {
	applied := Range{
		Start: c.Edit.Range.Start,
		End:   c.Edit.Range.Start + ByteOffset(len(c.Edit.NewText)),
	}
	return Change{
		Edit:    Edit{Range: applied, NewText: c.OldText},
		OldText: c.Edit.NewText,
	}
}
