package selection

import (
	"testing"

	"github.com/dshills/selkie/buffer"
)

func TestTransformOffset(t *testing.T) {
	insert := buffer.NewInsert(5, "abc")
	del := buffer.NewDelete(3, 7)

	tests := []struct {
		name   string
		offset ByteOffset
		edit   Edit
		want   ByteOffset
	}{
		{"before insert", 2, insert, 2},
		{"at insert point", 5, insert, 8},
		{"after insert", 9, insert, 12},
		{"before delete", 2, del, 2},
		{"at delete start", 3, del, 3},
		{"inside delete", 5, del, 3},
		{"at delete end", 7, del, 3},
		{"after delete", 10, del, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformOffset(tt.offset, tt.edit); got != tt.want {
				t.Errorf("TransformOffset(%d) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}

func TestTransformSelectionInsertBetween(t *testing.T) {
	// Buffer "abc", selections [0,1) and [2,3); insert "X" at offset 1.
	// The first selection must not grow; the second shifts right.
	edit := buffer.NewInsert(1, "X")

	first := TransformSelection(New(0, 1), edit)
	if first != New(0, 1) {
		t.Errorf("first selection = %v, want 0..1", first)
	}

	second := TransformSelection(New(2, 3), edit)
	if second != New(3, 4) {
		t.Errorf("second selection = %v, want 3..4", second)
	}
}

func TestTransformSelectionInsertAtStart(t *testing.T) {
	// Insertion exactly at the low boundary shifts the whole selection.
	edit := buffer.NewInsert(2, "XY")
	if got := TransformSelection(New(2, 5), edit); got != New(4, 7) {
		t.Errorf("selection = %v, want 4..7", got)
	}
}

func TestTransformSelectionCaretAtInsert(t *testing.T) {
	// Typing at a caret advances the caret past the inserted text.
	edit := buffer.NewInsert(3, "hi")
	if got := TransformSelection(Caret(3), edit); got != Caret(5) {
		t.Errorf("caret = %v, want caret at 5", got)
	}
}

func TestTransformSelectionDeleteOverlapping(t *testing.T) {
	del := buffer.NewDelete(2, 6)

	tests := []struct {
		name string
		sel  Selection
		want Selection
	}{
		{"fully inside collapses", New(3, 5), Caret(2)},
		{"straddles start", New(0, 4), New(0, 2)},
		{"straddles end", New(4, 8), New(2, 4)},
		{"covers delete", New(0, 8), New(0, 4)},
		{"after delete", New(7, 9), New(3, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformSelection(tt.sel, del)
			if tt.want.IsEmpty() {
				if !got.IsEmpty() || got.Cursor != tt.want.Cursor {
					t.Errorf("got %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformSelectionPreservesDirection(t *testing.T) {
	edit := buffer.NewInsert(0, "xx")
	got := TransformSelection(New(5, 2), edit)
	if got != New(7, 4) {
		t.Errorf("backward selection = %v, want 7..4", got)
	}
	if got.IsForward() {
		t.Error("direction not preserved")
	}
}

func TestRemapSequence(t *testing.T) {
	// Two deletions applied front to back, each in the coordinates left
	// by the previous: deleting [0,3) then [3,6) of the already-shifted
	// text.
	set := FromSlice([]Selection{New(0, 3), New(6, 9)})
	edits := []Edit{
		buffer.NewDelete(0, 3),
		buffer.NewDelete(3, 6),
	}
	Remap(set, edits)

	got := set.All()
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2", len(got))
	}
	if !got[0].IsEmpty() || got[0].Cursor != 0 {
		t.Errorf("first = %v, want caret at 0", got[0])
	}
	if !got[1].IsEmpty() || got[1].Cursor != 3 {
		t.Errorf("second = %v, want caret at 3", got[1])
	}
}
