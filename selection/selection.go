package selection

import (
	"fmt"

	"github.com/dshills/selkie/buffer"
)

// ByteOffset is an alias for buffer.ByteOffset for convenience.
type ByteOffset = buffer.ByteOffset

// Range is an alias for buffer.Range for convenience.
type Range = buffer.Range

// Selection is a contiguous span of buffer content, addressed by an
// anchor (where the selection started) and a cursor (where it acts).
// The span covered is [min(anchor,cursor), max(anchor,cursor)).
// Anchor == Cursor is a caret: a legal, empty selection distinct from a
// one-byte selection. Selection is an immutable value type.
type Selection struct {
	Anchor ByteOffset
	Cursor ByteOffset
}

// New creates a selection from anchor to cursor.
func New(anchor, cursor ByteOffset) Selection {
	return Selection{Anchor: anchor, Cursor: cursor}
}

// Caret creates an empty selection at the given offset.
func Caret(offset ByteOffset) Selection {
	return Selection{Anchor: offset, Cursor: offset}
}

// IsEmpty returns true if the selection is a caret (no extent).
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Cursor
}

// IsForward returns true if the cursor is at or after the anchor.
func (s Selection) IsForward() bool {
	return s.Cursor >= s.Anchor
}

// Start returns the lower bound of the selection.
func (s Selection) Start() ByteOffset {
	if s.Anchor <= s.Cursor {
		return s.Anchor
	}
	return s.Cursor
}

// End returns the upper bound of the selection.
func (s Selection) End() ByteOffset {
	if s.Anchor >= s.Cursor {
		return s.Anchor
	}
	return s.Cursor
}

// Len returns the selection length in bytes.
func (s Selection) Len() ByteOffset {
	return s.End() - s.Start()
}

// Range returns the covered span as a Range (Start <= End).
func (s Selection) Range() Range {
	return Range{Start: s.Start(), End: s.End()}
}

// WithCursor returns a selection with the cursor moved and the anchor
// kept; this is how selections grow.
func (s Selection) WithCursor(cursor ByteOffset) Selection {
	return Selection{Anchor: s.Anchor, Cursor: cursor}
}

// Collapse returns a caret at the cursor.
func (s Selection) Collapse() Selection {
	return Caret(s.Cursor)
}

// CollapseToStart returns a caret at the selection start.
func (s Selection) CollapseToStart() Selection {
	return Caret(s.Start())
}

// Flip returns the selection with anchor and cursor swapped.
func (s Selection) Flip() Selection {
	return Selection{Anchor: s.Cursor, Cursor: s.Anchor}
}

// Overlaps returns true if the spans of two selections intersect.
// Touching selections do not overlap.
func (s Selection) Overlaps(other Selection) bool {
	return s.Start() < other.End() && other.Start() < s.End()
}

// Merge returns a forward selection covering both spans.
func (s Selection) Merge(other Selection) Selection {
	start := s.Start()
	if other.Start() < start {
		start = other.Start()
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	return Selection{Anchor: start, Cursor: end}
}

// Clamp returns the selection clamped to [0, max].
func (s Selection) Clamp(max ByteOffset) Selection {
	clamp := func(o ByteOffset) ByteOffset {
		if o < 0 {
			return 0
		}
		if o > max {
			return max
		}
		return o
	}
	return Selection{Anchor: clamp(s.Anchor), Cursor: clamp(s.Cursor)}
}

// Equals returns true if anchor and cursor both match.
func (s Selection) Equals(other Selection) bool {
	return s == other
}

// String returns a human-readable representation of the selection.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("Caret(%d)", s.Cursor)
	}
	dir := "→"
	if !s.IsForward() {
		dir = "←"
	}
	return fmt.Sprintf("Selection(%d%s%d)", s.Anchor, dir, s.Cursor)
}
