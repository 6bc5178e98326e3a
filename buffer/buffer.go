package buffer

import (
	"errors"
	"sync"

	"github.com/dshills/selkie/rope"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// Revision is a monotonically increasing counter identifying a buffer
// state. It increases on every committed mutation and never repeats,
// so a Revision from an older state can always be detected as stale.
type Revision uint64

// Buffer owns the text content of one document.
// All methods are safe for concurrent use, though editing is expected
// to stay on one goroutine per buffer.
type Buffer struct {
	mu       sync.RWMutex
	rope     rope.Rope
	revision Revision
}

// New creates an empty buffer at revision 1.
func New() *Buffer {
	return &Buffer{rope: rope.New(), revision: 1}
}

// FromString creates a buffer with initial content at revision 1.
func FromString(s string) *Buffer {
	return &Buffer{rope: rope.FromString(s), revision: 1}
}

// Read Operations

// Text returns the full buffer content.
// For large buffers, prefer TextRange.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.String()
}

// TextRange returns the text in [start, end).
// Returns ErrRangeInvalid if the range does not lie within the buffer.
func (b *Buffer) TextRange(start, end ByteOffset) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if start < 0 || start > end || end > ByteOffset(b.rope.Len()) {
		return "", ErrRangeInvalid
	}
	return b.rope.Slice(int(start), int(end)), nil
}

// Len returns the total byte length of the buffer.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ByteOffset(b.rope.Len())
}

// ByteAt returns the byte at the given offset.
func (b *Buffer) ByteAt(offset ByteOffset) (byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.ByteAt(int(offset))
}

// Revision returns the current revision counter.
func (b *Buffer) Revision() Revision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// IsEmpty returns true if the buffer holds no bytes.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.IsEmpty()
}

// Line Navigation
//
// The buffer has no line index; movements resolve line boundaries by
// scanning for newlines near the position of interest, which the rope
// supports without materializing the document.

// LineStart returns the offset of the first byte of the line containing
// offset.
func (b *Buffer) LineStart(offset ByteOffset) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := b.rope.LastIndexByte(int(offset), '\n')
	return ByteOffset(i + 1)
}

// LineEnd returns the offset just past the last content byte of the line
// containing offset (the position of the newline, or the buffer end).
func (b *Buffer) LineEnd(offset ByteOffset) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := b.rope.IndexByte(int(offset), '\n')
	if i < 0 {
		return ByteOffset(b.rope.Len())
	}
	return ByteOffset(i)
}

// IndexByte returns the offset of the first occurrence of c at or after
// from, or -1 if there is none.
func (b *Buffer) IndexByte(from ByteOffset, c byte) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return ByteOffset(b.rope.IndexByte(int(from), c))
}

// Write Operations
//
// Apply is the single mutation entry point. It is invoked only from
// inside a history transaction; calling it directly bypasses undo and
// violates the editing contract.

// Apply applies one edit, bumps the revision, and returns the Change
// needed to invert it. Out-of-range edits fail with ErrOffsetOutOfRange
// or ErrRangeInvalid and leave the buffer untouched.
func (b *Buffer) Apply(edit Edit) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	length := ByteOffset(b.rope.Len())
	r := edit.Range
	if !r.IsValid() {
		return Change{}, ErrRangeInvalid
	}
	if r.Start < 0 || r.End > length {
		return Change{}, ErrOffsetOutOfRange
	}

	old := ""
	if !r.IsEmpty() {
		old = b.rope.Slice(int(r.Start), int(r.End))
		b.rope = b.rope.Delete(int(r.Start), int(r.End))
	}
	if edit.NewText != "" {
		b.rope = b.rope.Insert(int(r.Start), edit.NewText)
	}
	b.revision++

	return Change{Edit: edit, OldText: old}, nil
}
