package selection

import "sort"

// Set is a non-empty, ordered sequence of selections over one buffer.
// Selections are kept sorted by start position and non-overlapping.
// Exactly one selection is primary; the primary index follows its
// selection through sorting and merging.
//
// Touching selections are NOT merged: normalization merges only spans
// that strictly overlap, so adjacent selections produced by an operation
// survive unless the operation itself decides to merge them.
type Set struct {
	selections []Selection
	primary    int

	// columns preserves per-selection cursor columns across vertical
	// movement over shorter lines. Cleared by any other movement.
	columns []ByteOffset
}

// NewSet creates a set with a single selection, which is primary.
func NewSet(initial Selection) *Set {
	return &Set{selections: []Selection{initial}}
}

// NewSetAt creates a set with a single caret at the given offset.
func NewSetAt(offset ByteOffset) *Set {
	return NewSet(Caret(offset))
}

// FromSlice creates a set from selections, normalizing them.
// An empty slice yields a single caret at offset 0.
func FromSlice(selections []Selection) *Set {
	if len(selections) == 0 {
		return NewSetAt(0)
	}
	s := &Set{selections: make([]Selection, len(selections))}
	copy(s.selections, selections)
	s.normalize()
	return s
}

// Count returns the number of selections.
func (s *Set) Count() int {
	return len(s.selections)
}

// Primary returns the primary selection.
func (s *Set) Primary() Selection {
	return s.selections[s.primary]
}

// PrimaryIndex returns the index of the primary selection.
func (s *Set) PrimaryIndex() int {
	return s.primary
}

// Get returns the selection at index i.
// Returns the zero selection if i is out of range.
func (s *Set) Get(i int) Selection {
	if i < 0 || i >= len(s.selections) {
		return Selection{}
	}
	return s.selections[i]
}

// All returns a copy of all selections in document order.
func (s *Set) All() []Selection {
	out := make([]Selection, len(s.selections))
	copy(out, s.selections)
	return out
}

// Add inserts a selection and makes it primary.
func (s *Set) Add(sel Selection) {
	s.selections = append(s.selections, sel)
	s.primary = len(s.selections) - 1
	s.normalize()
	s.ClearColumns()
}

// Set replaces all selections with a single one.
func (s *Set) Set(sel Selection) {
	s.selections = s.selections[:0]
	s.selections = append(s.selections, sel)
	s.primary = 0
	s.ClearColumns()
}

// SetAll replaces all selections. An empty slice is rejected by
// substituting a caret at 0, keeping the set non-empty.
func (s *Set) SetAll(sels []Selection) {
	if len(sels) == 0 {
		s.Set(Caret(0))
		return
	}
	s.selections = make([]Selection, len(sels))
	copy(s.selections, sels)
	if s.primary >= len(s.selections) {
		s.primary = len(s.selections) - 1
	}
	s.normalize()
	s.ClearColumns()
}

// Replace swaps the selection at index i without renormalizing order
// when the replacement occupies the same position; otherwise the set is
// re-sorted and the primary index follows.
func (s *Set) Replace(i int, sel Selection) {
	if i < 0 || i >= len(s.selections) {
		return
	}
	s.selections[i] = sel
	s.normalize()
}

// MapInPlace applies f to every selection, then renormalizes.
func (s *Set) MapInPlace(f func(sel Selection) Selection) {
	for i, sel := range s.selections {
		s.selections[i] = f(sel)
	}
	s.normalize()
}

// CollapseAll collapses every selection to a caret at its cursor.
func (s *Set) CollapseAll() {
	for i, sel := range s.selections {
		s.selections[i] = sel.Collapse()
	}
	s.normalize()
}

// KeepPrimary drops every selection except the primary.
func (s *Set) KeepPrimary() {
	p := s.Primary()
	s.Set(p)
}

// Clamp clamps all selections to [0, max].
func (s *Set) Clamp(max ByteOffset) {
	for i, sel := range s.selections {
		s.selections[i] = sel.Clamp(max)
	}
	s.normalize()
}

// Clone returns a deep copy of the set, including the primary index.
// Column hints are deliberately not cloned; they are transient.
func (s *Set) Clone() *Set {
	clone := &Set{
		selections: make([]Selection, len(s.selections)),
		primary:    s.primary,
	}
	copy(clone.selections, s.selections)
	return clone
}

// Restore replaces the set's contents with those of other, primary
// index included. Used by undo/redo to reinstate a snapshot.
func (s *Set) Restore(other *Set) {
	s.selections = append(s.selections[:0], other.selections...)
	s.primary = other.primary
	s.ClearColumns()
}

// Equals returns true if both sets hold the same selections in the same
// order with the same primary.
func (s *Set) Equals(other *Set) bool {
	if other == nil || len(s.selections) != len(other.selections) || s.primary != other.primary {
		return false
	}
	for i, sel := range s.selections {
		if sel != other.selections[i] {
			return false
		}
	}
	return true
}

// Column hints

// SaveColumns records the given per-selection cursor columns if none are
// held yet. Vertical movement uses the hints to restore the cursor
// column after crossing shorter lines.
func (s *Set) SaveColumns(cols []ByteOffset) {
	if len(s.columns) == 0 {
		s.columns = cols
	}
}

// Column returns the saved column hint for selection i, or -1.
func (s *Set) Column(i int) ByteOffset {
	if i < 0 || i >= len(s.columns) {
		return -1
	}
	return s.columns[i]
}

// ClearColumns discards all column hints.
func (s *Set) ClearColumns() {
	s.columns = nil
}

// normalize sorts selections by start position and merges duplicates
// and strictly overlapping spans. The primary index is remapped to the merged
// selection that absorbed the previous primary.
func (s *Set) normalize() {
	if len(s.selections) <= 1 {
		s.primary = 0
		return
	}

	type tagged struct {
		sel     Selection
		primary bool
	}
	tags := make([]tagged, len(s.selections))
	for i, sel := range s.selections {
		tags[i] = tagged{sel: sel, primary: i == s.primary}
	}

	// Ties on start order by end, carets first. Action loops rely on
	// this: a caret left behind at the start of the next selection must
	// not displace it to an already-visited index.
	sort.SliceStable(tags, func(i, j int) bool {
		si, sj := tags[i].sel.Start(), tags[j].sel.Start()
		if si != sj {
			return si < sj
		}
		return tags[i].sel.End() < tags[j].sel.End()
	})

	merged := tags[:1]
	for _, t := range tags[1:] {
		last := &merged[len(merged)-1]
		if t.sel == last.sel || t.sel.Overlaps(last.sel) {
			last.sel = last.sel.Merge(t.sel)
			last.primary = last.primary || t.primary
		} else {
			merged = append(merged, t)
		}
	}

	s.selections = s.selections[:0]
	s.primary = 0
	for i, t := range merged {
		s.selections = append(s.selections, t.sel)
		if t.primary {
			s.primary = i
		}
	}
}
