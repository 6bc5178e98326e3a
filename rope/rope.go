package rope

import "strings"

// ByteOffset is a byte position within a rope.
type ByteOffset = int

// maxLeaf is the largest chunk a leaf may hold before it is split.
const maxLeaf = 512

// node is a rope tree node. Leaves have left == nil and carry text;
// internal nodes carry the combined length and height of their subtrees.
type node struct {
	left   *node
	right  *node
	text   string // leaf payload, empty for internal nodes
	length int
	height int
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

func newLeaf(s string) *node {
	return &node{text: s, length: len(s), height: 1}
}

func newInternal(left, right *node) *node {
	h := left.height
	if right.height > h {
		h = right.height
	}
	return &node{
		left:   left,
		right:  right,
		length: left.length + right.length,
		height: h + 1,
	}
}

// Rope is an immutable sequence of bytes.
// The zero value is an empty rope and ready to use.
type Rope struct {
	root *node
}

// New returns an empty rope.
func New() Rope {
	return Rope{}
}

// FromString builds a rope from an initial string.
func FromString(s string) Rope {
	if s == "" {
		return Rope{}
	}
	return Rope{root: build(s)}
}

// build constructs a balanced subtree for s.
func build(s string) *node {
	if len(s) <= maxLeaf {
		return newLeaf(s)
	}
	mid := len(s) / 2
	return newInternal(build(s[:mid]), build(s[mid:]))
}

// Len returns the total byte length.
func (r Rope) Len() int {
	if r.root == nil {
		return 0
	}
	return r.root.length
}

// IsEmpty returns true if the rope holds no bytes.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// String returns the full content. O(n); prefer Slice for partial reads.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(r.root.length)
	appendNode(&sb, r.root, 0, r.root.length)
	return sb.String()
}

// Slice returns the bytes in [start, end). Out-of-range bounds are clamped.
func (r Rope) Slice(start, end ByteOffset) string {
	if r.root == nil {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > r.root.length {
		end = r.root.length
	}
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(end - start)
	appendNode(&sb, r.root, start, end)
	return sb.String()
}

// appendNode writes the bytes of n in [start, end) to sb.
// start and end are relative to n.
func appendNode(sb *strings.Builder, n *node, start, end int) {
	if n.isLeaf() {
		sb.WriteString(n.text[start:end])
		return
	}
	ll := n.left.length
	if start < ll {
		e := end
		if e > ll {
			e = ll
		}
		appendNode(sb, n.left, start, e)
	}
	if end > ll {
		s := start - ll
		if s < 0 {
			s = 0
		}
		appendNode(sb, n.right, s, end-ll)
	}
}

// ByteAt returns the byte at offset, and false if offset is out of range.
func (r Rope) ByteAt(offset ByteOffset) (byte, bool) {
	if r.root == nil || offset < 0 || offset >= r.root.length {
		return 0, false
	}
	n := r.root
	for !n.isLeaf() {
		if offset < n.left.length {
			n = n.left
		} else {
			offset -= n.left.length
			n = n.right
		}
	}
	return n.text[offset], true
}

// Insert returns a new rope with s inserted at offset.
// Offset is clamped to [0, Len()].
func (r Rope) Insert(offset ByteOffset, s string) Rope {
	if s == "" {
		return r
	}
	if offset < 0 {
		offset = 0
	}
	if offset > r.Len() {
		offset = r.Len()
	}
	if r.root == nil {
		return FromString(s)
	}
	left, right := split(r.root, offset)
	return Rope{root: rebalance(join(join(left, build(s)), right))}
}

// Delete returns a new rope with [start, end) removed.
// Bounds are clamped to the rope length.
func (r Rope) Delete(start, end ByteOffset) Rope {
	if r.root == nil {
		return r
	}
	if start < 0 {
		start = 0
	}
	if end > r.root.length {
		end = r.root.length
	}
	if start >= end {
		return r
	}
	left, rest := split(r.root, start)
	_, right := split(rest, end-start)
	return Rope{root: rebalance(join(left, right))}
}

// Replace returns a new rope with [start, end) replaced by s.
func (r Rope) Replace(start, end ByteOffset, s string) Rope {
	return r.Delete(start, end).Insert(start, s)
}

// IndexByte returns the offset of the first occurrence of b at or after
// from, or -1 if not found.
func (r Rope) IndexByte(from ByteOffset, b byte) ByteOffset {
	if r.root == nil {
		return -1
	}
	if from < 0 {
		from = 0
	}
	return indexByte(r.root, from, b, 0)
}

func indexByte(n *node, from int, b byte, base int) int {
	if from >= n.length {
		return -1
	}
	if n.isLeaf() {
		if i := strings.IndexByte(n.text[from:], b); i >= 0 {
			return base + from + i
		}
		return -1
	}
	ll := n.left.length
	if from < ll {
		if i := indexByte(n.left, from, b, base); i >= 0 {
			return i
		}
		from = ll
	}
	return indexByte(n.right, from-ll, b, base+ll)
}

// LastIndexByte returns the offset of the last occurrence of b strictly
// before the given offset, or -1 if not found.
func (r Rope) LastIndexByte(before ByteOffset, b byte) ByteOffset {
	if r.root == nil {
		return -1
	}
	if before > r.root.length {
		before = r.root.length
	}
	if before <= 0 {
		return -1
	}
	return lastIndexByte(r.root, before, b, 0)
}

func lastIndexByte(n *node, before int, b byte, base int) int {
	if n.isLeaf() {
		if i := strings.LastIndexByte(n.text[:before], b); i >= 0 {
			return base + i
		}
		return -1
	}
	ll := n.left.length
	if before > ll {
		if i := lastIndexByte(n.right, before-ll, b, base+ll); i >= 0 {
			return i
		}
		before = ll
	}
	return lastIndexByte(n.left, before, b, base)
}

// split divides n into subtrees holding [0, at) and [at, len).
// Either result may be nil when empty.
func split(n *node, at int) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if at <= 0 {
		return nil, n
	}
	if at >= n.length {
		return n, nil
	}
	if n.isLeaf() {
		return newLeaf(n.text[:at]), newLeaf(n.text[at:])
	}
	ll := n.left.length
	if at < ll {
		l, r := split(n.left, at)
		return l, join(r, n.right)
	}
	if at > ll {
		l, r := split(n.right, at-ll)
		return join(n.left, l), r
	}
	return n.left, n.right
}

// join concatenates two subtrees, merging small adjacent leaves.
func join(left, right *node) *node {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.isLeaf() && right.isLeaf() && left.length+right.length <= maxLeaf {
		return newLeaf(left.text + right.text)
	}
	return newInternal(left, right)
}

// rebalance rebuilds the tree when it grows too tall. The threshold is
// loose; edits cluster near a point and a full rebuild amortizes well.
func rebalance(n *node) *node {
	if n == nil || n.height <= maxHeight(n.length) {
		return n
	}
	leaves := make([]*node, 0, 16)
	collectLeaves(n, &leaves)
	return buildFromLeaves(leaves)
}

// maxHeight returns the tallest tree tolerated for the given length.
func maxHeight(length int) int {
	h := 2
	for length > maxLeaf {
		length /= 2
		h++
	}
	return h + 8
}

func collectLeaves(n *node, out *[]*node) {
	if n.isLeaf() {
		*out = append(*out, n)
		return
	}
	collectLeaves(n.left, out)
	collectLeaves(n.right, out)
}

func buildFromLeaves(leaves []*node) *node {
	switch len(leaves) {
	case 0:
		return nil
	case 1:
		return leaves[0]
	}
	mid := len(leaves) / 2
	return newInternal(buildFromLeaves(leaves[:mid]), buildFromLeaves(leaves[mid:]))
}
