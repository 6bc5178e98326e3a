package selection

import (
	"github.com/rivo/uniseg"

	"github.com/dshills/selkie/buffer"
)

// Movement is one of the closed vocabulary of selection movements.
type Movement uint8

const (
	CharLeft Movement = iota
	CharRight
	CharUp
	CharDown
	WordForward
	WordBackward
	LineStart
	LineEnd
	LineSelect
	BufferStart
	BufferEnd
	MatchingBracket
	FindChar
)

// String returns the movement name.
func (m Movement) String() string {
	switch m {
	case CharLeft:
		return "char-left"
	case CharRight:
		return "char-right"
	case CharUp:
		return "char-up"
	case CharDown:
		return "char-down"
	case WordForward:
		return "word-forward"
	case WordBackward:
		return "word-backward"
	case LineStart:
		return "line-start"
	case LineEnd:
		return "line-end"
	case LineSelect:
		return "line-select"
	case BufferStart:
		return "buffer-start"
	case BufferEnd:
		return "buffer-end"
	case MatchingBracket:
		return "matching-bracket"
	case FindChar:
		return "find-char"
	default:
		return "unknown"
	}
}

// MovementByName resolves the name produced by String back to the
// movement. Used by boundaries that address movements as strings.
func MovementByName(name string) (Movement, bool) {
	for m := CharLeft; m <= FindChar; m++ {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

// spanning reports whether a plain move of this movement leaves a span
// behind (anchor at the old cursor) rather than a caret. Word and line
// movements select the text they traverse, the Kakoune way.
func (m Movement) spanning() bool {
	switch m {
	case WordForward, WordBackward, LineSelect, FindChar:
		return true
	default:
		return false
	}
}

// vertical reports whether the movement preserves the cursor column.
func (m Movement) vertical() bool {
	return m == CharUp || m == CharDown
}

// Move applies a movement to every selection in the set, replacing each
// with the movement's result. Count repeats the movement literally, one
// step at a time, so positions past the buffer boundaries clamp instead
// of wrapping. A count below 1 means 1. arg carries the target character
// for FindChar and is ignored otherwise.
func Move(buf *buffer.Buffer, set *Set, m Movement, count int, arg rune) {
	apply(buf, set, m, count, arg, false)
}

// Extend is Move except that only the cursor endpoint relocates; the
// anchor of every selection is preserved, growing the selection.
func Extend(buf *buffer.Buffer, set *Set, m Movement, count int, arg rune) {
	apply(buf, set, m, count, arg, true)
}

func apply(buf *buffer.Buffer, set *Set, m Movement, count int, arg rune, extend bool) {
	if count < 1 {
		count = 1
	}

	// Vertical movement preserves the cursor column across shorter
	// lines; any saved hint from a previous vertical step wins over the
	// current (possibly clamped) column.
	var cols []ByteOffset
	if m.vertical() {
		cols = make([]ByteOffset, set.Count())
		for i := range cols {
			if hint := set.Column(i); hint >= 0 {
				cols[i] = hint
			} else {
				cur := set.Get(i).Cursor
				cols[i] = cur - buf.LineStart(cur)
			}
		}
	}

	sels := set.All()
	for i, sel := range sels {
		col := ByteOffset(-1)
		if cols != nil {
			col = cols[i]
		}
		for n := 0; n < count; n++ {
			sel = step(buf, sel, m, arg, col, extend)
		}
		sels[i] = sel
	}
	set.SetAll(sels)

	// SetAll clears column hints; restore them after vertical movement
	// so a chain of up/down steps keeps the original column.
	if cols != nil {
		set.SaveColumns(cols)
	}
}

// step applies one iteration of a movement to one selection.
func step(buf *buffer.Buffer, sel Selection, m Movement, arg rune, col ByteOffset, extend bool) Selection {
	cursor := sel.Cursor
	var target ByteOffset

	switch m {
	case CharLeft:
		target = PrevGrapheme(buf, cursor)
	case CharRight:
		target = NextGrapheme(buf, cursor)
	case CharUp:
		target = verticalTarget(buf, cursor, col, -1)
	case CharDown:
		target = verticalTarget(buf, cursor, col, +1)
	case WordForward:
		target = nextWordStart(buf, cursor)
	case WordBackward:
		target = prevWordStart(buf, cursor)
	case LineStart:
		target = buf.LineStart(cursor)
	case LineEnd:
		target = buf.LineEnd(cursor)
	case BufferStart:
		target = 0
	case BufferEnd:
		target = buf.Len()
	case MatchingBracket:
		match, ok := matchBracket(buf, cursor)
		if !ok {
			return sel
		}
		target = match
	case FindChar:
		match, ok := findChar(buf, cursor, arg)
		if !ok {
			return sel
		}
		target = match
	case LineSelect:
		return lineSelect(buf, sel, extend)
	default:
		return sel
	}

	if extend {
		return sel.WithCursor(target)
	}
	if m.spanning() {
		return Selection{Anchor: cursor, Cursor: target}
	}
	return Caret(target)
}

// lineSelect expands the selection to whole lines: anchor at the start
// of the first covered line, cursor past the newline of the last. A
// repeat or extend grows the span by one more line.
func lineSelect(buf *buffer.Buffer, sel Selection, extend bool) Selection {
	start := buf.LineStart(sel.Start())
	end := buf.LineEnd(sel.End())
	if end < buf.Len() {
		end++ // include the newline
	}
	if (extend || (sel.Anchor == start && sel.Cursor == end)) && end < buf.Len() {
		next := buf.LineEnd(end)
		if next < buf.Len() {
			next++
		}
		end = next
	}
	return Selection{Anchor: start, Cursor: end}
}

// verticalTarget computes the cursor position one line up or down,
// restoring the desired column where the line is long enough.
func verticalTarget(buf *buffer.Buffer, cursor, col ByteOffset, dir int) ByteOffset {
	if col < 0 {
		col = cursor - buf.LineStart(cursor)
	}

	var lineStart ByteOffset
	if dir < 0 {
		start := buf.LineStart(cursor)
		if start == 0 {
			return cursor // first line: clamp in place
		}
		lineStart = buf.LineStart(start - 1)
	} else {
		end := buf.LineEnd(cursor)
		if end >= buf.Len() {
			return cursor // last line: clamp in place
		}
		lineStart = end + 1
	}

	target := lineStart + col
	if lineEnd := buf.LineEnd(lineStart); target > lineEnd {
		target = lineEnd
	}
	return target
}

// Grapheme steps
//
// Char movement steps over grapheme clusters, not bytes, so a combining
// sequence or emoji moves as one unit. Only a small window around the
// cursor is materialized.

const graphemeWindow = 64

// NextGrapheme returns the offset just past the grapheme cluster at
// off, or off at the buffer end.
func NextGrapheme(buf *buffer.Buffer, off ByteOffset) ByteOffset {
	end := off + graphemeWindow
	if max := buf.Len(); end > max {
		end = max
	}
	window, err := buf.TextRange(off, end)
	if err != nil || window == "" {
		return off
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(window, -1)
	return off + ByteOffset(len(cluster))
}

// PrevGrapheme returns the offset of the grapheme cluster start before
// off, or off at the buffer start.
func PrevGrapheme(buf *buffer.Buffer, off ByteOffset) ByteOffset {
	start := off - graphemeWindow
	if start < 0 {
		start = 0
	}
	window, err := buf.TextRange(start, off)
	if err != nil || window == "" {
		return off
	}

	// No backward iterator; walk the window forward and keep the last
	// cluster boundary.
	boundary := start
	state := -1
	rest := window
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if len(rest) == 0 {
			return boundary
		}
		boundary += ByteOffset(len(cluster))
	}
	return boundary
}

// Word steps
//
// A word is a run of letters, digits or underscores; punctuation runs
// form their own words. Whitespace, including newlines, separates them.

type byteClass uint8

const (
	classSpace byteClass = iota
	classWord
	classPunct
)

func classify(b byte) byteClass {
	switch {
	case b == ' ' || b == '\t' || b == '\n' || b == '\r':
		return classSpace
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_', b >= 0x80:
		return classWord
	default:
		return classPunct
	}
}

func classAt(buf *buffer.Buffer, off ByteOffset) (byteClass, bool) {
	b, ok := buf.ByteAt(off)
	if !ok {
		return classSpace, false
	}
	return classify(b), true
}

// nextWordStart returns the offset of the next word start: the current
// word run is skipped, then the whitespace after it.
func nextWordStart(buf *buffer.Buffer, off ByteOffset) ByteOffset {
	c, ok := classAt(buf, off)
	if !ok {
		return buf.Len()
	}
	pos := off
	if c != classSpace {
		for {
			cc, ok := classAt(buf, pos)
			if !ok || cc != c {
				break
			}
			pos++
		}
	}
	for {
		cc, ok := classAt(buf, pos)
		if !ok || cc != classSpace {
			break
		}
		pos++
	}
	return pos
}

// prevWordStart returns the offset of the start of the previous word.
func prevWordStart(buf *buffer.Buffer, off ByteOffset) ByteOffset {
	pos := off
	for pos > 0 {
		cc, _ := classAt(buf, pos-1)
		if cc != classSpace {
			break
		}
		pos--
	}
	if pos == 0 {
		return 0
	}
	c, _ := classAt(buf, pos-1)
	for pos > 0 {
		cc, _ := classAt(buf, pos-1)
		if cc != c {
			break
		}
		pos--
	}
	return pos
}

// Bracket matching

var bracketPairs = map[byte]struct {
	match   byte
	forward bool
}{
	'(': {')', true},
	'[': {']', true},
	'{': {'}', true},
	')': {'(', false},
	']': {'[', false},
	'}': {'{', false},
}

// matchBracket finds the partner of the bracket under the cursor.
// Returns false if the cursor is not on a bracket or no partner exists.
func matchBracket(buf *buffer.Buffer, off ByteOffset) (ByteOffset, bool) {
	open, ok := buf.ByteAt(off)
	if !ok {
		return 0, false
	}
	pair, ok := bracketPairs[open]
	if !ok {
		return 0, false
	}

	depth := 1
	if pair.forward {
		for pos := off + 1; pos < buf.Len(); pos++ {
			b, _ := buf.ByteAt(pos)
			switch b {
			case open:
				depth++
			case pair.match:
				depth--
				if depth == 0 {
					return pos, true
				}
			}
		}
	} else {
		for pos := off - 1; pos >= 0; pos-- {
			b, _ := buf.ByteAt(pos)
			switch b {
			case open:
				depth++
			case pair.match:
				depth--
				if depth == 0 {
					return pos, true
				}
			}
		}
	}
	return 0, false
}

// findChar locates the next occurrence of r after the cursor and returns
// the offset just past it, so the resulting span covers the character.
func findChar(buf *buffer.Buffer, off ByteOffset, r rune) (ByteOffset, bool) {
	enc := string(r)
	if enc == "" {
		return 0, false
	}
	from := off + 1
	for {
		pos := buf.IndexByte(from, enc[0])
		if pos < 0 {
			return 0, false
		}
		got, err := buf.TextRange(pos, pos+ByteOffset(len(enc)))
		if err == nil && got == enc {
			return pos + ByteOffset(len(enc)), true
		}
		from = pos + 1
	}
}
