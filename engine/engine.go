// Package engine interprets key tokens against the active mode and
// applies the resulting movements and actions to a buffer, its
// selection set, and its history.
//
// Tokens are short strings: printable characters name themselves
// ("h", "d", "%"), and a few special keys have word names ("esc",
// "ret", "tab", "backspace"). Tokens that are not bound in the current
// mode are silently ignored.
package engine

import (
	"strings"

	"github.com/dshills/selkie/buffer"
	"github.com/dshills/selkie/history"
	"github.com/dshills/selkie/mode"
	"github.com/dshills/selkie/register"
	"github.com/dshills/selkie/selection"
)

// Context carries the per-buffer editing state one Handle call acts on.
// The engine mutates the selection set and, through transactions, the
// buffer and history.
type Context struct {
	Buffer     *buffer.Buffer
	Selections *selection.Set
	History    *history.History
}

// pending marks a multi-key sequence awaiting its second key.
type pending uint8

const (
	pendingNone pending = iota
	pendingGoto
	pendingFind
	pendingFindExtend
)

// Engine is the modal dispatcher for one editing session. It owns the
// mode state machine, the numeric prefix accumulator, and the pending
// multi-key state. It is not safe for concurrent use; the session
// serializes Handle calls.
type Engine struct {
	modes *mode.Registry
	regs  *register.Registers

	current mode.Name
	pend    pending
	count   int
	reg     register.Name

	cmdline     strings.Builder
	lastCommand string
}

// New creates an engine in Normal mode writing to the default register.
func New(modes *mode.Registry, regs *register.Registers) *Engine {
	return &Engine{
		modes:   modes,
		regs:    regs,
		current: mode.Normal,
		reg:     register.Default,
	}
}

// Mode returns the active mode.
func (e *Engine) Mode() mode.Name {
	return e.current
}

// SetMode switches to a registered mode. Unknown modes are rejected.
func (e *Engine) SetMode(name mode.Name) error {
	if _, ok := e.modes.Lookup(name); !ok {
		return mode.ErrModeUnknown
	}
	e.current = name
	e.pend = pendingNone
	e.count = 0
	return nil
}

// UseRegister selects the register the next yank, delete, or paste
// uses. It stays selected until changed.
func (e *Engine) UseRegister(name register.Name) error {
	if !name.IsValid() {
		return register.ErrInvalidName
	}
	e.reg = name
	return nil
}

// LastCommand returns the most recently committed command line.
func (e *Engine) LastCommand() string {
	return e.lastCommand
}

// Handle dispatches one token. prefix, when positive, overrides any
// accumulated digit prefix as the repeat count; zero means no prefix.
// Tokens not bound in the active mode are no-ops.
func (e *Engine) Handle(ctx Context, token string, prefix int) error {
	switch e.modes.Resolve(e.current) {
	case mode.Insert:
		return e.handleInsert(ctx, token)
	case mode.CommandLine:
		return e.handleCommandLine(token)
	default:
		return e.handleNormal(ctx, token, prefix)
	}
}

// takeCount consumes the pending repeat count: an explicit prefix wins,
// then accumulated digits, then 1.
func (e *Engine) takeCount(prefix int) int {
	count := prefix
	if count <= 0 {
		count = e.count
	}
	e.count = 0
	if count <= 0 {
		count = 1
	}
	return count
}

func (e *Engine) handleNormal(ctx Context, token string, prefix int) error {
	if e.pend != pendingNone {
		return e.handlePending(ctx, token, prefix)
	}

	// Digits accumulate into the prefix; a leading 0 contributes
	// nothing and falls through as "no prefix".
	if len(token) == 1 && token[0] >= '0' && token[0] <= '9' {
		e.count = e.count*10 + int(token[0]-'0')
		return nil
	}

	count := e.takeCount(prefix)

	switch token {
	// Movements.
	case "h":
		selection.Move(ctx.Buffer, ctx.Selections, selection.CharLeft, count, 0)
	case "l":
		selection.Move(ctx.Buffer, ctx.Selections, selection.CharRight, count, 0)
	case "j":
		selection.Move(ctx.Buffer, ctx.Selections, selection.CharDown, count, 0)
	case "k":
		selection.Move(ctx.Buffer, ctx.Selections, selection.CharUp, count, 0)
	case "w":
		selection.Move(ctx.Buffer, ctx.Selections, selection.WordForward, count, 0)
	case "b":
		selection.Move(ctx.Buffer, ctx.Selections, selection.WordBackward, count, 0)
	case "m":
		selection.Move(ctx.Buffer, ctx.Selections, selection.MatchingBracket, count, 0)
	case "x":
		selection.Move(ctx.Buffer, ctx.Selections, selection.LineSelect, count, 0)

	// Extend variants.
	case "H":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.CharLeft, count, 0)
	case "L":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.CharRight, count, 0)
	case "J":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.CharDown, count, 0)
	case "K":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.CharUp, count, 0)
	case "W":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.WordForward, count, 0)
	case "B":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.WordBackward, count, 0)
	case "M":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.MatchingBracket, count, 0)
	case "X":
		selection.Extend(ctx.Buffer, ctx.Selections, selection.LineSelect, count, 0)

	// Multi-key sequences.
	case "g":
		e.pend = pendingGoto
		e.count = count // a prefix before g applies to the goto target
	case "f":
		e.pend = pendingFind
		e.count = count
	case "F":
		e.pend = pendingFindExtend
		e.count = count

	// Selection manipulation.
	case "%":
		ctx.Selections.Set(selection.New(0, ctx.Buffer.Len()))
	case "'":
		ctx.Selections.MapInPlace(selection.Selection.Flip)
	case ";":
		ctx.Selections.CollapseAll()
	case ",":
		ctx.Selections.KeepPrimary()

	// Actions.
	case "d":
		return e.deleteSelections(ctx)
	case "c":
		if err := e.deleteSelections(ctx); err != nil {
			return err
		}
		e.current = mode.Insert
	case "y":
		return e.yankSelections(ctx)
	case "p":
		return e.pasteAfter(ctx, count)
	case "i":
		ctx.Selections.MapInPlace(selection.Selection.CollapseToStart)
		e.current = mode.Insert
	case "a":
		ctx.Selections.MapInPlace(func(s selection.Selection) selection.Selection {
			return selection.Caret(s.End())
		})
		e.current = mode.Insert
	case "o":
		return e.openBelow(ctx)
	case "u":
		return e.undo(ctx)
	case "U":
		return e.redo(ctx)
	case ":":
		e.cmdline.Reset()
		e.current = mode.CommandLine
	case "esc":
		// Clears any accumulated prefix; takeCount above already did.
	default:
		// Unbound in this mode: silent no-op.
	}
	return nil
}

// handlePending resolves the second key of a goto or find sequence.
func (e *Engine) handlePending(ctx Context, token string, prefix int) error {
	pend := e.pend
	e.pend = pendingNone

	if token == "esc" {
		e.count = 0
		return nil
	}

	count := e.takeCount(prefix)

	switch pend {
	case pendingGoto:
		switch token {
		case "h":
			selection.Move(ctx.Buffer, ctx.Selections, selection.LineStart, 1, 0)
		case "l":
			selection.Move(ctx.Buffer, ctx.Selections, selection.LineEnd, 1, 0)
		case "g":
			selection.Move(ctx.Buffer, ctx.Selections, selection.BufferStart, 1, 0)
		case "e":
			selection.Move(ctx.Buffer, ctx.Selections, selection.BufferEnd, 1, 0)
		}
	case pendingFind, pendingFindExtend:
		target, ok := firstRune(token)
		if !ok {
			return nil
		}
		if pend == pendingFindExtend {
			selection.Extend(ctx.Buffer, ctx.Selections, selection.FindChar, count, target)
		} else {
			selection.Move(ctx.Buffer, ctx.Selections, selection.FindChar, count, target)
		}
	}
	return nil
}

func (e *Engine) handleInsert(ctx Context, token string) error {
	switch token {
	case "esc":
		e.current = mode.Normal
		return nil
	case "backspace":
		return e.backspace(ctx)
	case "ret":
		return e.insertText(ctx, "\n")
	case "tab":
		return e.insertText(ctx, "\t")
	default:
		if token == "" {
			return nil
		}
		return e.insertText(ctx, token)
	}
}

func (e *Engine) handleCommandLine(token string) error {
	switch token {
	case "esc":
		e.cmdline.Reset()
		e.current = mode.Normal
	case "ret":
		e.lastCommand = e.cmdline.String()
		e.cmdline.Reset()
		e.current = mode.Normal
	case "backspace":
		s := e.cmdline.String()
		if len(s) > 0 {
			_, size := lastRune(s)
			e.cmdline.Reset()
			e.cmdline.WriteString(s[:len(s)-size])
		}
	case "tab":
		e.cmdline.WriteByte('\t')
	default:
		e.cmdline.WriteString(token)
	}
	return nil
}

func firstRune(s string) (rune, bool) {
	for _, r := range s {
		return r, true
	}
	return 0, false
}

func lastRune(s string) (rune, int) {
	var r rune
	var size int
	for i, c := range s {
		r = c
		size = len(s) - i
	}
	return r, size
}
