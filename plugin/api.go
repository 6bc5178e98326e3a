package plugin

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/selkie/plugin/security"
)

// installAPI registers the `ed` table, the guest's entire view of the
// editor. Every function is wrapped with a capability check and an
// instruction tick.
func (h *Host) installAPI(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "text", L.NewFunction(h.guard(security.CapBufferRead, h.apiText)))
	L.SetField(mod, "len", L.NewFunction(h.guard(security.CapBufferRead, h.apiLen)))
	L.SetField(mod, "text_range", L.NewFunction(h.guard(security.CapBufferRead, h.apiTextRange)))
	L.SetField(mod, "selections", L.NewFunction(h.guard(security.CapSelectionRead, h.apiSelections)))
	L.SetField(mod, "insert", L.NewFunction(h.guard(security.CapBufferMutate, h.apiInsert)))
	L.SetField(mod, "delete", L.NewFunction(h.guard(security.CapBufferMutate, h.apiDelete)))
	L.SetField(mod, "move", L.NewFunction(h.guard(security.CapSelectionMove, h.apiMove)))

	L.SetGlobal("ed", mod)
}

// guard wraps an API function with the per-call boundary checks. The
// boundary error is stashed in callErr before raising, so the caller
// of Load/Call sees the sentinel rather than a stringified Lua error.
func (h *Host) guard(cap security.Capability, fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if err := h.monitor.Count(1); err != nil {
			h.fail(L, err)
			return 0
		}
		if err := h.token.Check(cap); err != nil {
			h.fail(L, err)
			return 0
		}
		return fn(L)
	}
}

// fail records the boundary error and aborts the guest call.
func (h *Host) fail(L *lua.LState, err error) {
	h.callErr = err
	L.RaiseError("%s", err.Error())
}

// text() -> string
func (h *Host) apiText(L *lua.LState) int {
	L.Push(lua.LString(h.target.Text()))
	return 1
}

// len() -> number
func (h *Host) apiLen(L *lua.LState) int {
	L.Push(lua.LNumber(h.target.Len()))
	return 1
}

// text_range(start, end) -> string
func (h *Host) apiTextRange(L *lua.LState) int {
	start := int64(L.CheckInt(1))
	end := int64(L.CheckInt(2))

	text, err := h.target.TextRange(start, end)
	if err != nil {
		h.fail(L, err)
		return 0
	}
	L.Push(lua.LString(text))
	return 1
}

// selections() -> { {anchor=, cursor=}, ... }
func (h *Host) apiSelections(L *lua.LState) int {
	sels := h.target.Selections()
	out := L.NewTable()
	for i, sel := range sels {
		entry := L.NewTable()
		L.SetField(entry, "anchor", lua.LNumber(sel.Anchor))
		L.SetField(entry, "cursor", lua.LNumber(sel.Cursor))
		out.RawSetInt(i+1, entry)
	}
	L.Push(out)
	return 1
}

// insert(at, text)
func (h *Host) apiInsert(L *lua.LState) int {
	at := int64(L.CheckInt(1))
	text := L.CheckString(2)

	if err := h.target.Insert(at, text); err != nil {
		h.fail(L, err)
		return 0
	}
	return 0
}

// delete(start, end)
func (h *Host) apiDelete(L *lua.LState) int {
	start := int64(L.CheckInt(1))
	end := int64(L.CheckInt(2))

	if err := h.target.Delete(start, end); err != nil {
		h.fail(L, err)
		return 0
	}
	return 0
}

// move(movement, count?)
func (h *Host) apiMove(L *lua.LState) int {
	movement := L.CheckString(1)
	count := L.OptInt(2, 1)

	if err := h.target.Move(movement, count); err != nil {
		h.fail(L, err)
		return 0
	}
	return 0
}
