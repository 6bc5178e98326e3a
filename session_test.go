package selkie

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/selkie/config"
	"github.com/dshills/selkie/history"
	"github.com/dshills/selkie/mode"
	"github.com/dshills/selkie/plugin"
	"github.com/dshills/selkie/plugin/security"
)

func submit(t *testing.T, s *Session, id BufferID, tokens ...string) ViewState {
	t.Helper()
	var view ViewState
	for _, tok := range tokens {
		var err error
		view, err = s.Submit(id, tok, 0)
		if err != nil {
			t.Fatalf("Submit(%q): %v", tok, err)
		}
	}
	return view
}

func TestOpenClose(t *testing.T) {
	s := NewSession(config.Default())

	id := s.Open("hello")
	if s.Active() != id {
		t.Fatal("opened buffer not active")
	}

	if err := s.Close(id); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(id); !errors.Is(err, ErrUnknownBuffer) {
		t.Fatalf("double close: err = %v, want ErrUnknownBuffer", err)
	}
	if _, err := s.Dump(id); !errors.Is(err, ErrUnknownBuffer) {
		t.Fatalf("dump after close: err = %v", err)
	}
}

func TestSubmitWordDeleteScenario(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("hello world")

	view := submit(t, s, id, "w")
	if len(view.Selections) != 1 || view.Selections[0] != (SelectionPos{Anchor: 0, Cursor: 6}) {
		t.Fatalf("after w: %+v", view.Selections)
	}
	if view.Dirty {
		t.Fatal("movement marked the buffer dirty")
	}

	view = submit(t, s, id, "d")
	dump, err := s.Dump(id)
	if err != nil {
		t.Fatal(err)
	}
	if dump.Content != "world" {
		t.Fatalf("content = %q, want world", dump.Content)
	}
	if view.Selections[0] != (SelectionPos{Anchor: 0, Cursor: 0}) {
		t.Fatalf("selection = %+v, want caret at 0", view.Selections[0])
	}
	if !view.Dirty {
		t.Fatal("mutation did not mark the buffer dirty")
	}
}

func TestUndoRedoControls(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("hello world")

	submit(t, s, id, "w", "d")
	if err := s.Undo(id); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	dump, _ := s.Dump(id)
	if dump.Content != "hello world" {
		t.Fatalf("after undo: %q", dump.Content)
	}
	view, _ := s.View(id)
	if view.Dirty {
		t.Fatal("buffer still dirty after undoing everything")
	}

	if err := s.Redo(id); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	dump, _ = s.Dump(id)
	if dump.Content != "world" {
		t.Fatalf("after redo: %q", dump.Content)
	}
}

func TestUndoEmptyHistory(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("hello")

	if err := s.Undo(id); !errors.Is(err, history.ErrNothingToUndo) {
		t.Fatalf("err = %v, want ErrNothingToUndo", err)
	}
	if err := s.Redo(id); !errors.Is(err, history.ErrNothingToRedo) {
		t.Fatalf("err = %v, want ErrNothingToRedo", err)
	}
	dump, _ := s.Dump(id)
	if dump.Content != "hello" {
		t.Fatalf("content changed: %q", dump.Content)
	}
}

func TestRevisionAdvances(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("abc")

	before, _ := s.Dump(id)
	submit(t, s, id, "%", "d")
	after, _ := s.Dump(id)
	if after.Revision <= before.Revision {
		t.Fatalf("revision did not advance: %d -> %d", before.Revision, after.Revision)
	}
}

func TestBuffersAreIndependent(t *testing.T) {
	s := NewSession(config.Default())
	a := s.Open("aaa")
	b := s.Open("bbb")

	submit(t, s, a, "%", "d")

	dumpA, _ := s.Dump(a)
	dumpB, _ := s.Dump(b)
	if dumpA.Content != "" {
		t.Fatalf("buffer a = %q", dumpA.Content)
	}
	if dumpB.Content != "bbb" {
		t.Fatalf("buffer b touched: %q", dumpB.Content)
	}
	if err := s.Undo(b); !errors.Is(err, history.ErrNothingToUndo) {
		t.Fatalf("buffer b has foreign history: %v", err)
	}
}

func TestSubmitUnknownBuffer(t *testing.T) {
	s := NewSession(config.Default())
	if _, err := s.Submit("ghost", "w", 0); !errors.Is(err, ErrUnknownBuffer) {
		t.Fatalf("err = %v, want ErrUnknownBuffer", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("hello world")
	submit(t, s, id, "w")

	snap, err := s.Snapshot(id)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got := gjson.Get(snap, "content").String(); got != "hello world" {
		t.Fatalf("snapshot content = %q", got)
	}
	if got := gjson.Get(snap, "mode").String(); got != "normal" {
		t.Fatalf("snapshot mode = %q", got)
	}

	restored, err := s.OpenSnapshot(snap)
	if err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	view, _ := s.View(restored)
	if len(view.Selections) != 1 || view.Selections[0] != (SelectionPos{Anchor: 0, Cursor: 6}) {
		t.Fatalf("restored selections = %+v", view.Selections)
	}
	dump, _ := s.Dump(restored)
	if dump.Content != "hello world" {
		t.Fatalf("restored content = %q", dump.Content)
	}
}

func TestOpenSnapshotInvalid(t *testing.T) {
	s := NewSession(config.Default())

	if _, err := s.OpenSnapshot("{not json"); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
	if _, err := s.OpenSnapshot(`{"mode":"normal"}`); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("missing content: err = %v", err)
	}
}

func TestReadOnlyPluginCannotMutate(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("hello")

	manifest := &plugin.Manifest{
		Name:         "probe",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapBufferRead},
	}
	src := []byte(`
		function attack()
			ed.insert(0, "pwned")
		end
	`)
	if _, err := s.LoadPlugin(src, manifest); err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}

	err := s.CallPlugin("probe", "attack")
	if !errors.Is(err, security.ErrCapabilityViolation) {
		t.Fatalf("err = %v, want ErrCapabilityViolation", err)
	}

	dump, _ := s.Dump(id)
	if dump.Content != "hello" {
		t.Fatalf("buffer mutated: %q", dump.Content)
	}
	if err := s.Undo(id); !errors.Is(err, history.ErrNothingToUndo) {
		t.Fatal("history gained an entry from a denied call")
	}
}

func TestPluginMutationIsUndoable(t *testing.T) {
	s := NewSession(config.Default())
	id := s.Open("world")

	manifest := &plugin.Manifest{
		Name:         "greeter",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapBufferMutate},
	}
	src := []byte(`
		function greet()
			ed.insert(0, "hello ")
		end
	`)
	if _, err := s.LoadPlugin(src, manifest); err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}
	if err := s.CallPlugin("greeter", "greet"); err != nil {
		t.Fatalf("CallPlugin: %v", err)
	}

	dump, _ := s.Dump(id)
	if dump.Content != "hello world" {
		t.Fatalf("content = %q", dump.Content)
	}

	if err := s.Undo(id); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	dump, _ = s.Dump(id)
	if dump.Content != "world" {
		t.Fatalf("after undo: %q", dump.Content)
	}
}

func TestPluginDeniedByPolicy(t *testing.T) {
	opts := config.Default()
	opts.Plugins.AllowedCapabilities = []string{string(security.CapBufferRead)}
	s := NewSession(opts)
	s.Open("x")

	manifest := &plugin.Manifest{
		Name:         "writer",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapBufferMutate},
	}
	_, err := s.LoadPlugin([]byte(`x = 1`), manifest)
	if !errors.Is(err, security.ErrCapabilityDenied) {
		t.Fatalf("err = %v, want ErrCapabilityDenied", err)
	}
}

func TestPluginContributedMode(t *testing.T) {
	s := NewSession(config.Default())
	s.Open("x")

	manifest := &plugin.Manifest{
		Name:    "modal",
		Version: "1.0.0",
		Modes:   []plugin.ModeContribution{{Name: "select", Parent: "normal"}},
	}
	if _, err := s.LoadPlugin([]byte(`x = 1`), manifest); err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}

	if _, ok := s.modes.Lookup(mode.Name("select")); !ok {
		t.Fatal("contributed mode not registered")
	}

	if err := s.UnloadPlugin("modal"); err != nil {
		t.Fatalf("UnloadPlugin: %v", err)
	}
	if _, ok := s.modes.Lookup(mode.Name("select")); ok {
		t.Fatal("contributed mode survived unload")
	}
}

func TestDuplicatePluginRejected(t *testing.T) {
	s := NewSession(config.Default())
	s.Open("x")

	manifest := &plugin.Manifest{Name: "dup", Version: "1.0.0"}
	if _, err := s.LoadPlugin([]byte(`x = 1`), manifest); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPlugin([]byte(`x = 1`), manifest); !errors.Is(err, ErrPluginExists) {
		t.Fatalf("err = %v, want ErrPluginExists", err)
	}
}

func TestUnloadUnknownPlugin(t *testing.T) {
	s := NewSession(config.Default())
	if err := s.UnloadPlugin("ghost"); !errors.Is(err, ErrUnknownPlugin) {
		t.Fatalf("err = %v, want ErrUnknownPlugin", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	s1 := NewSession(config.Default())
	s2 := NewSession(config.Default())

	id1 := s1.Open("one")
	id2 := s2.Open("two")

	submit(t, s1, id1, "%", "d")

	dump2, err := s2.Dump(id2)
	if err != nil {
		t.Fatal(err)
	}
	if dump2.Content != "two" {
		t.Fatalf("session 2 affected: %q", dump2.Content)
	}
}
