package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dshills/selkie/plugin/security"
)

// fakeTarget is a minimal in-memory editing surface for host tests.
type fakeTarget struct {
	content string
	moves   []string
	inserts int
	deletes int
}

func (f *fakeTarget) Text() string { return f.content }
func (f *fakeTarget) Len() int64   { return int64(len(f.content)) }

func (f *fakeTarget) TextRange(start, end int64) (string, error) {
	if start < 0 || start > end || end > int64(len(f.content)) {
		return "", fmt.Errorf("range out of bounds")
	}
	return f.content[start:end], nil
}

func (f *fakeTarget) Selections() []SelectionPos {
	return []SelectionPos{{Anchor: 0, Cursor: 0}}
}

func (f *fakeTarget) Insert(at int64, text string) error {
	if at < 0 || at > int64(len(f.content)) {
		return fmt.Errorf("offset out of bounds")
	}
	f.content = f.content[:at] + text + f.content[at:]
	f.inserts++
	return nil
}

func (f *fakeTarget) Delete(start, end int64) error {
	if start < 0 || start > end || end > int64(len(f.content)) {
		return fmt.Errorf("range out of bounds")
	}
	f.content = f.content[:start] + f.content[end:]
	f.deletes++
	return nil
}

func (f *fakeTarget) Move(movement string, count int) error {
	f.moves = append(f.moves, fmt.Sprintf("%s:%d", movement, count))
	return nil
}

func allowAll() security.Token {
	return security.NewToken(
		security.CapBufferRead,
		security.CapBufferMutate,
		security.CapSelectionRead,
		security.CapSelectionMove,
	)
}

func loadPlugin(t *testing.T, manifest *Manifest, target Target, src string) *Host {
	t.Helper()
	h, err := NewHost(manifest, allowAll(), target)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	t.Cleanup(h.Close)
	if err := h.Load(context.Background(), []byte(src)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

func readOnlyManifest() *Manifest {
	return &Manifest{
		Name:         "probe",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapBufferRead},
	}
}

func mutatingManifest() *Manifest {
	return &Manifest{
		Name:         "mutator",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapBufferRead, security.CapBufferMutate},
	}
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name string
		json string
		ok   bool
	}{
		{"valid", `{"name":"my-plugin","version":"1.0.0","capabilities":["buffer.read"]}`, true},
		{"bad json", `{`, false},
		{"bad name", `{"name":"My Plugin","version":"1.0.0"}`, false},
		{"missing version", `{"name":"my-plugin"}`, false},
		{"unknown capability", `{"name":"p","version":"1","capabilities":["root"]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.json))
			if tt.ok && err != nil {
				t.Fatalf("err = %v", err)
			}
			if !tt.ok {
				if !errors.Is(err, ErrInvalidManifest) {
					t.Fatalf("err = %v, want ErrInvalidManifest", err)
				}
				if m != nil {
					t.Fatal("manifest returned alongside error")
				}
			}
		})
	}
}

func TestLoadDeniedCapability(t *testing.T) {
	manifest := &Manifest{
		Name:         "greedy",
		Version:      "1.0.0",
		Capabilities: []security.Capability{security.CapFilesystem},
	}

	_, err := NewHost(manifest, allowAll(), &fakeTarget{})
	if !errors.Is(err, security.ErrCapabilityDenied) {
		t.Fatalf("err = %v, want ErrCapabilityDenied", err)
	}
}

func TestPluginReadsBuffer(t *testing.T) {
	target := &fakeTarget{content: "hello"}
	h := loadPlugin(t, readOnlyManifest(), target, `
		function check()
			assert(ed.text() == "hello", "text mismatch")
			assert(ed.len() == 5, "len mismatch")
			assert(ed.text_range(1, 4) == "ell", "range mismatch")
		end
	`)

	if err := h.Call(context.Background(), "check"); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestReadOnlyPluginCannotInsert(t *testing.T) {
	target := &fakeTarget{content: "hello"}
	h := loadPlugin(t, readOnlyManifest(), target, `
		function attack()
			ed.insert(0, "pwned")
		end
	`)

	err := h.Call(context.Background(), "attack")
	if !errors.Is(err, security.ErrCapabilityViolation) {
		t.Fatalf("err = %v, want ErrCapabilityViolation", err)
	}
	if target.content != "hello" {
		t.Fatalf("buffer mutated: %q", target.content)
	}
	if target.inserts != 0 {
		t.Fatal("insert reached the target")
	}
}

func TestMutatingPluginInserts(t *testing.T) {
	target := &fakeTarget{content: "world"}
	h := loadPlugin(t, mutatingManifest(), target, `
		function prepend()
			ed.insert(0, "hello ")
		end
	`)

	if err := h.Call(context.Background(), "prepend"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if target.content != "hello world" {
		t.Fatalf("content = %q", target.content)
	}
}

func TestSelectionReadRequiresCapability(t *testing.T) {
	target := &fakeTarget{content: "x"}
	h := loadPlugin(t, readOnlyManifest(), target, `
		function peek()
			ed.selections()
		end
	`)

	if err := h.Call(context.Background(), "peek"); !errors.Is(err, security.ErrCapabilityViolation) {
		t.Fatalf("err = %v, want ErrCapabilityViolation", err)
	}
}

func TestTargetErrorSurfacesToCaller(t *testing.T) {
	target := &fakeTarget{content: "abc"}
	h := loadPlugin(t, mutatingManifest(), target, `
		function bad()
			ed.delete(0, 99)
		end
	`)

	if err := h.Call(context.Background(), "bad"); err == nil {
		t.Fatal("expected an error for an out-of-bounds delete")
	}
	if target.content != "abc" {
		t.Fatalf("content = %q", target.content)
	}
}

func TestExecutionTimeout(t *testing.T) {
	target := &fakeTarget{}
	h, err := NewHost(readOnlyManifest(), allowAll(), target,
		WithResourceLimits(security.ResourceLimits{ExecutionTimeout: 20 * time.Millisecond}))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	err = h.Load(context.Background(), []byte(`while true do end`))
	if !errors.Is(err, security.ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
}

func TestInstructionBudget(t *testing.T) {
	target := &fakeTarget{content: "x"}
	h, err := NewHost(readOnlyManifest(), allowAll(), target,
		WithResourceLimits(security.ResourceLimits{InstructionLimit: 10}))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	src := `
		function churn()
			for i = 1, 100 do ed.len() end
		end
	`
	if err := h.Load(context.Background(), []byte(src)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := h.Call(context.Background(), "churn"); !errors.Is(err, security.ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
}

func TestBudgetResetsBetweenCalls(t *testing.T) {
	target := &fakeTarget{content: "x"}
	h, err := NewHost(readOnlyManifest(), allowAll(), target,
		WithResourceLimits(security.ResourceLimits{InstructionLimit: 10}))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	src := `
		function small()
			for i = 1, 5 do ed.len() end
		end
	`
	if err := h.Load(context.Background(), []byte(src)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := h.Call(context.Background(), "small"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestCallUnknownFunction(t *testing.T) {
	h := loadPlugin(t, readOnlyManifest(), &fakeTarget{}, `x = 1`)

	if err := h.Call(context.Background(), "missing"); !errors.Is(err, ErrNoFunction) {
		t.Fatalf("err = %v, want ErrNoFunction", err)
	}
}

func TestCallBeforeLoad(t *testing.T) {
	h, err := NewHost(readOnlyManifest(), allowAll(), &fakeTarget{})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Call(context.Background(), "anything"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestDangerousGlobalsRemoved(t *testing.T) {
	h := loadPlugin(t, readOnlyManifest(), &fakeTarget{}, `
		function audit()
			assert(dofile == nil, "dofile leaked")
			assert(loadfile == nil, "loadfile leaked")
			assert(load == nil, "load leaked")
			assert(os == nil, "os leaked")
			assert(io == nil, "io leaked")
		end
	`)

	if err := h.Call(context.Background(), "audit"); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestGuestErrorDoesNotPanicHost(t *testing.T) {
	h := loadPlugin(t, readOnlyManifest(), &fakeTarget{}, `
		function boom()
			error("guest failure")
		end
	`)

	err := h.Call(context.Background(), "boom")
	if err == nil {
		t.Fatal("expected guest error to surface")
	}
	// Host still usable afterwards.
	if err := h.Call(context.Background(), "boom"); err == nil {
		t.Fatal("expected second call to fail the same way")
	}
}
