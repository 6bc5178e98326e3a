package security

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ResourceLimits bounds one plugin invocation.
type ResourceLimits struct {
	// ExecutionTimeout is the wall-clock budget per call.
	ExecutionTimeout time.Duration

	// MemoryLimit in bytes. Advisory: the Lua runtime does not enforce
	// hard memory limits, but hosts surface it to operators.
	MemoryLimit int64

	// InstructionLimit caps VM instructions per call, counted by the
	// host bridge on each guest-to-host crossing.
	InstructionLimit int64
}

// DefaultResourceLimits returns the limits for ordinary plugins.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		ExecutionTimeout: 5 * time.Second,
		MemoryLimit:      10 * 1024 * 1024,
		InstructionLimit: 10_000_000,
	}
}

// StrictResourceLimits returns tighter limits for untrusted plugins.
func StrictResourceLimits() ResourceLimits {
	return ResourceLimits{
		ExecutionTimeout: 2 * time.Second,
		MemoryLimit:      5 * 1024 * 1024,
		InstructionLimit: 1_000_000,
	}
}

// Monitor tracks one plugin's resource usage against its limits.
// Counters are per call; Reset runs at every call boundary.
type Monitor struct {
	limits       ResourceLimits
	instructions int64
}

// NewMonitor creates a monitor enforcing the given limits.
func NewMonitor(limits ResourceLimits) *Monitor {
	return &Monitor{limits: limits}
}

// Limits returns the configured limits.
func (m *Monitor) Limits() ResourceLimits {
	return m.limits
}

// CallContext derives the bounded context one plugin call runs under.
func (m *Monitor) CallContext(parent context.Context) (context.Context, context.CancelFunc) {
	if m.limits.ExecutionTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, m.limits.ExecutionTimeout)
}

// Count adds n to the instruction counter and fails with
// ErrResourceExhausted once the budget is exceeded.
func (m *Monitor) Count(n int64) error {
	total := atomic.AddInt64(&m.instructions, n)
	if m.limits.InstructionLimit > 0 && total > m.limits.InstructionLimit {
		return fmt.Errorf("%w: instruction budget", ErrResourceExhausted)
	}
	return nil
}

// Reset clears the per-call counters.
func (m *Monitor) Reset() {
	atomic.StoreInt64(&m.instructions, 0)
}
