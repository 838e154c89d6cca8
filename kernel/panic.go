package kernel

import (
	"fmt"
	"sync/atomic"
)

// Violation is the panic value of a failed kernel assertion.
//
// Violations are programming errors (blocking in interrupt context, releasing
// a lock that is not held, ...). Scheduler state cannot be trusted after one,
// so the kernel halts.
type Violation string

func (v Violation) Error() string { return "assertion failed: " + string(v) }

// PanicInfo contains details about a kernel panic.
type PanicInfo struct {
	Thread TID
	Name   string
	Value  any
	Stack  []byte
}

// PanicError is returned by Kernel.Run after a kernel panic.
type PanicError struct {
	Info PanicInfo
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("kernel panic in thread %q (tid %d): %v", e.Info.Name, e.Info.Thread, e.Info.Value)
}

// Violation returns the assertion message when the panic was a contract
// violation.
func (e *PanicError) Violation() (Violation, bool) {
	v, ok := e.Info.Value.(Violation)
	return v, ok
}

var panicHandler atomic.Value // func(PanicInfo)

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked once per panicking kernel. It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func (k *Kernel) assert(cond bool, msg string) {
	if !cond {
		panic(Violation(msg))
	}
}

func (k *Kernel) fail(t *Thread, value any) {
	info := PanicInfo{Value: value, Stack: captureStack()}
	if t != nil {
		info.Thread = t.id
		info.Name = t.name
	}
	k.halt(&PanicError{Info: info}, func() {
		k.log.WriteLineString(fmt.Sprintf("Kernel PANIC in %q: %v", info.Name, value))
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
