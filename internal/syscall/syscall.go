// Package syscall is the only way task code talks to the scheduler. Every
// call builds a sched.Request and traps through the bound Gate.
package syscall

import (
	"errors"
	"sync/atomic"

	"krtos/internal/sched"
)

// ErrNoGate is returned when no port has bound its trap entry yet.
var ErrNoGate = errors.New("syscall: no gate bound")

// Gate is the trap edge of a port.
type Gate interface {
	Invoke(req sched.Request) sched.Result
}

type binding struct{ g Gate }

var gate atomic.Pointer[binding]

// Bind installs g as the trap entry for all subsequent calls. Passing nil
// unbinds.
func Bind(g Gate) {
	if g == nil {
		gate.Store(nil)
		return
	}
	gate.Store(&binding{g: g})
}

// Unbind removes g if it is still the installed gate.
func Unbind(g Gate) {
	b := gate.Load()
	if b != nil && b.g == g {
		gate.CompareAndSwap(b, nil)
	}
}

// Bound reports whether a gate is installed.
func Bound() bool { return gate.Load() != nil }

func invoke(req sched.Request) (sched.Result, bool) {
	b := gate.Load()
	if b == nil {
		return sched.Result{Err: ErrNoGate}, false
	}
	return b.g.Invoke(req), true
}

// CreateTask registers t with the running scheduler.
func CreateTask(t *sched.Task) error {
	res, _ := invoke(sched.Request{Op: sched.OpCreateTask, Task: t})
	return res.Err
}

// DeleteTask removes t. Deleting the calling task does not return.
func DeleteTask(t *sched.Task) bool {
	res, _ := invoke(sched.Request{Op: sched.OpDeleteTask, Task: t})
	return res.OK
}

// Yield lets the scheduler pick another task of at least equal priority.
func Yield() {
	invoke(sched.Request{Op: sched.OpYield})
}

// YieldOn blocks the calling task until w stops waiting. The scheduler polls
// w on every tick and syscall; releasing w does not reschedule by itself.
func YieldOn(w sched.Waitable) {
	invoke(sched.Request{Op: sched.OpYield, Waitable: w})
}

func Sleep(ms uint32) {
	invoke(sched.Request{Op: sched.OpSleep, Millis: ms})
}

// GetTime returns milliseconds since the scheduler's clock started.
func GetTime() uint64 {
	res, _ := invoke(sched.Request{Op: sched.OpGetTime})
	return res.Time
}

func Malloc(size uintptr) uintptr {
	res, _ := invoke(sched.Request{Op: sched.OpMalloc, Size: size})
	return res.Ptr
}

func Free(ptr uintptr) {
	invoke(sched.Request{Op: sched.OpFree, Ptr: ptr})
}

// WakeupHighestPriorityWaiter hands the core to the highest priority task
// blocked on w if it outranks the caller. It reports whether one was woken.
func WakeupHighestPriorityWaiter(w sched.Waitable) bool {
	res, _ := invoke(sched.Request{Op: sched.OpWakeupHighestPriorityWaiter, Waitable: w})
	return res.OK
}

// Self returns the ID of the calling task, or zero outside a task.
func Self() sched.TaskID {
	res, ok := invoke(sched.Request{Op: sched.OpSelf})
	if !ok || !res.OK {
		return 0
	}
	return res.Task
}
