package sched

// Port is the architecture layer the scheduler runs on. A hardware port
// maps these onto the tick timer, the pendable service and supervisor call
// vectors, and the register save/restore sequence; the host port in
// internal/port/sim emulates them with goroutines.
//
// Tick, trap and pend handlers are serialized by the port. The scheduler
// relies on that and takes no locks of its own.
type Port interface {
	// Runtime returns monotonic milliseconds since boot.
	Runtime() uint64

	InstallTick(handler func())
	InstallHandlers(pend func(), trap func(Request) Result)

	// Pend requests a deferred context switch. The pend handler runs later,
	// after the current handler has returned.
	Pend()

	// SwitchTask saves the running context into prev (nil when the running
	// task no longer exists) and resumes next.
	SwitchTask(prev, next *Task)

	// SetupTaskStack builds the initial context of t so that the first
	// switch into it calls trampoline(t). It returns the initial stack
	// pointer.
	SetupTaskStack(trampoline func(*Task), t *Task) uintptr

	// StartFirst performs the very first switch into t.
	StartFirst(t *Task)

	// Invoke traps from task context into the installed trap handler.
	Invoke(req Request) Result

	Malloc(size uintptr) uintptr
	Free(ptr uintptr)

	// WaitForInterrupt parks the core until the next interrupt.
	WaitForInterrupt()
}
