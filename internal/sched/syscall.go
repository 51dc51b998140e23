package sched

import "fmt"

// Op is a syscall number.
type Op uint8

const (
	OpCreateTask Op = iota
	OpDeleteTask
	OpYield
	OpSleep
	OpGetTime
	OpMalloc
	OpFree
	OpWakeupHighestPriorityWaiter
	OpSelf
)

func (op Op) String() string {
	switch op {
	case OpCreateTask:
		return "create_task"
	case OpDeleteTask:
		return "delete_task"
	case OpYield:
		return "yield"
	case OpSleep:
		return "sleep"
	case OpGetTime:
		return "get_time"
	case OpMalloc:
		return "malloc"
	case OpFree:
		return "free"
	case OpWakeupHighestPriorityWaiter:
		return "wakeup_highest_priority_waiter"
	case OpSelf:
		return "self"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Request is one trap into the scheduler. Only the payload fields that
// belong to Op are read.
type Request struct {
	Op       Op
	Task     *Task    // create_task, delete_task
	Waitable Waitable // yield, wakeup_highest_priority_waiter
	Millis   uint32   // sleep
	Size     uintptr  // malloc
	Ptr      uintptr  // free
}

// Result is what a trap hands back to the caller.
type Result struct {
	OK   bool
	Time uint64  // get_time
	Ptr  uintptr // malloc
	Task TaskID  // self
	Err  error
}
