package sched

// TaskID uniquely identifies a registered task. IDs are handed out by the
// scheduler at registration and never reused; zero means "no task".
type TaskID uint32

const (
	MinPriority = 0
	MaxPriority = 255
)

// Entry is the body of a task. It receives the two arguments captured at
// construction.
type Entry func(arg0, arg1 any)

// Task is the task control block.
type Task struct {
	StackPointer uintptr // saved context, rewritten on every switch
	Stack        []byte  // owned execution stack

	id              TaskID
	priority        int // base priority, fixed at construction
	currentPriority int // effective priority, raised by inheritance only
	sleeping        bool
	wakeupTime      uint64   // ms, valid while sleeping
	waitable        Waitable // nil unless blocked

	entry      Entry
	arg0, arg1 any
}

// NewTask creates a task control block with its own stack. The task does
// nothing until it is registered with a scheduler.
func NewTask(priority, stackSize int, entry Entry, arg0, arg1 any) *Task {
	// clamp priority within the legal region.
	if priority < MinPriority {
		priority = MinPriority
	} else if priority > MaxPriority {
		priority = MaxPriority
	}
	if stackSize < MinStackSize {
		stackSize = MinStackSize
	}

	return &Task{
		Stack:           make([]byte, stackSize),
		priority:        priority,
		currentPriority: priority,
		entry:           entry,
		arg0:            arg0,
		arg1:            arg1,
	}
}

func (t *Task) ID() TaskID           { return t.id }
func (t *Task) Priority() int        { return t.priority }
func (t *Task) CurrentPriority() int { return t.currentPriority }
func (t *Task) Sleeping() bool       { return t.sleeping }
func (t *Task) WakeupTime() uint64   { return t.wakeupTime }

// Waiting returns the waitable the task is blocked on, or nil.
func (t *Task) Waiting() Waitable { return t.waitable }

// eligible reports whether t may run at time now, waking it from a finished
// sleep and clearing a block whose waitable has been released.
func (t *Task) eligible(now uint64) (ok, woke, unblocked bool) {
	if t.sleeping {
		if t.wakeupTime > now {
			return false, false, false
		}
		t.sleeping = false
		woke = true
	}
	if t.waitable != nil {
		if t.waitable.IsWaiting() {
			return false, woke, false
		}
		t.waitable = nil
		unblocked = true
	}
	return true, woke, unblocked
}

// trampoline is what a fresh context starts executing. When the entry
// returns the task removes itself; a successful delete never comes back.
func trampoline(p Port, t *Task) {
	if t.entry != nil {
		t.entry(t.arg0, t.arg1)
	}
	p.Invoke(Request{Op: OpDeleteTask, Task: t})
	for {
		p.WaitForInterrupt()
	}
}
