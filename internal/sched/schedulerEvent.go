// internal/sched/schedulerEvent.go

package sched

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusDispatch
	StatusPreempt
	StatusSleep
	StatusBlock
	StatusWake
	StatusUnblock
	StatusFinish
	StatusPriorityUpdate
)

// StatusEvent is emitted on every state change the scheduler makes.
type StatusEvent struct {
	Time     uint64 // scheduler time in ms
	Kind     StatusKind
	TaskID   TaskID
	Priority int // current priority of the task at emission
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusSleep:
		return "Sleep"
	case StatusBlock:
		return "Block"
	case StatusWake:
		return "Wake"
	case StatusUnblock:
		return "Unblock"
	case StatusFinish:
		return "Finish"
	case StatusPriorityUpdate:
		return "Priority"
	default:
		return "Unknown"
	}
}
