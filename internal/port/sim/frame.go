package sim

import "krtos/internal/sched"

// frame is the saved state of one task: in this port, a goroutine and the
// channel it is parked on.
type frame struct {
	sp         uintptr
	task       *sched.Task
	trampoline func(*sched.Task)
	resume     chan struct{}
	started    bool
}

type handoff struct {
	from, to *frame
	exit     bool // from belongs to a deleted task and must not resume
}
