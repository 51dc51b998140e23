// internal/sched/scheduler.go

package sched

import (
	"fmt"
	"sync/atomic"

	"github.com/emirpasic/gods/lists/arraylist"
)

// Scheduler is a priority scheduler for a single core. It decides on every
// tick and on every syscall which registered task should run and asks the
// port for a deferred switch when that decision changes.
//
// All methods except the constructor, Register and Start are meant to run
// inside the port's serialized tick, trap and pend handlers.
type Scheduler struct {
	port     Port
	policy   Policy           // how the table scan ends
	inherit  bool             // priority inheritance through Holder waitables
	capacity int              // table bound, idle task included
	tasks    *arraylist.List  // borrowed *Task in registration order
	idle     *Task            // always registered, never sleeps or blocks
	current  *Task            // running task, nil before start or after its deletion
	next     *Task            // pending switch target
	lastID   TaskID           // last handed out task ID
	started  bool             // set once by Start
	statusCh chan StatusEvent // channel for status events
	dropped  atomic.Uint64    // events lost to a full channel
}

// New creates a scheduler bound to port and registers its idle task.
// Invalid fields of cfg fall back to their defaults one by one; use Load to
// have them reported.
func New(port Port, cfg Config) *Scheduler {
	cfg, _ = cfg.clamp()

	s := &Scheduler{
		port:     port,
		policy:   cfg.SelectionPolicy(),
		inherit:  cfg.PriorityInheritance,
		capacity: cfg.Capacity,
		tasks:    arraylist.New(),
		statusCh: make(chan StatusEvent, 256), // buffered channel for status events
	}
	s.idle = NewTask(MinPriority, MinStackSize, func(any, any) {
		for {
			port.WaitForInterrupt()
		}
	}, nil, nil)
	_ = s.add(s.idle)
	return s
}

// StatusChannel exposes read-only stream (optional consumers).
func (s *Scheduler) StatusChannel() <-chan StatusEvent { return s.statusCh }

// Dropped returns how many events were discarded because nobody drained
// the status channel.
func (s *Scheduler) Dropped() uint64 { return s.dropped.Load() }

func (s *Scheduler) Policy() Policy { return s.policy }
func (s *Scheduler) Idle() *Task    { return s.idle }
func (s *Scheduler) Current() *Task { return s.current }
func (s *Scheduler) Next() *Task    { return s.next }
func (s *Scheduler) Len() int       { return s.tasks.Size() }
func (s *Scheduler) Started() bool  { return s.started }

// Tasks returns the registered tasks in table order.
func (s *Scheduler) Tasks() []*Task {
	out := make([]*Task, 0, s.tasks.Size())
	it := s.tasks.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Task))
	}
	return out
}

// Register adds a task before the scheduler starts. Once running, tasks are
// created through the create_task syscall instead.
func (s *Scheduler) Register(t *Task) error {
	if s.started {
		return ErrStarted
	}
	return s.add(t)
}

// Start wires the tick, pend and trap handlers and launches the first task.
func (s *Scheduler) Start() error {
	if s.started {
		return ErrStarted
	}
	s.started = true
	s.port.InstallHandlers(s.SwitchContext, s.HandleSyscall)
	s.port.InstallTick(s.Schedule)

	if s.inherit {
		s.inheritPriorities()
	}
	first := s.pick(s.port.Runtime())
	s.current = first
	s.emit(s.dispatchKind(first), first)
	s.port.StartFirst(first)
	return nil
}

// Schedule is the tick-driven decision. When the chosen task differs from
// the current one it records it as next and pends a switch.
func (s *Scheduler) Schedule() {
	if !s.started {
		return
	}
	if s.inherit {
		s.inheritPriorities()
	}

	candidate := s.pick(s.port.Runtime())
	if candidate == s.current {
		// drop a switch requested by an earlier, now stale, decision
		s.next = nil
		return
	}
	if s.next != candidate {
		s.next = candidate
		s.emit(StatusPreempt, candidate)
	}
	s.port.Pend()
}

// pick computes the default candidate and scans the table for a task that
// should replace it.
func (s *Scheduler) pick(now uint64) *Task {
	candidate := s.defaultCandidate(now)

	it := s.tasks.Iterator()
	for it.Next() {
		t := it.Value().(*Task)
		if t == candidate {
			continue
		}

		ok, woke, unblocked := t.eligible(now)
		if woke {
			s.emit(StatusWake, t)
		}
		if unblocked {
			s.emit(StatusUnblock, t)
		}
		if !ok {
			continue
		}

		if t.currentPriority >= candidate.currentPriority {
			candidate = t
			if s.policy == PolicyFirstMatch {
				break
			}
		}
	}
	return candidate
}

func (s *Scheduler) defaultCandidate(now uint64) *Task {
	c := s.current
	switch {
	case c == nil:
		return s.idle
	case c.sleeping && c.wakeupTime > now:
		return s.idle
	case c.waitable != nil:
		return s.idle
	}
	if c.sleeping {
		// zero or already elapsed sleep
		c.sleeping = false
		s.emit(StatusWake, c)
	}
	return c
}

// SwitchContext is the deferred switch handler.
func (s *Scheduler) SwitchContext() {
	next := s.next
	s.next = nil
	if next == nil || next == s.current {
		return
	}

	prev := s.current
	s.current = next
	s.emit(s.dispatchKind(next), next)
	s.port.SwitchTask(prev, next)
}

// HandleSyscall is the trap handler. It always runs on behalf of the
// current task.
func (s *Scheduler) HandleSyscall(req Request) Result {
	switch req.Op {
	case OpCreateTask:
		if err := s.add(req.Task); err != nil {
			return Result{Err: err}
		}
		return Result{OK: true, Task: req.Task.id}

	case OpDeleteTask:
		return Result{OK: s.remove(req.Task)}

	case OpSleep:
		if t := s.current; t != nil && t != s.idle {
			t.wakeupTime = s.port.Runtime() + uint64(req.Millis)
			t.sleeping = true
			s.emit(StatusSleep, t)
		}
		s.Schedule()
		return Result{OK: true}

	case OpYield:
		if t := s.current; t != nil && t != s.idle {
			t.waitable = req.Waitable
			if req.Waitable != nil {
				s.emit(StatusBlock, t)
			}
		}
		s.Schedule()
		return Result{OK: true}

	case OpGetTime:
		return Result{OK: true, Time: s.port.Runtime()}

	case OpMalloc:
		p := s.port.Malloc(req.Size)
		return Result{OK: p != 0, Ptr: p}

	case OpFree:
		s.port.Free(req.Ptr)
		return Result{OK: true}

	case OpWakeupHighestPriorityWaiter:
		return Result{OK: s.wakeupHighestPriorityWaiter(req.Waitable)}

	case OpSelf:
		if s.current == nil {
			return Result{}
		}
		return Result{OK: true, Task: s.current.id}

	default:
		return Result{Err: fmt.Errorf("%w: %s", ErrUnknownSyscall, req.Op)}
	}
}

func (s *Scheduler) add(t *Task) error {
	if t == nil {
		return ErrNilTask
	}
	if s.tasks.IndexOf(t) >= 0 {
		return fmt.Errorf("%w: task %d", ErrDuplicateTask, t.id)
	}
	if s.tasks.Size() >= s.capacity {
		return fmt.Errorf("%w: %d slots", ErrTableFull, s.capacity)
	}

	s.lastID++
	t.id = s.lastID
	t.sleeping = false
	t.waitable = nil
	t.currentPriority = t.priority
	t.StackPointer = s.port.SetupTaskStack(s.trampoline, t)

	s.tasks.Add(t)
	s.emit(StatusEnqueue, t)
	return nil
}

// remove scans from the back of the table so that the most recently
// created tasks are found first.
func (s *Scheduler) remove(t *Task) bool {
	if t == nil || t == s.idle {
		return false
	}
	for i := s.tasks.Size() - 1; i >= 0; i-- {
		v, _ := s.tasks.Get(i)
		if v.(*Task) != t {
			continue
		}

		s.tasks.Remove(i)
		s.emit(StatusFinish, t)
		switch t {
		case s.current:
			s.current = nil
			s.Schedule()
		case s.next:
			s.next = nil
			s.Schedule()
		}
		return true
	}
	return false
}

// wakeupHighestPriorityWaiter hands the core to the highest priority task
// blocked on w if it outranks the current task.
func (s *Scheduler) wakeupHighestPriorityWaiter(w Waitable) bool {
	if w == nil {
		return false
	}

	best := s.current
	it := s.tasks.Iterator()
	for it.Next() {
		t := it.Value().(*Task)
		if t.sleeping || t.waitable != w {
			continue
		}
		if best == nil || t.currentPriority > best.currentPriority {
			best = t
		}
	}
	if best == nil || best == s.current {
		return false
	}

	best.waitable = nil
	s.emit(StatusUnblock, best)
	if s.next != best {
		s.next = best
		s.emit(StatusPreempt, best)
	}
	s.port.Pend()
	return true
}

// inheritPriorities resets every task to its base priority and then lifts
// each holder of a contended Holder waitable to the base priority of its
// highest waiter.
func (s *Scheduler) inheritPriorities() {
	boosted := make(map[*Task]int)

	it := s.tasks.Iterator()
	for it.Next() {
		w := it.Value().(*Task)
		if w.sleeping || w.waitable == nil {
			continue
		}
		h, ok := w.waitable.(Holder)
		if !ok {
			continue
		}
		id, held := h.Holder()
		if !held {
			continue
		}
		owner := s.lookup(id)
		if owner == nil || owner == w {
			continue
		}
		if w.priority > owner.priority && w.priority > boosted[owner] {
			boosted[owner] = w.priority
		}
	}

	it = s.tasks.Iterator()
	for it.Next() {
		t := it.Value().(*Task)
		p := t.priority
		if b, ok := boosted[t]; ok {
			p = b
		}
		if p != t.currentPriority {
			t.currentPriority = p
			s.emit(StatusPriorityUpdate, t)
		}
	}
}

func (s *Scheduler) lookup(id TaskID) *Task {
	it := s.tasks.Iterator()
	for it.Next() {
		if t := it.Value().(*Task); t.id == id {
			return t
		}
	}
	return nil
}

func (s *Scheduler) trampoline(t *Task) { trampoline(s.port, t) }

func (s *Scheduler) dispatchKind(t *Task) StatusKind {
	if t == s.idle {
		return StatusIdle
	}
	return StatusDispatch
}

// emit never blocks: handlers cannot wait on a slow consumer.
func (s *Scheduler) emit(kind StatusKind, t *Task) {
	ev := StatusEvent{Time: s.port.Runtime(), Kind: kind}
	if t != nil {
		ev.TaskID = t.id
		ev.Priority = t.currentPriority
	}
	select {
	case s.statusCh <- ev:
	default:
		s.dropped.Add(1)
	}
}
